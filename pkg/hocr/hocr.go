// Package hocr reads hOCR (the HTML OCR format written by Tesseract and
// other engines) into page trees.
//
// Each ocr_page element becomes a doctree.PageNode. Layout elements
// (ocr_carea, ocr_par, ocr_line, ...) become containers and ocrx_word
// elements become word nodes whose position is the word bbox. Word emphasis
// (<strong>, <em>) and x_fsize are recorded in the page style table so the
// markdown renderer can pick up headings and bold text.
package hocr

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/encoding/charmap"

	"github.com/gardar/cargointake/pkg/doctree"
	"github.com/gardar/cargointake/pkg/layout"
)

// ErrNoPages is returned for documents without any ocr_page element.
var ErrNoPages = errors.New("no ocr_page elements found in hOCR data")

var charsetPattern = regexp.MustCompile(`(?i)charset=["']?([A-Za-z0-9_-]+)`)

// Parse converts hOCR data into page trees, one per ocr_page in document order.
func Parse(data []byte) ([]*doctree.PageNode, error) {
	decoded, err := decode(data)
	if err != nil {
		return nil, err
	}

	doc, err := html.Parse(bytes.NewReader(decoded))
	if err != nil {
		return nil, fmt.Errorf("failed to parse hOCR data: %w", err)
	}

	var pages []*doctree.PageNode
	var findPages func(*html.Node)
	findPages = func(n *html.Node) {
		if n.Type == html.ElementNode && hasClass(n, "ocr_page") {
			pages = append(pages, buildPage(n, len(pages)+1))
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			findPages(c)
		}
	}
	findPages(doc)

	if len(pages) == 0 {
		return nil, ErrNoPages
	}
	return pages, nil
}

// decode converts Latin-1 documents to UTF-8. Anything that does not declare
// a non-UTF-8 charset is passed through.
func decode(data []byte) ([]byte, error) {
	m := charsetPattern.FindSubmatch(data)
	if m == nil {
		return data, nil
	}
	switch strings.ToLower(string(m[1])) {
	case "utf-8", "utf8":
		return data, nil
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", m[1], err)
	}
	return decoded, nil
}

type pageBuilder struct {
	page   *doctree.PageNode
	styles map[string]int
}

func buildPage(n *html.Node, number int) *doctree.PageNode {
	b := &pageBuilder{
		page:   &doctree.PageNode{ID: attr(n, "id")},
		styles: map[string]int{},
	}
	if b.page.ID == "" {
		b.page.ID = fmt.Sprintf("page_%d", number)
	}
	if box := ParseBoundingBox(attr(n, "title")); box != nil {
		b.page.Width = box.Right - box.Left
		b.page.Height = box.Bottom - box.Top
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.walk(c, &b.page.Children)
	}

	for style, id := range b.styles {
		b.page.Styles = append(b.page.Styles, doctree.StyleDef{ID: id, Value: style})
	}
	sort.Slice(b.page.Styles, func(i, j int) bool { return b.page.Styles[i].ID < b.page.Styles[j].ID })
	return b.page
}

func (b *pageBuilder) walk(n *html.Node, out *[]doctree.Node) {
	if n.Type != html.ElementNode {
		return
	}
	class := ocrClass(n)
	switch {
	case class == "ocrx_word":
		if w := b.word(n); w != nil {
			*out = append(*out, w)
		}
		return
	case class != "":
		c := &doctree.ContainerNode{Type: class, ID: attr(n, "id")}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			b.walk(child, &c.Children)
		}
		*out = append(*out, c)
		return
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		b.walk(child, out)
	}
}

func (b *pageBuilder) word(n *html.Node) *doctree.WordNode {
	title := attr(n, "title")
	box := ParseBoundingBox(title)
	if box == nil {
		return nil
	}
	props := ParseTitle(title)

	w := &doctree.WordNode{
		Text: textContent(n),
		Pos:  layout.FormatPosition(*box),
	}
	if conf, ok := props["x_wconf"]; ok && len(conf) > 0 {
		if v, err := strconv.ParseFloat(conf[0], 64); err == nil {
			w.Confidence = v / 100
		}
	}

	var parts []string
	if hasDescendant(n, "strong", "b") {
		parts = append(parts, "font-weight: bold")
	}
	if hasDescendant(n, "em", "i") {
		parts = append(parts, "font-style: italic")
	}
	if size, ok := props["x_fsize"]; ok && len(size) > 0 {
		parts = append(parts, "font-size: "+size[0]+"pt")
	}
	if len(parts) > 0 {
		w.Style = b.styleID(strings.Join(parts, "; "))
	}
	return w
}

// styleID returns the page style id of style, adding it when new. Id 0 is
// reserved for unstyled words.
func (b *pageBuilder) styleID(style string) int {
	if id, ok := b.styles[style]; ok {
		return id
	}
	id := len(b.styles) + 1
	b.styles[style] = id
	return id
}

// ocrClass returns the first ocr_* or ocrx_* class of n, or "".
func ocrClass(n *html.Node) string {
	for _, c := range strings.Fields(attr(n, "class")) {
		if strings.HasPrefix(c, "ocr_") || strings.HasPrefix(c, "ocrx_") {
			return c
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func hasDescendant(n *html.Node, tags ...string) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			for _, t := range tags {
				if c.Data == t {
					return true
				}
			}
		}
		if hasDescendant(c, tags...) {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return strings.TrimSpace(sb.String())
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
