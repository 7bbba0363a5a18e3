package gdocai

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"cloud.google.com/go/documentai/apiv1/documentaipb"

	"github.com/gardar/cargointake/pkg/doctree"
	"github.com/gardar/cargointake/pkg/layout"
)

// DocumentFromProto converts a Document AI response into a document tree.
// Pages come first in page-number order, followed by the key section (only
// when entities or form fields exist) and one table node per detected table.
func DocumentFromProto(doc *documentaipb.Document, docType, id string) *doctree.Document {
	out := &doctree.Document{DocType: docType, ID: id}
	if doc == nil {
		return out
	}

	pages := append([]*documentaipb.Document_Page(nil), doc.GetPages()...)
	sort.SliceStable(pages, func(i, j int) bool { return pages[i].GetPageNumber() < pages[j].GetPageNumber() })

	var tables []doctree.Node
	for i, page := range pages {
		number := int(page.GetPageNumber())
		if number == 0 {
			number = i + 1
		}
		out.Children = append(out.Children, PageFromProto(page, doc.GetText(), number))
		for _, t := range tablesFromPage(page, doc.GetText(), number) {
			tables = append(tables, t)
		}
	}

	items := entityItems(doc)
	items = append(items, formFieldItems(doc)...)
	if len(items) > 0 {
		out.Children = append(out.Children, &doctree.KeySection{Items: items})
	}
	out.Children = append(out.Children, tables...)
	return out
}

// PageFromProto converts one page. Tokens are grouped under "line"
// containers by text anchor; tokens outside every line are attached to the
// page directly. Token positions are in page pixels.
func PageFromProto(page *documentaipb.Document_Page, fullText string, number int) *doctree.PageNode {
	out := &doctree.PageNode{
		ID:     fmt.Sprintf("page_%d", number),
		Width:  float64(page.GetDimension().GetWidth()),
		Height: float64(page.GetDimension().GetHeight()),
	}

	styles := map[string]int{}
	lines := make([]*doctree.ContainerNode, len(page.GetLines()))
	ranges := make([][2]int64, len(page.GetLines()))
	for i, line := range page.GetLines() {
		lines[i] = &doctree.ContainerNode{Type: "line", ID: fmt.Sprintf("line_%d_%d", number, i+1)}
		ranges[i][0], ranges[i][1] = anchorRange(line.GetLayout())
	}

	var loose []doctree.Node
	for _, token := range page.GetTokens() {
		w := wordFromToken(token, page.GetDimension(), fullText, styles)
		if w == nil {
			continue
		}
		start, _ := anchorRange(token.GetLayout())
		placed := false
		for i, r := range ranges {
			if start >= r[0] && start < r[1] {
				lines[i].Children = append(lines[i].Children, w)
				placed = true
				break
			}
		}
		if !placed {
			loose = append(loose, w)
		}
	}

	for _, l := range lines {
		if len(l.Children) > 0 {
			out.Children = append(out.Children, l)
		}
	}
	out.Children = append(out.Children, loose...)

	for style, id := range styles {
		out.Styles = append(out.Styles, doctree.StyleDef{ID: id, Value: style})
	}
	sort.Slice(out.Styles, func(i, j int) bool { return out.Styles[i].ID < out.Styles[j].ID })
	return out
}

func wordFromToken(token *documentaipb.Document_Page_Token, dim *documentaipb.Document_Page_Dimension,
	fullText string, styles map[string]int) *doctree.WordNode {
	box, ok := pixelBox(token.GetLayout().GetBoundingPoly(), dim)
	if !ok {
		return nil
	}
	text := strings.TrimSpace(textFromLayout(token.GetLayout(), fullText))
	if text == "" {
		return nil
	}
	w := &doctree.WordNode{
		Text:       text,
		Pos:        layout.FormatPosition(box),
		Confidence: float64(token.GetLayout().GetConfidence()),
	}
	if style := tokenStyle(token.GetStyleInfo()); style != "" {
		id, ok := styles[style]
		if !ok {
			id = len(styles) + 1
			styles[style] = id
		}
		w.Style = id
	}
	return w
}

func tokenStyle(info *documentaipb.Document_Page_Token_StyleInfo) string {
	if info == nil {
		return ""
	}
	var parts []string
	if info.GetBold() {
		parts = append(parts, "font-weight: bold")
	}
	if info.GetItalic() {
		parts = append(parts, "font-style: italic")
	}
	if size := info.GetFontSize(); size > 0 {
		parts = append(parts, fmt.Sprintf("font-size: %dpt", size))
	}
	return strings.Join(parts, "; ")
}

// pixelBox returns the enclosing box of a polygon in page pixels, using the
// normalized vertices when present and the absolute vertices otherwise.
func pixelBox(poly *documentaipb.BoundingPoly, dim *documentaipb.Document_Page_Dimension) (layout.BoundingBox, bool) {
	var xs, ys []float64
	if nv := poly.GetNormalizedVertices(); len(nv) > 0 && dim.GetWidth() > 0 && dim.GetHeight() > 0 {
		for _, v := range nv {
			xs = append(xs, float64(v.GetX()*dim.GetWidth()))
			ys = append(ys, float64(v.GetY()*dim.GetHeight()))
		}
	} else {
		for _, v := range poly.GetVertices() {
			xs = append(xs, float64(v.GetX()))
			ys = append(ys, float64(v.GetY()))
		}
	}
	if len(xs) == 0 {
		return layout.BoundingBox{}, false
	}
	box := layout.BoundingBox{Left: math.Inf(1), Top: math.Inf(1), Right: math.Inf(-1), Bottom: math.Inf(-1)}
	for i := range xs {
		box.Left = math.Min(box.Left, xs[i])
		box.Right = math.Max(box.Right, xs[i])
		box.Top = math.Min(box.Top, ys[i])
		box.Bottom = math.Max(box.Bottom, ys[i])
	}
	return box, true
}

// tablesFromPage converts detected tables. Cells are labelled by the text of
// the last header row; columns without a header are named column_N.
func tablesFromPage(page *documentaipb.Document_Page, fullText string, number int) []*doctree.TableNode {
	var out []*doctree.TableNode
	for ti, table := range page.GetTables() {
		var header []string
		if rows := table.GetHeaderRows(); len(rows) > 0 {
			for _, cell := range rows[len(rows)-1].GetCells() {
				header = append(header, strings.TrimSpace(textFromLayout(cell.GetLayout(), fullText)))
			}
		}
		t := &doctree.TableNode{Name: fmt.Sprintf("page_%d_table_%d", number, ti+1)}
		for _, row := range table.GetBodyRows() {
			var r doctree.TableRow
			for ci, cell := range row.GetCells() {
				label := fmt.Sprintf("column_%d", ci+1)
				if ci < len(header) && header[ci] != "" {
					label = header[ci]
				}
				r.Cells = append(r.Cells, doctree.Cell{
					Label: label,
					Value: strings.TrimSpace(textFromLayout(cell.GetLayout(), fullText)),
				})
			}
			t.Rows = append(t.Rows, r)
		}
		out = append(out, t)
	}
	return out
}
