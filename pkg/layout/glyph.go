package layout

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/gardar/cargointake/pkg/doctree"
)

// BoundingBox is a rectangle in page pixel coordinates.
type BoundingBox struct {
	Left   float64
	Top    float64
	Right  float64
	Bottom float64
}

// Glyph is one positioned text span recognized by OCR.
type Glyph struct {
	Text       string
	Box        BoundingBox
	Confidence float64
	StyleID    int
	Style      Style // Resolved from the page style table, nil when absent
}

// NewGlyph validates the box and builds a glyph. Text is normalized to NFC so
// that character counts match what is drawn on the page.
func NewGlyph(text string, box BoundingBox, confidence float64, styleID int) (Glyph, error) {
	if box.Right < box.Left || box.Bottom < box.Top {
		return Glyph{}, fmt.Errorf("%w: %v", ErrInvalidBox, box)
	}
	return Glyph{
		Text:       norm.NFC.String(text),
		Box:        box,
		Confidence: confidence,
		StyleID:    styleID,
	}, nil
}

// Width of the glyph in pixels.
func (g Glyph) Width() float64 { return g.Box.Right - g.Box.Left }

// Height of the glyph in pixels.
func (g Glyph) Height() float64 { return g.Box.Bottom - g.Box.Top }

// CenterY is the vertical center of the glyph.
func (g Glyph) CenterY() float64 { return (g.Box.Top + g.Box.Bottom) / 2.0 }

// CharWidth is the average width of one character of the glyph's trimmed
// text, or 0 for blank glyphs.
func (g Glyph) CharWidth() float64 {
	n := utf8.RuneCountInString(strings.TrimSpace(g.Text))
	if n == 0 {
		return 0
	}
	return g.Width() / float64(n)
}

// ParsePosition parses a "left,top,right,bottom" position string. Each
// coordinate must be a finite number.
func ParsePosition(pos string) (BoundingBox, error) {
	parts := strings.Split(pos, ",")
	if len(parts) != 4 {
		return BoundingBox{}, fmt.Errorf("%w: %q", ErrMalformedPosition, pos)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return BoundingBox{}, fmt.Errorf("%w: %q", ErrMalformedPosition, pos)
		}
		v[i] = f
	}
	return BoundingBox{Left: v[0], Top: v[1], Right: v[2], Bottom: v[3]}, nil
}

// FormatPosition formats a box as the integer "left,top,right,bottom" string
// used by page trees.
func FormatPosition(box BoundingBox) string {
	return fmt.Sprintf("%d,%d,%d,%d",
		int(box.Left+0.5), int(box.Top+0.5), int(box.Right+0.5), int(box.Bottom+0.5))
}

// LoadGlyphs collects the glyphs of a page tree in depth-first order and
// resolves their styles. Words that cannot be converted are skipped; one
// GlyphError per skipped word is returned alongside the usable glyphs.
// Words whose style or confidence failed to decode are kept with zeroed
// attributes and also reported.
func LoadGlyphs(page *doctree.PageNode) ([]Glyph, []error) {
	styles := make(map[int]Style, len(page.Styles))
	for _, st := range page.Styles {
		if parsed := ParseStyle(st.Value); len(parsed) > 0 {
			styles[st.ID] = parsed
		}
	}

	var glyphs []Glyph
	var warnings []error
	for i, w := range doctree.Words(page) {
		if w.Err != nil {
			warnings = append(warnings, &GlyphError{PageID: page.ID, Index: i, Err: w.Err})
		}
		box, err := ParsePosition(w.Pos)
		if err != nil {
			warnings = append(warnings, &GlyphError{PageID: page.ID, Index: i, Err: err})
			continue
		}
		g, err := NewGlyph(w.Text, box, w.Confidence, w.Style)
		if err != nil {
			warnings = append(warnings, &GlyphError{PageID: page.ID, Index: i, Err: err})
			continue
		}
		g.Style = styles[w.Style]
		glyphs = append(glyphs, g)
	}
	return glyphs, warnings
}
