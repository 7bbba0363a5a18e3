package layout

import (
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// minGapPx is the horizontal gap above which two glyphs are treated as
// physically separated and keep their absolute column.
const minGapPx = 5.0

// JoinRules decides when two neighbouring glyphs are written without a space.
type JoinRules struct {
	After  string // Glyphs ending with one of these join the next glyph
	Before string // Glyphs starting with one of these join the previous glyph
}

// DefaultJoinRules returns the punctuation adjacency table used for OCR text.
func DefaultJoinRules() JoinRules {
	return JoinRules{
		After:  `-/(["'`,
		Before: `.,;:)]?!"'`,
	}
}

// ShouldJoin reports whether next follows prev without an inserted space.
func (j JoinRules) ShouldJoin(prev, next string) bool {
	if prev == "" || next == "" {
		return true
	}
	last, _ := utf8.DecodeLastRuneInString(prev)
	if strings.ContainsRune(j.After, last) {
		return true
	}
	first, _ := utf8.DecodeRuneInString(next)
	return strings.ContainsRune(j.Before, first)
}

// ShouldJoin applies DefaultJoinRules.
func ShouldJoin(prev, next string) bool {
	return DefaultJoinRules().ShouldJoin(prev, next)
}

// Assembler writes glyphs into fixed-width row buffers.
type Assembler struct {
	join JoinRules
}

// NewAssembler creates an assembler with the given join rules.
func NewAssembler(join JoinRules) *Assembler {
	return &Assembler{join: join}
}

// ToTextRows assembles rows with the default join rules.
func ToTextRows(glyphs []Glyph, cfg Config) []string {
	return NewAssembler(DefaultJoinRules()).TextRows(glyphs, cfg)
}

// TextRows returns one string per row band, from row 0 to the last occupied
// band. Bands without glyphs are returned as empty strings so vertical gaps
// survive. Blank glyphs are ignored; with no usable glyph the result is empty.
func (a *Assembler) TextRows(glyphs []Glyph, cfg Config) []string {
	bands, maxRow, ok := rowBands(glyphs, cfg)
	if !ok {
		return nil
	}
	rows := make([]string, 0, maxRow+1)
	for i := 0; i <= maxRow; i++ {
		rows = append(rows, a.placeRow(bands[i], cfg, plainText))
	}
	return rows
}

// rowBands buckets the non-blank glyphs by round(centerY / pxPerRow) and
// sorts every band by left edge.
func rowBands(glyphs []Glyph, cfg Config) (map[int][]Glyph, int, bool) {
	bands := make(map[int][]Glyph)
	maxRow := 0
	found := false
	for _, g := range glyphs {
		if strings.TrimSpace(g.Text) == "" {
			continue
		}
		row := roundHalfEven(g.CenterY() * cfg.ScaleY())
		bands[row] = append(bands[row], g)
		if row > maxRow {
			maxRow = row
		}
		found = true
	}
	for _, band := range bands {
		sort.SliceStable(band, func(i, j int) bool { return band[i].Box.Left < band[j].Box.Left })
	}
	return bands, maxRow, found
}

func plainText(g Glyph) string { return g.Text }

// placeRow writes a left-sorted band into a character buffer. render gives
// the text written for a glyph; spacing decisions always use the raw text.
func (a *Assembler) placeRow(band []Glyph, cfg Config, render func(Glyph) string) string {
	if len(band) == 0 {
		return ""
	}
	scaleX := cfg.ScaleX()

	var line []rune
	prevEnd := 0
	prevRight := 0.0
	prevText := ""
	placed := false

	for _, g := range band {
		if g.Text == "" {
			continue
		}
		out := []rune(render(g))
		start := roundHalfEven(g.Box.Left * scaleX)
		widthCols := max(len(out), roundHalfEven(math.Max(g.Width()*scaleX, 1.0)))

		if placed {
			gap := g.Box.Left - prevRight
			needsSpace := !a.join.ShouldJoin(prevText, g.Text)
			if gap > minGapPx {
				start = max(0, start)
				if needsSpace && start <= prevEnd {
					start = prevEnd + 1
				}
			} else {
				gapCols := 0
				if gap > 0 {
					gapCols = max(1, roundHalfEven(gap*scaleX))
				}
				desired := prevEnd + gapCols
				if gap <= 0 {
					desired = max(prevEnd, start)
				}
				if needsSpace {
					desired = max(desired, prevEnd+1)
				}
				start = max(desired, start)
			}
		} else {
			start = max(0, start)
		}

		for len(line) < start+widthCols+1 {
			line = append(line, ' ')
		}
		copy(line[start:], out)

		prevEnd = start + len(out)
		prevRight = g.Box.Right
		prevText = g.Text
		placed = true
	}
	return strings.TrimRightFunc(string(line), unicode.IsSpace)
}
