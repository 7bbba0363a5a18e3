package layout

import (
	"math"
	"strings"
)

// Heading thresholds in points. Rows at or under minHeadingSize never become
// headings.
const (
	minHeadingSize = 8.0
	h2Size         = 12.0
	h1Size         = 14.0
)

// MarkdownRows assembles rows like TextRows but with inline markdown: bold
// glyphs are wrapped in ** and italic glyphs in *. A row made only of styled
// bold glyphs larger than 8pt is emitted as a heading instead ("# " from
// 14pt, "## " from 12pt). Trailing blank rows are dropped.
func (a *Assembler) MarkdownRows(glyphs []Glyph, cfg Config) []string {
	bands, maxRow, ok := rowBands(glyphs, cfg)
	if !ok {
		return nil
	}
	rows := make([]string, 0, maxRow+1)
	for i := 0; i <= maxRow; i++ {
		band := bands[i]
		if heading, ok := headingRow(band); ok {
			rows = append(rows, heading)
			continue
		}
		rows = append(rows, a.placeRow(band, cfg, markdownText))
	}
	for len(rows) > 0 && strings.TrimSpace(rows[len(rows)-1]) == "" {
		rows = rows[:len(rows)-1]
	}
	return rows
}

func markdownText(g Glyph) string {
	switch {
	case len(g.Style) == 0:
		return g.Text
	case g.Style.Bold():
		return "**" + g.Text + "**"
	case g.Style.Italic():
		return "*" + g.Text + "*"
	default:
		return g.Text
	}
}

func headingRow(band []Glyph) (string, bool) {
	if len(band) == 0 {
		return "", false
	}
	maxSize := 0.0
	for _, g := range band {
		if len(g.Style) == 0 || !g.Style.Bold() {
			return "", false
		}
		size := g.Style.FontSize()
		if size <= minHeadingSize {
			return "", false
		}
		maxSize = math.Max(maxSize, size)
	}

	var prefix string
	switch {
	case maxSize >= h1Size:
		prefix = "# "
	case maxSize >= h2Size:
		prefix = "## "
	default:
		return "", false
	}

	words := make([]string, 0, len(band))
	for _, g := range band {
		if t := strings.TrimSpace(g.Text); t != "" {
			words = append(words, t)
		}
	}
	if len(words) == 0 {
		return "", false
	}
	return prefix + strings.Join(words, " "), true
}
