package layout

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultPxPerChar is used when no glyph has any text.
	DefaultPxPerChar = 10.0
	// DefaultPxPerRow is used when neither line spacing nor glyph heights
	// can be measured.
	DefaultPxPerRow = 18.0

	minRowSpacing   = 10.0 // below this, centers belong to the same line
	maxRowSpacing   = 100.0
	tightRowSpacing = 30.0
)

// Config holds the per-page scales used to map pixels to text cells.
type Config struct {
	PxPerChar float64
	PxPerRow  float64
}

// ScaleX converts horizontal pixels to columns.
func (c Config) ScaleX() float64 { return 1.0 / c.PxPerChar }

// ScaleY converts vertical pixels to rows.
func (c Config) ScaleY() float64 { return 1.0 / c.PxPerRow }

// Estimate derives a page Config from its glyphs. Scales that cannot be
// measured are taken from fallback.
func Estimate(glyphs []Glyph, fallback Config) Config {
	return Config{
		PxPerChar: EstimatePxPerChar(glyphs, fallback.PxPerChar),
		PxPerRow:  EstimatePxPerRow(glyphs, fallback.PxPerRow),
	}
}

// EstimatePxPerChar returns the median width-per-character of the glyphs with
// non-blank text, floored at 1. It returns fallback when no glyph qualifies.
func EstimatePxPerChar(glyphs []Glyph, fallback float64) float64 {
	var widths []float64
	for _, g := range glyphs {
		text := strings.TrimSpace(g.Text)
		n := utf8.RuneCountInString(text)
		if n == 0 {
			continue
		}
		widths = append(widths, g.Width()/float64(n))
	}
	if len(widths) == 0 {
		return fallback
	}
	return math.Max(1.0, median(widths))
}

// EstimatePxPerRow estimates the row height from the spacing between
// distinct glyph centers. Spacings outside (10, 100) are ignored. Tight
// layouts (smallest spacing under 30px) use 0.7 x the median spacing so rows
// are not over-split; normal layouts use 0.8 x the smallest spacing so
// distinct rows are not merged. Without usable spacings the median glyph
// height is used, then fallback.
func EstimatePxPerRow(glyphs []Glyph, fallback float64) float64 {
	if len(glyphs) == 0 {
		return fallback
	}

	centers := make([]float64, 0, len(glyphs))
	for _, g := range glyphs {
		centers = append(centers, g.CenterY())
	}
	sort.Float64s(centers)
	centers = uniqueSorted(centers)

	var spacings []float64
	for i := 1; i < len(centers); i++ {
		spacing := centers[i] - centers[i-1]
		if spacing > minRowSpacing && spacing < maxRowSpacing {
			spacings = append(spacings, spacing)
		}
	}

	if len(spacings) > 0 {
		med := median(spacings)
		minSpacing := spacings[0]
		for _, s := range spacings[1:] {
			minSpacing = math.Min(minSpacing, s)
		}
		if minSpacing < tightRowSpacing {
			return math.Max(1.0, med*0.7)
		}
		return math.Max(1.0, minSpacing*0.8)
	}

	var heights []float64
	for _, g := range glyphs {
		if h := g.Height(); h > 0 {
			heights = append(heights, h)
		}
	}
	if len(heights) > 0 {
		return math.Max(1.0, median(heights))
	}
	return fallback
}

// median of values; the mean of the two middle values for even counts.
func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2.0
}

func uniqueSorted(sorted []float64) []float64 {
	out := sorted[:0]
	for _, v := range sorted {
		if len(out) == 0 || v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

// roundHalfEven rounds to the nearest integer, ties to even.
func roundHalfEven(v float64) int {
	return int(math.RoundToEven(v))
}
