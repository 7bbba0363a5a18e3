package pdfocr

import (
	"fmt"

	"codeberg.org/go-pdf/fpdf"
	"golang.org/x/text/encoding/charmap"

	"github.com/gardar/cargointake/pkg/doctree"
	"github.com/gardar/cargointake/pkg/layout"
)

// transformFunc maps page pixel coordinates to PDF units.
type transformFunc func(x, y float64) (float64, float64)

// scaleTransform maps a page of srcW x srcH pixels onto a PDF page of
// dstW x dstH. Unknown source dimensions map one to one.
func scaleTransform(srcW, srcH, dstW, dstH float64) transformFunc {
	sx, sy := 1.0, 1.0
	if srcW > 0 {
		sx = dstW / srcW
	}
	if srcH > 0 {
		sy = dstH / srcH
	}
	return func(x, y float64) (float64, float64) {
		return x * sx, y * sy
	}
}

// drawOCRLayer draws the words of a page tree onto a new layer of the
// current PDF page. The pageNum parameter makes layer names unique per page.
func drawOCRLayer(
	pdf *fpdf.Fpdf,
	page *doctree.PageNode,
	pageNum int,
	transform transformFunc,
	cfg Config,
) error {
	glyphs, warnings := layout.LoadGlyphs(page)
	for _, w := range warnings {
		cfg.Logger.Warn("skipping word in OCR layer", "page", pageNum, "error", w)
	}

	layerName := fmt.Sprintf("%s (Page %d)", cfg.LayerName, pageNum)
	layer := pdf.AddLayer(layerName, true)
	pdf.BeginLayer(layer)
	pdf.SetFont(cfg.Font.Name, cfg.Font.Style, cfg.Font.Size)

	if cfg.Debug {
		pdf.SetTextColor(255, 0, 0) // highlight text in red
	} else {
		pdf.SetAlpha(0.0, "Normal") // hide text from normal view
	}

	encodingErrors := 0
	wordCount := 0
	for _, g := range glyphs {
		if g.Text == "" {
			continue
		}
		if !drawWord(pdf, g, transform, cfg) {
			encodingErrors++
		}
		wordCount++
	}

	if !cfg.Debug {
		pdf.SetAlpha(1.0, "Normal")
	}
	pdf.EndLayer()

	// Report encoding errors if more than a threshold
	if wordCount > 0 && encodingErrors > wordCount/10 {
		return fmt.Errorf("character encoding issues in %d of %d words",
			encodingErrors, wordCount)
	}
	return nil
}

// drawWord renders a single word stretched over its box. It reports false
// when the text could not be encoded as ISO-8859-1.
func drawWord(pdf *fpdf.Fpdf, g layout.Glyph, transform transformFunc, cfg Config) bool {
	x, y := transform(g.Box.Left, g.Box.Top)
	x2, y2 := transform(g.Box.Right, g.Box.Bottom)
	wordWidth := x2 - x

	ok := true
	latin1, err := charmap.ISO8859_1.NewEncoder().String(g.Text)
	if err != nil {
		ok = false
		latin1 = g.Text
	}

	if strWidth := pdf.GetStringWidth(latin1); strWidth > 0 && wordWidth > 0 {
		pdf.SetFontSize(cfg.Font.Size * wordWidth / strWidth)
	}

	fontSize, _ := pdf.GetFontSize()
	baseline := y + fontSize*cfg.Font.AscentRatio
	pdf.Text(x, baseline, latin1)
	pdf.SetFontSize(cfg.Font.Size)

	if cfg.Debug {
		pdf.Rect(x, y, wordWidth, y2-y, "D")
	}
	return ok
}
