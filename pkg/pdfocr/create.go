package pdfocr

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"codeberg.org/go-pdf/fpdf"

	"github.com/gardar/cargointake/pkg/doctree"
)

// createPDFFromImages builds a new PDF from page images with their
// corresponding word trees. Inputs are validated by the caller.
func createPDFFromImages(pages []*doctree.PageNode, images [][]byte, cfg Config) ([]byte, error) {
	pdf := fpdf.New("P", "pt", "A4", "")

	for i := cfg.StartPage - 1; i < len(pages) && i < len(images); i++ {
		page := pages[i]
		imageType, imgW, imgH, err := decodeImageConfig(images[i])
		if err != nil {
			return nil, fmt.Errorf("failed to detect image type for image %d: %w", i+1, err)
		}

		// Page size follows the OCR page dimensions, falling back to the image
		w, h := page.Width, page.Height
		if w <= 0 || h <= 0 {
			w, h = imgW, imgH
		}
		pdf.AddPageFormat("P", fpdf.SizeType{Wd: w, Ht: h})

		imageName := fmt.Sprintf("img%d", i)
		opts := fpdf.ImageOptions{ReadDpi: false, ImageType: imageType}
		pdf.RegisterImageOptionsReader(imageName, opts, bytes.NewReader(images[i]))
		pdf.ImageOptions(imageName, 0, 0, w, h, false, opts, 0, "")

		transform := scaleTransform(page.Width, page.Height, w, h)
		if err := drawOCRLayer(pdf, page, i+1, transform, cfg); err != nil {
			return nil, fmt.Errorf("failed to draw OCR layer for page %d: %w", i+1, err)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// decodeImageConfig reports the image format (PNG, JPEG, ...) and pixel size.
func decodeImageConfig(data []byte) (string, float64, float64, error) {
	conf, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", 0, 0, fmt.Errorf("failed to decode image config: %w", err)
	}
	return strings.ToUpper(format), float64(conf.Width), float64(conf.Height), nil
}
