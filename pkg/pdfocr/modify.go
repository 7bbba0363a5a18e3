package pdfocr

import (
	"bytes"
	"fmt"
	"io"

	"codeberg.org/go-pdf/fpdf"
	"codeberg.org/go-pdf/fpdf/contrib/gofpdi"

	"github.com/gardar/cargointake/pkg/doctree"
)

// modifyExistingPDF imports every page of an existing PDF and overlays an
// OCR text layer on the pages that have a word tree.
func modifyExistingPDF(input []byte, pages []*doctree.PageNode, cfg Config) (out []byte, err error) {
	// gofpdi panics on unreadable input
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("failed to import PDF: %v", r)
		}
	}()

	pdf := fpdf.New("P", "pt", "", "")
	importer := gofpdi.NewImporter()
	rs := io.ReadSeeker(bytes.NewReader(input))

	tpl := importer.ImportPageFromStream(pdf, &rs, 1, "/MediaBox")
	sizes := importer.GetPageSizes()
	if last := cfg.StartPage - 1 + len(pages); last > len(sizes) {
		return nil, fmt.Errorf("PDF has %d pages, OCR pages reach page %d", len(sizes), last)
	}

	for pageNum := 1; pageNum <= len(sizes); pageNum++ {
		if pageNum > 1 {
			tpl = importer.ImportPageFromStream(pdf, &rs, pageNum, "/MediaBox")
		}
		w, h := sizes[pageNum]["/MediaBox"]["w"], sizes[pageNum]["/MediaBox"]["h"]

		pdf.AddPageFormat("P", fpdf.SizeType{Wd: w, Ht: h})
		importer.UseImportedTemplate(pdf, tpl, 0, 0, w, h)

		idx := pageNum - cfg.StartPage
		if idx < 0 || idx >= len(pages) {
			continue
		}
		page := pages[idx]
		transform := scaleTransform(page.Width, page.Height, w, h)
		if err := drawOCRLayer(pdf, page, pageNum, transform, cfg); err != nil {
			return nil, fmt.Errorf("failed to draw OCR layer for page %d: %w", pageNum, err)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}
