// Package pdfocr draws OCR word trees as text layers into PDF documents.
//
// Pages recognized by the OCR engines (hOCR, Document AI, or the batch JSON
// input) carry word boxes in page pixel coordinates. This package places each
// word's text over the matching region of the page so the result is
// searchable and selectable. Layers are named per page and can be toggled in
// compatible PDF readers.
//
// Main Functions:
//
// - ApplyOCR: Adds OCR text layer to an existing PDF
// - AssembleWithOCR: Creates a new PDF from page images with OCR text layer
// - CheckExistingOCRLayers: Detects layers from an earlier run
package pdfocr

import (
	"errors"
	"fmt"

	"github.com/gardar/cargointake/pkg/doctree"
)

var (
	// ErrNoPages is returned when no OCR pages are supplied.
	ErrNoPages = errors.New("no OCR pages provided")

	// ErrOCRLayerExists is returned by ApplyOCR when the PDF already carries
	// an OCR layer and Config.Force is not set.
	ErrOCRLayerExists = errors.New("file already has OCR")
)

// AssembleWithOCR creates a PDF from page images and draws the matching
// page word trees as an invisible text layer. Images are paired with pages
// by index.
func AssembleWithOCR(pages []*doctree.PageNode, images [][]byte, cfg Config) ([]byte, error) {
	cfg.defaults()

	if len(pages) == 0 {
		return nil, ErrNoPages
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("no image data provided")
	}
	if cfg.StartPage < 1 {
		return nil, fmt.Errorf("start page must be at least 1, got %d", cfg.StartPage)
	}
	if len(images) < len(pages) {
		return nil, fmt.Errorf("not enough images (%d) for OCR pages (%d)", len(images), len(pages))
	}

	for i, img := range images {
		if len(img) == 0 {
			return nil, fmt.Errorf("image %d is empty", i+1)
		}
		imageType, _, _, err := decodeImageConfig(img)
		if err != nil {
			return nil, fmt.Errorf("image %d has invalid format: %w", i+1, err)
		}
		cfg.Logger.Debug("image detected", "image", i+1, "type", imageType)
	}

	out, err := createPDFFromImages(pages, images, cfg)
	if err != nil {
		return nil, fmt.Errorf("error creating PDF from images: %w", err)
	}
	return out, nil
}

// ApplyOCR draws page word trees over the pages of an existing PDF, starting
// at Config.StartPage. A PDF that already has an OCR layer is rejected with
// ErrOCRLayerExists unless Config.Force is set.
func ApplyOCR(input []byte, pages []*doctree.PageNode, cfg Config) ([]byte, error) {
	cfg.defaults()

	if len(input) == 0 {
		return nil, fmt.Errorf("input PDF data is empty")
	}
	if len(pages) == 0 {
		return nil, ErrNoPages
	}
	if cfg.StartPage < 1 {
		return nil, fmt.Errorf("start page must be at least 1, got %d", cfg.StartPage)
	}

	layers, err := CheckExistingOCRLayers(input, cfg.LayerName)
	if err != nil {
		return nil, fmt.Errorf("layer detection failed: %w", err)
	}
	if len(layers.Layers) > 0 {
		cfg.Logger.Info("existing layers detected in PDF", "layers", layers.Layers)
	}
	for _, warning := range layers.Warnings {
		cfg.Logger.Warn(warning)
	}

	if layers.HasOCRLayer {
		if !cfg.Force {
			return nil, fmt.Errorf("%w (layer %q)", ErrOCRLayerExists, layers.OCRLayerName)
		}
		cfg.Logger.Warn("file already has OCR; reapplying will result in duplicate OCR data",
			"layer", layers.OCRLayerName)
	}

	out, err := modifyExistingPDF(input, pages, cfg)
	if err != nil {
		return nil, fmt.Errorf("error modifying existing PDF: %w", err)
	}
	return out, nil
}
