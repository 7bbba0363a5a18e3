// Package layout reconstructs line-based text from positioned OCR words.
//
// OCR engines return words as unordered bounding boxes. This package turns a
// page of such words into fixed-width text rows that approximate the visual
// layout of the page: words on the same visual line share a row, columns stay
// roughly aligned and vertical gaps become blank lines.
//
// The reconstruction works in three steps:
//
// - Estimate: derive the pixels-per-character and pixels-per-row scales of a
// page from median glyph statistics (EstimatePxPerChar, EstimatePxPerRow)
// - Assemble: bucket glyphs into row bands by vertical center and write them
// into character buffers (TextRows, MarkdownRows)
// - Render: walk page trees, add page headers and separators (RenderPage,
// RenderDocument)
//
// Malformed words (unparseable positions, inverted boxes) are skipped and
// reported as warnings; a page without usable words renders a placeholder
// line. Rendering never fails a whole document because of one bad page.
package layout

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedPosition is returned for a position string that is not
	// four comma separated numbers.
	ErrMalformedPosition = errors.New("malformed position")
	// ErrInvalidBox is returned for boxes with right < left or bottom < top.
	ErrInvalidBox = errors.New("invalid bounding box")
	// ErrNoContent is reported for pages without any usable word.
	ErrNoContent = errors.New("no content found")
)

// GlyphError locates a glyph that could not be loaded.
type GlyphError struct {
	PageID string
	Index  int // word index on the page, depth-first order
	Err    error
}

func (e *GlyphError) Error() string {
	return fmt.Sprintf("page %q word %d: %v", e.PageID, e.Index, e.Err)
}

func (e *GlyphError) Unwrap() error { return e.Err }
