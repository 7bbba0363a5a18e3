// Package gdocai turns Google Document AI responses into document trees.
//
// A processed document yields one doctree.Document: every page becomes a
// PageNode whose word nodes are the Document AI tokens (grouped by line),
// custom extractor entities and form fields become the key section, and
// detected tables become table nodes. The result feeds the same layout
// renderer and field collector as documents from the extraction service.
//
// Usage requirements:
//
// - Google Cloud project with Document AI API enabled
// - A Document AI processor (OCR, Form Parser or a custom extractor)
// - Authentication via GOOGLE_APPLICATION_CREDENTIALS or default credentials
package gdocai

import (
	"context"
	"errors"
	"fmt"

	"github.com/gardar/cargointake/pkg/doctree"
)

// ErrIncompleteConfig is returned when a required Config field is empty.
var ErrIncompleteConfig = errors.New("incomplete Document AI config")

// Config identifies a Document AI processor.
type Config struct {
	ProjectID   string
	Location    string
	ProcessorID string
}

// Validate reports missing fields.
func (c *Config) Validate() error {
	switch {
	case c == nil:
		return fmt.Errorf("%w: nil", ErrIncompleteConfig)
	case c.ProjectID == "":
		return fmt.Errorf("%w: project_id", ErrIncompleteConfig)
	case c.Location == "":
		return fmt.Errorf("%w: location", ErrIncompleteConfig)
	case c.ProcessorID == "":
		return fmt.Errorf("%w: processor_id", ErrIncompleteConfig)
	}
	return nil
}

// ProcessorName is the resource name of the configured processor.
func (c *Config) ProcessorName() string {
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s", c.ProjectID, c.Location, c.ProcessorID)
}

// Process sends content to Document AI and converts the response. docType
// and id label the resulting document for field collection.
func Process(ctx context.Context, content []byte, cfg *Config, docType, id string) (*doctree.Document, error) {
	raw, err := ProcessDocument(ctx, content, cfg)
	if err != nil {
		return nil, err
	}
	return DocumentFromProto(raw, docType, id), nil
}

// ProcessPages sends each page file separately and merges the results into a
// single document, pages in argument order.
func ProcessPages(ctx context.Context, pages [][]byte, cfg *Config, docType, id string) (*doctree.Document, error) {
	doc := &doctree.Document{DocType: docType, ID: id}
	var items []doctree.KeyValue
	for i, content := range pages {
		raw, err := ProcessDocument(ctx, content, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to process page %d: %w", i+1, err)
		}
		if len(raw.Pages) != 1 {
			return nil, fmt.Errorf("expected 1 page in result for page %d, got %d", i+1, len(raw.Pages))
		}
		part := DocumentFromProto(raw, docType, id)
		for _, child := range part.Children {
			switch n := child.(type) {
			case *doctree.PageNode:
				n.ID = fmt.Sprintf("page_%d", i+1)
				doc.Children = append(doc.Children, n)
			case *doctree.KeySection:
				items = append(items, n.Items...)
			default:
				doc.Children = append(doc.Children, n)
			}
		}
	}
	if len(items) > 0 {
		doc.Children = append(doc.Children, &doctree.KeySection{Items: items})
	}
	return doc, nil
}
