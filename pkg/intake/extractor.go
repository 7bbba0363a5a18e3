package intake

import (
	"context"
)

// PromptContext is handed to the fallback extractor.
type PromptContext struct {
	BatchID string
	Text    string   // Rendered page text of the batch
	Keys    []string // Field labels still without a value
}

// Extractor asks an external model for field values the documents did not
// provide. A nil entry means the extractor found nothing for that key.
type Extractor interface {
	Extract(ctx context.Context, pc PromptContext) (map[string]*string, error)
}

// ExtractorFunc adapts a function to an Extractor.
type ExtractorFunc func(ctx context.Context, pc PromptContext) (map[string]*string, error)

func (f ExtractorFunc) Extract(ctx context.Context, pc PromptContext) (map[string]*string, error) {
	return f(ctx, pc)
}
