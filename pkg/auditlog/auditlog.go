// Package auditlog publishes pipeline decisions (rendered pages, resolved
// fields, fallbacks) to fire-and-forget sinks. Sinks never return errors to
// the caller: a failing sink logs and drops the event.
package auditlog

import (
	"context"
	"log/slog"
	"time"
)

// Stages reported by the pipeline.
const (
	StageRender   = "render"
	StageFlatten  = "flatten"
	StageFallback = "fallback"
	StageError    = "error"
)

// Event is one audit record.
type Event struct {
	ID           string    `json:"id"`
	BatchID      string    `json:"batch_id"`
	Stage        string    `json:"stage"`
	Label        string    `json:"label,omitempty"`
	DocType      string    `json:"docType,omitempty"`
	SourceDocIDs []string  `json:"source_documentIds,omitempty"`
	Message      string    `json:"message"`
	Time         time.Time `json:"time"`
}

// Sink receives audit events.
type Sink interface {
	Send(ctx context.Context, e Event)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(ctx context.Context, e Event)

func (f SinkFunc) Send(ctx context.Context, e Event) { f(ctx, e) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(context.Context, Event) {})

// Multi fans an event out to several sinks.
type Multi []Sink

func (m Multi) Send(ctx context.Context, e Event) {
	for _, s := range m {
		s.Send(ctx, e)
	}
}

// SlogSink writes events to a structured logger at Info level.
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink creates a SlogSink; a nil logger uses slog.Default().
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger}
}

func (s *SlogSink) Send(ctx context.Context, e Event) {
	s.logger.InfoContext(ctx, "audit",
		"batch_id", e.BatchID,
		"stage", e.Stage,
		"label", e.Label,
		"doc_type", e.DocType,
		"source_document_ids", e.SourceDocIDs,
		"message", e.Message,
	)
}
