// Package intake runs batches through the full document intake flow: page
// text rendering, field flattening, the optional fallback extractor for keys
// no document resolved, and audit events for every decision.
package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/gardar/cargointake/pkg/auditlog"
	"github.com/gardar/cargointake/pkg/doctree"
	"github.com/gardar/cargointake/pkg/fields"
	"github.com/gardar/cargointake/pkg/flatten"
	"github.com/gardar/cargointake/pkg/layout"
	"github.com/gardar/cargointake/pkg/precedence"
)

const (
	// FallbackDocType is the message doc type of extractor-provided values.
	FallbackDocType = "llm"

	// FallbackText is the message of extractor-provided values.
	FallbackText = "Extracted by fallback extractor since no document provided a value."
)

// ErrPanic wraps a recovered panic while processing a batch.
var ErrPanic = errors.New("panic while processing batch")

// Config configures a Pipeline.
type Config struct {
	Workers   int // Concurrent page renders per job, and concurrent jobs
	Renderer  layout.RendererConfig
	Flatten   flatten.Config
	Sink      auditlog.Sink // nil discards events
	Extractor Extractor     // nil disables the fallback
	Logger    *slog.Logger
}

func (c *Config) defaults() {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.Sink == nil {
		c.Sink = auditlog.Discard
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Renderer.Logger == nil {
		c.Renderer.Logger = c.Logger
	}
	if c.Flatten.Logger == nil {
		c.Flatten.Logger = c.Logger
	}
}

// Job is one unit of work: the batches of a shipment and the keys to resolve.
type Job struct {
	ID      string // Generated when empty
	Batches []doctree.Batch
	Keys    []flatten.ProcessKey
}

// BatchResult is the outcome of one job.
type BatchResult struct {
	ID       string
	Text     string // Rendered pages of every batch
	Result   *flatten.Result
	Warnings []error // Degraded input that did not stop the job
	Err      error
}

// Pipeline processes jobs.
type Pipeline struct {
	cfg       Config
	renderer  *layout.Renderer
	flattener *flatten.Flattener
	sink      auditlog.Sink
	logger    *slog.Logger
}

// New creates a pipeline.
func New(cfg Config) *Pipeline {
	cfg.defaults()
	return &Pipeline{
		cfg:       cfg,
		renderer:  layout.NewRenderer(cfg.Renderer),
		flattener: flatten.New(cfg.Flatten),
		sink:      cfg.Sink,
		logger:    cfg.Logger,
	}
}

// Render renders the pages of all batches as one document, numbering pages
// across batches. Pages are rendered concurrently.
func (p *Pipeline) Render(ctx context.Context, batches []doctree.Batch) (string, []error, error) {
	var pages []*doctree.PageNode
	for _, b := range batches {
		pages = append(pages, p.renderer.Pages(b)...)
	}

	rendered := make([]layout.PageText, len(pages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)
	for i, page := range pages {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return safely(func() error {
				rendered[i] = p.renderer.RenderPage(page, i+1)
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		return "", nil, fmt.Errorf("failed to render pages: %w", err)
	}

	text, warnings := layout.JoinPages(rendered)
	return text, warnings, nil
}

// Process runs one job. Failures are reported in BatchResult.Err; a panic is
// recovered and wrapped with ErrPanic.
func (p *Pipeline) Process(ctx context.Context, job Job) *BatchResult {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	res := &BatchResult{ID: job.ID}
	logger := p.logger.With("batch_id", job.ID)

	err := safely(func() error {
		return p.process(ctx, job, res, logger)
	})
	if err != nil {
		res.Err = err
		logger.Error("batch failed", "error", err)
		p.sink.Send(ctx, auditlog.Event{BatchID: job.ID, Stage: auditlog.StageError, Message: err.Error()})
	}
	return res
}

func (p *Pipeline) process(ctx context.Context, job Job, res *BatchResult, logger *slog.Logger) error {
	text, warnings, err := p.Render(ctx, job.Batches)
	if err != nil {
		return err
	}
	res.Text = text
	res.Warnings = warnings
	for _, w := range warnings {
		p.sink.Send(ctx, auditlog.Event{BatchID: job.ID, Stage: auditlog.StageRender, Message: w.Error()})
	}
	logger.Debug("rendered batch text", "bytes", len(text), "warnings", len(warnings))

	result, err := p.flattener.Flatten(job.Batches, job.Keys)
	if err != nil {
		return fmt.Errorf("failed to flatten batch: %w", err)
	}
	res.Result = result
	labels := make([]string, 0, len(result.Metadata.Messages))
	for label := range result.Metadata.Messages {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		text := result.Metadata.Messages[label]
		src := result.Metadata.Sources[label]
		p.sink.Send(ctx, auditlog.Event{
			BatchID:      job.ID,
			Stage:        auditlog.StageFlatten,
			Label:        label,
			DocType:      src.DocType,
			SourceDocIDs: src.SourceDocIDs,
			Message:      text,
		})
	}

	return p.fallback(ctx, job, res, logger)
}

// fallback asks the extractor for fallback-enabled keys that are still
// missing. Extractor failures are logged and leave the result unchanged.
func (p *Pipeline) fallback(ctx context.Context, job Job, res *BatchResult, logger *slog.Logger) error {
	if p.cfg.Extractor == nil {
		return nil
	}
	missing := res.Result.Missing(job.Keys)
	if len(missing) == 0 {
		return nil
	}

	values, err := p.cfg.Extractor.Extract(ctx, PromptContext{BatchID: job.ID, Text: res.Text, Keys: missing})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		logger.Warn("fallback extractor failed", "keys", missing, "error", err)
		p.sink.Send(ctx, auditlog.Event{BatchID: job.ID, Stage: auditlog.StageError, Message: err.Error()})
		return nil
	}

	for _, key := range missing {
		v, ok := values[key]
		if !ok || v == nil || strings.TrimSpace(*v) == "" {
			continue
		}
		val := fields.Scalar(*v)
		res.Result.Set(key, &val, precedence.Message{Label: key, Text: FallbackText, DocType: FallbackDocType})
		p.sink.Send(ctx, auditlog.Event{
			BatchID: job.ID,
			Stage:   auditlog.StageFallback,
			Label:   key,
			DocType: FallbackDocType,
			Message: FallbackText,
		})
		logger.Debug("fallback value applied", "key", key)
	}
	return nil
}

// ProcessAll runs jobs concurrently. One failing job does not affect the
// others; results are returned in job order.
func (p *Pipeline) ProcessAll(ctx context.Context, jobs []Job) []*BatchResult {
	results := make([]*BatchResult, len(jobs))
	var g errgroup.Group
	g.SetLimit(p.cfg.Workers)
	for i, job := range jobs {
		g.Go(func() error {
			results[i] = p.Process(ctx, job)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// safely runs fn and converts a panic into an ErrPanic error.
func safely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v\n%s", ErrPanic, r, debug.Stack())
		}
	}()
	return fn()
}
