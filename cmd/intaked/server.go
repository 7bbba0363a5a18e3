package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/gardar/cargointake/pkg/auditlog"
	"github.com/gardar/cargointake/pkg/config"
	"github.com/gardar/cargointake/pkg/doctree"
	"github.com/gardar/cargointake/pkg/flatten"
	"github.com/gardar/cargointake/pkg/intake"
	"github.com/gardar/cargointake/pkg/layout"
)

const maxBodyBytes = 64 << 20

// server holds the handlers of the intake service.
type server struct {
	cfg       *config.Config
	text      *layout.Renderer
	markdown  *layout.Renderer
	flattener *flatten.Flattener
	pipeline  *intake.Pipeline
	audit     *auditlog.SQLiteSink // nil when no audit database is configured
	logger    *slog.Logger
}

func newServer(cfg *config.Config, audit *auditlog.SQLiteSink, logger *slog.Logger) *server {
	textCfg := cfg.RendererConfig(logger)
	textCfg.Markdown = false
	mdCfg := cfg.RendererConfig(logger)
	mdCfg.Markdown = true

	sinks := auditlog.Multi{auditlog.NewSlogSink(logger)}
	if audit != nil {
		sinks = append(sinks, audit)
	}

	return &server{
		cfg:       cfg,
		text:      layout.NewRenderer(textCfg),
		markdown:  layout.NewRenderer(mdCfg),
		flattener: flatten.New(cfg.FlattenConfig(logger)),
		pipeline: intake.New(intake.Config{
			Workers:  cfg.Render.Workers,
			Renderer: cfg.RendererConfig(logger),
			Flatten:  cfg.FlattenConfig(logger),
			Sink:     sinks,
			Logger:   logger,
		}),
		audit:  audit,
		logger: logger,
	}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/render", s.handleRender)
	r.Post("/flatten", s.handleFlatten)
	r.Post("/process", s.handleProcess)
	r.Get("/audit/{batchID}", s.handleAudit)
	return r
}

// batchRequest is the body of /flatten and /process. Process keys default to
// the configured ones.
type batchRequest struct {
	Batches     json.RawMessage      `json:"batches"`
	ProcessKeys []flatten.ProcessKey `json:"process_keys"`
}

func (s *server) decodeBatchRequest(r *http.Request) ([]doctree.Batch, []flatten.ProcessKey, error) {
	var req batchRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		return nil, nil, fmt.Errorf("invalid request body: %w", err)
	}
	var batches []doctree.Batch
	if len(req.Batches) > 0 {
		var err error
		batches, err = doctree.DecodeBatches(req.Batches)
		if err != nil {
			return nil, nil, err
		}
	}
	keys := req.ProcessKeys
	if keys == nil {
		keys = s.cfg.ProcessKeys
	}
	return batches, keys, nil
}

type renderResponse struct {
	Text     string   `json:"text"`
	Warnings []string `json:"warnings"`
}

// handleRender renders the posted batches. ?markdown=true selects markdown.
func (s *server) handleRender(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	batches, err := doctree.DecodeBatches(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	renderer := s.text
	if md, _ := strconv.ParseBool(r.URL.Query().Get("markdown")); md {
		renderer = s.markdown
	}
	var pages []*doctree.PageNode
	for _, b := range batches {
		pages = append(pages, renderer.Pages(b)...)
	}
	text, warnings := renderer.RenderDocument(pages)
	writeJSON(w, http.StatusOK, renderResponse{Text: text, Warnings: errorStrings(warnings)})
}

func (s *server) handleFlatten(w http.ResponseWriter, r *http.Request) {
	batches, keys, err := s.decodeBatchRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	res, err := s.flattener.Flatten(batches, keys)
	if errors.Is(err, flatten.ErrLabelCollision) {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	} else if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type processResponse struct {
	ID       string          `json:"id"`
	Text     string          `json:"text"`
	Result   *flatten.Result `json:"result"`
	Warnings []string        `json:"warnings"`
}

// handleProcess runs the full pipeline with audit events.
func (s *server) handleProcess(w http.ResponseWriter, r *http.Request) {
	batches, keys, err := s.decodeBatchRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	res := s.pipeline.Process(r.Context(), intake.Job{Batches: batches, Keys: keys})
	if res.Err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"id": res.ID, "error": res.Err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, processResponse{
		ID:       res.ID,
		Text:     res.Text,
		Result:   res.Result,
		Warnings: errorStrings(res.Warnings),
	})
}

func (s *server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeError(w, http.StatusNotFound, errors.New("audit store not configured"))
		return
	}
	s.audit.Flush()
	events, err := s.audit.Events(r.Context(), chi.URLParam(r, "batchID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if events == nil {
		events = []auditlog.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

func errorStrings(errs []error) []string {
	out := make([]string, 0, len(errs))
	for _, err := range errs {
		out = append(out, err.Error())
	}
	return out
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
