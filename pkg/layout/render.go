package layout

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/gardar/cargointake/pkg/doctree"
)

const pageRuleWidth = 80

// NoPagesText is the whole rendering of a document without pages.
const NoPagesText = "# No pages found"

// DefaultSkipFiles matches the generated e-mail body PDFs that are attached to
// batches but carry no document content.
var DefaultSkipFiles = regexp.MustCompile(`email_file(?:_\d+)?\.pdf`)

// RendererConfig configures a Renderer.
type RendererConfig struct {
	Join              JoinRules
	PxPerCharFallback float64
	PxPerRowFallback  float64
	Markdown          bool           // Emit MarkdownRows instead of TextRows
	SkipFiles         *regexp.Regexp // Documents whose file path matches are not rendered; nil uses DefaultSkipFiles
	Logger            *slog.Logger
}

func (c *RendererConfig) defaults() {
	if c.Join == (JoinRules{}) {
		c.Join = DefaultJoinRules()
	}
	if c.PxPerCharFallback <= 0 {
		c.PxPerCharFallback = DefaultPxPerChar
	}
	if c.PxPerRowFallback <= 0 {
		c.PxPerRowFallback = DefaultPxPerRow
	}
	if c.SkipFiles == nil {
		c.SkipFiles = DefaultSkipFiles
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Renderer turns page trees into text blocks.
type Renderer struct {
	cfg       RendererConfig
	assembler *Assembler
	logger    *slog.Logger
}

// NewRenderer creates a renderer. Zero fields of cfg take their defaults.
func NewRenderer(cfg RendererConfig) *Renderer {
	cfg.defaults()
	return &Renderer{
		cfg:       cfg,
		assembler: NewAssembler(cfg.Join),
		logger:    cfg.Logger,
	}
}

// PageText is the rendering of one page.
type PageText struct {
	Number   int
	ID       string
	Lines    []string
	Warnings []error // Skipped glyphs, or ErrNoContent for an empty page
}

// String joins the page lines.
func (p PageText) String() string { return strings.Join(p.Lines, "\n") }

// RenderPage renders one page. number is the 1-based page number used in the
// header. A page without usable words renders a single placeholder line.
func (r *Renderer) RenderPage(page *doctree.PageNode, number int) PageText {
	id := page.ID
	if id == "" {
		id = fmt.Sprintf("Page%d", number)
	}
	out := PageText{Number: number, ID: id}

	glyphs, warnings := LoadGlyphs(page)
	for _, w := range warnings {
		r.logger.Warn("skipped word", "page", id, "error", w)
	}
	out.Warnings = warnings

	var rows []string
	if len(glyphs) > 0 {
		cfg := Estimate(glyphs, Config{PxPerChar: r.cfg.PxPerCharFallback, PxPerRow: r.cfg.PxPerRowFallback})
		r.logger.Debug("estimated page scale", "page", id,
			"px_per_char", cfg.PxPerChar, "px_per_row", cfg.PxPerRow)
		if r.cfg.Markdown {
			rows = r.assembler.MarkdownRows(glyphs, cfg)
		} else {
			rows = r.assembler.TextRows(glyphs, cfg)
		}
	}
	for len(rows) > 0 && strings.TrimSpace(rows[0]) == "" {
		rows = rows[1:]
	}

	if len(rows) == 0 {
		r.logger.Warn("page has no content", "page", id, "number", number)
		out.Warnings = append(out.Warnings, fmt.Errorf("page %q: %w", id, ErrNoContent))
		out.Lines = []string{fmt.Sprintf("# Page %d (%s): %s", number, id, "No content found")}
		return out
	}

	out.Lines = make([]string, 0, len(rows)+2)
	out.Lines = append(out.Lines, fmt.Sprintf("# Page %d (%s)", number, id), "")
	out.Lines = append(out.Lines, rows...)
	return out
}

// Pages returns the renderable pages of a batch in source order, leaving out
// documents matched by SkipFiles.
func (r *Renderer) Pages(b doctree.Batch) []*doctree.PageNode {
	var pages []*doctree.PageNode
	for _, doc := range b.Nodes {
		if doc.FilePath != "" && r.cfg.SkipFiles.MatchString(doc.FilePath) {
			r.logger.Debug("skipping document", "file_path", doc.FilePath)
			continue
		}
		pages = append(pages, doc.Pages()...)
	}
	return pages
}

// RenderDocument renders pages in order and joins them with page rules.
func (r *Renderer) RenderDocument(pages []*doctree.PageNode) (string, []error) {
	rendered := make([]PageText, len(pages))
	for i, p := range pages {
		rendered[i] = r.RenderPage(p, i+1)
	}
	return JoinPages(rendered)
}

// RenderBatch renders every page of a batch as one document.
func (r *Renderer) RenderBatch(b doctree.Batch) (string, []error) {
	return r.RenderDocument(r.Pages(b))
}

// JoinPages concatenates rendered pages, separated by a blank line, a rule of
// 80 '=' and another blank line. Warnings of all pages are returned in order.
func JoinPages(pages []PageText) (string, []error) {
	if len(pages) == 0 {
		return NoPagesText, nil
	}
	var lines []string
	var warnings []error
	rule := strings.Repeat("=", pageRuleWidth)
	for i, p := range pages {
		lines = append(lines, p.Lines...)
		warnings = append(warnings, p.Warnings...)
		if i < len(pages)-1 {
			lines = append(lines, "", rule, "")
		}
	}
	return strings.Join(lines, "\n"), warnings
}
