package layout

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gardar/cargointake/pkg/doctree"
)

func word(text, pos string, style int) *doctree.WordNode {
	return &doctree.WordNode{Text: text, Pos: pos, Style: style, Confidence: 0.9}
}

func page(id string, words ...*doctree.WordNode) *doctree.PageNode {
	line := &doctree.ContainerNode{Type: "line"}
	for _, w := range words {
		line.Children = append(line.Children, w)
	}
	return &doctree.PageNode{ID: id, Children: []doctree.Node{line}}
}

func TestRenderPage(t *testing.T) {
	r := NewRenderer(RendererConfig{})
	out := r.RenderPage(page("p1", word("Total", "0,40,50,60", 0)), 1)

	assert.Equal(t, []string{"# Page 1 (p1)", "", "Total"}, out.Lines)
	assert.Empty(t, out.Warnings)
}

func TestRenderPage_Placeholder(t *testing.T) {
	r := NewRenderer(RendererConfig{})
	out := r.RenderPage(&doctree.PageNode{}, 2)

	assert.Equal(t, "# Page 2 (Page2): No content found", out.String())
	require.Len(t, out.Warnings, 1)
	assert.ErrorIs(t, out.Warnings[0], ErrNoContent)
}

func TestRenderPage_SkipsMalformedWord(t *testing.T) {
	r := NewRenderer(RendererConfig{})
	out := r.RenderPage(page("p1",
		word("broken", "1,2,3", 0),
		word("Hello", "0,0,50,20", 0),
	), 1)

	assert.Equal(t, []string{"# Page 1 (p1)", "", "Hello"}, out.Lines)
	require.Len(t, out.Warnings, 1)
	assert.ErrorIs(t, out.Warnings[0], ErrMalformedPosition)

	var gErr *GlyphError
	require.ErrorAs(t, out.Warnings[0], &gErr)
	assert.Equal(t, 0, gErr.Index)
	assert.Equal(t, "p1", gErr.PageID)
}

func TestRenderPage_Markdown(t *testing.T) {
	p := page("p1",
		word("Invoice", "0,0,70,20", 1),
		word("Due", "0,40,30,60", 2),
		word("now", "40,40,70,60", 0),
	)
	p.Styles = []doctree.StyleDef{
		{ID: 1, Value: "font-weight: bold; font-size: 14pt"},
		{ID: 2, Value: "font-style: italic"},
	}

	r := NewRenderer(RendererConfig{Markdown: true})
	out := r.RenderPage(p, 1)
	assert.Equal(t, []string{"# Page 1 (p1)", "", "# Invoice", "", "*Due* now"}, out.Lines)
}

func TestMarkdownRows_SmallBoldIsInline(t *testing.T) {
	bold := Style{"font-weight": "bold", "font-size": "10pt"}
	g := glyph(t, "Note", 0, 0, 40, 20)
	g.Style = bold
	h := glyph(t, "this", 50, 0, 90, 20)
	h.Style = bold

	rows := NewAssembler(DefaultJoinRules()).MarkdownRows([]Glyph{g, h}, Config{PxPerChar: 10, PxPerRow: 20})
	assert.Equal(t, []string{"**Note** **this**"}, rows)
}

func TestRenderDocument(t *testing.T) {
	r := NewRenderer(RendererConfig{})
	text, warnings := r.RenderDocument([]*doctree.PageNode{
		page("a", word("Hello", "0,0,50,20", 0)),
		page("b", word("World", "0,0,50,20", 0)),
	})

	want := strings.Join([]string{
		"# Page 1 (a)", "", "Hello",
		"", strings.Repeat("=", 80), "",
		"# Page 2 (b)", "", "World",
	}, "\n")
	assert.Equal(t, want, text)
	assert.Empty(t, warnings)
}

func TestRenderDocument_NoPages(t *testing.T) {
	text, warnings := NewRenderer(RendererConfig{}).RenderDocument(nil)
	assert.Equal(t, NoPagesText, text)
	assert.Empty(t, warnings)
}

func TestRenderBatch_SkipFiles(t *testing.T) {
	batch := doctree.Batch{Nodes: []*doctree.Document{
		{FilePath: "mail/email_file_2.pdf", Children: []doctree.Node{page("m", word("Hi", "0,0,20,20", 0))}},
		{FilePath: "awb.pdf", Children: []doctree.Node{page("p", word("AWB", "0,0,30,20", 0))}},
	}}

	text, _ := NewRenderer(RendererConfig{SkipFiles: DefaultSkipFiles}).RenderBatch(batch)
	assert.Equal(t, "# Page 1 (p)\n\nAWB", text)

	all := NewRenderer(RendererConfig{SkipFiles: regexp.MustCompile(`^$`)}).Pages(batch)
	assert.Len(t, all, 2)
}
