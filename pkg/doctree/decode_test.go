package doctree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleBatch = `{
  "nodes": [
    {
      "DocType": "hawb",
      "id": "doc-1",
      "children": [
        {"type": "key", "children": [
          {"label": "executedOnDate", "v": "2024-01-01", "children": []},
          {"label": "importer", "v": "", "children": [
            {"label": "name", "v": "ACME"},
            {"label": "city", "v": "Oslo"}
          ]}
        ]},
        {"type": "table", "table_name": "items", "children": [
          {"type": "row", "children": [{"label": "qty", "v": 3}, {"label": "desc", "v": "Boxes"}]}
        ]},
        {"type": "page", "id": "p1", "styles": [{"id": "1", "v": "font-weight: bold"}], "children": [
          {"type": "line", "children": [
            {"type": "word", "v": "Hello", "pos": "10,20,60,32", "s": "1", "cn": "0.98"}
          ]}
        ]}
      ]
    }
  ]
}`

func TestDecodeBatch_Sections(t *testing.T) {
	b, err := DecodeBatch([]byte(sampleBatch))
	require.NoError(t, err)
	require.Len(t, b.Nodes, 1)

	doc := b.Nodes[0]
	assert.Equal(t, "hawb", doc.DocType)
	assert.Equal(t, "doc-1", doc.ID)

	ks, err := doc.KeySection()
	require.NoError(t, err)
	require.Len(t, ks.Items, 2)
	assert.False(t, ks.Items[0].Compound())
	assert.Equal(t, "2024-01-01", ks.Items[0].Value)
	assert.True(t, ks.Items[1].Compound())
	assert.Equal(t, "Oslo", ks.Items[1].Children[1].Value)

	tables := doc.Tables()
	require.Len(t, tables, 1)
	assert.Equal(t, "items", tables[0].Name)
	assert.Equal(t, []Cell{{Label: "qty", Value: "3"}, {Label: "desc", Value: "Boxes"}}, tables[0].Rows[0].Cells)

	pages := b.Pages()
	require.Len(t, pages, 1)
	assert.Equal(t, []StyleDef{{ID: 1, Value: "font-weight: bold"}}, pages[0].Styles)

	words := Words(pages[0])
	require.Len(t, words, 1)
	assert.Equal(t, &WordNode{Text: "Hello", Pos: "10,20,60,32", Style: 1, Confidence: 0.98}, words[0])
}

func TestDecodeBatches_ArrayAndEmpty(t *testing.T) {
	batches, err := DecodeBatches([]byte(`[{}, ` + sampleBatch + `]`))
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.True(t, batches[0].Empty())
	assert.False(t, batches[1].Empty())
}

func TestDecodeBatches_PagesFormat(t *testing.T) {
	batches, err := DecodeBatches([]byte(`{"pages": [{"type": "page", "id": "a"}, {"type": "other"}, {"type": "page", "id": "b"}]}`))
	require.NoError(t, err)
	require.Len(t, batches, 1)

	pages := batches[0].Pages()
	require.Len(t, pages, 2)
	assert.Equal(t, "a", pages[0].ID)
	assert.Equal(t, "b", pages[1].ID)
}

func TestDecodeBatch_Malformed(t *testing.T) {
	_, err := DecodeBatch([]byte(`{"nodes": [{"children": [{"type": "word", "v": {"x": 1}}]}]}`))
	assert.ErrorIs(t, err, ErrMalformedNode)

	_, err = DecodeBatches([]byte("   "))
	assert.ErrorIs(t, err, ErrMalformedNode)
}

func TestDecodeBatch_BadWordNumbers(t *testing.T) {
	b, err := DecodeBatch([]byte(`{"nodes": [{"DocType": "hawb", "children": [
	  {"type": "key", "children": [{"label": "executedOnDate", "v": "2024-01-01"}]},
	  {"type": "page", "id": "p1", "width": "wide", "children": [
	    {"type": "word", "v": "Hello", "pos": "0,0,50,10", "s": "bold", "cn": "n/a"},
	    {"type": "word", "v": "World", "pos": "60,0,110,10", "s": 2, "cn": 0.5}
	  ]}
	]}]}`))
	require.NoError(t, err)
	require.Len(t, b.Nodes, 1)

	ks, err := b.Nodes[0].KeySection()
	require.NoError(t, err)
	require.Len(t, ks.Items, 1)
	assert.Equal(t, "2024-01-01", ks.Items[0].Value)

	pages := b.Pages()
	require.Len(t, pages, 1)
	assert.Zero(t, pages[0].Width)

	words := Words(pages[0])
	require.Len(t, words, 2)
	assert.Equal(t, "Hello", words[0].Text)
	assert.Zero(t, words[0].Style)
	assert.Zero(t, words[0].Confidence)
	require.Error(t, words[0].Err)
	assert.ErrorIs(t, words[0].Err, ErrMalformedNode)
	assert.Contains(t, words[0].Err.Error(), `"n/a"`)
	assert.Contains(t, words[0].Err.Error(), `"bold"`)
	assert.NoError(t, words[1].Err)
	assert.Equal(t, 2, words[1].Style)
}

func TestDocument_NoKeySection(t *testing.T) {
	doc := &Document{Children: []Node{&TableNode{}}}
	_, err := doc.KeySection()
	assert.ErrorIs(t, err, ErrNoKeySection)
}

func TestWords_SkipsSections(t *testing.T) {
	page := &PageNode{Children: []Node{
		&ContainerNode{Children: []Node{&WordNode{Text: "a"}, &ContainerNode{Children: []Node{&WordNode{Text: "b"}}}}},
		&KeySection{},
		&WordNode{Text: "c"},
	}}
	var got []string
	for _, w := range Words(page) {
		got = append(got, w.Text)
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)
}
