package flatten

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/gardar/cargointake/pkg/doctree"
)

const batchesJSON = `[
  {},
  {"nodes": [
    {"type": "document", "id": "d1", "DocType": "prealert", "children": [
      {"type": "key", "children": [
        {"label": "executedOnDate", "v": "", "children": []},
        {"label": "subDocClass", "v": "copy", "children": []},
        {"label": "importer", "v": "", "children": [
          {"label": "name", "v": "Prealert Importer"},
          {"label": "block", "v": "AB123456 CD789012 EF345678"}
        ]}
      ]},
      {"type": "table", "table_name": "items", "children": [
        {"type": "row", "children": [
          {"label": "pieces", "v": "2"},
          {"label": "weight", "v": "10"}
        ]}
      ]}
    ]},
    {"type": "document", "id": "d2", "DocType": "hawb", "children": [
      {"type": "key", "children": [
        {"label": "executedOnDate", "v": "2024-01-01"},
        {"label": "importer", "children": [
          {"label": "name", "v": "HAWB Importer"},
          {"label": "contactEmail", "v": "ops@example.com"}
        ]}
      ]}
    ]}
  ]}
]`

func decode(t *testing.T, s string) []doctree.Batch {
	t.Helper()
	batches, err := doctree.DecodeBatches([]byte(s))
	require.NoError(t, err)
	return batches
}

func TestFlatten_Empty(t *testing.T) {
	res, err := New(Config{}).Flatten(nil, nil)
	require.NoError(t, err)

	b, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":{}, "main_table":[], "metadata":{"messages":{}}}`, string(b))
}

func TestFlatten_Batches(t *testing.T) {
	keys := []ProcessKey{
		{KeyValue: "executedOnDate", Precedence: PrecedenceList{"hawb", "prealert"}},
		{KeyValue: "importer", Precedence: PrecedenceList{"prealert", "hawb"}},
	}
	res, err := New(Config{}).Flatten(decode(t, batchesJSON), keys)
	require.NoError(t, err)

	assert.Equal(t, "2024-01-01", res.Data["executedOnDate"].Text)
	_, hasSubDoc := res.Data["subDocClass"]
	assert.False(t, hasSubDoc)

	importer := res.Data["importer"].Party
	require.NotNil(t, importer)
	assert.Equal(t, "HAWB Importer", importer.Fields["name"])
	assert.Equal(t, "ops@example.com", importer.Contact["email"])
	assert.Contains(t, res.Metadata.Messages["importer"], "Important Note: Precedence is breaking")
	assert.Equal(t, Source{DocType: "hawb", SourceDocIDs: []string{"d2"}}, res.Metadata.Sources["importer"])

	require.Len(t, res.MainTable, 1)
	assert.Equal(t, []map[string]string{{"pieces": "2", "weight": "10"}}, res.MainTable[0].Rows)

	b, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"importer":{"contact":{"email":"ops@example.com"},"name":"HAWB Importer"}`)
}

func TestFlatten_Truncation(t *testing.T) {
	long := strings.Repeat("x", 150)
	batches := []doctree.Batch{{Nodes: []*doctree.Document{{
		DocType: "hawb", ID: "d1",
		Children: []doctree.Node{&doctree.KeySection{Items: []doctree.KeyValue{
			{Label: "consignee", Children: []doctree.KeyValue{{Label: "name", Value: long}}},
		}}},
	}}}}

	res, err := New(Config{}).Flatten(batches, nil)
	require.NoError(t, err)
	assert.Equal(t, long[:100], res.Data["consignee"].Party.Fields["name"])
	assert.Contains(t, res.Metadata.Messages["consignee"], "as per last occurance")
}

func TestFlatten_LabelCollision(t *testing.T) {
	batches := []doctree.Batch{{Nodes: []*doctree.Document{{
		DocType: "hawb", ID: "d1",
		Children: []doctree.Node{&doctree.KeySection{Items: []doctree.KeyValue{
			{Label: "shipper", Value: "plain"},
			{Label: "shipper", Children: []doctree.KeyValue{{Label: "name", Value: "ACME"}}},
		}}},
	}}}}

	res, err := New(Config{}).Flatten(batches, nil)
	require.NoError(t, err)
	assert.True(t, res.Data["shipper"].IsCompound())

	_, err = New(Config{StrictNamespaces: true}).Flatten(batches, nil)
	assert.ErrorIs(t, err, ErrLabelCollision)
}

func TestFlatten_NoValueMessage(t *testing.T) {
	batches := []doctree.Batch{{Nodes: []*doctree.Document{{
		DocType: "hawb", ID: "d1",
		Children: []doctree.Node{&doctree.KeySection{Items: []doctree.KeyValue{
			{Label: "awbNumber", Value: "123"},
		}}},
	}}}}
	keys := []ProcessKey{{KeyValue: "awbNumber", Precedence: PrecedenceList{"mawb"}, Fallback: true}}

	res, err := New(Config{}).Flatten(batches, keys)
	require.NoError(t, err)
	assert.Empty(t, res.Data)
	assert.Equal(t, "No valid value found according to precedence", res.Metadata.Messages["awbNumber"])
	assert.Equal(t, Source{DocType: "None", SourceDocIDs: []string{}}, res.Metadata.Sources["awbNumber"])
	assert.Equal(t, []string{"awbNumber"}, res.Missing(keys))
}

func TestPrecedenceList_Decode(t *testing.T) {
	keys, err := ParseProcessKeys([]byte(`[
		{"keyValue": "a", "precedence": ["hawb", "mawb"]},
		{"keyValue": "b", "precedence": {}},
		{"keyValue": "c", "precedence": null},
		{"keyValue": "d"}
	]`))
	require.NoError(t, err)
	m := PrecedenceFromKeys(keys)
	assert.Equal(t, []string{"hawb", "mawb"}, m["a"])
	assert.Empty(t, m["b"])
	assert.Empty(t, m["c"])
	assert.Empty(t, m["d"])

	_, err = ParseProcessKeys([]byte(`[{"keyValue": "a", "precedence": {"x": 1}}]`))
	assert.ErrorIs(t, err, ErrInvalidPrecedence)

	var fromYAML []ProcessKey
	require.NoError(t, yaml.Unmarshal([]byte(`
- keyValue: a
  precedence: [hawb]
- keyValue: b
  precedence: {}
  fallback: true
`), &fromYAML))
	assert.Equal(t, []ProcessKey{
		{KeyValue: "a", Precedence: PrecedenceList{"hawb"}},
		{KeyValue: "b", Fallback: true},
	}, fromYAML)

	var bad []ProcessKey
	assert.ErrorIs(t, yaml.Unmarshal([]byte("- keyValue: a\n  precedence: hawb\n"), &bad), ErrInvalidPrecedence)
}
