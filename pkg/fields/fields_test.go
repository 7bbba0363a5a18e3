package fields

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gardar/cargointake/pkg/doctree"
)

func doc(docType, id string, items []doctree.KeyValue, tables ...*doctree.TableNode) *doctree.Document {
	d := &doctree.Document{DocType: docType, ID: id}
	if items != nil {
		d.Children = append(d.Children, &doctree.KeySection{Items: items})
	}
	for _, t := range tables {
		d.Children = append(d.Children, t)
	}
	return d
}

func TestCollect_GeneralAndParty(t *testing.T) {
	batches := []doctree.Batch{
		{},
		{Nodes: []*doctree.Document{
			doc("hawb", "d1", []doctree.KeyValue{
				{Label: "subDocClass", Value: "original"},
				{Label: "executedOnDate", Value: "2024-01-01"},
				{Label: "remarks", Value: "   "},
				{Label: "importer", Children: []doctree.KeyValue{
					{Label: "name", Value: strings.Repeat("n", 150)},
					{Label: "accountNumber", Value: "ACC1234567890XYZ"},
					{Label: "city", Value: "Oslo"},
					{Label: "contactPhone", Value: "+47 1234"},
					{Label: "contactFax", Value: "dropped"},
				}},
			}),
		}},
		{Nodes: []*doctree.Document{
			doc("prealert", "d2", []doctree.KeyValue{
				{Label: "executedOnDate", Value: "2024-02-02"},
			}),
		}},
	}

	got := NewCollector(CollectorConfig{}).Collect(batches)

	assert.Equal(t, []string{"executedOnDate"}, got.General.Labels())
	dates := got.General.Candidates("executedOnDate")
	require.Len(t, dates, 2)
	assert.Equal(t, Candidate{DocType: "hawb", DocID: "d1", Value: Scalar("2024-01-01")}, dates[0])
	assert.Equal(t, "prealert", dates[1].DocType)
	assert.False(t, got.General.Has("subDocClass"))
	assert.False(t, got.General.Has("remarks"))

	importers := got.Party.Candidates("importer")
	require.Len(t, importers, 1)
	p := importers[0].Value.Party
	require.NotNil(t, p)
	assert.Len(t, p.Fields["name"], 100)
	assert.Equal(t, "ACC123456789", p.Fields["accountNumber"])
	assert.Equal(t, map[string]string{"city": "Oslo"}, p.Address)
	assert.Equal(t, map[string]string{"phone": "+47 1234"}, p.Contact)
}

func TestCollect_NoKeySection(t *testing.T) {
	table := &doctree.TableNode{Name: "items", Rows: []doctree.TableRow{
		{Cells: []doctree.Cell{{Label: "pieces", Value: "2"}, {Label: "weight", Value: "10kg"}}},
	}}
	got := NewCollector(CollectorConfig{}).Collect([]doctree.Batch{
		{Nodes: []*doctree.Document{doc("invoice", "d1", nil, table)}},
	})

	require.Len(t, got.Warnings, 1)
	assert.ErrorIs(t, got.Warnings[0], doctree.ErrNoKeySection)
	require.Len(t, got.Tables, 1)
	assert.Equal(t, "items", got.Tables[0].Name)
	assert.Equal(t, []map[string]string{{"pieces": "2", "weight": "10kg"}}, got.Tables[0].Rows)
}

func TestCollector_CustomTables(t *testing.T) {
	c := NewCollector(CollectorConfig{
		Truncation:  map[string]int{"name": 3},
		AddressKeys: []string{"street"},
		SkipLabels:  []string{"IGNORED"},
	})
	p := c.Party([]doctree.KeyValue{
		{Label: "name", Value: "Ærøskøbing"},
		{Label: "street", Value: "Main 1"},
		{Label: "city", Value: "Oslo"},
	})
	assert.Equal(t, "Ærø", p.Fields["name"])
	assert.Equal(t, "Oslo", p.Fields["city"])
	assert.Equal(t, map[string]string{"street": "Main 1"}, p.Address)

	got := c.Collect([]doctree.Batch{{Nodes: []*doctree.Document{
		doc("hawb", "d1", []doctree.KeyValue{{Label: " ignored ", Value: "x"}}),
	}}})
	assert.Zero(t, got.General.Len())
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "ab", TruncateRunes("abc", 2))
	assert.Equal(t, "abc", TruncateRunes("abc", 5))
	assert.Equal(t, "", TruncateRunes("abc", 0))
	assert.Equal(t, "åø", TruncateRunes("åøæ", 2))
}

func TestValue_JSONAndString(t *testing.T) {
	p := NewParty()
	p.Fields["name"] = "ACME"
	p.Address["city"] = "Oslo"
	p.Address["block"] = "Main 1"

	b, err := json.Marshal(Compound(p))
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"ACME","address":{"city":"Oslo","block":"Main 1"}}`, string(b))
	assert.Equal(t, "{address: {block: Main 1, city: Oslo}, name: ACME}", Compound(p).String())

	b, err = json.Marshal(Scalar("x"))
	require.NoError(t, err)
	assert.Equal(t, `"x"`, string(b))

	assert.True(t, Scalar(" ").IsEmpty())
	assert.True(t, Compound(NewParty()).IsEmpty())
	assert.False(t, Compound(p).IsEmpty())
}

func TestBuilder_FinalizeResets(t *testing.T) {
	b := NewBuilder()
	b.AddGeneral("a", Candidate{DocType: "x", Value: Scalar("1")})
	first := b.Finalize()
	b.AddGeneral("b", Candidate{DocType: "y", Value: Scalar("2")})
	second := b.Finalize()

	assert.Equal(t, []string{"a"}, first.General.Labels())
	assert.Equal(t, []string{"b"}, second.General.Labels())
}
