package precedence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gardar/cargointake/pkg/fields"
)

func scalar(docType, id, v string) fields.Candidate {
	return fields.Candidate{DocType: docType, DocID: id, Value: fields.Scalar(v)}
}

func party(docType, id, name, block string) fields.Candidate {
	p := fields.NewParty()
	p.Fields["name"] = name
	if block != "" {
		p.Address["block"] = block
	}
	return fields.Candidate{DocType: docType, DocID: id, Value: fields.Compound(p)}
}

func TestResolve_ByPrecedence(t *testing.T) {
	r := NewResolver(ResolverConfig{})
	candidates := []fields.Candidate{
		scalar("prealert", "d1", ""),
		scalar("hawb", "d2", "2024-01-01"),
	}

	field, msg := r.Resolve("executedOnDate", candidates, []string{"hawb", "prealert"})
	require.NotNil(t, field)
	assert.Equal(t, "2024-01-01", field.Value.Text)
	assert.Equal(t, "hawb", field.SourceDocType)
	assert.Equal(t, []string{"d2"}, field.SourceDocIDs)
	assert.Contains(t, field.Reasoning, "according to precedence")
	assert.Equal(t, "This was extracted from hawb according to precedence. Ignored value  form prealert.", field.Reasoning)
	assert.Equal(t, Message{Label: "executedOnDate", Text: field.Reasoning, DocType: "hawb", SourceDocIDs: []string{"d2"}}, msg)
}

func TestResolve_LastOccurrence(t *testing.T) {
	r := NewResolver(ResolverConfig{})
	candidates := []fields.Candidate{
		scalar("prealert", "d1", ""),
		scalar("hawb", "d2", "2024-01-01"),
	}

	field, _ := r.Resolve("executedOnDate", candidates, nil)
	require.NotNil(t, field)
	assert.Equal(t, "2024-01-01", field.Value.Text)
	assert.Contains(t, field.Reasoning, "as per last occurance")

	field, _ = r.Resolve("executedOnDate", []fields.Candidate{
		scalar("hawb", "d1", "first"),
		scalar("invoice", "d2", "last"),
	}, []string{})
	require.NotNil(t, field)
	assert.Equal(t, "last", field.Value.Text)
	assert.Equal(t,
		"No precedence was given hence this was extracted from invoice as per last occurance. Ignored value first form hawb.",
		field.Reasoning)
}

func TestResolve_SingleCandidate(t *testing.T) {
	r := NewResolver(ResolverConfig{})
	for _, prec := range [][]string{nil, {"hawb"}} {
		field, _ := r.Resolve("awbNumber", []fields.Candidate{scalar("hawb", "d1", "123")}, prec)
		require.NotNil(t, field)
		assert.Equal(t, "123", field.Value.Text)
		assert.Regexp(t, `No other value found rather than this\.$`, field.Reasoning)
	}
}

func TestResolve_NoValue(t *testing.T) {
	r := NewResolver(ResolverConfig{})

	field, msg := r.Resolve("awbNumber", []fields.Candidate{scalar("hawb", "d1", "123")}, []string{"prealert"})
	assert.Nil(t, field)
	assert.Equal(t, Message{Label: "awbNumber", Text: NoValueText, DocType: NoValueDocType}, msg)

	field, msg = r.Resolve("awbNumber", []fields.Candidate{scalar("hawb", "d1", " ")}, nil)
	assert.Nil(t, field)
	assert.Equal(t, Message{Label: "awbNumber", Text: AllValuesEmptyText, DocType: NoDocClassDocType}, msg)
}

func TestResolve_ExceptionSuppression(t *testing.T) {
	r := NewResolver(ResolverConfig{})
	block := "AB123456 CD789012 EF345678"
	candidates := []fields.Candidate{
		party("Pre Alert", "d1", "Multi", block),
		party("hawb", "d2", "Single", "Main street 1"),
	}

	field, _ := r.Resolve("Importer ", candidates, []string{"Pre Alert", "hawb"})
	require.NotNil(t, field)
	assert.Equal(t, "Single", field.Value.Party.Fields["name"])
	assert.Equal(t, "hawb", field.SourceDocType)
	require.Len(t, field.Annotations, 1)
	assert.Equal(t, "d1", field.Annotations[0].DocID)
	assert.Equal(t,
		"This was extracted from hawb according to precedence."+
			" Ignored value {address: {block: AB123456 CD789012 EF345678}, name: Multi} form Pre Alert."+
			" Important Note: Precedence is breaking because either multiple account numbers are present"+
			" or the account number contains more than 8 characters in Pre Alert, hence it is being ignored.",
		field.Reasoning)

	// Same on the last-occurrence path.
	field, _ = r.Resolve("importer", []fields.Candidate{candidates[1], candidates[0]}, nil)
	require.NotNil(t, field)
	assert.Equal(t, "Single", field.Value.Party.Fields["name"])
	assert.Contains(t, field.Reasoning, "Important Note: Last occurance rule is breaking")

	// Other labels are not affected.
	field, _ = r.Resolve("consignee", candidates, []string{"Pre Alert", "hawb"})
	require.NotNil(t, field)
	assert.Equal(t, "Multi", field.Value.Party.Fields["name"])
}

func TestResolve_NoRules(t *testing.T) {
	r := NewResolver(ResolverConfig{Rules: []ExceptionRule{}})
	field, _ := r.Resolve("importer", []fields.Candidate{party("prealert", "d1", "Multi", "AB123456 CD789012")}, []string{"prealert"})
	require.NotNil(t, field)
	assert.Equal(t, "Multi", field.Value.Party.Fields["name"])
}

func TestResolve_FixTypos(t *testing.T) {
	r := NewResolver(ResolverConfig{Style: ReasoningStyle{FixTypos: true}})
	field, _ := r.Resolve("x", []fields.Candidate{scalar("a", "1", "old"), scalar("b", "2", "new")}, nil)
	require.NotNil(t, field)
	assert.Equal(t,
		"No precedence was given hence this was extracted from b as per last occurrence. Ignored value old from a.",
		field.Reasoning)
}

func TestCountAccountNumbers(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"AB123456 CD789012 EF345678", 3},
		{"ab123456 lowercase only", 0},
		{"ACC 12345678 no letters", 0},
		{"AB12345 is seven, AB123456789012345678901 is too long", 1},
		{"", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CountAccountNumbers(tt.text), tt.text)
	}
}

func TestResolveSet(t *testing.T) {
	b := fields.NewBuilder()
	b.AddGeneral("b", scalar("hawb", "d1", "x"))
	b.AddGeneral("a", scalar("hawb", "d1", " "))
	set := b.Finalize().General

	resolved, messages := NewResolver(ResolverConfig{}).ResolveSet(set, Map{"b": {"hawb"}})
	require.Len(t, resolved, 2)
	require.Len(t, messages, 2)
	assert.Nil(t, resolved[0])
	assert.Equal(t, "a", messages[0].Label)
	assert.Equal(t, NoDocClassDocType, messages[0].DocType)
	require.NotNil(t, resolved[1])
	assert.Equal(t, "b", resolved[1].Key)
	assert.Equal(t, "b", messages[1].Label)
}
