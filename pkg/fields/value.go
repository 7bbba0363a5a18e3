package fields

import (
	"encoding/json"
	"sort"
	"strings"
)

// Value is a field value: a plain string, or a Party for compound fields.
type Value struct {
	Text  string
	Party *Party
}

// Scalar returns a plain string value.
func Scalar(s string) Value { return Value{Text: s} }

// Compound wraps a party as a value.
func Compound(p *Party) Value { return Value{Party: p} }

// IsCompound reports whether v holds a party.
func (v Value) IsCompound() bool { return v.Party != nil }

// IsEmpty reports a blank scalar or a party without any entry.
func (v Value) IsEmpty() bool {
	if v.Party != nil {
		return v.Party.Empty()
	}
	return strings.TrimSpace(v.Text) == ""
}

// String renders scalars verbatim and parties as a sorted
// "{key: value, address: {...}}" listing.
func (v Value) String() string {
	if v.Party != nil {
		return v.Party.String()
	}
	return v.Text
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.Party != nil {
		return json.Marshal(v.Party)
	}
	return json.Marshal(v.Text)
}

// Party is a compound field such as an importer or consignee. Address and
// contact entries are kept apart from the top-level entries.
type Party struct {
	Fields  map[string]string
	Address map[string]string
	Contact map[string]string
}

// NewParty returns an empty party.
func NewParty() *Party {
	return &Party{
		Fields:  map[string]string{},
		Address: map[string]string{},
		Contact: map[string]string{},
	}
}

// Empty reports whether the party has no entry at all.
func (p *Party) Empty() bool {
	return len(p.Fields) == 0 && len(p.Address) == 0 && len(p.Contact) == 0
}

// AddressLine returns an address entry, or "".
func (p *Party) AddressLine(key string) string {
	if p == nil {
		return ""
	}
	return p.Address[key]
}

func (p *Party) asMap() map[string]any {
	out := make(map[string]any, len(p.Fields)+2)
	for k, v := range p.Fields {
		out[k] = v
	}
	if len(p.Address) > 0 {
		out["address"] = p.Address
	}
	if len(p.Contact) > 0 {
		out["contact"] = p.Contact
	}
	return out
}

func (p *Party) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.asMap())
}

func (p *Party) String() string {
	return formatMap(p.asMap())
}

func formatMap(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(k)
		sb.WriteString(": ")
		switch v := m[k].(type) {
		case string:
			sb.WriteString(v)
		case map[string]string:
			nested := make(map[string]any, len(v))
			for nk, nv := range v {
				nested[nk] = nv
			}
			sb.WriteString(formatMap(nested))
		}
	}
	sb.WriteByte('}')
	return sb.String()
}
