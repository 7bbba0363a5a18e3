package doctree

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// rawNode mirrors every attribute the extraction service may put on a node.
type rawNode struct {
	Type      string     `json:"type"`
	ID        flexString `json:"id"`
	DocType   flexString `json:"DocType"`
	FilePath  string     `json:"file_path"`
	Label     flexString `json:"label"`
	V         flexString `json:"v"`
	Pos       string     `json:"pos"`
	S         flexInt    `json:"s"`
	Cn        flexFloat  `json:"cn"`
	Width     flexFloat  `json:"width"`
	Height    flexFloat  `json:"height"`
	TableName string     `json:"table_name"`
	Styles    []rawStyle `json:"styles"`
	Children  []rawNode  `json:"children"`
}

type rawStyle struct {
	ID flexString `json:"id"`
	V  string     `json:"v"`
}

type rawBatch struct {
	Nodes []rawNode `json:"nodes"`
	Pages []rawNode `json:"pages"`
}

// DecodeBatches parses either a JSON array of batches or a single batch object.
func DecodeBatches(data []byte) ([]Batch, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrMalformedNode)
	}
	if trimmed[0] != '[' {
		b, err := DecodeBatch(trimmed)
		if err != nil {
			return nil, err
		}
		return []Batch{b}, nil
	}

	var raws []rawBatch
	if err := json.Unmarshal(trimmed, &raws); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedNode, err)
	}
	batches := make([]Batch, 0, len(raws))
	for _, raw := range raws {
		batches = append(batches, buildBatch(raw))
	}
	return batches, nil
}

// DecodeBatch parses a single batch object ({"nodes": [...]}). A batch given
// in the page-list format ({"pages": [...]}) becomes a single untyped document.
func DecodeBatch(data []byte) (Batch, error) {
	var raw rawBatch
	if err := json.Unmarshal(data, &raw); err != nil {
		return Batch{}, fmt.Errorf("%w: %v", ErrMalformedNode, err)
	}
	return buildBatch(raw), nil
}

// DecodePage parses a single page node.
func DecodePage(data []byte) (*PageNode, error) {
	var raw rawNode
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedNode, err)
	}
	return buildPage(raw), nil
}

func buildBatch(raw rawBatch) Batch {
	var b Batch
	for _, n := range raw.Nodes {
		b.Nodes = append(b.Nodes, buildDocument(n))
	}
	if len(raw.Pages) > 0 {
		doc := &Document{}
		for _, p := range raw.Pages {
			if p.Type == string(KindPage) {
				doc.Children = append(doc.Children, buildPage(p))
			}
		}
		b.Nodes = append(b.Nodes, doc)
	}
	return b
}

func buildDocument(raw rawNode) *Document {
	doc := &Document{
		DocType:  string(raw.DocType),
		ID:       string(raw.ID),
		FilePath: raw.FilePath,
	}
	for _, c := range raw.Children {
		doc.Children = append(doc.Children, buildNode(c))
	}
	return doc
}

func buildNode(raw rawNode) Node {
	switch Kind(raw.Type) {
	case KindWord:
		return &WordNode{
			Text:       string(raw.V),
			Pos:        raw.Pos,
			Style:      raw.S.v,
			Confidence: raw.Cn.v,
			Err:        errors.Join(raw.S.err("s"), raw.Cn.err("cn")),
		}
	case KindPage:
		return buildPage(raw)
	case KindKey:
		ks := &KeySection{}
		for _, c := range raw.Children {
			ks.Items = append(ks.Items, buildKeyValue(c))
		}
		return ks
	case KindTable:
		t := &TableNode{Name: raw.TableName}
		for _, row := range raw.Children {
			var r TableRow
			for _, cell := range row.Children {
				r.Cells = append(r.Cells, Cell{Label: string(cell.Label), Value: string(cell.V)})
			}
			t.Rows = append(t.Rows, r)
		}
		return t
	default:
		c := &ContainerNode{Type: raw.Type, ID: string(raw.ID)}
		for _, child := range raw.Children {
			c.Children = append(c.Children, buildNode(child))
		}
		return c
	}
}

func buildPage(raw rawNode) *PageNode {
	page := &PageNode{
		ID:     string(raw.ID),
		Width:  raw.Width.v,
		Height: raw.Height.v,
	}
	for _, st := range raw.Styles {
		id, err := strconv.Atoi(strings.TrimSpace(string(st.ID)))
		if err != nil {
			continue
		}
		page.Styles = append(page.Styles, StyleDef{ID: id, Value: st.V})
	}
	for _, c := range raw.Children {
		page.Children = append(page.Children, buildNode(c))
	}
	return page
}

func buildKeyValue(raw rawNode) KeyValue {
	kv := KeyValue{Label: string(raw.Label), Value: string(raw.V)}
	for _, c := range raw.Children {
		kv.Children = append(kv.Children, buildKeyValue(c))
	}
	return kv
}

// flexString accepts strings, numbers, booleans and null.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*f = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
	case len(b) > 0 && (b[0] == '{' || b[0] == '['):
		return fmt.Errorf("%w: expected scalar, got %s", ErrMalformedNode, string(b[:1]))
	default:
		*f = flexString(string(b))
	}
	return nil
}

// flexInt accepts integers and numeric strings. Empty values decode to 0;
// anything else that is not a number decodes to 0 and keeps its raw text.
type flexInt struct {
	v   int
	bad string
}

func (f *flexInt) UnmarshalJSON(b []byte) error {
	var n flexFloat
	if err := n.UnmarshalJSON(b); err != nil {
		return err
	}
	*f = flexInt{v: int(n.v), bad: n.bad}
	return nil
}

func (f flexInt) err(attr string) error {
	return badNumber(attr, f.bad)
}

// flexFloat accepts numbers and numeric strings. Empty values decode to 0;
// anything else that is not a number decodes to 0 and keeps its raw text.
type flexFloat struct {
	v   float64
	bad string
}

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	v := strings.TrimSpace(string(s))
	if v == "" {
		*f = flexFloat{}
		return nil
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		*f = flexFloat{bad: v}
		return nil
	}
	*f = flexFloat{v: n}
	return nil
}

func (f flexFloat) err(attr string) error {
	return badNumber(attr, f.bad)
}

func badNumber(attr, raw string) error {
	if raw == "" {
		return nil
	}
	return fmt.Errorf("%w: %s %q is not a number", ErrMalformedNode, attr, raw)
}
