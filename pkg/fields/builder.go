package fields

import (
	"github.com/gardar/cargointake/pkg/doctree"
)

// Candidate is one document's contribution to a named field.
type Candidate struct {
	DocType string
	DocID   string
	Value   Value
}

// CandidateSet maps field labels to their candidates, in first-seen label
// order. It is read-only once returned by Builder.Finalize.
type CandidateSet struct {
	order   []string
	byLabel map[string][]Candidate
}

func newCandidateSet() *CandidateSet {
	return &CandidateSet{byLabel: map[string][]Candidate{}}
}

func (s *CandidateSet) add(label string, c Candidate) {
	if _, ok := s.byLabel[label]; !ok {
		s.order = append(s.order, label)
	}
	s.byLabel[label] = append(s.byLabel[label], c)
}

// Labels returns the labels in first-seen order.
func (s *CandidateSet) Labels() []string {
	return append([]string(nil), s.order...)
}

// Candidates returns the candidates of a label in document order.
func (s *CandidateSet) Candidates(label string) []Candidate {
	return append([]Candidate(nil), s.byLabel[label]...)
}

// Has reports whether the label has at least one candidate.
func (s *CandidateSet) Has(label string) bool {
	_, ok := s.byLabel[label]
	return ok
}

// Len is the number of labels.
func (s *CandidateSet) Len() int { return len(s.order) }

// TableBlock is one document table flattened to label/value rows.
type TableBlock struct {
	DocType string
	DocID   string
	Name    string
	Rows    []map[string]string
}

// Collected is the result of one collection pass.
type Collected struct {
	General  *CandidateSet // Scalar fields
	Party    *CandidateSet // Compound fields
	Tables   []TableBlock
	Warnings []error // Documents that could not contribute fields
}

// Builder accumulates candidates for one flatten call.
type Builder struct {
	general  *CandidateSet
	party    *CandidateSet
	tables   []TableBlock
	warnings []error
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{general: newCandidateSet(), party: newCandidateSet()}
}

// AddGeneral records a scalar candidate.
func (b *Builder) AddGeneral(label string, c Candidate) { b.general.add(label, c) }

// AddParty records a compound candidate.
func (b *Builder) AddParty(label string, c Candidate) { b.party.add(label, c) }

// AddTable records a document table.
func (b *Builder) AddTable(t TableBlock) { b.tables = append(b.tables, t) }

// Warn records a non-fatal collection problem.
func (b *Builder) Warn(err error) { b.warnings = append(b.warnings, err) }

// Finalize returns everything collected so far and resets the builder.
func (b *Builder) Finalize() *Collected {
	out := &Collected{
		General:  b.general,
		Party:    b.party,
		Tables:   b.tables,
		Warnings: b.warnings,
	}
	*b = *NewBuilder()
	return out
}

// FlattenTable converts a table node into label/value rows. Later cells
// overwrite earlier cells with the same label.
func FlattenTable(t *doctree.TableNode) []map[string]string {
	rows := make([]map[string]string, 0, len(t.Rows))
	for _, r := range t.Rows {
		row := make(map[string]string, len(r.Cells))
		for _, c := range r.Cells {
			row[c.Label] = c.Value
		}
		rows = append(rows, row)
	}
	return rows
}
