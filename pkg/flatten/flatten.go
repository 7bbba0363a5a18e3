// Package flatten merges the documents of one or more batches into a single
// flat record: resolved field values, document tables and a message per
// field explaining where its value came from.
package flatten

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/gardar/cargointake/pkg/doctree"
	"github.com/gardar/cargointake/pkg/fields"
	"github.com/gardar/cargointake/pkg/precedence"
)

// ErrLabelCollision is returned in strict mode when a label is used both as
// a scalar and as a compound field.
var ErrLabelCollision = errors.New("label used as both scalar and compound field")

// Result is the flattened output of a batch.
type Result struct {
	Data      map[string]fields.Value `json:"data"`
	MainTable []Table                 `json:"main_table"`
	Metadata  Metadata                `json:"metadata"`
}

// Table is one document table.
type Table struct {
	Rows []map[string]string `json:"rows"`
}

// Metadata carries per-field reasoning.
type Metadata struct {
	Messages map[string]string `json:"messages"`
	Sources  map[string]Source `json:"sources,omitempty"`
}

// Source names where a field message points to.
type Source struct {
	DocType      string   `json:"docType"`
	SourceDocIDs []string `json:"source_documentIds"`
}

// NewResult returns an empty result that marshals with empty collections.
func NewResult() *Result {
	return &Result{
		Data:      map[string]fields.Value{},
		MainTable: []Table{},
		Metadata: Metadata{
			Messages: map[string]string{},
			Sources:  map[string]Source{},
		},
	}
}

// Set stores a value (when non-nil) and the message of a label, replacing
// earlier entries.
func (r *Result) Set(label string, v *fields.Value, msg precedence.Message) {
	if v != nil {
		r.Data[label] = *v
	}
	ids := msg.SourceDocIDs
	if ids == nil {
		ids = []string{}
	}
	r.Metadata.Messages[label] = msg.Text
	r.Metadata.Sources[label] = Source{DocType: msg.DocType, SourceDocIDs: ids}
}

// Missing returns the fallback-enabled keys without a value, in key order.
func (r *Result) Missing(keys []ProcessKey) []string {
	var out []string
	for _, k := range keys {
		if !k.Fallback {
			continue
		}
		if _, ok := r.Data[k.KeyValue]; !ok {
			out = append(out, k.KeyValue)
		}
	}
	return out
}

// Config configures a Flattener.
type Config struct {
	Collector        fields.CollectorConfig
	Resolver         precedence.ResolverConfig
	StrictNamespaces bool // Fail on scalar/compound label collisions instead of logging
	Logger           *slog.Logger
}

func (c *Config) defaults() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Collector.Logger == nil {
		c.Collector.Logger = c.Logger
	}
	if c.Resolver.Logger == nil {
		c.Resolver.Logger = c.Logger
	}
}

// Flattener merges batches into a Result. It holds no per-call state and is
// safe for concurrent use.
type Flattener struct {
	collector *fields.Collector
	resolver  *precedence.Resolver
	strict    bool
	logger    *slog.Logger
}

// New creates a Flattener.
func New(cfg Config) *Flattener {
	cfg.defaults()
	return &Flattener{
		collector: fields.NewCollector(cfg.Collector),
		resolver:  precedence.NewResolver(cfg.Resolver),
		strict:    cfg.StrictNamespaces,
		logger:    cfg.Logger,
	}
}

// Flatten collects and resolves all fields of the batches. Empty batches are
// skipped. The only error is ErrLabelCollision in strict mode.
func (f *Flattener) Flatten(batches []doctree.Batch, keys []ProcessKey) (*Result, error) {
	return f.FlattenCollected(f.collector.Collect(batches), PrecedenceFromKeys(keys))
}

// FlattenCollected resolves already collected candidates.
func (f *Flattener) FlattenCollected(c *fields.Collected, m precedence.Map) (*Result, error) {
	if collisions := ValidateNamespaces(c); len(collisions) > 0 {
		if f.strict {
			return nil, fmt.Errorf("%w: %v", ErrLabelCollision, collisions)
		}
		for _, label := range collisions {
			f.logger.Warn("label used as scalar and compound field, compound value wins", "label", label)
		}
	}
	for _, w := range c.Warnings {
		f.logger.Debug("collection warning", "error", w)
	}

	res := NewResult()

	// Compound fields are applied last and replace scalar fields of the same label.
	for _, set := range []*fields.CandidateSet{c.General, c.Party} {
		resolved, messages := f.resolver.ResolveSet(set, m)
		for i, msg := range messages {
			var v *fields.Value
			if resolved[i] != nil {
				v = &resolved[i].Value
			}
			res.Set(msg.Label, v, msg)
		}
	}

	for _, t := range c.Tables {
		f.logger.Debug("adding table", "doc_id", t.DocID, "table", t.Name, "rows", len(t.Rows))
		res.MainTable = append(res.MainTable, Table{Rows: t.Rows})
	}
	return res, nil
}

// ValidateNamespaces returns the sorted labels that occur both as scalar and
// as compound fields.
func ValidateNamespaces(c *fields.Collected) []string {
	var out []string
	for _, label := range c.Party.Labels() {
		if c.General.Has(label) {
			out = append(out, label)
		}
	}
	sort.Strings(out)
	return out
}
