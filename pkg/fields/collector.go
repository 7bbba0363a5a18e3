// Package fields collects per-document field candidates from a batch tree.
//
// Scalar key fields become general candidates, key fields with children
// become party (compound) candidates and table sections are flattened into
// label/value rows. Party sub-values are truncated to the lengths accepted by
// the customs systems the output feeds.
package fields

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/gardar/cargointake/pkg/doctree"
)

// DefaultTruncation returns the maximum rune length per party sub-label.
func DefaultTruncation() map[string]int {
	return map[string]int{
		"accountNumber":    12,
		"name":             100,
		"addressShortCode": 25,
		"addressLine1":     50,
		"addressLine2":     50,
		"postalCode":       10,
		"city":             50,
		"stateProvince":    25,
		"countryCode":      2,
		"contactName":      256,
		"contactPhone":     20,
		"contactEmail":     254,
	}
}

// DefaultAddressKeys returns the party sub-labels grouped under "address".
func DefaultAddressKeys() []string {
	return []string{"addressLine1", "addressLine2", "postalCode", "city", "countryCode", "stateProvince", "block"}
}

// DefaultSkipLabels returns labels never collected (compared case-insensitively).
func DefaultSkipLabels() []string {
	return []string{"subDocClass"}
}

// CollectorConfig configures a Collector.
type CollectorConfig struct {
	Truncation  map[string]int // Sub-labels not listed are kept whole
	AddressKeys []string
	SkipLabels  []string
	Logger      *slog.Logger
}

// DefaultCollectorConfig returns a config with fresh default tables.
func DefaultCollectorConfig() CollectorConfig {
	return CollectorConfig{
		Truncation:  DefaultTruncation(),
		AddressKeys: DefaultAddressKeys(),
		SkipLabels:  DefaultSkipLabels(),
	}
}

func (c *CollectorConfig) defaults() {
	if c.Truncation == nil {
		c.Truncation = DefaultTruncation()
	}
	if c.AddressKeys == nil {
		c.AddressKeys = DefaultAddressKeys()
	}
	if c.SkipLabels == nil {
		c.SkipLabels = DefaultSkipLabels()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Collector walks batches and gathers field candidates.
type Collector struct {
	truncation  map[string]int
	addressKeys map[string]bool
	skip        map[string]bool
	logger      *slog.Logger
}

// NewCollector creates a collector. Nil tables in cfg take their defaults.
func NewCollector(cfg CollectorConfig) *Collector {
	cfg.defaults()
	c := &Collector{
		truncation:  make(map[string]int, len(cfg.Truncation)),
		addressKeys: make(map[string]bool, len(cfg.AddressKeys)),
		skip:        make(map[string]bool, len(cfg.SkipLabels)),
		logger:      cfg.Logger,
	}
	for k, v := range cfg.Truncation {
		c.truncation[k] = v
	}
	for _, k := range cfg.AddressKeys {
		c.addressKeys[k] = true
	}
	for _, k := range cfg.SkipLabels {
		c.skip[normalizeLabel(k)] = true
	}
	return c
}

// Collect gathers candidates from every document of every non-empty batch,
// in batch then document order.
func (c *Collector) Collect(batches []doctree.Batch) *Collected {
	b := NewBuilder()
	for i, batch := range batches {
		if batch.Empty() {
			c.logger.Debug("skipping empty batch", "batch", i)
			continue
		}
		for _, doc := range batch.Nodes {
			c.collectDocument(b, doc)
		}
	}
	return b.Finalize()
}

func (c *Collector) collectDocument(b *Builder, doc *doctree.Document) {
	for _, t := range doc.Tables() {
		b.AddTable(TableBlock{
			DocType: doc.DocType,
			DocID:   doc.ID,
			Name:    t.Name,
			Rows:    FlattenTable(t),
		})
	}

	ks, err := doc.KeySection()
	if err != nil {
		c.logger.Debug("document has no key section", "doc_id", doc.ID, "doc_type", doc.DocType)
		b.Warn(fmt.Errorf("document %q: %w", doc.ID, err))
		return
	}

	for _, item := range ks.Items {
		if c.skip[normalizeLabel(item.Label)] {
			continue
		}
		if item.Compound() {
			b.AddParty(item.Label, Candidate{
				DocType: doc.DocType,
				DocID:   doc.ID,
				Value:   Compound(c.Party(item.Children)),
			})
			continue
		}
		if strings.TrimSpace(item.Value) == "" {
			continue
		}
		b.AddGeneral(item.Label, Candidate{
			DocType: doc.DocType,
			DocID:   doc.ID,
			Value:   Scalar(item.Value),
		})
	}
}

// Party builds a party from compound children. Address sub-labels go under
// address, labels containing "contact" go under contact as name, phone or
// email; other contact labels are dropped. Everything else stays top-level.
func (c *Collector) Party(children []doctree.KeyValue) *Party {
	p := NewParty()
	for _, child := range children {
		v := c.truncate(child.Label, child.Value)
		lower := normalizeLabel(child.Label)
		switch {
		case c.addressKeys[child.Label]:
			p.Address[child.Label] = v
		case strings.Contains(lower, "contact"):
			switch {
			case strings.Contains(lower, "name"):
				p.Contact["name"] = v
			case strings.Contains(lower, "phone"):
				p.Contact["phone"] = v
			case strings.Contains(lower, "email"):
				p.Contact["email"] = v
			}
		default:
			p.Fields[child.Label] = v
		}
	}
	return p
}

func (c *Collector) truncate(label, value string) string {
	limit, ok := c.truncation[label]
	if !ok {
		return value
	}
	return TruncateRunes(value, limit)
}

// TruncateRunes cuts s to at most n runes.
func TruncateRunes(s string, n int) string {
	if n < 0 {
		n = 0
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func normalizeLabel(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
