// Package precedence picks one canonical value per field from the candidates
// contributed by the documents of a batch.
//
// Fields listed in the precedence Map take the first non-empty candidate of
// the first doc type, in configured order, that has one. Fields without a
// precedence entry take the last non-empty candidate. Exception rules can
// suppress candidates on either path. Every decision is explained by a
// human-readable Message.
package precedence

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/gardar/cargointake/pkg/fields"
)

// Doc types reported in messages for fields that got no value.
const (
	NoValueDocType      = "None"
	NoDocClassDocType   = "No doc class found"
	NoValueText         = "No valid value found according to precedence"
	AllValuesEmptyText  = "No precedence was given, this key is skipped since all values are empty."
	singleCandidateText = " No other value found rather than this."
)

// Map maps field labels to doc types in descending priority.
type Map map[string][]string

// ResolvedField is the selected value of one field.
type ResolvedField struct {
	Key           string
	Value         fields.Value
	SourceDocType string
	SourceDocIDs  []string
	Reasoning     string
	Annotations   []Annotation
}

// Message explains the outcome for one field label.
type Message struct {
	Label        string
	Text         string
	DocType      string
	SourceDocIDs []string
}

// ReasoningStyle controls the wording of reasoning text. The zero value keeps
// the legacy wording ("form {docType}", "occurance") that existing consumers
// match on.
type ReasoningStyle struct {
	FixTypos bool
}

func (s ReasoningStyle) from() string {
	if s.FixTypos {
		return "from"
	}
	return "form"
}

func (s ReasoningStyle) occurrence() string {
	if s.FixTypos {
		return "occurrence"
	}
	return "occurance"
}

// ResolverConfig configures a Resolver.
type ResolverConfig struct {
	Rules  []ExceptionRule // nil applies DefaultExceptionRules
	Style  ReasoningStyle
	Logger *slog.Logger
}

func (c *ResolverConfig) defaults() {
	if c.Rules == nil {
		c.Rules = DefaultExceptionRules()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Resolver selects field values.
type Resolver struct {
	rules  []ExceptionRule
	style  ReasoningStyle
	logger *slog.Logger
}

// NewResolver creates a resolver.
func NewResolver(cfg ResolverConfig) *Resolver {
	cfg.defaults()
	return &Resolver{
		rules:  append([]ExceptionRule(nil), cfg.Rules...),
		style:  cfg.Style,
		logger: cfg.Logger,
	}
}

// Resolve selects the value of one field. The returned field is nil when no
// candidate qualifies; the message is always set.
func (r *Resolver) Resolve(label string, candidates []fields.Candidate, precedence []string) (*ResolvedField, Message) {
	var (
		selected = -1
		notes    []Annotation
		path     = ByPrecedence
	)

	if len(precedence) > 0 {
	scan:
		for _, docType := range precedence {
			for i, c := range candidates {
				if c.DocType != docType || c.Value.IsEmpty() {
					continue
				}
				if a, ok := r.suppressed(label, c); ok {
					notes = append(notes, a)
					continue
				}
				selected = i
				break scan
			}
		}
		if selected < 0 {
			r.logger.Debug("no value by precedence", "label", label, "candidates", len(candidates))
			return nil, Message{
				Label:   label,
				Text:    NoValueText + r.noteText(path, notes),
				DocType: NoValueDocType,
			}
		}
	} else {
		path = ByLastOccurrence
		for i := len(candidates) - 1; i >= 0; i-- {
			c := candidates[i]
			if c.Value.IsEmpty() {
				continue
			}
			if a, ok := r.suppressed(label, c); ok {
				notes = append(notes, a)
				continue
			}
			selected = i
			break
		}
		if selected < 0 {
			r.logger.Debug("no value by last occurrence", "label", label, "candidates", len(candidates))
			return nil, Message{
				Label:   label,
				Text:    AllValuesEmptyText + r.noteText(path, notes),
				DocType: NoDocClassDocType,
			}
		}
	}

	chosen := candidates[selected]
	var sb strings.Builder
	if path == ByPrecedence {
		fmt.Fprintf(&sb, "This was extracted from %s according to precedence.", chosen.DocType)
	} else {
		fmt.Fprintf(&sb, "No precedence was given hence this was extracted from %s as per last %s.",
			chosen.DocType, r.style.occurrence())
	}
	if len(candidates) == 1 {
		sb.WriteString(singleCandidateText)
	}
	for i, c := range candidates {
		if i == selected {
			continue
		}
		fmt.Fprintf(&sb, " Ignored value %s %s %s.", c.Value.String(), r.style.from(), c.DocType)
	}
	sb.WriteString(r.noteText(path, notes))

	field := &ResolvedField{
		Key:           label,
		Value:         chosen.Value,
		SourceDocType: chosen.DocType,
		SourceDocIDs:  []string{chosen.DocID},
		Reasoning:     sb.String(),
		Annotations:   notes,
	}
	r.logger.Debug("resolved field", "label", label, "doc_type", chosen.DocType, "doc_id", chosen.DocID)
	return field, Message{
		Label:        label,
		Text:         field.Reasoning,
		DocType:      field.SourceDocType,
		SourceDocIDs: field.SourceDocIDs,
	}
}

// ResolveSet resolves every label of set in label order. Both slices are
// indexed like set.Labels(); a label without a usable value has a nil field.
func (r *Resolver) ResolveSet(set *fields.CandidateSet, m Map) ([]*ResolvedField, []Message) {
	labels := set.Labels()
	resolved := make([]*ResolvedField, len(labels))
	messages := make([]Message, len(labels))
	for i, label := range labels {
		resolved[i], messages[i] = r.Resolve(label, set.Candidates(label), m[label])
	}
	return resolved, messages
}

func (r *Resolver) suppressed(label string, c fields.Candidate) (Annotation, bool) {
	for _, rule := range r.rules {
		if a, ok := rule.Check(label, c); ok {
			r.logger.Info("candidate suppressed", "label", label, "rule", a.Rule,
				"doc_type", c.DocType, "doc_id", c.DocID)
			return a, true
		}
	}
	return Annotation{}, false
}

func (r *Resolver) noteText(path Path, notes []Annotation) string {
	var sb strings.Builder
	for _, a := range notes {
		subject := "Precedence is"
		if path == ByLastOccurrence {
			subject = "Last " + r.style.occurrence() + " rule is"
		}
		fmt.Fprintf(&sb, " Important Note: %s breaking because %s", subject, a.Reason)
	}
	return sb.String()
}
