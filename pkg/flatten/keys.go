package flatten

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/gardar/cargointake/pkg/precedence"
)

// ErrInvalidPrecedence is returned for a precedence that is neither a list of
// doc types, an empty object nor null.
var ErrInvalidPrecedence = errors.New("invalid precedence")

// ProcessKey configures one output field.
type ProcessKey struct {
	KeyValue   string         `json:"keyValue" yaml:"keyValue"`
	Precedence PrecedenceList `json:"precedence" yaml:"precedence"`
	Fallback   bool           `json:"fallback,omitempty" yaml:"fallback,omitempty"`
}

// PrecedenceList is an ordered list of doc types. Upstream configuration
// stores "no precedence" as {} or null; both decode to an empty list.
type PrecedenceList []string

func (p *PrecedenceList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case bytes.Equal(trimmed, []byte("null")):
		*p = nil
		return nil
	case len(trimmed) > 0 && trimmed[0] == '{':
		var m map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &m); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPrecedence, err)
		}
		if len(m) > 0 {
			return fmt.Errorf("%w: non-empty object", ErrInvalidPrecedence)
		}
		*p = nil
		return nil
	}
	var list []string
	if err := json.Unmarshal(trimmed, &list); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPrecedence, err)
	}
	*p = list
	return nil
}

func (p *PrecedenceList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPrecedence, err)
		}
		*p = list
		return nil
	case yaml.MappingNode:
		if len(value.Content) > 0 {
			return fmt.Errorf("%w: non-empty mapping at line %d", ErrInvalidPrecedence, value.Line)
		}
		*p = nil
		return nil
	case yaml.ScalarNode:
		if value.ShortTag() == "!!null" {
			*p = nil
			return nil
		}
	}
	return fmt.Errorf("%w: unexpected value at line %d", ErrInvalidPrecedence, value.Line)
}

// ParseProcessKeys decodes a JSON list of process keys.
func ParseProcessKeys(data []byte) ([]ProcessKey, error) {
	var keys []ProcessKey
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("failed to parse process keys: %w", err)
	}
	return keys, nil
}

// PrecedenceFromKeys builds the precedence map. Later duplicates win.
func PrecedenceFromKeys(keys []ProcessKey) precedence.Map {
	m := make(precedence.Map, len(keys))
	for _, k := range keys {
		m[k.KeyValue] = append([]string(nil), k.Precedence...)
	}
	return m
}
