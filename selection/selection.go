// Package selection turns a user's filter choices into engine filters.
//
// A selection document lists allowed values per category column and a closed
// interval per numeric column. It can be written as JSON or YAML:
//
//	categories:
//	  Country: [USA, India]
//	  attack_type: []          # empty = no constraint
//	ranges:
//	  year: {min: 2018, max: 2022}
//
// Column names may be keys (attack_type) or CSV headers (Attack Type).
package selection

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/spektr-org/threatlens/engine"
	"github.com/spektr-org/threatlens/schema"
)

// ErrUnknownColumn is returned when a selection names a column the schema
// does not declare, or uses a column with the wrong kind of filter.
var ErrUnknownColumn = errors.New("selection names an unknown column")

// ErrInvalidSelection is returned for a selection that is well-formed but
// contradicts itself, such as two ranges on the same column.
var ErrInvalidSelection = errors.New("invalid selection")

// Selection is the user's active filter criteria.
type Selection struct {
	Categories map[string][]string     `json:"categories,omitempty" yaml:"categories,omitempty"`
	Ranges     map[string]engine.Range `json:"ranges,omitempty" yaml:"ranges,omitempty"`
}

// IsEmpty reports whether nothing constrains the view.
func (s Selection) IsEmpty() bool {
	for _, vals := range s.Categories {
		if len(vals) > 0 {
			return false
		}
	}
	return len(s.Ranges) == 0
}

// ============================================================================
// PARSING
// ============================================================================

// Parse decodes a JSON or YAML selection. Markdown code fences around the
// document are tolerated. An empty document is an empty selection.
func Parse(data []byte) (Selection, error) {
	text := stripFences(string(data))
	var sel Selection
	if text == "" {
		return sel, nil
	}

	if strings.HasPrefix(text, "{") {
		dec := json.NewDecoder(strings.NewReader(text))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&sel); err != nil {
			return Selection{}, fmt.Errorf("parse selection json: %w", err)
		}
		return sel, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader([]byte(text)))
	dec.KnownFields(true)
	if err := dec.Decode(&sel); err != nil && !errors.Is(err, io.EOF) {
		return Selection{}, fmt.Errorf("parse selection yaml: %w", err)
	}
	return sel, nil
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	for _, fence := range []string{"```json", "```yaml", "```yml", "```"} {
		if strings.HasPrefix(text, fence) {
			text = strings.TrimPrefix(text, fence)
			break
		}
	}
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// Encode renders a selection as YAML, the format users edit by hand.
func Encode(sel Selection) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(sel); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ============================================================================
// RESOLUTION
// ============================================================================

// Filters resolves column names against cfg and builds engine filters.
// Category entries need a category column, range entries a numeric one.
// Inverted ranges fail early with *engine.InvalidRangeError.
func (s Selection) Filters(cfg schema.Config) (engine.Filters, error) {
	filters := engine.Filters{
		Dimensions: make(map[string][]string, len(s.Categories)),
		Ranges:     make(map[string]engine.Range, len(s.Ranges)),
	}

	for name, values := range s.Categories {
		col, ok := cfg.Lookup(name)
		if !ok {
			return engine.Filters{}, fmt.Errorf("%q: %w", name, ErrUnknownColumn)
		}
		if col.Kind != schema.KindCategory {
			return engine.Filters{}, fmt.Errorf("%q is %s, use a range: %w", name, col.Kind, ErrUnknownColumn)
		}
		filters.Dimensions[col.Key] = append(filters.Dimensions[col.Key], values...)
	}

	for name, r := range s.Ranges {
		col, ok := cfg.Lookup(name)
		if !ok {
			return engine.Filters{}, fmt.Errorf("%q: %w", name, ErrUnknownColumn)
		}
		if !col.Kind.IsNumeric() {
			return engine.Filters{}, fmt.Errorf("%q is a category, use a value list: %w", name, ErrUnknownColumn)
		}
		if _, dup := filters.Ranges[col.Key]; dup {
			return engine.Filters{}, fmt.Errorf("range for %q given twice: %w", col.Key, ErrInvalidSelection)
		}
		if _, err := engine.NewRangeFilter(col.Key, r.Min, r.Max); err != nil {
			return engine.Filters{}, err
		}
		filters.Ranges[col.Key] = r
	}

	return filters, nil
}
