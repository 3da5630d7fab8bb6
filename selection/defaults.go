package selection

import (
	"errors"
	"fmt"

	"github.com/spektr-org/threatlens/engine"
	"github.com/spektr-org/threatlens/schema"
	"github.com/spektr-org/threatlens/store"
)

// ============================================================================
// FILTER CONTROLS: Option menus and the initial selection
// ============================================================================

// Control is one filter widget: a value list for a category column or the
// observed bounds of a numeric column.
type Control struct {
	Column string        `json:"column" yaml:"column"`
	Label  string        `json:"label" yaml:"label"`
	Kind   schema.Kind   `json:"kind" yaml:"kind"`
	Values []string      `json:"values,omitempty" yaml:"values,omitempty"`
	Range  *engine.Range `json:"range,omitempty" yaml:"range,omitempty"`
}

// Controls lists a filter control per declared column, in schema order.
// Numeric columns of an empty store carry no range.
func Controls(s *store.Store) ([]Control, error) {
	cfg := s.Schema()
	controls := make([]Control, 0, len(cfg.Columns))

	for _, col := range cfg.Columns {
		c := Control{Column: col.Key, Label: cfg.Label(col.Key), Kind: col.Kind}
		if col.Kind.IsNumeric() {
			lo, hi, err := s.Bounds(col.Key)
			switch {
			case errors.Is(err, engine.ErrEmptyView):
			case err != nil:
				return nil, err
			default:
				c.Range = &engine.Range{Min: lo, Max: hi}
			}
		} else {
			values, err := s.DistinctValues(col.Key)
			if err != nil {
				return nil, err
			}
			c.Values = values
		}
		controls = append(controls, c)
	}
	return controls, nil
}

// defaultPicks is how many leading values the initial selection keeps per
// category column; 0 keeps them all.
var defaultPicks = []struct {
	column string
	first  int
}{
	{schema.Country, 3},
	{schema.AttackType, 0},
	{schema.TargetIndustry, 3},
	{schema.AttackSource, 0},
}

// defaultRanges span the full observed bounds.
var defaultRanges = []string{schema.Year, schema.FinancialLoss}

// Default builds the initial selection: the first three countries, every
// attack type, the first three industries, every attack source, and the full
// year and financial loss ranges. Columns the store does not declare are skipped.
func Default(s *store.Store) (Selection, error) {
	cfg := s.Schema()
	sel := Selection{
		Categories: make(map[string][]string),
		Ranges:     make(map[string]engine.Range),
	}

	for _, pick := range defaultPicks {
		if _, ok := cfg.Column(pick.column); !ok {
			continue
		}
		values, err := s.DistinctValues(pick.column)
		if err != nil {
			return Selection{}, fmt.Errorf("default selection: %w", err)
		}
		if pick.first > 0 && len(values) > pick.first {
			values = values[:pick.first]
		}
		sel.Categories[pick.column] = values
	}

	for _, column := range defaultRanges {
		if _, ok := cfg.Column(column); !ok {
			continue
		}
		lo, hi, err := s.Bounds(column)
		if errors.Is(err, engine.ErrEmptyView) {
			continue
		}
		if err != nil {
			return Selection{}, fmt.Errorf("default selection: %w", err)
		}
		sel.Ranges[column] = engine.Range{Min: lo, Max: hi}
	}

	return sel, nil
}
