package engine

import (
	"fmt"
	"math"
)

// ============================================================================
// FILTERS: Membership and range predicates evaluated via RecordView
// ============================================================================
// Single-pass filter: checks ALL predicates per record in one loop.
// Returns a SubView (index list into parent): zero data copy, order preserved.
// ============================================================================

// Predicate is a boolean test over one column of a record.
type Predicate interface {
	Column() string
	// Active reports whether the predicate can reject anything.
	Active() bool
	Match(view RecordView, i int) bool
	validate(view RecordView) error
}

// MembershipFilter passes a record iff the allowed set is empty or the
// record's value for the column is in the set. Matching is exact.
type MembershipFilter struct {
	column  string
	values  []string
	allowed map[string]bool
}

// NewMembershipFilter builds a categorical "value is one of" predicate.
// An empty allowed set is a pass-through, not reject-all.
func NewMembershipFilter(column string, allowed ...string) MembershipFilter {
	set := make(map[string]bool, len(allowed))
	values := make([]string, 0, len(allowed))
	for _, v := range allowed {
		if !set[v] {
			set[v] = true
			values = append(values, v)
		}
	}
	return MembershipFilter{column: column, values: values, allowed: set}
}

func (f MembershipFilter) Column() string   { return f.column }
func (f MembershipFilter) Active() bool     { return len(f.allowed) > 0 }
func (f MembershipFilter) Values() []string { return f.values }

func (f MembershipFilter) Match(view RecordView, i int) bool {
	return len(f.allowed) == 0 || f.allowed[view.Dimension(i, f.column)]
}

func (f MembershipFilter) validate(view RecordView) error {
	if !hasDimension(view, f.column) {
		return fmt.Errorf("membership filter on %q: %w", f.column, ErrUnknownColumn)
	}
	return nil
}

// RangeFilter passes a record iff low <= value <= high.
type RangeFilter struct {
	column    string
	low, high float64
}

// NewRangeFilter builds a closed-interval predicate.
// Fails with *InvalidRangeError when low > high or either bound is NaN.
func NewRangeFilter(column string, low, high float64) (RangeFilter, error) {
	if math.IsNaN(low) || math.IsNaN(high) || low > high {
		return RangeFilter{}, &InvalidRangeError{Column: column, Low: low, High: high}
	}
	return RangeFilter{column: column, low: low, high: high}, nil
}

func (f RangeFilter) Column() string { return f.column }
func (f RangeFilter) Active() bool   { return true }

// Bounds returns the inclusive interval.
func (f RangeFilter) Bounds() (low, high float64) { return f.low, f.high }

func (f RangeFilter) Match(view RecordView, i int) bool {
	v := view.Measure(i, f.column)
	return v >= f.low && v <= f.high
}

func (f RangeFilter) validate(view RecordView) error {
	if !hasMeasure(view, f.column) {
		return fmt.Errorf("range filter on %q: %w", f.column, ErrUnknownColumn)
	}
	return nil
}

// Apply returns the ordered sub-sequence of records for which every predicate
// holds. The input view is never mutated. With no active predicates the
// input view itself is returned.
func Apply(view RecordView, predicates ...Predicate) (RecordView, error) {
	active := make([]Predicate, 0, len(predicates))
	for _, p := range predicates {
		if err := p.validate(view); err != nil {
			return nil, err
		}
		if p.Active() {
			active = append(active, p)
		}
	}
	if len(active) == 0 {
		return view, nil
	}

	n := view.Len()
	indices := make([]int, 0, n)
	for i := 0; i < n; i++ {
		pass := true
		for _, p := range active {
			if !p.Match(view, i) {
				pass = false
				break
			}
		}
		if pass {
			indices = append(indices, i)
		}
	}

	return newSubView(view, indices), nil
}

// ApplyFilters builds the predicate set from filters and applies it.
func ApplyFilters(view RecordView, filters Filters) (RecordView, error) {
	preds, err := filters.Predicates()
	if err != nil {
		return nil, err
	}
	return Apply(view, preds...)
}
