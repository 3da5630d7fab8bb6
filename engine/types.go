package engine

import (
	"maps"
	"slices"
)

// ============================================================================
// ENGINE TYPES: Records, filters, groups, render-ready payloads
// ============================================================================

// Record is a single data row with string dimensions and numeric measures.
// Used for ad-hoc views and as the projected row returned by TopN.
type Record struct {
	Row        int                `json:"row"` // position in the view it was read from
	Dimensions map[string]string  `json:"dimensions,omitempty"`
	Measures   map[string]float64 `json:"measures,omitempty"`
}

// ============================================================================
// FILTERS: Column → predicate mapping
// ============================================================================

// Range is a closed interval [Min, Max] over a numeric column.
type Range struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Filters is the active filter criteria.
// Dimensions: OR within a column, AND across columns. Empty value list = no constraint.
// Ranges: closed interval per numeric column, AND with everything else.
type Filters struct {
	Dimensions map[string][]string `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
	Ranges     map[string]Range    `json:"ranges,omitempty" yaml:"ranges,omitempty"`
}

// HasFilter returns true if a constraining filter is set on column.
func (f Filters) HasFilter(column string) bool {
	if vals, ok := f.Dimensions[column]; ok && len(vals) > 0 {
		return true
	}
	_, ok := f.Ranges[column]
	return ok
}

// IsEmpty returns true if no constraining filters are set.
func (f Filters) IsEmpty() bool {
	for _, vals := range f.Dimensions {
		if len(vals) > 0 {
			return false
		}
	}
	return len(f.Ranges) == 0
}

// Predicates builds the predicate set, ordered by column for determinism.
// Fails with *InvalidRangeError if any range is inverted.
func (f Filters) Predicates() ([]Predicate, error) {
	preds := make([]Predicate, 0, len(f.Dimensions)+len(f.Ranges))
	for _, col := range sortedKeys(f.Dimensions) {
		preds = append(preds, NewMembershipFilter(col, f.Dimensions[col]...))
	}
	for _, col := range sortedKeys(f.Ranges) {
		r := f.Ranges[col]
		rf, err := NewRangeFilter(col, r.Min, r.Max)
		if err != nil {
			return nil, err
		}
		preds = append(preds, rf)
	}
	return preds, nil
}

// ============================================================================
// GROUP: Intermediate computation result
// ============================================================================

// Group is one row of a frequency, grouped-sum, grouped-mean or time-series table.
// Builders convert these into ChartConfig or TableData.
type Group struct {
	Key   string     `json:"key"`
	Label string     `json:"label"`
	Value float64    `json:"value"`
	Count int        `json:"count"`
	View  RecordView `json:"-"` // Sub-view for records in this group (zero-copy)
}

// Stats is the descriptive summary of one numeric column.
type Stats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	P25    float64 `json:"p25"`
	Median float64 `json:"median"`
	P75    float64 `json:"p75"`
	Max    float64 `json:"max"`
}

// ============================================================================
// CHART TYPES
// ============================================================================

// ChartConfig defines how to render a chart.
type ChartConfig struct {
	ChartType  string        `json:"chartType"`
	Title      string        `json:"title"`
	XAxis      string        `json:"xAxis,omitempty"`
	YAxis      string        `json:"yAxis,omitempty"`
	Series     []ChartSeries `json:"series"`
	Colors     []string      `json:"colors,omitempty"`
	ShowLegend bool          `json:"showLegend"`
	ShowGrid   bool          `json:"showGrid"`
}

// ChartSeries represents a data series in a chart.
type ChartSeries struct {
	Name  string       `json:"name"`
	Data  []ChartPoint `json:"data"`
	Color string       `json:"color,omitempty"`
}

// ChartPoint represents a single data point.
type ChartPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// ============================================================================
// TABLE TYPES
// ============================================================================

// TableData defines how to render a table.
type TableData struct {
	Title   string     `json:"title"`
	Columns []Column   `json:"columns"`
	Rows    [][]string `json:"rows"`
	Summary *Summary   `json:"summary,omitempty"`
}

// Column defines a table column.
type Column struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Type  string `json:"type"`  // "text", "number"
	Align string `json:"align"` // "left", "center", "right"
}

// Summary provides totals for a table.
type Summary struct {
	Label  string            `json:"label"`
	Values map[string]string `json:"values"`
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
