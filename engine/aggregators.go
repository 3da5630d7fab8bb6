package engine

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strconv"
	"strings"
)

// ============================================================================
// AGGREGATORS: Fixed catalog of aggregates over a filtered RecordView
// ============================================================================
// Every aggregate is a pure function of its view. None depends on another's
// result. All fail with ErrEmptyView on a zero-length view and with
// ErrUnknownColumn when a column is absent or of the wrong kind.
// ============================================================================

// Count returns the number of records.
func Count(view RecordView) (int, error) {
	if IsEmpty(view) {
		return 0, ErrEmptyView
	}
	return view.Len(), nil
}

// Sum returns the unrounded sum of a numeric column.
func Sum(view RecordView, measure string) (float64, error) {
	if err := requireMeasure(view, measure); err != nil {
		return 0, err
	}
	return SumMeasure(view, measure), nil
}

// Total returns the sum of a numeric column rounded to 2 decimals.
func Total(view RecordView, measure string) (float64, error) {
	sum, err := Sum(view, measure)
	if err != nil {
		return 0, err
	}
	return RoundTo2(sum), nil
}

// Mean returns the mean of a numeric column rounded to 2 decimals.
func Mean(view RecordView, measure string) (float64, error) {
	if err := requireMeasure(view, measure); err != nil {
		return 0, err
	}
	return RoundTo2(AvgMeasure(view, measure)), nil
}

// Frequency counts records per distinct value of a column.
// Ordered by count descending; equal counts keep first-seen order.
func Frequency(view RecordView, dimension string) ([]Group, error) {
	if err := requireDimension(view, dimension); err != nil {
		return nil, err
	}
	groups := groupBySingle(view, dimension)
	for i := range groups {
		groups[i].Value = float64(groups[i].Count)
	}
	SortGroups(groups, SortValueDesc)
	return groups, nil
}

// GroupedSum sums a numeric column per distinct value of a grouping column.
// Ordered by sum descending; ties keep first-seen order.
func GroupedSum(view RecordView, groupBy, measure string) ([]Group, error) {
	if err := requireDimension(view, groupBy); err != nil {
		return nil, err
	}
	if err := requireMeasure(view, measure); err != nil {
		return nil, err
	}
	groups := groupBySingle(view, groupBy)
	for i := range groups {
		groups[i].Value = SumMeasure(groups[i].View, measure)
	}
	SortGroups(groups, SortValueDesc)
	return groups, nil
}

// GroupedMean averages a numeric column per distinct value of a grouping column.
// Ordered by the unrounded mean descending, then each value is rounded to 2 decimals.
func GroupedMean(view RecordView, groupBy, measure string) ([]Group, error) {
	if err := requireDimension(view, groupBy); err != nil {
		return nil, err
	}
	if err := requireMeasure(view, measure); err != nil {
		return nil, err
	}
	groups := groupBySingle(view, groupBy)
	for i := range groups {
		groups[i].Value = AvgMeasure(groups[i].View, measure)
	}
	SortGroups(groups, SortValueDesc)
	for i := range groups {
		groups[i].Value = RoundTo2(groups[i].Value)
	}
	return groups, nil
}

// TopN returns the n records with the largest value of measure, projected onto
// the given columns (all columns when projected is empty). Ordered by value
// descending; ties keep original record order. n larger than the view is clamped.
func TopN(view RecordView, measure string, n int, projected []string) ([]Record, error) {
	if err := requireMeasure(view, measure); err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, fmt.Errorf("top-n limit %d: %w", n, ErrInvalidArgument)
	}
	if len(projected) == 0 {
		projected = allColumns(view)
	}
	for _, col := range projected {
		if !hasDimension(view, col) && !hasMeasure(view, col) {
			return nil, fmt.Errorf("top-n projection %q: %w", col, ErrUnknownColumn)
		}
	}

	order := make([]int, view.Len())
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return view.Measure(order[a], measure) > view.Measure(order[b], measure)
	})
	if n > len(order) {
		n = len(order)
	}

	out := make([]Record, 0, n)
	for _, i := range order[:n] {
		out = append(out, project(view, i, projected))
	}
	return out, nil
}

// TimeSeries counts records per distinct value of a numeric time column,
// ordered ascending by that value.
func TimeSeries(view RecordView, timeColumn string) ([]Group, error) {
	if err := requireMeasure(view, timeColumn); err != nil {
		return nil, err
	}

	counts := make(map[float64]int)
	for i := 0; i < view.Len(); i++ {
		counts[view.Measure(i, timeColumn)]++
	}

	groups := make([]Group, 0, len(counts))
	for p, n := range counts {
		key := strconv.FormatFloat(p, 'f', -1, 64)
		groups = append(groups, Group{
			Key:   key,
			Label: key,
			Value: float64(n),
			Count: n,
		})
	}
	SortGroups(groups, SortNumericAsc)
	return groups, nil
}

// Describe computes count, mean, sample standard deviation, min, quartiles
// and max of a numeric column. Percentiles use linear interpolation.
// A single record has a standard deviation of 0.
func Describe(view RecordView, measure string) (Stats, error) {
	if err := requireMeasure(view, measure); err != nil {
		return Stats{}, err
	}

	n := view.Len()
	values := make([]float64, n)
	for i := range values {
		values[i] = view.Measure(i, measure)
	}
	slices.Sort(values)

	mean := AvgMeasure(view, measure)
	var std float64
	if n > 1 {
		var sq float64
		for _, v := range values {
			sq += (v - mean) * (v - mean)
		}
		std = math.Sqrt(sq / float64(n-1))
	}

	return Stats{
		Count:  n,
		Mean:   mean,
		Std:    std,
		Min:    values[0],
		P25:    percentile(values, 0.25),
		Median: percentile(values, 0.50),
		P75:    percentile(values, 0.75),
		Max:    values[n-1],
	}, nil
}

// percentile expects sorted, non-empty input.
func percentile(sorted []float64, p float64) float64 {
	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}

// ============================================================================
// GROUPING
// ============================================================================

// groupBySingle groups records by a column, keeping first-seen group order.
func groupBySingle(view RecordView, dimension string) []Group {
	grouped := make(map[string][]int)
	order := make([]string, 0)

	for i := 0; i < view.Len(); i++ {
		key := view.Dimension(i, dimension)
		if _, exists := grouped[key]; !exists {
			order = append(order, key)
		}
		grouped[key] = append(grouped[key], i)
	}

	groups := make([]Group, 0, len(order))
	for _, key := range order {
		groups = append(groups, Group{
			Key:   key,
			Label: key,
			Count: len(grouped[key]),
			View:  newSubView(view, grouped[key]),
		})
	}
	return groups
}

func project(view RecordView, i int, columns []string) Record {
	rec := Record{Row: i}
	for _, col := range columns {
		if hasMeasure(view, col) {
			if rec.Measures == nil {
				rec.Measures = make(map[string]float64)
			}
			rec.Measures[col] = view.Measure(i, col)
			continue
		}
		if rec.Dimensions == nil {
			rec.Dimensions = make(map[string]string)
		}
		rec.Dimensions[col] = view.Dimension(i, col)
	}
	return rec
}

func allColumns(view RecordView) []string {
	cols := slices.Clone(view.DimensionKeys())
	for _, k := range view.MeasureKeys() {
		if !slices.Contains(cols, k) {
			cols = append(cols, k)
		}
	}
	return cols
}

func requireDimension(view RecordView, dimension string) error {
	if IsEmpty(view) {
		return ErrEmptyView
	}
	if !hasDimension(view, dimension) {
		return fmt.Errorf("column %q: %w", dimension, ErrUnknownColumn)
	}
	return nil
}

func requireMeasure(view RecordView, measure string) error {
	if IsEmpty(view) {
		return ErrEmptyView
	}
	if !hasMeasure(view, measure) {
		return fmt.Errorf("numeric column %q: %w", measure, ErrUnknownColumn)
	}
	return nil
}

// SumMeasure sums a named measure across a view.
func SumMeasure(view RecordView, measure string) float64 {
	var total float64
	for i := 0; i < view.Len(); i++ {
		total += view.Measure(i, measure)
	}
	return total
}

// AvgMeasure computes the average of a named measure. Returns 0 for an empty view.
func AvgMeasure(view RecordView, measure string) float64 {
	n := view.Len()
	if n == 0 {
		return 0
	}
	return SumMeasure(view, measure) / float64(n)
}

// ============================================================================
// SORTING
// ============================================================================

// Sort modes for SortGroups.
const (
	SortValueDesc  = "value_desc"
	SortNumericAsc = "numeric_asc" // keys parsed as numbers, e.g. years
)

// SortGroups sorts groups in place. Sorting is stable, so ties keep their
// incoming (first-seen) order. Unknown modes preserve grouping order.
func SortGroups(groups []Group, sortBy string) {
	switch sortBy {
	case SortValueDesc:
		sort.SliceStable(groups, func(i, j int) bool { return groups[i].Value > groups[j].Value })
	case SortNumericAsc:
		sort.SliceStable(groups, func(i, j int) bool { return numericKey(groups[i].Key) < numericKey(groups[j].Key) })
	}
}

func numericKey(key string) float64 {
	f, err := strconv.ParseFloat(key, 64)
	if err != nil {
		return math.Inf(1)
	}
	return f
}

// Head returns at most n groups; n <= 0 returns all.
func Head(groups []Group, n int) []Group {
	if n > 0 && len(groups) > n {
		return groups[:n]
	}
	return groups
}

// ============================================================================
// FORMATTING UTILITIES
// ============================================================================

// FormatAmount formats an amount with comma separators and 2 decimals.
func FormatAmount(amount float64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	cents := int64(math.Round(amount * 100))
	intPart := cents / 100
	decPart := cents % 100

	result := fmt.Sprintf("%s.%02d", FormatInt(int(intPart)), decPart)
	if negative {
		result = "-" + result
	}
	return result
}

// FormatInt formats an integer with comma separators.
func FormatInt(n int) string {
	if n < 0 {
		return "-" + FormatInt(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%s,%03d", FormatInt(n/1000), n%1000)
}

// RoundTo2 rounds to 2 decimal places.
func RoundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}

// UniqueValues returns distinct non-empty values for a column in first-seen order.
func UniqueValues(view RecordView, dimension string) []string {
	seen := make(map[string]bool)
	var result []string
	for i := 0; i < view.Len(); i++ {
		val := view.Dimension(i, dimension)
		if val != "" && !seen[val] {
			seen[val] = true
			result = append(result, val)
		}
	}
	return result
}

// LabelForDimension returns a capitalized label for a column key.
func LabelForDimension(dimension string) string {
	if len(dimension) == 0 {
		return ""
	}
	return strings.ToUpper(dimension[:1]) + strings.ReplaceAll(dimension[1:], "_", " ")
}
