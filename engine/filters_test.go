package engine

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// FIXTURES
// ============================================================================

func incident(country, attack string, year, loss, users float64) Record {
	return Record{
		Dimensions: map[string]string{"country": country, "attack_type": attack},
		Measures:   map[string]float64{"year": year, "financial_loss": loss, "affected_users": users},
	}
}

func sampleView() RecordView {
	return NewSliceView([]Record{
		incident("US", "Phishing", 2019, 10, 100),
		incident("US", "Ransomware", 2020, 20, 200),
		incident("DE", "Phishing", 2021, 5, 50),
		incident("UK", "DDoS", 2020, 40, 1000),
		incident("DE", "Malware", 2022, 7.5, 75),
	})
}

// rows returns the countries of every record, in view order.
func rows(view RecordView) []string {
	out := make([]string, view.Len())
	for i := range out {
		out[i] = view.Dimension(i, "country")
	}
	return out
}

func mustRange(t *testing.T, col string, low, high float64) RangeFilter {
	t.Helper()
	f, err := NewRangeFilter(col, low, high)
	require.NoError(t, err)
	return f
}

// ============================================================================
// PREDICATES
// ============================================================================

func TestMembershipFilter(t *testing.T) {
	view := sampleView()

	f := NewMembershipFilter("country", "US", "US", "UK")
	assert.True(t, f.Active())
	assert.Equal(t, []string{"US", "UK"}, f.Values())
	assert.True(t, f.Match(view, 0))
	assert.False(t, f.Match(view, 2))
	assert.True(t, f.Match(view, 3))

	// Matching is exact.
	assert.False(t, NewMembershipFilter("country", "us").Match(view, 0))
}

func TestEmptyMembershipFilterPassesEverything(t *testing.T) {
	view := sampleView()

	f := NewMembershipFilter("country")
	assert.False(t, f.Active())
	for i := 0; i < view.Len(); i++ {
		assert.True(t, f.Match(view, i))
	}

	got, err := Apply(view, f)
	require.NoError(t, err)
	assert.Equal(t, rows(view), rows(got))
}

func TestRangeFilterIsInclusive(t *testing.T) {
	view := sampleView()

	f := mustRange(t, "year", 2020, 2021)
	low, high := f.Bounds()
	assert.Equal(t, 2020.0, low)
	assert.Equal(t, 2021.0, high)

	var matched []int
	for i := 0; i < view.Len(); i++ {
		if f.Match(view, i) {
			matched = append(matched, i)
		}
	}
	assert.Equal(t, []int{1, 2, 3}, matched)
}

func TestNewRangeFilterRejectsInvertedBounds(t *testing.T) {
	_, err := NewRangeFilter("financial_loss", 100, 10)
	require.Error(t, err)

	var rangeErr *InvalidRangeError
	require.True(t, errors.As(err, &rangeErr))
	assert.Equal(t, "financial_loss", rangeErr.Column)
	assert.Equal(t, 100.0, rangeErr.Low)
	assert.Equal(t, 10.0, rangeErr.High)
	assert.True(t, IsRecoverable(err))

	_, err = NewRangeFilter("year", 2020, 2020)
	assert.NoError(t, err, "degenerate interval is valid")
}

// ============================================================================
// APPLY
// ============================================================================

func TestApplyPreservesOrderAndNeverDuplicates(t *testing.T) {
	view := sampleView()

	predicateSets := [][]Predicate{
		nil,
		{NewMembershipFilter("country", "DE", "US")},
		{mustRange(t, "financial_loss", 6, 30)},
		{NewMembershipFilter("attack_type", "Phishing"), mustRange(t, "year", 2019, 2021)},
		{NewMembershipFilter("country", "FR")},
	}

	for _, preds := range predicateSets {
		got, err := Apply(view, preds...)
		require.NoError(t, err)

		sub, ok := got.(*SubView)
		if !ok {
			assert.Equal(t, view.Len(), got.Len())
			continue
		}
		prev := -1
		for i := 0; i < sub.Len(); i++ {
			idx := sub.Index(i)
			assert.Greater(t, idx, prev, "indices must strictly increase")
			prev = idx
			assert.Equal(t, view.Dimension(idx, "country"), sub.Dimension(i, "country"))
		}
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	view := sampleView()
	preds := []Predicate{
		NewMembershipFilter("country", "US", "UK"),
		mustRange(t, "year", 2020, 2022),
	}

	first, err := Apply(view, preds...)
	require.NoError(t, err)
	second, err := Apply(view, preds...)
	require.NoError(t, err)

	if diff := cmp.Diff(rows(first), rows(second)); diff != "" {
		t.Errorf("repeated apply differs (-first +second):\n%s", diff)
	}
	assert.Equal(t, []string{"US", "UK"}, rows(first))
}

func TestApplyCombinesWithAnd(t *testing.T) {
	got, err := Apply(sampleView(),
		NewMembershipFilter("country", "US", "DE"),
		NewMembershipFilter("attack_type", "Phishing"),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"US", "DE"}, rows(got))
	assert.Equal(t, 2019.0, got.Measure(0, "year"))
	assert.Equal(t, 2021.0, got.Measure(1, "year"))
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	view := sampleView()
	before := rows(view)

	_, err := Apply(view, NewMembershipFilter("country", "DE"))
	require.NoError(t, err)
	assert.Equal(t, before, rows(view))
}

func TestApplyUnknownColumn(t *testing.T) {
	_, err := Apply(sampleView(), NewMembershipFilter("severity", "high"))
	assert.ErrorIs(t, err, ErrUnknownColumn)

	_, err = Apply(sampleView(), mustRange(t, "country", 0, 1))
	assert.ErrorIs(t, err, ErrUnknownColumn, "range filters need a numeric column")
}

func TestApplyYearScenario(t *testing.T) {
	view := NewSliceView([]Record{
		incident("US", "Phishing", 2019, 1, 1),
		incident("DE", "Phishing", 2020, 2, 2),
		incident("UK", "Phishing", 2021, 3, 3),
	})

	got, err := Apply(view, mustRange(t, "year", 2020, 2020))
	require.NoError(t, err)
	assert.Equal(t, []string{"DE"}, rows(got))
}

func TestApplyNoMatchesYieldsEmptyView(t *testing.T) {
	got, err := Apply(sampleView(), NewMembershipFilter("country", "FR"))
	require.NoError(t, err)
	assert.True(t, IsEmpty(got))

	_, err = Count(got)
	assert.ErrorIs(t, err, ErrEmptyView)
	_, err = Sum(got, "affected_users")
	assert.ErrorIs(t, err, ErrEmptyView)
	_, err = Total(got, "financial_loss")
	assert.ErrorIs(t, err, ErrEmptyView)
	_, err = Mean(got, "financial_loss")
	assert.ErrorIs(t, err, ErrEmptyView)
	_, err = Frequency(got, "attack_type")
	assert.ErrorIs(t, err, ErrEmptyView)
	_, err = GroupedSum(got, "country", "financial_loss")
	assert.ErrorIs(t, err, ErrEmptyView)
	_, err = GroupedMean(got, "country", "financial_loss")
	assert.ErrorIs(t, err, ErrEmptyView)
	_, err = TopN(got, "financial_loss", 3, nil)
	assert.ErrorIs(t, err, ErrEmptyView)
	_, err = TopN(got, "financial_loss", 0, nil)
	assert.ErrorIs(t, err, ErrEmptyView, "the empty view wins over a bad limit")
	_, err = TimeSeries(got, "year")
	assert.ErrorIs(t, err, ErrEmptyView)
	_, err = Describe(got, "financial_loss")
	assert.ErrorIs(t, err, ErrEmptyView)
	assert.True(t, IsRecoverable(err))
}

// ============================================================================
// FILTERS
// ============================================================================

func TestFiltersPredicates(t *testing.T) {
	filters := Filters{
		Dimensions: map[string][]string{"country": {"US"}, "attack_type": {}},
		Ranges:     map[string]Range{"year": {Min: 2019, Max: 2020}},
	}

	assert.True(t, filters.HasFilter("country"))
	assert.False(t, filters.HasFilter("attack_type"))
	assert.True(t, filters.HasFilter("year"))
	assert.False(t, filters.IsEmpty())
	assert.True(t, Filters{Dimensions: map[string][]string{"country": nil}}.IsEmpty())

	preds, err := filters.Predicates()
	require.NoError(t, err)
	cols := make([]string, len(preds))
	for i, p := range preds {
		cols[i] = p.Column()
	}
	assert.Equal(t, []string{"attack_type", "country", "year"}, cols)

	got, err := ApplyFilters(sampleView(), filters)
	require.NoError(t, err)
	assert.Equal(t, []string{"US", "US"}, rows(got))
}

func TestFiltersInvertedRange(t *testing.T) {
	_, err := ApplyFilters(sampleView(), Filters{Ranges: map[string]Range{"financial_loss": {Min: 100, Max: 10}}})

	var rangeErr *InvalidRangeError
	assert.ErrorAs(t, err, &rangeErr)
}
