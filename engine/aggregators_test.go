package engine

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lossRecords(losses ...float64) RecordView {
	records := make([]Record, len(losses))
	for i, l := range losses {
		records[i] = Record{
			Dimensions: map[string]string{"id": string(rune('a' + i))},
			Measures:   map[string]float64{"financial_loss": l},
		}
	}
	return NewSliceView(records)
}

// ignoreViews drops the per-group sub-view from comparisons.
var ignoreViews = cmpopts.IgnoreFields(Group{}, "View")

// ============================================================================
// SCALARS
// ============================================================================

func TestScalarAggregates(t *testing.T) {
	view := sampleView()

	n, err := Count(view)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	total, err := Total(view, "financial_loss")
	require.NoError(t, err)
	assert.Equal(t, 82.5, total)

	mean, err := Mean(view, "financial_loss")
	require.NoError(t, err)
	assert.Equal(t, 16.5, mean)

	users, err := Sum(view, "affected_users")
	require.NoError(t, err)
	assert.Equal(t, 1425.0, users)
}

func TestTotalAndMeanRoundToTwoDecimals(t *testing.T) {
	view := lossRecords(0.111, 0.222, 0.333)

	total, err := Total(view, "financial_loss")
	require.NoError(t, err)
	assert.Equal(t, 0.67, total)

	mean, err := Mean(view, "financial_loss")
	require.NoError(t, err)
	assert.Equal(t, 0.22, mean)
}

func TestAggregatesRejectUnknownColumns(t *testing.T) {
	view := sampleView()

	_, err := Total(view, "country")
	assert.ErrorIs(t, err, ErrUnknownColumn)
	_, err = Frequency(view, "severity")
	assert.ErrorIs(t, err, ErrUnknownColumn)
	_, err = GroupedSum(view, "country", "attack_type")
	assert.ErrorIs(t, err, ErrUnknownColumn)
	_, err = TopN(view, "financial_loss", 2, []string{"severity"})
	assert.ErrorIs(t, err, ErrUnknownColumn)
	assert.False(t, IsRecoverable(err))
}

// ============================================================================
// GROUPED
// ============================================================================

func TestFrequencyOrdersByCountThenFirstSeen(t *testing.T) {
	got, err := Frequency(sampleView(), "country")
	require.NoError(t, err)

	want := []Group{
		{Key: "US", Label: "US", Value: 2, Count: 2},
		{Key: "DE", Label: "DE", Value: 2, Count: 2},
		{Key: "UK", Label: "UK", Value: 1, Count: 1},
	}
	if diff := cmp.Diff(want, got, ignoreViews); diff != "" {
		t.Errorf("Frequency mismatch (-want +got):\n%s", diff)
	}
}

func TestFrequencyCountsSumToTotalCount(t *testing.T) {
	view := sampleView()
	for _, col := range []string{"country", "attack_type"} {
		groups, err := Frequency(view, col)
		require.NoError(t, err)

		var sum int
		for _, g := range groups {
			sum += g.Count
		}
		n, err := Count(view)
		require.NoError(t, err)
		assert.Equal(t, n, sum, col)
	}
}

func TestGroupedSumPartitionsTotal(t *testing.T) {
	view := sampleView()

	groups, err := GroupedSum(view, "attack_type", "financial_loss")
	require.NoError(t, err)

	var sum float64
	for _, g := range groups {
		sum += g.Value
	}
	total, err := Total(view, "financial_loss")
	require.NoError(t, err)
	assert.InDelta(t, total, RoundTo2(sum), 1e-9)

	assert.Equal(t, "DDoS", groups[0].Key)
	for i := 1; i < len(groups); i++ {
		assert.GreaterOrEqual(t, groups[i-1].Value, groups[i].Value)
	}
}

func TestGroupedSumSubViewsCoverGroupRecords(t *testing.T) {
	groups, err := GroupedSum(sampleView(), "country", "financial_loss")
	require.NoError(t, err)

	for _, g := range groups {
		require.Equal(t, g.Count, g.View.Len())
		for i := 0; i < g.View.Len(); i++ {
			assert.Equal(t, g.Key, g.View.Dimension(i, "country"))
		}
	}
}

func TestGroupedMean(t *testing.T) {
	view := NewSliceView([]Record{
		incident("US", "Phishing", 2020, 1, 0),
		incident("US", "Phishing", 2020, 2, 0),
		incident("DE", "Phishing", 2020, 1.005, 0),
		incident("FR", "Phishing", 2020, 10, 0),
		incident("US", "Phishing", 2020, 1, 0),
	})

	got, err := GroupedMean(view, "country", "financial_loss")
	require.NoError(t, err)

	want := []Group{
		{Key: "FR", Label: "FR", Value: 10, Count: 1},
		{Key: "US", Label: "US", Value: 1.33, Count: 3},
		{Key: "DE", Label: "DE", Value: RoundTo2(1.005), Count: 1},
	}
	if diff := cmp.Diff(want, got, ignoreViews); diff != "" {
		t.Errorf("GroupedMean mismatch (-want +got):\n%s", diff)
	}
}

// ============================================================================
// SCENARIO: membership filter then aggregate
// ============================================================================

func TestMembershipThenAggregateScenario(t *testing.T) {
	view := NewSliceView([]Record{
		{Dimensions: map[string]string{"country": "US"}, Measures: map[string]float64{"financial_loss": 10}},
		{Dimensions: map[string]string{"country": "US"}, Measures: map[string]float64{"financial_loss": 20}},
		{Dimensions: map[string]string{"country": "DE"}, Measures: map[string]float64{"financial_loss": 5}},
	})

	filtered, err := Apply(view, NewMembershipFilter("country", "US"))
	require.NoError(t, err)
	assert.Equal(t, 2, filtered.Len())

	total, err := Total(filtered, "financial_loss")
	require.NoError(t, err)
	assert.Equal(t, 30.0, total)

	groups, err := GroupedSum(filtered, "country", "financial_loss")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "US", groups[0].Key)
	assert.Equal(t, 30.0, groups[0].Value)
}

// ============================================================================
// TOP N
// ============================================================================

func TestTopN(t *testing.T) {
	got, err := TopN(lossRecords(5, 50, 30), "financial_loss", 2, []string{"id", "financial_loss"})
	require.NoError(t, err)

	want := []Record{
		{Row: 1, Dimensions: map[string]string{"id": "b"}, Measures: map[string]float64{"financial_loss": 50}},
		{Row: 2, Dimensions: map[string]string{"id": "c"}, Measures: map[string]float64{"financial_loss": 30}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("TopN mismatch (-want +got):\n%s", diff)
	}
}

func TestTopNTiesKeepRecordOrder(t *testing.T) {
	got, err := TopN(lossRecords(7, 9, 7, 9, 1), "financial_loss", 4, []string{"id"})
	require.NoError(t, err)

	ids := make([]string, len(got))
	for i, r := range got {
		ids[i] = r.Dimensions["id"]
		assert.Nil(t, r.Measures, "unprojected measures are omitted")
	}
	assert.Equal(t, []string{"b", "d", "a", "c"}, ids)
}

func TestTopNClampsAndProjectsAll(t *testing.T) {
	got, err := TopN(lossRecords(1, 2), "financial_loss", 10, nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Dimensions["id"])
	assert.Equal(t, 2.0, got[0].Measures["financial_loss"])

	_, err = TopN(lossRecords(1, 2), "financial_loss", 0, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

// ============================================================================
// TIME SERIES
// ============================================================================

func TestTimeSeriesAscending(t *testing.T) {
	got, err := TimeSeries(sampleView(), "year")
	require.NoError(t, err)

	want := []Group{
		{Key: "2019", Label: "2019", Value: 1, Count: 1},
		{Key: "2020", Label: "2020", Value: 2, Count: 2},
		{Key: "2021", Label: "2021", Value: 1, Count: 1},
		{Key: "2022", Label: "2022", Value: 1, Count: 1},
	}
	if diff := cmp.Diff(want, got, ignoreViews); diff != "" {
		t.Errorf("TimeSeries mismatch (-want +got):\n%s", diff)
	}
}

// ============================================================================
// DESCRIBE
// ============================================================================

func TestDescribe(t *testing.T) {
	stats, err := Describe(lossRecords(4, 1, 3, 2), "financial_loss")
	require.NoError(t, err)

	assert.Equal(t, 4, stats.Count)
	assert.Equal(t, 2.5, stats.Mean)
	assert.InDelta(t, math.Sqrt(5.0/3.0), stats.Std, 1e-12)
	assert.Equal(t, 1.0, stats.Min)
	assert.Equal(t, 1.75, stats.P25)
	assert.Equal(t, 2.5, stats.Median)
	assert.Equal(t, 3.25, stats.P75)
	assert.Equal(t, 4.0, stats.Max)
}

func TestDescribeSingleRecord(t *testing.T) {
	stats, err := Describe(lossRecords(42), "financial_loss")
	require.NoError(t, err)

	assert.Equal(t, Stats{Count: 1, Mean: 42, Min: 42, P25: 42, Median: 42, P75: 42, Max: 42}, stats)
}

// ============================================================================
// HELPERS
// ============================================================================

func TestSortGroupsIsStable(t *testing.T) {
	groups := []Group{
		{Key: "b", Value: 1}, {Key: "a", Value: 2}, {Key: "c", Value: 1}, {Key: "10"}, {Key: "9"},
	}
	keys := func() []string {
		out := make([]string, len(groups))
		for i, g := range groups {
			out[i] = g.Key
		}
		return out
	}

	SortGroups(groups, SortValueDesc)
	assert.Equal(t, []string{"a", "b", "c", "10", "9"}, keys())

	SortGroups(groups, SortNumericAsc)
	assert.Equal(t, []string{"9", "10", "a", "b", "c"}, keys())

	assert.Len(t, Head(groups, 2), 2)
	assert.Len(t, Head(groups, 0), 5)
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "1,234,567", FormatInt(1234567))
	assert.Equal(t, "-1,000", FormatInt(-1000))
	assert.Equal(t, "999", FormatInt(999))
	assert.Equal(t, "1,234.50", FormatAmount(1234.5))
	assert.Equal(t, "-0.25", FormatAmount(-0.25))
	assert.Equal(t, 2.35, RoundTo2(2.345000001))
	assert.Equal(t, "12", FormatNumber(12))
	assert.Equal(t, "12.35", FormatNumber(12.346))
	assert.Equal(t, "Attack type", LabelForDimension("attack_type"))
}

func TestUniqueValuesFirstSeen(t *testing.T) {
	assert.Equal(t, []string{"US", "DE", "UK"}, UniqueValues(sampleView(), "country"))
}
