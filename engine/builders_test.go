package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildChart(t *testing.T) {
	groups, err := Frequency(sampleView(), "attack_type")
	require.NoError(t, err)

	chart := BuildChart(ChartSpec{Type: ChartLine, Title: "Attack Types", YAxis: "Incidents"}, groups)
	require.NotNil(t, chart)
	assert.Equal(t, ChartLine, chart.ChartType)
	assert.False(t, chart.ShowLegend)
	assert.True(t, chart.ShowGrid)
	require.Len(t, chart.Series, 1)
	assert.Equal(t, "Incidents", chart.Series[0].Name)
	assert.Equal(t, []string{chart.Series[0].Color}, chart.Colors)
	assert.Equal(t, ChartPoint{Label: "Phishing", Value: 2}, chart.Series[0].Data[0])

	bar := BuildChart(ChartSpec{Title: "Over time"}, groups)
	assert.Equal(t, ChartBar, bar.ChartType)
	assert.Equal(t, "Value", bar.Series[0].Name)

	assert.Nil(t, BuildChart(ChartSpec{}, nil))
}

func TestBuildGroupTable(t *testing.T) {
	groups, err := GroupedSum(sampleView(), "country", "financial_loss")
	require.NoError(t, err)

	table := BuildGroupTable(TableSpec{Title: "Loss by Country", GroupLabel: "Country", ValueLabel: "Loss"}, groups)
	assert.Equal(t, []string{"Country", "Loss", "Count"}, []string{table.Columns[0].Label, table.Columns[1].Label, table.Columns[2].Label})
	assert.Equal(t, [][]string{
		{"UK", "40.00", "1"},
		{"US", "30.00", "2"},
		{"DE", "12.50", "2"},
	}, table.Rows)
	require.NotNil(t, table.Summary)
	assert.Equal(t, "82.50", table.Summary.Values["value"])
	assert.Equal(t, "5", table.Summary.Values["count"])

	freq, err := Frequency(sampleView(), "country")
	require.NoError(t, err)
	counts := BuildGroupTable(TableSpec{GroupLabel: "Country", ValueLabel: "Incidents", CountsOnly: true}, freq)
	require.Len(t, counts.Columns, 2)
	assert.Equal(t, "Incidents", counts.Columns[1].Label)
	assert.Equal(t, [][]string{{"US", "2"}, {"DE", "2"}, {"UK", "1"}}, counts.Rows)
	assert.Equal(t, "5", counts.Summary.Values["count"])

	empty := BuildGroupTable(TableSpec{Title: "none"}, nil)
	assert.Empty(t, empty.Rows)
	assert.Nil(t, empty.Summary)
}

func TestBuildRecordTable(t *testing.T) {
	top, err := TopN(sampleView(), "financial_loss", 2, []string{"country", "financial_loss"})
	require.NoError(t, err)

	labels := map[string]string{"country": "Country", "financial_loss": "Loss"}
	table := BuildRecordTable(TableSpec{Label: func(k string) string { return labels[k] }}, top, []string{"country", "financial_loss"})

	assert.Equal(t, "Loss", table.Columns[1].Label)
	assert.Equal(t, "number", table.Columns[1].Type)
	assert.Equal(t, [][]string{{"UK", "40"}, {"US", "20"}}, table.Rows)
}

func TestBuildViewTable(t *testing.T) {
	filtered, err := Apply(sampleView(), NewMembershipFilter("country", "DE"))
	require.NoError(t, err)

	table := BuildViewTable(TableSpec{}, filtered, []string{"country", "financial_loss"})
	assert.Equal(t, "Country", table.Columns[0].Label)
	assert.Equal(t, [][]string{{"DE", "5"}, {"DE", "7.50"}}, table.Rows)
	assert.Equal(t, "2 records", table.Summary.Label)
}
