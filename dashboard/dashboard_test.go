package dashboard

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spektr-org/threatlens/engine"
	"github.com/spektr-org/threatlens/metrics"
	"github.com/spektr-org/threatlens/schema"
	"github.com/spektr-org/threatlens/store"
)

const incidentsCSV = `Country,Year,Attack Type,Target Industry,Financial Loss (in Million $),Number of Affected Users,Attack Source,Security Vulnerability Type,Defense Mechanism Used,Incident Resolution Time (in Hours)
USA,2019,Phishing,Banking,50.5,1000,Hacker Group,Weak Passwords,VPN,10
India,2020,Ransomware,Healthcare,20,2500,Insider,Zero-day,Firewall,24
UK,2021,Phishing,Retail,5,300,Unknown,Social Engineering,VPN,5
Germany,2018,DDoS,IT,12,400,Nation-state,Unpatched Software,Antivirus,8
USA,2022,Malware,Education,7.25,1200,Hacker Group,Zero-day,Encryption,36
USA,2020,Ransomware,Banking,30,5000,Insider,Zero-day,Firewall,12
`

func loadStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Read(strings.NewReader(incidentsCSV), "inline")
	require.NoError(t, err)
	return s
}

func chartPoints(t *testing.T, res *Result, id string) []engine.ChartPoint {
	t.Helper()
	p, ok := res.Panel(id)
	require.True(t, ok, "panel %s", id)
	require.NotNil(t, p.Chart, "panel %s has no chart", id)
	require.Len(t, p.Chart.Series, 1)
	return p.Chart.Series[0].Data
}

func tableRows(t *testing.T, res *Result, id string) [][]string {
	t.Helper()
	p, ok := res.Panel(id)
	require.True(t, ok, "panel %s", id)
	require.NotNil(t, p.Table, "panel %s has no table", id)
	return p.Table.Rows
}

// ============================================================================
// BUILD
// ============================================================================

func TestBuildFullDataset(t *testing.T) {
	res, err := Build(loadStore(t), engine.Filters{}, WithTopN(3), WithIndustryLimit(2))
	require.NoError(t, err)

	assert.False(t, res.Empty)
	assert.Equal(t, Shape{Rows: 6, Columns: 10}, res.Shape)
	assert.Equal(t, &KeyMetrics{
		TotalIncidents:     6,
		TotalLoss:          124.75,
		AverageLoss:        20.79,
		TotalAffectedUsers: 10400,
		AffectedUsersLabel: "10,400",
	}, res.Metrics)

	require.NotNil(t, res.Resolution)
	assert.Equal(t, 15.83, res.Resolution.Average)
	assert.Equal(t, 11.0, res.Resolution.Median)
	assert.Equal(t, 36.0, res.Resolution.Longest)
	assert.Equal(t, 6, res.Resolution.Stats.Count)

	ids := make([]string, 0, len(res.Panels))
	for _, p := range res.Panels {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{
		PanelAttackTypes, PanelLossByCountry, PanelTopIndustries, PanelAttackSources, PanelAttacksOverTime,
		PanelVulnerabilities, PanelDefenseMechanisms, PanelTopCostly, PanelAvgLossByAttack, PanelIncidentsByCountry,
	}, ids)
	assert.Nil(t, res.Rows)
}

func TestBuildPanels(t *testing.T) {
	res, err := Build(loadStore(t), engine.Filters{}, WithTopN(3), WithIndustryLimit(2))
	require.NoError(t, err)

	tests := []struct {
		id   string
		want []engine.ChartPoint
	}{
		{PanelAttackTypes, []engine.ChartPoint{{Label: "Phishing", Value: 2}, {Label: "Ransomware", Value: 2}, {Label: "DDoS", Value: 1}, {Label: "Malware", Value: 1}}},
		{PanelLossByCountry, []engine.ChartPoint{{Label: "USA", Value: 87.75}, {Label: "India", Value: 20}, {Label: "Germany", Value: 12}, {Label: "UK", Value: 5}}},
		{PanelTopIndustries, []engine.ChartPoint{{Label: "Banking", Value: 2}, {Label: "Healthcare", Value: 1}}},
		{PanelAttacksOverTime, []engine.ChartPoint{{Label: "2018", Value: 1}, {Label: "2019", Value: 1}, {Label: "2020", Value: 2}, {Label: "2021", Value: 1}, {Label: "2022", Value: 1}}},
		{PanelVulnerabilities, []engine.ChartPoint{{Label: "Zero-day", Value: 3}, {Label: "Weak Passwords", Value: 1}, {Label: "Social Engineering", Value: 1}, {Label: "Unpatched Software", Value: 1}}},
		{PanelDefenseMechanisms, []engine.ChartPoint{{Label: "VPN", Value: 2}, {Label: "Firewall", Value: 2}, {Label: "Antivirus", Value: 1}, {Label: "Encryption", Value: 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, chartPoints(t, res, tt.id)); diff != "" {
				t.Errorf("points mismatch (-want +got):\n%s", diff)
			}
		})
	}

	over, _ := res.Panel(PanelAttacksOverTime)
	assert.Equal(t, engine.ChartLine, over.Chart.ChartType)
	assert.Equal(t, "Year", over.Chart.XAxis)

	assert.Equal(t, [][]string{{"Hacker Group", "2"}, {"Insider", "2"}, {"Unknown", "1"}, {"Nation-state", "1"}},
		tableRows(t, res, PanelAttackSources))
	assert.Equal(t, [][]string{{"USA", "3"}, {"India", "1"}, {"UK", "1"}, {"Germany", "1"}},
		tableRows(t, res, PanelIncidentsByCountry))

	costly, _ := res.Panel(PanelTopCostly)
	assert.Equal(t, "Top 3 Most Costly Incidents", costly.Title)
	labels := make([]string, 0, len(costly.Table.Columns))
	for _, c := range costly.Table.Columns {
		labels = append(labels, c.Label)
	}
	assert.Equal(t, []string{"Country", "Attack Type", "Target Industry", "Financial Loss (Million $)"}, labels)
	assert.Equal(t, [][]string{
		{"USA", "Phishing", "Banking", "50.50"},
		{"USA", "Ransomware", "Banking", "30"},
		{"India", "Ransomware", "Healthcare", "20"},
	}, costly.Table.Rows)

	avg, _ := res.Panel(PanelAvgLossByAttack)
	assert.Nil(t, avg.Table.Summary)
	assert.Equal(t, [][]string{
		{"Phishing", "27.75", "2"},
		{"Ransomware", "25.00", "2"},
		{"DDoS", "12.00", "1"},
		{"Malware", "7.25", "1"},
	}, avg.Table.Rows)
}

func TestBuildFiltered(t *testing.T) {
	filters := engine.Filters{
		Dimensions: map[string][]string{schema.Country: {"USA"}},
		Ranges:     map[string]engine.Range{schema.Year: {Min: 2020, Max: 2022}},
	}

	res, err := Build(loadStore(t), filters, WithRows())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Metrics.TotalIncidents)
	assert.Equal(t, 37.25, res.Metrics.TotalLoss)
	assert.Equal(t, 18.63, res.Metrics.AverageLoss)
	assert.Equal(t, "6,200", res.Metrics.AffectedUsersLabel)
	assert.Equal(t, Shape{Rows: 2, Columns: 10}, res.Shape)

	require.NotNil(t, res.Rows)
	assert.Equal(t, "Country", res.Rows.Columns[0].Label)
	require.Len(t, res.Rows.Rows, 2)
	assert.Equal(t, "2022", res.Rows.Rows[0][4])
	assert.Equal(t, "2 records", res.Rows.Summary.Label)

	costly, _ := res.Panel(PanelTopCostly)
	assert.Equal(t, "Top 5 Most Costly Incidents", costly.Title)
	assert.Len(t, costly.Table.Rows, 2, "clamped to the matching records")
}

func TestBuildErrors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	s := loadStore(t)

	_, err := Build(s, engine.Filters{Dimensions: map[string][]string{schema.Country: {"France"}}}, WithMetrics(m))
	assert.ErrorIs(t, err, engine.ErrEmptyView)

	_, err = Build(s, engine.Filters{Ranges: map[string]engine.Range{schema.FinancialLoss: {Min: 50, Max: 10}}})
	var rangeErr *engine.InvalidRangeError
	require.True(t, errors.As(err, &rangeErr))
	assert.Equal(t, schema.FinancialLoss, rangeErr.Column)

	_, err = Build(s, engine.Filters{Dimensions: map[string][]string{"severity": {"high"}}})
	assert.ErrorIs(t, err, engine.ErrUnknownColumn)

	_, err = Build(s, engine.Filters{}, WithMetrics(m))
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	got := make(map[string]float64)
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			if c := metric.GetCounter(); c != nil {
				got[mf.GetName()] += c.GetValue()
			}
			if h := metric.GetHistogram(); h != nil {
				got[mf.GetName()] += float64(h.GetSampleCount())
			}
		}
	}
	assert.Equal(t, 1.0, got["threatlens_empty_views_total"])
	assert.Equal(t, 2.0, got["threatlens_dashboard_duration_seconds"])
}

func TestBuildLogsConstrainedColumns(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	s := loadStore(t)

	_, err := Build(s, engine.Filters{Dimensions: map[string][]string{schema.AttackType: {}}}, WithLogger(zap.New(core)))
	require.NoError(t, err)
	built := logs.FilterMessage("dashboard built").TakeAll()
	require.Len(t, built, 1)
	assert.Equal(t, true, built[0].ContextMap()["unconstrained"], "an empty value list does not constrain")
	assert.Empty(t, built[0].ContextMap()["constrained"])

	_, err = Build(s, engine.Filters{
		Dimensions: map[string][]string{schema.Country: {"USA"}},
		Ranges:     map[string]engine.Range{schema.Year: {Min: 2020, Max: 2022}},
	}, WithLogger(zap.New(core)))
	require.NoError(t, err)
	built = logs.FilterMessage("dashboard built").TakeAll()
	require.Len(t, built, 1)
	assert.Equal(t, false, built[0].ContextMap()["unconstrained"])
	assert.Equal(t, []interface{}{schema.Country, schema.Year}, built[0].ContextMap()["constrained"])

	_, err = Build(s, engine.Filters{Dimensions: map[string][]string{schema.Country: {"France"}}}, WithLogger(zap.New(core)))
	require.ErrorIs(t, err, engine.ErrEmptyView)
	empty := logs.FilterMessage("selection matched no incidents").TakeAll()
	require.Len(t, empty, 1)
	assert.Equal(t, []interface{}{schema.Country}, empty[0].ContextMap()["constrained"])
}

func TestOptionsIgnoreNonPositive(t *testing.T) {
	cfg := applyOptions([]Option{WithTopN(0), WithIndustryLimit(-1), WithLogger(nil)})
	assert.Equal(t, 5, cfg.TopN)
	assert.Equal(t, 10, cfg.IndustryLimit)
	assert.NotNil(t, cfg.Logger)
	assert.False(t, cfg.Rows)
}
