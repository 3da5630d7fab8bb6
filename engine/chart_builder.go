package engine

// ============================================================================
// CHART BUILDER: ChartSpec + Groups -> ChartConfig
// ============================================================================
// Builders only reshape aggregate output. They never filter or aggregate.
// ============================================================================

// Chart kinds understood by presenters.
const (
	ChartBar  = "bar"
	ChartLine = "line"
)

// seriesColor matches the accent of the terminal presenter.
const seriesColor = "#2196F3"

// ChartSpec describes one chart of the dashboard.
type ChartSpec struct {
	Type   string // bar or line; defaults to bar
	Title  string
	XAxis  string
	YAxis  string
	Series string // series name; defaults to YAxis, then "Value"
}

func (s ChartSpec) kind() string {
	if s.Type == "" {
		return ChartBar
	}
	return s.Type
}

func (s ChartSpec) seriesName() string {
	switch {
	case s.Series != "":
		return s.Series
	case s.YAxis != "":
		return s.YAxis
	default:
		return "Value"
	}
}

// BuildChart turns aggregated groups into a single-series chart, values
// rounded to 2 dp. Returns nil for no groups.
func BuildChart(spec ChartSpec, groups []Group) *ChartConfig {
	if len(groups) == 0 {
		return nil
	}

	points := make([]ChartPoint, len(groups))
	for i, g := range groups {
		points[i] = ChartPoint{Label: g.Label, Value: RoundTo2(g.Value)}
	}

	return &ChartConfig{
		ChartType: spec.kind(),
		Title:     spec.Title,
		XAxis:     spec.XAxis,
		YAxis:     spec.YAxis,
		Series:    []ChartSeries{{Name: spec.seriesName(), Data: points, Color: seriesColor}},
		Colors:    []string{seriesColor},
		ShowGrid:  true,
	}
}
