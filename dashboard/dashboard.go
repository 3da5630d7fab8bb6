// Package dashboard assembles the incident dashboard: key metrics, resolution
// times, every chart and table panel, and the shape of the filtered view.
//
// Build is the single entry point. It filters once, then runs the whole
// aggregation catalog on the same sub-view. A selection that matches nothing
// short-circuits with engine.ErrEmptyView; callers render EmptyWarning.
package dashboard

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/spektr-org/threatlens/engine"
	"github.com/spektr-org/threatlens/schema"
)

// ============================================================================
// RESULT TYPES
// ============================================================================

// EmptyWarning is shown instead of the dashboard when no record matches.
const EmptyWarning = "No data available for the selected filters. Please adjust your selection."

// Panel IDs, in the order Build emits them.
const (
	PanelAttackTypes        = "attack_types"
	PanelLossByCountry      = "loss_by_country"
	PanelTopIndustries      = "top_industries"
	PanelAttackSources      = "attack_sources"
	PanelAttacksOverTime    = "attacks_over_time"
	PanelVulnerabilities    = "vulnerabilities"
	PanelDefenseMechanisms  = "defense_mechanisms"
	PanelTopCostly          = "top_costly_incidents"
	PanelAvgLossByAttack    = "avg_loss_by_attack"
	PanelIncidentsByCountry = "incidents_by_country"
)

// Source is what Build reads: any record view that knows its schema.
// *store.Store satisfies it.
type Source interface {
	engine.RecordView
	Schema() schema.Config
}

// Shape is the size of the filtered view.
type Shape struct {
	Rows    int `json:"rows"`
	Columns int `json:"columns"`
}

// KeyMetrics are the four headline numbers.
type KeyMetrics struct {
	TotalIncidents     int     `json:"totalIncidents"`
	TotalLoss          float64 `json:"totalLoss"`   // million $, 2 dp
	AverageLoss        float64 `json:"averageLoss"` // million $, 2 dp
	TotalAffectedUsers int     `json:"totalAffectedUsers"`
	AffectedUsersLabel string  `json:"affectedUsersLabel"` // thousands separated
}

// Resolution summarises incident resolution times in hours.
type Resolution struct {
	Average float64      `json:"average"`
	Median  float64      `json:"median"`
	Longest float64      `json:"longest"`
	Stats   engine.Stats `json:"stats"`
}

// Hours renders a resolution time, e.g. "12.50 hours".
func Hours(v float64) string {
	return fmt.Sprintf("%.2f hours", v)
}

// Panel is one chart or table of the dashboard. Exactly one of Chart and
// Table is set.
type Panel struct {
	ID    string              `json:"id"`
	Title string              `json:"title"`
	Chart *engine.ChartConfig `json:"chart,omitempty"`
	Table *engine.TableData   `json:"table,omitempty"`
}

// Result is the render-ready dashboard.
type Result struct {
	Empty      bool              `json:"empty"`
	Warning    string            `json:"warning,omitempty"`
	Shape      Shape             `json:"shape"`
	Metrics    *KeyMetrics       `json:"metrics,omitempty"`
	Resolution *Resolution       `json:"resolution,omitempty"`
	Panels     []Panel           `json:"panels,omitempty"`
	Rows       *engine.TableData `json:"rows,omitempty"`
}

// EmptyResult is the result presenters show for an empty selection.
func EmptyResult() *Result {
	return &Result{Empty: true, Warning: EmptyWarning}
}

// Panel looks up a panel by ID.
func (r *Result) Panel(id string) (Panel, bool) {
	for _, p := range r.Panels {
		if p.ID == id {
			return p, true
		}
	}
	return Panel{}, false
}

// ============================================================================
// BUILD: filter once, run the catalog
// ============================================================================
// Pipeline:
//   1. Apply filters → SubView (zero-copy)
//   2. Short-circuit on an empty view
//   3. Key metrics and resolution times
//   4. Panels, in catalog order
//   5. (Optional) the filtered rows themselves
// ============================================================================

// Build runs the dashboard catalog against src restricted to filters.
//
// Errors:
//   - *engine.InvalidRangeError for an inverted range
//   - engine.ErrUnknownColumn for a filter on an undeclared column
//   - engine.ErrEmptyView when no record matches
func Build(src Source, filters engine.Filters, opts ...Option) (*Result, error) {
	cfg := applyOptions(opts)
	log := cfg.Logger.Named("dashboard")
	started := time.Now()

	view, err := engine.ApplyFilters(src, filters)
	if err != nil {
		return nil, err
	}
	sch := src.Schema()
	constrained := zap.Strings("constrained", constrainedColumns(filters, sch))
	if engine.IsEmpty(view) {
		cfg.Metrics.ObserveDashboard(started, true)
		log.Info("selection matched no incidents", zap.Int("records", src.Len()), constrained)
		return nil, engine.ErrEmptyView
	}

	res := &Result{Shape: Shape{Rows: view.Len(), Columns: len(sch.Columns)}}

	if res.Metrics, err = keyMetrics(view); err != nil {
		return nil, err
	}
	if res.Resolution, err = resolution(view); err != nil {
		return nil, err
	}

	b := builder{view: view, schema: sch, cfg: cfg}
	res.Panels = make([]Panel, 0, len(catalog))
	for _, def := range catalog {
		panel, err := def.build(b, def.title)
		if err != nil {
			return nil, fmt.Errorf("panel %s: %w", def.id, err)
		}
		panel.ID = def.id
		if panel.Title == "" {
			panel.Title = def.title
		}
		res.Panels = append(res.Panels, panel)
	}

	if cfg.Rows {
		res.Rows = engine.BuildViewTable(engine.TableSpec{Title: "Filtered Data", Label: sch.Label}, view, sch.Keys())
	}

	cfg.Metrics.ObserveDashboard(started, false)
	log.Debug("dashboard built",
		zap.Int("records", src.Len()),
		zap.Int("matched", view.Len()),
		zap.Bool("unconstrained", filters.IsEmpty()),
		constrained,
		zap.Int("panels", len(res.Panels)),
		zap.Duration("took", time.Since(started)))
	return res, nil
}

// constrainedColumns lists, in schema order, the columns filters restrict.
func constrainedColumns(filters engine.Filters, sch schema.Config) []string {
	var out []string
	for _, key := range sch.Keys() {
		if filters.HasFilter(key) {
			out = append(out, key)
		}
	}
	return out
}

func keyMetrics(view engine.RecordView) (*KeyMetrics, error) {
	count, err := engine.Count(view)
	if err != nil {
		return nil, err
	}
	total, err := engine.Total(view, schema.FinancialLoss)
	if err != nil {
		return nil, err
	}
	avg, err := engine.Mean(view, schema.FinancialLoss)
	if err != nil {
		return nil, err
	}
	users, err := engine.Sum(view, schema.AffectedUsers)
	if err != nil {
		return nil, err
	}

	affected := int(math.Round(users))
	return &KeyMetrics{
		TotalIncidents:     count,
		TotalLoss:          total,
		AverageLoss:        avg,
		TotalAffectedUsers: affected,
		AffectedUsersLabel: engine.FormatInt(affected),
	}, nil
}

func resolution(view engine.RecordView) (*Resolution, error) {
	stats, err := engine.Describe(view, schema.ResolutionHours)
	if err != nil {
		return nil, err
	}
	return &Resolution{
		Average: engine.RoundTo2(stats.Mean),
		Median:  engine.RoundTo2(stats.Median),
		Longest: engine.RoundTo2(stats.Max),
		Stats:   stats,
	}, nil
}

// ============================================================================
// CATALOG: one entry per panel
// ============================================================================

// costlyColumns are the columns listed for the most costly incidents.
var costlyColumns = []string{schema.Country, schema.AttackType, schema.TargetIndustry, schema.FinancialLoss}

type builder struct {
	view   engine.RecordView
	schema schema.Config
	cfg    *config
}

type panelDef struct {
	id    string
	title string
	build func(b builder, title string) (Panel, error)
}

var catalog = []panelDef{
	{PanelAttackTypes, "Attack Types Distribution", frequencyChart(schema.AttackType, nil)},
	{PanelLossByCountry, "Total Financial Loss by Country", lossByCountry},
	{PanelTopIndustries, "Most Affected Industries", frequencyChart(schema.TargetIndustry, func(c *config) int { return c.IndustryLimit })},
	{PanelAttackSources, "Attack Sources Distribution", frequencyTable(schema.AttackSource)},
	{PanelAttacksOverTime, "Cyber Attacks Over Time", attacksOverTime},
	{PanelVulnerabilities, "Security Vulnerabilities", frequencyChart(schema.VulnerabilityType, nil)},
	{PanelDefenseMechanisms, "Defense Mechanisms Used", frequencyChart(schema.DefenseMechanism, nil)},
	{PanelTopCostly, "Most Costly Incidents", topCostly},
	{PanelAvgLossByAttack, "Average Financial Loss by Attack Type", avgLossByAttack},
	{PanelIncidentsByCountry, "Incidents by Country", frequencyTable(schema.Country)},
}

// frequencyChart counts incidents per value of column. A non-nil limit
// keeps only the most frequent values.
func frequencyChart(column string, limit func(*config) int) func(builder, string) (Panel, error) {
	return func(b builder, title string) (Panel, error) {
		groups, err := engine.Frequency(b.view, column)
		if err != nil {
			return Panel{}, err
		}
		if limit != nil {
			groups = engine.Head(groups, limit(b.cfg))
		}
		chart := engine.BuildChart(engine.ChartSpec{
			Type:  engine.ChartBar,
			Title: title,
			XAxis: b.schema.Label(column),
			YAxis: "Incidents",
		}, groups)
		return Panel{Chart: chart}, nil
	}
}

func frequencyTable(column string) func(builder, string) (Panel, error) {
	return func(b builder, title string) (Panel, error) {
		groups, err := engine.Frequency(b.view, column)
		if err != nil {
			return Panel{}, err
		}
		table := engine.BuildGroupTable(engine.TableSpec{
			Title:      title,
			GroupLabel: b.schema.Label(column),
			ValueLabel: "Incidents",
			CountsOnly: true,
		}, groups)
		return Panel{Table: table}, nil
	}
}

func lossByCountry(b builder, title string) (Panel, error) {
	groups, err := engine.GroupedSum(b.view, schema.Country, schema.FinancialLoss)
	if err != nil {
		return Panel{}, err
	}
	for i := range groups {
		groups[i].Value = engine.RoundTo2(groups[i].Value)
	}
	chart := engine.BuildChart(engine.ChartSpec{
		Type:  engine.ChartBar,
		Title: title,
		XAxis: b.schema.Label(schema.Country),
		YAxis: b.schema.Label(schema.FinancialLoss),
	}, groups)
	return Panel{Chart: chart}, nil
}

func attacksOverTime(b builder, title string) (Panel, error) {
	groups, err := engine.TimeSeries(b.view, schema.Year)
	if err != nil {
		return Panel{}, err
	}
	chart := engine.BuildChart(engine.ChartSpec{
		Type:  engine.ChartLine,
		Title: title,
		XAxis: b.schema.Label(schema.Year),
		YAxis: "Number of Attacks",
	}, groups)
	return Panel{Chart: chart}, nil
}

func topCostly(b builder, _ string) (Panel, error) {
	records, err := engine.TopN(b.view, schema.FinancialLoss, b.cfg.TopN, costlyColumns)
	if err != nil {
		return Panel{}, err
	}
	table := engine.BuildRecordTable(engine.TableSpec{
		Title: fmt.Sprintf("Top %d Most Costly Incidents", b.cfg.TopN),
		Label: b.schema.Label,
	}, records, costlyColumns)
	return Panel{Title: table.Title, Table: table}, nil
}

func avgLossByAttack(b builder, title string) (Panel, error) {
	groups, err := engine.GroupedMean(b.view, schema.AttackType, schema.FinancialLoss)
	if err != nil {
		return Panel{}, err
	}
	table := engine.BuildGroupTable(engine.TableSpec{
		Title:      title,
		GroupLabel: b.schema.Label(schema.AttackType),
		ValueLabel: "Average Loss (Million $)",
	}, groups)
	// a total of means is meaningless
	table.Summary = nil
	return Panel{Table: table}, nil
}
