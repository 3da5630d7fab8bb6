package engine

import (
	"fmt"
	"strconv"
)

// ============================================================================
// TABLE BUILDER: Produces TableData from Groups, Records or a RecordView
// ============================================================================
// All functions operate on RecordView: zero-copy access to any data source.
// Column discovery uses view.DimensionKeys() when no columns are given.
// ============================================================================

// TableSpec describes one table of the dashboard.
type TableSpec struct {
	Title      string
	GroupLabel string
	ValueLabel string
	CountsOnly bool                    // frequency tables: group and count columns only
	Label      func(key string) string // column key → header; defaults to LabelForDimension
}

func (s TableSpec) label(key string) string {
	if s.Label != nil {
		return s.Label(key)
	}
	return LabelForDimension(key)
}

// ============================================================================
// GROUP TABLE: one row per group
// ============================================================================

// BuildGroupTable renders aggregated groups as group/value/count rows.
func BuildGroupTable(spec TableSpec, groups []Group) *TableData {
	if len(groups) == 0 {
		return &TableData{
			Title:   spec.Title,
			Columns: []Column{},
			Rows:    [][]string{},
		}
	}

	groupLabel := spec.GroupLabel
	if groupLabel == "" {
		groupLabel = "Group"
	}
	valueLabel := spec.ValueLabel
	if valueLabel == "" {
		valueLabel = "Value"
	}

	if spec.CountsOnly {
		return buildCountTable(spec, groupLabel, groups)
	}

	columns := []Column{
		{Key: "group", Label: groupLabel, Type: "text", Align: "left"},
		{Key: "value", Label: valueLabel, Type: "number", Align: "right"},
		{Key: "count", Label: "Count", Type: "number", Align: "center"},
	}

	rows := make([][]string, 0, len(groups))
	var totalValue float64
	var totalCount int

	for _, g := range groups {
		rows = append(rows, []string{
			g.Label,
			fmt.Sprintf("%.2f", g.Value),
			strconv.Itoa(g.Count),
		})
		totalValue += g.Value
		totalCount += g.Count
	}

	return &TableData{
		Title:   spec.Title,
		Columns: columns,
		Rows:    rows,
		Summary: &Summary{
			Label: "Total",
			Values: map[string]string{
				"value": FormatAmount(totalValue),
				"count": strconv.Itoa(totalCount),
			},
		},
	}
}

func buildCountTable(spec TableSpec, groupLabel string, groups []Group) *TableData {
	countLabel := spec.ValueLabel
	if countLabel == "" {
		countLabel = "Count"
	}

	rows := make([][]string, 0, len(groups))
	var total int
	for _, g := range groups {
		rows = append(rows, []string{g.Label, FormatInt(g.Count)})
		total += g.Count
	}

	return &TableData{
		Title: spec.Title,
		Columns: []Column{
			{Key: "group", Label: groupLabel, Type: "text", Align: "left"},
			{Key: "count", Label: countLabel, Type: "number", Align: "right"},
		},
		Rows: rows,
		Summary: &Summary{
			Label:  "Total",
			Values: map[string]string{"count": FormatInt(total)},
		},
	}
}

// ============================================================================
// RECORD TABLE: one row per projected record
// ============================================================================

// BuildRecordTable renders projected records (e.g. TopN output) in column order.
func BuildRecordTable(spec TableSpec, records []Record, columns []string) *TableData {
	table := &TableData{
		Title:   spec.Title,
		Columns: make([]Column, 0, len(columns)),
		Rows:    make([][]string, 0, len(records)),
	}
	if len(records) == 0 {
		return table
	}

	numeric := make(map[string]bool, len(columns))
	for _, key := range columns {
		_, numeric[key] = records[0].Measures[key]
		table.Columns = append(table.Columns, columnFor(spec, key, numeric[key]))
	}

	for _, r := range records {
		row := make([]string, 0, len(columns))
		for _, key := range columns {
			if numeric[key] {
				row = append(row, FormatNumber(r.Measures[key]))
				continue
			}
			row = append(row, r.Dimensions[key])
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

// ============================================================================
// VIEW TABLE: row per record of a view
// ============================================================================

// BuildViewTable renders every record of a view. With no columns given, the
// view's dimension keys are used.
func BuildViewTable(spec TableSpec, view RecordView, columns []string) *TableData {
	if len(columns) == 0 {
		columns = view.DimensionKeys()
	}

	table := &TableData{
		Title:   spec.Title,
		Columns: make([]Column, 0, len(columns)),
		Rows:    make([][]string, 0, view.Len()),
	}

	numeric := make(map[string]bool, len(columns))
	for _, key := range columns {
		numeric[key] = hasMeasure(view, key)
		table.Columns = append(table.Columns, columnFor(spec, key, numeric[key]))
	}

	for i := 0; i < view.Len(); i++ {
		row := make([]string, 0, len(columns))
		for _, key := range columns {
			if numeric[key] && !hasDimension(view, key) {
				row = append(row, FormatNumber(view.Measure(i, key)))
				continue
			}
			row = append(row, view.Dimension(i, key))
		}
		table.Rows = append(table.Rows, row)
	}

	table.Summary = &Summary{
		Label:  fmt.Sprintf("%s records", FormatInt(view.Len())),
		Values: map[string]string{},
	}
	return table
}

func columnFor(spec TableSpec, key string, numeric bool) Column {
	if numeric {
		return Column{Key: key, Label: spec.label(key), Type: "number", Align: "right"}
	}
	return Column{Key: key, Label: spec.label(key), Type: "text", Align: "left"}
}

// FormatNumber renders integral values without decimals and others with 2.
func FormatNumber(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}
