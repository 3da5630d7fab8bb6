package dashboard

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spektr-org/threatlens/engine"
)

// ============================================================================
// PRESENTERS: JSON, CSV and terminal text
// ============================================================================

// Output formats accepted by Write.
const (
	FormatJSON   = "json"
	FormatPretty = "pretty"
	FormatCSV    = "csv"
	FormatText   = "text"
)

// Formats lists every format Write accepts.
var Formats = []string{FormatJSON, FormatPretty, FormatCSV, FormatText}

// Write renders res to w. A nil res renders as EmptyResult().
func Write(w io.Writer, res *Result, format string) error {
	if res == nil {
		res = EmptyResult()
	}
	switch strings.ToLower(format) {
	case FormatJSON, "":
		return writeJSON(w, res, false)
	case FormatPretty:
		return writeJSON(w, res, true)
	case FormatCSV:
		return writeCSV(w, res)
	case FormatText:
		_, err := io.WriteString(w, RenderText(res))
		return err
	default:
		return fmt.Errorf("unknown format %q (want one of %s)", format, strings.Join(Formats, ", "))
	}
}

func writeJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

// ============================================================================
// CSV
// ============================================================================
// With rows attached, the CSV is the filtered data itself. Otherwise it is a
// sequence of blocks (metrics, then one per panel) separated by blank lines,
// each block starting with its title.
// ============================================================================

func writeCSV(w io.Writer, res *Result) error {
	cw := csv.NewWriter(w)

	switch {
	case res.Empty:
		cw.Write([]string{"Warning", res.Warning})
	case res.Rows != nil:
		writeTableCSV(cw, res.Rows)
	default:
		writeMetricsCSV(cw, res)
		for _, p := range res.Panels {
			cw.Write(nil)
			cw.Write([]string{p.Title})
			if p.Chart != nil {
				writeChartCSV(cw, p.Chart)
			} else if p.Table != nil {
				writeTableCSV(cw, p.Table)
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

func writeMetricsCSV(cw *csv.Writer, res *Result) {
	cw.Write([]string{"Metric", "Value"})
	for _, row := range metricRows(res) {
		cw.Write(row)
	}
}

// metricRows lists the headline numbers as label/value pairs.
func metricRows(res *Result) [][]string {
	var rows [][]string
	if m := res.Metrics; m != nil {
		rows = append(rows,
			[]string{"Total Incidents", strconv.Itoa(m.TotalIncidents)},
			[]string{"Total Financial Loss", fmt.Sprintf("$%.2fM", m.TotalLoss)},
			[]string{"Average Loss per Incident", fmt.Sprintf("$%.2fM", m.AverageLoss)},
			[]string{"Total Affected Users", m.AffectedUsersLabel},
		)
	}
	if r := res.Resolution; r != nil {
		rows = append(rows,
			[]string{"Average Resolution Time", Hours(r.Average)},
			[]string{"Median Resolution Time", Hours(r.Median)},
			[]string{"Longest Resolution Time", Hours(r.Longest)},
		)
	}
	rows = append(rows, []string{"Data Dimensions", fmt.Sprintf("%d rows, %d columns", res.Shape.Rows, res.Shape.Columns)})
	return rows
}

func writeChartCSV(cw *csv.Writer, chart *engine.ChartConfig) {
	xLabel := chart.XAxis
	yLabel := chart.YAxis
	if xLabel == "" {
		xLabel = "Label"
	}
	if yLabel == "" {
		yLabel = "Value"
	}

	// Single series → two columns
	if len(chart.Series) == 1 {
		cw.Write([]string{xLabel, yLabel})
		for _, d := range chart.Series[0].Data {
			cw.Write([]string{d.Label, engine.FormatNumber(d.Value)})
		}
		return
	}

	// Multi-series → label + one column per series
	headers := []string{xLabel}
	for _, s := range chart.Series {
		headers = append(headers, s.Name)
	}
	cw.Write(headers)
	if len(chart.Series) == 0 {
		return
	}
	for i, d := range chart.Series[0].Data {
		row := []string{d.Label}
		for _, s := range chart.Series {
			if i < len(s.Data) {
				row = append(row, engine.FormatNumber(s.Data[i].Value))
			} else {
				row = append(row, "")
			}
		}
		cw.Write(row)
	}
}

func writeTableCSV(cw *csv.Writer, table *engine.TableData) {
	headers := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		headers[i] = c.Label
	}
	cw.Write(headers)
	for _, row := range table.Rows {
		cw.Write(row)
	}
	if row := summaryRow(table); row != nil {
		cw.Write(row)
	}
}

// summaryRow lays the summary out under the table's columns; the first
// column carries the summary label.
func summaryRow(table *engine.TableData) []string {
	if table.Summary == nil || len(table.Columns) == 0 {
		return nil
	}
	row := make([]string, len(table.Columns))
	row[0] = table.Summary.Label
	for i, c := range table.Columns[1:] {
		row[i+1] = table.Summary.Values[c.Key]
	}
	return row
}
