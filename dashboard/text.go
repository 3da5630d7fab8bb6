package dashboard

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/spektr-org/threatlens/engine"
)

// ============================================================================
// TEXT PRESENTER: terminal rendering via lipgloss
// ============================================================================

// barWidth is the length of the longest bar in a chart.
const barWidth = 30

var (
	accent  = lipgloss.Color("#2196F3")
	warning = lipgloss.Color("#FFC107")
	muted   = lipgloss.Color("#8a8f98")

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(accent).MarginBottom(1)
	headingStyle = lipgloss.NewStyle().Bold(true).Underline(true).MarginTop(1)
	warnStyle    = lipgloss.NewStyle().Bold(true).Foreground(warning)
	labelStyle   = lipgloss.NewStyle().Foreground(muted)
	barStyle     = lipgloss.NewStyle().Foreground(accent)
	cardStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(muted).
			Padding(0, 1).
			MarginRight(1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	headerStyle = cellStyle.Bold(true)
)

// RenderText renders the dashboard for a terminal.
func RenderText(res *Result) string {
	if res == nil {
		res = EmptyResult()
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Global Cybersecurity Threats Dashboard"))
	b.WriteString("\n")

	if res.Empty {
		b.WriteString(warnStyle.Render(res.Warning))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(renderCards(res))
	b.WriteString("\n")

	for _, p := range res.Panels {
		b.WriteString(headingStyle.Render(p.Title))
		b.WriteString("\n")
		switch {
		case p.Chart != nil:
			b.WriteString(renderBars(p.Chart))
		case p.Table != nil:
			b.WriteString(renderTable(p.Table))
		}
		b.WriteString("\n")
	}

	if res.Rows != nil {
		b.WriteString(headingStyle.Render(res.Rows.Title))
		b.WriteString("\n")
		b.WriteString(renderTable(res.Rows))
		b.WriteString("\n")
	}

	b.WriteString(labelStyle.Render(fmt.Sprintf("Data Dimensions: %d rows, %d columns", res.Shape.Rows, res.Shape.Columns)))
	b.WriteString("\n")
	return b.String()
}

func renderCards(res *Result) string {
	rows := metricRows(res)
	// the last row is the shape, printed as a footer instead
	rows = rows[:len(rows)-1]

	cards := make([]string, 0, len(rows))
	for _, r := range rows {
		cards = append(cards, cardStyle.Render(labelStyle.Render(r[0])+"\n"+r[1]))
	}

	// four cards to a line
	var lines []string
	for start := 0; start < len(cards); start += 4 {
		end := min(start+4, len(cards))
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, cards[start:end]...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// renderBars draws the first series of a chart as horizontal bars scaled to
// the largest value.
func renderBars(chart *engine.ChartConfig) string {
	if len(chart.Series) == 0 || len(chart.Series[0].Data) == 0 {
		return ""
	}
	data := chart.Series[0].Data

	var labelWidth int
	var peak float64
	for _, d := range data {
		labelWidth = max(labelWidth, lipgloss.Width(d.Label))
		peak = max(peak, d.Value)
	}

	var b strings.Builder
	for _, d := range data {
		n := 0
		if peak > 0 {
			n = int(math.Round(d.Value / peak * barWidth))
		}
		fmt.Fprintf(&b, "%s %s %s\n",
			lipgloss.NewStyle().Width(labelWidth).Render(d.Label),
			barStyle.Render(strings.Repeat("█", n)),
			engine.FormatNumber(d.Value))
	}
	return b.String()
}

func renderTable(data *engine.TableData) string {
	headers := make([]string, len(data.Columns))
	for i, c := range data.Columns {
		headers[i] = c.Label
	}

	rows := data.Rows
	if row := summaryRow(data); row != nil {
		rows = append(rows[:len(rows):len(rows)], row)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(muted)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col < len(data.Columns) && data.Columns[col].Align == "right" {
				return cellStyle.Align(lipgloss.Right)
			}
			return cellStyle
		})
	return t.Render() + "\n"
}
