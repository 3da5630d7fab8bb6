package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/spektr-org/threatlens/schema"
)

// schemaReport pairs the inferred profile of a file with the mismatches
// against the incident declaration.
type schemaReport struct {
	Source     string                 `json:"source" yaml:"source"`
	Profiles   []schema.ColumnProfile `json:"profiles" yaml:"profiles"`
	Mismatches []schema.Mismatch      `json:"mismatches" yaml:"mismatches"`
}

func (a *app) schemaCmd() *cobra.Command {
	var (
		format string
		draft  bool
	)

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Compare the data file with the declared incident columns",
		Long: `Profiles every column of the data file (inferred kind, nulls, distinct
values) and checks it against the declared incident schema. Exits non-zero
when a declared column is missing or holds values of the wrong kind.

--draft prints a schema declaration inferred from the file instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfg.Data.Path
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			profiles, err := schema.DiscoverFromCSV(data, schema.DiscoverOptions{})
			if err != nil {
				return fmt.Errorf("profile %s: %w", path, err)
			}

			w := cmd.OutOrStdout()
			if draft {
				return writeDocument(w, "yaml", schema.Draft(schema.Incidents().Name, profiles))
			}

			mismatches := schema.Check(schema.Incidents(), profiles)
			if format == "text" {
				fmt.Fprintln(w, renderProfiles(profiles, mismatches))
			} else if err := writeDocument(w, format, schemaReport{Source: path, Profiles: profiles, Mismatches: mismatches}); err != nil {
				return err
			}

			if len(mismatches) > 0 {
				return fmt.Errorf("%s does not match the incident schema: %d mismatched columns", path, len(mismatches))
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&format, "format", "f", "text", "output format: text, yaml, json")
	f.BoolVar(&draft, "draft", false, "print a schema declaration inferred from the file")
	return cmd
}

func renderProfiles(profiles []schema.ColumnProfile, mismatches []schema.Mismatch) string {
	problems := make(map[string]string, len(mismatches))
	for _, m := range mismatches {
		problems[m.Column] = m.Reason
	}

	declared := make(map[string]schema.Kind)
	for _, col := range schema.Incidents().Columns {
		declared[col.Header] = col.Kind
	}

	rows := make([][]string, 0, len(profiles)+len(mismatches))
	for _, p := range profiles {
		status := "ok"
		if reason, bad := problems[p.Header]; bad {
			status = reason
		} else if _, ok := declared[p.Header]; !ok {
			status = "not declared"
		}
		rows = append(rows, []string{
			p.Header,
			string(declared[p.Header]),
			string(p.Kind),
			strconv.Itoa(p.Nulls),
			strconv.Itoa(p.Unique),
			status,
		})
		delete(problems, p.Header)
	}
	// declared columns absent from the file
	for _, m := range mismatches {
		if _, left := problems[m.Column]; left {
			rows = append(rows, []string{m.Column, string(m.Declared), "", "", "", m.Reason})
		}
	}

	cell := lipgloss.NewStyle().Padding(0, 1)
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Column", "Declared", "Inferred", "Nulls", "Distinct", "Status").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return cell.Bold(true)
			}
			return cell
		}).
		Render()
}
