package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spektr-org/threatlens/dashboard"
	"github.com/spektr-org/threatlens/engine"
	"github.com/spektr-org/threatlens/selection"
	"github.com/spektr-org/threatlens/store"
)

func (a *app) dashboardCmd() *cobra.Command {
	var (
		selFile  string
		defaults bool
		format   string
		out      string
		rows     bool
	)

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Compute the incident dashboard for a selection",
		Long: `Computes key metrics, resolution times and every chart and table of the
incident dashboard for the records matching a selection.

Without --selection or --defaults every record is included.

Examples:
  threatlens dashboard --defaults --format text
  threatlens dashboard --selection usa.yaml --format csv --out usa.csv
  echo '{"categories": {"country": ["USA"]}}' | threatlens dashboard --selection -`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.loadStore()
			if err != nil {
				return err
			}

			sel, err := readSelection(cmd.InOrStdin(), selFile, defaults, st)
			if err != nil {
				return err
			}
			if sel.IsEmpty() {
				a.logger.Info("selection has no constraints, every record is included", zap.String("source", st.Source()))
			}
			filters, err := sel.Filters(st.Schema())
			if err != nil {
				return err
			}

			opts := a.dashboardOptions()
			if rows {
				opts = append(opts, dashboard.WithRows())
			}
			res, err := dashboard.Build(st, filters, opts...)
			if errors.Is(err, engine.ErrEmptyView) {
				a.logger.Warn("empty selection", zap.String("source", st.Source()))
				res, err = dashboard.EmptyResult(), nil
			}
			if err != nil {
				return err
			}

			w, closeOut, err := openOutput(cmd.OutOrStdout(), out)
			if err != nil {
				return err
			}
			if err := dashboard.Write(w, res, format); err != nil {
				_ = closeOut()
				return err
			}
			return closeOut()
		},
	}

	f := cmd.Flags()
	f.StringVarP(&selFile, "selection", "s", "", "selection document (JSON or YAML), - for stdin")
	f.BoolVar(&defaults, "defaults", false, "use the default selection")
	f.StringVarP(&format, "format", "f", dashboard.FormatJSON, "output format: "+strings.Join(dashboard.Formats, ", "))
	f.StringVarP(&out, "out", "o", "", "write to file instead of stdout")
	f.BoolVar(&rows, "rows", false, "include the filtered records")
	cmd.MarkFlagsMutuallyExclusive("selection", "defaults")
	return cmd
}

// readSelection reads the selection from file ("-" is stdin), or derives the
// default selection, or returns the empty selection.
func readSelection(stdin io.Reader, file string, defaults bool, st *store.Store) (selection.Selection, error) {
	switch {
	case defaults:
		return selection.Default(st)
	case file == "":
		return selection.Selection{}, nil
	}

	var (
		data []byte
		err  error
	)
	if file == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return selection.Selection{}, fmt.Errorf("read selection: %w", err)
	}
	return selection.Parse(data)
}

// openOutput returns stdout, or a created file and its close function.
func openOutput(stdout io.Writer, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return f, f.Close, nil
}
