package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/spektr-org/threatlens/selection"
	"github.com/spektr-org/threatlens/store"
)

// optionsReport is what the options command prints.
type optionsReport struct {
	Source   string              `json:"source" yaml:"source"`
	Load     store.LoadReport    `json:"load" yaml:"load"`
	Controls []selection.Control `json:"controls" yaml:"controls"`
	Defaults selection.Selection `json:"defaults" yaml:"defaults"`
}

func (a *app) optionsCmd() *cobra.Command {
	var (
		format       string
		defaultsOnly bool
	)

	cmd := &cobra.Command{
		Use:   "options",
		Short: "List filter values, numeric bounds and the default selection",
		Long: `Lists the distinct values of every category column and the observed
bounds of every numeric column, plus the default selection.

--defaults-only prints just the default selection as a document that
dashboard --selection accepts:

  threatlens options --defaults-only > selection.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.loadStore()
			if err != nil {
				return err
			}
			defaults, err := selection.Default(st)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if defaultsOnly {
				data, err := selection.Encode(defaults)
				if err != nil {
					return err
				}
				_, err = w.Write(data)
				return err
			}

			controls, err := selection.Controls(st)
			if err != nil {
				return err
			}
			return writeDocument(w, format, optionsReport{
				Source:   st.Source(),
				Load:     st.Report(),
				Controls: controls,
				Defaults: defaults,
			})
		},
	}

	f := cmd.Flags()
	f.StringVarP(&format, "format", "f", "yaml", "output format: yaml, json")
	f.BoolVar(&defaultsOnly, "defaults-only", false, "print only the default selection")
	return cmd
}

// writeDocument encodes v as YAML or indented JSON.
func writeDocument(w io.Writer, format string, v any) error {
	switch format {
	case "yaml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown format %q (want yaml or json)", format)
	}
}
