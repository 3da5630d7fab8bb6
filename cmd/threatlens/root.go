package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spektr-org/threatlens/config"
	"github.com/spektr-org/threatlens/dashboard"
	"github.com/spektr-org/threatlens/logging"
	"github.com/spektr-org/threatlens/metrics"
	"github.com/spektr-org/threatlens/store"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	v       *viper.Viper
	cfg     *config.Config
	logger  *zap.Logger
	reg     *prometheus.Registry
	metrics *metrics.Metrics
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.New()}
	var cfgFile string

	root := &cobra.Command{
		Use:   "threatlens",
		Short: "Filter and aggregate global cybersecurity incident data",
		Long: `threatlens loads a CSV of reported cybersecurity incidents and computes
the incident dashboard for a selection of countries, attack types,
industries, sources, years and loss ranges.

Settings come from threatlens.yaml (or --config), THREATLENS_* environment
variables and flags, in increasing precedence.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cfgFile)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default ./threatlens.yaml or ./configs/threatlens.yaml)")
	pf.String("data", "", "incident CSV file")
	pf.Bool("strict", false, "fail the load on a type mismatch instead of dropping the row")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	_ = a.v.BindPFlag("data.path", pf.Lookup("data"))
	_ = a.v.BindPFlag("data.strict", pf.Lookup("strict"))
	_ = a.v.BindPFlag("logger.level", pf.Lookup("log-level"))

	root.AddCommand(
		a.dashboardCmd(),
		a.optionsCmd(),
		a.schemaCmd(),
		a.serveCmd(),
	)
	return root
}

// init loads configuration and builds the logger and metrics registry.
func (a *app) init(cfgFile string) error {
	cfg, err := config.Load(a.v, cfgFile)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	a.cfg = cfg
	a.logger = logger
	a.reg = prometheus.NewRegistry()
	a.metrics = metrics.New(a.reg)
	return nil
}

func (a *app) storeOptions() []store.Option {
	opts := []store.Option{store.WithLogger(a.logger), store.WithMetrics(a.metrics)}
	if a.cfg.Data.Strict {
		opts = append(opts, store.WithStrictTypes())
	}
	return opts
}

func (a *app) dashboardOptions() []dashboard.Option {
	return []dashboard.Option{
		dashboard.WithTopN(a.cfg.Dashboard.TopN),
		dashboard.WithIndustryLimit(a.cfg.Dashboard.IndustryLimit),
		dashboard.WithLogger(a.logger),
		dashboard.WithMetrics(a.metrics),
	}
}

func (a *app) loadStore() (*store.Store, error) {
	return store.Load(a.cfg.Data.Path, a.storeOptions()...)
}
