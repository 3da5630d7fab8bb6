package store

import (
	"go.uber.org/zap"

	"github.com/spektr-org/threatlens/metrics"
	"github.com/spektr-org/threatlens/schema"
)

// ============================================================================
// STORE OPTIONS: Functional options for Load(), Read() and NewCache()
// ============================================================================

// Option configures loading via functional options pattern.
type Option func(*config)

type config struct {
	Schema  schema.Config
	Strict  bool // unparseable non-empty cells fail the load instead of dropping the row
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// WithSchema replaces the built-in incident declaration.
func WithSchema(cfg schema.Config) Option {
	return func(c *config) {
		c.Schema = cfg
	}
}

// WithStrictTypes makes a cell that is present but does not parse as its
// declared kind a *DataLoadError. Null cells still drop the row.
func WithStrictTypes() Option {
	return func(c *config) {
		c.Strict = true
	}
}

// WithLogger sets the logger used to report load results.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.Logger = l
		}
	}
}

// WithMetrics reports loads, dropped rows and cache lookups.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *config) {
		c.Metrics = m
	}
}

// applyOptions creates a config from functional options.
func applyOptions(opts []Option) *config {
	cfg := &config{
		Schema: schema.Incidents(),
		Logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
