package dashboard

import (
	"go.uber.org/zap"

	"github.com/spektr-org/threatlens/metrics"
)

// ============================================================================
// DASHBOARD OPTIONS: Functional options for Build()
// ============================================================================

// Option configures dashboard behavior via functional options pattern.
type Option func(*config)

type config struct {
	TopN          int  // rows in the most-costly-incidents table
	IndustryLimit int  // bars in the most-affected-industries chart
	Rows          bool // include the filtered records themselves
	Logger        *zap.Logger
	Metrics       *metrics.Metrics
}

// WithTopN sets how many of the most costly incidents are listed.
// Values <= 0 keep the default of 5.
func WithTopN(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.TopN = n
		}
	}
}

// WithIndustryLimit caps the most-affected-industries chart.
// Values <= 0 keep the default of 10.
func WithIndustryLimit(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.IndustryLimit = n
		}
	}
}

// WithRows attaches the filtered records to the result.
func WithRows() Option {
	return func(c *config) {
		c.Rows = true
	}
}

// WithLogger sets the logger used for build diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.Logger = l
		}
	}
}

// WithMetrics records build durations and empty selections.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *config) {
		c.Metrics = m
	}
}

// applyOptions creates a config from functional options.
func applyOptions(opts []Option) *config {
	cfg := &config{
		TopN:          5,
		IndustryLimit: 10,
		Logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
