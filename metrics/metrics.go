// Package metrics holds the prometheus collectors for store loads, the
// source cache and dashboard computations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels.
const (
	ResultOK    = "ok"
	ResultError = "error"
	ResultHit   = "hit"
	ResultMiss  = "miss"
	ResultStale = "stale"
)

// Metrics groups every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Loads: store loads by outcome (ok, error)
	StoreLoads *prometheus.CounterVec

	// Dropped: rows discarded at load because of a null, unparseable or out-of-bound cell
	RowsDropped *prometheus.CounterVec

	// Cache: lookups by outcome (hit, miss, stale)
	CacheRequests *prometheus.CounterVec

	// Latency: filter plus full aggregate catalog
	DashboardDuration prometheus.Histogram

	// Selections that matched no record
	EmptyViews prometheus.Counter
}

// New registers the collectors on reg. With a nil reg a private registry is
// used, so the collectors work but are never exported.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		StoreLoads: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "threatlens_store_loads_total",
			Help: "Total number of record store loads by result.",
		}, []string{"result"}),

		RowsDropped: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "threatlens_store_rows_dropped_total",
			Help: "Rows dropped at load time, by the first offending column.",
		}, []string{"column"}),

		CacheRequests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "threatlens_cache_requests_total",
			Help: "Source cache lookups by result.",
		}, []string{"result"}),

		DashboardDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "threatlens_dashboard_duration_seconds",
			Help:    "Time to filter and aggregate one dashboard request.",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),

		EmptyViews: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "threatlens_empty_views_total",
			Help: "Dashboard requests whose selection matched no record.",
		}),
	}
}

func (m *Metrics) ObserveLoad(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.StoreLoads.WithLabelValues(ResultError).Inc()
		return
	}
	m.StoreLoads.WithLabelValues(ResultOK).Inc()
}

func (m *Metrics) ObserveDropped(column string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.RowsDropped.WithLabelValues(column).Add(float64(n))
}

func (m *Metrics) ObserveCache(result string) {
	if m == nil {
		return
	}
	m.CacheRequests.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveDashboard(started time.Time, empty bool) {
	if m == nil {
		return
	}
	m.DashboardDuration.Observe(time.Since(started).Seconds())
	if empty {
		m.EmptyViews.Inc()
	}
}
