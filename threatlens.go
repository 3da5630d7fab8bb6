// Package threatlens filters and aggregates global cybersecurity incident data.
//
// Usage:
//
//	import (
//	    "github.com/spektr-org/threatlens/dashboard"
//	    "github.com/spektr-org/threatlens/selection"
//	    "github.com/spektr-org/threatlens/store"
//	)
//
//	st, err := store.Load("data/cybersecurity_threats.csv")
//	sel, err := selection.Default(st)
//	filters, err := sel.Filters(st.Schema())
//	res, err := dashboard.Build(st, filters, dashboard.WithTopN(5))
//
// The store parses the CSV against an explicit column schema. The engine
// applies membership and range predicates as zero-copy sub-views and computes
// counts, sums, means, frequencies, grouped aggregates, top-N, time series and
// descriptive statistics. The dashboard package runs the whole catalog for one
// selection; cmd/threatlens serves it from the command line or over HTTP.
package threatlens
