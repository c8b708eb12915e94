package supplier

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the supplier's prometheus collectors.
type Metrics struct {
	fetches         *prometheus.CounterVec
	refreshDuration prometheus.Histogram
	skipped         prometheus.Counter
	sinkFailures    *prometheus.CounterVec
}

// NewMetrics builds the collectors and registers them when reg is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "route_scope",
			Subsystem: "supplier",
			Name:      "fetches_total",
			Help:      "Source fetches by source and result.",
		}, []string{"source", "result"}),
		refreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "route_scope",
			Subsystem: "supplier",
			Name:      "refresh_duration_seconds",
			Help:      "Wall time of a refresh including retries and sink writes.",
			Buckets:   prometheus.DefBuckets,
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "route_scope",
			Subsystem: "supplier",
			Name:      "refresh_skipped_total",
			Help:      "Refreshes skipped inside the debounce interval.",
		}),
		sinkFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "route_scope",
			Subsystem: "supplier",
			Name:      "sink_failures_total",
			Help:      "Failed sink writes by sink.",
		}, []string{"sink"}),
	}

	if reg != nil {
		reg.MustRegister(m.fetches, m.refreshDuration, m.skipped, m.sinkFailures)
	}
	return m
}
