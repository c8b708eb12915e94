package router

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeFound   = "found"
	outcomePartial = "partial"
	outcomeNoRoute = "no_route"
	outcomeInvalid = "invalid"
	outcomeAborted = "aborted"
)

// Metrics holds the router's prometheus collectors.
type Metrics struct {
	searchDuration prometheus.Histogram
	searchVisits   prometheus.Histogram
	searches       *prometheus.CounterVec
	pools          prometheus.Gauge
	rejectedPools  prometheus.Counter
}

// NewMetrics builds the collectors and registers them when reg is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		searchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "route_scope",
			Subsystem: "router",
			Name:      "search_duration_seconds",
			Help:      "Time spent in a single route search.",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 4, 10),
		}),
		searchVisits: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "route_scope",
			Subsystem: "router",
			Name:      "search_visits",
			Help:      "DFS node visits per route search.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "route_scope",
			Subsystem: "router",
			Name:      "searches_total",
			Help:      "Route searches by outcome.",
		}, []string{"outcome"}),
		pools: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "route_scope",
			Subsystem: "router",
			Name:      "pools",
			Help:      "Pools in the current snapshot.",
		}),
		rejectedPools: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "route_scope",
			Subsystem: "router",
			Name:      "rejected_pools_total",
			Help:      "Pools skipped on update because they failed validation.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.searchDuration, m.searchVisits, m.searches, m.pools, m.rejectedPools)
	}
	return m
}
