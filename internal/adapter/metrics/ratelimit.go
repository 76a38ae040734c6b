package metrics

import "github.com/prometheus/client_golang/prometheus"

// RateLimitMetrics holds Prometheus metrics for vote admission control.
type RateLimitMetrics struct {
	Decisions    *prometheus.CounterVec
	Errors       prometheus.Counter
	Sweeps       prometheus.Counter
	SweptEntries prometheus.Counter
	TrackedKeys  prometheus.Gauge
}

// NewRateLimitMetrics creates and registers rate limiter metrics on the given registry.
func NewRateLimitMetrics(reg prometheus.Registerer) *RateLimitMetrics {
	m := &RateLimitMetrics{
		Decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ratelimit",
			Name:      "decisions_total",
			Help:      "Total number of admission decisions, by key scope and decision.",
		}, []string{"scope", "decision"}),
		Errors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ratelimit",
			Name:      "errors_total",
			Help:      "Total number of limiter failures that were admitted fail-open.",
		}),
		Sweeps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ratelimit",
			Name:      "sweeps_total",
			Help:      "Total number of expired-entry sweeps of the in-memory limiter.",
		}),
		SweptEntries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ratelimit",
			Name:      "swept_entries_total",
			Help:      "Total number of expired entries removed by sweeps.",
		}),
		TrackedKeys: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ratelimit",
			Name:      "tracked_keys",
			Help:      "Number of keys held by the in-memory limiter after the last sweep.",
		}),
	}

	reg.MustRegister(m.Decisions, m.Errors, m.Sweeps, m.SweptEntries, m.TrackedKeys)
	return m
}
