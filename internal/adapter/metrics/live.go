package metrics

import "github.com/prometheus/client_golang/prometheus"

// LiveMetrics holds Prometheus metrics for debounced live tally updates.
type LiveMetrics struct {
	EventsReceived      prometheus.Counter
	NotificationsFired  prometheus.Counter
	ActiveSubscriptions prometheus.Gauge
	PendingTimers       prometheus.Gauge
	TallyReadDuration   prometheus.Histogram
}

// NewLiveMetrics creates and registers live update metrics on the given registry.
func NewLiveMetrics(reg prometheus.Registerer) *LiveMetrics {
	m := &LiveMetrics{
		EventsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "events_received_total",
			Help:      "Total number of tally change events fed into the debouncer.",
		}),
		NotificationsFired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "notifications_fired_total",
			Help:      "Total number of debounced notifications fired, one per question per quiet period.",
		}),
		ActiveSubscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "active_subscriptions",
			Help:      "Number of live tally subscriptions.",
		}),
		PendingTimers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "pending_timers",
			Help:      "Number of questions with a scheduled notification.",
		}),
		TallyReadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "tally_read_duration_seconds",
			Help:      "Duration of tally reads from the vote store.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}),
	}

	reg.MustRegister(m.EventsReceived, m.NotificationsFired, m.ActiveSubscriptions, m.PendingTimers, m.TallyReadDuration)
	return m
}
