package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bobibobi02/whistle-connect-sub001/internal/domain"
	"github.com/bobibobi02/whistle-connect-sub001/internal/processor"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	RunsTotal            prometheus.Counter
	NotificationsSent    prometheus.Counter
	NotificationsFailed  prometheus.Counter
	InvalidTokensRemoved prometheus.Counter
	RunDuration          prometheus.Histogram
	PendingBacklog       prometheus.Gauge
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct.
// Using a custom registry (instead of prometheus.DefaultRegisterer) keeps
// tests isolated and avoids global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "delivery_runs_total",
			Help: "Total number of completed delivery runs.",
		}),
		NotificationsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Total notifications resolved to sent, including vacuous successes.",
		}),
		NotificationsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notifications_failed_total",
			Help: "Total notifications resolved to failed.",
		}),
		InvalidTokensRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "invalid_tokens_removed_total",
			Help: "Total device tokens deleted after the provider reported them dead.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "delivery_run_seconds",
			Help:    "Wall-clock duration of one delivery run, claim through sweep.",
			Buckets: prometheus.DefBuckets,
		}),
		PendingBacklog: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "notification_queue_pending",
			Help: "Pending rows remaining in the queue after the latest run.",
		}),
	}

	reg.MustRegister(
		m.RunsTotal,
		m.NotificationsSent,
		m.NotificationsFailed,
		m.InvalidTokensRemoved,
		m.RunDuration,
		m.PendingBacklog,
	)

	return m
}

// ProcessorHooks returns the callback struct expected by processor.New.
// Centralises the prometheus observation calls so the processor stays
// metrics-agnostic.
func (m *Metrics) ProcessorHooks() processor.Hooks {
	return processor.Hooks{
		OnRun: func(summary domain.RunSummary, elapsed time.Duration) {
			m.RunsTotal.Inc()
			m.NotificationsSent.Add(float64(summary.Sent))
			m.NotificationsFailed.Add(float64(summary.Failed))
			m.InvalidTokensRemoved.Add(float64(summary.InvalidTokensRemoved))
			m.RunDuration.Observe(elapsed.Seconds())
		},
		OnBacklog: func(pending int) {
			m.PendingBacklog.Set(float64(pending))
		},
	}
}
