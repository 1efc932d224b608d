package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the gate and its collaborators.
// All methods are nil-safe so callers can run without metrics in tests.
type Metrics struct {
	// Gate decisions by outcome and reason
	Decisions *prometheus.CounterVec

	// Full gate check latency, protected paths only
	CheckLatency prometheus.Histogram

	// Auth backend round-trip latency by operation
	BackendLatency *prometheus.HistogramVec

	// Session refresh attempts by outcome
	Refreshes *prometheus.CounterVec

	// Requests turned away because the token was denylisted
	DenylistHits prometheus.Counter
}

// New creates a Metrics instance with all gateway metrics registered on the
// default registry.
func New() *Metrics {
	return &Metrics{
		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sessiongate_decisions_total",
			Help: "Gate decisions by outcome and reason",
		}, []string{"decision", "reason"}), // decision: "allow", "redirect"

		CheckLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "sessiongate_check_duration_seconds",
			Help:    "Duration of a full gate check on a protected path",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),

		BackendLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sessiongate_auth_backend_duration_seconds",
			Help:    "Duration of auth backend calls by operation",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"op"}), // op: "user", "refresh"

		Refreshes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sessiongate_refreshes_total",
			Help: "Session refresh attempts by outcome",
		}, []string{"outcome"}), // outcome: "ok", "failed"

		DenylistHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sessiongate_denylist_hits_total",
			Help: "Requests rejected because the access token was denylisted",
		}),
	}
}

// IncrementDecision records a gate decision.
func (m *Metrics) IncrementDecision(decision, reason string) {
	if m != nil {
		m.Decisions.WithLabelValues(decision, reason).Inc()
	}
}

// ObserveCheckLatency records the duration of a full gate check.
func (m *Metrics) ObserveCheckLatency(d time.Duration) {
	if m != nil {
		m.CheckLatency.Observe(d.Seconds())
	}
}

// ObserveBackendLatency records the duration of one auth backend call.
func (m *Metrics) ObserveBackendLatency(op string, d time.Duration) {
	if m != nil {
		m.BackendLatency.WithLabelValues(op).Observe(d.Seconds())
	}
}

// IncrementRefresh records a refresh attempt outcome.
func (m *Metrics) IncrementRefresh(outcome string) {
	if m != nil {
		m.Refreshes.WithLabelValues(outcome).Inc()
	}
}

// IncrementDenylistHit records a denylisted token rejection.
func (m *Metrics) IncrementDenylistHit() {
	if m != nil {
		m.DenylistHits.Inc()
	}
}
