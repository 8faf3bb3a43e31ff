package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the verification core. A nil
// *Metrics is valid and records nothing, so tests can skip registration.
type Metrics struct {
	codesIssued    prometheus.Counter
	emailsSent     prometheus.Counter
	emailFailures  prometheus.Counter
	verifications  prometheus.Counter
	codeMismatches prometheus.Counter
	handleDuration *prometheus.HistogramVec
}

// New registers all instruments on the default registry. Call once per
// process.
func New() *Metrics {
	return &Metrics{
		codesIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vouch_codes_issued_total",
			Help: "Verification codes issued (one per email submission, regardless of community fan-out)",
		}),
		emailsSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vouch_emails_sent_total",
			Help: "Verification emails delivered to the outbound transport",
		}),
		emailFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vouch_email_failures_total",
			Help: "Verification emails the outbound transport failed to deliver",
		}),
		verifications: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vouch_verifications_total",
			Help: "Identities transitioned to verified",
		}),
		codeMismatches: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vouch_code_mismatches_total",
			Help: "Submitted codes that matched no pending identity (watch for guess storms)",
		}),
		handleDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vouch_event_handle_duration_seconds",
			Help:    "Latency of inbound event handling by event kind",
			Buckets: prometheus.DefBuckets,
		}, []string{"event"}),
	}
}

func (m *Metrics) IncCodesIssued() {
	if m != nil {
		m.codesIssued.Inc()
	}
}

func (m *Metrics) IncEmailsSent() {
	if m != nil {
		m.emailsSent.Inc()
	}
}

func (m *Metrics) IncEmailFailures() {
	if m != nil {
		m.emailFailures.Inc()
	}
}

func (m *Metrics) AddVerifications(n int) {
	if m != nil {
		m.verifications.Add(float64(n))
	}
}

func (m *Metrics) IncCodeMismatches() {
	if m != nil {
		m.codeMismatches.Inc()
	}
}

func (m *Metrics) ObserveHandle(event string, start time.Time) {
	if m != nil {
		m.handleDuration.WithLabelValues(event).Observe(time.Since(start).Seconds())
	}
}
