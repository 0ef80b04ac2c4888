package prometheus

import (
	"github.com/markhive/markhive/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ingestMetrics is the Prometheus implementation for ingestion pipeline metrics.
type ingestMetrics struct {
	sessionsStarted prometheus.Counter
	sessionsEnded   *prometheus.CounterVec
	sessionDuration *prometheus.HistogramVec
	fileOutcomes    *prometheus.CounterVec
}

// NewIngestMetrics creates a new Prometheus-backed ingestion metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewIngestMetrics() *ingestMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &ingestMetrics{
		sessionsStarted: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "markhive_ingest_sessions_started_total",
				Help: "Total number of ingestion sessions started",
			},
		),
		sessionsEnded: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "markhive_ingest_sessions_ended_total",
				Help: "Total number of ingestion sessions ended by outcome",
			},
			[]string{"outcome"}, // "completed", "cancelled", "critical_error"
		),
		sessionDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "markhive_ingest_session_duration_seconds",
				Help:    "Wall-clock duration of ingestion sessions by outcome",
				Buckets: prometheus.ExponentialBuckets(0.1, 4, 10),
			},
			[]string{"outcome"},
		),
		fileOutcomes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "markhive_ingest_files_total",
				Help: "Total number of files handled by outcome",
			},
			[]string{"outcome"}, // "success", "skip", "error"
		),
	}
}

// SessionStarted increments the started-sessions counter.
func (m *ingestMetrics) SessionStarted() {
	if m == nil {
		return
	}
	m.sessionsStarted.Inc()
}

// SessionEnded records a finished session with its outcome and duration.
func (m *ingestMetrics) SessionEnded(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.sessionsEnded.WithLabelValues(outcome).Inc()
	m.sessionDuration.WithLabelValues(outcome).Observe(seconds)
}

// FileOutcome records one file's terminal state.
func (m *ingestMetrics) FileOutcome(outcome string) {
	if m == nil {
		return
	}
	m.fileOutcomes.WithLabelValues(outcome).Inc()
}
