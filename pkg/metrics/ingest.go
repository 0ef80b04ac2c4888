package metrics

// IngestMetrics provides observability for the ingestion pipeline.
//
// Implementations collect metrics about session lifecycle and per-file
// outcomes. This interface is optional - pass nil to disable metrics
// collection with zero overhead.
//
// Example usage:
//
//	// With metrics enabled
//	m := prometheus.NewIngestMetrics()
//	coord := ingest.NewCoordinator(st, reg, cfg, m)
//
//	// Without metrics (pass nil for zero overhead)
//	coord := ingest.NewCoordinator(st, reg, cfg, nil)
type IngestMetrics interface {
	// SessionStarted increments the started-sessions counter.
	SessionStarted()

	// SessionEnded records a finished session with its outcome
	// ("completed", "cancelled", "critical_error") and wall-clock
	// duration in seconds.
	SessionEnded(outcome string, seconds float64)

	// FileOutcome records one file's terminal state within a session
	// ("success", "skip", "error").
	FileOutcome(outcome string)
}
