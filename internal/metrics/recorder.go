package metrics

import "time"

// Recorder defines observability hooks for cache decisions and renders.
// Implementations may forward to Prometheus; NoopRecorder discards everything.
type Recorder interface {
	IncCacheCheck(reason string)
	IncDocumentOutcome(outcome string) // outcome: skipped|converted|failed
	ObserveRenderDuration(format string, d time.Duration, success bool)
	ObserveRunDuration(d time.Duration)
	IncRenderRetry(format string)
	SetWorkers(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncCacheCheck(string)                              {}
func (NoopRecorder) IncDocumentOutcome(string)                         {}
func (NoopRecorder) ObserveRenderDuration(string, time.Duration, bool) {}
func (NoopRecorder) ObserveRunDuration(time.Duration)                  {}
func (NoopRecorder) IncRenderRetry(string)                             {}
func (NoopRecorder) SetWorkers(int)                                    {}
