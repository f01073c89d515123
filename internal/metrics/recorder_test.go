package metrics

import (
	"testing"
	"time"
)

func TestNoopRecorderSatisfiesInterface(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.IncCacheCheck("fresh")
	r.IncDocumentOutcome("skipped")
	r.ObserveRenderDuration("pdf", time.Second, true)
	r.ObserveRunDuration(time.Second)
	r.IncRenderRetry("pdf")
	r.SetWorkers(4)

	var _ Recorder = (*PrometheusRecorder)(nil)
}
