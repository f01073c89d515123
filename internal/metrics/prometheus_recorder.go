package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/mdconvert/internal/docstate"
)

const namespace = "mdconvert"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once           sync.Once
	cacheChecks    *prom.CounterVec
	outcomes       *prom.CounterVec
	renderDuration *prom.HistogramVec
	runDuration    prom.Histogram
	renderRetries  *prom.CounterVec
	workers        prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.cacheChecks = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "cache_checks_total",
			Help:      "Document state checks by staleness reason",
		}, []string{"reason"})
		pr.outcomes = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "documents_total",
			Help:      "Documents processed by outcome",
		}, []string{"outcome"})
		pr.renderDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Duration of individual document renders",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"format", "result"})
		pr.runDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Total conversion run duration",
			Buckets:   prom.DefBuckets,
		})
		pr.renderRetries = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "render_retries_total",
			Help:      "Render retries after transient failures",
		}, []string{"format"})
		pr.workers = prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "workers",
			Help:      "Worker count of the last conversion run",
		})
		reg.MustRegister(pr.cacheChecks, pr.outcomes, pr.renderDuration, pr.runDuration, pr.renderRetries, pr.workers)
		// Export every reason from the start so rates over a fresh process work.
		for _, reason := range docstate.Reasons() {
			pr.cacheChecks.WithLabelValues(string(reason))
		}
	})
	return pr
}

func (p *PrometheusRecorder) IncCacheCheck(reason string) {
	if p == nil || p.cacheChecks == nil {
		return
	}
	p.cacheChecks.WithLabelValues(reason).Inc()
}

func (p *PrometheusRecorder) IncDocumentOutcome(outcome string) {
	if p == nil || p.outcomes == nil {
		return
	}
	p.outcomes.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) ObserveRenderDuration(format string, d time.Duration, success bool) {
	if p == nil || p.renderDuration == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.renderDuration.WithLabelValues(format, res).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	if p == nil || p.runDuration == nil {
		return
	}
	p.runDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRenderRetry(format string) {
	if p == nil || p.renderRetries == nil {
		return
	}
	p.renderRetries.WithLabelValues(format).Inc()
}

func (p *PrometheusRecorder) SetWorkers(n int) {
	if p == nil || p.workers == nil {
		return
	}
	p.workers.Set(float64(n))
}
