package metrics

import (
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPHandler serves the conversion metrics of reg for scraping while
// 'mdconvert watch' runs. Go runtime and process collectors are added once so
// a long-lived watcher also reports its own memory and file descriptors.
func HTTPHandler(reg *prom.Registry) http.Handler {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	registerRuntimeCollectors(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}

func registerRuntimeCollectors(reg *prom.Registry) {
	// A second call for the same registry fails with AlreadyRegisteredError.
	_ = reg.Register(collectors.NewGoCollector())
	_ = reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}
