// Package metrics provides conversion metrics for mdconvert.
//
// Components receive a Recorder through options and default to NoopRecorder,
// so call sites never check for nil:
//
//	conv := converter.New(cfg, store, renderer,
//	    converter.WithRecorder(metrics.NewPrometheusRecorder(reg)))
//
// A PrometheusRecorder registers its collectors on the given registry. One-shot
// runs export the registry with WriteTextfile for the node exporter textfile
// collector; the long-running watcher can serve it with HTTPHandler.
package metrics
