// Package metrics records build metrics.
//
// Components receive a Recorder and default to NoopRecorder, so call sites
// never check for nil:
//
//	rec := metrics.Recorder(metrics.NoopRecorder{})
//	if cfg.Metrics.Textfile != "" {
//	    rec = metrics.NewPrometheusRecorder(nil)
//	}
//
// A build is a short-lived process, so the Prometheus recorder is exported
// through the node_exporter textfile collector (WriteTextfile) rather than
// served over HTTP.
package metrics
