// Package metrics records deployment metrics.
//
// Recorder is the hook interface; NoopRecorder is used when metrics are not
// requested and PrometheusRecorder keeps client_golang collectors that
// deploy --metrics-file writes out for node_exporter's textfile collector.
// Observer adapts a Recorder to pipeline events.
package metrics
