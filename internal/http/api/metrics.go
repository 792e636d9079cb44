package api

import (
	gohttpmetrics "github.com/slok/go-http-metrics/metrics"
)

// MetricsRecorder is the service used to record metrics on the HTTP API handlers.
type MetricsRecorder interface {
	gohttpmetrics.Recorder
}

var noopMetricsRecorder = struct {
	gohttpmetrics.Recorder
}{
	Recorder: gohttpmetrics.Dummy,
}
