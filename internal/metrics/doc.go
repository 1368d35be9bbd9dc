// Package metrics records bind, session and connection activity as
// Prometheus metrics.
//
// Components take a Recorder. Init(true) returns the Prometheus
// implementation registered with the default registry; Init(false) returns
// NoopMetrics.
package metrics
