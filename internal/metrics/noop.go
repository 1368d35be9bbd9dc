package metrics

import "time"

// NoopMetrics is a no-operation implementation of Recorder.
type NoopMetrics struct{}

// Ensure NoopMetrics implements Recorder interface at compile time
var _ Recorder = (*NoopMetrics)(nil)

// NewNoopMetrics creates a new no-operation metrics recorder
func NewNoopMetrics() Recorder {
	return &NoopMetrics{}
}

func (n *NoopMetrics) RecordBind(mechanism, result string, duration time.Duration)         {}
func (n *NoopMetrics) RecordSessionStarted(mechanism string)                               {}
func (n *NoopMetrics) RecordSessionEnded(mechanism, reason string, lifetime time.Duration) {}
func (n *NoopMetrics) RecordConnectionOpened()                                             {}
func (n *NoopMetrics) RecordConnectionClosed()                                             {}
func (n *NoopMetrics) RecordConnectionRejected()                                           {}
