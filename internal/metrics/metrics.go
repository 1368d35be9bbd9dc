package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Bind results.
const (
	ResultSuccess            = "success"
	ResultInProgress         = "in_progress"
	ResultInvalidCredentials = "invalid_credentials"
	ResultOther              = "other"
)

// Session end reasons.
const (
	ReasonComplete  = "complete"
	ReasonFailed    = "failed"
	ReasonRestart   = "restart"
	ReasonReleased  = "released"
	ReasonExpired   = "expired"
	ReasonDisplaced = "displaced"
	ReasonShutdown  = "shutdown"
)

// Recorder records server activity.
type Recorder interface {
	// RecordBind records one bind request. mechanism is "SIMPLE" for
	// simple binds.
	RecordBind(mechanism, result string, duration time.Duration)

	// RecordSessionStarted records a SASL bind session entering the cache.
	RecordSessionStarted(mechanism string)

	// RecordSessionEnded records a SASL bind session being disposed.
	RecordSessionEnded(mechanism, reason string, lifetime time.Duration)

	// RecordConnectionOpened records an accepted client connection.
	RecordConnectionOpened()

	// RecordConnectionClosed records the end of a client connection.
	RecordConnectionClosed()

	// RecordConnectionRejected records a connection refused at the limit.
	RecordConnectionRejected()
}

// Ensure Metrics implements Recorder interface at compile time
var _ Recorder = (*Metrics)(nil)

// Metrics holds all Prometheus metrics for the server.
type Metrics struct {
	BindTotal    *prometheus.CounterVec
	BindDuration *prometheus.HistogramVec

	SessionsActive        *prometheus.GaugeVec
	SessionsStartedTotal  *prometheus.CounterVec
	SessionsDisposedTotal *prometheus.CounterVec
	SessionLifetime       *prometheus.HistogramVec

	ConnectionsActive        prometheus.Gauge
	ConnectionsTotal         prometheus.Counter
	ConnectionsRejectedTotal prometheus.Counter

	gatherer prometheus.Gatherer
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Init returns the process-wide Prometheus recorder when enabled, and a
// no-op recorder otherwise. The default registry is populated only once.
func Init(enabled bool) Recorder {
	if !enabled {
		return NewNoopMetrics()
	}

	once.Do(func() {
		defaultMetrics = New(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
	})
	return defaultMetrics
}

// New creates metrics registered with reg and served from gatherer.
func New(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		BindTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "obamem_bind_total",
				Help: "Total number of bind requests",
			},
			[]string{"mechanism", "result"},
		),
		BindDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "obamem_bind_duration_seconds",
				Help:    "Time taken to process a bind request",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"mechanism"},
		),
		SessionsActive: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "obamem_sasl_sessions_active",
				Help: "Current number of cached SASL bind sessions",
			},
			[]string{"mechanism"},
		),
		SessionsStartedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "obamem_sasl_sessions_started_total",
				Help: "Total number of SASL bind sessions started",
			},
			[]string{"mechanism"},
		),
		SessionsDisposedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "obamem_sasl_sessions_disposed_total",
				Help: "Total number of SASL bind sessions disposed",
			},
			[]string{"mechanism", "reason"},
		),
		SessionLifetime: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "obamem_sasl_session_lifetime_seconds",
				Help:    "Time from SASL session creation to disposal",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"mechanism"},
		),
		ConnectionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "obamem_connections_active",
				Help: "Current number of open client connections",
			},
		),
		ConnectionsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "obamem_connections_total",
				Help: "Total number of accepted client connections",
			},
		),
		ConnectionsRejectedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "obamem_connections_rejected_total",
				Help: "Total number of connections refused at the connection limit",
			},
		),
		gatherer: gatherer,
	}
}

// RecordBind records one bind request.
func (m *Metrics) RecordBind(mechanism, result string, duration time.Duration) {
	m.BindTotal.WithLabelValues(mechanism, result).Inc()
	m.BindDuration.WithLabelValues(mechanism).Observe(duration.Seconds())
}

// RecordSessionStarted records a SASL bind session entering the cache.
func (m *Metrics) RecordSessionStarted(mechanism string) {
	m.SessionsStartedTotal.WithLabelValues(mechanism).Inc()
	m.SessionsActive.WithLabelValues(mechanism).Inc()
}

// RecordSessionEnded records a SASL bind session being disposed.
func (m *Metrics) RecordSessionEnded(mechanism, reason string, lifetime time.Duration) {
	m.SessionsActive.WithLabelValues(mechanism).Dec()
	m.SessionsDisposedTotal.WithLabelValues(mechanism, reason).Inc()
	m.SessionLifetime.WithLabelValues(mechanism).Observe(lifetime.Seconds())
}

// RecordConnectionOpened records an accepted client connection.
func (m *Metrics) RecordConnectionOpened() {
	m.ConnectionsTotal.Inc()
	m.ConnectionsActive.Inc()
}

// RecordConnectionClosed records the end of a client connection.
func (m *Metrics) RecordConnectionClosed() {
	m.ConnectionsActive.Dec()
}

// RecordConnectionRejected records a connection refused at the limit.
func (m *Metrics) RecordConnectionRejected() {
	m.ConnectionsRejectedTotal.Inc()
}

// Handler returns an HTTP handler exposing the metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
