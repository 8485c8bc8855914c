package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the application
type Metrics struct {
	// Socket metrics
	SocketConnections prometheus.Gauge
	SocketEvents      *prometheus.CounterVec

	// Chat metrics
	ChatRequests       prometheus.Counter
	ChatRequestLatency prometheus.Histogram
	ChatErrors         *prometheus.CounterVec

	// Telco metrics
	TelcoRequests     *prometheus.CounterVec
	TokenRefreshes    *prometheus.CounterVec
	SnapshotFailures  *prometheus.CounterVec
	ResourceCreations *prometheus.CounterVec
}

// New registers the application metrics with reg.
// Pass prometheus.DefaultRegisterer in main and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SocketConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "aeterna_socket_connections_active",
			Help: "Number of active analytics socket connections",
		}),

		// direction: "inbound" or "outbound"
		SocketEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "aeterna_socket_events_total",
			Help: "Total number of socket events by name",
		}, []string{"event", "direction"}),

		ChatRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "aeterna_chat_requests_total",
			Help: "Total number of analytics chat requests processed",
		}),

		ChatRequestLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "aeterna_chat_request_duration_seconds",
			Help:    "Analytics chat latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),

		ChatErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "aeterna_chat_errors_total",
			Help: "Total number of analytics chat errors by kind",
		}, []string{"kind"}),

		TelcoRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "aeterna_telco_requests_total",
			Help: "Total number of telco requests by mode and outcome",
		}, []string{"mode", "outcome"}),

		TokenRefreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "aeterna_telco_token_refreshes_total",
			Help: "Total number of token fetches by mode",
		}, []string{"mode"}),

		SnapshotFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "aeterna_snapshot_failures_total",
			Help: "Snapshot fetches that degraded to absent data",
		}, []string{"snapshot"}),

		ResourceCreations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "aeterna_maas_resource_creations_total",
			Help: "Knowledge base and assistant creations by kind",
		}, []string{"kind"}),
	}
}

// All recorders are safe on a nil *Metrics so components can run without metrics.

// RecordSocketConnect records a new socket connection
func (m *Metrics) RecordSocketConnect() {
	if m == nil {
		return
	}
	m.SocketConnections.Inc()
}

// RecordSocketDisconnect records a socket disconnection
func (m *Metrics) RecordSocketDisconnect() {
	if m == nil {
		return
	}
	m.SocketConnections.Dec()
}

// RecordSocketEvent records a socket event
func (m *Metrics) RecordSocketEvent(event, direction string) {
	if m == nil {
		return
	}
	m.SocketEvents.WithLabelValues(event, direction).Inc()
}

// RecordChatRequest records a chat request
func (m *Metrics) RecordChatRequest() {
	if m == nil {
		return
	}
	m.ChatRequests.Inc()
}

// RecordChatLatency records chat request latency
func (m *Metrics) RecordChatLatency(seconds float64) {
	if m == nil {
		return
	}
	m.ChatRequestLatency.Observe(seconds)
}

// RecordChatError records a chat error
func (m *Metrics) RecordChatError(kind string) {
	if m == nil {
		return
	}
	m.ChatErrors.WithLabelValues(kind).Inc()
}

// RecordTelcoRequest records one transport request
func (m *Metrics) RecordTelcoRequest(mode, outcome string) {
	if m == nil {
		return
	}
	m.TelcoRequests.WithLabelValues(mode, outcome).Inc()
}

// RecordTokenRefresh records one token fetch (cache miss)
func (m *Metrics) RecordTokenRefresh(mode string) {
	if m == nil {
		return
	}
	m.TokenRefreshes.WithLabelValues(mode).Inc()
}

// RecordSnapshotFailure records a snapshot that degraded to absent
func (m *Metrics) RecordSnapshotFailure(snapshot string) {
	if m == nil {
		return
	}
	m.SnapshotFailures.WithLabelValues(snapshot).Inc()
}

// RecordResourceCreation records a knowledge base or assistant creation
func (m *Metrics) RecordResourceCreation(kind string) {
	if m == nil {
		return
	}
	m.ResourceCreations.WithLabelValues(kind).Inc()
}
