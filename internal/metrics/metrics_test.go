package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *Metrics
	m.RecordSocketConnect()
	m.RecordSocketDisconnect()
	m.RecordSocketEvent("register_session", "inbound")
	m.RecordChatRequest()
	m.RecordChatLatency(0.2)
	m.RecordChatError("upstream")
	m.RecordTelcoRequest("mock", "ok")
	m.RecordTokenRefresh("live")
	m.RecordSnapshotFailure("density")
	m.RecordResourceCreation("assistant")
}

func TestRecordersUpdateCollectors(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordSocketConnect()
	m.RecordSocketConnect()
	m.RecordSocketDisconnect()
	if got := testutil.ToFloat64(m.SocketConnections); got != 1 {
		t.Errorf("socket connections = %v, want 1", got)
	}

	m.RecordSnapshotFailure("location")
	if got := testutil.ToFloat64(m.SnapshotFailures.WithLabelValues("location")); got != 1 {
		t.Errorf("location failures = %v, want 1", got)
	}

	m.RecordChatRequest()
	if got := testutil.ToFloat64(m.ChatRequests); got != 1 {
		t.Errorf("chat requests = %v, want 1", got)
	}
}

func TestNewUsesIsolatedRegistries(t *testing.T) {
	// Two registries must not collide on metric names.
	New(prometheus.NewRegistry())
	New(prometheus.NewRegistry())
}
