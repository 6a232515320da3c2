package metrics

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nickman/redis-ts/types"
)

func TestNewNop(t *testing.T) {
	metrics := NewNop()

	require.NotNil(t, metrics)
	require.IsType(t, &NopMetrics{}, metrics)
}

func TestNopMetrics_ControllerMetrics(t *testing.T) {
	metrics := NewNop()

	// Should not panic with various inputs
	require.NotPanics(t, func() {
		metrics.RecordStateTransition(types.StateUninitialized, types.StateFirstInit, 1.5)
		metrics.RecordStateTransition(types.State(999), types.State(1000), -1.0)
		metrics.RecordReconcile(types.StateConflict, 0.01)
		metrics.RecordStateChangeDropped()
	})
}

func TestNopMetrics_ConnectionMetrics(t *testing.T) {
	metrics := NewNop()

	require.NotPanics(t, func() {
		metrics.SetConnectionState(types.ConnectionConnected)
		metrics.RecordReconnectAttempt(false, 0.5)
		metrics.RecordAcquire(true, 0.001)
		metrics.RecordListenerPanic()
	})
}

func TestNopMetrics_HeartbeatMetrics(t *testing.T) {
	metrics := NewNop()

	require.NotPanics(t, func() {
		metrics.RecordHeartbeat(true)
		metrics.RecordHeartbeat(false)
		metrics.RecordHeartbeatTimeout(3)
	})
}
