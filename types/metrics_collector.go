package types

// MetricsCollector defines methods for recording operational metrics.
//
// Implementations should be non-blocking and handle failures gracefully.
// All methods are called from internal goroutines and must be thread-safe.
//
// This interface composes smaller, domain-focused interfaces for better modularity.
type MetricsCollector interface {
	ControllerMetrics
	ConnectionMetrics
	HeartbeatMetrics
}

// ControllerMetrics defines metrics for reconciliation.
type ControllerMetrics interface {
	// RecordStateTransition records a controller state transition event.
	//
	// Parameters:
	//   - from, to: States of the transition
	//   - duration: Seconds spent in the previous state
	RecordStateTransition(from, to State, duration float64)

	// RecordReconcile records a reconciliation outcome.
	//
	// Parameters:
	//   - outcome: Resulting state (FirstInit, Refreshed, Conflict) or Uninitialized on error
	//   - duration: Time taken in seconds
	RecordReconcile(outcome State, duration float64)

	// RecordStateChangeDropped records when state change notifications are dropped due to slow subscribers.
	RecordStateChangeDropped()
}

// ConnectionMetrics defines metrics for the store connection lifecycle.
type ConnectionMetrics interface {
	// SetConnectionState sets the current connection state (gauge metric).
	SetConnectionState(state ConnectionState)

	// RecordReconnectAttempt records a connection attempt made by the reconnect loop.
	//
	// Parameters:
	//   - success: true if the attempt connected
	//   - backoff: Delay in seconds before the next attempt (0 on success)
	RecordReconnectAttempt(success bool, backoff float64)

	// RecordAcquire records a session checkout.
	//
	// Parameters:
	//   - success: true if a session was acquired
	//   - duration: Time waited in seconds
	RecordAcquire(success bool, duration float64)

	// RecordListenerPanic records a recovered panic in a listener callback.
	RecordListenerPanic()
}

// HeartbeatMetrics defines metrics for heartbeat publishing and monitoring.
type HeartbeatMetrics interface {
	// RecordHeartbeat records a heartbeat publish attempt.
	RecordHeartbeat(success bool)

	// RecordHeartbeatTimeout records a stale heartbeat detected by the monitor.
	//
	// Parameters:
	//   - consecutive: Current consecutive timeout count
	RecordHeartbeatTimeout(consecutive int64)
}
