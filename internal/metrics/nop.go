package metrics

import "github.com/nickman/redis-ts/types"

// NopMetrics implements a no-op metrics collector.
//
// All metrics are discarded. Useful for testing or when external
// metrics collection is used.
type NopMetrics struct{}

// Compile-time assertion that NopMetrics implements MetricsCollector.
var _ types.MetricsCollector = (*NopMetrics)(nil)

// NewNop creates a new no-op metrics collector.
//
// Returns:
//   - *NopMetrics: A new no-op metrics collector instance
//
// Example:
//
//	metrics := metrics.NewNop()
//	ctrl, err := redists.NewController(&cfg, store, redists.WithMetrics(metrics))
func NewNop() *NopMetrics {
	return &NopMetrics{}
}

// ControllerMetrics implementation

// RecordStateTransition discards the state transition metric.
func (n *NopMetrics) RecordStateTransition(_ /* from */, _ /* to */ types.State, _ /* duration */ float64) {
	// No-op
}

// RecordReconcile discards the reconciliation outcome metric.
func (n *NopMetrics) RecordReconcile(_ /* outcome */ types.State, _ /* duration */ float64) {
	// No-op
}

// RecordStateChangeDropped discards the dropped state notification counter.
func (n *NopMetrics) RecordStateChangeDropped() {
	// No-op
}

// ConnectionMetrics implementation

// SetConnectionState discards the connection state gauge.
func (n *NopMetrics) SetConnectionState(_ /* state */ types.ConnectionState) {
	// No-op
}

// RecordReconnectAttempt discards the reconnect attempt metric.
func (n *NopMetrics) RecordReconnectAttempt(_ /* success */ bool, _ /* backoff */ float64) {
	// No-op
}

// RecordAcquire discards the session checkout metric.
func (n *NopMetrics) RecordAcquire(_ /* success */ bool, _ /* duration */ float64) {
	// No-op
}

// RecordListenerPanic discards the listener panic counter.
func (n *NopMetrics) RecordListenerPanic() {
	// No-op
}

// HeartbeatMetrics implementation

// RecordHeartbeat discards the heartbeat publish metric.
func (n *NopMetrics) RecordHeartbeat(_ /* success */ bool) {
	// No-op
}

// RecordHeartbeatTimeout discards the heartbeat timeout metric.
func (n *NopMetrics) RecordHeartbeatTimeout(_ /* consecutive */ int64) {
	// No-op
}
