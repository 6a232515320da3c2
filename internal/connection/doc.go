// Package connection manages the control-plane connection to the external store.
//
// A Manager owns the store's session pool, keeps a heartbeat running over a
// publish/subscribe channel, reconnects with exponential backoff when the store goes
// away, and tells registered listeners what happened:
//
//   - OnConnectNewInstance: first connection, or the store's run id changed
//   - OnConnect: reconnected to the same store instance
//   - OnDisconnect: an established connection was lost
//   - OnHeartbeatFailed: a monitor tick found the heartbeat stale (advisory only)
//
// # Lifecycle
//
// The connection state machine is driven by looplab/fsm:
//
//	stopped → connecting → connected → disconnected → connecting
//
// Stop moves any state back to stopped. A stopped manager can be started again.
//
// # Goroutines
//
// A running manager has a supervisor (connect, probe, reconnect), a dispatcher
// (listener fan-out), a heartbeat publisher and a heartbeat monitor, plus the store's
// subscription reader. None of them wait on each other, so a slow listener delays only
// other listeners.
package connection
