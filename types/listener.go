package types

import "context"

// Listener receives connection lifecycle events.
//
// Callbacks are invoked sequentially from a dedicated dispatcher goroutine; a slow
// listener delays other listeners but never the heartbeat tasks. Listeners may add or
// remove listeners, including themselves, from inside a callback.
//
// Listeners are identified by equality, so implementations must be comparable. Use
// pointer receivers; a struct value holding a slice, map or func is rejected on registration.
type Listener interface {
	// OnConnectNewInstance is called on the first connection and whenever the store's run id changed.
	OnConnectNewInstance(ctx context.Context, runID string)

	// OnConnect is called when the manager reconnects to the same store instance.
	OnConnect(ctx context.Context, runID string)

	// OnDisconnect is called when an established connection is lost.
	OnDisconnect(ctx context.Context, cause error)

	// OnHeartbeatFailed is called once per monitor tick while heartbeats are stale.
	OnHeartbeatFailed(ctx context.Context, status HeartbeatStatus)
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are skipped.
//
// Register it by pointer so that RemoveListener can find it again:
//
//	l := &types.ListenerFuncs{Disconnect: func(ctx context.Context, err error) { ... }}
//	mgr.AddListener(l)
type ListenerFuncs struct {
	NewInstance     func(ctx context.Context, runID string)
	Connect         func(ctx context.Context, runID string)
	Disconnect      func(ctx context.Context, cause error)
	HeartbeatFailed func(ctx context.Context, status HeartbeatStatus)
}

var _ Listener = (*ListenerFuncs)(nil)

// OnConnectNewInstance implements Listener.
func (l *ListenerFuncs) OnConnectNewInstance(ctx context.Context, runID string) {
	if l.NewInstance != nil {
		l.NewInstance(ctx, runID)
	}
}

// OnConnect implements Listener.
func (l *ListenerFuncs) OnConnect(ctx context.Context, runID string) {
	if l.Connect != nil {
		l.Connect(ctx, runID)
	}
}

// OnDisconnect implements Listener.
func (l *ListenerFuncs) OnDisconnect(ctx context.Context, cause error) {
	if l.Disconnect != nil {
		l.Disconnect(ctx, cause)
	}
}

// OnHeartbeatFailed implements Listener.
func (l *ListenerFuncs) OnHeartbeatFailed(ctx context.Context, status HeartbeatStatus) {
	if l.HeartbeatFailed != nil {
		l.HeartbeatFailed(ctx, status)
	}
}
