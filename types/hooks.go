package types

import "context"

// Hooks defines callbacks for Controller lifecycle events.
//
// All hooks are optional and called asynchronously in background goroutines
// to avoid blocking reconciliation or the connection manager. Hooks receive the
// controller's lifecycle context which will be cancelled during shutdown.
//
// IMPORTANT: Hook execution behavior:
//   - Hooks run concurrently and may not complete before Stop() returns
//   - The context passed to hooks is cancelled when the controller stops
//   - Hook errors are logged but don't fail controller operations
//
// Example:
//
//	hooks := &redists.Hooks{
//	    OnConflict: func(ctx context.Context, err *redists.ConflictError) error {
//	        return pager.Notify(ctx, err.Error())
//	    },
//	}
type Hooks struct {
	// OnStateChanged is called when the reconciliation state transitions.
	OnStateChanged func(ctx context.Context, from, to State) error

	// OnConnectionStateChanged is called when the store connection state transitions.
	OnConnectionStateChanged func(ctx context.Context, from, to ConnectionState) error

	// OnConflict is called when the stored schedule conflicts with the local one.
	OnConflict func(ctx context.Context, conflict *ConflictError) error

	// OnError is called when a recoverable error occurs.
	OnError func(ctx context.Context, err error) error
}
