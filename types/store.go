package types

import "context"

// Store is the external store the control plane connects to.
//
// Implementations own a bounded pool of connections. After Close, a subsequent Connect must
// re-create whatever resources Close released.
type Store interface {
	// Connect establishes connectivity and returns the identity of the running store instance.
	// Errors that indicate the store cannot be reached match ErrStoreUnavailable.
	Connect(ctx context.Context) (runID string, err error)

	// Ping verifies the store is still reachable.
	Ping(ctx context.Context) error

	// Acquire checks a session out of the pool. The session must be returned with Session.Close.
	Acquire(ctx context.Context) (Session, error)

	// Publish sends payload on a publish/subscribe channel.
	Publish(ctx context.Context, channel, payload string) error

	// Subscribe delivers every message on channel to handler until the subscription is closed
	// or the connection drops. Handler is called from a single goroutine.
	Subscribe(ctx context.Context, channel string, handler func(payload string)) (Subscription, error)

	// Close releases pooled connections.
	Close() error
}

// Session is a pooled connection checked out of a Store.
type Session interface {
	// Get returns the value stored at key. The boolean is false when key does not exist.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value at key.
	Set(ctx context.Context, key, value string) error

	// SetIfAbsent stores value at key only when key does not exist, atomically with respect to
	// every other session. The boolean is false when key already existed and nothing was written.
	SetIfAbsent(ctx context.Context, key, value string) (bool, error)

	// Delete removes keys. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error

	// Close returns the session to the pool. Calling Close more than once is harmless.
	Close() error
}

// Subscription is an active channel subscription.
type Subscription interface {
	// Unsubscribe stops delivery and unblocks the receiving goroutine.
	Unsubscribe() error

	// Done is closed once delivery has stopped, either through Unsubscribe or connection loss.
	Done() <-chan struct{}
}
