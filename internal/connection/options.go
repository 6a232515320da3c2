package connection

import "github.com/nickman/redis-ts/types"

// Option configures a Manager with optional dependencies.
type Option func(*managerOptions)

type managerOptions struct {
	logger        types.Logger
	metrics       types.MetricsCollector
	onStateChange func(from, to types.ConnectionState)
	onError       func(err error)
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger types.Logger) Option {
	return func(o *managerOptions) {
		o.logger = logger
	}
}

// WithMetrics sets the metrics collector. Defaults to a no-op collector.
func WithMetrics(metrics types.MetricsCollector) Option {
	return func(o *managerOptions) {
		o.metrics = metrics
	}
}

// WithStateObserver registers fn to be called synchronously on every connection state
// transition. fn must not block and must not call back into the Manager.
func WithStateObserver(fn func(from, to types.ConnectionState)) Option {
	return func(o *managerOptions) {
		o.onStateChange = fn
	}
}

// WithErrorHandler registers fn for errors the manager cannot return to a caller,
// such as giving up after ReconnectMaxAttempts.
func WithErrorHandler(fn func(err error)) Option {
	return func(o *managerOptions) {
		o.onError = fn
	}
}
