package redists

// Option configures a Controller with optional dependencies.
type Option func(*controllerOptions)

// controllerOptions holds optional Controller configuration.
type controllerOptions struct {
	hooks   *Hooks
	metrics MetricsCollector
	logger  Logger
}

// WithHooks sets lifecycle event hooks.
//
// Parameters:
//   - hooks: Hooks structure with callback functions
//
// Returns:
//   - Option: Functional option for NewController
//
// Example:
//
//	hooks := &redists.Hooks{
//	    OnConflict: func(ctx context.Context, conflict *redists.ConflictError) error {
//	        return alerting.Page(ctx, conflict.Error())
//	    },
//	}
//	ctrl, err := redists.NewController(&cfg, store, redists.WithHooks(hooks))
func WithHooks(hooks *Hooks) Option {
	return func(o *controllerOptions) {
		o.hooks = hooks
	}
}

// WithMetrics sets a metrics collector.
//
// Parameters:
//   - metrics: MetricsCollector implementation
//
// Returns:
//   - Option: Functional option for NewController
//
// Example:
//
//	collector := metrics.NewPrometheus(prometheus.DefaultRegisterer, "redists")
//	ctrl, err := redists.NewController(&cfg, store, redists.WithMetrics(collector))
func WithMetrics(metrics MetricsCollector) Option {
	return func(o *controllerOptions) {
		o.metrics = metrics
	}
}

// WithLogger sets a logger.
//
// Parameters:
//   - logger: Logger implementation (Debug/Info/Warn/Error/Fatal with key-value pairs)
//
// Returns:
//   - Option: Functional option for NewController
//
// Example:
//
//	ctrl, err := redists.NewController(&cfg, store, redists.WithLogger(myLogger))
func WithLogger(logger Logger) Option {
	return func(o *controllerOptions) {
		o.logger = logger
	}
}
