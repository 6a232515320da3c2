package redisstore

import "github.com/nickman/redis-ts/types"

// Option configures a Store.
type Option func(*storeOptions)

type storeOptions struct {
	logger types.Logger
}

// WithLogger sets the logger used for connection events.
//
// Parameters:
//   - logger: Logger implementation (nil keeps the no-op logger)
//
// Returns:
//   - Option: Functional option
func WithLogger(logger types.Logger) Option {
	return func(o *storeOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}
