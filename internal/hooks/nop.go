package hooks

import (
	"context"

	"github.com/nickman/redis-ts/types"
)

// NopHooks implements Hooks with no-op callbacks.
//
// This is the default implementation used when no custom hooks are provided,
// eliminating the need for nil checks throughout the codebase.
type NopHooks struct{}

// Compile-time assertions that NopHooks implements hook callbacks.
var (
	_ func(context.Context, types.State, types.State) error                     = (*NopHooks)(nil).OnStateChanged
	_ func(context.Context, types.ConnectionState, types.ConnectionState) error = (*NopHooks)(nil).OnConnectionStateChanged
	_ func(context.Context, *types.ConflictError) error                         = (*NopHooks)(nil).OnConflict
	_ func(context.Context, error) error                                        = (*NopHooks)(nil).OnError
)

// NewNop creates a new no-op hooks implementation.
//
// Returns:
//   - types.Hooks: Hooks with no-op implementations
func NewNop() types.Hooks {
	h := &NopHooks{}
	return types.Hooks{
		OnStateChanged:           h.OnStateChanged,
		OnConnectionStateChanged: h.OnConnectionStateChanged,
		OnConflict:               h.OnConflict,
		OnError:                  h.OnError,
	}
}

// Merge returns h with every nil callback replaced by its no-op.
func Merge(h *types.Hooks) types.Hooks {
	merged := NewNop()
	if h == nil {
		return merged
	}
	if h.OnStateChanged != nil {
		merged.OnStateChanged = h.OnStateChanged
	}
	if h.OnConnectionStateChanged != nil {
		merged.OnConnectionStateChanged = h.OnConnectionStateChanged
	}
	if h.OnConflict != nil {
		merged.OnConflict = h.OnConflict
	}
	if h.OnError != nil {
		merged.OnError = h.OnError
	}

	return merged
}

// OnStateChanged is a no-op implementation.
func (h *NopHooks) OnStateChanged(ctx context.Context, from, to types.State) error {
	return nil
}

// OnConnectionStateChanged is a no-op implementation.
func (h *NopHooks) OnConnectionStateChanged(ctx context.Context, from, to types.ConnectionState) error {
	return nil
}

// OnConflict is a no-op implementation.
func (h *NopHooks) OnConflict(ctx context.Context, conflict *types.ConflictError) error {
	return nil
}

// OnError is a no-op implementation.
func (h *NopHooks) OnError(ctx context.Context, err error) error {
	return nil
}
