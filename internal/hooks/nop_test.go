package hooks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nickman/redis-ts/types"
)

func TestNewNop(t *testing.T) {
	hooks := NewNop()

	require.NotNil(t, hooks.OnStateChanged)
	require.NotNil(t, hooks.OnConnectionStateChanged)
	require.NotNil(t, hooks.OnConflict)
	require.NotNil(t, hooks.OnError)
}

func TestNopHooks_ReturnNil(t *testing.T) {
	hooks := NewNop()
	ctx := context.Background()

	require.NoError(t, hooks.OnStateChanged(ctx, types.StateUninitialized, types.StateFirstInit))
	require.NoError(t, hooks.OnConnectionStateChanged(ctx, types.ConnectionConnecting, types.ConnectionConnected))
	require.NoError(t, hooks.OnConflict(ctx, &types.ConflictError{Key: "k", Local: "a", Remote: "b"}))
	require.NoError(t, hooks.OnError(ctx, errors.New("boom")))
}

func TestMerge(t *testing.T) {
	t.Run("nil hooks", func(t *testing.T) {
		merged := Merge(nil)
		require.NotNil(t, merged.OnConflict)
		require.NoError(t, merged.OnError(context.Background(), errors.New("x")))
	})

	t.Run("keeps custom callbacks", func(t *testing.T) {
		called := false
		merged := Merge(&types.Hooks{
			OnConflict: func(context.Context, *types.ConflictError) error {
				called = true
				return nil
			},
		})

		require.NotNil(t, merged.OnStateChanged)
		require.NoError(t, merged.OnConflict(context.Background(), &types.ConflictError{}))
		require.True(t, called)
	})
}
