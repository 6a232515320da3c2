package testing

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nickman/redis-ts/types"
)

func TestFormatFields(t *testing.T) {
	require.Empty(t, formatFields(nil))
	require.Equal(t, " key=redis-ts.config.model tiers=2", formatFields([]any{"key", "redis-ts.config.model", "tiers", 2}))
	require.Equal(t, " run_id=abc dangling", formatFields([]any{"run_id", "abc", "dangling"}))
}

func TestTestLogger_DropsAfterCleanup(t *testing.T) {
	var logger types.Logger

	t.Run("owner", func(t *testing.T) {
		logger = NewTestLogger(t)
		logger.Info("inside test", "k", "v")
	})

	// The owning subtest has completed; logging must not panic.
	require.NotPanics(t, func() {
		logger.Debug("late heartbeat")
		logger.Warn("late warning", "consecutive", 3)
		logger.Error("late error")
		logger.Fatal("late fatal")
	})
}
