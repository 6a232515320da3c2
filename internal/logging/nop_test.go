package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNopLogger(t *testing.T) {
	logger := NewNop()

	require.NotPanics(t, func() {
		logger.Debug("debug", "k", "v")
		logger.Info("info")
		logger.Warn("warn")
		logger.Error("error", "err", "boom")
		logger.Fatal("fatal")
	})
}

func TestOrNop(t *testing.T) {
	require.IsType(t, &NopLogger{}, OrNop(nil))

	slogger := NewSlogDefault()
	require.Same(t, slogger, OrNop(slogger))
}
