package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferedSlog(level slog.Level) (*SlogLogger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	handler := slog.NewTextHandler(buf, &slog.HandlerOptions{Level: level})

	return NewSlog(slog.New(handler)), buf
}

func TestNewSlog(t *testing.T) {
	logger, _ := newBufferedSlog(slog.LevelDebug)
	require.NotNil(t, logger.logger)

	require.NotNil(t, NewSlog(nil).logger)
	require.NotNil(t, NewSlogDefault().logger)
}

func TestSlogLogger_Levels(t *testing.T) {
	logger, buf := newBufferedSlog(slog.LevelDebug)

	logger.Debug("probing store", "host", "localhost")
	logger.Info("connected", "run_id", "abc")
	logger.Warn("heartbeat timeout", "consecutive", 2)
	logger.Error("schedule conflict", "key", "redis-ts.config.model")

	output := buf.String()
	assert.Contains(t, output, "level=DEBUG")
	assert.Contains(t, output, "host=localhost")
	assert.Contains(t, output, "level=INFO")
	assert.Contains(t, output, "run_id=abc")
	assert.Contains(t, output, "level=WARN")
	assert.Contains(t, output, "consecutive=2")
	assert.Contains(t, output, "level=ERROR")
	assert.Contains(t, output, "key=redis-ts.config.model")
}

func TestSlogLogger_LevelFiltering(t *testing.T) {
	logger, buf := newBufferedSlog(slog.LevelWarn)

	logger.Debug("debug message")
	logger.Info("info message")
	assert.Empty(t, buf.String())

	logger.Warn("warn message")
	logger.Error("error message")

	output := buf.String()
	assert.Contains(t, output, "warn message")
	assert.Contains(t, output, "error message")
}

func TestSlogLogger_With(t *testing.T) {
	logger, buf := newBufferedSlog(slog.LevelInfo)

	logger.With("component", "heartbeat").Info("published")

	assert.Contains(t, buf.String(), "component=heartbeat")
}
