package testing

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/nickman/redis-ts/types"
)

// NewTestLogger returns a logger that writes through t.Logf, so output only shows for
// failing or verbose tests.
//
// Background goroutines (heartbeats, hooks) may still log after the test body returns.
// Those messages are dropped once the test's cleanup phase reaches the logger, instead of
// panicking in t.Logf. Create the logger before the components that use it so their
// cleanups run first.
func NewTestLogger(t *testing.T) types.Logger {
	t.Helper()

	l := &testLogger{t: t}
	t.Cleanup(func() {
		l.mu.Lock()
		l.done = true
		l.mu.Unlock()
	})

	return l
}

type testLogger struct {
	t    *testing.T
	mu   sync.RWMutex
	done bool
}

var _ types.Logger = (*testLogger)(nil)

func (l *testLogger) Debug(msg string, keysAndValues ...any) {
	l.log("DEBUG", msg, keysAndValues)
}

func (l *testLogger) Info(msg string, keysAndValues ...any) {
	l.log("INFO", msg, keysAndValues)
}

func (l *testLogger) Warn(msg string, keysAndValues ...any) {
	l.log("WARN", msg, keysAndValues)
}

func (l *testLogger) Error(msg string, keysAndValues ...any) {
	l.log("ERROR", msg, keysAndValues)
}

// Fatal marks the test as failed. It does not stop the calling goroutine.
func (l *testLogger) Fatal(msg string, keysAndValues ...any) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if !l.done {
		l.t.Errorf("FATAL: %s%s", msg, formatFields(keysAndValues))
	}
}

func (l *testLogger) log(level, msg string, keysAndValues []any) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.done {
		return
	}
	l.t.Logf("%s: %s%s", level, msg, formatFields(keysAndValues))
}

// formatFields renders key/value pairs as " k=v k=v". A trailing key without value is kept.
func formatFields(keysAndValues []any) string {
	if len(keysAndValues) == 0 {
		return ""
	}

	var b strings.Builder
	for i := 0; i < len(keysAndValues); i += 2 {
		if i+1 < len(keysAndValues) {
			fmt.Fprintf(&b, " %v=%v", keysAndValues[i], keysAndValues[i+1])
		} else {
			fmt.Fprintf(&b, " %v", keysAndValues[i])
		}
	}

	return b.String()
}
