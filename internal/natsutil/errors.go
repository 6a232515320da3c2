// Package natsutil classifies NATS client errors.
//
// Kept apart from types/ so that package stays free of NATS imports.
package natsutil

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/nickman/redis-ts/types"
)

// IsConnectivityError reports whether err was caused by losing the NATS connection.
//
// This covers client timeouts, missing servers, dropped and closed connections, and
// JetStream requests that got no response.
//
// Parameters:
//   - err: Error to check
//
// Returns:
//   - bool: true if err indicates a connectivity issue
func IsConnectivityError(err error) bool {
	if err == nil {
		return false
	}

	return errors.Is(err, types.ErrStoreUnavailable) ||
		errors.Is(err, nats.ErrTimeout) ||
		errors.Is(err, nats.ErrNoServers) ||
		errors.Is(err, nats.ErrDisconnected) ||
		errors.Is(err, nats.ErrConnectionClosed) ||
		errors.Is(err, nats.ErrConnectionReconnecting) ||
		errors.Is(err, jetstream.ErrNoStreamResponse) ||
		strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "i/o timeout")
}

// Classify wraps connectivity errors so they match types.ErrStoreUnavailable.
// Other errors are returned with op as context.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsConnectivityError(err) {
		return types.Unavailable(op, err)
	}

	return fmt.Errorf("%s: %w", op, err)
}
