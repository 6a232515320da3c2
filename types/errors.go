package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for redis-ts.
//
// These errors provide type-safe error checking using errors.Is() and errors.As().
// External errors are wrapped with context using fmt.Errorf("%s: %w", msg, err).

// Controller errors - Public API errors returned by the Controller.
var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrStoreRequired is returned when the store is nil.
	ErrStoreRequired = errors.New("store is required")

	// ErrAlreadyStarted is returned when Start is called on a running component.
	ErrAlreadyStarted = errors.New("already started")

	// ErrNotStarted is returned when operations require a started component.
	ErrNotStarted = errors.New("not started")

	// ErrScheduleConflict is returned when the schedule recorded in the store differs from
	// the locally configured one. It is never resolved automatically.
	ErrScheduleConflict = errors.New("schedule conflict")
)

// Store errors - Connectivity and protocol errors reported by store backends.
var (
	// ErrStoreUnavailable indicates a transient connectivity failure. Callers may retry.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrRunIDUnavailable is returned when the store does not report an instance identity.
	ErrRunIDUnavailable = errors.New("store run id unavailable")

	// ErrSessionClosed is returned when a released session is used again.
	ErrSessionClosed = errors.New("session closed")
)

// ConflictError describes a mismatch between the stored and the local schedule.
//
// It matches ErrScheduleConflict with errors.Is.
type ConflictError struct {
	// Key is the store key holding the remote schedule.
	Key string
	// Local is the locally configured schedule expression.
	Local string
	// Remote is the schedule expression found in the store.
	Remote string
}

// Error implements error.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("schedule conflict on key %s: stored [%s] differs from configured [%s]; "+
		"clear the stored schedule to reinitialize", e.Key, e.Remote, e.Local)
}

// Is reports whether target is ErrScheduleConflict.
func (e *ConflictError) Is(target error) bool {
	return target == ErrScheduleConflict
}

// Unavailable wraps err so that it matches ErrStoreUnavailable.
//
// Parameters:
//   - op: Operation that failed, e.g. "acquire"
//   - err: Underlying cause (may be nil)
//
// Returns:
//   - error: Error matching both ErrStoreUnavailable and err
func Unavailable(op string, err error) error {
	if err == nil {
		return fmt.Errorf("%s: %w", op, ErrStoreUnavailable)
	}
	if errors.Is(err, ErrStoreUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
