package redists

import (
	"github.com/nickman/redis-ts/tier"
	"github.com/nickman/redis-ts/types"
)

// Sentinel errors returned by the Controller.
var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = types.ErrInvalidConfig

	// ErrStoreRequired is returned when the store is nil.
	ErrStoreRequired = types.ErrStoreRequired

	// ErrAlreadyStarted is returned when Start is called on a running controller.
	ErrAlreadyStarted = types.ErrAlreadyStarted

	// ErrNotStarted is returned when an operation needs a running controller.
	ErrNotStarted = types.ErrNotStarted

	// ErrStoreUnavailable is returned when the store cannot be reached.
	ErrStoreUnavailable = types.ErrStoreUnavailable

	// ErrScheduleConflict is returned when the stored schedule differs from the local one.
	ErrScheduleConflict = types.ErrScheduleConflict

	// ErrRunIDUnavailable is returned when a store does not report its run id.
	ErrRunIDUnavailable = types.ErrRunIDUnavailable
)

// Tier expression errors.
var (
	// ErrInvalidTierDefinition is returned for malformed or incomplete tier definitions.
	ErrInvalidTierDefinition = tier.ErrInvalidTierDefinition

	// ErrTierStateInconsistent is returned when three tier attributes disagree.
	ErrTierStateInconsistent = tier.ErrTierStateInconsistent

	// ErrUnknownUnitCode is returned for an unrecognized time unit code.
	ErrUnknownUnitCode = tier.ErrUnknownUnitCode
)
