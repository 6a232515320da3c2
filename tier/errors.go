package tier

import (
	"errors"
	"fmt"
)

// Sentinel errors for schedule parsing.
var (
	// ErrInvalidTierDefinition is returned when a tier or schedule expression cannot be parsed.
	ErrInvalidTierDefinition = errors.New("invalid tier definition")

	// ErrTierStateInconsistent is returned when period, span and count are all supplied
	// but do not satisfy span = period × count.
	ErrTierStateInconsistent = errors.New("tier state inconsistent")

	// ErrUnknownUnitCode is returned for an empty or unrecognized unit short code.
	ErrUnknownUnitCode = errors.New("unknown unit code")
)

// errOutOfRange marks values whose length in seconds does not fit an int64.
var errOutOfRange = errors.New("value out of range")

// DefinitionError describes why a tier definition was rejected.
//
// It matches ErrInvalidTierDefinition with errors.Is.
type DefinitionError struct {
	// Definition is the offending definition as supplied.
	Definition string
	// Reason is a short description such as "empty" or "duplicate attribute".
	Reason string
	// Err is an optional underlying cause.
	Err error
}

// Error implements error.
func (e *DefinitionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid tier definition [%s]: %s: %v", e.Definition, e.Reason, e.Err)
	}

	return fmt.Sprintf("invalid tier definition [%s]: %s", e.Definition, e.Reason)
}

// Is reports whether target is ErrInvalidTierDefinition.
func (e *DefinitionError) Is(target error) bool {
	return target == ErrInvalidTierDefinition
}

// Unwrap returns the underlying cause, if any.
func (e *DefinitionError) Unwrap() error {
	return e.Err
}

// InconsistencyError reports a cross-validation mismatch among period, span and count.
//
// It matches both ErrTierStateInconsistent and ErrInvalidTierDefinition with errors.Is.
type InconsistencyError struct {
	// Definition is the offending definition as supplied.
	Definition string
	// Attribute is the attribute key that failed validation ("p", "d" or "c").
	Attribute string
	// Given is the supplied value.
	Given string
	// Expected is the value derived from the other two attributes.
	Expected string
}

// Error implements error.
func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("tier state inconsistent [%s]: attribute %s(%s) was %s but should be %s",
		e.Definition, e.Attribute, attributeName(e.Attribute), e.Given, e.Expected)
}

// Is reports whether target is ErrTierStateInconsistent or ErrInvalidTierDefinition.
func (e *InconsistencyError) Is(target error) bool {
	return target == ErrTierStateInconsistent || target == ErrInvalidTierDefinition
}

func attributeName(key string) string {
	switch key {
	case attrPeriod:
		return "period"
	case attrSpan:
		return "tier duration"
	case attrCount:
		return "period count"
	case attrName:
		return "name"
	default:
		return "unknown"
	}
}
