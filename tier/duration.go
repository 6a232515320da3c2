package tier

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
)

var durationPattern = regexp.MustCompile(`^(?i)(\d+)([smhdw])$`)

// Duration is a non-negative magnitude expressed in a Unit.
type Duration struct {
	Magnitude int64
	Unit      Unit
}

// NewDuration creates a duration, rejecting negative magnitudes, unknown units and
// magnitudes whose length in seconds does not fit an int64.
func NewDuration(magnitude int64, unit Unit) (Duration, error) {
	if magnitude < 0 {
		return Duration{}, fmt.Errorf("negative duration magnitude %d", magnitude)
	}
	if !unit.Valid() {
		return Duration{}, fmt.Errorf("%w: unit %d", ErrUnknownUnitCode, int(unit))
	}
	if magnitude > math.MaxInt64/unit.Seconds() {
		return Duration{}, fmt.Errorf("%w: %d%s", errOutOfRange, magnitude, unit.Code())
	}

	return Duration{Magnitude: magnitude, Unit: unit}, nil
}

// ParseDuration parses "<digits><unit-code>", e.g. "15s" or "2H".
func ParseDuration(s string) (Duration, error) {
	m := durationPattern.FindStringSubmatch(s)
	if m == nil {
		return Duration{}, fmt.Errorf("malformed duration [%s]", s)
	}

	magnitude, err := strconv.ParseInt(m[1], 10, 64)
	if errors.Is(err, strconv.ErrRange) {
		return Duration{}, fmt.Errorf("%w: duration [%s]", errOutOfRange, s)
	}
	if err != nil {
		return Duration{}, fmt.Errorf("malformed duration [%s]: %w", s, err)
	}

	unit, err := ForCode(m[2])
	if err != nil {
		return Duration{}, err
	}

	d, err := NewDuration(magnitude, unit)
	if err != nil {
		return Duration{}, fmt.Errorf("duration [%s]: %w", s, err)
	}

	return d, nil
}

// Seconds returns the duration in seconds.
func (d Duration) Seconds() int64 {
	return d.Magnitude * d.Unit.Seconds()
}

// RenderIn converts d into unit. The conversion truncates, so callers should only use it
// when the result is known to be exact.
func (d Duration) RenderIn(unit Unit) Duration {
	return Duration{Magnitude: unit.Convert(d.Magnitude, d.Unit), Unit: unit}
}

// Refine returns the equivalent duration in the largest unit that expresses it as a whole
// number, e.g. 3600s refines to 1h while 90s stays 90s. Zero refines to 0s.
func (d Duration) Refine() Duration {
	secs := d.Seconds()
	if secs == 0 {
		return Duration{Magnitude: 0, Unit: Seconds}
	}

	all := Units()
	for i := len(all) - 1; i >= 0; i-- {
		u := all[i]
		if secs%u.Seconds() == 0 {
			return Duration{Magnitude: secs / u.Seconds(), Unit: u}
		}
	}

	return Duration{Magnitude: secs, Unit: Seconds}
}

// Equal reports whether d and other have identical refined forms.
func (d Duration) Equal(other Duration) bool {
	return d.Refine() == other.Refine()
}

// String renders the duration as "<magnitude><code>", e.g. "15s".
func (d Duration) String() string {
	return strconv.FormatInt(d.Magnitude, 10) + d.Unit.Code()
}
