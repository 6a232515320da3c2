package tier

import (
	"fmt"
	"strings"
)

// Unit is a time unit used by tier definitions.
//
// Units start at seconds and end at weeks; each carries a one-letter short code.
type Unit int

const (
	// Seconds is the seconds unit (code "s").
	Seconds Unit = iota
	// Minutes is the minutes unit (code "m").
	Minutes
	// Hours is the hours unit (code "h").
	Hours
	// Days is the days unit (code "d").
	Days
	// Weeks is the weeks unit (code "w").
	Weeks
)

type unitInfo struct {
	name    string
	code    string
	seconds int64
}

// units is indexed by Unit and ordered from smallest to largest.
var units = [...]unitInfo{
	Seconds: {name: "SECONDS", code: "s", seconds: 1},
	Minutes: {name: "MINUTES", code: "m", seconds: 60},
	Hours:   {name: "HOURS", code: "h", seconds: 3600},
	Days:    {name: "DAYS", code: "d", seconds: 86400},
	Weeks:   {name: "WEEKS", code: "w", seconds: 7 * 86400},
}

// Units returns all units ordered from smallest to largest.
func Units() []Unit {
	return []Unit{Seconds, Minutes, Hours, Days, Weeks}
}

// ForCode returns the unit for a short code. Lookup trims the code and ignores case.
//
// Parameters:
//   - code: One of s, m, h, d, w (any case)
//
// Returns:
//   - Unit: The matching unit
//   - error: ErrUnknownUnitCode if the code is empty or not recognized
func ForCode(code string) (Unit, error) {
	c := strings.ToLower(strings.TrimSpace(code))
	for i := range units {
		if units[i].code == c && c != "" {
			return Unit(i), nil
		}
	}

	return Seconds, fmt.Errorf("%w: [%s]", ErrUnknownUnitCode, code)
}

// IsValidCode reports whether code is a recognized unit short code, ignoring case.
func IsValidCode(code string) bool {
	_, err := ForCode(code)
	return err == nil
}

// Valid reports whether u is one of the defined units.
func (u Unit) Valid() bool {
	return u >= Seconds && int(u) < len(units)
}

// Seconds returns the number of seconds in one u.
func (u Unit) Seconds() int64 {
	if !u.Valid() {
		return 0
	}

	return units[u].seconds
}

// Code returns the lower-case short code of u.
func (u Unit) Code() string {
	if !u.Valid() {
		return "?"
	}

	return units[u].code
}

// String returns the unit name, e.g. "MINUTES".
func (u Unit) String() string {
	if !u.Valid() {
		return "UNKNOWN"
	}

	return units[u].name
}

// Convert converts value expressed in from into u using integer arithmetic.
//
// The result truncates: converting 90 minutes to hours yields 1.
func (u Unit) Convert(value int64, from Unit) int64 {
	if from == u {
		return value
	}

	return value * from.Seconds() / u.Seconds()
}
