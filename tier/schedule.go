package tier

import (
	"fmt"
	"strings"

	"github.com/zeebo/xxh3"
)

// Separator joins tier definitions in a schedule expression.
const Separator = "|"

// Schedule is an ordered, non-empty sequence of tiers. Level 0 is always the live tier.
//
// A Schedule is immutable and safe for concurrent use.
type Schedule struct {
	expression string
	canonical  string
	tiers      []*Tier
}

// ParseSchedule parses a full schedule expression.
//
// Construction is all-or-nothing: the first tier error aborts parsing and no partial
// schedule is returned.
//
// Parameters:
//   - expr: Tier definitions joined by "|", e.g. "p=15s,d=15m|p=2m,d=1h"
//
// Returns:
//   - *Schedule: The parsed schedule
//   - error: The tier error (ErrInvalidTierDefinition or ErrTierStateInconsistent) on failure
func ParseSchedule(expr string) (*Schedule, error) {
	canonical := NormalizeExpression(expr)
	if canonical == "" {
		return nil, &DefinitionError{Definition: expr, Reason: "empty schedule"}
	}

	fragments := strings.Split(canonical, Separator)
	tiers := make([]*Tier, 0, len(fragments))
	names := make(map[string]int, len(fragments))

	for level, fragment := range fragments {
		t, err := ParseTier(fragment, level)
		if err != nil {
			return nil, fmt.Errorf("schedule tier %d: %w", level, err)
		}

		if prev, ok := names[t.Name()]; ok {
			return nil, fmt.Errorf("schedule tier %d: %w", level, &DefinitionError{
				Definition: fragment,
				Reason:     fmt.Sprintf("duplicate tier name [%s] already used by tier %d", t.Name(), prev),
			})
		}
		names[t.Name()] = level
		tiers = append(tiers, t)
	}

	return &Schedule{expression: expr, canonical: canonical, tiers: tiers}, nil
}

// MustParseSchedule is like ParseSchedule but panics on error.
func MustParseSchedule(expr string) *Schedule {
	s, err := ParseSchedule(expr)
	if err != nil {
		panic(err)
	}

	return s
}

// NormalizeExpression removes all whitespace from a schedule expression.
//
// Two expressions describe the same stored schedule when their normalized forms are equal.
func NormalizeExpression(expr string) string {
	return stripWhitespace(expr)
}

// Expression returns the expression exactly as supplied to ParseSchedule.
func (s *Schedule) Expression() string { return s.expression }

// Canonical returns the whitespace-free form of the expression.
func (s *Schedule) Canonical() string { return s.canonical }

// Fingerprint returns a hex xxh3 hash of the canonical expression.
func (s *Schedule) Fingerprint() string {
	return fmt.Sprintf("%016x", xxh3.HashString(s.canonical))
}

// Len returns the number of tiers.
func (s *Schedule) Len() int { return len(s.tiers) }

// Tier returns the tier at level, or nil if level is out of range.
func (s *Schedule) Tier(level int) *Tier {
	if level < 0 || level >= len(s.tiers) {
		return nil
	}

	return s.tiers[level]
}

// Tiers returns a copy of the tier sequence.
func (s *Schedule) Tiers() []*Tier {
	out := make([]*Tier, len(s.tiers))
	copy(out, s.tiers)

	return out
}

// TierNames returns the tier names in level order.
func (s *Schedule) TierNames() []string {
	names := make([]string, len(s.tiers))
	for i, t := range s.tiers {
		names[i] = t.Name()
	}

	return names
}

// String implements fmt.Stringer.
func (s *Schedule) String() string {
	parts := make([]string, len(s.tiers))
	for i, t := range s.tiers {
		parts[i] = t.Definition()
	}

	return "Schedule[" + strings.Join(parts, " | ") + "]"
}
