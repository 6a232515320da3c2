package tier

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// LiveTierName is the reserved name of the level 0 tier.
const LiveTierName = "live"

// Attribute keys of the tier grammar.
const (
	attrPeriod = "p"
	attrSpan   = "d"
	attrCount  = "c"
	attrName   = "n"

	// attrSpanAlias is accepted in place of attrSpan.
	attrSpanAlias = "t"
)

var (
	attributePattern = regexp.MustCompile(`^(?i)([pdtcn])=(.*)$`)
	countPattern     = regexp.MustCompile(`^\d+$`)
	namePattern      = regexp.MustCompile(`^[^=,|]*$`)
)

// Tier is one rollup level of a schedule.
//
// A Tier is immutable and always satisfies Span().Seconds() == Period().Seconds() * PeriodCount().
type Tier struct {
	name   string
	level  int
	period Duration
	span   Duration
	count  int64
}

// ParseTier parses a single tier definition.
//
// Exactly two of p, d and c derive the third. All three are cross-checked in the reverse of
// the order they appear in def, so the error names the attribute supplied last when the
// values disagree.
//
// Keys and unit codes are case-insensitive. The n value keeps its case.
//
// Parameters:
//   - def: Tier definition, e.g. "p=15s, d=15m" or "t=15m,c=60,n=quarter"
//   - level: Zero-based position of the tier in its schedule
//
// Returns:
//   - *Tier: The parsed tier
//   - error: *DefinitionError or *InconsistencyError on invalid input
func ParseTier(def string, level int) (*Tier, error) {
	if level < 0 {
		return nil, &DefinitionError{Definition: def, Reason: fmt.Sprintf("negative level %d", level)}
	}

	clean := stripWhitespace(def)
	if clean == "" {
		return nil, &DefinitionError{Definition: def, Reason: "empty"}
	}

	attrs, err := parseAttributes(def, clean)
	if err != nil {
		return nil, err
	}

	if attrs.supplied() < 2 {
		return nil, &DefinitionError{Definition: def, Reason: "insufficient attributes"}
	}

	t := &Tier{level: level, name: tierName(attrs.name, level)}

	if attrs.supplied() == 3 {
		if err := attrs.validate(def); err != nil {
			return nil, err
		}
		t.period, t.span, t.count = attrs.period, attrs.span, attrs.count

		return t, nil
	}

	if err := attrs.derive(def); err != nil {
		return nil, err
	}
	t.period, t.span, t.count = attrs.period, attrs.span, attrs.count

	return t, nil
}

// Name returns the tier name.
func (t *Tier) Name() string { return t.name }

// Level returns the zero-based level of the tier.
func (t *Tier) Level() int { return t.level }

// Period returns the length of one period.
func (t *Tier) Period() Duration { return t.period }

// Span returns the total span covered by the tier.
func (t *Tier) Span() Duration { return t.span }

// PeriodCount returns the number of periods in the span.
func (t *Tier) PeriodCount() int64 { return t.count }

// IsLive reports whether t is the level 0 tier.
func (t *Tier) IsLive() bool { return t.level == 0 }

// Definition renders t back into the tier grammar with all three attributes,
// e.g. "p=15s,d=15m,c=60,n=tier1".
func (t *Tier) Definition() string {
	return fmt.Sprintf("p=%s,d=%s,c=%d,n=%s", t.period, t.span, t.count, t.name)
}

// Equal reports whether both tiers have the same name, level and refined durations.
func (t *Tier) Equal(other *Tier) bool {
	if t == nil || other == nil {
		return t == other
	}

	return t.name == other.name &&
		t.level == other.level &&
		t.count == other.count &&
		t.period.Equal(other.period) &&
		t.span.Equal(other.span)
}

// String implements fmt.Stringer.
func (t *Tier) String() string {
	return fmt.Sprintf("Tier[level=%d, name=%s, period=%s, span=%s, count=%d]",
		t.level, t.name, t.period, t.span, t.count)
}

func tierName(name string, level int) string {
	if level == 0 {
		return LiveTierName
	}
	if name == "" {
		return "tier" + strconv.Itoa(level)
	}

	return name
}

// attributes holds parsed tier attributes together with the order they were supplied in.
type attributes struct {
	period Duration
	span   Duration
	count  int64
	name   string

	order []string
	raw   map[string]string
}

func (a *attributes) has(key string) bool {
	_, ok := a.raw[key]
	return ok
}

func (a *attributes) supplied() int {
	n := 0
	for _, key := range []string{attrPeriod, attrSpan, attrCount} {
		if a.has(key) {
			n++
		}
	}

	return n
}

func parseAttributes(def, clean string) (*attributes, error) {
	a := &attributes{raw: make(map[string]string, 4)}

	for _, expr := range strings.Split(clean, ",") {
		m := attributePattern.FindStringSubmatch(expr)
		if m == nil {
			return nil, &DefinitionError{Definition: def, Reason: fmt.Sprintf("malformed expression [%s]", expr)}
		}

		key, value := strings.ToLower(m[1]), m[2]
		if key == attrSpanAlias {
			key = attrSpan
		}
		if a.has(key) {
			return nil, &DefinitionError{Definition: def, Reason: fmt.Sprintf("duplicate attribute [%s]", key)}
		}

		if err := a.set(key, value); err != nil {
			if errors.Is(err, errOutOfRange) {
				return nil, &DefinitionError{
					Definition: def,
					Reason:     fmt.Sprintf("attribute out of range [%s]", key),
					Err:        err,
				}
			}
			return nil, &DefinitionError{
				Definition: def,
				Reason:     fmt.Sprintf("malformed expression [%s]", expr),
				Err:        err,
			}
		}
		if key != attrName && a.isZero(key) {
			return nil, &DefinitionError{Definition: def, Reason: fmt.Sprintf("zero-valued attribute [%s]", key)}
		}

		a.raw[key] = value
		a.order = append(a.order, key)
	}

	return a, nil
}

func (a *attributes) set(key, value string) error {
	var err error
	switch key {
	case attrPeriod:
		a.period, err = ParseDuration(value)
	case attrSpan:
		a.span, err = ParseDuration(value)
	case attrCount:
		if !countPattern.MatchString(value) {
			return fmt.Errorf("period count must be an integer, got [%s]", value)
		}
		a.count, err = strconv.ParseInt(value, 10, 64)
		if errors.Is(err, strconv.ErrRange) {
			return fmt.Errorf("%w: period count [%s]", errOutOfRange, value)
		}
	case attrName:
		if !namePattern.MatchString(value) {
			return fmt.Errorf("invalid tier name [%s]", value)
		}
		a.name = value
	}

	return err
}

func (a *attributes) isZero(key string) bool {
	switch key {
	case attrPeriod:
		return a.period.Magnitude == 0
	case attrSpan:
		return a.span.Magnitude == 0
	case attrCount:
		return a.count == 0
	}

	return false
}

// derive fills in the one missing attribute of p, d and c.
func (a *attributes) derive(def string) error {
	switch {
	case !a.has(attrSpan):
		spanSecs, ok := mulSeconds(a.period.Seconds(), a.count)
		if !ok {
			return productOutOfRange(def)
		}
		a.span = secondsDuration(spanSecs).Refine()
	case !a.has(attrPeriod):
		spanSecs := a.span.Seconds()
		if spanSecs%a.count != 0 {
			return &DefinitionError{
				Definition: def,
				Reason:     fmt.Sprintf("inexact derivation: span %s is not divisible by count %d", a.span, a.count),
			}
		}
		a.period = secondsDuration(spanSecs / a.count).Refine()
	case !a.has(attrCount):
		spanSecs, periodSecs := a.span.Seconds(), a.period.Seconds()
		if spanSecs%periodSecs != 0 {
			return &DefinitionError{
				Definition: def,
				Reason:     fmt.Sprintf("inexact derivation: span %s is not divisible by period %s", a.span, a.period),
			}
		}
		a.count = spanSecs / periodSecs
	}

	return nil
}

// validate checks every supplied attribute against the value derived from the other two,
// last supplied first.
func (a *attributes) validate(def string) error {
	spanSecs, periodSecs := a.span.Seconds(), a.period.Seconds()
	productSecs, ok := mulSeconds(periodSecs, a.count)
	if !ok {
		return productOutOfRange(def)
	}

	for i := len(a.order) - 1; i >= 0; i-- {
		key := a.order[i]

		var expected string
		switch key {
		case attrCount:
			if spanSecs%periodSecs == 0 && spanSecs/periodSecs == a.count {
				continue
			}
			expected = ratio(spanSecs, periodSecs)
		case attrSpan:
			derived := secondsDuration(productSecs)
			if derived.Seconds() == spanSecs {
				continue
			}
			expected = derived.Refine().String()
		case attrPeriod:
			if spanSecs%a.count == 0 && spanSecs/a.count == periodSecs {
				continue
			}
			if spanSecs%a.count == 0 {
				expected = secondsDuration(spanSecs / a.count).Refine().String()
			} else {
				expected = ratio(spanSecs, a.count) + Seconds.Code()
			}
		default:
			continue
		}

		return &InconsistencyError{
			Definition: def,
			Attribute:  key,
			Given:      a.raw[key],
			Expected:   expected,
		}
	}

	return nil
}

// mulSeconds multiplies two positive values, reporting false when the product overflows int64.
func mulSeconds(a, b int64) (int64, bool) {
	if a > math.MaxInt64/b {
		return 0, false
	}

	return a * b, true
}

func productOutOfRange(def string) error {
	return &DefinitionError{
		Definition: def,
		Reason:     "attribute out of range: period × count overflows",
		Err:        errOutOfRange,
	}
}

func secondsDuration(secs int64) Duration {
	return Duration{Magnitude: secs, Unit: Seconds}
}

func ratio(num, den int64) string {
	if num%den == 0 {
		return strconv.FormatInt(num/den, 10)
	}

	return strconv.FormatFloat(float64(num)/float64(den), 'f', 3, 64)
}

func stripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
