package tier

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseTier_Derivation(t *testing.T) {
	t.Run("derives span from count and period at level 0", func(t *testing.T) {
		tr, err := ParseTier("c=60, p=15s", 0)
		require.NoError(t, err)

		require.Equal(t, "live", tr.Name())
		require.Equal(t, 0, tr.Level())
		require.Equal(t, int64(15), tr.Period().Seconds())
		require.Equal(t, int64(900), tr.Span().Seconds())
		require.Equal(t, int64(60), tr.PeriodCount())
		require.True(t, tr.IsLive())
	})

	t.Run("derives period from span alias and count", func(t *testing.T) {
		tr, err := ParseTier("t=15m, c=60", 1)
		require.NoError(t, err)

		require.Equal(t, "tier1", tr.Name())
		require.Equal(t, Duration{15, Seconds}, tr.Period())
		require.Equal(t, int64(900), tr.Span().Seconds())
		require.Equal(t, int64(60), tr.PeriodCount())
	})

	t.Run("derives count from period and span", func(t *testing.T) {
		tr, err := ParseTier("p=2m,d=1h", 3)
		require.NoError(t, err)

		require.Equal(t, int64(30), tr.PeriodCount())
		require.Equal(t, "tier3", tr.Name())
	})

	t.Run("refines the derived attribute", func(t *testing.T) {
		tr, err := ParseTier("p=1h,c=24", 1)
		require.NoError(t, err)
		require.Equal(t, Duration{1, Days}, tr.Span())

		tr, err = ParseTier("d=1d,c=24", 1)
		require.NoError(t, err)
		require.Equal(t, Duration{1, Hours}, tr.Period())
	})

	t.Run("derived attribute always satisfies the span invariant", func(t *testing.T) {
		defs := []string{
			"p=15s,c=60", "p=1m,c=7", "p=5m,d=1w", "d=2h,c=8", "d=3d,p=6h",
			"p=90s,c=40", "c=1,d=1s", "p=1w,c=52",
		}
		for _, def := range defs {
			tr, err := ParseTier(def, 1)
			require.NoError(t, err, def)
			require.Equal(t, tr.Span().Seconds(), tr.Period().Seconds()*tr.PeriodCount(), def)
		}
	})

	t.Run("uses supplied name below level 0", func(t *testing.T) {
		tr, err := ParseTier("p=1m,d=1h,n=hourly", 2)
		require.NoError(t, err)
		require.Equal(t, "hourly", tr.Name())
	})

	t.Run("keeps the case of the name", func(t *testing.T) {
		tr, err := ParseTier("P=1M, D=1H, N=Hourly", 2)
		require.NoError(t, err)
		require.Equal(t, "Hourly", tr.Name())
		require.Equal(t, "p=1m,d=1h,c=60,n=Hourly", tr.Definition())
	})

	t.Run("accepts the largest period that fits in seconds", func(t *testing.T) {
		tr, err := ParseTier("p=15250284452471w,c=1", 1)
		require.NoError(t, err)
		require.Equal(t, Duration{15250284452471, Weeks}, tr.Span())
		require.Equal(t, tr.Span().Seconds(), tr.Period().Seconds()*tr.PeriodCount())
	})

	t.Run("level 0 is always live", func(t *testing.T) {
		tr, err := ParseTier("p=1m,d=1h,n=raw", 0)
		require.NoError(t, err)
		require.Equal(t, LiveTierName, tr.Name())
	})

	t.Run("empty name falls back to default", func(t *testing.T) {
		tr, err := ParseTier("p=1m,d=1h,n=", 4)
		require.NoError(t, err)
		require.Equal(t, "tier4", tr.Name())
	})

	t.Run("ignores whitespace and case", func(t *testing.T) {
		tr, err := ParseTier("  P = 15S ,\tD=15M ", 0)
		require.NoError(t, err)
		require.Equal(t, int64(60), tr.PeriodCount())
	})
}

func TestParseTier_Validation(t *testing.T) {
	t.Run("accepts three consistent attributes", func(t *testing.T) {
		tr, err := ParseTier("p=15s,d=15m,c=60", 1)
		require.NoError(t, err)

		require.Equal(t, Duration{15, Seconds}, tr.Period())
		require.Equal(t, Duration{15, Minutes}, tr.Span())
		require.Equal(t, int64(60), tr.PeriodCount())
	})

	t.Run("accepts consistent values in mixed units", func(t *testing.T) {
		tr, err := ParseTier("d=900s,c=60,p=15s", 1)
		require.NoError(t, err)
		require.Equal(t, Duration{900, Seconds}, tr.Span())
	})

	cases := []struct {
		name     string
		def      string
		attr     string
		given    string
		expected string
	}{
		{"wrong count supplied last", "p=15s,d=15m,c=61", "c", "61", "60"},
		{"wrong span supplied last", "p=15s,c=60,d=16m", "d", "16m", "15m"},
		{"wrong period supplied last", "c=60,d=15m,p=10s", "p", "10s", "15s"},
		{"span alias supplied last", "p=1m,c=60,t=2h", "d", "2h", "1h"},
		{"inexact expected period", "d=1m,c=7,p=8s", "p", "8s", "8.571s"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseTier(tc.def, 1)
			require.ErrorIs(t, err, ErrTierStateInconsistent)
			require.ErrorIs(t, err, ErrInvalidTierDefinition)

			var incErr *InconsistencyError
			require.True(t, errors.As(err, &incErr))
			require.Equal(t, tc.attr, incErr.Attribute)
			require.Equal(t, tc.given, incErr.Given)
			require.Equal(t, tc.expected, incErr.Expected)
		})
	}

	t.Run("checks attributes in reverse supplied order", func(t *testing.T) {
		// Same values, different order: the last supplied attribute is the one reported.
		_, err := ParseTier("c=60,d=16m,p=15s", 1)
		var incErr *InconsistencyError
		require.ErrorAs(t, err, &incErr)
		require.Equal(t, "p", incErr.Attribute)
		require.Equal(t, "16s", incErr.Expected)

		_, err = ParseTier("p=15s,c=60,d=16m", 1)
		require.ErrorAs(t, err, &incErr)
		require.Equal(t, "d", incErr.Attribute)
	})
}

func TestParseTier_Errors(t *testing.T) {
	cases := []struct {
		name   string
		def    string
		level  int
		reason string
	}{
		{"empty", "", 0, "empty"},
		{"whitespace only", " \t ", 0, "empty"},
		{"malformed key", "x=15s,d=1h", 0, "malformed expression"},
		{"missing value separator", "p15s,d=1h", 0, "malformed expression"},
		{"bad unit", "p=15y,d=1h", 0, "malformed expression"},
		{"non-integer count", "p=15s,c=6o", 0, "malformed expression"},
		{"trailing comma", "p=15s,d=1h,", 0, "malformed expression"},
		{"duplicate period", "p=15s,p=30s", 0, "duplicate attribute"},
		{"span and alias", "d=1h,t=1h,c=4", 0, "duplicate attribute"},
		{"single attribute", "p=15s", 0, "insufficient attributes"},
		{"name does not count", "p=15s,n=x", 1, "insufficient attributes"},
		{"zero count", "p=15s,c=0", 0, "zero-valued attribute"},
		{"zero period", "p=0s,d=1h", 0, "zero-valued attribute"},
		{"inexact period", "d=1m,c=7", 0, "inexact derivation"},
		{"inexact count", "d=1m,p=7s", 0, "inexact derivation"},
		{"negative level", "p=15s,d=1h", -1, "negative level"},
		{"period seconds overflow", "p=144115188075855872w,d=1s", 1, "attribute out of range"},
		{"period just past the limit", "p=15250284452472w,c=1", 1, "attribute out of range"},
		{"derived span overflows", "p=20000000000000w,c=2", 1, "attribute out of range"},
		{"period times count overflows", "p=1w,c=9223372036854775807", 1, "attribute out of range"},
		{"span overflow with count", "p=15s,d=144115188075855872w,c=3", 1, "attribute out of range"},
		{"magnitude exceeds int64", "p=99999999999999999999s,c=2", 1, "attribute out of range"},
		{"count exceeds int64", "p=1s,c=99999999999999999999", 1, "attribute out of range"},
		{"product overflow with span", "p=1w,d=1s,c=9223372036854775807", 1, "attribute out of range"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseTier(tc.def, tc.level)
			require.ErrorIs(t, err, ErrInvalidTierDefinition)
			require.NotErrorIs(t, err, ErrTierStateInconsistent)

			var defErr *DefinitionError
			require.ErrorAs(t, err, &defErr)
			require.Contains(t, defErr.Reason, tc.reason)
		})
	}
}

func TestTier_Definition(t *testing.T) {
	tr, err := ParseTier("p=15s,d=15m", 2)
	require.NoError(t, err)
	require.Equal(t, "p=15s,d=15m,c=60,n=tier2", tr.Definition())

	again, err := ParseTier(tr.Definition(), 2)
	require.NoError(t, err)
	require.True(t, tr.Equal(again))
}
