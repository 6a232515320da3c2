package tier

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSchedule(t *testing.T) {
	t.Run("parses tiers in level order", func(t *testing.T) {
		s, err := ParseSchedule("p=15s,d=15m|p=2m,d=1h")
		require.NoError(t, err)
		require.Equal(t, 2, s.Len())

		live := s.Tier(0)
		require.Equal(t, 0, live.Level())
		require.Equal(t, "live", live.Name())
		require.Equal(t, int64(60), live.PeriodCount())

		t1 := s.Tier(1)
		require.Equal(t, 1, t1.Level())
		require.Equal(t, "tier1", t1.Name())
		require.Equal(t, int64(30), t1.PeriodCount())

		require.Nil(t, s.Tier(2))
		require.Nil(t, s.Tier(-1))
	})

	t.Run("strips whitespace around fragments", func(t *testing.T) {
		s, err := ParseSchedule(" p=15s, d=15m |\n p=2m , d=1h , n=hourly | p=1h,d=1w ")
		require.NoError(t, err)
		require.Equal(t, []string{"live", "hourly", "tier2"}, s.TierNames())
		require.Equal(t, "p=15s,d=15m|p=2m,d=1h,n=hourly|p=1h,d=1w", s.Canonical())
	})

	t.Run("keeps the expression verbatim", func(t *testing.T) {
		expr := "p=15s, d=15m | p=2m, d=1h"
		s, err := ParseSchedule(expr)
		require.NoError(t, err)
		require.Equal(t, expr, s.Expression())
	})

	t.Run("fails on the first invalid tier", func(t *testing.T) {
		s, err := ParseSchedule("p=15s,d=15m|p=2m|p=1h,d=1w")
		require.Nil(t, s)
		require.ErrorIs(t, err, ErrInvalidTierDefinition)
		require.Contains(t, err.Error(), "tier 1")
	})

	t.Run("propagates inconsistency errors", func(t *testing.T) {
		_, err := ParseSchedule("p=15s,d=15m|p=2m,d=1h,c=31")
		require.ErrorIs(t, err, ErrTierStateInconsistent)

		var incErr *InconsistencyError
		require.ErrorAs(t, err, &incErr)
		require.Equal(t, "c", incErr.Attribute)
	})

	t.Run("rejects empty expression and empty fragments", func(t *testing.T) {
		_, err := ParseSchedule("  ")
		require.ErrorIs(t, err, ErrInvalidTierDefinition)

		_, err = ParseSchedule("p=15s,d=15m||p=2m,d=1h")
		require.ErrorIs(t, err, ErrInvalidTierDefinition)
	})

	t.Run("rejects duplicate tier names", func(t *testing.T) {
		_, err := ParseSchedule("p=15s,d=15m|p=2m,d=1h,n=live")
		require.ErrorIs(t, err, ErrInvalidTierDefinition)
		require.Contains(t, err.Error(), "duplicate tier name")
	})
}

func TestSchedule_Fingerprint(t *testing.T) {
	a := MustParseSchedule("p=15s,d=15m|p=2m,d=1h")
	b := MustParseSchedule(" p=15s , d=15m | p=2m , d=1h ")
	c := MustParseSchedule("p=15s,d=15m|p=5m,d=1h")

	require.Len(t, a.Fingerprint(), 16)
	require.Equal(t, a.Fingerprint(), b.Fingerprint())
	require.NotEqual(t, a.Fingerprint(), c.Fingerprint())
}

func TestSchedule_TiersReturnsCopy(t *testing.T) {
	s := MustParseSchedule("p=15s,d=15m|p=2m,d=1h")
	tiers := s.Tiers()
	tiers[0] = nil

	require.NotNil(t, s.Tier(0))
}

func TestNormalizeExpression(t *testing.T) {
	require.Equal(t, "p=15s,d=15m|p=2m,d=1h", NormalizeExpression(" p=15s,\td=15m |\r\np=2m, d=1h"))
	require.Equal(t, "P=15S", NormalizeExpression("P = 15S"))
}

func TestMustParseSchedule_Panics(t *testing.T) {
	require.Panics(t, func() { MustParseSchedule("bogus") })
}
