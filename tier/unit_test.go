package tier

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestForCode(t *testing.T) {
	t.Run("resolves every unit code", func(t *testing.T) {
		cases := map[string]Unit{"s": Seconds, "m": Minutes, "h": Hours, "d": Days, "w": Weeks}
		for code, want := range cases {
			got, err := ForCode(code)
			require.NoError(t, err)
			require.Equal(t, want, got)
		}
	})

	t.Run("is case-insensitive", func(t *testing.T) {
		upper, err := ForCode("H")
		require.NoError(t, err)
		lower, err := ForCode("h")
		require.NoError(t, err)
		require.Equal(t, lower, upper)
	})

	t.Run("trims surrounding whitespace", func(t *testing.T) {
		got, err := ForCode("  w ")
		require.NoError(t, err)
		require.Equal(t, Weeks, got)
	})

	t.Run("rejects empty and unknown codes", func(t *testing.T) {
		for _, code := range []string{"", " ", "x", "ms", "sec"} {
			_, err := ForCode(code)
			require.ErrorIs(t, err, ErrUnknownUnitCode, "code %q", code)
		}
	})
}

func TestIsValidCode(t *testing.T) {
	require.True(t, IsValidCode("D"))
	require.False(t, IsValidCode("y"))
}

func TestUnit_Convert(t *testing.T) {
	require.Equal(t, int64(2), Hours.Convert(120, Minutes))
	require.Equal(t, int64(1), Hours.Convert(90, Minutes))
	require.Equal(t, int64(604800), Seconds.Convert(1, Weeks))
	require.Equal(t, int64(7), Days.Convert(7, Days))
}

func TestUnit_Accessors(t *testing.T) {
	require.Equal(t, int64(86400), Days.Seconds())
	require.Equal(t, "m", Minutes.Code())
	require.Equal(t, "WEEKS", Weeks.String())
	require.False(t, Unit(42).Valid())
	require.Equal(t, "UNKNOWN", Unit(42).String())
}
