package datefmt_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ot-slot-booking/internal/datefmt"
)

func TestToStorage_DisplayFormat(t *testing.T) {
	got, err := datefmt.ToStorage("15-12-2025")
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, time.December, 15, 0, 0, 0, 0, time.UTC), got)
}

func TestToStorage_StorageFormat(t *testing.T) {
	got, err := datefmt.ToStorage("2025-12-15")
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, time.December, 15, 0, 0, 0, 0, time.UTC), got)
}

func TestToStorage_Rejects(t *testing.T) {
	for _, in := range []string{"", "12/15/2025", "2025-13-01", "32-01-2025", "yesterday", "15-12-25"} {
		_, err := datefmt.ToStorage(in)
		require.ErrorIs(t, err, datefmt.ErrBadDate, "input %q", in)
	}
}

func TestRoundTrip(t *testing.T) {
	for _, d := range []string{"01-01-2024", "29-02-2024", "15-12-2025", "31-12-2099"} {
		parsed, err := datefmt.ToStorage(d)
		require.NoError(t, err)
		require.Equal(t, d, datefmt.ToDisplay(parsed))
	}
}

func TestValidClock(t *testing.T) {
	valid := []string{"09:30", "9:30", "23:59", "00:00", "14:05:59"}
	for _, s := range valid {
		require.True(t, datefmt.ValidClock(s), "expected %q to be valid", s)
	}
	invalid := []string{"", "24:00", "12:60", "12", "12:5", "12:05:60", "noon", "12:05:5"}
	for _, s := range invalid {
		require.False(t, datefmt.ValidClock(s), "expected %q to be invalid", s)
	}
}
