package epochday_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/heropicks/pkg/epochday"
)

func TestFromUnix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		sec  int64
		want epochday.Day
	}{
		{name: "epoch", sec: 0, want: 0},
		{name: "last second of day 0", sec: 86399, want: 0},
		{name: "first second of day 1", sec: 86400, want: 1},
		{name: "one second before epoch", sec: -1, want: -1},
		{name: "exactly one day before epoch", sec: -86400, want: -1},
		{name: "day 18000", sec: 18000*86400 + 3600, want: 18000},
		{name: "dota match", sec: 1449186603, want: 16772},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := epochday.FromUnix(tt.sec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromUnix_MatchesTimePackage(t *testing.T) {
	t.Parallel()

	for _, sec := range []int64{-5000000000, -1, 0, 1, 1300000000, 1700000000, 4102444800} {
		got, err := epochday.FromUnix(sec)
		require.NoError(t, err)

		want := time.Unix(sec, 0).UTC()
		assert.Equal(t, want.Format(time.DateOnly), got.String(), "sec=%d", sec)
	}
}

func TestFromUnix_Pure(t *testing.T) {
	t.Parallel()

	first, err := epochday.FromUnix(1449186603)
	require.NoError(t, err)

	second, err := epochday.FromUnix(1449186603)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestFromUnix_Monotonic(t *testing.T) {
	t.Parallel()

	prev, err := epochday.FromUnix(-200000)
	require.NoError(t, err)

	for sec := int64(-200000); sec <= 200000; sec += 3333 {
		day, dayErr := epochday.FromUnix(sec)
		require.NoError(t, dayErr)
		assert.GreaterOrEqual(t, day, prev)

		prev = day
	}
}

func TestFromUnix_OutOfRange(t *testing.T) {
	t.Parallel()

	_, err := epochday.FromUnix(epochday.MaxUnix + 1)
	require.ErrorIs(t, err, epochday.ErrOutOfRange)

	_, err = epochday.FromUnix(epochday.MinUnix - 1)
	require.ErrorIs(t, err, epochday.ErrOutOfRange)

	_, err = epochday.FromUnix(epochday.MaxUnix)
	require.NoError(t, err)
}

func TestParse(t *testing.T) {
	t.Parallel()

	day, err := epochday.Parse("2011-11-22")
	require.NoError(t, err)
	assert.Equal(t, epochday.Day(15300), day)
	assert.Equal(t, "2011-11-22", day.String())

	day, err = epochday.Parse("18000")
	require.NoError(t, err)
	assert.Equal(t, epochday.Day(18000), day)
	assert.Equal(t, "18000", day.Ordinal())

	_, err = epochday.Parse("yesterday")
	require.Error(t, err)
}

func TestDay_Time(t *testing.T) {
	t.Parallel()

	assert.Equal(t, time.Date(1970, 1, 2, 0, 0, 0, 0, time.UTC), epochday.Day(1).Time())
	assert.Equal(t, epochday.Day(1), epochday.FromTime(time.Date(1970, 1, 2, 23, 0, 0, 0, time.UTC)))
}
