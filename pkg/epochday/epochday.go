// Package epochday converts Unix timestamps to calendar-day ordinals.
//
// A Day counts whole UTC days since 1970-01-01, which is day 0. The conversion
// is plain integer arithmetic, so it never consults the local time zone.
package epochday

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// SecondsPerDay is the length of a UTC calendar day in seconds.
const SecondsPerDay = 24 * 60 * 60

// Supported timestamp range: 0001-01-01T00:00:00Z to 9999-12-31T23:59:59Z.
const (
	MinUnix int64 = -62135596800
	MaxUnix int64 = 253402300799
)

// Layout is the textual form of a Day.
const Layout = time.DateOnly

// ErrOutOfRange is returned for timestamps outside [MinUnix, MaxUnix].
var ErrOutOfRange = errors.New("timestamp out of range")

// Day is the number of days elapsed since 1970-01-01 UTC.
type Day int64

// FromUnix returns the day containing the given Unix timestamp.
func FromUnix(sec int64) (Day, error) {
	if sec < MinUnix || sec > MaxUnix {
		return 0, fmt.Errorf("%w: %d", ErrOutOfRange, sec)
	}

	day := sec / SecondsPerDay
	if sec%SecondsPerDay < 0 {
		day--
	}

	return Day(day), nil
}

// FromTime returns the UTC day containing t.
func FromTime(t time.Time) Day {
	day, err := FromUnix(t.Unix())
	if err != nil {
		// time.Time can represent years outside the supported range; clamp them.
		if t.Unix() < MinUnix {
			return Day(MinUnix / SecondsPerDay)
		}

		return Day(MaxUnix / SecondsPerDay)
	}

	return day
}

// Parse reads a day in YYYY-MM-DD form or as a bare ordinal.
func Parse(s string) (Day, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Day(n), nil
	}

	t, err := time.ParseInLocation(Layout, s, time.UTC)
	if err != nil {
		return 0, fmt.Errorf("parse day %q: %w", s, err)
	}

	return FromTime(t), nil
}

// Time returns midnight UTC of the day.
func (d Day) Time() time.Time {
	return time.Unix(int64(d)*SecondsPerDay, 0).UTC()
}

// String formats the day as YYYY-MM-DD.
func (d Day) String() string {
	return d.Time().Format(Layout)
}

// Ordinal formats the day as its decimal ordinal, the form used for JSON keys.
func (d Day) Ordinal() string {
	return strconv.FormatInt(int64(d), 10)
}
