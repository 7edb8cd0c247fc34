// Package safeconv converts between signed and unsigned counters without
// wrapping. Row and pick counts are uint64 but metrics, humanize and
// Parquet want int64.
package safeconv

import "math"

// Int64 converts v, saturating at math.MaxInt64.
func Int64(v uint64) int64 {
	if v > math.MaxInt64 {
		return math.MaxInt64
	}

	return int64(v)
}

// Uint64 converts v, mapping negative values to zero.
func Uint64(v int64) uint64 {
	if v < 0 {
		return 0
	}

	return uint64(v)
}
