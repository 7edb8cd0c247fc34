package condense

import (
	"fmt"
	"math"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Sumatoshi-tech/heropicks/pkg/safeconv"
)

// wallClockLayout renders the report timestamp.
const wallClockLayout = "2006/01/02 15:04:05"

const million = 1_000_000

// Sample is the raw input to a progress computation.
type Sample struct {
	Start time.Time
	Now   time.Time
	// Rows is the total ingested into the aggregate, resumed rows included.
	Rows uint64
	// RunRows is the part of Rows ingested since Start. It drives the rate.
	RunRows uint64
	Days    int
	Final   bool
}

// Progress is one progress report.
type Progress struct {
	WallClock   time.Time
	Elapsed     time.Duration
	Remaining   time.Duration
	RowsPerSec  float64
	Rows        uint64
	RowsPercent float64
	Days        int
	DaysPercent float64
	Final       bool
}

// NewProgress computes a report. Remaining time is a linear extrapolation of
// the average rate since Start against exp.Rows. It is zero when the rate is
// zero or the expected total has been reached.
func NewProgress(s Sample, exp Expectations) Progress {
	elapsed := max(s.Now.Sub(s.Start), 0)

	p := Progress{
		WallClock: s.Now,
		Elapsed:   elapsed,
		Rows:      s.Rows,
		Days:      s.Days,
		Final:     s.Final,
	}

	if elapsed > 0 {
		p.RowsPerSec = float64(s.RunRows) / elapsed.Seconds()
	}

	if p.RowsPerSec > 0 && s.Rows < exp.Rows {
		secs := float64(exp.Rows-s.Rows) / p.RowsPerSec
		p.Remaining = durationFromSeconds(secs)
	}

	if exp.Rows > 0 {
		p.RowsPercent = float64(s.Rows) / float64(exp.Rows) * 100
	}

	if exp.Days > 0 {
		p.DaysPercent = float64(s.Days) / float64(exp.Days) * 100
	}

	return p
}

func durationFromSeconds(secs float64) time.Duration {
	if secs >= math.MaxInt64/float64(time.Second) {
		return time.Duration(math.MaxInt64)
	}

	return time.Duration(secs * float64(time.Second)).Round(time.Second)
}

// String renders the console line:
//
//	2026/03/01 12:30:00 (00:01:05 elapsed - 01:10:00 remaining) | 12,345.67 rows/s | 1,200,000 rows (1.2 million, 0.10%) | 150 days (8.02%)
func (p Progress) String() string {
	return fmt.Sprintf("%s (%s elapsed - %s remaining) | %s rows/s | %s rows (%s million, %.2f%%) | %d days (%.2f%%)",
		p.WallClock.Format(wallClockLayout),
		clock(p.Elapsed),
		clock(p.Remaining),
		humanize.CommafWithDigits(p.RowsPerSec, 2),
		humanize.Comma(safeconv.Int64(p.Rows)),
		humanize.CommafWithDigits(float64(p.Rows)/million, 2),
		p.RowsPercent,
		p.Days,
		p.DaysPercent,
	)
}

// clock formats d as HH:MM:SS; hours may exceed two digits.
func clock(d time.Duration) string {
	total := int64(d / time.Second)

	return fmt.Sprintf("%02d:%02d:%02d", total/3600, total%3600/60, total%60)
}
