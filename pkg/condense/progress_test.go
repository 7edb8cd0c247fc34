package condense_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/heropicks/pkg/condense"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestNewProgress(t *testing.T) {
	t.Parallel()

	p := condense.NewProgress(condense.Sample{
		Start:   t0,
		Now:     t0.Add(1000 * time.Second),
		Rows:    2_500_000,
		RunRows: 1_000_000,
		Days:    25,
	}, condense.Expectations{Rows: 3_500_000, Days: 100})

	assert.Equal(t, 1000*time.Second, p.Elapsed)
	assert.InDelta(t, 1000.0, p.RowsPerSec, 1e-9)
	assert.Equal(t, 1000*time.Second, p.Remaining)
	assert.InDelta(t, 71.428, p.RowsPercent, 0.001)
	assert.InDelta(t, 25.0, p.DaysPercent, 1e-9)
	assert.False(t, p.Final)

	assert.Equal(t,
		"2026/03/01 12:16:40 (00:16:40 elapsed - 00:16:40 remaining) | 1,000 rows/s | 2,500,000 rows (2.5 million, 71.43%) | 25 days (25.00%)",
		p.String())
}

func TestNewProgress_NoRemaining(t *testing.T) {
	t.Parallel()

	exp := condense.Expectations{Rows: 100, Days: 10}

	tests := []struct {
		name string
		s    condense.Sample
	}{
		{name: "no time elapsed", s: condense.Sample{Start: t0, Now: t0, Rows: 10, RunRows: 10}},
		{name: "nothing ingested this run", s: condense.Sample{Start: t0, Now: t0.Add(time.Minute), Rows: 10}},
		{name: "past expected total", s: condense.Sample{Start: t0, Now: t0.Add(time.Minute), Rows: 150, RunRows: 150}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := condense.NewProgress(tt.s, exp)
			assert.Zero(t, p.Remaining)
		})
	}
}

func TestNewProgress_ClockBeforeStart(t *testing.T) {
	t.Parallel()

	p := condense.NewProgress(condense.Sample{Start: t0, Now: t0.Add(-time.Hour), Rows: 1, RunRows: 1},
		condense.DefaultExpectations())

	assert.Zero(t, p.Elapsed)
	assert.Zero(t, p.RowsPerSec)
}

func TestProgress_StringSmallRun(t *testing.T) {
	t.Parallel()

	p := condense.Progress{WallClock: t0, Rows: 4_321, Days: 1}

	assert.Contains(t, p.String(), "| 4,321 rows (0 million, 0.00%) |")
}

func TestProgress_StringLongRun(t *testing.T) {
	t.Parallel()

	p := condense.Progress{
		WallClock: t0,
		Elapsed:   101*time.Hour + 2*time.Minute + 3*time.Second,
		Rows:      3_000_000,
		Days:      7,
	}

	assert.Equal(t,
		"2026/03/01 12:00:00 (101:02:03 elapsed - 00:00:00 remaining) | 0 rows/s | 3,000,000 rows (3 million, 0.00%) | 7 days (0.00%)",
		p.String())
}
