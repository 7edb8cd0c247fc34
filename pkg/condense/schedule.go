// Package condense drives the ingestion loop: rows in, aggregate out, with
// periodic progress reports and checkpoints.
package condense

import (
	"errors"
	"fmt"
)

// Cadence and extrapolation defaults for the OpenDota matches dump.
const (
	DefaultReportEvery     = 1_000_000
	DefaultCheckpointEvery = 10_000_000
	DefaultExpectedRows    = 1_191_768_403
	DefaultExpectedDays    = 1_870
)

// ErrInvalidSchedule is returned by Schedule.Validate.
var ErrInvalidSchedule = errors.New("invalid schedule")

// Schedule sets how often the runner reports and checkpoints, in ingested rows.
type Schedule struct {
	ReportEvery     uint64
	CheckpointEvery uint64
}

// DefaultSchedule returns the default cadence.
func DefaultSchedule() Schedule {
	return Schedule{ReportEvery: DefaultReportEvery, CheckpointEvery: DefaultCheckpointEvery}
}

// Validate requires both intervals to be positive and the checkpoint interval
// to be a multiple of the report interval.
func (s Schedule) Validate() error {
	if s.ReportEvery == 0 || s.CheckpointEvery == 0 {
		return fmt.Errorf("%w: intervals must be positive (report=%d checkpoint=%d)",
			ErrInvalidSchedule, s.ReportEvery, s.CheckpointEvery)
	}

	if s.CheckpointEvery%s.ReportEvery != 0 {
		return fmt.Errorf("%w: checkpoint interval %d is not a multiple of report interval %d",
			ErrInvalidSchedule, s.CheckpointEvery, s.ReportEvery)
	}

	return nil
}

// Due reports whether rows triggers a report and, if so, which numbered
// checkpoint (zero for none).
func (s Schedule) Due(rows uint64) (report bool, checkpoint uint64) {
	if rows == 0 || rows%s.ReportEvery != 0 {
		return false, 0
	}

	if rows%s.CheckpointEvery == 0 {
		return true, rows / s.CheckpointEvery
	}

	return true, 0
}

// Expectations feed the progress extrapolation.
type Expectations struct {
	Rows uint64
	Days int
}

// DefaultExpectations returns the size of the full OpenDota dump.
func DefaultExpectations() Expectations {
	return Expectations{Rows: DefaultExpectedRows, Days: DefaultExpectedDays}
}
