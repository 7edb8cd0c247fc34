package condense_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/heropicks/pkg/aggregate"
	"github.com/Sumatoshi-tech/heropicks/pkg/checkpoint"
	"github.com/Sumatoshi-tech/heropicks/pkg/condense"
	"github.com/Sumatoshi-tech/heropicks/pkg/matchrow"
	"github.com/Sumatoshi-tech/heropicks/pkg/rowsource"
)

// baseTime falls on epoch day 18000.
const baseTime = 1555200000

var errDiskFull = errors.New("disk full")

// sliceSource replays records; an error entry is returned from Next as is.
type sliceSource struct {
	records [][]string
	errs    map[int]error
	pos     int
	onRead  func(pos int)
}

func (s *sliceSource) Next() ([]string, error) {
	if s.pos >= len(s.records) {
		return nil, io.EOF
	}

	i := s.pos
	s.pos++

	if s.onRead != nil {
		s.onRead(s.pos)
	}

	if err, ok := s.errs[i]; ok {
		return nil, err
	}

	return s.records[i], nil
}

func (s *sliceSource) Skip(n uint64) (uint64, error) {
	left := uint64(len(s.records) - s.pos)
	n = min(n, left)
	s.pos += int(n)

	return n, nil
}

type savedCheckpoint struct {
	path string
	rows uint64
	meta checkpoint.Meta
}

// fakeSaver records saves and fails those whose path is in fail.
type fakeSaver struct {
	saves []savedCheckpoint
	fail  map[string]bool
}

func (s *fakeSaver) Save(_ context.Context, path string, acc *aggregate.Accumulator, meta checkpoint.Meta) error {
	if s.fail[path] {
		return errDiskFull
	}

	s.saves = append(s.saves, savedCheckpoint{path: path, rows: acc.Rows(), meta: meta})

	return nil
}

func row(sec int64, heroes ...int) []string {
	picks := "{"

	for i, h := range heroes {
		if i > 0 {
			picks += ","
		}

		picks += fmt.Sprintf(`"%d":{"hero_id":%d}`, i, h)
	}

	return []string{fmt.Sprint(sec), picks + "}"}
}

func generate(n int) [][]string {
	records := make([][]string, n)
	for i := range records {
		records[i] = row(baseTime+int64(i)*3600, i%120+1, (i*7)%120+1)
	}

	return records
}

func newDecoder(t *testing.T) *matchrow.Decoder {
	t.Helper()

	dec, err := matchrow.NewDecoder(matchrow.Columns{Time: 0, Picks: 1})
	require.NoError(t, err)

	return dec
}

// stepClock advances one second per call.
func stepClock() func() time.Time {
	now := t0

	return func() time.Time {
		now = now.Add(time.Second)

		return now
	}
}

func newRunner(t *testing.T, opts condense.Options) *condense.Runner {
	t.Helper()

	if opts.Decoder == nil {
		opts.Decoder = newDecoder(t)
	}

	if opts.Output == "" {
		opts.Output = "out.hpck"
	}

	if opts.Now == nil {
		opts.Now = stepClock()
	}

	r, err := condense.NewRunner(opts)
	require.NoError(t, err)

	return r
}

func TestRunner_TwoRowExample(t *testing.T) {
	t.Parallel()

	saver := &fakeSaver{}
	r := newRunner(t, condense.Options{
		Source: &sliceSource{records: [][]string{row(baseTime, 14, 7), row(baseTime+60, 14)}},
		Saver:  saver,
	})

	res, err := r.Run(context.Background())
	require.NoError(t, err)

	acc := r.Accumulator()
	assert.Equal(t, uint64(2), res.Rows)
	assert.Equal(t, uint64(2), acc.Count(18000, 14))
	assert.Equal(t, uint64(1), acc.Count(18000, 7))
	assert.Equal(t, 1, res.Days)
	assert.Equal(t, 1, res.Reports)
	assert.Equal(t, []string{"out.hpck"}, res.Checkpoints)

	require.Len(t, saver.saves, 1)
	assert.True(t, saver.saves[0].meta.Final)
	assert.Equal(t, uint64(2), saver.saves[0].meta.Offset)
}

func TestRunner_Cadence(t *testing.T) {
	t.Parallel()

	saver := &fakeSaver{}
	reporter := &recordingReporter{}

	r := newRunner(t, condense.Options{
		Source:     &sliceSource{records: generate(23)},
		Saver:      saver,
		Reporter:   reporter,
		Schedule:   condense.Schedule{ReportEvery: 5, CheckpointEvery: 10},
		SourceName: "matches.csv",
	})

	res, err := r.Run(context.Background())
	require.NoError(t, err)

	rows := make([]uint64, 0, len(reporter.reports))
	for _, p := range reporter.reports {
		rows = append(rows, p.Rows)
	}

	assert.Equal(t, []uint64{5, 10, 15, 20, 23}, rows)
	assert.True(t, reporter.reports[4].Final)
	assert.False(t, reporter.reports[3].Final)
	assert.Equal(t, 5, res.Reports)

	assert.Equal(t, []string{"out_1.hpck", "out_2.hpck", "out.hpck"}, res.Checkpoints)
	require.Len(t, saver.saves, 3)
	assert.Equal(t, uint64(10), saver.saves[0].rows)
	assert.Equal(t, uint64(20), saver.saves[1].rows)
	assert.Equal(t, uint64(23), saver.saves[2].rows)
	assert.Equal(t, "matches.csv", saver.saves[2].meta.Source)
	assert.Equal(t, uint64(23), res.Offset)
	assert.Equal(t, uint64(23), res.RunRows)
}

func TestRunner_IntermediateFailureContinues(t *testing.T) {
	t.Parallel()

	saver := &fakeSaver{fail: map[string]bool{"out_1.hpck": true}}

	r := newRunner(t, condense.Options{
		Source:   &sliceSource{records: generate(20)},
		Saver:    saver,
		Schedule: condense.Schedule{ReportEvery: 10, CheckpointEvery: 10},
	})

	res, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.FailedCheckpoints)
	assert.Equal(t, []string{"out_2.hpck", "out.hpck"}, res.Checkpoints)
}

func TestRunner_FinalFailureReturned(t *testing.T) {
	t.Parallel()

	r := newRunner(t, condense.Options{
		Source: &sliceSource{records: generate(3)},
		Saver:  &fakeSaver{fail: map[string]bool{"out.hpck": true}},
	})

	res, err := r.Run(context.Background())
	require.ErrorIs(t, err, errDiskFull)
	assert.Equal(t, uint64(3), res.Rows)
	assert.Empty(t, res.Checkpoints)
}

func TestRunner_BadRowPolicies(t *testing.T) {
	t.Parallel()

	records := [][]string{
		row(baseTime, 1),
		{"only-one-field"},
		{"not-a-number", "{}"},
		{"999999999999999", "{}"},
		nil,
		row(baseTime, 2),
	}
	errs := map[int]error{4: fmt.Errorf("%w: bare quote", rowsource.ErrBadRecord)}

	t.Run("fail", func(t *testing.T) {
		t.Parallel()

		r := newRunner(t, condense.Options{
			Source: &sliceSource{records: records, errs: errs},
			Saver:  &fakeSaver{},
		})

		res, err := r.Run(context.Background())
		require.ErrorIs(t, err, condense.ErrMalformedRow)
		require.ErrorIs(t, err, matchrow.ErrShortRow)
		assert.Contains(t, err.Error(), "row 2")
		assert.Equal(t, uint64(1), res.Rows)
	})

	t.Run("skip", func(t *testing.T) {
		t.Parallel()

		saver := &fakeSaver{}
		r := newRunner(t, condense.Options{
			Source:   &sliceSource{records: records, errs: errs},
			Saver:    saver,
			OnBadRow: condense.PolicySkip,
		})

		res, err := r.Run(context.Background())
		require.NoError(t, err)

		assert.Equal(t, uint64(4), res.BadRows)
		assert.Equal(t, uint64(2), res.Rows)
		assert.Equal(t, uint64(6), res.Offset)
		require.Len(t, saver.saves, 1)
		assert.Equal(t, uint64(6), saver.saves[0].meta.Offset)
	})
}

func TestRunner_MalformedPicksIsolated(t *testing.T) {
	t.Parallel()

	records := [][]string{
		row(baseTime, 14, 7),
		{fmt.Sprint(baseTime), `{"0":{"hero_id":14},"1":{"hero_id":"x"}}`},
		row(baseTime, 7),
	}

	t.Run("skip keeps the row and its readable heroes", func(t *testing.T) {
		t.Parallel()

		r := newRunner(t, condense.Options{Source: &sliceSource{records: records}, Saver: &fakeSaver{}})

		res, err := r.Run(context.Background())
		require.NoError(t, err)

		acc := r.Accumulator()
		assert.Equal(t, uint64(1), res.BadPicks)
		assert.Equal(t, uint64(3), res.Rows)
		assert.Equal(t, uint64(2), acc.Count(18000, 14))
		assert.Equal(t, uint64(2), acc.Count(18000, 7))
	})

	t.Run("fail", func(t *testing.T) {
		t.Parallel()

		r := newRunner(t, condense.Options{
			Source:     &sliceSource{records: records},
			Saver:      &fakeSaver{},
			OnBadPicks: "FAIL",
		})

		_, err := r.Run(context.Background())
		require.ErrorIs(t, err, condense.ErrMalformedRow)
		assert.Contains(t, err.Error(), "row 2")
	})
}

func TestRunner_CancelWritesRecoveryCheckpoint(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := &sliceSource{records: generate(5000)}
	src.onRead = func(pos int) {
		if pos == 10 {
			cancel()
		}
	}

	saver := &fakeSaver{}
	r := newRunner(t, condense.Options{Source: src, Saver: saver})

	res, err := r.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.Len(t, saver.saves, 1)
	saved := saver.saves[0]
	assert.Equal(t, "out.hpck", saved.path)
	assert.False(t, saved.meta.Final)
	assert.Equal(t, saved.rows, saved.meta.Offset)
	assert.Equal(t, res.Offset, saved.meta.Offset)
	assert.Less(t, res.Offset, uint64(5000))
}

func TestRunner_ResumeMatchesUninterruptedRun(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	records := generate(9000)

	full := newRunner(t, condense.Options{
		Source: &sliceSource{records: records},
		Output: filepath.Join(dir, "full.hpck"),
	})

	_, err := full.Run(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	interrupted := &sliceSource{records: records}
	interrupted.onRead = func(pos int) {
		if pos == 100 {
			cancel()
		}
	}

	out := filepath.Join(dir, "resumed.hpck")

	_, err = newRunner(t, condense.Options{Source: interrupted, Output: out}).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	acc, meta, err := checkpoint.Load(out)
	require.NoError(t, err)
	require.False(t, meta.Final)
	require.Positive(t, meta.Offset)

	resumed := newRunner(t, condense.Options{
		Source:      &sliceSource{records: records},
		Accumulator: acc,
		SkipRows:    meta.Offset,
		Output:      out,
	})

	res, err := resumed.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, meta.Offset, res.Skipped)
	assert.Equal(t, uint64(9000), res.Offset)
	assert.Equal(t, uint64(9000)-meta.Offset, res.RunRows)

	wantRows, wantSeen, wantCounts := full.Accumulator().Snapshot()
	gotRows, gotSeen, gotCounts := resumed.Accumulator().Snapshot()

	assert.Equal(t, wantRows, gotRows)
	assert.Equal(t, wantSeen, gotSeen)
	assert.Equal(t, wantCounts, gotCounts)

	final, finalMeta, err := checkpoint.Load(out)
	require.NoError(t, err)
	assert.True(t, finalMeta.Final)
	assert.Equal(t, uint64(9000), final.Rows())
}

func TestRunner_OffsetBeyondInput(t *testing.T) {
	t.Parallel()

	r := newRunner(t, condense.Options{
		Source:   &sliceSource{records: generate(3)},
		Saver:    &fakeSaver{},
		SkipRows: 10,
	})

	res, err := r.Run(context.Background())
	require.ErrorIs(t, err, condense.ErrOffsetBeyondInput)
	assert.Equal(t, uint64(3), res.Skipped)
}

func TestNewRunner_Validation(t *testing.T) {
	t.Parallel()

	dec := newDecoder(t)
	src := &sliceSource{}

	tests := []struct {
		name string
		opts condense.Options
		want error
	}{
		{name: "no source", opts: condense.Options{Decoder: dec, Output: "o"}, want: condense.ErrMissingDependency},
		{name: "no decoder", opts: condense.Options{Source: src, Output: "o"}, want: condense.ErrMissingDependency},
		{name: "no output", opts: condense.Options{Source: src, Decoder: dec}, want: condense.ErrMissingDependency},
		{
			name: "bad schedule",
			opts: condense.Options{Source: src, Decoder: dec, Output: "o", Schedule: condense.Schedule{ReportEvery: 3, CheckpointEvery: 4}},
			want: condense.ErrInvalidSchedule,
		},
		{
			name: "bad policy",
			opts: condense.Options{Source: src, Decoder: dec, Output: "o", OnBadRow: "maybe"},
			want: condense.ErrUnknownPolicy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := condense.NewRunner(tt.opts)
			require.ErrorIs(t, err, tt.want)
		})
	}
}
