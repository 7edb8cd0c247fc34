package condense

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/heropicks/pkg/aggregate"
	"github.com/Sumatoshi-tech/heropicks/pkg/checkpoint"
	"github.com/Sumatoshi-tech/heropicks/pkg/epochday"
	"github.com/Sumatoshi-tech/heropicks/pkg/matchrow"
	"github.com/Sumatoshi-tech/heropicks/pkg/observability"
	"github.com/Sumatoshi-tech/heropicks/pkg/picks"
	"github.com/Sumatoshi-tech/heropicks/pkg/rowsource"
	"github.com/Sumatoshi-tech/heropicks/pkg/safeconv"
)

// cancelCheckEvery is how many rows pass between context checks.
const cancelCheckEvery = 4096

// Sentinel errors.
var (
	ErrMalformedRow      = errors.New("malformed row")
	ErrOffsetBeyondInput = errors.New("resume offset is beyond the end of input")
	ErrMissingDependency = errors.New("runner option not set")
)

// Bad-row reasons used in logs and metrics.
const (
	reasonShortRow     = "short_row"
	reasonBadTimestamp = "bad_timestamp"
	reasonOutOfRange   = "out_of_range"
	reasonCSV          = "csv"
	reasonOther        = "other"
)

// RowSource yields CSV records. rowsource.Source implements it.
type RowSource interface {
	Next() ([]string, error)
	Skip(n uint64) (uint64, error)
}

// Options configure a Runner. Source, Decoder and Output are required.
type Options struct {
	Source    RowSource
	Decoder   *matchrow.Decoder
	Extractor *picks.Extractor
	// Accumulator receives the rows. Pass a restored one to resume.
	Accumulator *aggregate.Accumulator
	Saver       Saver
	Reporter    Reporter
	Logger      *slog.Logger
	Metrics     *observability.CondenseMetrics
	Tracer      trace.Tracer

	Schedule   Schedule
	Expect     Expectations
	OnBadRow   Policy
	OnBadPicks Policy

	// Output is the final checkpoint path. Intermediate checkpoints are numbered from it.
	Output string
	// SourceName is recorded in checkpoint metadata.
	SourceName string
	// SkipRows data rows are discarded before ingestion starts.
	SkipRows uint64

	Now func() time.Time
}

// Result summarizes a run.
type Result struct {
	// Rows is the total in the aggregate, resumed rows included.
	Rows uint64
	// RunRows were ingested by this run.
	RunRows uint64
	// Offset is the number of data rows consumed, resumed offset included.
	Offset            uint64
	Skipped           uint64
	BadRows           uint64
	BadPicks          uint64
	Days              int
	Reports           int
	Checkpoints       []string
	FailedCheckpoints int
	Elapsed           time.Duration
}

// Runner drives one condensation. It is single-use and not safe for concurrent use.
type Runner struct {
	opts      Options
	acc       *aggregate.Accumulator
	heroes    []aggregate.HeroID
	result    Result
	start     time.Time
	startRows uint64
	reported  uint64
}

// NewRunner validates opts and fills in defaults.
func NewRunner(opts Options) (*Runner, error) {
	if opts.Source == nil || opts.Decoder == nil || opts.Output == "" {
		return nil, fmt.Errorf("%w: source, decoder and output are required", ErrMissingDependency)
	}

	if opts.Schedule == (Schedule{}) {
		opts.Schedule = DefaultSchedule()
	}

	err := opts.Schedule.Validate()
	if err != nil {
		return nil, err
	}

	if opts.Expect == (Expectations{}) {
		opts.Expect = DefaultExpectations()
	}

	if opts.OnBadRow == "" {
		opts.OnBadRow = PolicyFail
	}

	if opts.OnBadPicks == "" {
		opts.OnBadPicks = PolicySkip
	}

	opts.OnBadRow, err = ParsePolicy(string(opts.OnBadRow))
	if err != nil {
		return nil, fmt.Errorf("bad row policy: %w", err)
	}

	opts.OnBadPicks, err = ParsePolicy(string(opts.OnBadPicks))
	if err != nil {
		return nil, fmt.Errorf("bad picks policy: %w", err)
	}

	if opts.Extractor == nil {
		opts.Extractor = picks.NewExtractor()
	}

	if opts.Accumulator == nil {
		opts.Accumulator = aggregate.New()
	}

	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	if opts.Saver == nil {
		opts.Saver = NewCheckpointSaver(opts.Logger)
	}

	if opts.Reporter == nil {
		opts.Reporter = discardReporter{}
	}

	if opts.Tracer == nil {
		opts.Tracer = nooptrace.NewTracerProvider().Tracer("")
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Runner{opts: opts, acc: opts.Accumulator}, nil
}

// Accumulator returns the aggregate the runner feeds.
func (r *Runner) Accumulator() *aggregate.Accumulator {
	return r.acc
}

// Run consumes the source to the end. It reports every Schedule.ReportEvery
// ingested rows, writes a numbered checkpoint every Schedule.CheckpointEvery,
// and finishes with a final report and a checkpoint at Output.
//
// A failed intermediate checkpoint is logged and counted; a failed final one
// is returned. On cancellation a recovery checkpoint is written to Output
// before ctx.Err() is returned.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	ctx, span := r.opts.Tracer.Start(ctx, "heropicks.condense",
		trace.WithAttributes(
			attribute.String("condense.output", r.opts.Output),
			attribute.String("condense.source", r.opts.SourceName),
		))
	defer span.End()

	r.start = r.opts.Now()
	r.startRows = r.acc.Rows()
	r.reported = r.startRows

	err := r.skip(ctx)
	if err != nil {
		return r.fail(span, err)
	}

	err = r.loop(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			r.saveRecovery(ctx)
		}

		return r.fail(span, err)
	}

	r.report(ctx, true)

	err = r.checkpoint(ctx, r.opts.Output, true)
	if err != nil {
		return r.fail(span, fmt.Errorf("final checkpoint: %w", err))
	}

	res := r.finish()

	r.opts.Logger.InfoContext(ctx, "condense: done",
		"rows", res.Rows,
		"run_rows", res.RunRows,
		"days", res.Days,
		"bad_rows", res.BadRows,
		"bad_picks", res.BadPicks,
		"checkpoints", len(res.Checkpoints),
		"failed_checkpoints", res.FailedCheckpoints,
		"elapsed", res.Elapsed,
	)

	return res, nil
}

func (r *Runner) fail(span trace.Span, err error) (Result, error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	return r.finish(), err
}

func (r *Runner) finish() Result {
	r.result.Rows = r.acc.Rows()
	r.result.RunRows = r.acc.Rows() - r.startRows
	r.result.Days = r.acc.DaysSeen()
	r.result.Elapsed = r.opts.Now().Sub(r.start)

	return r.result
}

func (r *Runner) skip(ctx context.Context) error {
	want := r.opts.SkipRows
	if want == 0 {
		return nil
	}

	skipped, err := r.opts.Source.Skip(want)
	r.result.Offset += skipped
	r.result.Skipped = skipped

	if err != nil {
		return fmt.Errorf("skip to resume offset: %w", err)
	}

	if skipped < want {
		return fmt.Errorf("%w: wanted %d rows, input has %d", ErrOffsetBeyondInput, want, skipped)
	}

	r.opts.Logger.InfoContext(ctx, "condense: resumed", "skipped_rows", skipped, "rows", r.acc.Rows())

	return nil
}

func (r *Runner) loop(ctx context.Context) error {
	for n := uint64(0); ; n++ {
		if n%cancelCheckEvery == 0 {
			err := ctx.Err()
			if err != nil {
				return err
			}
		}

		record, err := r.opts.Source.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			if !errors.Is(err, rowsource.ErrBadRecord) {
				return fmt.Errorf("read input: %w", err)
			}

			r.result.Offset++

			badErr := r.badRow(ctx, err)
			if badErr != nil {
				return badErr
			}

			continue
		}

		r.result.Offset++

		err = r.ingest(ctx, record)
		if err != nil {
			return err
		}
	}
}

func (r *Runner) ingest(ctx context.Context, record []string) error {
	match, err := r.opts.Decoder.Decode(record)
	if err != nil {
		return r.badRow(ctx, err)
	}

	heroes, err := r.opts.Extractor.Extract(match.Picks, r.heroes[:0])
	r.heroes = heroes

	if err != nil {
		r.result.BadPicks++
		r.opts.Metrics.RecordBadPicks(ctx)

		if r.opts.OnBadPicks == PolicyFail {
			return fmt.Errorf("%w: row %d: %w", ErrMalformedRow, r.result.Offset, err)
		}

		r.opts.Logger.WarnContext(ctx, "condense: malformed picks",
			"row", r.result.Offset, "day", match.Day, "kept_heroes", len(heroes), "error", err)
	}

	r.acc.Ingest(match.Day, heroes)

	report, n := r.opts.Schedule.Due(r.acc.Rows())
	if !report {
		return nil
	}

	r.report(ctx, false)

	if n == 0 {
		return nil
	}

	path := checkpoint.NumberedPath(r.opts.Output, n)

	saveErr := r.checkpoint(ctx, path, false)
	if saveErr != nil {
		r.result.FailedCheckpoints++
		r.opts.Logger.ErrorContext(ctx, "condense: checkpoint failed, continuing",
			"path", path, "rows", r.acc.Rows(), "error", saveErr)
	}

	return nil
}

func (r *Runner) badRow(ctx context.Context, err error) error {
	r.result.BadRows++

	reason := badRowReason(err)
	r.opts.Metrics.RecordBadRow(ctx, reason)

	if r.opts.OnBadRow == PolicyFail {
		return fmt.Errorf("%w: row %d: %w", ErrMalformedRow, r.result.Offset, err)
	}

	r.opts.Logger.WarnContext(ctx, "condense: skipping malformed row",
		"row", r.result.Offset, "reason", reason, "error", err)

	return nil
}

func badRowReason(err error) string {
	switch {
	case errors.Is(err, matchrow.ErrShortRow):
		return reasonShortRow
	case errors.Is(err, matchrow.ErrBadTimestamp):
		return reasonBadTimestamp
	case errors.Is(err, epochday.ErrOutOfRange):
		return reasonOutOfRange
	case errors.Is(err, rowsource.ErrBadRecord):
		return reasonCSV
	default:
		return reasonOther
	}
}

func (r *Runner) report(ctx context.Context, final bool) {
	rows := r.acc.Rows()

	progress := NewProgress(Sample{
		Start:   r.start,
		Now:     r.opts.Now(),
		Rows:    rows,
		RunRows: rows - r.startRows,
		Days:    r.acc.DaysSeen(),
		Final:   final,
	}, r.opts.Expect)

	r.opts.Reporter.Report(ctx, progress)
	r.result.Reports++

	r.opts.Metrics.AddRows(ctx, safeconv.Int64(rows-r.reported))
	r.opts.Metrics.SetDays(ctx, int64(progress.Days))
	r.reported = rows
}

func (r *Runner) checkpoint(ctx context.Context, path string, final bool) error {
	ctx, span := r.opts.Tracer.Start(ctx, "heropicks.checkpoint.save",
		trace.WithAttributes(
			attribute.String("checkpoint.path", path),
			attribute.Bool("checkpoint.final", final),
			attribute.Int64("checkpoint.rows", safeconv.Int64(r.acc.Rows())),
		))
	defer span.End()

	start := time.Now()

	meta := checkpoint.Meta{
		Offset:    r.result.Offset,
		CreatedAt: r.opts.Now(),
		Source:    r.opts.SourceName,
		Final:     final,
	}

	err := r.opts.Saver.Save(ctx, path, r.acc, meta)
	r.opts.Metrics.RecordCheckpoint(ctx, final, err, time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return err
	}

	r.result.Checkpoints = append(r.result.Checkpoints, path)

	return nil
}

// saveRecovery writes the in-memory aggregate to Output after cancellation so the
// run can be resumed from Meta.Offset.
func (r *Runner) saveRecovery(ctx context.Context) {
	saveCtx := context.WithoutCancel(ctx)

	err := r.checkpoint(saveCtx, r.opts.Output, false)
	if err != nil {
		r.opts.Logger.ErrorContext(saveCtx, "condense: recovery checkpoint failed",
			"path", r.opts.Output, "error", err)

		return
	}

	r.opts.Logger.WarnContext(saveCtx, "condense: interrupted, recovery checkpoint written",
		"path", r.opts.Output, "offset", r.result.Offset, "rows", r.acc.Rows())
}
