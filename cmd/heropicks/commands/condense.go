package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/heropicks/pkg/aggregate"
	"github.com/Sumatoshi-tech/heropicks/pkg/checkpoint"
	"github.com/Sumatoshi-tech/heropicks/pkg/condense"
	"github.com/Sumatoshi-tech/heropicks/pkg/config"
	"github.com/Sumatoshi-tech/heropicks/pkg/matchrow"
	"github.com/Sumatoshi-tech/heropicks/pkg/observability"
	"github.com/Sumatoshi-tech/heropicks/pkg/rowsource"
	"github.com/Sumatoshi-tech/heropicks/pkg/safeconv"
)

// resumeLatest asks condense to pick the most advanced checkpoint of the output.
const resumeLatest = "latest"

const metricsShutdownTimeout = 5 * time.Second

// ErrNoCheckpoint is returned by --resume latest when nothing can be resumed.
var ErrNoCheckpoint = errors.New("no checkpoint to resume from")

// condenseJob is one condense invocation. Fields backed by configuration take
// the config value unless the matching flag was given.
type condenseJob struct {
	input  string
	output string
	resume string

	reportEvery     uint64
	checkpointEvery uint64
	expectRows      uint64
	expectDays      int

	onBadRow   string
	onBadPicks string

	delimiter   string
	timeColumn  int
	picksColumn int
	lazyQuotes  bool

	noCompress       bool
	compressionLevel int
	metricsAddr      string
}

func defaultCondenseJob(cfg *config.Config) condenseJob {
	var job condenseJob

	job.inherit(func(string) bool { return false }, cfg)

	return job
}

// inherit copies config values into every field whose flag did not change.
func (j *condenseJob) inherit(changed func(name string) bool, cfg *config.Config) {
	set := func(name string, apply func()) {
		if !changed(name) {
			apply()
		}
	}

	set("report-every", func() { j.reportEvery = cfg.Schedule.ReportEvery })
	set("checkpoint-every", func() { j.checkpointEvery = cfg.Schedule.CheckpointEvery })
	set("expect-rows", func() { j.expectRows = cfg.Expect.Rows })
	set("expect-days", func() { j.expectDays = cfg.Expect.Days })
	set("on-bad-row", func() { j.onBadRow = cfg.Errors.OnBadRow })
	set("on-bad-picks", func() { j.onBadPicks = cfg.Errors.OnBadPicks })
	set("delimiter", func() { j.delimiter = cfg.Input.Delimiter })
	set("time-column", func() { j.timeColumn = cfg.Input.TimeColumn })
	set("picks-column", func() { j.picksColumn = cfg.Input.PicksColumn })
	set("lazy-quotes", func() { j.lazyQuotes = cfg.Input.LazyQuotes })
	set("no-compress", func() { j.noCompress = !cfg.Checkpoint.Compress })
	set("compression-level", func() { j.compressionLevel = cfg.Checkpoint.Level })
	set("metrics-addr", func() { j.metricsAddr = cfg.Telemetry.MetricsAddr })
}

func newCondenseCommand(a *app) *cobra.Command {
	job := &condenseJob{}

	cmd := &cobra.Command{
		Use:   "condense <input.csv[.gz]>",
		Short: "Count hero picks per day from the matches CSV dump",
		Long: `Stream the matches dump and count hero picks per day.

A progress line is printed every --report-every rows and a numbered checkpoint
(out_1.hpck, out_2.hpck, ...) is written every --checkpoint-every rows. The
final aggregate goes to --output. Gzip input is detected automatically.

Interrupting the run (Ctrl-C) writes a recovery checkpoint to --output; resume
with --resume latest or --resume <checkpoint>.`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if job.output == "" {
				return usageError(ErrNoOutput)
			}

			job.input = args[0]
			job.inherit(cmd.Flags().Changed, a.cfg)

			return job.run(cmd, a)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&job.output, "output", "o", "", "Checkpoint to write (required)")
	flags.StringVar(&job.resume, "resume", "", `Resume from a checkpoint path, or "latest" for the most advanced checkpoint of --output`)
	flags.Uint64Var(&job.reportEvery, "report-every", config.DefaultReportEvery, "Rows between progress reports")
	flags.Uint64Var(&job.checkpointEvery, "checkpoint-every", config.DefaultCheckpointEvery,
		"Rows between numbered checkpoints (a multiple of --report-every)")
	flags.Uint64Var(&job.expectRows, "expect-rows", config.DefaultExpectedRows, "Expected total rows, for progress estimates")
	flags.IntVar(&job.expectDays, "expect-days", config.DefaultExpectedDays, "Expected distinct days, for progress estimates")
	flags.StringVar(&job.onBadRow, "on-bad-row", config.DefaultOnBadRow, "Malformed row policy: fail or skip")
	flags.StringVar(&job.onBadPicks, "on-bad-picks", config.DefaultOnBadPicks, "Malformed picks JSON policy: skip or fail")
	flags.StringVar(&job.delimiter, "delimiter", config.DefaultDelimiter, "CSV field delimiter")
	flags.IntVar(&job.timeColumn, "time-column", config.DefaultTimeColumn, "Zero-based start_time column")
	flags.IntVar(&job.picksColumn, "picks-column", config.DefaultPicksColumn, "Zero-based participant JSON column")
	flags.BoolVar(&job.lazyQuotes, "lazy-quotes", config.DefaultLazyQuotes, "Tolerate bare quotes in fields")
	flags.BoolVar(&job.noCompress, "no-compress", !config.DefaultCompress, "Write uncompressed checkpoints")
	flags.IntVar(&job.compressionLevel, "compression-level", config.DefaultCompressionLevel, "LZ4 level for checkpoints, 0 (fast) to 9")
	flags.StringVar(&job.metricsAddr, "metrics-addr", config.DefaultMetricsAddr, "Serve Prometheus metrics on this address (e.g. :9090)")

	return cmd
}

func (j *condenseJob) run(cmd *cobra.Command, a *app) error {
	ctx := cmd.Context()

	delim, err := config.InputConfig{Delimiter: j.delimiter}.Rune()
	if err != nil {
		return usageError(err)
	}

	dec, err := matchrow.NewDecoder(matchrow.Columns{Time: j.timeColumn, Picks: j.picksColumn})
	if err != nil {
		return usageError(err)
	}

	level, err := checkpoint.CompressionLevel(j.compressionLevel)
	if err != nil {
		return usageError(err)
	}

	providers, err := a.observe("condense", j.metricsAddr != "", cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer shutdown(providers)

	logger := providers.Logger

	metrics, err := observability.NewCondenseMetrics(providers.Meter)
	if err != nil {
		return fmt.Errorf("create metrics: %w", err)
	}

	if j.metricsAddr != "" {
		stop, serveErr := serveMetrics(j.metricsAddr, providers)
		if serveErr != nil {
			return serveErr
		}
		defer stop()
	}

	acc, skip, err := j.restore(ctx, logger)
	if err != nil {
		return err
	}

	src, err := rowsource.Open(j.input, rowsource.Options{Delimiter: delim, LazyQuotes: j.lazyQuotes})
	if err != nil {
		return err
	}
	defer src.Close()

	saver := condense.NewCheckpointSaver(logger,
		checkpoint.WithCompression(!j.noCompress), checkpoint.WithCompressionLevel(level))

	runner, err := condense.NewRunner(condense.Options{
		Source:      src,
		Decoder:     dec,
		Accumulator: acc,
		Saver:       saver,
		Reporter:    j.reporter(cmd, a, logger),
		Logger:      logger,
		Metrics:     metrics,
		Tracer:      providers.Tracer,
		Schedule:    condense.Schedule{ReportEvery: j.reportEvery, CheckpointEvery: j.checkpointEvery},
		Expect:      condense.Expectations{Rows: j.expectRows, Days: j.expectDays},
		OnBadRow:    condense.Policy(j.onBadRow),
		OnBadPicks:  condense.Policy(j.onBadPicks),
		Output:      j.output,
		SourceName:  j.input,
		SkipRows:    skip,
	})
	if err != nil {
		if errors.Is(err, condense.ErrInvalidSchedule) || errors.Is(err, condense.ErrUnknownPolicy) {
			return usageError(err)
		}

		return err
	}

	logger.InfoContext(ctx, "condense: start",
		"input", j.input, "output", j.output, "gzip", src.Compressed(), "skip_rows", skip)

	width := len(src.Header())
	if j.timeColumn >= width || j.picksColumn >= width {
		logger.WarnContext(ctx, "condense: column beyond header width",
			"header_columns", width, "time_column", j.timeColumn, "picks_column", j.picksColumn)
	}

	res, err := runner.Run(ctx)

	logger.InfoContext(ctx, "condense: input consumed",
		"records", src.Rows(), "bytes", humanize.IBytes(safeconv.Uint64(src.BytesRead())),
		"cells", runner.Accumulator().Len())

	if err != nil {
		logger.ErrorContext(ctx, "condense: failed", "rows", res.Rows, "offset", res.Offset, "error", err)

		return err
	}

	a.statusf(cmd.OutOrStdout(), color.FgGreen, "condensed %s rows over %d days into %s",
		humanize.Comma(safeconv.Int64(res.Rows)), res.Days, j.output)

	if res.BadRows > 0 || res.BadPicks > 0 || res.FailedCheckpoints > 0 {
		a.statusf(cmd.OutOrStdout(), color.FgYellow, "skipped %d malformed rows, %d rows with malformed picks, %d failed checkpoints",
			res.BadRows, res.BadPicks, res.FailedCheckpoints)
	}

	return nil
}

// reporter picks the progress sink. JSON logging gets every report as a log
// record as well as on the console.
func (j *condenseJob) reporter(cmd *cobra.Command, a *app, logger *slog.Logger) condense.Reporter {
	logReporter := condense.NewLogReporter(logger)

	if a.quiet {
		return logReporter
	}

	console := condense.NewConsoleReporter(cmd.ErrOrStderr())

	if a.cfg.Logging.JSON {
		return condense.MultiReporter{console, logReporter}
	}

	return console
}

// restore returns the starting aggregate and the number of input rows to skip.
func (j *condenseJob) restore(ctx context.Context, logger *slog.Logger) (*aggregate.Accumulator, uint64, error) {
	if j.resume == "" {
		return aggregate.New(), 0, nil
	}

	path := j.resume

	if path == resumeLatest {
		latest, err := latestCheckpoint(j.output)
		if err != nil {
			return nil, 0, err
		}

		path = latest
	}

	acc, meta, err := checkpoint.Load(path)
	if err != nil {
		return nil, 0, err
	}

	if meta.Final {
		logger.WarnContext(ctx, "condense: resuming from a final checkpoint", "checkpoint", path)
	}

	logger.InfoContext(ctx, "condense: resuming",
		"checkpoint", path, "rows", meta.Rows, "offset", meta.Offset, "source", meta.Source)

	return acc, meta.Offset, nil
}

// latestCheckpoint picks whichever of the newest numbered checkpoint and an
// unfinished checkpoint at out has consumed more input.
func latestCheckpoint(out string) (string, error) {
	var (
		best       string
		bestOffset uint64
	)

	numbered, _, found, err := checkpoint.Latest(out)
	if err != nil {
		return "", err
	}

	if found {
		meta, _, inspectErr := checkpoint.Inspect(numbered)
		if inspectErr != nil {
			return "", inspectErr
		}

		best, bestOffset = numbered, meta.Offset
	}

	meta, _, err := checkpoint.Inspect(out)

	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return "", err
	case !meta.Final && (best == "" || meta.Offset > bestOffset):
		best = out
	}

	if best == "" {
		return "", fmt.Errorf("%w: %s", ErrNoCheckpoint, out)
	}

	return best, nil
}

func serveMetrics(addr string, providers observability.Providers) (func(), error) {
	hm, err := observability.NewHTTPMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("create http metrics: %w", err)
	}

	srv, err := observability.StartMetricsServer(addr, providers.MetricsHandler, providers.Tracer, hm, providers.Logger)
	if err != nil {
		return nil, err
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()

		shutdownErr := srv.Shutdown(ctx)
		if shutdownErr != nil {
			providers.Logger.Warn("metrics server shutdown failed", "error", shutdownErr)
		}
	}, nil
}
