package condense

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Reporter receives progress reports.
type Reporter interface {
	Report(ctx context.Context, p Progress)
}

// ConsoleReporter writes one line per report.
type ConsoleReporter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsoleReporter creates a ConsoleReporter writing to w.
func NewConsoleReporter(w io.Writer) *ConsoleReporter {
	return &ConsoleReporter{w: w}
}

// Report implements Reporter. Write errors are ignored; progress is advisory.
func (r *ConsoleReporter) Report(_ context.Context, p Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prefix := ""
	if p.Final {
		prefix = "done "
	}

	_, _ = fmt.Fprintf(r.w, "%s%s\n", prefix, p)
}

// LogReporter emits reports as structured log records.
type LogReporter struct {
	logger *slog.Logger
}

// NewLogReporter creates a LogReporter.
func NewLogReporter(logger *slog.Logger) *LogReporter {
	return &LogReporter{logger: logger}
}

// Report implements Reporter.
func (r *LogReporter) Report(ctx context.Context, p Progress) {
	r.logger.InfoContext(ctx, "condense: progress",
		"rows", p.Rows,
		"rows_pct", p.RowsPercent,
		"rows_per_sec", p.RowsPerSec,
		"days", p.Days,
		"days_pct", p.DaysPercent,
		"elapsed", p.Elapsed,
		"remaining", p.Remaining,
		"final", p.Final,
	)
}

// MultiReporter fans a report out to several reporters.
type MultiReporter []Reporter

// Report implements Reporter.
func (m MultiReporter) Report(ctx context.Context, p Progress) {
	for _, r := range m {
		r.Report(ctx, p)
	}
}

type discardReporter struct{}

func (discardReporter) Report(context.Context, Progress) {}
