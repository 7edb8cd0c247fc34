package condense

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Sumatoshi-tech/heropicks/pkg/safeconv"
	"github.com/Sumatoshi-tech/heropicks/pkg/units"
)

// SaveMemoryLog holds memory measurements around one checkpoint save.
type SaveMemoryLog struct {
	Path       string
	Rows       uint64
	Days       int
	Triples    int
	FileBytes  int64
	HeapBefore uint64
	HeapAfter  uint64
	SysAfter   uint64
	Duration   time.Duration
}

// LogSaveMemory emits a structured log entry with per-save memory telemetry.
func LogSaveMemory(ctx context.Context, logger *slog.Logger, entry SaveMemoryLog) {
	logger.InfoContext(ctx, "condense: checkpoint saved",
		"path", entry.Path,
		"rows", entry.Rows,
		"days", entry.Days,
		"triples", entry.Triples,
		"size", humanize.IBytes(safeconv.Uint64(entry.FileBytes)),
		"heap_before_mib", units.ToMiB(entry.HeapBefore),
		"heap_after_mib", units.ToMiB(entry.HeapAfter),
		"sys_mib", units.ToMiB(entry.SysAfter),
		"duration", entry.Duration,
	)
}

func readHeap() (heap, sys uint64) {
	var ms runtime.MemStats

	runtime.ReadMemStats(&ms)

	return ms.HeapAlloc, ms.Sys
}
