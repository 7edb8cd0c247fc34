package condense

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/Sumatoshi-tech/heropicks/pkg/aggregate"
	"github.com/Sumatoshi-tech/heropicks/pkg/checkpoint"
)

// Saver persists a snapshot of the aggregate.
type Saver interface {
	Save(ctx context.Context, path string, acc *aggregate.Accumulator, meta checkpoint.Meta) error
}

// CheckpointSaver writes checkpoint files and logs heap usage around each save.
type CheckpointSaver struct {
	logger *slog.Logger
	opts   []checkpoint.Option
}

// NewCheckpointSaver creates a saver that passes opts to checkpoint.Save.
func NewCheckpointSaver(logger *slog.Logger, opts ...checkpoint.Option) *CheckpointSaver {
	return &CheckpointSaver{logger: logger, opts: opts}
}

// Save implements Saver.
func (s *CheckpointSaver) Save(ctx context.Context, path string, acc *aggregate.Accumulator, meta checkpoint.Meta) error {
	heapBefore, _ := readHeap()
	start := time.Now()

	err := checkpoint.Save(path, acc, meta, s.opts...)
	if err != nil {
		return err
	}

	entry := SaveMemoryLog{
		Path:       path,
		Rows:       acc.Rows(),
		Days:       acc.DaysSeen(),
		Triples:    acc.Len(),
		HeapBefore: heapBefore,
		Duration:   time.Since(start),
	}

	entry.HeapAfter, entry.SysAfter = readHeap()

	info, statErr := os.Stat(path)
	if statErr == nil {
		entry.FileBytes = info.Size()
	}

	LogSaveMemory(ctx, s.logger, entry)

	return nil
}
