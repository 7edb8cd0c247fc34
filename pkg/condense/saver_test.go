package condense_test

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/heropicks/pkg/aggregate"
	"github.com/Sumatoshi-tech/heropicks/pkg/checkpoint"
	"github.com/Sumatoshi-tech/heropicks/pkg/condense"
)

func TestCheckpointSaver_WritesAndLogs(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer

	saver := condense.NewCheckpointSaver(slog.New(slog.NewTextHandler(&logs, nil)), checkpoint.WithCompression(false))

	acc := aggregate.New()
	acc.Ingest(18000, []aggregate.HeroID{14, 7})

	path := filepath.Join(t.TempDir(), "picks.hpck")

	require.NoError(t, saver.Save(context.Background(), path, acc, checkpoint.Meta{Offset: 1}))

	loaded, meta, err := checkpoint.Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), loaded.Count(18000, 14))
	assert.Equal(t, uint64(1), meta.Offset)

	_, header, err := checkpoint.Inspect(path)
	require.NoError(t, err)
	assert.False(t, header.Compressed())

	assert.Contains(t, logs.String(), "condense: checkpoint saved")
	assert.Contains(t, logs.String(), "triples=2")
}

func TestCheckpointSaver_ErrorIsReturned(t *testing.T) {
	t.Parallel()

	saver := condense.NewCheckpointSaver(slog.New(slog.DiscardHandler))

	err := saver.Save(context.Background(), filepath.Join(t.TempDir(), "missing", "picks.hpck"), aggregate.New(), checkpoint.Meta{})
	require.Error(t, err)
}
