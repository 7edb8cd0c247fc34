package commands

import (
	"errors"

	"github.com/Sumatoshi-tech/heropicks/pkg/aggregate"
	"github.com/Sumatoshi-tech/heropicks/pkg/checkpoint"
	"github.com/Sumatoshi-tech/heropicks/pkg/export"
)

// Kinds of aggregate input.
const (
	inputCheckpoint = "checkpoint"
	inputDump       = "dump"
)

// loadAggregate reads a checkpoint, or a JSON dump when path is not a checkpoint.
func loadAggregate(path string) (*aggregate.Accumulator, string, error) {
	acc, _, err := checkpoint.Load(path)
	if err == nil {
		return acc, inputCheckpoint, nil
	}

	if !errors.Is(err, checkpoint.ErrBadMagic) {
		return nil, "", err
	}

	acc, err = export.ReadJSON(path)
	if err != nil {
		return nil, "", err
	}

	return acc, inputDump, nil
}
