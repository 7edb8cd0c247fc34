package commands

import (
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/pierrec/lz4/v4"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/heropicks/pkg/aggregate"
	"github.com/Sumatoshi-tech/heropicks/pkg/checkpoint"
	"github.com/Sumatoshi-tech/heropicks/pkg/condense"
	"github.com/Sumatoshi-tech/heropicks/pkg/export"
	"github.com/Sumatoshi-tech/heropicks/pkg/safeconv"
)

func newMergeCommand(a *app) *cobra.Command {
	var (
		output     string
		noCompress bool
	)

	cmd := &cobra.Command{
		Use:   "merge -o <output> <input>...",
		Short: "Add several checkpoints or dumps together",
		Long: `Sum the counts of checkpoints or JSON dumps built from disjoint parts of
the input, for example per-year dumps condensed in parallel.

The result is a final checkpoint, or a JSON dump when --output ends in .json.
A merged checkpoint cannot be resumed.`,
		Args: usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				return usageError(ErrNoOutput)
			}

			if !cmd.Flags().Changed("no-compress") {
				noCompress = !a.cfg.Checkpoint.Compress
			}

			return runMerge(cmd, a, args, output, noCompress)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Checkpoint or .json dump to write (required)")
	cmd.Flags().BoolVar(&noCompress, "no-compress", false, "Write an uncompressed checkpoint")

	return cmd
}

func runMerge(cmd *cobra.Command, a *app, inputs []string, output string, noCompress bool) error {
	ctx := cmd.Context()

	providers, err := a.observe("merge", false, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer shutdown(providers)

	logger := providers.Logger

	ctx, span := providers.Tracer.Start(ctx, "heropicks.merge")
	defer span.End()

	merged := aggregate.New()

	for _, input := range inputs {
		acc, kind, loadErr := loadAggregate(input)
		if loadErr != nil {
			logger.ErrorContext(ctx, "merge: load failed", "input", input, "error", loadErr)

			return loadErr
		}

		logger.DebugContext(ctx, "merge: adding", "input", input, "kind", kind, "rows", acc.Rows(), "cells", acc.Len())
		merged.Merge(acc)
	}

	if strings.EqualFold(filepath.Ext(output), "."+string(export.FormatJSON)) {
		err = export.WriteJSON(output, export.ToDocument(merged))
	} else {
		var level lz4.CompressionLevel

		level, err = checkpoint.CompressionLevel(a.cfg.Checkpoint.Level)
		if err != nil {
			return usageError(err)
		}

		saver := condense.NewCheckpointSaver(logger,
			checkpoint.WithCompression(!noCompress), checkpoint.WithCompressionLevel(level))
		err = saver.Save(ctx, output, merged, checkpoint.Meta{
			Rows:   merged.Rows(),
			Source: strings.Join(inputs, ","),
			Final:  true,
		})
	}

	if err != nil {
		logger.ErrorContext(ctx, "merge: write failed", "output", output, "error", err)

		return err
	}

	a.statusf(cmd.OutOrStdout(), color.FgGreen, "merged %d inputs (%s rows, %d days) into %s",
		len(inputs), humanize.Comma(safeconv.Int64(merged.Rows())), merged.DaysSeen(), output)

	return nil
}
