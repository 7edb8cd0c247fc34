package commands

import (
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/heropicks/pkg/checkpoint"
	"github.com/Sumatoshi-tech/heropicks/pkg/export"
	"github.com/Sumatoshi-tech/heropicks/pkg/safeconv"
)

func newExtractCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "extract <checkpoint> <output.json>",
		Short: "Write a checkpoint as the JSON dump",
		Long: `Load a checkpoint and write its counts as JSON:

  {"<day>": {"<hero>": count, ...}, ...}

Days are counted from 1970-01-01. Nothing is written if the checkpoint cannot
be read.`,
		Args: usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd, a, args[0], args[1])
		},
	}
}

func runExtract(cmd *cobra.Command, a *app, input, output string) error {
	ctx := cmd.Context()

	providers, err := a.observe("extract", false, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer shutdown(providers)

	logger := providers.Logger

	ctx, span := providers.Tracer.Start(ctx, "heropicks.extract")
	defer span.End()

	acc, meta, err := checkpoint.Load(input)
	if err != nil {
		logger.ErrorContext(ctx, "extract: load failed", "checkpoint", input, "error", err)

		return err
	}

	if !meta.Final {
		logger.WarnContext(ctx, "extract: checkpoint is not final", "checkpoint", input, "offset", meta.Offset)
	}

	err = export.WriteJSON(output, export.ToDocument(acc))
	if err != nil {
		logger.ErrorContext(ctx, "extract: write failed", "output", output, "error", err)

		return err
	}

	logger.InfoContext(ctx, "extract: done", "checkpoint", input, "output", output, "days", len(acc.Days()), "cells", acc.Len())

	a.statusf(cmd.OutOrStdout(), color.FgGreen, "extracted %s picks over %d days to %s",
		humanize.Comma(safeconv.Int64(acc.Totals().Picks)), len(acc.Days()), output)

	return nil
}
