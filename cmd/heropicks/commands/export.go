package commands

import (
	"errors"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/heropicks/pkg/config"
	"github.com/Sumatoshi-tech/heropicks/pkg/export"
)

type exportFlags struct {
	format          string
	layout          string
	normalize       bool
	since           string
	removeLowCounts bool
	keepUnknown     bool
	heroNames       string
	top             int
}

func newExportCommand(a *app) *cobra.Command {
	f := &exportFlags{}

	cmd := &cobra.Command{
		Use:   "export <checkpoint|dump.json> <output>",
		Short: "Write CSV, Parquet or HTML views of a checkpoint or dump",
		Long: `Export daily hero picks in another format.

The format follows the output extension (.json, .csv, .parquet, .html) unless
--format is given. CSV comes in three layouts:

  wide     one row per day, one column per hero
  by-date  total picks per day
  by-hero  total picks per hero

Day 0 (no start time) and hero 0 (no hero) are dropped unless --keep-unknown.
The JSON format always writes every count.`,
		Args: usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return f.run(cmd, a, args[0], args[1])
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.format, "format", "", "Output format: json, csv, parquet, html (default: from the output extension)")
	flags.StringVar(&f.layout, "layout", string(export.LayoutWide), "CSV layout: wide, by-date, by-hero")
	flags.BoolVar(&f.normalize, "normalize", false, "Write each wide cell as its share of the day's picks")
	flags.StringVar(&f.since, "since", config.DefaultSince, "Drop days before this date (YYYY-MM-DD)")
	flags.BoolVar(&f.removeLowCounts, "remove-low-counts", false, "Drop the sparse early days, same as --since "+export.LowCountCutoff)
	flags.BoolVar(&f.keepUnknown, "keep-unknown", config.DefaultKeepUnknown, "Keep day 0 and hero 0")
	flags.StringVar(&f.heroNames, "hero-names", config.DefaultHeroNames, "OpenDota /api/heroes JSON used to name heroes")
	flags.IntVar(&f.top, "top", config.DefaultTop, "Limit by-hero rows and the HTML hero chart to the N most picked")

	return cmd
}

func (f *exportFlags) inherit(changed func(name string) bool, cfg *config.Config) {
	if !changed("since") {
		f.since = cfg.Export.Since
	}

	if !changed("keep-unknown") {
		f.keepUnknown = cfg.Export.KeepUnknown
	}

	if !changed("hero-names") {
		f.heroNames = cfg.Export.HeroNames
	}

	if !changed("top") {
		f.top = cfg.Export.Top
	}

	if f.removeLowCounts && f.since == "" {
		f.since = export.LowCountCutoff
	}
}

func (f *exportFlags) options(output string) (export.Options, error) {
	var (
		opts export.Options
		err  error
	)

	if f.format != "" {
		opts.Format, err = export.ParseFormat(f.format)
	} else {
		opts.Format, err = export.FormatFromPath(output)
	}

	if err != nil {
		return opts, err
	}

	opts.Layout, err = export.ParseLayout(f.layout)
	if err != nil {
		return opts, err
	}

	since, ok, err := config.ExportConfig{Since: f.since}.SinceDay()
	if err != nil {
		return opts, err
	}

	if f.top < 0 {
		return opts, config.ErrInvalidTop
	}

	opts.Filter = export.Filter{Since: since, HasSince: ok, KeepUnknown: f.keepUnknown}
	opts.Normalize = f.normalize
	opts.Top = f.top

	return opts, nil
}

func (f *exportFlags) run(cmd *cobra.Command, a *app, input, output string) error {
	ctx := cmd.Context()

	f.inherit(cmd.Flags().Changed, a.cfg)

	opts, err := f.options(output)
	if err != nil {
		return usageError(err)
	}

	providers, err := a.observe("export", false, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer shutdown(providers)

	logger := providers.Logger

	ctx, span := providers.Tracer.Start(ctx, "heropicks.export")
	defer span.End()

	if f.heroNames != "" {
		opts.Names, err = export.LoadHeroNames(f.heroNames)
		if err != nil {
			return err
		}
	}

	acc, kind, err := loadAggregate(input)
	if err != nil {
		logger.ErrorContext(ctx, "export: load failed", "input", input, "error", err)

		return err
	}

	err = export.Write(output, acc, opts)
	if err != nil {
		logger.ErrorContext(ctx, "export: write failed", "output", output, "format", opts.Format, "error", err)

		if errors.Is(err, export.ErrNormalize) || errors.Is(err, export.ErrUnknownLayout) {
			return usageError(err)
		}

		return err
	}

	logger.InfoContext(ctx, "export: done",
		"input", input, "input_kind", kind, "output", output, "format", opts.Format, "layout", opts.Layout)

	a.statusf(cmd.OutOrStdout(), color.FgGreen, "exported %s to %s (%s)", input, output, opts.Format)

	return nil
}
