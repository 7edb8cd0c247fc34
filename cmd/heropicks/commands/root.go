package commands

import (
	"errors"

	"github.com/spf13/cobra"
)

// Legacy-mode selection errors.
var (
	ErrNoMode     = errors.New("select one of -c/--condense or -x/--extract")
	ErrBothModes  = errors.New("-c/--condense and -x/--extract are mutually exclusive")
	ErrNoOutput   = errors.New("missing OUTPUT")
	ErrExtraInput = errors.New("too many arguments")
)

// NewRootCommand builds the heropicks command tree.
//
// Besides the subcommands, the root keeps the original two-mode interface:
//
//	heropicks -c matches.csv picks.hpck
//	heropicks -x picks.hpck picks.json
func NewRootCommand() *cobra.Command {
	a := &app{}

	var condenseInput, extractInput string

	cmd := &cobra.Command{
		Use:   "heropicks [-c INPUT | -x CHECKPOINT] OUTPUT",
		Short: "Condense OpenDota match dumps into daily hero pick counts",
		Long: `heropicks streams the OpenDota matches dump and counts, for every day,
how often each hero was picked. Progress is reported as rows arrive and the
aggregate is checkpointed periodically so long runs can be resumed.

Commands:
  condense  Build a checkpoint from a CSV dump
  extract   Write a checkpoint as the JSON dump
  export    Write CSV, Parquet or HTML views of a checkpoint or dump
  inspect   Show checkpoint metadata and totals
  merge     Add several checkpoints together
  validate  Check a JSON dump against its schema`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLegacy(cmd, a, condenseInput, extractInput, args)
		},
	}

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	a.bindPersistentFlags(cmd)

	cmd.Flags().StringVarP(&condenseInput, "condense", "c", "", "Condense the CSV dump INPUT into the checkpoint OUTPUT")
	cmd.Flags().StringVarP(&extractInput, "extract", "x", "", "Extract the checkpoint CHECKPOINT to the JSON dump OUTPUT")

	cmd.AddCommand(
		newCondenseCommand(a),
		newExtractCommand(a),
		newExportCommand(a),
		newInspectCommand(a),
		newMergeCommand(a),
		newValidateCommand(a),
		newVersionCommand(),
	)

	return cmd
}

func runLegacy(cmd *cobra.Command, a *app, condenseInput, extractInput string, args []string) error {
	switch {
	case condenseInput == "" && extractInput == "":
		if len(args) == 0 {
			_ = cmd.Help()
		}

		return usageError(ErrNoMode)
	case condenseInput != "" && extractInput != "":
		return usageError(ErrBothModes)
	case len(args) == 0:
		return usageError(ErrNoOutput)
	case len(args) > 1:
		return usageError(ErrExtraInput)
	}

	if condenseInput != "" {
		job := defaultCondenseJob(a.cfg)
		job.input = condenseInput
		job.output = args[0]

		return job.run(cmd, a)
	}

	return runExtract(cmd, a, extractInput, args[0])
}
