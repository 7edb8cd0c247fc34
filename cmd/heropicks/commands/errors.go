package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/heropicks/pkg/condense"
	"github.com/Sumatoshi-tech/heropicks/pkg/export"
)

// Process exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
	// ExitDataErr follows sysexits EX_DATAERR.
	ExitDataErr = 65
)

// Sentinel errors.
var (
	// ErrUsage marks command-line misuse.
	ErrUsage = errors.New("usage error")
	// ErrInvalidDump is returned by validate when a dump breaks the schema.
	ErrInvalidDump = errors.New("dump does not match schema")
)

// ExitCode maps a command error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrUsage):
		return ExitUsage
	case errors.Is(err, condense.ErrMalformedRow),
		errors.Is(err, export.ErrBadKey),
		errors.Is(err, ErrInvalidDump):
		return ExitDataErr
	default:
		return ExitFailure
	}
}

func usageError(err error) error {
	return fmt.Errorf("%w: %w", ErrUsage, err)
}

// usageArgs marks argument validation failures as usage errors.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		err := validate(cmd, args)
		if err != nil {
			return usageError(err)
		}

		return nil
	}
}
