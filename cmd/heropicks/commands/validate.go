package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/xeipuuv/gojsonschema"

	"github.com/Sumatoshi-tech/heropicks/pkg/export"
)

// stdinArg reads the document from standard input.
const stdinArg = "-"

func newValidateCommand(a *app) *cobra.Command {
	var schemaPath string

	cmd := &cobra.Command{
		Use:   "validate <dump.json|->",
		Short: "Check a JSON dump against its schema",
		Long: `Validate a JSON dump against the dump schema.

Examples:
  heropicks validate picks.json
  heropicks validate - < picks.json
  heropicks validate --schema custom.schema.json picks.json`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, a, args[0], schemaPath)
		},
	}

	cmd.Flags().StringVar(&schemaPath, "schema", "", "Schema file (default: built-in dump schema)")

	return cmd
}

func runValidate(cmd *cobra.Command, a *app, input, schemaPath string) error {
	schema, err := loadSchema(schemaPath)
	if err != nil {
		return err
	}

	data, label, err := readDocument(cmd.InOrStdin(), input)
	if err != nil {
		return err
	}

	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schema), gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("validate %s: %w", label, err)
	}

	out := cmd.OutOrStdout()

	if result.Valid() {
		a.statusf(out, color.FgGreen, "dump is valid (%s)", label)

		return nil
	}

	errs := result.Errors()

	_, _ = color.New(color.FgRed).Fprintf(out, "dump is invalid (%s): %d errors\n", label, len(errs))

	for _, verr := range errs {
		_, _ = color.New(color.FgRed).Fprintf(out, "  - %s: %s\n", verr.Field(), verr.Description())
	}

	return fmt.Errorf("%w: %s", ErrInvalidDump, label)
}

func loadSchema(path string) ([]byte, error) {
	if path == "" {
		data, err := export.SchemaFS.ReadFile(export.SchemaPath)
		if err != nil {
			return nil, fmt.Errorf("read embedded schema: %w", err)
		}

		return data, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}

	return data, nil
}

func readDocument(stdin io.Reader, input string) ([]byte, string, error) {
	if input == stdinArg {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, "", fmt.Errorf("read stdin: %w", err)
		}

		return data, "stdin", nil
	}

	data, err := os.ReadFile(input)
	if err != nil {
		return nil, "", fmt.Errorf("read dump: %w", err)
	}

	return data, input, nil
}
