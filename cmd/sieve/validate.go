package main

import (
	"os"

	"github.com/aretw0/sieve/internal/cli"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <schema>",
	Short: "Validate a record against a schema",
	Long: `Reads a JSON or YAML record from --input (or stdin), applies the named schema
and prints the result. Exits with status 1 when the record is invalid.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		setup, _, _, err := setupEngine(cmd)
		if err != nil {
			return err
		}
		defer setup.Close()

		inputPath, _ := cmd.Flags().GetString("input")
		pairs, _ := cmd.Flags().GetStringArray("bind")
		format, _ := cmd.Flags().GetString("format")

		params, err := cli.ReadInput(inputPath, cmd.InOrStdin())
		if err != nil {
			return err
		}
		bindings, err := cli.ParseBindings(pairs)
		if err != nil {
			return err
		}
		format, err = cli.ResolveFormat(format, os.Stdout)
		if err != nil {
			return err
		}

		valid, err := cli.RunValidate(cmd.Context(), setup.Engine, setup.Masker, args[0], params, bindings, format, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		if !valid {
			return exitError{code: 1}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringP("input", "i", "-", "Record file to validate, '-' for stdin")
	validateCmd.Flags().StringArrayP("bind", "b", nil, "Binding visible to rule clauses, as name=value (repeatable)")
	validateCmd.Flags().StringP("format", "f", cli.FormatAuto, "Output format: auto, text or json")
}
