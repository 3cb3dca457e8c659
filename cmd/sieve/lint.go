package main

import (
	"fmt"

	"github.com/aretw0/sieve/internal/cli"
	"github.com/aretw0/sieve/internal/validator"
	"github.com/aretw0/sieve/pkg/ports"
	"github.com/spf13/cobra"
)

var lintCmd = &cobra.Command{
	Use:   "lint [files...]",
	Short: "Check schema documents for defects",
	Long: `Compiles every schema and reports all defects at once: unknown types and
rules, bad rule arguments, embed cycles and embeds naming missing schemas.
Without arguments the configured schema source is checked.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		setup, _, _, err := setupEngine(cmd)
		if err != nil {
			return err
		}
		defer setup.Close()

		var src ports.SchemaSource = setup.Source
		if len(args) > 0 {
			if src, err = cli.FilesSource(args); err != nil {
				return err
			}
		}

		if err := validator.ValidateSource(cmd.Context(), src, setup.Engine.Registry()); err != nil {
			return fmt.Errorf("lint failed: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Schemas are valid! ✅")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lintCmd)
}
