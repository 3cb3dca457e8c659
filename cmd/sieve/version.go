package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/sieve"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of sieve",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "sieve version %s\n", strings.TrimSpace(sieve.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
