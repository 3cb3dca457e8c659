package main

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/sieve/internal/presentation/graph"
	"github.com/aretw0/sieve/pkg/schema"
	"github.com/spf13/cobra"
)

var schemasCmd = &cobra.Command{
	Use:   "schemas [name]",
	Short: "List schemas, or describe one",
	Long: `Lists the schema names, or prints the summary of one schema.

With --graph, prints a Mermaid flowchart of the schemas and their embeds
instead. Schemas that fail to compile are drawn apart.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		setup, _, logger, err := setupEngine(cmd)
		if err != nil {
			return err
		}
		defer setup.Close()

		out := cmd.OutOrStdout()
		asGraph, _ := cmd.Flags().GetBool("graph")

		names := args
		if len(args) == 0 {
			names, err = setup.Engine.Schemas(cmd.Context())
			if err != nil {
				return err
			}
		}

		if asGraph {
			var descriptors []*schema.Descriptor
			overlay := &graph.GraphOverlay{}
			for _, name := range names {
				d, err := setup.Engine.Schema(cmd.Context(), name)
				if err != nil {
					logger.Debug("schema excluded from graph", "schema", name, "err", err)
					overlay.Broken = append(overlay.Broken, name)
					continue
				}
				descriptors = append(descriptors, d)
			}
			fmt.Fprint(out, graph.GenerateMermaid(descriptors, overlay))
			return nil
		}

		if len(args) == 1 {
			d, err := setup.Engine.Schema(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(d.Summary())
		}

		for _, name := range names {
			fmt.Fprintln(out, name)
		}
		return nil
	},
}

func init() {
	schemasCmd.Flags().Bool("graph", false, "Print a Mermaid flowchart of schemas and embeds")
	rootCmd.AddCommand(schemasCmd)
}
