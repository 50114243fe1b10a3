package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	flagClearCache bool
	flagFormat     string
)

var researchCmd = &cobra.Command{
	Use:   "research <query>",
	Short: "Research one entity and print its profile",
	Example: `  entity-research research "Marie Curie"
  entity-research research --format yaml --clear-cache "Acme Corp"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if flagClearCache {
			if err := a.orchestrator.ClearCache(ctx); err != nil {
				return fmt.Errorf("clearing cache: %w", err)
			}
		}

		out, err := a.orchestrator.ProcessQuery(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), out, flagFormat)
	},
}

func init() {
	researchCmd.Flags().BoolVar(&flagClearCache, "clear-cache", false, "purge every cache tier before running")
	researchCmd.Flags().StringVar(&flagFormat, "format", formatJSON, "output format: json or yaml")
}
