package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	orchestratorx "github.com/tanpawarit/entity-research/agent/agents/orchestrator"
)

var (
	flagCacheKey       string
	flagCacheNamespace string
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the response cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove one cached entry, or everything when --key is empty",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		svc, err := openCache(ctx)
		if err != nil {
			return err
		}
		defer svc.Close()

		if err := svc.Clear(ctx, flagCacheKey, flagCacheNamespace); err != nil {
			return fmt.Errorf("clearing cache: %w", err)
		}
		if flagCacheKey == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "cache purged")
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "removed %q from %s\n", flagCacheKey, flagCacheNamespace)
		}
		return nil
	},
}

func init() {
	cacheClearCmd.Flags().StringVar(&flagCacheKey, "key", "", "cache key, usually the query")
	cacheClearCmd.Flags().StringVar(&flagCacheNamespace, "namespace", orchestratorx.Namespace,
		"namespace: orchestrator, gateway, fact_extraction, media_lookup, content_aggregation or summarization")
	cacheCmd.AddCommand(cacheClearCmd)
}
