package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	configx "github.com/tanpawarit/entity-research/pkg/config"
	logx "github.com/tanpawarit/entity-research/pkg/logger"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var flagEnv string

var rootCmd = &cobra.Command{
	Use:   "entity-research",
	Short: "Research people, companies and other entities with a staged LLM pipeline",
	Long: `entity-research classifies a query, runs fact extraction, media lookup,
content aggregation and summarization in order, and reconciles the results
into a typed profile. Responses are cached per exchange, per agent and per query.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configx.UseEnvFile(flagEnv)
		logCfg, err := configx.New[logx.Config]("LOG")
		if err != nil {
			return fmt.Errorf("loading log config: %w", err)
		}
		logx.Init(*logCfg)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagEnv, "env", "", "path to .env file (default ./.env when present)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(researchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(cacheCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "entity-research %s (commit: %s, built: %s)\n", version, commit, date)
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}
