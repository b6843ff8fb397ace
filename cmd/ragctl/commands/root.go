// Package commands implements the ragctl command tree.
package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/upb/recipe-rag/app"
	"github.com/upb/recipe-rag/config"
	"github.com/upb/recipe-rag/internal/observability"
	"go.uber.org/zap"
)

type configContextKey struct{}

// loadConfig is replaced in tests.
var loadConfig = config.New

// NewRootCmd builds ragctl with every subcommand attached.
func NewRootCmd() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   "ragctl",
		Short: "Operate the recipe retrieval service",
		Long: `ragctl manages the recipe vector store from the command line.

It reads the same environment (and .env file) as api-server, so a
corpus ingested here is immediately searchable over HTTP.

Examples:
  ragctl ingest --synthetic 1000
  ragctl search "feijoada" --top-k 3
  ragctl mcp`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Context())
			if err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}
			if logLevel != "" {
				cfg.Observability.LogLevel = logLevel
			}

			logger, err := observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat)
			if err != nil {
				return err
			}
			logger = logger.With(zap.String("command", cmd.Name()))

			ctx := observability.WithLogger(cmd.Context(), logger)
			cmd.SetContext(context.WithValue(ctx, configContextKey{}, cfg))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override LOG_LEVEL (debug, info, warn, error)")

	cmd.AddCommand(
		NewIngestCmd(),
		NewReindexCmd(),
		NewSearchCmd(),
		NewStatsCmd(),
		NewMCPCmd(),
		NewTokenCmd(),
	)
	return cmd
}

// Execute runs the command tree with ctx as the root context.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

func configFrom(cmd *cobra.Command) (*config.Config, error) {
	cfg, ok := cmd.Context().Value(configContextKey{}).(*config.Config)
	if !ok || cfg == nil {
		return nil, errors.New("configuration not loaded")
	}
	return cfg, nil
}

func loggerFrom(cmd *cobra.Command) *zap.Logger {
	return observability.FromContext(cmd.Context(), zap.NewNop())
}

// openDependencies wires the store, encoder and services for one command.
// Callers must Close the result.
func openDependencies(cmd *cobra.Command) (*app.Dependencies, error) {
	cfg, err := configFrom(cmd)
	if err != nil {
		return nil, err
	}
	return app.NewDependencies(cmd.Context(), cfg, loggerFrom(cmd))
}

// truncate shortens s to maxLen runes, adding "..." when cut.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
