package commands

import (
	"context"
	"fmt"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"github.com/upb/recipe-rag/internal/mcptools"
	"go.uber.org/zap"
)

// serveStdio is replaced in tests.
var serveStdio = func(server *mcpserver.MCPServer) error {
	return mcpserver.ServeStdio(server)
}

// NewMCPCmd creates the MCP server command.
func NewMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve recipe search to LLM agents over MCP",
		Long: `Run a Model Context Protocol server on stdio exposing the
search_recipes tool. Logs go to stderr; stdout carries the protocol.

Example client configuration:
  {
    "mcpServers": {
      "recipes": {"command": "ragctl", "args": ["mcp"]}
    }
  }`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := openDependencies(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = deps.Close(context.Background()) }()

			logger := loggerFrom(cmd)
			server := mcptools.NewServer(deps.Retriever, logger)

			serverErr := make(chan error, 1)
			go func() {
				serverErr <- serveStdio(server)
			}()
			logger.Info("mcp server listening on stdio", zap.String("tool", mcptools.SearchToolName))

			select {
			case <-cmd.Context().Done():
				logger.Info("shutdown signal received, stopping mcp server")
				return nil
			case err := <-serverErr:
				if err != nil {
					return fmt.Errorf("mcp server error: %w", err)
				}
				return nil
			}
		},
	}
}
