// Package mcptools exposes recipe retrieval as Model Context Protocol tools.
package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/upb/recipe-rag/models"
	"github.com/upb/recipe-rag/services"
	"github.com/upb/recipe-rag/services/retrieval"
	"go.uber.org/zap"
)

// Server identity reported during the MCP handshake.
const (
	ServerName    = "recipe-rag"
	ServerVersion = "0.1.0"
)

const SearchToolName = "search_recipes"

// Retriever is the subset of the retrieval service the tools need.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]models.QueryResult, error)
}

// Handlers holds the tool callbacks.
type Handlers struct {
	retriever Retriever
	logger    *zap.Logger
}

// NewServer creates an MCP server with every tool registered.
func NewServer(retriever Retriever, logger *zap.Logger) *mcpserver.MCPServer {
	server := mcpserver.NewMCPServer(ServerName, ServerVersion)
	Register(server, retriever, logger)
	return server
}

// Register adds the retrieval tools to server.
func Register(server *mcpserver.MCPServer, retriever Retriever, logger *zap.Logger) *Handlers {
	h := &Handlers{retriever: retriever, logger: logger}

	server.AddTool(SearchTool(), h.HandleSearch)
	return h
}

// SearchTool describes the search_recipes tool.
func SearchTool() mcp.Tool {
	return mcp.NewTool(SearchToolName,
		mcp.WithDescription("Find the recipes most similar to a free-text query. "+
			"Returns a JSON array of {id, content, distance}, closest first."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("What to look for, e.g. 'feijoada' or 'prato leve com peixe'"),
		),
		mcp.WithNumber("top_k",
			mcp.Description("Number of recipes to return"),
			mcp.DefaultNumber(retrieval.DefaultTopK),
			mcp.Min(1),
			mcp.Max(retrieval.MaxTopK),
		),
	)
}

// HandleSearch runs a nearest-neighbor query and returns the hits as JSON text.
func (h *Handlers) HandleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query parameter is required"), nil
	}
	if strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError("query must not be empty"), nil
	}

	topK := request.GetInt("top_k", retrieval.DefaultTopK)
	if topK < 1 || topK > retrieval.MaxTopK {
		return mcp.NewToolResultErrorf("top_k must be between 1 and %d", retrieval.MaxTopK), nil
	}

	results, err := h.retriever.Retrieve(ctx, query, topK)
	if err != nil {
		h.logger.Error("mcp search failed", zap.String("tool", SearchToolName), zap.Error(err))
		return mcp.NewToolResultError(toolMessage(err)), nil
	}
	if results == nil {
		results = []models.QueryResult{}
	}

	body, err := json.Marshal(results)
	if err != nil {
		return nil, err
	}

	h.logger.Debug("mcp search served",
		zap.Int("top_k", topK),
		zap.Int("results", len(results)))
	return mcp.NewToolResultText(string(body)), nil
}

// toolMessage surfaces domain error messages and hides everything else.
func toolMessage(err error) string {
	var domainErr *services.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return "search failed"
}
