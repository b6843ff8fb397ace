package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/recipe-rag/models"
	"github.com/upb/recipe-rag/services"
	"github.com/upb/recipe-rag/services/retrieval"
	"go.uber.org/zap"
)

type MockRetriever struct {
	mock.Mock
}

func (m *MockRetriever) Retrieve(ctx context.Context, query string, topK int) ([]models.QueryResult, error) {
	args := m.Called(ctx, query, topK)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.QueryResult), args.Error(1)
}

func callSearch(t *testing.T, retriever Retriever, arguments map[string]any) *mcp.CallToolResult {
	t.Helper()
	h := &Handlers{retriever: retriever, logger: zap.NewNop()}

	var request mcp.CallToolRequest
	request.Params.Name = SearchToolName
	request.Params.Arguments = arguments

	result, err := h.HandleSearch(context.Background(), request)
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return text.Text
}

func TestNewServer_RegistersSearchTool(t *testing.T) {
	server := NewServer(new(MockRetriever), zap.NewNop())

	tool := server.GetTool(SearchToolName)
	require.NotNil(t, tool)
	assert.Equal(t, []string{"query"}, tool.Tool.InputSchema.Required)
	assert.Contains(t, tool.Tool.InputSchema.Properties, "top_k")
}

func TestHandleSearch(t *testing.T) {
	t.Run("returns hits as JSON", func(t *testing.T) {
		retriever := new(MockRetriever)
		hits := []models.QueryResult{
			{ID: 1, Content: "Feijoada e um prato tipico brasileiro", Distance: 0.12},
			{ID: 4, Content: "Lasanha a bolonhesa", Distance: 0.9},
		}
		retriever.On("Retrieve", mock.Anything, "feijoada", 2).Return(hits, nil)

		result := callSearch(t, retriever, map[string]any{"query": "feijoada", "top_k": float64(2)})

		assert.False(t, result.IsError)
		var got []models.QueryResult
		require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &got))
		assert.Equal(t, hits, got)
		retriever.AssertExpectations(t)
	})

	t.Run("defaults top_k", func(t *testing.T) {
		retriever := new(MockRetriever)
		retriever.On("Retrieve", mock.Anything, "sopa", retrieval.DefaultTopK).Return(nil, nil)

		result := callSearch(t, retriever, map[string]any{"query": "sopa"})

		assert.False(t, result.IsError)
		assert.Equal(t, "[]", resultText(t, result))
		retriever.AssertExpectations(t)
	})

	invalid := []struct {
		name      string
		arguments map[string]any
		message   string
	}{
		{"missing query", map[string]any{}, "query parameter is required"},
		{"blank query", map[string]any{"query": "   "}, "query must not be empty"},
		{"top_k too small", map[string]any{"query": "x", "top_k": float64(0)}, "top_k must be between 1 and 50"},
		{"top_k too large", map[string]any{"query": "x", "top_k": float64(51)}, "top_k must be between 1 and 50"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			retriever := new(MockRetriever)

			result := callSearch(t, retriever, tt.arguments)

			assert.True(t, result.IsError)
			assert.Equal(t, tt.message, resultText(t, result))
			retriever.AssertNotCalled(t, "Retrieve", mock.Anything, mock.Anything, mock.Anything)
		})
	}

	t.Run("domain errors keep their message", func(t *testing.T) {
		retriever := new(MockRetriever)
		retriever.On("Retrieve", mock.Anything, "x", retrieval.DefaultTopK).Return(nil, services.ErrEmptyQuery)

		result := callSearch(t, retriever, map[string]any{"query": "x"})

		assert.True(t, result.IsError)
		assert.Equal(t, "query cannot be empty", resultText(t, result))
	})

	t.Run("other errors are hidden", func(t *testing.T) {
		retriever := new(MockRetriever)
		retriever.On("Retrieve", mock.Anything, "x", retrieval.DefaultTopK).Return(nil, errors.New("pq: connection refused"))

		result := callSearch(t, retriever, map[string]any{"query": "x"})

		assert.True(t, result.IsError)
		assert.Equal(t, "search failed", resultText(t, result))
	})
}
