package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/recipe-rag/config"
	"github.com/upb/recipe-rag/internal/vectormath"
	"github.com/upb/recipe-rag/middleware"
	"github.com/upb/recipe-rag/models"
	"go.uber.org/zap"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Environment: "test",
		Store: config.StoreConfig{
			Backend:       config.BackendSQLite,
			SQLitePath:    filepath.Join(dir, "recipes.db"),
			Metric:        vectormath.MetricL2,
			Probes:        10,
			ReindexGrowth: 2,
		},
		Embedding: config.EmbeddingConfig{
			Model:     "all-MiniLM-L6-v2",
			BatchSize: 64,
			Timeout:   5 * time.Second,
		},
		LLM:   config.LLMConfig{Model: "llama3.1", Timeout: time.Second},
		Admin: config.AdminConfig{JWTIssuer: "recipe-rag"},
		Ingest: config.IngestConfig{
			ErrorLogPath:   filepath.Join(dir, "ingest_error.log"),
			SyntheticCount: 20,
		},
		Observability: config.ObservabilityConfig{LogLevel: "error", LogFormat: "json"},
	}
}

func run(t *testing.T, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	prev := loadConfig
	loadConfig = func(context.Context) (*config.Config, error) {
		if cfg == nil {
			return nil, errors.New("DB_HOST is required")
		}
		return cfg, nil
	}
	t.Cleanup(func() { loadConfig = prev })

	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestNewRootCmd(t *testing.T) {
	cmd := NewRootCmd()

	assert.Equal(t, "ragctl", cmd.Use)
	assert.NotEmpty(t, cmd.Long)

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"ingest", "reindex", "search", "stats", "mcp", "token"}, names)

	flag := cmd.PersistentFlags().Lookup("log-level")
	require.NotNil(t, flag)
	assert.Equal(t, "", flag.DefValue)
}

func TestRootCmd_ConfigError(t *testing.T) {
	_, err := run(t, nil, "stats")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration error")
}

func TestIngestThenSearch(t *testing.T) {
	cfg := testConfig(t)

	out, err := run(t, cfg, "ingest", "--synthetic", "50")
	require.NoError(t, err)
	assert.Contains(t, out, "Ingested 55 documents")

	out, err = run(t, cfg, "search", "Feijoada", "--top-k", "3", "--json")
	require.NoError(t, err)
	var results []models.QueryResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 3)
	assert.Equal(t, int64(1), results[0].ID)

	out, err = run(t, cfg, "search", "Feijoada")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "ID"), "table output starts with a header: %q", out)

	out, err = run(t, cfg, "stats", "--json")
	require.NoError(t, err)
	var stats models.StoreStats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, int64(55), stats.Documents)
	assert.Equal(t, "sqlite", stats.Backend)
}

func TestIngest_UsesConfiguredSyntheticCount(t *testing.T) {
	cfg := testConfig(t)

	out, err := run(t, cfg, "ingest")
	require.NoError(t, err)
	assert.Contains(t, out, "Ingested 25 documents")
}

func TestIngest_RejectsNegativeCount(t *testing.T) {
	_, err := run(t, testConfig(t), "ingest", "--synthetic", "-1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "--synthetic")
}

func TestIngest_FailureWritesErrorLog(t *testing.T) {
	embeddings := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"model not loaded"}}`, http.StatusInternalServerError)
	}))
	defer embeddings.Close()

	cfg := testConfig(t)
	cfg.Embedding.BaseURL = embeddings.URL + "/v1"
	logPath := filepath.Join(t.TempDir(), "failure.log")

	_, err := run(t, cfg, "ingest", "--synthetic", "5", "--error-log", logPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), logPath)

	content, readErr := os.ReadFile(logPath)
	require.NoError(t, readErr)
	assert.Contains(t, string(content), "ingestion failed")

	// The failed batch left nothing behind.
	cfg.Embedding.BaseURL = ""
	out, err := run(t, cfg, "stats", "--json")
	require.NoError(t, err)
	var stats models.StoreStats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, int64(0), stats.Documents)
}

func TestStats_ReportsStaleDocuments(t *testing.T) {
	embeddings := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		data := make([]map[string]interface{}, len(req.Input))
		for i := range req.Input {
			vec := make([]float32, models.EmbeddingDimension)
			vec[i%models.EmbeddingDimension] = 1
			data[i] = map[string]interface{}{"object": "embedding", "index": i, "embedding": vec}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"object": "list", "data": data})
	}))
	defer embeddings.Close()

	cfg := testConfig(t)
	cfg.Embedding.BaseURL = embeddings.URL + "/v1"
	_, err := run(t, cfg, "ingest", "--synthetic", "0")
	require.NoError(t, err)

	// Switching to the offline encoder leaves every stored row on the old model.
	cfg.Embedding.BaseURL = ""
	out, err := run(t, cfg, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Stale documents:  5")
	assert.Contains(t, out, "re-embedding needs a fresh collection")
	assert.NotContains(t, out, "run ingest again")
}

func TestSearch_InvalidTopK(t *testing.T) {
	_, err := run(t, testConfig(t), "search", "sopa", "--top-k", "0")

	assert.Error(t, err)
}

func TestSearch_EmptyStore(t *testing.T) {
	out, err := run(t, testConfig(t), "search", "sopa")

	require.NoError(t, err)
	assert.Contains(t, out, "ragctl ingest")
}

func TestReindex_SQLiteHasNoIndex(t *testing.T) {
	out, err := run(t, testConfig(t), "reindex")

	require.NoError(t, err)
	assert.Contains(t, out, "nothing to rebuild")
}

func TestToken(t *testing.T) {
	t.Run("requires a secret", func(t *testing.T) {
		_, err := run(t, testConfig(t), "token")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "ADMIN_JWT_SECRET")
	})

	t.Run("mints a valid admin token", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Admin.JWTSecret = "cli-secret"

		out, err := run(t, cfg, "token", "--subject", "ops", "--ttl", "5m")
		require.NoError(t, err)

		auth := middleware.NewAuthMiddleware("cli-secret", "recipe-rag", zap.NewNop())
		claims, err := auth.ValidateToken(strings.TrimSpace(out))
		require.NoError(t, err)
		assert.Equal(t, middleware.RoleAdmin, claims.Role)
		assert.Equal(t, "ops", claims.Subject)
	})
}

func TestMCP(t *testing.T) {
	stub := func(t *testing.T, fn func(*mcpserver.MCPServer) error) {
		prev := serveStdio
		serveStdio = fn
		t.Cleanup(func() { serveStdio = prev })
	}

	t.Run("serves the search tool", func(t *testing.T) {
		var registered bool
		stub(t, func(s *mcpserver.MCPServer) error {
			registered = s.GetTool("search_recipes") != nil
			return nil
		})

		_, err := run(t, testConfig(t), "mcp")
		require.NoError(t, err)
		assert.True(t, registered)
	})

	t.Run("transport errors are returned", func(t *testing.T) {
		stub(t, func(*mcpserver.MCPServer) error { return errors.New("broken pipe") })

		_, err := run(t, testConfig(t), "mcp")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "broken pipe")
	})
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdefgh", 5))
	assert.Equal(t, "açã", truncate("açãí", 3))
}
