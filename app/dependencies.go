package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/upb/recipe-rag/config"
	"github.com/upb/recipe-rag/internal/embedding"
	"github.com/upb/recipe-rag/middleware"
	"github.com/upb/recipe-rag/models"
	"github.com/upb/recipe-rag/repositories"
	"github.com/upb/recipe-rag/repositories/postgres"
	"github.com/upb/recipe-rag/repositories/sqlite"
	"github.com/upb/recipe-rag/services/answer"
	"github.com/upb/recipe-rag/services/ingestion"
	"github.com/upb/recipe-rag/services/providers"
	"github.com/upb/recipe-rag/services/providers/openai"
	"github.com/upb/recipe-rag/services/retrieval"
	"go.uber.org/zap"
)

// HealthChecker reports whether the backing database is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies holds all application dependencies.
// This is the central wiring point shared by the HTTP server and the CLI.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	Logger *zap.Logger

	// Vector store. RepoFactory is nil for the sqlite backend.
	RepoFactory *postgres.RepositoryFactory
	Store       repositories.DocumentRepository
	StoreHealth HealthChecker

	// Models
	Encoder  embedding.Encoder
	Provider providers.Provider

	// Services
	Retriever *retrieval.Service
	Ingester  *ingestion.Service
	Composer  *answer.Composer

	// Auth
	AuthMiddleware *middleware.AuthMiddleware

	closeStore func() error
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initStore(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}

	if err := deps.initEncoder(cfg); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize encoder: %w", err)
	}

	if err := deps.initLLM(cfg); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize LLM provider: %w", err)
	}

	deps.Retriever = retrieval.NewService(deps.Store, deps.Encoder, logger)
	deps.Ingester = ingestion.NewService(deps.Store, deps.Encoder, cfg.Store.ReindexGrowth, logger)
	deps.Composer = answer.NewComposer(deps.Provider, logger)

	deps.AuthMiddleware = middleware.NewAuthMiddleware(cfg.Admin.JWTSecret, cfg.Admin.JWTIssuer, logger)
	if !deps.AuthMiddleware.Enabled() {
		msg := "ADMIN_JWT_SECRET not set, admin endpoints disabled"
		if cfg.IsProduction() {
			logger.Error(msg)
		} else {
			logger.Warn(msg)
		}
	}

	logger.Info("all dependencies initialized successfully",
		zap.String("backend", deps.Store.Backend()),
		zap.String("embedding_model", deps.Encoder.Model()),
		zap.Bool("llm_configured", deps.Composer.Configured()))
	return deps, nil
}

// initStore opens the configured backend and makes sure its schema exists.
func (d *Dependencies) initStore(ctx context.Context, cfg *config.Config) error {
	switch cfg.Store.Backend {
	case config.BackendSQLite:
		repo, err := sqlite.Open(cfg.Store.SQLitePath, cfg.Store.Metric, d.Logger)
		if err != nil {
			return err
		}
		d.Store = repo
		d.StoreHealth = repo
		d.closeStore = repo.Close

	case config.BackendPostgres, "":
		factory, err := postgres.NewRepositoryFactory(cfg, d.Logger)
		if err != nil {
			return fmt.Errorf("failed to create repository factory: %w", err)
		}
		d.RepoFactory = factory
		d.StoreHealth = factory.GetDB()
		d.closeStore = factory.Close

		store, err := factory.NewDocumentRepository()
		if err != nil {
			_ = factory.Close()
			return err
		}
		d.Store = store

	default:
		return fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	if err := d.Store.EnsureSchema(ctx); err != nil {
		_ = d.closeStore()
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	d.Logger.Info("vector store ready",
		zap.String("backend", d.Store.Backend()),
		zap.String("metric", string(cfg.Store.Metric)))
	return nil
}

// initEncoder selects the remote embedding model when an endpoint is
// configured and the offline hashing encoder otherwise.
func (d *Dependencies) initEncoder(cfg *config.Config) error {
	if cfg.Embedding.BaseURL == "" {
		enc, err := embedding.NewHashingEncoder(models.EmbeddingDimension)
		if err != nil {
			return err
		}
		d.Logger.Warn("EMBEDDING_BASE_URL not set, using offline hashing encoder",
			zap.String("model", enc.Model()))
		d.Encoder = enc
		return nil
	}

	enc, err := embedding.NewOpenAIEncoder(embedding.OpenAIConfig{
		BaseURL:   cfg.Embedding.BaseURL,
		APIKey:    cfg.Embedding.APIKey,
		Model:     cfg.Embedding.Model,
		Dimension: models.EmbeddingDimension,
		BatchSize: cfg.Embedding.BatchSize,
		Timeout:   cfg.Embedding.Timeout,
	}, d.Logger)
	if err != nil {
		return err
	}
	d.Logger.Info("embedding endpoint configured",
		zap.String("base_url", cfg.Embedding.BaseURL),
		zap.String("model", cfg.Embedding.Model))
	d.Encoder = enc
	return nil
}

// initLLM creates the chat provider when LLM_BASE_URL is set. Without it the
// service runs in search-only mode.
func (d *Dependencies) initLLM(cfg *config.Config) error {
	if !cfg.LLM.IsConfigured() {
		d.Logger.Warn("LLM_BASE_URL not set, chat disabled (search-only mode)")
		return nil
	}

	adapter, err := openai.NewAdapter(openai.Config{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Timeout:     cfg.LLM.Timeout,
		Temperature: cfg.LLM.Temperature,
	}, d.Logger)
	if err != nil {
		return err
	}
	d.Provider = adapter
	d.Logger.Info("LLM provider configured",
		zap.String("base_url", cfg.LLM.BaseURL),
		zap.String("model", cfg.LLM.Model),
		zap.Duration("timeout", cfg.LLM.Timeout))
	return nil
}

// Close gracefully shuts down all dependencies. It is safe to call twice.
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.closeStore != nil {
		if err := d.closeStore(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close vector store: %w", err))
		} else {
			d.Logger.Info("vector store closed")
		}
		d.closeStore = nil
	}

	_ = d.Logger.Sync()

	return errors.Join(errs...)
}
