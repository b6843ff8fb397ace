// Package retrieval turns free text into an ordered evidence set:
// normalize, encode, then ask the vector store for the nearest documents.
package retrieval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/upb/recipe-rag/internal/embedding"
	"github.com/upb/recipe-rag/internal/textnorm"
	"github.com/upb/recipe-rag/models"
	"github.com/upb/recipe-rag/repositories"
	"github.com/upb/recipe-rag/services"
	"go.uber.org/zap"
)

// Limits for top_k shared by the HTTP API, the MCP tool and the CLI.
const (
	DefaultTopK = 3
	MaxTopK     = 50
)

// ValidateTopK returns services.ErrInvalidTopK unless 1 <= topK <= MaxTopK.
func ValidateTopK(topK int) error {
	if topK < 1 || topK > MaxTopK {
		return services.Wrap(services.ErrInvalidTopK, nil).
			WithDetail("top_k", topK).
			WithDetail("max", MaxTopK)
	}
	return nil
}

// Service is the single retrieval path shared by search, chat and the MCP tool.
type Service struct {
	store   repositories.DocumentRepository
	encoder embedding.Encoder
	logger  *zap.Logger
}

// NewService creates a retrieval service
func NewService(store repositories.DocumentRepository, encoder embedding.Encoder, logger *zap.Logger) *Service {
	return &Service{
		store:   store,
		encoder: encoder,
		logger:  logger,
	}
}

// Retrieve returns at most topK documents nearest to query, closest first
// with ties broken by ascending id. An empty store yields an empty slice.
// Store and encoder failures are returned wrapped, not as domain errors.
func (s *Service) Retrieve(ctx context.Context, query string, topK int) ([]models.QueryResult, error) {
	if err := ValidateTopK(topK); err != nil {
		return nil, err
	}

	start := time.Now()
	// A query made only of non-Latin scripts or symbols folds to nothing and
	// would be encoded as the zero vector.
	normalized := textnorm.Normalize(query)
	if strings.TrimSpace(normalized) == "" {
		return nil, services.ErrEmptyQuery
	}

	vec, err := s.encoder.Encode(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	results, err := s.store.QueryNearest(ctx, vec, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to query vector store: %w", err)
	}

	s.logger.Debug("retrieval completed",
		zap.Int("top_k", topK),
		zap.Int("results", len(results)),
		zap.Duration("duration", time.Since(start)))

	return results, nil
}

// Stats summarizes the store, counting documents whose embedding model
// differs from the running encoder as stale.
func (s *Service) Stats(ctx context.Context) (*models.StoreStats, error) {
	total, err := s.store.Count(ctx)
	if err != nil {
		return nil, err
	}
	stale, err := s.store.CountStale(ctx, s.encoder.Model())
	if err != nil {
		return nil, err
	}
	index, err := s.store.IndexState(ctx)
	if err != nil {
		return nil, err
	}

	return &models.StoreStats{
		Documents:      total,
		EmbeddingModel: s.encoder.Model(),
		StaleDocuments: stale,
		Backend:        s.store.Backend(),
		Index:          index,
	}, nil
}
