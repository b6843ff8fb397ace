// Package ingestion loads batches of documents into the vector store.
package ingestion

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"github.com/upb/recipe-rag/internal/embedding"
	"github.com/upb/recipe-rag/internal/textnorm"
	"github.com/upb/recipe-rag/models"
	"github.com/upb/recipe-rag/repositories"
	"github.com/upb/recipe-rag/services"
	"go.uber.org/zap"
)

// Report describes a committed batch.
type Report struct {
	BatchID   uuid.UUID          `json:"batch_id"`
	IDs       []int64            `json:"ids"`
	Model     string             `json:"embedding_model"`
	Documents int                `json:"documents"`
	Duration  time.Duration      `json:"duration_ns"`
	Reindexed bool               `json:"reindexed"`
	Index     *models.IndexState `json:"index,omitempty"`
}

// Service normalizes, encodes and stores batches. Each batch is all or nothing.
type Service struct {
	store   repositories.DocumentRepository
	encoder embedding.Encoder
	growth  float64
	logger  *zap.Logger
}

// NewService creates an ingestion service. growth is the row-count multiple
// that triggers an index rebuild after a batch.
func NewService(store repositories.DocumentRepository, encoder embedding.Encoder, growth float64, logger *zap.Logger) *Service {
	if growth <= 1 {
		growth = repositories.DefaultReindexGrowth
	}
	return &Service{
		store:   store,
		encoder: encoder,
		growth:  growth,
		logger:  logger,
	}
}

// Ingest stores texts as one batch. A text that normalizes to blank rejects
// the whole batch with services.ErrEmptyDocument. Every later failure is a
// services.ErrIngestion carrying a stack trace; on failure nothing from this
// batch is stored.
func (s *Service) Ingest(ctx context.Context, texts []string) (*Report, error) {
	if len(texts) == 0 {
		return nil, services.ErrNoDocuments
	}

	cleaned := textnorm.NormalizeAll(texts)
	for i, text := range cleaned {
		if strings.TrimSpace(text) == "" {
			return nil, services.Wrap(services.ErrEmptyDocument, nil).WithDetail("index", i)
		}
	}

	start := time.Now()
	batchID := uuid.New()
	logger := s.logger.With(zap.String("batch_id", batchID.String()))
	logger.Info("ingestion started", zap.Int("documents", len(texts)))

	vectors, err := s.encoder.EncodeBatch(ctx, cleaned)
	if err != nil {
		return nil, s.fail(logger, pkgerrors.Wrap(err, "encode documents"))
	}
	if len(vectors) != len(cleaned) {
		return nil, s.fail(logger, pkgerrors.Errorf("encoder returned %d vectors for %d documents", len(vectors), len(cleaned)))
	}

	docs := make([]models.NewDocument, len(cleaned))
	for i := range cleaned {
		docs[i] = models.NewDocument{Content: cleaned[i], Embedding: vectors[i]}
	}

	ids, err := s.store.InsertBatch(ctx, batchID, s.encoder.Model(), docs)
	if err != nil {
		return nil, s.fail(logger, pkgerrors.Wrap(err, "insert documents"))
	}

	report := &Report{
		BatchID:   batchID,
		IDs:       ids,
		Model:     s.encoder.Model(),
		Documents: len(ids),
	}

	// The batch is committed; index upkeep failing must not undo it.
	state, reindexed, err := s.MaintainIndex(ctx, false)
	if err != nil {
		logger.Warn("index maintenance failed after ingestion", zap.Error(err))
	}
	report.Index = state
	report.Reindexed = reindexed
	report.Duration = time.Since(start)

	logger.Info("ingestion completed",
		zap.Int("documents", report.Documents),
		zap.Bool("reindexed", reindexed),
		zap.Duration("duration", report.Duration))

	return report, nil
}

// MaintainIndex rebuilds the approximate index when force is set or when the
// table has grown past the configured factor since the last build.
func (s *Service) MaintainIndex(ctx context.Context, force bool) (*models.IndexState, bool, error) {
	state, err := s.store.IndexState(ctx)
	if err != nil {
		return nil, false, err
	}

	if !force {
		rows, err := s.store.Count(ctx)
		if err != nil {
			return state, false, err
		}
		if !repositories.NeedsReindex(state, rows, s.growth) {
			return state, false, nil
		}
	}

	rebuilt, err := s.store.Reindex(ctx)
	if err != nil {
		return state, false, err
	}
	if rebuilt == nil {
		// Exact-search backends have nothing to rebuild.
		return nil, false, nil
	}
	return rebuilt, true, nil
}

func (s *Service) fail(logger *zap.Logger, err error) error {
	logger.Error("ingestion failed, batch rolled back", zap.Error(err))
	return services.Wrap(services.ErrIngestion, err)
}
