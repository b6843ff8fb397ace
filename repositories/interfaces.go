package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/upb/recipe-rag/models"
)

var (
	// ErrInvalidK is returned when a nearest-neighbor query asks for k <= 0.
	ErrInvalidK = errors.New("k must be greater than zero")

	// ErrDimensionMismatch is returned when a vector does not have
	// models.EmbeddingDimension components.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrEmptyContent is returned when a document has no text.
	ErrEmptyContent = errors.New("document content is empty")
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// DocumentRepository is the vector store: it persists documents and answers
// nearest-neighbor queries.
type DocumentRepository interface {
	// EnsureSchema creates tables (and extensions) when missing.
	EnsureSchema(ctx context.Context) error

	// InsertBatch stores all documents atomically and returns their IDs in
	// input order. On any failure nothing is stored.
	InsertBatch(ctx context.Context, batchID uuid.UUID, model string, docs []models.NewDocument) ([]int64, error)

	// QueryNearest returns up to k documents ordered by ascending distance,
	// ties broken by ascending ID. k <= 0 yields ErrInvalidK.
	QueryNearest(ctx context.Context, vec []float32, k int) ([]models.QueryResult, error)

	// Count returns the number of stored documents.
	Count(ctx context.Context) (int64, error)

	// CountStale returns how many documents were embedded by a model other
	// than model.
	CountStale(ctx context.Context, model string) (int64, error)

	// IndexState returns the last recorded index build, or nil when the
	// index has never been built or the backend has no approximate index.
	IndexState(ctx context.Context) (*models.IndexState, error)

	// Reindex rebuilds the approximate index for the current row count.
	Reindex(ctx context.Context) (*models.IndexState, error)

	// Backend names the implementation ("postgres", "sqlite").
	Backend() string
}

// ValidateNewDocuments checks the invariants shared by every backend.
func ValidateNewDocuments(docs []models.NewDocument) error {
	for i, d := range docs {
		if d.Content == "" {
			return fmt.Errorf("document %d: %w", i, ErrEmptyContent)
		}
		if len(d.Embedding) != models.EmbeddingDimension {
			return fmt.Errorf("document %d: %w: got %d, want %d", i, ErrDimensionMismatch, len(d.Embedding), models.EmbeddingDimension)
		}
	}
	return nil
}

// ValidateQuery checks a nearest-neighbor request.
func ValidateQuery(vec []float32, k int) error {
	if k <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidK, k)
	}
	if len(vec) != models.EmbeddingDimension {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), models.EmbeddingDimension)
	}
	return nil
}
