// Package sqlite is the embedded vector store: documents live in a local
// SQLite file and nearest-neighbor queries are answered by exact search.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/upb/recipe-rag/internal/vectormath"
	"github.com/upb/recipe-rag/models"
	"github.com/upb/recipe-rag/repositories"
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // SQLite driver
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Schema creates the documents table. AUTOINCREMENT keeps ids from being
// reused after the highest row is removed by hand.
const Schema = `
	CREATE TABLE IF NOT EXISTS documents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		content TEXT NOT NULL CHECK (content <> ''),
		embedding BLOB NOT NULL,
		embedding_model TEXT NOT NULL,
		batch_id TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_documents_embedding_model ON documents(embedding_model);
`

// DocumentRepository implements repositories.DocumentRepository on SQLite.
type DocumentRepository struct {
	db     *sql.DB
	metric vectormath.Metric
	logger *zap.Logger
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(path string, metric vectormath.Metric, logger *zap.Logger) (*DocumentRepository, error) {
	if metric == "" {
		metric = vectormath.MetricL2
	}
	if _, err := vectormath.ParseMetric(string(metric)); err != nil {
		return nil, err
	}

	dsn := MemoryPath + "?_pragma=foreign_keys(ON)"
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: SQLite has a single writer, and every pooled
	// connection to :memory: would otherwise see its own empty database.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	repo := &DocumentRepository{db: db, metric: metric, logger: logger}
	if err := repo.EnsureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info("sqlite store opened", zap.String("path", path), zap.String("metric", string(metric)))
	return repo, nil
}

// Close closes the database.
func (r *DocumentRepository) Close() error {
	return r.db.Close()
}

// HealthCheck pings the database.
func (r *DocumentRepository) HealthCheck(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// Backend returns "sqlite".
func (r *DocumentRepository) Backend() string {
	return "sqlite"
}

// EnsureSchema creates the tables when missing.
func (r *DocumentRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// InsertBatch stores docs in one transaction and returns their ids in input order.
func (r *DocumentRepository) InsertBatch(ctx context.Context, batchID uuid.UUID, model string, docs []models.NewDocument) ([]int64, error) {
	if err := repositories.ValidateNewDocuments(docs); err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return []int64{}, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO documents (content, embedding, embedding_model, batch_id, created_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	ids := make([]int64, 0, len(docs))
	for i, d := range docs {
		res, err := stmt.ExecContext(ctx, d.Content, vectormath.EncodeFloat32(d.Embedding), model, batchID.String(), now)
		if err != nil {
			return nil, fmt.Errorf("failed to insert document %d: %w", i, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("failed to read document id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.logger.Debug("documents inserted",
		zap.String("batch_id", batchID.String()),
		zap.Int("count", len(ids)))
	return ids, nil
}

// QueryNearest scans every embedding and returns the k closest, ordered by
// (distance, id).
func (r *DocumentRepository) QueryNearest(ctx context.Context, vec []float32, k int) ([]models.QueryResult, error) {
	if err := repositories.ValidateQuery(vec, k); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `SELECT id, content, embedding FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var results []models.QueryResult
	for rows.Next() {
		var (
			res  models.QueryResult
			blob []byte
		)
		if err := rows.Scan(&res.ID, &res.Content, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		emb, err := vectormath.DecodeFloat32(blob)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", res.ID, err)
		}
		if res.Distance, err = vectormath.Distance(r.metric, vec, emb); err != nil {
			return nil, fmt.Errorf("document %d: %w", res.ID, err)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].ID < results[j].ID
	})
	if len(results) > k {
		results = results[:k]
	}
	if results == nil {
		results = []models.QueryResult{}
	}
	return results, nil
}

// Count returns the number of stored documents.
func (r *DocumentRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return n, nil
}

// CountStale counts documents embedded by a model other than model.
func (r *DocumentRepository) CountStale(ctx context.Context, model string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE embedding_model <> ?`, model).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count stale documents: %w", err)
	}
	return n, nil
}

// IndexState returns nil: search is exact and there is no index to track.
func (r *DocumentRepository) IndexState(ctx context.Context) (*models.IndexState, error) {
	return nil, nil
}

// Reindex is a no-op for exact search.
func (r *DocumentRepository) Reindex(ctx context.Context) (*models.IndexState, error) {
	r.logger.Debug("reindex skipped, sqlite store uses exact search")
	return nil, nil
}
