package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/upb/recipe-rag/internal/vectormath"
	"github.com/upb/recipe-rag/models"
	"github.com/upb/recipe-rag/repositories"
	"go.uber.org/zap"
)

const (
	embeddingIndexName = "idx_documents_embedding"

	// insertChunkSize keeps each multi-row INSERT under the 65535 parameter limit.
	insertChunkSize = 1000

	// Candidates fetched through the ANN index before the exact (distance, id)
	// ordering is applied.
	minCandidates    = 32
	candidateFactor  = 4
	defaultIVFProbes = 10
)

// metricSQL maps a metric to its pgvector distance operator and IVFFlat operator class.
var metricSQL = map[vectormath.Metric]struct {
	operator string
	opclass  string
}{
	vectormath.MetricL2:           {"<->", "vector_l2_ops"},
	vectormath.MetricCosine:       {"<=>", "vector_cosine_ops"},
	vectormath.MetricInnerProduct: {"<#>", "vector_ip_ops"},
}

// DocumentRepositoryOptions tunes queries and index builds.
type DocumentRepositoryOptions struct {
	Metric vectormath.Metric
	Probes int
}

// DocumentRepository implements repositories.DocumentRepository on pgvector.
type DocumentRepository struct {
	db        *DB
	txManager *TransactionManager
	metric    vectormath.Metric
	probes    int
	logger    *zap.Logger
}

// NewDocumentRepository creates a pgvector-backed document repository
func NewDocumentRepository(db *DB, opts DocumentRepositoryOptions, logger *zap.Logger) (*DocumentRepository, error) {
	if opts.Metric == "" {
		opts.Metric = vectormath.MetricL2
	}
	if _, ok := metricSQL[opts.Metric]; !ok {
		return nil, fmt.Errorf("unsupported distance metric %q", opts.Metric)
	}
	if opts.Probes < 1 {
		opts.Probes = defaultIVFProbes
	}

	return &DocumentRepository{
		db:        db,
		txManager: NewTransactionManager(db, logger),
		metric:    opts.Metric,
		probes:    opts.Probes,
		logger:    logger,
	}, nil
}

// Backend returns "postgres".
func (r *DocumentRepository) Backend() string {
	return "postgres"
}

// EnsureSchema creates the extension and tables when missing.
func (r *DocumentRepository) EnsureSchema(ctx context.Context) error {
	return r.db.InitSchema(ctx)
}

// InsertBatch inserts docs in one transaction and returns their IDs in input order.
func (r *DocumentRepository) InsertBatch(ctx context.Context, batchID uuid.UUID, model string, docs []models.NewDocument) ([]int64, error) {
	if err := repositories.ValidateNewDocuments(docs); err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return []int64{}, nil
	}

	ids := make([]int64, 0, len(docs))
	err := r.txManager.InTransaction(ctx, func(ctx context.Context, _ repositories.Transaction) error {
		executor := GetExecutor(ctx, r.db)
		for start := 0; start < len(docs); start += insertChunkSize {
			end := start + insertChunkSize
			if end > len(docs) {
				end = len(docs)
			}
			chunkIDs, err := r.insertChunk(ctx, executor, batchID, model, docs[start:end])
			if err != nil {
				return err
			}
			ids = append(ids, chunkIDs...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Debug("documents inserted",
		zap.String("batch_id", batchID.String()),
		zap.Int("count", len(ids)))
	return ids, nil
}

func (r *DocumentRepository) insertChunk(ctx context.Context, executor Executor, batchID uuid.UUID, model string, docs []models.NewDocument) ([]int64, error) {
	var sb strings.Builder
	sb.WriteString("INSERT INTO documents (content, embedding, embedding_model, batch_id) VALUES ")
	args := make([]interface{}, 0, len(docs)*4)
	for i, d := range docs {
		if i > 0 {
			sb.WriteString(", ")
		}
		n := i * 4
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4)
		args = append(args, d.Content, pgvector.NewVector(d.Embedding), model, batchID)
	}
	sb.WriteString(" RETURNING id")

	rows, err := executor.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to insert documents: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0, len(docs))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan document id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to insert documents: %w", err)
	}
	if len(ids) != len(docs) {
		return nil, fmt.Errorf("failed to insert documents: got %d ids for %d rows", len(ids), len(docs))
	}

	// SERIAL values are drawn in VALUES order, so ascending ids follow input order.
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// QueryNearest returns the k documents closest to vec, ordered by
// (distance, id). The index scan runs in a read-only transaction so the
// probes setting does not leak to other pooled connections.
func (r *DocumentRepository) QueryNearest(ctx context.Context, vec []float32, k int) ([]models.QueryResult, error) {
	if err := repositories.ValidateQuery(vec, k); err != nil {
		return nil, err
	}

	op := metricSQL[r.metric].operator
	query := fmt.Sprintf(`
		SELECT id, content, distance
		FROM (
			SELECT id, content, embedding %[1]s $1 AS distance
			FROM documents
			ORDER BY embedding %[1]s $1
			LIMIT $2
		) candidates
		ORDER BY distance, id
		LIMIT $3
	`, op)

	candidates := k * candidateFactor
	if candidates < minCandidates {
		candidates = minCandidates
	}

	var results []models.QueryResult
	err := r.txManager.InReadOnlyTransaction(ctx, func(ctx context.Context, _ repositories.Transaction) error {
		executor := GetExecutor(ctx, r.db)
		if _, err := executor.ExecContext(ctx, fmt.Sprintf("SET LOCAL ivfflat.probes = %d", r.probes)); err != nil {
			return fmt.Errorf("failed to set ivfflat probes: %w", err)
		}

		rows, err := executor.QueryContext(ctx, query, pgvector.NewVector(vec), candidates, k)
		if err != nil {
			return fmt.Errorf("failed to query nearest documents: %w", err)
		}
		defer rows.Close()

		results = make([]models.QueryResult, 0, k)
		for rows.Next() {
			var res models.QueryResult
			if err := rows.Scan(&res.ID, &res.Content, &res.Distance); err != nil {
				return fmt.Errorf("failed to scan query result: %w", err)
			}
			results = append(results, res)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return results, nil
}

// Count returns the number of stored documents.
func (r *DocumentRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := GetExecutor(ctx, r.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return n, nil
}

// CountStale counts documents embedded by a model other than model.
func (r *DocumentRepository) CountStale(ctx context.Context, model string) (int64, error) {
	var n int64
	err := GetExecutor(ctx, r.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE embedding_model <> $1`, model).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count stale documents: %w", err)
	}
	return n, nil
}

// IndexState returns the last recorded build of the embedding index.
func (r *DocumentRepository) IndexState(ctx context.Context) (*models.IndexState, error) {
	query := `
		SELECT name, lists, row_count, metric, built_at
		FROM vector_index_state
		WHERE name = $1
	`

	state := &models.IndexState{}
	err := GetExecutor(ctx, r.db).QueryRowContext(ctx, query, embeddingIndexName).Scan(
		&state.Name,
		&state.Lists,
		&state.RowCount,
		&state.Metric,
		&state.BuiltAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get index state: %w", err)
	}
	return state, nil
}

// Reindex drops and rebuilds the IVFFlat index sized for the current row
// count, refreshes planner statistics and records the build.
func (r *DocumentRepository) Reindex(ctx context.Context) (*models.IndexState, error) {
	opclass := metricSQL[r.metric].opclass

	var state *models.IndexState
	err := r.txManager.InTransaction(ctx, func(ctx context.Context, _ repositories.Transaction) error {
		executor := GetExecutor(ctx, r.db)

		var rows int64
		if err := executor.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&rows); err != nil {
			return fmt.Errorf("failed to count documents: %w", err)
		}
		lists := repositories.RecommendedLists(rows)

		if _, err := executor.ExecContext(ctx, `DROP INDEX IF EXISTS `+embeddingIndexName); err != nil {
			return fmt.Errorf("failed to drop embedding index: %w", err)
		}
		create := fmt.Sprintf(`CREATE INDEX %s ON documents USING ivfflat (embedding %s) WITH (lists = %d)`,
			embeddingIndexName, opclass, lists)
		if _, err := executor.ExecContext(ctx, create); err != nil {
			return fmt.Errorf("failed to create embedding index: %w", err)
		}
		if _, err := executor.ExecContext(ctx, `ANALYZE documents`); err != nil {
			return fmt.Errorf("failed to analyze documents: %w", err)
		}

		upsert := `
			INSERT INTO vector_index_state (name, lists, row_count, metric, built_at)
			VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP)
			ON CONFLICT (name) DO UPDATE
			SET lists = EXCLUDED.lists, row_count = EXCLUDED.row_count,
				metric = EXCLUDED.metric, built_at = EXCLUDED.built_at
			RETURNING name, lists, row_count, metric, built_at
		`
		state = &models.IndexState{}
		return executor.QueryRowContext(ctx, upsert, embeddingIndexName, lists, rows, string(r.metric)).Scan(
			&state.Name,
			&state.Lists,
			&state.RowCount,
			&state.Metric,
			&state.BuiltAt,
		)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild embedding index: %w", err)
	}

	r.logger.Info("embedding index rebuilt",
		zap.Int("lists", state.Lists),
		zap.Int64("rows", state.RowCount),
		zap.String("metric", state.Metric))
	return state, nil
}
