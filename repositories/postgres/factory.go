package postgres

import (
	"github.com/upb/recipe-rag/config"
	"github.com/upb/recipe-rag/repositories"
	"go.uber.org/zap"
)

// RepositoryFactory creates and manages all repositories
type RepositoryFactory struct {
	db     *DB
	store  config.StoreConfig
	logger *zap.Logger
}

// NewRepositoryFactory opens the pool described by cfg.Database.
func NewRepositoryFactory(cfg *config.Config, logger *zap.Logger) (*RepositoryFactory, error) {
	db, err := NewDB(cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	return &RepositoryFactory{db: db, store: cfg.Store, logger: logger}, nil
}

// NewDocumentRepository creates the vector store over the factory's pool.
func (f *RepositoryFactory) NewDocumentRepository() (repositories.DocumentRepository, error) {
	return NewDocumentRepository(f.db, DocumentRepositoryOptions{
		Metric: f.store.Metric,
		Probes: f.store.Probes,
	}, f.logger)
}

// GetDB returns the database connection
func (f *RepositoryFactory) GetDB() *DB {
	return f.db
}

// Close closes the database connection
func (f *RepositoryFactory) Close() error {
	return f.db.Close()
}
