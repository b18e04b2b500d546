package backend

import (
	"context"
	"fmt"

	applog "parishledger/internal/log"
	"parishledger/internal/store"
	"parishledger/internal/store/memory"
	"parishledger/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	if err := f.seed(ctx, repo, config.SeedSnapshotFile); err != nil {
		repo.Close()
		return nil, err
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Store:   repo,
		Cleanup: repo.Close,
	}, nil
}

// seed copies the snapshot at path into st when st holds no members and no
// transactions yet.
func (f *DefaultFactory) seed(ctx context.Context, st store.Store, path string) error {
	if path == "" {
		return nil
	}
	cur, err := st.Load(ctx)
	if err != nil {
		return fmt.Errorf("load state before seeding: %w", err)
	}
	if len(cur.Members) > 0 || len(cur.Transactions) > 0 {
		f.logger.Debug("Store already holds data, skipping seed", "seed_file", path)
		return nil
	}
	seeded, err := memory.NewFromFile(path)
	if err != nil {
		return err
	}
	initial, err := seeded.Load(ctx)
	if err != nil {
		return err
	}
	if err := st.Save(ctx, initial); err != nil {
		return fmt.Errorf("save seed snapshot: %w", err)
	}
	f.logger.Info("Seeded store from snapshot",
		"seed_file", path,
		applog.FieldCount, len(initial.Transactions))
	return nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	st, err := memory.NewFromFile(config.SeedSnapshotFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize memory backend: %w", err)
	}

	f.logger.Info("Initialized memory backend", "seed_file", config.SeedSnapshotFile)

	return &BackendResult{
		Store:   st,
		Cleanup: st.Close,
	}, nil
}
