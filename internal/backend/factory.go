package backend

import (
	"context"
	"fmt"
	"log/slog"

	"campuswal/internal/local"
	"campuswal/internal/storage"
)

var (
	_ Backend = (*storage.SQLiteRepository)(nil)
	_ Backend = (*local.Store)(nil)
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend opens the configured store. For AutoBackend a failure to
// open SQLite is logged and the local store is used instead.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case LocalBackend:
		return f.createLocalBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend()
	case AutoBackend:
		res, err := f.createSQLiteBackend(config)
		if err == nil {
			return res, nil
		}
		f.logger.WarnContext(ctx, "Native store unavailable, falling back to local store",
			"error", err,
			"data_directory", config.LocalDataDir)
		return f.createLocalBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{Backend: repo, Cleanup: repo.Close}, nil
}

func (f *DefaultFactory) createLocalBackend(config Config) (*BackendResult, error) {
	store, err := local.NewFile(config.LocalDataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize local store: %w", err)
	}

	f.logger.Info("Initialized local backend", "data_directory", config.LocalDataDir)

	return &BackendResult{Backend: store, Cleanup: store.Close}, nil
}

func (f *DefaultFactory) createMemoryBackend() (*BackendResult, error) {
	store := local.NewMemory()

	f.logger.Info("Initialized memory backend")

	return &BackendResult{Backend: store, Cleanup: store.Close}, nil
}

// StaticFactory always hands out the same backend. Tests use it to inject
// a prepared store into a Gateway.
type StaticFactory struct {
	Backend Backend
	Err     error
}

func (f StaticFactory) CreateBackend(context.Context, Config) (*BackendResult, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return &BackendResult{Backend: f.Backend, Cleanup: f.Backend.Close}, nil
}
