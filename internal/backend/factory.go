package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"moneymanager/internal/amqp"
	"moneymanager/internal/memory"
	"moneymanager/internal/services"
	"moneymanager/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
	// dial opens the broker connection; replaced in tests.
	dial func(url, exchange, queue string) (services.Publisher, error)
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) *DefaultFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
		dial: func(url, exchange, queue string) (services.Publisher, error) {
			return amqp.NewClient(url, exchange, queue)
		},
	}
}

// CreateBackend opens the configured store. A broker that cannot be reached
// is logged and skipped; a store that cannot be opened fails startup.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		repo services.Repository
		err  error
	)
	switch config.Type {
	case SQLiteBackend:
		repo, err = storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case MemoryBackend:
		repo = memory.New()
		f.logger.Info("Initialized memory backend")
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	if err := repo.Ping(ctx); err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("backend not reachable: %w", err)
	}

	result := &BackendResult{Repository: repo, Cleanup: repo.Close}
	if config.AMQPURL == "" {
		return result, nil
	}

	publisher, err := f.dial(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, recording events in-process", "error", err)
		return result, nil
	}
	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)

	result.Publisher = publisher
	result.Cleanup = func() error {
		var errs []error
		if c, ok := publisher.(services.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if err := repo.Close(); err != nil {
			errs = append(errs, err)
		}
		if len(errs) > 0 {
			return fmt.Errorf("cleanup backend: %w", errors.Join(errs...))
		}
		return nil
	}
	return result, nil
}
