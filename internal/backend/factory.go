// Package backend builds the document store and event publisher selected by
// configuration.
package backend

import (
	"context"
	"fmt"

	"balansim/internal/amqp"
	"balansim/internal/log"
	"balansim/internal/services"
	"balansim/internal/storage"
	"balansim/internal/storage/file"
	"balansim/internal/storage/memory"
)

// Result is handed to the ledger service, which closes both when it is closed.
// Publisher is nil when events are disabled or the broker is unreachable.
type Result struct {
	Store     storage.DocumentStore
	Publisher services.Publisher
}

type Factory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) *Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &Factory{logger: logger.WithComponent(log.ComponentBackend)}
}

func (f *Factory) Create(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := f.createStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Result{Store: store, Publisher: f.createPublisher(ctx, cfg)}, nil
}

func (f *Factory) createStore(ctx context.Context, cfg Config) (storage.DocumentStore, error) {
	switch cfg.Type {
	case SQLite:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
		return repo, nil

	case File:
		store, err := file.New(cfg.DocumentPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize file store: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized file backend", "document_path", cfg.DocumentPath)
		return store, nil

	default:
		var store *memory.Store
		if cfg.MemorySeedPath != "" {
			store = memory.NewFromFile(cfg.MemorySeedPath)
		} else {
			store = memory.New()
		}
		f.logger.InfoContext(ctx, "Initialized memory backend", "seed", cfg.MemorySeedPath)
		return store, nil
	}
}

// createPublisher connects to the broker. A failure is logged and leaves
// events disabled; the ledger works without them.
func (f *Factory) createPublisher(ctx context.Context, cfg Config) services.Publisher {
	if cfg.AMQPURL == "" {
		return nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", log.FieldError, err.Error())
		return nil
	}
	f.logger.InfoContext(ctx, "Initialized AMQP client",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue)
	return client
}
