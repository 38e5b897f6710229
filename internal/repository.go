package internal

import (
	"chat-sync/infrastructure/storage"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

// OpenRepository opens the message log selected by STORAGE_BACKEND.
// The returned close function releases the underlying database.
func OpenRepository(config Config, log *slog.Logger) (storage.MessageRepository, func() error, error) {
	switch config.StorageBackend {
	case BackendMemory:
		log.Warn("Using the in-memory message log, messages are lost on restart")
		return storage.NewMemoryMessageRepository(), func() error { return nil }, nil

	case BackendSQLite:
		repository, err := storage.OpenSQLiteMessageRepository(config.SQLiteFilepath, log)
		if err != nil {
			return nil, nil, err
		}
		return repository, repository.Close, nil

	case BackendBadger:
		db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
			WithLoggingLevel(badger.WARNING))
		if err != nil {
			return nil, nil, fmt.Errorf("database opening failed: %w", err)
		}
		repository, err := storage.NewBadgerMessageRepository(db, log)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return repository, db.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", config.StorageBackend)
	}
}
