package storage

import (
	"chat-sync/domain"
	"chat-sync/errors"
	"chat-sync/infrastructure/encoding"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

const messagePrefix = "msg:"

// BadgerMessageRepository persists the log in BadgerDB.
// The key is formatted as "msg:{id_padded}" using 20-digit zero padding,
// so lexicographical key order is id order and a prefix scan is a range read.
type BadgerMessageRepository struct {
	db  *badger.DB
	log *slog.Logger

	mu   sync.Mutex
	tail domain.MessageID
}

// NewBadgerMessageRepository recovers the tail id from the last stored key.
func NewBadgerMessageRepository(db *badger.DB, log *slog.Logger) (*BadgerMessageRepository, error) {
	tail, err := lastMessageID(db)
	if err != nil {
		return nil, fmt.Errorf("%w: recover tail: %w", errors.ErrStorage, err)
	}
	log.Debug("Badger message log opened", "tail", tail)
	return &BadgerMessageRepository{db: db, log: log, tail: tail}, nil
}

func messageKey(id domain.MessageID) []byte {
	return []byte(fmt.Sprintf("%s%020d", messagePrefix, uint64(id)))
}

func parseMessageKey(key []byte) (domain.MessageID, error) {
	v, err := strconv.ParseUint(string(key[len(messagePrefix):]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed key %q: %w", key, err)
	}
	return domain.MessageID(v), nil
}

func lastMessageID(db *badger.DB) (domain.MessageID, error) {
	var last domain.MessageID
	err := db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		prefix := []byte(messagePrefix)
		// Highest possible key, the reverse iterator lands on the last message
		it.Seek(append(prefix, []byte("99999999999999999999")...))
		if !it.ValidForPrefix(prefix) {
			return nil
		}
		id, err := parseMessageKey(it.Item().Key())
		if err != nil {
			return err
		}
		last = id
		return nil
	})
	return last, err
}

func (r *BadgerMessageRepository) Append(ctx context.Context, draft domain.Draft) (domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return domain.Message{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	message := domain.Message{
		ID:        r.tail + 1,
		Sender:    draft.Sender,
		Body:      draft.Body,
		CreatedAt: draft.CreatedAt,
	}
	err := r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(message.ID), encoding.MarshalMessage(message))
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: append message %d: %w", errors.ErrStorage, message.ID, err)
	}
	r.tail = message.ID
	return message, nil
}

func (r *BadgerMessageRepository) Since(ctx context.Context, after domain.MessageID, limit int) ([]domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var messages []domain.Message
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(messagePrefix)
		for it.Seek(messageKey(after + 1)); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(messages) == limit {
				break
			}
			err := it.Item().Value(func(value []byte) error {
				message, err := encoding.UnmarshalMessage(value)
				if err != nil {
					return err
				}
				messages = append(messages, message)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: read messages after %d: %w", errors.ErrStorage, after, err)
	}
	return messages, nil
}

func (r *BadgerMessageRepository) LatestID(_ context.Context) (domain.MessageID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tail, nil
}
