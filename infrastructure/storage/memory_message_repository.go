package storage

import (
	"chat-sync/domain"
	"context"
	"sort"
	"sync"
)

// MemoryMessageRepository keeps the log in a slice. Used by tests and the
// "memory" storage backend.
type MemoryMessageRepository struct {
	mu       sync.RWMutex
	messages []domain.Message
}

func NewMemoryMessageRepository() *MemoryMessageRepository {
	return &MemoryMessageRepository{}
}

func (r *MemoryMessageRepository) Append(ctx context.Context, draft domain.Draft) (domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return domain.Message{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	message := domain.Message{
		ID:        domain.MessageID(len(r.messages) + 1),
		Sender:    draft.Sender,
		Body:      draft.Body,
		CreatedAt: draft.CreatedAt,
	}
	r.messages = append(r.messages, message)
	return message, nil
}

func (r *MemoryMessageRepository) Since(ctx context.Context, after domain.MessageID, limit int) ([]domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	start := sort.Search(len(r.messages), func(i int) bool {
		return r.messages[i].ID > after
	})
	end := len(r.messages)
	if limit > 0 && start+limit < end {
		end = start + limit
	}
	if start >= end {
		return nil, nil
	}
	res := make([]domain.Message, end-start)
	copy(res, r.messages[start:end])
	return res, nil
}

func (r *MemoryMessageRepository) LatestID(_ context.Context) (domain.MessageID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return domain.MessageID(len(r.messages)), nil
}
