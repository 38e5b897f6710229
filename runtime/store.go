package runtime

import (
	"chat-sync/contract"
	"chat-sync/domain"
	"chat-sync/errors"
	"chat-sync/infrastructure/storage"
	"chat-sync/observability"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// MessageStore is the single owner of the message log.
// Appends are serialized and published to the hub while the write lock is held,
// so the hub observes messages in id order. Reads share the lock and never see
// a half-committed append.
type MessageStore struct {
	mu               sync.RWMutex
	log              *slog.Logger
	repository       storage.MessageRepository
	publisher        contract.Publisher
	maxContentLength int
	now              func() time.Time
}

func NewMessageStore(log *slog.Logger, repository storage.MessageRepository,
	publisher contract.Publisher, maxContentLength int) *MessageStore {
	return &MessageStore{
		log:              log,
		repository:       repository,
		publisher:        publisher,
		maxContentLength: maxContentLength,
		now:              time.Now,
	}
}

// Append validates the command, commits the message and notifies the hub.
// A rejected command leaves the log untouched.
func (s *MessageStore) Append(ctx context.Context, cmd domain.SendCommand) (domain.Message, error) {
	draft, err := cmd.ToDraft(s.maxContentLength, s.now())
	if err != nil {
		observability.AppendsRejected.WithLabelValues("validation").Inc()
		s.log.Debug("Message rejected", "sender", cmd.Sender, "error", err)
		return domain.Message{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	message, err := s.repository.Append(ctx, draft)
	if err != nil {
		observability.AppendsRejected.WithLabelValues("storage").Inc()
		s.log.Error("Failed to append message", "sender", draft.Sender, "error", err)
		if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
			return domain.Message{}, err
		}
		if !stderrors.Is(err, errors.ErrStorage) {
			err = fmt.Errorf("%w: %w", errors.ErrStorage, err)
		}
		return domain.Message{}, err
	}

	observability.MessagesAppended.Inc()
	observability.LogTailID.Set(float64(message.ID))
	s.log.Debug("Message appended", "message_id", message.ID, "sender", message.Sender)
	if s.publisher != nil {
		s.publisher.Publish(message)
	}
	return message, nil
}

// Since returns every message after the given id, in id order.
func (s *MessageStore) Since(ctx context.Context, after domain.MessageID) ([]domain.Message, error) {
	return s.Page(ctx, after, 0)
}

// Page returns at most limit messages after the given id, limit <= 0 meaning all of them.
func (s *MessageStore) Page(ctx context.Context, after domain.MessageID, limit int) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.repository.Since(ctx, after, limit)
}

func (s *MessageStore) LatestID(ctx context.Context) (domain.MessageID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.repository.LatestID(ctx)
}
