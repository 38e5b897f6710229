package services

import (
	"chat-sync/contract"
	"chat-sync/domain"
	"chat-sync/errors"
	"chat-sync/runtime"
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// IChatService is the narrow boundary used by the presentation layer.
type IChatService interface {
	Send(ctx context.Context, cmd domain.SendCommand) (domain.Message, error)
	Subscribe(ctx context.Context, cmd domain.SubscribeCommand, deliver contract.Delivery) (*runtime.SyncSession, error)
	// Unsubscribe waits for the delivery in flight, so it must not be called from
	// the delivery callback. The callback leaves with SyncSession.Disconnect.
	Unsubscribe(handle string) error
	History(ctx context.Context, after domain.MessageID, limit int) ([]domain.Message, error)
	LatestID(ctx context.Context) (domain.MessageID, error)
}

type ChatService struct {
	log           *slog.Logger
	store         contract.IMessageStore
	hub           contract.IHub
	sessionConfig runtime.SessionConfig

	mu       sync.Mutex
	sessions map[string]*runtime.SyncSession
	closed   bool
}

func NewChatService(log *slog.Logger, store contract.IMessageStore, hub contract.IHub,
	sessionConfig runtime.SessionConfig) *ChatService {
	return &ChatService{
		log:           log,
		store:         store,
		hub:           hub,
		sessionConfig: sessionConfig,
		sessions:      make(map[string]*runtime.SyncSession),
	}
}

func (s *ChatService) Send(ctx context.Context, cmd domain.SendCommand) (domain.Message, error) {
	return s.store.Append(ctx, cmd)
}

// Subscribe opens a session for the viewer and starts delivering.
// Without FromID the session starts at the current tail.
// The returned session id is the handle to give back to Unsubscribe.
func (s *ChatService) Subscribe(ctx context.Context, cmd domain.SubscribeCommand,
	deliver contract.Delivery) (*runtime.SyncSession, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	if deliver == nil {
		return nil, fmt.Errorf("%w: delivery callback is required", errors.ErrValidation)
	}

	var fromID domain.MessageID
	if cmd.FromID != nil {
		fromID = *cmd.FromID
	} else {
		latest, err := s.store.LatestID(ctx)
		if err != nil {
			return nil, err
		}
		fromID = latest
	}

	session := runtime.NewSyncSession(s.log, s.store, s.hub, cmd.ViewerID, fromID, deliver, s.sessionConfig)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: chat service is shutting down", errors.ErrSessionClosed)
	}
	s.sessions[session.ID()] = session
	s.mu.Unlock()

	if err := session.Start(ctx); err != nil {
		s.forget(session.ID())
		return nil, err
	}
	go func() {
		<-session.Done()
		s.forget(session.ID())
	}()

	s.log.Info("Viewer subscribed",
		"viewer_id", cmd.ViewerID, "session_id", session.ID(), "from_id", fromID)
	return session, nil
}

// Unsubscribe closes the session behind the handle and waits for its delivery in flight.
// An unknown or already closed handle returns ErrNotFound, callers may ignore it.
func (s *ChatService) Unsubscribe(handle string) error {
	s.mu.Lock()
	session, ok := s.sessions[handle]
	delete(s.sessions, handle)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: session %s", errors.ErrNotFound, handle)
	}
	return session.Close()
}

func (s *ChatService) History(ctx context.Context, after domain.MessageID, limit int) ([]domain.Message, error) {
	return s.store.Page(ctx, after, limit)
}

func (s *ChatService) LatestID(ctx context.Context) (domain.MessageID, error) {
	return s.store.LatestID(ctx)
}

// Sessions returns the number of open sessions.
func (s *ChatService) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Close disconnects every open session and refuses new ones, used on shutdown.
func (s *ChatService) Close() {
	s.mu.Lock()
	s.closed = true
	sessions := make([]*runtime.SyncSession, 0, len(s.sessions))
	for id, session := range s.sessions {
		sessions = append(sessions, session)
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	for _, session := range sessions {
		_ = session.Close()
	}
}

func (s *ChatService) forget(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}
