package services

import (
	"chat-sync/domain"
	"chat-sync/errors"
	"chat-sync/infrastructure/storage"
	"chat-sync/runtime"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func newChatService() *ChatService {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	hub := runtime.NewSubscriptionHub(log)
	store := runtime.NewMessageStore(log, storage.NewMemoryMessageRepository(), hub, 0)
	return NewChatService(log, store, hub, runtime.SessionConfig{})
}

type screen struct {
	mu       sync.Mutex
	messages []domain.Message
}

func (s *screen) onMessage(_ context.Context, message domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, message)
	return nil
}

func (s *screen) bodies() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo.Map(s.messages, func(m domain.Message, _ int) string { return m.Body })
}

func TestChatService_SendThenSubscribeFromStart(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	service := newChatService()

	// Given a conversation
	first, err := service.Send(ctx, domain.SendCommand{Sender: "alice", Body: "hi"})
	req.NoError(err)
	req.Equal(domain.MessageID(1), first.ID)
	_, err = service.Send(ctx, domain.SendCommand{Sender: "bob", Body: "hey"})
	req.NoError(err)

	// When carol opens the screen from the beginning
	s := &screen{}
	session, err := service.Subscribe(ctx, domain.SubscribeCommand{
		ViewerID: "carol",
		FromID:   lo.ToPtr(domain.MessageID(0)),
	}, s.onMessage)
	req.NoError(err)
	defer func() { _ = service.Unsubscribe(session.ID()) }()

	_, err = service.Send(ctx, domain.SendCommand{Sender: "alice", Body: "yo"})
	req.NoError(err)

	// Then she sees the whole conversation in order
	req.Eventually(func() bool { return len(s.bodies()) == 3 }, 2*time.Second, 5*time.Millisecond)
	req.Equal([]string{"hi", "hey", "yo"}, s.bodies())
}

func TestChatService_SubscribeWithoutFromID_StartsAtTail(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	service := newChatService()
	_, err := service.Send(ctx, domain.SendCommand{Sender: "alice", Body: "before"})
	req.NoError(err)

	s := &screen{}
	session, err := service.Subscribe(ctx, domain.SubscribeCommand{ViewerID: "bob"}, s.onMessage)
	req.NoError(err)
	defer func() { _ = service.Unsubscribe(session.ID()) }()
	req.Equal(domain.MessageID(1), session.FromID())

	_, err = service.Send(ctx, domain.SendCommand{Sender: "alice", Body: "after"})
	req.NoError(err)

	req.Eventually(func() bool { return len(s.bodies()) == 1 }, 2*time.Second, 5*time.Millisecond)
	req.Equal([]string{"after"}, s.bodies())
}

func TestChatService_Send_Rejected(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	service := newChatService()

	_, err := service.Send(ctx, domain.SendCommand{Sender: "alice", Body: " \n\t "})
	req.ErrorIs(err, errors.ErrValidation)

	latest, err := service.LatestID(ctx)
	req.NoError(err)
	req.Equal(domain.MessageID(0), latest)
}

func TestChatService_Subscribe_Rejected(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	service := newChatService()

	_, err := service.Subscribe(ctx, domain.SubscribeCommand{ViewerID: ""}, (&screen{}).onMessage)
	req.ErrorIs(err, errors.ErrValidation)

	_, err = service.Subscribe(ctx, domain.SubscribeCommand{ViewerID: "bob"}, nil)
	req.ErrorIs(err, errors.ErrValidation)
	req.Equal(0, service.Sessions())
}

func TestChatService_Unsubscribe(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	service := newChatService()

	s := &screen{}
	session, err := service.Subscribe(ctx, domain.SubscribeCommand{ViewerID: "bob"}, s.onMessage)
	req.NoError(err)
	req.Equal(1, service.Sessions())

	// When the viewer leaves the screen
	req.NoError(service.Unsubscribe(session.ID()))

	// Then the session is gone and nothing more is delivered
	req.Equal(domain.Disconnected, session.State())
	req.Equal(0, service.Sessions())
	_, err = service.Send(ctx, domain.SendCommand{Sender: "alice", Body: "anyone?"})
	req.NoError(err)
	time.Sleep(20 * time.Millisecond)
	req.Empty(s.bodies())

	// And a second unsubscribe is a harmless not found
	req.ErrorIs(service.Unsubscribe(session.ID()), errors.ErrNotFound)
	req.ErrorIs(service.Unsubscribe("unknown"), errors.ErrNotFound)
}

func TestChatService_Close_DisconnectsEverySession(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	service := newChatService()

	var sessions []*runtime.SyncSession
	for _, viewer := range []string{"alice", "bob", "carol"} {
		session, err := service.Subscribe(ctx, domain.SubscribeCommand{ViewerID: viewer}, (&screen{}).onMessage)
		req.NoError(err)
		sessions = append(sessions, session)
	}

	service.Close()

	req.Equal(0, service.Sessions())
	for _, session := range sessions {
		req.Equal(domain.Disconnected, session.State())
	}
}

func TestChatService_Close_RefusesNewSessions(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	service := newChatService()

	// Given a service shutting down
	service.Close()

	// When a viewer subscribes afterwards
	session, err := service.Subscribe(ctx, domain.SubscribeCommand{ViewerID: "dave"}, (&screen{}).onMessage)

	// Then no session is opened
	req.ErrorIs(err, errors.ErrSessionClosed)
	req.Nil(session)
	req.Equal(0, service.Sessions())
}

func TestChatService_DisconnectedSessionIsForgotten(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	service := newChatService()

	session, err := service.Subscribe(ctx, domain.SubscribeCommand{ViewerID: "bob"},
		func(context.Context, domain.Message) error { return errors.ErrTransport })
	req.NoError(err)

	for i := 0; i < 3; i++ {
		_, err = service.Send(ctx, domain.SendCommand{Sender: "alice", Body: "ping"})
		req.NoError(err)
	}

	<-session.Done()
	req.Eventually(func() bool { return service.Sessions() == 0 }, 2*time.Second, 5*time.Millisecond)
	req.ErrorIs(session.Err(), errors.ErrTransport)
}
