package client

import (
	"chat-sync/auth"
	"chat-sync/domain"
	pb "chat-sync/proto/chat"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/samber/lo"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	defaultReconnectDelay = 200 * time.Millisecond
	maxReconnectDelay     = 5 * time.Second
)

// ChatClient is the viewer side of the chat.v1 service.
type ChatClient struct {
	log            *slog.Logger
	client         pb.ChatServiceClient
	viewerID       string
	reconnectDelay time.Duration
}

func NewChatClient(log *slog.Logger, conn grpc.ClientConnInterface, viewerID string,
	reconnectDelay time.Duration) *ChatClient {
	if reconnectDelay <= 0 {
		reconnectDelay = defaultReconnectDelay
	}
	return &ChatClient{
		log:            log,
		client:         pb.NewChatServiceClient(conn),
		viewerID:       viewerID,
		reconnectDelay: reconnectDelay,
	}
}

func (c *ChatClient) ViewerID() string {
	return c.viewerID
}

func (c *ChatClient) Send(ctx context.Context, body string) (domain.Message, error) {
	resp, err := c.client.Send(auth.WithViewerID(ctx, c.viewerID), &pb.SendRequest{
		Sender: c.viewerID,
		Body:   body,
	})
	if err != nil {
		return domain.Message{}, err
	}
	return resp.Message.ToDomain(), nil
}

func (c *ChatClient) History(ctx context.Context, after domain.MessageID, limit int) ([]domain.Message, error) {
	resp, err := c.client.History(auth.WithViewerID(ctx, c.viewerID), &pb.HistoryRequest{
		AfterId: uint64(after),
		Limit:   uint32(max(limit, 0)),
	})
	if err != nil {
		return nil, err
	}
	return lo.Map(resp.Messages, func(item *pb.Message, _ int) domain.Message {
		return item.ToDomain()
	}), nil
}

// cursor is the position Follow resumes from.
type cursor struct {
	id  domain.MessageID
	set bool
}

// Follow streams the log to onMessage until ctx is canceled.
// A nil fromID starts at the tail reported by the server on the first stream.
// After a stream failure it reconnects from the last received id, so nothing
// is missed or repeated. Rejected requests are not retried.
func (c *ChatClient) Follow(ctx context.Context, fromID *domain.MessageID, onMessage func(domain.Message)) error {
	var position cursor
	if fromID != nil {
		position = cursor{id: *fromID, set: true}
	}
	delay := c.reconnectDelay

	for {
		received, err := c.follow(ctx, &position, onMessage)
		if ctx.Err() != nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		if received {
			delay = c.reconnectDelay
		}
		c.log.Warn("Stream interrupted, reconnecting",
			"viewer_id", c.viewerID, "last_id", position.id, "delay", delay, "error", err)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
		delay = min(delay*2, maxReconnectDelay)
	}
}

// follow runs one stream and reports whether anything was received.
func (c *ChatClient) follow(ctx context.Context, position *cursor, onMessage func(domain.Message)) (bool, error) {
	streamCtx, cancel := context.WithCancel(auth.WithViewerID(ctx, c.viewerID))
	defer cancel()

	stream, err := c.client.Subscribe(streamCtx, &pb.SubscribeRequest{
		FromId:   uint64(position.id),
		HasFrom:  position.set,
		ViewerId: c.viewerID,
	})
	if err != nil {
		return false, err
	}
	if !position.set {
		if err := c.resolveStart(stream, position); err != nil {
			return false, err
		}
	}

	received := false
	for {
		event, err := stream.Recv()
		if err == io.EOF {
			return received, fmt.Errorf("stream closed by server")
		}
		if err != nil {
			return received, err
		}
		message := event.Message.ToDomain()
		if position.set && message.ID <= position.id {
			continue
		}
		position.id, position.set = message.ID, true
		received = true
		onMessage(message)
	}
}

// resolveStart pins the cursor to the tail the server started the session at.
// A stream that fails before its header leaves the cursor unset, the error then comes from Recv.
func (c *ChatClient) resolveStart(stream grpc.ClientStream, position *cursor) error {
	md, err := stream.Header()
	if err != nil {
		return err
	}
	values := md.Get(pb.FromIDHeader)
	if len(values) == 0 {
		return nil
	}
	id, err := strconv.ParseUint(values[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s header %q: %w", pb.FromIDHeader, values[0], err)
	}
	position.id, position.set = domain.MessageID(id), true
	c.log.Debug("Stream starts at tail", "viewer_id", c.viewerID, "from_id", position.id)
	return nil
}

func retryable(err error) bool {
	switch status.Code(err) {
	case codes.InvalidArgument, codes.Unauthenticated, codes.PermissionDenied, codes.Unimplemented:
		return false
	default:
		return true
	}
}
