package server

import (
	"chat-sync/auth"
	"chat-sync/domain"
	"chat-sync/errors"
	pb "chat-sync/proto/chat"
	"chat-sync/services"
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

const defaultHistoryLimit = 100

type ChatServer struct {
	pb.UnimplementedChatServiceServer
	chatService          services.IChatService
	connectionBufferSize int
	deliveryTimeout      time.Duration
	maxHistoryLimit      int
	log                  *slog.Logger
}

func NewChatServer(log *slog.Logger, chatService services.IChatService,
	connectionBufferSize int, deliveryTimeout time.Duration, maxHistoryLimit int) *ChatServer {
	if maxHistoryLimit <= 0 {
		maxHistoryLimit = defaultHistoryLimit
	}
	return &ChatServer{
		chatService:          chatService,
		connectionBufferSize: connectionBufferSize,
		deliveryTimeout:      deliveryTimeout,
		maxHistoryLimit:      maxHistoryLimit,
		log:                  log,
	}
}

// NewGrpcServer builds a grpc server speaking the chat.v1 codec with the identity interceptors.
func NewGrpcServer(chatServer *ChatServer, requireIdentity bool, opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{
		grpc.ForceServerCodec(pb.Codec{}),
		grpc.ChainUnaryInterceptor(auth.IdentityInterceptor(requireIdentity)),
		grpc.ChainStreamInterceptor(auth.IdentityStreamInterceptor(requireIdentity)),
	}, opts...)
	s := grpc.NewServer(opts...)
	pb.RegisterChatServiceServer(s, chatServer)
	return s
}

// Send appends a message on behalf of the caller.
// The identity from the metadata wins over the sender of the request.
func (s *ChatServer) Send(ctx context.Context, req *pb.SendRequest) (*pb.SendResponse, error) {
	sender, ok := auth.ViewerIDFromContext(ctx)
	if !ok {
		sender = req.Sender
	}
	message, err := s.chatService.Send(ctx, domain.SendCommand{Sender: sender, Body: req.Body})
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return &pb.SendResponse{Message: pb.FromDomain(message)}, nil
}

func (s *ChatServer) History(ctx context.Context, req *pb.HistoryRequest) (*pb.HistoryResponse, error) {
	limit := int(req.Limit)
	if limit <= 0 || limit > s.maxHistoryLimit {
		limit = s.maxHistoryLimit
	}
	messages, err := s.chatService.History(ctx, domain.MessageID(req.AfterId), limit)
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return &pb.HistoryResponse{Messages: lo.Map(messages, func(item domain.Message, _ int) *pb.Message {
		return pb.FromDomain(item)
	})}, nil
}

// Subscribe opens a session for the caller and streams it until the client
// goes away or the session is disconnected.
// The session delivers through a StreamSink, so only this goroutine writes on the stream.
// When it returns, the session is closed and nothing is delivered anymore.
func (s *ChatServer) Subscribe(req *pb.SubscribeRequest, stream grpc.ServerStreamingServer[pb.MessageEvent]) error {
	ctx := stream.Context()
	viewerID, ok := auth.ViewerIDFromContext(ctx)
	if !ok {
		viewerID = lo.Ternary(req.ViewerId != "", req.ViewerId, "anonymous-"+uuid.NewString())
	}
	cmd := domain.SubscribeCommand{ViewerID: viewerID}
	if req.HasFrom {
		cmd.FromID = lo.ToPtr(domain.MessageID(req.FromId))
	}

	sink := NewStreamSink(s.log, s.connectionBufferSize, s.deliveryTimeout)
	session, err := s.chatService.Subscribe(ctx, cmd, sink.Deliver)
	if err != nil {
		return errors.MapToGRPCError(err)
	}
	defer func() {
		_ = s.chatService.Unsubscribe(session.ID())
	}()
	// the viewer resumes from here if the stream breaks before the first message
	if err := stream.SendHeader(metadata.Pairs(pb.FromIDHeader,
		strconv.FormatUint(uint64(session.FromID()), 10))); err != nil {
		s.log.Error("failed to send stream header",
			"viewer_id", viewerID, "session_id", session.ID(), "error", err)
		return err
	}

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Viewer left", "viewer_id", viewerID, "session_id", session.ID())
			return nil
		case <-session.Done():
			// the session is over, flush what it already handed over
			for {
				select {
				case message := <-sink.Messages:
					if err := s.push(stream, viewerID, session.ID(), message); err != nil {
						return err
					}
				default:
					return errors.MapToGRPCError(session.Err())
				}
			}
		case message := <-sink.Messages:
			if err := s.push(stream, viewerID, session.ID(), message); err != nil {
				return err
			}
		}
	}
}

func (s *ChatServer) push(stream grpc.ServerStreamingServer[pb.MessageEvent],
	viewerID, sessionID string, message domain.Message) error {
	if err := stream.Send(&pb.MessageEvent{Message: pb.FromDomain(message)}); err != nil {
		s.log.Error("failed to push message to stream",
			"viewer_id", viewerID,
			"session_id", sessionID,
			"message_id", message.ID,
			"error", err)
		return err
	}
	return nil
}
