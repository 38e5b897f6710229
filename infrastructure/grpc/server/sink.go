package server

import (
	"chat-sync/domain"
	"context"
	"fmt"
	"log/slog"
	"time"
)

// StreamSink hands the messages of a session over to the gRPC handler goroutine,
// the only one allowed to write on the stream.
type StreamSink struct {
	Messages        chan domain.Message
	log             *slog.Logger
	deliveryTimeout time.Duration
}

func NewStreamSink(log *slog.Logger, bufferSize int, deliveryTimeout time.Duration) *StreamSink {
	return &StreamSink{
		Messages:        make(chan domain.Message, bufferSize),
		log:             log,
		deliveryTimeout: deliveryTimeout,
	}
}

// Deliver is the session callback.
// A stream that does not take the message within the delivery timeout
// counts as a failed delivery.
func (s *StreamSink) Deliver(ctx context.Context, message domain.Message) error {
	var timeout <-chan time.Time
	if s.deliveryTimeout > 0 {
		timer := time.NewTimer(s.deliveryTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case s.Messages <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timeout:
		s.log.Debug("Stream sink is full", "message_id", message.ID, "timeout", s.deliveryTimeout)
		return fmt.Errorf("stream did not accept message %d within %s", message.ID, s.deliveryTimeout)
	}
}
