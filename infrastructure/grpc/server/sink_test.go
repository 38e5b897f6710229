package server

import (
	"chat-sync/domain"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestStreamSink_Deliver(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	sink := NewStreamSink(log, 1, 20*time.Millisecond)

	// Given a free slot, the message is handed over
	req.NoError(sink.Deliver(context.Background(), domain.Message{ID: 1}))

	// When nobody reads the stream, the delivery times out
	err := sink.Deliver(context.Background(), domain.Message{ID: 2})
	req.Error(err)
	req.Contains(err.Error(), "within")

	// Then the first message is still there
	req.Equal(domain.MessageID(1), (<-sink.Messages).ID)
}

func TestStreamSink_Deliver_Canceled(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	sink := NewStreamSink(log, 0, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req.ErrorIs(sink.Deliver(ctx, domain.Message{ID: 1}), context.Canceled)
}
