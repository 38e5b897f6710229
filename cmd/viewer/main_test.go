package main

import (
	"chat-sync/domain"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	bodies []string
}

func (s *recordingSender) Send(_ context.Context, body string) (domain.Message, error) {
	s.bodies = append(s.bodies, body)
	return domain.Message{ID: domain.MessageID(len(s.bodies)), Body: body}, nil
}

func TestSendLines_SkipsBlankLines(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	chat := &recordingSender{}

	sendLines(context.Background(), log, chat, strings.NewReader("hi\n\n   \nhow are you?\n\t\n"))

	req.Equal([]string{"hi", "how are you?"}, chat.bodies)
}

func TestFormatMessage_OwnVersusOthers(t *testing.T) {
	req := require.New(t)
	enabled := color.Disable()
	defer func() { color.Enable = enabled }()
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	own := formatMessage(domain.Message{ID: 1, Sender: "alice", Body: "hi", CreatedAt: at}, "alice")
	other := formatMessage(domain.Message{ID: 2, Sender: "bob", Body: "hey", CreatedAt: at}, "alice")

	req.True(strings.HasSuffix(own, "me: hi"))
	req.True(strings.HasSuffix(other, "bob: hey"))
}

func TestLoadConfig_TrimsViewerID(t *testing.T) {
	req := require.New(t)
	t.Setenv("VIEWER_ID", "  alice \t")

	config, err := loadConfig()

	req.NoError(err)
	req.Equal("alice", config.ViewerID)
	enabled := color.Disable()
	defer func() { color.Enable = enabled }()
	own := formatMessage(domain.Message{ID: 1, Sender: "alice", Body: "hi"}, config.ViewerID)
	req.True(strings.HasSuffix(own, "me: hi"))
}

func TestLoadConfig_BlankViewerID(t *testing.T) {
	req := require.New(t)
	t.Setenv("VIEWER_ID", "   ")

	_, err := loadConfig()

	req.Error(err)
}
