package main

import (
	"bufio"
	"chat-sync/domain"
	"chat-sync/infrastructure/grpc/client"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Exit codes for the viewer application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the viewer-side environment variables.
type Config struct {
	ServerAddress  string        `env:"CHAT_SERVER_ADDR,default=localhost:8080"`
	ViewerID       string        `env:"VIEWER_ID,required=true"`
	FromStart      bool          `env:"FROM_START,default=true"`
	ReconnectDelay time.Duration `env:"RECONNECT_DELAY,default=200ms"`
	LogLevel       string        `env:"LOG_LEVEL,default=WARN"`
}

var (
	ownStyle   = color.New(color.FgGreen, color.OpBold)
	otherStyle = color.New(color.FgCyan)
	timeStyle  = color.New(color.FgGray)
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Viewer error: %v\n", err)
	}
	os.Exit(code)
}

// run follows the chat log and sends every non-blank line typed on stdin.
func run() (int, error) {
	_ = godotenv.Load()
	config, err := loadConfig()
	if err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := grpc.NewClient(config.ServerAddress, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to server at %s: %w", config.ServerAddress, err)
	}
	defer func() {
		log.Info("Closing connection...")
		_ = conn.Close()
	}()

	chat := client.NewChatClient(log, conn, config.ViewerID, config.ReconnectDelay)

	var fromID *domain.MessageID
	if config.FromStart {
		fromID = new(domain.MessageID)
	}
	followErr := make(chan error, 1)
	go func() {
		followErr <- chat.Follow(ctx, fromID, func(message domain.Message) {
			fmt.Println(formatMessage(message, config.ViewerID))
		})
	}()

	fmt.Printf(">>> Connected to %s as %s (Ctrl+C to quit)\n", config.ServerAddress, config.ViewerID)
	go sendLines(ctx, log, chat, os.Stdin)

	select {
	case <-ctx.Done():
		return exitOK, nil
	case err := <-followErr:
		if err != nil {
			return exitRuntime, fmt.Errorf("stream error: %w", err)
		}
		return exitOK, nil
	}
}

// loadConfig reads the environment. VIEWER_ID is trimmed the way the server
// trims senders, so own messages are recognised.
func loadConfig() (Config, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, err
	}
	config.ViewerID = strings.TrimSpace(config.ViewerID)
	if config.ViewerID == "" {
		return Config{}, fmt.Errorf("VIEWER_ID is blank")
	}
	return config, nil
}

type sender interface {
	Send(ctx context.Context, body string) (domain.Message, error)
}

// sendLines sends every non-blank input line, blank lines are ignored.
func sendLines(ctx context.Context, log *slog.Logger, chat sender, input io.Reader) {
	scanner := bufio.NewScanner(input)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if _, err := chat.Send(ctx, line); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn("Message not sent", "error", err)
			fmt.Fprintf(os.Stderr, "message not sent: %v\n", err)
		}
	}
}

// formatMessage renders a line of the chat screen, own messages stand out.
func formatMessage(message domain.Message, viewerID string) string {
	at := timeStyle.Sprint(message.CreatedAt.Local().Format(time.TimeOnly))
	if message.Sender == viewerID {
		return fmt.Sprintf("%s %s %s", at, ownStyle.Sprint("me:"), ownStyle.Sprint(message.Body))
	}
	return fmt.Sprintf("%s %s %s", at, otherStyle.Sprint(message.Sender+":"), message.Body)
}
