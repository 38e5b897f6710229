package internal

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewLogger_WritesJSONFile(t *testing.T) {
	req := require.New(t)
	// Given a logger configured with a log file
	path := filepath.Join(t.TempDir(), "chat.log")
	log, closer := NewLogger(Config{LogLevel: "DEBUG", LogFile: path, LogFileMaxSizeMB: 1, LogFileMaxBackups: 1})

	// When a record is logged and the file released
	log.Info("Message appended", "message_id", 42)
	req.NoError(closer.Close())

	// Then the file holds the record as JSON
	raw, err := os.ReadFile(path)
	req.NoError(err)
	var record map[string]any
	req.NoError(json.Unmarshal(raw, &record))
	req.Equal("Message appended", record["msg"])
	req.EqualValues(42, record["message_id"])
}

func TestNewLogger_FileLevel(t *testing.T) {
	req := require.New(t)
	// Given a logger at WARN level
	path := filepath.Join(t.TempDir(), "chat.log")
	log, closer := NewLogger(Config{LogLevel: "warn", LogFile: path, LogFileMaxSizeMB: 1})

	// When an info record is logged
	log.Info("ignored")
	log.Warn("kept")
	req.NoError(closer.Close())

	// Then only the warning reaches the file
	raw, err := os.ReadFile(path)
	req.NoError(err)
	req.NotContains(string(raw), "ignored")
	req.Contains(string(raw), "kept")
}

func TestNewLogger_NoFile(t *testing.T) {
	req := require.New(t)

	log, closer := NewLogger(Config{LogLevel: "INFO"})

	req.NotNil(log)
	req.NoError(closer.Close())
}

func TestParseLevel(t *testing.T) {
	req := require.New(t)

	req.Equal(slog.LevelDebug, parseLevel(" debug "))
	req.Equal(slog.LevelError, parseLevel("ERROR"))
	req.Equal(slog.LevelInfo, parseLevel("verbose"))
}
