package internal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	req := require.New(t)
	t.Setenv("STORAGE_BACKEND", "memory")

	config, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))

	req.NoError(err)
	req.Equal(BackendMemory, config.StorageBackend)
	req.Equal(3, config.MaxDeliveryFailures)
	req.Equal(200*time.Millisecond, config.RestartInterval)
	req.Equal("localhost:8080", config.GrpcAddress())
	req.Equal("localhost:9090", config.HTTPAddress())
}

func TestLoadConfig_EnvFile(t *testing.T) {
	req := require.New(t)
	path := filepath.Join(t.TempDir(), ".env")
	req.NoError(os.WriteFile(path, []byte("STORAGE_BACKEND=sqlite\nSQLITE_FILEPATH=/tmp/chat.db\nSESSION_QUEUE_SIZE=8\n"), 0o600))
	t.Cleanup(func() {
		_ = os.Unsetenv("STORAGE_BACKEND")
		_ = os.Unsetenv("SQLITE_FILEPATH")
		_ = os.Unsetenv("SESSION_QUEUE_SIZE")
	})

	config, err := LoadConfig(path)

	req.NoError(err)
	req.Equal(BackendSQLite, config.StorageBackend)
	req.Equal("/tmp/chat.db", config.SQLiteFilepath)
	req.Equal(8, config.SessionQueueSize)
}

func TestLoadConfig_Invalid(t *testing.T) {
	req := require.New(t)
	t.Setenv("STORAGE_BACKEND", "postgres")

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))

	req.Error(err)
	req.Contains(err.Error(), "StorageBackend")
}

func TestNewLogger_FileFanout(t *testing.T) {
	req := require.New(t)
	path := filepath.Join(t.TempDir(), "chat.log")

	log, closer := NewLogger(Config{LogLevel: "DEBUG", LogFile: path, LogFileMaxSizeMB: 1})
	log.Info("Message appended", "message_id", 1)
	req.NoError(closer.Close())

	content, err := os.ReadFile(path)
	req.NoError(err)
	req.Contains(string(content), `"message_id":1`)
}

func TestParseLevel(t *testing.T) {
	req := require.New(t)
	req.Equal(parseLevel("debug"), parseLevel("DEBUG"))
	req.Equal(parseLevel("nope"), parseLevel("INFO"))
}
