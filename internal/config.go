package internal

import (
	"fmt"
	"os"
	"time"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	BackendMemory = "memory"
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
)

type Config struct {
	StorageBackend  string `env:"STORAGE_BACKEND,default=badger" validate:"oneof=memory badger sqlite"`
	BadgerFilepath  string `env:"BADGER_FILEPATH,default=data/badger" validate:"required_if=StorageBackend badger"`
	SQLiteFilepath  string `env:"SQLITE_FILEPATH,default=data/chat.db" validate:"required_if=StorageBackend sqlite"`
	Host            string `env:"HOST,default=localhost"`
	Port            int    `env:"PORT,default=8080" validate:"min=1,max=65535"`
	HTTPPort        int    `env:"HTTP_PORT,default=9090" validate:"min=0,max=65535"`
	GinMode         string `env:"GIN_MODE,default=release" validate:"oneof=debug release test"`
	RequireIdentity bool   `env:"REQUIRE_IDENTITY,default=false"`

	LogLevel          string `env:"LOG_LEVEL,default=INFO"`
	LogFile           string `env:"LOG_FILE"`
	LogFileMaxSizeMB  int    `env:"LOG_FILE_MAX_SIZE_MB,default=64" validate:"min=1"`
	LogFileMaxBackups int    `env:"LOG_FILE_MAX_BACKUPS,default=8" validate:"min=0"`

	MaxContentLength     int           `env:"MAX_CONTENT_LENGTH,default=2000" validate:"min=0"`
	SessionQueueSize     int           `env:"SESSION_QUEUE_SIZE,default=1024" validate:"min=0"`
	MaxDeliveryFailures  int           `env:"MAX_DELIVERY_FAILURES,default=3" validate:"min=1"`
	ReplayBatchSize      int           `env:"REPLAY_BATCH_SIZE,default=256" validate:"min=0"`
	MaxHistoryLimit      int           `env:"MAX_HISTORY_LIMIT,default=500" validate:"min=1"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64" validate:"min=0"`
	DeliveryTimeout      time.Duration `env:"DELIVERY_TIMEOUT,default=5s"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=5s"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=200ms"`
}

// LoadConfig reads an optional .env file then the environment.
// Variables already set in the environment win over the .env file.
func LoadConfig(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("env file: %w", err)
	}
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c Config) GrpcAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c Config) HTTPAddress() string {
	if c.HTTPPort == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}
