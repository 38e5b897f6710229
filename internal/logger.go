package internal

import (
	"io"
	"log/slog"
	"strings"

	"github.com/mama165/sdk-go/logs"
	multi "github.com/samber/slog-multi"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger returns the console logger, fanned out to a rotating JSON file when LOG_FILE is set.
// The returned closer releases the file.
func NewLogger(config Config) (*slog.Logger, io.Closer) {
	log := logs.GetLoggerFromString(config.LogLevel)
	if config.LogFile == "" {
		return log, io.NopCloser(nil)
	}

	logFile := &lumberjack.Logger{
		Filename:   config.LogFile,
		MaxSize:    config.LogFileMaxSizeMB,
		MaxBackups: config.LogFileMaxBackups,
		Compress:   true,
	}
	fileHandler := slog.NewJSONHandler(logFile, &slog.HandlerOptions{Level: parseLevel(config.LogLevel)})
	return slog.New(multi.Fanout(log.Handler(), fileHandler)), logFile
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(strings.TrimSpace(level)))); err != nil {
		return slog.LevelInfo
	}
	return l
}
