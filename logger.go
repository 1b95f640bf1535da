package keybot

import (
	"io"
	"log/slog"
	"strings"
)

type slogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger adapts a slog logger to Logger. Args are key/value pairs.
func NewSlogLogger(logger *slog.Logger) Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return slogLogger{logger: logger}
}

// NewJSONLogger writes JSON lines at the given level to w
func NewJSONLogger(w io.Writer, level string) Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLogLevel(level)})
	return NewSlogLogger(slog.New(handler).With("service", "keybot"))
}

func (l slogLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }

func (l slogLogger) Info(msg string, args ...any) { l.logger.Info(msg, args...) }

func (l slogLogger) Warn(msg string, args ...any) { l.logger.Warn(msg, args...) }

func (l slogLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }

// ParseLogLevel maps debug, info, warn and error to slog levels. Unknown
// values fall back to info.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
