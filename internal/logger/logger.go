// Package logger builds structured slog loggers for the CLI and the
// simulation layers.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

var (
	// Default is the process-wide logger.
	Default *slog.Logger
)

func init() {
	Default = NewText("warn", os.Stderr)
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New creates a JSON logger with the specified level and output.
func New(level string, output io.Writer) *slog.Logger {
	handler := slog.NewJSONHandler(output, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})
	return slog.New(handler)
}

// NewText creates a text-formatted logger.
func NewText(level string, output io.Writer) *slog.Logger {
	handler := slog.NewTextHandler(output, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})
	return slog.New(handler)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// SetDefault replaces Default and the slog package default.
func SetDefault(logger *slog.Logger) {
	Default = logger
	slog.SetDefault(logger)
}

// ForFormat builds a JSON or text logger by format name.
func ForFormat(format, level string, output io.Writer) (*slog.Logger, error) {
	switch strings.ToLower(format) {
	case "json":
		return New(level, output), nil
	case "text", "":
		return NewText(level, output), nil
	default:
		return nil, fmt.Errorf("unknown log format %q (want text or json)", format)
	}
}
