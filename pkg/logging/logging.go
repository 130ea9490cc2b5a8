// Package logging configures structured logging with tint.
//
// Usage:
//
//	logging.Setup()                          // from LOG_LEVEL / LOG_FORMAT env
//	logging.Configure("debug", "json")       // explicit settings
//	logging.SetupWithLevel(slog.LevelDebug)  // colored output at a fixed level
//
// Environment variables:
//
//	LOG_LEVEL: debug, info, warn, error (default: info)
//	LOG_FORMAT: text (colored), json (default: text)
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Setup configures logging from the LOG_LEVEL and LOG_FORMAT env vars.
func Setup() *slog.Logger {
	return Configure(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
}

// SetupWithLevel configures colored logging at the given level.
func SetupWithLevel(level slog.Level) *slog.Logger {
	logger := slog.New(NewHandler(os.Stderr, level, "text"))
	slog.SetDefault(logger)
	return logger
}

// Configure installs a default logger with the named level and format and returns it.
func Configure(level, format string) *slog.Logger {
	logger := slog.New(NewHandler(os.Stderr, ParseLevel(level), format))
	slog.SetDefault(logger)
	return logger
}

// NewHandler returns a JSON handler for format "json" and a tint handler otherwise.
func NewHandler(w io.Writer, level slog.Level, format string) slog.Handler {
	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:     level,
			AddSource: true,
		})
	}
	return tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		AddSource:  true,
	})
}

// ParseLevel maps debug, warn and error to their levels; anything else is info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
