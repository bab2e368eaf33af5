// Package logger provides the shared slog construction and attribute helpers.
package logger

import (
	"log/slog"
	"os"
	"strings"

	"go.uber.org/fx"
)

var Module = fx.Module("logger",
	fx.Provide(NewLogger),
)

// NewLogger creates the process-wide slog.Logger.
//
// Level comes from LOG_LEVEL (debug, info, warn/warning, error; default info).
// When GO_ENV=production the handler emits JSON, otherwise human-readable text.
func NewLogger() *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	case "info":
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if os.Getenv("GO_ENV") == "production" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

// Scope returns a "scope" attribute used to namespace log lines per component.
func Scope(scope string) slog.Attr {
	return slog.String("scope", scope)
}

// Error returns an "error" attribute carrying the error value.
func Error(err error) slog.Attr {
	return slog.Any("error", err)
}
