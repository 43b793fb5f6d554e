// Package log configures the process-wide slog logger shared by the hirepath binaries.
package log

import (
	"log/slog"
	"os"
	"strings"
)

// ParseLevel maps a --log-level value to a slog level. Unknown values mean info.
func ParseLevel(logLevel string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(logLevel)) {
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

// Setup installs a text handler on stderr as the default logger.
func Setup(logLevel string) {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: ParseLevel(logLevel),
	})))
}

// WithModule tags the default logger with the emitting component, e.g. "sweeper".
func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}
