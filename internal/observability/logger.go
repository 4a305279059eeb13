package observability

import (
	"io"
	"log/slog"
	"strings"
)

// NewLoggerTo builds a logger from LOG_LEVEL and LOG_FORMAT values that writes
// to w. Services log to stdout through the shared NewLogger; this variant is
// for front-ends whose stdout is not free (the TUI owns the terminal, quakefetch
// prints records). Unknown levels fall back to info, unknown formats to JSON.
// It does not replace the slog default.
func NewLoggerTo(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if strings.EqualFold(format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// parseLevel accepts the same names as the shared service logger.
func parseLevel(s string) slog.Level {
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

// DiscardLogger returns a logger that drops everything, for tests.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
