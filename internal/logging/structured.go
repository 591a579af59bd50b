package logging

import (
	"io"
	"log/slog"
	"os"
)

// InitStructured reconfigures the operational logger to write to stderr.
// format: "text" (default) or "json"
// level: "debug", "info", "warn", "error"
func InitStructured(format, level string) {
	InitStructuredTo(os.Stderr, format, level)
}

// InitStructuredTo is InitStructured with an explicit destination.
func InitStructuredTo(w io.Writer, format, level string) {
	SetLevelFromString(level)

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	opLogger.Store(slog.New(handler))
}

// WithInstance tags the operational logger with a process instance id.
func WithInstance(id string) *slog.Logger {
	l := opLogger.Load()
	if id == "" {
		return l
	}
	l = l.With("instance", id)
	opLogger.Store(l)
	return l
}
