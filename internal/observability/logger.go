package observability

import (
	"log/slog"
	"os"
)

// NewLogger builds the process-wide JSON logger. The handler is wrapped so
// log records emitted with a request context carry trace/span IDs.
func NewLogger(env string) *slog.Logger {
	level := slog.LevelInfo

	if env == "dev" {
		level = slog.LevelDebug
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})

	return slog.New(NewTraceHandler(handler))
}
