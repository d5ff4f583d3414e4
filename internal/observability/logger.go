package observability

import (
	"log/slog"
	"os"
)

// NewLogger builds the process-wide structured logger. Output is JSON on
// stdout so the platform log shipper can ingest it without a parser config.
func NewLogger() *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
