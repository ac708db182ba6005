package logger

import (
	"log/slog"
	"os"
)

// New returns the JSON slog logger used across the service.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}
