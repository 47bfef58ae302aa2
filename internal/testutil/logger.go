package testutil

import (
	"io"
	"log/slog"
	"os"
)

// NewTestLogger logs at debug level to stderr, for tests where the output
// helps diagnose failures.
func NewTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// NewNullLogger discards everything.
func NewNullLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
