package main

import (
	"log/slog"
	"os"
)

// newLogger returns a structured slog.Logger writing JSON to stderr so
// command output on stdout stays parseable.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(h)
}
