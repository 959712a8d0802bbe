package main

import (
	"log/slog"
	"os"
)

// NewLogger returns the process-wide structured logger. Debug mode lowers the
// level so per-cycle diagnostics become visible.
func NewLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(h)
}
