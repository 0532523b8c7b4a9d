package main

import (
	"io"
	"log/slog"
	"strconv"
	"strings"
)

// parseLevel maps PIXEL_MCP_LOG_LEVEL to a slog level. Unknown or empty
// values mean warn.
func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// newLogger builds the text logger shared by the server and the engine.
// It must never write to stdout.
func newLogger(level string, w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: parseLevel(level)}))
}

// workersFromEnv reads PIXEL_MCP_WORKERS. 0 lets the batch pick GOMAXPROCS.
func workersFromEnv(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
