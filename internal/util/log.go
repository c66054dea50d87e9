// Package util provides shared helpers for logging, retries and outbound
// request throttling.
package util

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// ParseLevel maps "debug", "info", "warn" and "error" to slog levels.
// Unrecognised strings map to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// NewLogger creates a structured text logger writing to w at the given level.
// A nil writer logs to stderr.
func NewLogger(level string, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})
	return slog.New(handler)
}

// OpenLogFile opens (appending) the log file for a binary. An empty path
// becomes /tmp/<name>-<date>.log; a path containing a Go reference date has
// it replaced with today's date.
func OpenLogFile(name, path string) (*os.File, error) {
	today := time.Now().Format("2006-01-02")
	if path == "" {
		path = fmt.Sprintf("/tmp/%s-%s.log", name, today)
	} else {
		path = strings.ReplaceAll(path, "2006-01-02", today)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file %s: %w", path, err)
	}
	return f, nil
}
