// Package logger builds the structured loggers used across docqa.
package logger

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// New returns a *slog.Logger backed by charmbracelet/log. Console output is
// colorized when the writer is a terminal; WithJSON emits one JSON object per
// line instead.
func New(opts ...Option) *slog.Logger {
	c := &config{
		level: slog.LevelInfo,
	}
	for _, opt := range opts {
		opt(c)
	}

	var w io.Writer = os.Stderr
	switch len(c.writers) {
	case 0:
	case 1:
		w = c.writers[0]
	default:
		w = io.MultiWriter(c.writers...)
	}

	formatter := log.TextFormatter
	if c.json {
		formatter = log.JSONFormatter
	}

	handler := log.NewWithOptions(w, log.Options{
		Level:           log.Level(c.level),
		Prefix:          c.prefix,
		ReportTimestamp: true,
		ReportCaller:    c.caller,
		TimeFormat:      time.RFC3339,
		Formatter:       formatter,
	})

	return slog.New(handler)
}

// Nop returns a logger that discards everything.
func Nop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
