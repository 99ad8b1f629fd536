package logging

import (
	"io"
	"log/slog"

	"github.com/sirupsen/logrus"
)

// Supported output formats.
const (
	FormatJSON   = "json"
	FormatText   = "text"
	FormatLogrus = "logrus"
)

// New builds a Logger writing to w in the requested format. Unknown formats
// fall back to JSON.
func New(format string, w io.Writer, debug bool) Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	switch format {
	case FormatText:
		return NewSlogLogger(slog.New(slog.NewTextHandler(w, opts)))
	case FormatLogrus:
		l := logrus.New()
		l.SetOutput(w)
		l.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
		if debug {
			l.SetLevel(logrus.DebugLevel)
		}
		return NewLogrusLogger(l)
	default:
		return NewSlogLogger(slog.New(slog.NewJSONHandler(w, opts)))
	}
}

// Discard returns a Logger that drops everything. Handy in tests.
func Discard() Logger {
	return NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}
