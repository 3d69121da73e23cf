// Package log provides the logging infrastructure for worklog.
//
// Loggers are injected via constructors, never pulled from globals.
// Production output is either tinted text (local development) or JSON
// (deployments); tests use NewNop to silence output.
package log

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// Config defines logger configuration options.
type Config struct {
	// Level sets the minimum log level. Default: slog.LevelInfo
	Level slog.Level

	// JSON enables JSON format output. Default: false (tinted text)
	JSON bool
}

// New creates a new logger writing to os.Stderr.
func New(cfg Config) *slog.Logger {
	return NewWithWriter(os.Stderr, cfg)
}

// NewWithWriter creates a new logger that writes to the given writer.
// Useful for capturing output in tests.
func NewWithWriter(w io.Writer, cfg Config) *slog.Logger {
	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: cfg.Level})
	} else {
		handler = tint.NewHandler(w, &tint.Options{
			Level:      cfg.Level,
			TimeFormat: time.Kitchen,
		})
	}
	return slog.New(handler)
}

// NewNop creates a logger that discards all output. Test-only: production
// code should always use New or NewWithWriter.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
