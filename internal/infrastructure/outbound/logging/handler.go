package logging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// HandlerOptions configures the handler built by NewHandler.
type HandlerOptions struct {
	Level slog.Level
	// Console renders colourised, human-oriented lines via tint. Otherwise
	// plain slog text lines are written.
	Console bool
	NoColor bool
	// File, when set, receives a copy of every record as JSON lines.
	File io.Writer
}

// ParseLevel maps a config level name to slog.Level. Unknown names map to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// NewHandler builds the process log handler writing to w.
func NewHandler(w io.Writer, opts HandlerOptions) slog.Handler {
	var primary slog.Handler
	if opts.Console {
		primary = tint.NewHandler(w, &tint.Options{
			Level:      opts.Level,
			NoColor:    opts.NoColor,
			TimeFormat: time.TimeOnly,
		})
	} else {
		primary = slog.NewTextHandler(w, &slog.HandlerOptions{Level: opts.Level})
	}
	if opts.File == nil {
		return primary
	}
	file := slog.NewJSONHandler(opts.File, &slog.HandlerOptions{Level: opts.Level})
	return fanout{primary, file}
}

// fanout dispatches each record to every handler that accepts its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
