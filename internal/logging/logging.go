// Package logging is the scene's structured logger: a narrow interface over
// log/slog plus field helpers for focus modes, bodies and vectors, so every
// component logs camera state with the same keys.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is the logging surface components depend on. A nil Logger is never
// passed around; constructors substitute Noop.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...Field)
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)
	With(fields ...Field) Logger
}

// Config selects level and output format.
type Config struct {
	Level     string // debug, info, warn, error
	Format    string // json or text
	AddSource bool
}

// New writes to stderr, leaving stdout to whatever drives the scene.
func New(cfg Config) Logger {
	return NewWithWriter(os.Stderr, cfg)
}

// NewWithWriter builds a slog-backed Logger writing to w.
func NewWithWriter(w io.Writer, cfg Config) Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level), AddSource: cfg.AddSource}
	var h slog.Handler = slog.NewTextHandler(w, opts)
	if strings.EqualFold(cfg.Format, "json") {
		h = slog.NewJSONHandler(w, opts)
	}
	return slogLogger{h: h}
}

// NewFromEnv reads SOLARSIM_LOG_LEVEL and SOLARSIM_LOG_FORMAT, falling back
// to the generic LOG_LEVEL and LOG_FORMAT.
func NewFromEnv() Logger {
	return New(Config{
		Level:     firstEnv("SOLARSIM_LOG_LEVEL", "LOG_LEVEL"),
		Format:    firstEnv("SOLARSIM_LOG_FORMAT", "LOG_FORMAT"),
		AddSource: strings.EqualFold(os.Getenv("SOLARSIM_LOG_SOURCE"), "true"),
	})
}

// ParseLevel maps a level name to slog; unknown names mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

type slogLogger struct {
	h slog.Handler
}

func (s slogLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	s.log(ctx, slog.LevelDebug, msg, fields)
}

func (s slogLogger) Info(ctx context.Context, msg string, fields ...Field) {
	s.log(ctx, slog.LevelInfo, msg, fields)
}

func (s slogLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	s.log(ctx, slog.LevelWarn, msg, fields)
}

func (s slogLogger) Error(ctx context.Context, msg string, fields ...Field) {
	s.log(ctx, slog.LevelError, msg, fields)
}

func (s slogLogger) With(fields ...Field) Logger {
	if len(fields) == 0 {
		return s
	}
	return slogLogger{h: s.h.WithAttrs(attrs(fields))}
}

// log skips building attributes for frames filtered out by level; the tick
// loop logs at debug every frame.
func (s slogLogger) log(ctx context.Context, level slog.Level, msg string, fields []Field) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !s.h.Enabled(ctx, level) {
		return
	}
	slog.New(s.h).LogAttrs(ctx, level, msg, attrs(fields)...)
}

// Noop returns a logger that drops everything.
func Noop() Logger { return noopLogger{} }

type noopLogger struct{}

func (noopLogger) Debug(context.Context, string, ...Field) {}
func (noopLogger) Info(context.Context, string, ...Field)  {}
func (noopLogger) Warn(context.Context, string, ...Field)  {}
func (noopLogger) Error(context.Context, string, ...Field) {}
func (n noopLogger) With(...Field) Logger                  { return n }
