package logging

import (
	"context"
	"crypto/rand"
	"encoding/hex"
)

// SessionKey is the field every session-scoped log line carries.
const SessionKey = "session_id"

type sessionIDKey struct{}

type loggerKey struct{}

// EnsureSessionID returns ctx carrying a session ID, minting one when ctx
// has none.
func EnsureSessionID(ctx context.Context) (context.Context, string) {
	if ctx == nil {
		ctx = context.Background()
	}
	if id := SessionIDFromContext(ctx); id != "" {
		return ctx, id
	}
	id := newSessionID()
	return ContextWithSessionID(ctx, id), id
}

func ContextWithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, id)
}

func SessionIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(sessionIDKey{}).(string)
	return id
}

// WithSessionLogger tags base with the context's session ID and stores the
// tagged logger on the returned context, where scene.NewSession picks it up.
func WithSessionLogger(ctx context.Context, base Logger) (context.Context, Logger) {
	if base == nil {
		base = Noop()
	}
	ctx, id := EnsureSessionID(ctx)
	log := base.With(String(SessionKey, id))
	return ContextWithLogger(ctx, log), log
}

// ContextWithLogger stores l on ctx. A nil l stores Noop.
func ContextWithLogger(ctx context.Context, l Logger) context.Context {
	if l == nil {
		l = Noop()
	}
	return context.WithValue(ctx, loggerKey{}, l)
}

// LoggerFromContext returns the logger stored on ctx, or Noop.
func LoggerFromContext(ctx context.Context) Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(Logger); ok {
			return l
		}
	}
	return Noop()
}

func newSessionID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(b[:])
}
