// Package corelog provides the leveled logger used across the gcodehost
// core. It follows the same shape as the protocol-library loggers it is
// descended from: a small Provider interface a host application can swap
// in, gated by an enable switch, but backed by the standard library's
// log/slog instead of a bespoke formatter.
package corelog

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
)

// Provider is the pluggable sink a host application may install in place
// of the default slog-backed logger. Only Debug/Warn/Error are exposed at
// this layer; Info-level chatter belongs to the host, not the core.
type Provider interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Logger wraps a Provider behind an enable switch so that call sites never
// need to branch on whether logging is currently active.
type Logger struct {
	provider Provider
	enabled  atomic.Bool
}

// New returns a Logger backed by slog.Default(), enabled.
func New() *Logger {
	l := &Logger{provider: slogProvider{slog.Default()}}
	l.enabled.Store(true)
	return l
}

// NewWithHandler returns a Logger backed by a specific slog.Handler.
func NewWithHandler(h slog.Handler) *Logger {
	l := &Logger{provider: slogProvider{slog.New(h)}}
	l.enabled.Store(true)
	return l
}

// SetProvider installs a custom sink. A nil provider is ignored.
func (l *Logger) SetProvider(p Provider) {
	if p != nil {
		l.provider = p
	}
}

// SetEnabled toggles whether log calls reach the provider.
func (l *Logger) SetEnabled(enabled bool) {
	l.enabled.Store(enabled)
}

func (l *Logger) Debug(msg string, args ...any) {
	if l.enabled.Load() {
		l.provider.Debug(msg, args...)
	}
}

func (l *Logger) Warn(msg string, args ...any) {
	if l.enabled.Load() {
		l.provider.Warn(msg, args...)
	}
}

func (l *Logger) Error(msg string, args ...any) {
	if l.enabled.Load() {
		l.provider.Error(msg, args...)
	}
}

// slogProvider adapts an *slog.Logger to Provider.
type slogProvider struct {
	l *slog.Logger
}

func (s slogProvider) Debug(msg string, args ...any) { s.l.Debug(msg, args...) }
func (s slogProvider) Warn(msg string, args ...any)  { s.l.Warn(msg, args...) }
func (s slogProvider) Error(msg string, args ...any) { s.l.Error(msg, args...) }

var defaultLogger = New()

// Default returns the package-wide default logger.
func Default() *Logger { return defaultLogger }

// SetDefault replaces the package-wide default logger.
func SetDefault(l *Logger) {
	if l != nil {
		defaultLogger = l
	}
}

// NewTextHandler builds a slog.TextHandler writing to stderr at the given
// level, for hosts that just want "turn debug on" without wiring slog
// themselves.
func NewTextHandler(level slog.Level) slog.Handler {
	return slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
}

// WithSession returns a child logger that tags every record with a session
// correlation id, mirroring how request-scoped context is threaded through
// a structured logger.
func WithSession(ctx context.Context, l *Logger, sessionID string) *Logger {
	if l == nil {
		l = Default()
	}
	sl, ok := l.provider.(slogProvider)
	if !ok {
		return l
	}
	child := &Logger{provider: slogProvider{sl.l.With("session", sessionID)}}
	child.enabled.Store(l.enabled.Load())
	return child
}
