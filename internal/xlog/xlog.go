// Package xlog is a minimal leveled logging sink for non-fatal diagnostics
// (a reader's sync-marker mismatch, a dropped append attempt). It wraps
// log/slog rather than inventing a logging interface, so a caller can plug
// in any slog.Handler it already has configured.
package xlog

import (
	"context"
	"log/slog"
	"time"
)

// Logger is the sink the ocf package writes warnings to. The zero value logs
// nothing, so packages that never configure one stay silent by default.
type Logger struct {
	h slog.Handler
}

// New wraps an slog.Handler as a Logger. Passing nil yields a no-op Logger.
func New(h slog.Handler) *Logger {
	return &Logger{h: h}
}

// Default returns a Logger backed by slog's default handler.
func Default() *Logger {
	return &Logger{h: slog.Default().Handler()}
}

func (l *Logger) log(level slog.Level, msg string, args ...any) {
	if l == nil || l.h == nil {
		return
	}
	if !l.h.Enabled(context.Background(), level) {
		return
	}
	r := slog.NewRecord(time.Now(), level, msg, 0)
	r.Add(args...)
	_ = l.h.Handle(context.Background(), r)
}

// Warn logs a non-fatal condition, such as a reader's sync-marker mismatch.
func (l *Logger) Warn(msg string, args ...any) {
	l.log(slog.LevelWarn, msg, args...)
}

// Debug logs verbose diagnostic detail, such as a resolved block codec.
func (l *Logger) Debug(msg string, args ...any) {
	l.log(slog.LevelDebug, msg, args...)
}
