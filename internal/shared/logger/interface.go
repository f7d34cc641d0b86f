package logger

import (
	"io"
	"log/slog"
)

// Interface is the logger handed to components.
type Interface interface {
	Debugw(msg string, keysAndValues ...any)
	Infow(msg string, keysAndValues ...any)
	Warnw(msg string, keysAndValues ...any)
	Errorw(msg string, keysAndValues ...any)
	With(keysAndValues ...any) Interface
	Named(name string) Interface
}

type slogLogger struct {
	l *slog.Logger
}

// NewLogger returns an Interface backed by the root logger.
func NewLogger() Interface {
	return &slogLogger{l: Get()}
}

// NewLoggerWithSlog wraps an existing slog logger.
func NewLoggerWithSlog(l *slog.Logger) Interface {
	return &slogLogger{l: l}
}

// NewNop returns a logger that discards everything.
func NewNop() Interface {
	return &slogLogger{l: slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))}
}

func (s *slogLogger) Debugw(msg string, kv ...any) { s.l.Debug(msg, kv...) }
func (s *slogLogger) Infow(msg string, kv ...any)  { s.l.Info(msg, kv...) }
func (s *slogLogger) Warnw(msg string, kv ...any)  { s.l.Warn(msg, kv...) }
func (s *slogLogger) Errorw(msg string, kv ...any) { s.l.Error(msg, kv...) }

func (s *slogLogger) With(kv ...any) Interface {
	return &slogLogger{l: s.l.With(kv...)}
}

func (s *slogLogger) Named(name string) Interface {
	return &slogLogger{l: s.l.With("component", name)}
}
