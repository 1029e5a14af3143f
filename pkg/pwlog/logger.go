package pwlog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger wraps slog.Logger with convenience methods for CLI output.
type Logger struct {
	*slog.Logger
}

// cliHandler formats records for a terminal: a short level tag, the message,
// then key=value attributes on the same line.
type cliHandler struct {
	level  slog.Level
	output io.Writer
}

func (h *cliHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *cliHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder

	switch r.Level {
	case slog.LevelDebug:
		b.WriteString("debug: ")
	case slog.LevelWarn:
		b.WriteString("warning: ")
	case slog.LevelError:
		b.WriteString("error: ")
	}

	b.WriteString(r.Message)

	if r.NumAttrs() > 0 {
		r.Attrs(func(a slog.Attr) bool {
			b.WriteString(" ")
			b.WriteString(a.Key)
			b.WriteString("=")
			b.WriteString(a.Value.String())
			return true
		})
	}

	b.WriteString("\n")
	_, err := h.output.Write([]byte(b.String()))
	return err
}

func (h *cliHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	// Persistent attrs are not needed for CLI output
	return h
}

func (h *cliHandler) WithGroup(name string) slog.Handler {
	return h
}

// New creates a logger with the specified level writing to output.
func New(level slog.Level, output io.Writer) *Logger {
	if output == nil {
		output = os.Stderr
	}

	return &Logger{
		Logger: slog.New(&cliHandler{level: level, output: output}),
	}
}

// NewDefault creates a logger at INFO level writing to stderr.
func NewDefault() *Logger {
	return New(slog.LevelInfo, os.Stderr)
}

// NewQuiet creates a logger at WARN level (suppresses info/debug).
func NewQuiet() *Logger {
	return New(slog.LevelWarn, os.Stderr)
}

// NewVerbose creates a logger at DEBUG level.
func NewVerbose() *Logger {
	return New(slog.LevelDebug, os.Stderr)
}

// Fatal logs at ERROR level and exits with code 1.
func (l *Logger) Fatal(msg string, args ...any) {
	l.Error(msg, args...)
	os.Exit(1)
}

// Fatalf formats and logs at ERROR level, then exits with code 1.
func (l *Logger) Fatalf(format string, args ...any) {
	l.Error(fmt.Sprintf(format, args...))
	os.Exit(1)
}
