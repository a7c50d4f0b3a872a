// Package util provides low-level helpers shared by all other packages.
package util

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	console "github.com/phsym/console-slog"
)

// LogLevel controls output verbosity.
type LogLevel int

const (
	LogQuiet   LogLevel = 0
	LogNormal  LogLevel = 1
	LogVerbose LogLevel = 2
	LogDebug   LogLevel = 3
)

// levelVerbose sits between slog's debug and info levels.
const levelVerbose = slog.Level(-2)

// Logger writes levelled messages to stderr through a slog handler.
// The human-readable console handler is the default; JSON output is
// selected with SetJSON.
type Logger struct {
	level  LogLevel
	mu     sync.Mutex
	output io.Writer
	json   bool
	attrs  []any
	slog   *slog.Logger
}

// NewLogger returns a Logger that prints messages at or below the given
// verbosity (0 = quiet, 1 = normal, 2 = verbose, 3 = debug).
func NewLogger(verbosity int) *Logger {
	l := &Logger{
		level:  LogLevel(verbosity),
		output: os.Stderr,
	}
	l.rebuild()
	return l
}

// SetOutput overrides the output writer (default: os.Stderr).
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.output = w
	l.rebuild()
}

// SetJSON switches between the console handler and slog's JSON handler.
func (l *Logger) SetJSON(on bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.json = on
	l.rebuild()
}

// Level returns the current log level.
func (l *Logger) Level() LogLevel { return l.level }

// With returns a child logger that adds the given key/value pairs to
// every record.  The child shares the parent's output.
func (l *Logger) With(keyValues ...any) *Logger {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	child := &Logger{
		level:  l.level,
		output: l.output,
		json:   l.json,
		attrs:  append(append([]any{}, l.attrs...), keyValues...),
	}
	child.rebuild()
	return child
}

// Info prints when verbosity ≥ 1.
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(slog.LevelInfo, format, args...)
}

// Warn prints when verbosity ≥ 1.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(slog.LevelWarn, format, args...)
}

// Verbose prints when verbosity ≥ 2.
func (l *Logger) Verbose(format string, args ...interface{}) {
	l.log(levelVerbose, format, args...)
}

// Debug prints when verbosity ≥ 3.
func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(slog.LevelDebug, format, args...)
}

// Error always prints regardless of verbosity.
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(slog.LevelError, format, args...)
}

func (l *Logger) log(level slog.Level, format string, args ...interface{}) {
	if l == nil {
		return
	}
	l.mu.Lock()
	sl := l.slog
	l.mu.Unlock()

	ctx := context.Background()
	if !sl.Enabled(ctx, level) {
		return
	}
	sl.Log(ctx, level, fmt.Sprintf(format, args...))
}

// rebuild recreates the slog handler; callers hold l.mu or own l.
func (l *Logger) rebuild() {
	minLevel := slogLevel(l.level)

	var h slog.Handler
	if l.json {
		h = slog.NewJSONHandler(l.output, &slog.HandlerOptions{
			Level: minLevel,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				if a.Key == slog.TimeKey {
					a.Key = "ts"
				}
				return a
			},
		})
	} else {
		h = console.NewHandler(l.output, &console.HandlerOptions{
			Level: minLevel,
		})
	}

	l.slog = slog.New(h)
	if len(l.attrs) > 0 {
		l.slog = l.slog.With(l.attrs...)
	}
}

func slogLevel(level LogLevel) slog.Level {
	switch {
	case level <= LogQuiet:
		return slog.LevelError
	case level == LogNormal:
		return slog.LevelInfo
	case level == LogVerbose:
		return levelVerbose
	default:
		return slog.LevelDebug
	}
}
