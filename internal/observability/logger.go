// Package observability provides the leveled logger shared by the pipeline
// executor, workers, and the HTTP server.
package observability

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Level controls which log lines a Logger emits.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
}

// Logger writes timestamped, leveled lines to a single writer. It is safe for
// concurrent use by multiple workers.
type Logger struct {
	mu     sync.Mutex
	w      io.Writer
	level  Level
	prefix string
	now    func() time.Time
}

// NewLogger returns a logger writing to w at the given minimum level.
func NewLogger(w io.Writer, level Level) *Logger {
	return &Logger{w: w, level: level, now: time.Now}
}

// Default returns a stdout logger at Info level.
func Default() *Logger {
	return NewLogger(os.Stdout, LevelInfo)
}

// WithPrefix returns a logger that prepends prefix to every message. The
// returned logger shares the parent's writer and level.
func (l *Logger) WithPrefix(prefix string) *Logger {
	return &Logger{w: l.w, level: l.level, prefix: l.prefix + prefix, now: l.now}
}

func (l *Logger) logf(level Level, format string, args ...any) {
	if l == nil || level < l.level {
		return
	}
	msg := fmt.Sprintf(format, args...)
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, "%s %-5s %s%s\n", l.now().Format(time.RFC3339), level, l.prefix, msg)
}

// Debugf logs at debug level.
func (l *Logger) Debugf(format string, args ...any) { l.logf(LevelDebug, format, args...) }

// Infof logs at info level.
func (l *Logger) Infof(format string, args ...any) { l.logf(LevelInfo, format, args...) }

// Warnf logs at warn level.
func (l *Logger) Warnf(format string, args ...any) { l.logf(LevelWarn, format, args...) }

// Errorf logs at error level.
func (l *Logger) Errorf(format string, args ...any) { l.logf(LevelError, format, args...) }
