package driver

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Level is a logging threshold.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelQuiet
)

// ParseLevel parses debug, info, warn, error or quiet.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	case "quiet", "off":
		return LevelQuiet, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

var levelTags = map[Level]string{
	LevelDebug: "[DEBUG]",
	LevelInfo:  "[INFO]",
	LevelWarn:  "[WARN]",
	LevelError: "[ERROR]",
}

// Logger receives progress and diagnostics from the driver and its callers.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// writerLogger writes info and below to stdout, warnings and errors to stderr.
type writerLogger struct {
	mu     sync.Mutex
	stdout io.Writer
	stderr io.Writer
	level  Level
}

// WriterLogger returns a logger that writes lines at or above level.
func WriterLogger(stdout, stderr io.Writer, level Level) Logger {
	return &writerLogger{stdout: stdout, stderr: stderr, level: level}
}

func (l *writerLogger) logf(level Level, format string, args ...any) {
	if level < l.level {
		return
	}
	w := l.stdout
	if level >= LevelWarn {
		w = l.stderr
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(w, "%s %s\n", levelTags[level], fmt.Sprintf(format, args...))
}

func (l *writerLogger) Debugf(format string, args ...any) { l.logf(LevelDebug, format, args...) }
func (l *writerLogger) Infof(format string, args ...any)  { l.logf(LevelInfo, format, args...) }
func (l *writerLogger) Warnf(format string, args ...any)  { l.logf(LevelWarn, format, args...) }
func (l *writerLogger) Errorf(format string, args ...any) { l.logf(LevelError, format, args...) }

// BufferedLogger captures log output for later retrieval
type BufferedLogger struct {
	mu    sync.Mutex
	lines []string
}

// NewBufferedLogger creates a new buffered logger
func NewBufferedLogger() *BufferedLogger {
	return &BufferedLogger{
		lines: make([]string, 0),
	}
}

func (l *BufferedLogger) add(level Level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, levelTags[level]+" "+fmt.Sprintf(format, args...))
}

func (l *BufferedLogger) Debugf(format string, args ...any) { l.add(LevelDebug, format, args...) }
func (l *BufferedLogger) Infof(format string, args ...any)  { l.add(LevelInfo, format, args...) }
func (l *BufferedLogger) Warnf(format string, args ...any)  { l.add(LevelWarn, format, args...) }
func (l *BufferedLogger) Errorf(format string, args ...any) { l.add(LevelError, format, args...) }

// String returns all captured output as a single string
func (l *BufferedLogger) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	result := strings.Join(l.lines, "\n")
	if len(l.lines) > 0 {
		result += "\n"
	}
	return result
}

// Lines returns all captured log lines
func (l *BufferedLogger) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	result := make([]string, len(l.lines))
	copy(result, l.lines)
	return result
}

// Reset clears all captured output
func (l *BufferedLogger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = l.lines[:0]
}

type nullLogger struct{}

func (nullLogger) Debugf(string, ...any) {}
func (nullLogger) Infof(string, ...any)  {}
func (nullLogger) Warnf(string, ...any)  {}
func (nullLogger) Errorf(string, ...any) {}

// NullLogger returns a logger that discards all output
func NullLogger() Logger {
	return nullLogger{}
}
