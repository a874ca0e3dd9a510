package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

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
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

type Logger struct {
	mu      sync.Mutex
	out     io.Writer
	file    *os.File
	level   Level
	console io.Writer
}

// New creates a logger appending to filePath. An empty path disables the log
// file. With includeStdout, Info and above are echoed to stdout as well.
func New(filePath string, level Level, includeStdout bool) (*Logger, error) {
	l := &Logger{out: io.Discard, level: level}

	if filePath != "" {
		f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", filePath, err)
		}
		l.out = f
		l.file = f
	}

	if includeStdout {
		l.console = os.Stdout
	}

	return l, nil
}

// NewWriter logs every line at or above level to w.
func NewWriter(w io.Writer, level Level) *Logger {
	return &Logger{out: w, level: level}
}

// SetConsole replaces the writer that receives Info and above, os.Stdout
// for a logger created with includeStdout. nil turns the echo off.
func (l *Logger) SetConsole(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.console = w
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return &Logger{out: io.Discard, level: LevelError + 1}
}

func (l *Logger) log(lvl Level, format string, v ...any) {
	if lvl < l.level {
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	msg := fmt.Sprintf(format, v...)
	line := fmt.Sprintf("%s [%s] %s\n", timestamp, lvl, msg)

	l.mu.Lock()
	defer l.mu.Unlock()

	io.WriteString(l.out, line)

	// Debug stays out of the console so it doesn't break the progress bar.
	// The leading newline moves the line off the bar being redrawn.
	if l.console != nil && lvl >= LevelInfo {
		io.WriteString(l.console, "\n"+strings.TrimSuffix(line, "\n"))
	}
}

func ParseLevel(lvl string) Level {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l *Logger) Debug(f string, v ...any) { l.log(LevelDebug, f, v...) }
func (l *Logger) Info(f string, v ...any)  { l.log(LevelInfo, f, v...) }
func (l *Logger) Warn(f string, v ...any)  { l.log(LevelWarn, f, v...) }
func (l *Logger) Error(f string, v ...any) { l.log(LevelError, f, v...) }

// Close releases the log file, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	l.out = io.Discard
	return err
}
