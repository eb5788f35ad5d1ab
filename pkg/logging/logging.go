package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

// LogLevel defines the severity of the log entry.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String makes LogLevel satisfy the fmt.Stringer interface.
func (l LogLevel) String() string {
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
		return "UNKNOWN"
	}
}

// ParseLevel converts a config string into a LogLevel. Unknown values fall
// back to info.
func ParseLevel(s string) LogLevel {
	switch s {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// SlogLevel maps a LogLevel to its slog equivalent.
func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogEntry is the structured record forwarded to the interactive shell
// surface when shell mode is active.
type LogEntry struct {
	Timestamp time.Time
	Level     LogLevel
	Subsystem string
	Message   string
	Err       error
}

var (
	mu              sync.RWMutex
	defaultLogger   *slog.Logger
	shellLogChannel chan LogEntry
	shellMode       bool
)

const shellChannelBufferSize = 2048

// InitForConsole initializes logging for plain console output. Logs are
// written to the provided writer through a slog text handler.
func InitForConsole(filterLevel LogLevel, output io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	shellMode = false
	shellLogChannel = nil
	defaultLogger = newTextLogger(filterLevel, output)
	slog.SetDefault(defaultLogger)
}

// InitForShell initializes logging for interactive shell mode. Entries are
// delivered on the returned channel so the surface can render them without
// fighting the terminal for stdout; stderr keeps a fallback text handler for
// anything logged before the surface is up.
func InitForShell(filterLevel LogLevel) <-chan LogEntry {
	mu.Lock()
	defer mu.Unlock()

	shellMode = true
	shellLogChannel = make(chan LogEntry, shellChannelBufferSize)
	defaultLogger = newTextLogger(filterLevel, os.Stderr)
	slog.SetDefault(defaultLogger)
	return shellLogChannel
}

func newTextLogger(level LogLevel, output io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level.SlogLevel()}
	return slog.New(slog.NewTextHandler(output, opts))
}

func logInternal(level LogLevel, subsystem string, err error, messageFmt string, args ...interface{}) {
	msg := messageFmt
	if len(args) > 0 {
		msg = fmt.Sprintf(messageFmt, args...)
	}

	mu.RLock()
	inShell := shellMode
	ch := shellLogChannel
	logger := defaultLogger
	mu.RUnlock()

	if inShell && ch != nil {
		select {
		case ch <- LogEntry{
			Timestamp: time.Now(),
			Level:     level,
			Subsystem: subsystem,
			Message:   msg,
			Err:       err,
		}:
		default:
			// Shell is not draining; drop rather than stall the sequencer.
		}
		return
	}

	if logger == nil {
		fmt.Fprintf(os.Stderr, "[%s] %s: %s\n", level, subsystem, msg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  error: %v\n", err)
		}
		return
	}

	attrs := []slog.Attr{slog.String("subsystem", subsystem)}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	logger.LogAttrs(context.Background(), level.SlogLevel(), msg, attrs...)
}

// Debug logs a debug message.
func Debug(subsystem string, messageFmt string, args ...interface{}) {
	logInternal(LevelDebug, subsystem, nil, messageFmt, args...)
}

// Info logs an informational message.
func Info(subsystem string, messageFmt string, args ...interface{}) {
	logInternal(LevelInfo, subsystem, nil, messageFmt, args...)
}

// Warn logs a warning message.
func Warn(subsystem string, messageFmt string, args ...interface{}) {
	logInternal(LevelWarn, subsystem, nil, messageFmt, args...)
}

// Error logs an error message.
func Error(subsystem string, err error, messageFmt string, args ...interface{}) {
	logInternal(LevelError, subsystem, err, messageFmt, args...)
}

// CloseShellChannel closes the shell log channel. Call once on shutdown.
func CloseShellChannel() {
	mu.Lock()
	defer mu.Unlock()
	if shellLogChannel != nil {
		close(shellLogChannel)
		shellLogChannel = nil
		shellMode = false
	}
}
