// Package logger provides the process-wide leveled logger.
// Log lines carry a component tag and optional structured fields so the
// interleaved output of the agent loop, channels and poller stays readable.
package logger

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level is the log severity.
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
	}
	return "?"
}

// ParseLevel maps a config string to a Level. Unknown values default to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "trace":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

type logger struct {
	mu    sync.Mutex
	out   io.Writer
	file  *os.File
	level Level
}

var std = &logger{out: os.Stderr, level: LevelInfo}

// SetLevel sets the minimum level that is emitted.
func SetLevel(level Level) {
	std.mu.Lock()
	defer std.mu.Unlock()
	std.level = level
}

// SetLogFile mirrors output to the given file in addition to stderr.
func SetLogFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	std.mu.Lock()
	defer std.mu.Unlock()
	if std.file != nil {
		std.file.Close()
	}
	std.file = f
	std.out = io.MultiWriter(os.Stderr, f)
	return nil
}

// Close releases the log file, if one was configured.
func Close() {
	std.mu.Lock()
	defer std.mu.Unlock()
	if std.file != nil {
		std.file.Close()
		std.file = nil
		std.out = os.Stderr
	}
}

func (l *logger) log(level Level, component, msg string, fields map[string]any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level < l.level {
		return
	}

	var sb strings.Builder
	sb.WriteString(time.Now().UTC().Format("2006-01-02T15:04:05.000Z"))
	sb.WriteString(" ")
	sb.WriteString(level.String())
	sb.WriteString(" [")
	sb.WriteString(component)
	sb.WriteString("] ")
	sb.WriteString(msg)

	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&sb, " %s=%v", k, fields[k])
		}
	}
	sb.WriteString("\n")
	io.WriteString(l.out, sb.String())
}

// DebugCF logs at debug level with a component tag and fields.
func DebugCF(component, msg string, fields map[string]any) {
	std.log(LevelDebug, component, msg, fields)
}

// InfoCF logs at info level with a component tag and fields.
func InfoCF(component, msg string, fields map[string]any) {
	std.log(LevelInfo, component, msg, fields)
}

// WarnCF logs at warn level with a component tag and fields.
func WarnCF(component, msg string, fields map[string]any) {
	std.log(LevelWarn, component, msg, fields)
}

// ErrorCF logs at error level with a component tag and fields.
func ErrorCF(component, msg string, fields map[string]any) {
	std.log(LevelError, component, msg, fields)
}

// InfoC logs at info level with a component tag and no fields.
func InfoC(component, msg string) { InfoCF(component, msg, nil) }

// WarnC logs at warn level with a component tag and no fields.
func WarnC(component, msg string) { WarnCF(component, msg, nil) }

// ErrorC logs at error level with a component tag and no fields.
func ErrorC(component, msg string) { ErrorCF(component, msg, nil) }

// DebugC logs at debug level with a component tag and no fields.
func DebugC(component, msg string) { DebugCF(component, msg, nil) }
