package logging

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	// LevelDebug is the debug log level
	LevelDebug LogLevel = iota
	// LevelInfo is the info log level
	LevelInfo
	// LevelWarn is the warning log level
	LevelWarn
	// LevelError is the error log level
	LevelError
)

var (
	currentLevel LogLevel
	levelOnce    sync.Once
)

// initLevel initializes the log level from environment variables
func initLevel() {
	levelOnce.Do(func() {
		currentLevel = ParseLevel(os.Getenv("DEBUG"), os.Getenv("LOG_LEVEL"))
	})
}

// ParseLevel resolves the effective level from the DEBUG and LOG_LEVEL values.
// A truthy DEBUG wins over LOG_LEVEL. Unknown values resolve to LevelInfo.
func ParseLevel(debug, level string) LogLevel {
	switch strings.ToLower(debug) {
	case "1", "true", "yes", "on":
		return LevelDebug
	}

	switch strings.ToLower(level) {
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

// GetLevel returns the current log level
func GetLevel() LogLevel {
	initLevel()
	return currentLevel
}

// IsDebugEnabled returns true if debug logging is enabled
func IsDebugEnabled() bool {
	return GetLevel() <= LevelDebug
}

// Debug logs a debug message (only if DEBUG=true or LOG_LEVEL=debug)
func Debug(format string, args ...interface{}) {
	if GetLevel() <= LevelDebug {
		log.Printf("[DEBUG] "+format, args...)
	}
}

// Info logs an info message
func Info(format string, args ...interface{}) {
	if GetLevel() <= LevelInfo {
		log.Printf("[INFO] "+format, args...)
	}
}

// Warn logs a warning message
func Warn(format string, args ...interface{}) {
	if GetLevel() <= LevelWarn {
		log.Printf("[WARN] "+format, args...)
	}
}

// Error logs an error message
func Error(format string, args ...interface{}) {
	if GetLevel() <= LevelError {
		log.Printf("[ERROR] "+format, args...)
	}
}

// Fatal logs an error message and exits
func Fatal(format string, args ...interface{}) {
	log.Fatalf("[FATAL] "+format, args...)
}

// Printf is a pass-through to log.Printf for messages that should always print
func Printf(format string, args ...interface{}) {
	log.Printf(format, args...)
}

// Logger is a leveled logger that prefixes every message, typically with
// the request id of the proxied request.
type Logger struct {
	prefix string
}

// With returns a Logger that prefixes messages with "[key]".
// An empty key yields a Logger without prefix.
func With(key string) *Logger {
	if key == "" {
		return &Logger{}
	}
	return &Logger{prefix: "[" + key + "] "}
}

// Prefix returns the prefix prepended to each message.
func (l *Logger) Prefix() string {
	if l == nil {
		return ""
	}
	return l.prefix
}

// Debug logs a prefixed debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	Debug(l.Prefix()+format, args...)
}

// Info logs a prefixed info message
func (l *Logger) Info(format string, args ...interface{}) {
	Info(l.Prefix()+format, args...)
}

// Warn logs a prefixed warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	Warn(l.Prefix()+format, args...)
}

// Error logs a prefixed error message
func (l *Logger) Error(format string, args ...interface{}) {
	Error(l.Prefix()+format, args...)
}

// String returns the string representation of a log level
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", l)
	}
}
