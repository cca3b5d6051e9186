package logging

import (
	"bytes"
	"context"
	"log"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		debug    string
		level    string
		expected LogLevel
	}{
		{name: "Debug via LOG_LEVEL", level: "debug", expected: LevelDebug},
		{name: "Info via LOG_LEVEL", level: "info", expected: LevelInfo},
		{name: "Warn via LOG_LEVEL", level: "warn", expected: LevelWarn},
		{name: "Error via LOG_LEVEL", level: "error", expected: LevelError},
		{name: "Case insensitive", level: "DEBUG", expected: LevelDebug},
		{name: "Warning alias", level: "warning", expected: LevelWarn},
		{name: "Unknown defaults to info", level: "verbose", expected: LevelInfo},
		{name: "Empty defaults to info", expected: LevelInfo},
		{name: "DEBUG=true wins", debug: "true", level: "error", expected: LevelDebug},
		{name: "DEBUG=1", debug: "1", expected: LevelDebug},
		{name: "DEBUG=no is ignored", debug: "no", level: "warn", expected: LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseLevel(tt.debug, tt.level); got != tt.expected {
				t.Errorf("ParseLevel(%q, %q) = %v, want %v", tt.debug, tt.level, got, tt.expected)
			}
		})
	}
}

func TestLogLevelConstants(t *testing.T) {
	if LevelDebug >= LevelInfo {
		t.Error("LevelDebug should be less than LevelInfo")
	}
	if LevelInfo >= LevelWarn {
		t.Error("LevelInfo should be less than LevelWarn")
	}
	if LevelWarn >= LevelError {
		t.Error("LevelWarn should be less than LevelError")
	}
}

func TestLogLevelString(t *testing.T) {
	tests := map[LogLevel]string{
		LevelDebug:   "debug",
		LevelInfo:    "info",
		LevelWarn:    "warn",
		LevelError:   "error",
		LogLevel(42): "unknown(42)",
	}

	for level, want := range tests {
		if got := level.String(); got != want {
			t.Errorf("LogLevel(%d).String() = %q, want %q", int(level), got, want)
		}
	}
}

func TestLoggerPrefix(t *testing.T) {
	if got := With("abc").Prefix(); got != "[abc] " {
		t.Errorf("Expected prefix %q, got %q", "[abc] ", got)
	}
	if got := With("").Prefix(); got != "" {
		t.Errorf("Expected empty prefix, got %q", got)
	}

	var nilLogger *Logger
	if got := nilLogger.Prefix(); got != "" {
		t.Errorf("Expected nil logger to have empty prefix, got %q", got)
	}
}

func TestLoggerWritesPrefixedLines(t *testing.T) {
	var buf bytes.Buffer
	original := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(original)

	// Error is emitted at every level
	With("req-1").Error("origin failed: %s", "boom")

	out := buf.String()
	if !strings.Contains(out, "[ERROR] [req-1] origin failed: boom") {
		t.Errorf("Unexpected log output: %q", out)
	}
}

func TestLoggerContext(t *testing.T) {
	if got := FromContext(context.Background()).Prefix(); got != "" {
		t.Errorf("Expected empty prefix without logger, got %q", got)
	}

	ctx := NewContext(context.Background(), With("req-1"))
	if got := FromContext(ctx).Prefix(); got != "[req-1] " {
		t.Errorf("Expected [req-1] prefix, got %q", got)
	}
}
