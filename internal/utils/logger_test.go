package utils

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func newCapturedLogger(level LogLevel) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return &Logger{
		out:   log.New(&buf, "[test] ", 0),
		level: level,
	}, &buf
}

func TestLoggerLevelFiltering(t *testing.T) {
	logger, buf := newCapturedLogger(Warning)

	logger.Debug("debug message")
	logger.Info("info message")
	if buf.Len() != 0 {
		t.Errorf("Messages below Warning were written: %q", buf.String())
	}

	logger.Warn("warn message")
	logger.Error("error message")

	out := buf.String()
	if !strings.Contains(out, "[WARN] warn message") {
		t.Errorf("Missing warn line in %q", out)
	}
	if !strings.Contains(out, "[ERROR] error message") {
		t.Errorf("Missing error line in %q", out)
	}
}

func TestLoggerKeyvals(t *testing.T) {
	logger, buf := newCapturedLogger(Debug)

	logger.Info("resolved model", "model", "assistant", "version", "1.2.0")

	out := buf.String()
	if !strings.Contains(out, "[INFO] resolved model model=assistant version=1.2.0") {
		t.Errorf("Unexpected log line: %q", out)
	}
	if !strings.HasPrefix(out, "[test] ") {
		t.Errorf("Missing prefix in %q", out)
	}
}

func TestLoggerOddKeyvals(t *testing.T) {
	logger, buf := newCapturedLogger(Debug)

	logger.Warn("dropping unknown tool grant", "tool")

	out := buf.String()
	if !strings.Contains(out, "[WARN] dropping unknown tool grant") {
		t.Errorf("Unexpected log line: %q", out)
	}
	if strings.Contains(out, "tool=") {
		t.Errorf("Trailing key without a value was formatted: %q", out)
	}
}

func TestNewLoggerDefaultsToWarning(t *testing.T) {
	logger := NewLogger("proxy")
	if logger.level != Warning {
		t.Errorf("NewLogger() level = %d, want %d", logger.level, Warning)
	}

	logger = NewLogger("proxy", Debug)
	if logger.level != Debug {
		t.Errorf("NewLogger(Debug) level = %d, want %d", logger.level, Debug)
	}
}
