package utils

import (
	"fmt"
	"log"
	"os"
)

// LogLevel orders log severities; messages below the logger's level are
// dropped.
type LogLevel int

const (
	Error   LogLevel = 40
	Warning LogLevel = 30
	Info    LogLevel = 20
	Debug   LogLevel = 10
)

// Logger writes leveled, prefixed messages with key-value context. The level
// is fixed at construction, so a Logger is safe for concurrent use.
type Logger struct {
	out   *log.Logger
	level LogLevel
}

// NewLogger creates a logger with the given prefix. The level defaults to
// Warning.
func NewLogger(prefix string, level ...LogLevel) *Logger {
	threshold := Warning
	if len(level) > 0 {
		threshold = level[0]
	}
	return &Logger{
		out:   log.New(os.Stdout, fmt.Sprintf("[%s] ", prefix), log.LstdFlags),
		level: threshold,
	}
}

// Error logs an error message
func (l *Logger) Error(msg string, keyvals ...interface{}) {
	if l.level > Error {
		return
	}
	l.out.Println(formatMessage("ERROR", msg, keyvals...))
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, keyvals ...interface{}) {
	if l.level > Warning {
		return
	}
	l.out.Println(formatMessage("WARN", msg, keyvals...))
}

// Info logs an informational message
func (l *Logger) Info(msg string, keyvals ...interface{}) {
	if l.level > Info {
		return
	}
	l.out.Println(formatMessage("INFO", msg, keyvals...))
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, keyvals ...interface{}) {
	if l.level > Debug {
		return
	}
	l.out.Println(formatMessage("DEBUG", msg, keyvals...))
}

// formatMessage appends key-value pairs to the message. A trailing key
// without a value is dropped.
func formatMessage(level, msg string, keyvals ...interface{}) string {
	formatted := fmt.Sprintf("[%s] %s", level, msg)
	for i := 0; i+1 < len(keyvals); i += 2 {
		formatted += fmt.Sprintf(" %v=%v", keyvals[i], keyvals[i+1])
	}
	return formatted
}
