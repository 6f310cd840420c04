package logging

import (
	"log"
	"os"
)

// Level represents different logging verbosity levels
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
	LevelTrace
)

// Logger provides leveled logging plus a best-effort audit channel
type Logger struct {
	level Level
}

// New creates a new logger with the specified level
func New(level Level) *Logger {
	return &Logger{level: level}
}

// NewDefault creates a logger based on the LOG_LEVEL environment variable
func NewDefault() *Logger {
	level := LevelInfo // default
	if levelStr := os.Getenv("LOG_LEVEL"); levelStr != "" {
		switch levelStr {
		case "ERROR":
			level = LevelError
		case "WARN":
			level = LevelWarn
		case "INFO":
			level = LevelInfo
		case "DEBUG":
			level = LevelDebug
		case "TRACE":
			level = LevelTrace
		}
	}
	return &Logger{level: level}
}

// Error logs error messages
func (l *Logger) Error(format string, args ...interface{}) {
	if l.level >= LevelError {
		log.Printf("[ERROR] "+format, args...)
	}
}

// Warn logs warning messages
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.level >= LevelWarn {
		log.Printf("[WARN] "+format, args...)
	}
}

// Info logs info messages
func (l *Logger) Info(format string, args ...interface{}) {
	if l.level >= LevelInfo {
		log.Printf("[INFO] "+format, args...)
	}
}

// Debug logs debug messages
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.level >= LevelDebug {
		log.Printf("[DEBUG] "+format, args...)
	}
}

// Trace logs trace messages
func (l *Logger) Trace(format string, args ...interface{}) {
	if l.level >= LevelTrace {
		log.Printf("[TRACE] "+format, args...)
	}
}

// Event records a structured audit event. Audit logging is best effort:
// it is always emitted regardless of level and never reports failure,
// so a broken sink can never abort a training run.
func (l *Logger) Event(name string, kv ...interface{}) {
	line := "[EVENT] " + name
	for i := 0; i+1 < len(kv); i += 2 {
		line += " %v=%v"
	}
	args := make([]interface{}, 0, len(kv))
	for i := 0; i+1 < len(kv); i += 2 {
		args = append(args, kv[i], kv[i+1])
	}
	log.Printf(line, args...)
}
