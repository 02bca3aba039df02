package types

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// Logger defines the interface for logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// DefaultLogger is the default logger implementation.
type DefaultLogger struct {
	debug  bool
	logger *log.Logger
}

// NewDefaultLogger creates a new default logger writing to stdout.
func NewDefaultLogger(debug bool) *DefaultLogger {
	return &DefaultLogger{
		debug:  debug,
		logger: log.New(os.Stdout, "[flagcache] ", log.LstdFlags),
	}
}

func (l *DefaultLogger) formatMessage(level, msg string, keysAndValues ...any) string {
	if len(keysAndValues) == 0 {
		return level + " " + msg
	}

	var b strings.Builder
	b.WriteString(level)
	b.WriteByte(' ')
	b.WriteString(msg)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fmt.Fprintf(&b, " %v=%v", keysAndValues[i], keysAndValues[i+1])
	}
	return b.String()
}

// Debug logs a debug message.
func (l *DefaultLogger) Debug(msg string, keysAndValues ...any) {
	if l.debug {
		l.logger.Println(l.formatMessage("DEBUG", msg, keysAndValues...))
	}
}

// Info logs an info message.
func (l *DefaultLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Println(l.formatMessage("INFO", msg, keysAndValues...))
}

// Warn logs a warning message.
func (l *DefaultLogger) Warn(msg string, keysAndValues ...any) {
	l.logger.Println(l.formatMessage("WARN", msg, keysAndValues...))
}

// Error logs an error message.
func (l *DefaultLogger) Error(msg string, keysAndValues ...any) {
	l.logger.Println(l.formatMessage("ERROR", msg, keysAndValues...))
}

// NullLogger is a logger that discards all messages.
type NullLogger struct{}

func (l *NullLogger) Debug(msg string, keysAndValues ...any) {}
func (l *NullLogger) Info(msg string, keysAndValues ...any)  {}
func (l *NullLogger) Warn(msg string, keysAndValues ...any)  {}
func (l *NullLogger) Error(msg string, keysAndValues ...any) {}

// OrNull returns logger, or a NullLogger when logger is nil.
func OrNull(logger Logger) Logger {
	if logger == nil {
		return &NullLogger{}
	}
	return logger
}
