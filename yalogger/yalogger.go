// Package yalogger is the structured logging facade of the module.
//
// Every component receives a Logger and derives child loggers with extra
// context fields (bot name, update offset, user id, request id) instead of
// formatting that context into messages.
package yalogger

import (
	"io"

	"github.com/google/uuid"
)

// Level is the minimum severity a logger writes. The order matches logrus.
type Level uint8

const (
	PanicLevel Level = iota
	FatalLevel
	ErrorLevel
	WarnLevel
	InfoLevel
	DebugLevel
	TraceLevel
)

// BaseLoggerType selects the backend of a BaseLogger.
type BaseLoggerType uint8

const (
	Logrus BaseLoggerType = iota
)

// Well-known context keys.
const (
	KeyRequestID = "request_id"
	KeyUserID    = "user_id"
	KeyBot       = "bot"
)

// Config defines the configuration options for the logger.
//
// Output defaults to os.Stderr when nil.
type Config struct {
	BaseLoggerType   BaseLoggerType `env:"LOG_BACKEND" envDefault:"0"`
	Level            Level          `env:"LOG_LEVEL"   envDefault:"info"`
	FullTimestamp    bool           `env:"LOG_FULL_TIMESTAMP"`
	DisableTimestamp bool           `env:"LOG_DISABLE_TIMESTAMP"`
	TimestampFormat  string         `env:"LOG_TIMESTAMP_FORMAT" envDefault:"2006-01-02 15:04:05"`
	JSON             bool           `env:"LOG_JSON"`
	Output           io.Writer
}

// BaseLogger creates Logger instances sharing one backend.
type BaseLogger interface {
	// NewLogger creates a new Logger without context fields.
	NewLogger() Logger
}

// Logger defines a structured logging interface with support for various log levels,
// formatting, and context-aware logging using key-value fields.
type Logger interface {
	// Info logs a message at the Info level.
	//
	// Example usage:
	//
	//   logger.Info("Application started")
	Info(msg string)

	// Infof logs a formatted message at the Info level.
	//
	// Example usage:
	//
	//   logger.Infof("Listening on port %d", port)
	Infof(format string, args ...any)

	// Trace logs a message at the Trace level.
	Trace(msg string)

	// Tracef logs a formatted message at the Trace level.
	Tracef(format string, args ...any)

	// Debug logs a message at the Debug level.
	Debug(msg string)

	// Debugf logs a formatted message at the Debug level.
	//
	// Example usage:
	//
	//   logger.Debugf("Polled %d updates", len(batch))
	Debugf(format string, args ...any)

	// Warn logs a message at the Warn level.
	Warn(msg string)

	// Warnf logs a formatted message at the Warn level.
	Warnf(format string, args ...any)

	// Error logs a message at the Error level.
	Error(msg string)

	// Errorf logs a formatted message at the Error level.
	//
	// Example usage:
	//
	//   logger.Errorf("Failed to save user %d: %v", id, err)
	Errorf(format string, args ...any)

	// Fatal logs a message at the Fatal level and exits the process.
	Fatal(msg string)

	// Fatalf logs a formatted message at the Fatal level and exits the process.
	Fatalf(format string, args ...any)

	// WithField returns a logger with a single field added to the context.
	//
	// Example usage:
	//
	//   logger.WithField("offset", upd.Offset)
	WithField(key string, value any) Logger

	// WithFields returns a logger with multiple fields added to the context.
	//
	// Example usage:
	//
	//   logger.WithFields(map[string]any{"bot": name, "mode": "polling"})
	WithFields(fields map[string]any) Logger

	// WithRequestUUID returns a logger carrying id under KeyRequestID.
	WithRequestUUID(id uuid.UUID) Logger

	// WithRandomRequestID returns a logger carrying a fresh random UUID under KeyRequestID.
	WithRandomRequestID() Logger

	// WithUserID returns a logger carrying userID under KeyUserID.
	WithUserID(userID int64) Logger

	// WithBot returns a logger carrying the bot name under KeyBot.
	WithBot(name string) Logger

	// GetFields returns a copy of the context fields.
	GetFields() map[string]any
}
