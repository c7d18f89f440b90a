package yalogger

import (
	"errors"
	"io"
	"strings"
)

// ErrInvalidLogLevel is returned when a level name cannot be parsed.
var ErrInvalidLogLevel = errors.New("invalid log level")

func (l Level) String() string {
	switch l {
	case PanicLevel:
		return "panic"
	case FatalLevel:
		return "fatal"
	case ErrorLevel:
		return "error"
	case WarnLevel:
		return "warn"
	case InfoLevel:
		return "info"
	case DebugLevel:
		return "debug"
	case TraceLevel:
		return "trace"
	default:
		return "unknown"
	}
}

// Unmarshal parses a case-insensitive level name.
func (l *Level) Unmarshal(text string) error {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "panic":
		*l = PanicLevel
	case "fatal":
		*l = FatalLevel
	case "error":
		*l = ErrorLevel
	case "warn", "warning":
		*l = WarnLevel
	case "info":
		*l = InfoLevel
	case "debug":
		*l = DebugLevel
	case "trace":
		*l = TraceLevel
	default:
		return ErrInvalidLogLevel
	}

	return nil
}

// UnmarshalText lets env and YAML decoders fill a Level from its name.
func (l *Level) UnmarshalText(text []byte) error {
	return l.Unmarshal(string(text))
}

// NewTestLogger returns a logger that discards everything below panic level.
func NewTestLogger() Logger {
	return NewBaseLogger(&Config{
		Level:            PanicLevel,
		DisableTimestamp: true,
		Output:           io.Discard,
	}).NewLogger()
}
