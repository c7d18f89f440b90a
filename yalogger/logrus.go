package yalogger

import (
	"maps"
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// logrusAdapter implements Logger over a logrus.Entry.
type logrusAdapter struct {
	entry *logrus.Entry
}

type baseLogrus struct {
	logger *logrus.Logger
}

// NewBaseLogger creates and configures a new base logger.
//
// A nil config produces a debug-level text logger without timestamps.
//
// Example usage:
//
//	log := yalogger.NewBaseLogger(&yalogger.Config{Level: yalogger.InfoLevel}).NewLogger()
//	log.Info("starting")
//
// Notes:
//
//   - If the logger type specified in config is not supported, the function panics.
func NewBaseLogger(config *Config) BaseLogger {
	if config == nil {
		config = &Config{
			BaseLoggerType:   Logrus,
			Level:            DebugLevel,
			TimestampFormat:  "2006-01-02 15:04:05",
			DisableTimestamp: true,
		}
	}

	switch config.BaseLoggerType {
	case Logrus:
		base := logrus.New()
		base.SetLevel(logrus.Level(config.Level))

		if config.Output != nil {
			base.SetOutput(config.Output)
		} else {
			base.SetOutput(os.Stderr)
		}

		if config.JSON {
			base.SetFormatter(&logrus.JSONFormatter{
				TimestampFormat:  config.TimestampFormat,
				DisableTimestamp: config.DisableTimestamp,
			})
		} else {
			base.SetFormatter(&logrus.TextFormatter{
				FullTimestamp:    config.FullTimestamp,
				TimestampFormat:  config.TimestampFormat,
				DisableTimestamp: config.DisableTimestamp,
			})
		}

		return &baseLogrus{logger: base}
	default:
		panic("Unsupported logger type, you are a teapot!!!")
	}
}

// NewLogger wraps the base logrus.Logger into a fresh entry.
func (b *baseLogrus) NewLogger() Logger {
	return &logrusAdapter{entry: logrus.NewEntry(b.logger)}
}

func (l *logrusAdapter) Info(msg string) {
	l.entry.Info(msg)
}

func (l *logrusAdapter) Infof(format string, args ...any) {
	l.entry.Infof(format, args...)
}

func (l *logrusAdapter) Trace(msg string) {
	l.entry.Trace(msg)
}

func (l *logrusAdapter) Tracef(format string, args ...any) {
	l.entry.Tracef(format, args...)
}

func (l *logrusAdapter) Debug(msg string) {
	l.entry.Debug(msg)
}

func (l *logrusAdapter) Debugf(format string, args ...any) {
	l.entry.Debugf(format, args...)
}

func (l *logrusAdapter) Warn(msg string) {
	l.entry.Warn(msg)
}

func (l *logrusAdapter) Warnf(format string, args ...any) {
	l.entry.Warnf(format, args...)
}

func (l *logrusAdapter) Error(msg string) {
	l.entry.Error(msg)
}

func (l *logrusAdapter) Errorf(format string, args ...any) {
	l.entry.Errorf(format, args...)
}

func (l *logrusAdapter) Fatal(msg string) {
	l.entry.Fatal(msg)
}

func (l *logrusAdapter) Fatalf(format string, args ...any) {
	l.entry.Fatalf(format, args...)
}

// WithField returns a child logger; the receiver is left untouched.
func (l *logrusAdapter) WithField(key string, value any) Logger {
	return &logrusAdapter{entry: l.entry.WithField(key, value)}
}

func (l *logrusAdapter) WithFields(fields map[string]any) Logger {
	return &logrusAdapter{entry: l.entry.WithFields(logrus.Fields(fields))}
}

func (l *logrusAdapter) WithRequestUUID(id uuid.UUID) Logger {
	return l.WithField(KeyRequestID, id.String())
}

func (l *logrusAdapter) WithRandomRequestID() Logger {
	return l.WithRequestUUID(uuid.New())
}

func (l *logrusAdapter) WithUserID(userID int64) Logger {
	return l.WithField(KeyUserID, userID)
}

func (l *logrusAdapter) WithBot(name string) Logger {
	return l.WithField(KeyBot, name)
}

func (l *logrusAdapter) GetFields() map[string]any {
	return maps.Clone(map[string]any(l.entry.Data))
}
