package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger wraps logrus to provide structured, component-scoped logging.
type Logger struct {
	entry *logrus.Entry
}

// Init configures the global logrus state. It must be called once at startup,
// before any Logger is created.
// level accepts the usual logrus names ("debug", "info", "warn", "error");
// unknown values fall back to info.
func Init(level string) {
	logrus.SetFormatter(&logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})
	logrus.SetOutput(os.Stdout)

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logrus.SetLevel(parsed)
}

// New creates a Logger scoped to the given component name.
func New(component string) *Logger {
	return &Logger{
		entry: logrus.WithField("component", component),
	}
}

// WithField returns a Logger with an extra field attached to every entry.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{entry: l.entry.WithField(key, value)}
}

// Info logs a message at info level.
func (l *Logger) Info(message string) {
	l.entry.Info(message)
}

// Infof logs a formatted message at info level.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.entry.Infof(format, args...)
}

// Warn logs a message at warning level.
func (l *Logger) Warn(message string) {
	l.entry.Warn(message)
}

// Warnf logs a formatted message at warning level.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.entry.Warnf(format, args...)
}

// Error logs a message at error level.
func (l *Logger) Error(message string) {
	l.entry.Error(message)
}

// Errorf logs a formatted message at error level.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.entry.Errorf(format, args...)
}

// Debug logs a message at debug level.
func (l *Logger) Debug(message string) {
	l.entry.Debug(message)
}

// Debugf logs a formatted message at debug level.
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.entry.Debugf(format, args...)
}

// Fatal logs a message at fatal level and exits the process.
func (l *Logger) Fatal(message string) {
	l.entry.Fatal(message)
}
