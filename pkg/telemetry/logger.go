package telemetry

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// timeFormat is the session timestamp layout used on console and in the
// log file.
const timeFormat = "15:04:05"

// Logger wraps zerolog.Logger with deskforge-specific functionality.
type Logger struct {
	zlog zerolog.Logger
}

// NewConsole creates a logger writing human-readable output to stderr only.
// Used before the session log file exists and in tests.
func NewConsole() *Logger {
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: timeFormat}
	return &Logger{zlog: zerolog.New(writer).With().Timestamp().Logger()}
}

// NewWriter creates a logger emitting to an arbitrary writer. Tests use
// this to capture output.
func NewWriter(w io.Writer) *Logger {
	return &Logger{zlog: zerolog.New(w).With().Timestamp().Logger()}
}

// NewSession creates a logger that writes colorized output to stderr and
// mirrors every record, uncolored, to the append-only session log file at
// logPath. The caller must invoke the returned close function on every
// exit path.
func NewSession(logPath string) (*Logger, func() error, error) {
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return nil, nil, err
	}

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: timeFormat}
	mirror := zerolog.ConsoleWriter{Out: file, TimeFormat: timeFormat, NoColor: true}
	writer := zerolog.MultiLevelWriter(console, mirror)

	logger := &Logger{zlog: zerolog.New(writer).With().Timestamp().Logger()}
	return logger, file.Close, nil
}

// Component creates a child logger tagged with a pipeline stage name.
func (l *Logger) Component(name string) *Logger {
	return &Logger{zlog: l.zlog.With().Str("component", name).Logger()}
}

// WithError returns a logger with error context attached.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{zlog: l.zlog.With().Err(err).Logger()}
}

// Debugf logs a formatted debug-level message.
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.zlog.Debug().Msgf(format, args...)
}

// Info logs an info-level message.
func (l *Logger) Info(msg string) {
	l.zlog.Info().Msg(msg)
}

// Infof logs a formatted info-level message.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.zlog.Info().Msgf(format, args...)
}

// Warn logs a warning-level message.
func (l *Logger) Warn(msg string) {
	l.zlog.Warn().Msg(msg)
}

// Warnf logs a formatted warning-level message.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.zlog.Warn().Msgf(format, args...)
}

// Error logs an error-level message.
func (l *Logger) Error(msg string) {
	l.zlog.Error().Msg(msg)
}

// Errorf logs a formatted error-level message.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.zlog.Error().Msgf(format, args...)
}

// DryRunf announces a simulated action. Records carry mode=dry-run so a
// session log from a simulation is unmistakable.
func (l *Logger) DryRunf(format string, args ...interface{}) {
	l.zlog.Info().Str("mode", "dry-run").Msgf(format, args...)
}
