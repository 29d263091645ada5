package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logger configuration
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output io.Writer
}

// Logger wraps a zerolog.Logger with field helpers
type Logger struct {
	logger zerolog.Logger
}

// New creates a logger writing JSON lines, or human-readable lines when
// Format is "console"
func New(cfg Config) *Logger {
	var output io.Writer = os.Stdout
	if cfg.Output != nil {
		output = cfg.Output
	}

	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}

	logger := zerolog.New(output).
		Level(parseLevel(cfg.Level)).
		With().
		Timestamp().
		Logger()

	return &Logger{logger: logger}
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return &Logger{logger: zerolog.Nop()}
}

// Debug logs msg at debug level
func (l *Logger) Debug(msg string) {
	l.logger.Debug().Msg(msg)
}

// Info logs msg at info level
func (l *Logger) Info(msg string) {
	l.logger.Info().Msg(msg)
}

// Warn logs msg at warn level
func (l *Logger) Warn(msg string) {
	l.logger.Warn().Msg(msg)
}

// Error logs msg at error level
func (l *Logger) Error(msg string) {
	l.logger.Error().Msg(msg)
}

// Fatal logs the message and exits the process with status 1
func (l *Logger) Fatal(msg string) {
	l.logger.Fatal().Msg(msg)
}

// WithField returns a child logger carrying key=value
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{logger: l.logger.With().Interface(key, value).Logger()}
}

// WithFields returns a child logger carrying every field
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	return &Logger{logger: l.logger.With().Fields(fields).Logger()}
}

// WithError returns a child logger carrying err
func (l *Logger) WithError(err error) *Logger {
	return &Logger{logger: l.logger.With().Err(err).Logger()}
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
