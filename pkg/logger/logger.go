// Package logger provides component-scoped structured logging for the
// application services.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps a zerolog logger with a component name and accumulated fields.
type Logger struct {
	zl zerolog.Logger
}

// NewDefault returns a logger scoped to the given component, writing JSON to
// stderr at the level named by LOG_LEVEL (info when unset or unknown).
func NewDefault(component string) *Logger {
	return New(component, os.Stderr)
}

// New returns a logger scoped to the given component writing to w.
func New(component string, w io.Writer) *Logger {
	zl := zerolog.New(w).Level(levelFromEnv()).With().
		Timestamp().
		Str("component", component).
		Logger()
	return &Logger{zl: zl}
}

func levelFromEnv() zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL"))) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// SetOutput redirects the logger output. Intended for tests.
func (l *Logger) SetOutput(w io.Writer) {
	l.zl = l.zl.Output(w)
}

// WithField returns a logger with an additional field attached.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{zl: l.zl.With().Interface(key, value).Logger()}
}

// WithFields returns a logger with all given fields attached.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	ctx := l.zl.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &Logger{zl: ctx.Logger()}
}

// WithError returns a logger with the error attached.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{zl: l.zl.With().Err(err).Logger()}
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string) { l.zl.Debug().Msg(msg) }

// Info logs at info level.
func (l *Logger) Info(msg string) { l.zl.Info().Msg(msg) }

// Warn logs at warn level.
func (l *Logger) Warn(msg string) { l.zl.Warn().Msg(msg) }

// Error logs at error level.
func (l *Logger) Error(msg string) { l.zl.Error().Msg(msg) }

// LogRequest records one handled HTTP request.
func (l *Logger) LogRequest(traceID, method, path string, status int, duration time.Duration) {
	l.zl.Info().
		Str("trace_id", traceID).
		Str("method", method).
		Str("path", path).
		Int("status", status).
		Dur("duration", duration).
		Msg("request handled")
}
