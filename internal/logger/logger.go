package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ServiceName is attached to every log entry.
const ServiceName = "manifestproxyd"

// Logger defines a standard interface for logging.
type Logger interface {
	Debugf(format string, v ...interface{})
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
	// With returns a child logger that carries the given field on every entry.
	With(key string, value interface{}) Logger
}

// ZerologLogger is a wrapper around zerolog's structured logger.
type ZerologLogger struct {
	zl zerolog.Logger
}

var timeFormatOnce sync.Once

// NewLogger creates a new logger instance writing JSON to stdout at the specified level.
func NewLogger(level string) Logger {
	return New(os.Stdout, level)
}

// New creates a logger writing JSON lines to w. Unknown levels fall back to info.
func New(w io.Writer, level string) Logger {
	timeFormatOnce.Do(func() {
		zerolog.TimeFieldFormat = time.RFC3339
	})

	zl := zerolog.New(w).
		Level(ParseLevel(level)).
		With().
		Timestamp().
		Str("service", ServiceName).
		Logger()

	return &ZerologLogger{zl: zl}
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return &ZerologLogger{zl: zerolog.Nop()}
}

// ParseLevel maps a level name to a zerolog level.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Debugf logs a message at the debug level.
func (l *ZerologLogger) Debugf(format string, v ...interface{}) {
	l.zl.Debug().Msgf(format, v...)
}

// Infof logs a message at the info level.
func (l *ZerologLogger) Infof(format string, v ...interface{}) {
	l.zl.Info().Msgf(format, v...)
}

// Warnf logs a message at the warn level.
func (l *ZerologLogger) Warnf(format string, v ...interface{}) {
	l.zl.Warn().Msgf(format, v...)
}

// Errorf logs a message at the error level.
func (l *ZerologLogger) Errorf(format string, v ...interface{}) {
	l.zl.Error().Msgf(format, v...)
}

// With returns a child logger annotated with key=value.
func (l *ZerologLogger) With(key string, value interface{}) Logger {
	return &ZerologLogger{zl: l.zl.With().Interface(key, value).Logger()}
}

// Zerolog exposes the underlying zerolog logger for callers that want typed fields.
func (l *ZerologLogger) Zerolog() zerolog.Logger {
	return l.zl
}
