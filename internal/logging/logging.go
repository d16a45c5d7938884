// Package logging wraps zap with the small printf-style surface the service uses.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger writes structured log lines. A message containing printf verbs is
// formatted with its arguments; any other message takes alternating key/value
// pairs, as does With.
type Logger struct {
	s *zap.SugaredLogger
}

// Options configures NewLogger.
type Options struct {
	// Level is one of debug, info, warn or error. Defaults to info.
	Level string
	// Development switches to console encoding with caller and stack traces.
	Development bool
	// Service is attached to every entry as the "service" field.
	Service string
}

// NewLogger creates a new Logger.
func NewLogger(opts Options) (*Logger, error) {
	var cfg zap.Config
	if opts.Development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	level := zapcore.InfoLevel
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(opts.Level))); err != nil {
			return nil, fmt.Errorf("logging: invalid level %q: %w", opts.Level, err)
		}
	}
	cfg.Level.SetLevel(level)

	if opts.Service != "" {
		cfg.InitialFields = map[string]interface{}{"service": opts.Service}
	}

	z, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, fmt.Errorf("logging: build: %w", err)
	}
	return &Logger{s: z.Sugar()}, nil
}

// NewNop returns a Logger that discards everything.
func NewNop() *Logger {
	return &Logger{s: zap.NewNop().Sugar()}
}

// New wraps an existing zap logger.
func New(z *zap.Logger) *Logger {
	return &Logger{s: z.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

// With returns a child Logger carrying the given key/value pairs.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{s: l.s.With(keysAndValues...)}
}

// Zap exposes the underlying logger for libraries that take one.
func (l *Logger) Zap() *zap.Logger {
	return l.s.Desugar()
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.s.Sync()
}

// Info logs an informational message.
func (l *Logger) Info(msg string, args ...interface{}) {
	l.log(zapcore.InfoLevel, msg, args)
}

// Warn logs a message about a recoverable problem.
func (l *Logger) Warn(msg string, args ...interface{}) {
	l.log(zapcore.WarnLevel, msg, args)
}

// Error logs an error message.
func (l *Logger) Error(msg string, args ...interface{}) {
	l.log(zapcore.ErrorLevel, msg, args)
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, args ...interface{}) {
	l.log(zapcore.DebugLevel, msg, args)
}

// log formats msg with args when it carries printf verbs and otherwise treats
// args as alternating key/value pairs.
func (l *Logger) log(level zapcore.Level, msg string, args []interface{}) {
	if strings.Contains(msg, "%") {
		l.s.Logf(level, msg, args...)
		return
	}
	l.s.Logw(level, msg, args...)
}
