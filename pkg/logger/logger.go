// Package logger provides structured logging for the custody service. Key
// hashes, addresses and amounts have typed fields; signatures are only ever
// logged redacted.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger
type Logger struct {
	zlog zerolog.Logger
}

// Config holds logger configuration
type Config struct {
	// Level is the minimum log level (debug, info, warn, error)
	Level string

	// Output is where logs are written (default: os.Stderr)
	Output io.Writer

	// Pretty enables human-readable console output
	Pretty bool

	// TimeFormat for timestamps (default: RFC3339)
	TimeFormat string

	// CallerEnabled adds file and line number to logs
	CallerEnabled bool

	// Component is attached to every entry when set
	Component string
}

// DefaultConfig logs info and above as JSON to stderr
func DefaultConfig() *Config {
	return &Config{
		Level:      "info",
		Output:     os.Stderr,
		TimeFormat: time.RFC3339,
	}
}

// New creates a logger. Each logger keeps its own level.
func New(cfg *Config) *Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: cfg.TimeFormat}
	}

	zctx := zerolog.New(out).Level(ParseLevel(cfg.Level)).With().Timestamp()
	if cfg.CallerEnabled {
		zctx = zctx.Caller()
	}
	if cfg.Component != "" {
		zctx = zctx.Str("component", cfg.Component)
	}
	return &Logger{zlog: zctx.Logger()}
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return &Logger{zlog: zerolog.Nop()}
}

var levels = map[string]zerolog.Level{
	"":        zerolog.InfoLevel,
	"debug":   zerolog.DebugLevel,
	"info":    zerolog.InfoLevel,
	"warn":    zerolog.WarnLevel,
	"warning": zerolog.WarnLevel,
	"error":   zerolog.ErrorLevel,
}

// ParseLevel converts a level name to zerolog.Level. Unknown names map to info.
func ParseLevel(level string) zerolog.Level {
	if lvl, ok := levels[strings.ToLower(strings.TrimSpace(level))]; ok {
		return lvl
	}
	return zerolog.InfoLevel
}

// ValidLevel reports whether ParseLevel recognises the name
func ValidLevel(level string) bool {
	_, ok := levels[strings.ToLower(strings.TrimSpace(level))]
	return ok
}

// With starts a child logger with extra fields
func (l *Logger) With() *Context {
	return &Context{zctx: l.zlog.With()}
}

func (l *Logger) Debug(msg string) { l.zlog.Debug().Msg(msg) }

func (l *Logger) Info(msg string) { l.zlog.Info().Msg(msg) }

func (l *Logger) Warn(msg string) { l.zlog.Warn().Msg(msg) }

func (l *Logger) Error(msg string) { l.zlog.Error().Msg(msg) }

// DebugEvent starts a debug entry
func (l *Logger) DebugEvent() *Event { return &Event{zevent: l.zlog.Debug()} }

// InfoEvent starts an info entry
func (l *Logger) InfoEvent() *Event { return &Event{zevent: l.zlog.Info()} }

// WarnEvent starts a warn entry
func (l *Logger) WarnEvent() *Event { return &Event{zevent: l.zlog.Warn()} }

// ErrorEvent starts an error entry
func (l *Logger) ErrorEvent() *Event { return &Event{zevent: l.zlog.Error()} }

var globalLogger = New(DefaultConfig())

// SetGlobalLogger replaces the process-wide logger. Nil is ignored.
func SetGlobalLogger(logger *Logger) {
	if logger != nil {
		globalLogger = logger
	}
}

// Global returns the process-wide logger
func Global() *Logger {
	return globalLogger
}

// Info logs through the global logger
func Info(msg string) {
	globalLogger.Info(msg)
}

// Error logs through the global logger
func Error(msg string) {
	globalLogger.Error(msg)
}
