package common

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogLevel represents logging verbosity levels
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case LogLevelError:
		return "error"
	case LogLevelWarn:
		return "warn"
	case LogLevelDebug:
		return "debug"
	default:
		return "info"
	}
}

// ToSlogLevel converts LogLevel to slog.Level
func (l LogLevel) ToSlogLevel() slog.Level {
	switch l {
	case LogLevelError:
		return slog.LevelError
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelDebug:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// ParseLogLevel accepts error, warn(ing), info and debug. Empty means info.
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return LogLevelError, nil
	case "warn", "warning":
		return LogLevelWarn, nil
	case "info", "":
		return LogLevelInfo, nil
	case "debug":
		return LogLevelDebug, nil
	default:
		return LogLevelInfo, fmt.Errorf("invalid logging level: %s (valid: error, warn, info, debug)", s)
	}
}

// Format selects the handler used by a Logger.
type Format string

const (
	FormatText  Format = "text"
	FormatJSON  Format = "json"
	FormatColor Format = "color"
)

// ParseFormat accepts text, json and color (or colour). Empty means text.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "color", "colour":
		return FormatColor, nil
	default:
		return FormatText, fmt.Errorf("invalid logging format: %s (valid: text, json, color)", s)
	}
}

// Logger wraps slog with the context helpers used across sqlapply.
// Loggers derived through the With* helpers share the parent's Masker.
type Logger struct {
	*slog.Logger
	level  LogLevel
	masker *Masker
}

// New builds a logger writing to w in the given format.
func New(w io.Writer, level LogLevel, format Format) *Logger {
	masker := NewMasker()
	opts := &slog.HandlerOptions{
		Level: level.ToSlogLevel(),
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			return masker.MaskAttr(a)
		},
	}

	var handler slog.Handler
	switch format {
	case FormatJSON:
		handler = slog.NewJSONHandler(w, opts)
	case FormatColor:
		ch := NewColorHandler(w, opts)
		ch.SetMasker(masker)
		ch.SetColorEnabled(true)
		handler = ch
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	return &Logger{Logger: slog.New(handler), level: level, masker: masker}
}

// NewLogger creates a text logger on stderr. Stdout is reserved for command output.
func NewLogger(level LogLevel) *Logger {
	return New(os.Stderr, level, FormatText)
}

// NewJSONLogger creates a JSON logger on stderr.
func NewJSONLogger(level LogLevel) *Logger {
	return New(os.Stderr, level, FormatJSON)
}

// NewColorLogger creates a colorized logger on stderr.
func NewColorLogger(level LogLevel) *Logger {
	return New(os.Stderr, level, FormatColor)
}

// Level returns the current log level
func (l *Logger) Level() LogLevel {
	return l.level
}

func (l *Logger) with(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...), level: l.level, masker: l.masker}
}

// WithComponent returns a logger with component context
func (l *Logger) WithComponent(component string) *Logger {
	return l.with("component", component)
}

// WithDriver returns a logger tagged with the database driver name
func (l *Logger) WithDriver(driver string) *Logger {
	return l.with("driver", driver)
}

// WithStatement returns a logger tagged with a 1-based statement index
func (l *Logger) WithStatement(index int) *Logger {
	return l.with("statement", index)
}

// WithRunID returns a logger tagged with the id of the current run
func (l *Logger) WithRunID(id string) *Logger {
	return l.with("run_id", id)
}

// EnableMasking toggles masking for this logger and every logger derived from it.
func (l *Logger) EnableMasking(enabled bool) {
	if l.masker != nil {
		l.masker.SetEnabled(enabled)
	}
}

func (l *Logger) IsMaskingEnabled() bool {
	return l.masker != nil && l.masker.IsEnabled()
}

func (l *Logger) GetMasker() *Masker {
	return l.masker
}

// Discard returns a logger that drops every record. Useful in tests.
func Discard() *Logger {
	return &Logger{Logger: slog.New(discardHandler{}), level: LogLevelError, masker: NewMasker()}
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

var defaultLogger = NewLogger(LogLevelInfo)

// SetDefaultLogger sets the global default logger
func SetDefaultLogger(logger *Logger) {
	if logger != nil {
		defaultLogger = logger
	}
}

// GetLogger returns the default logger
func GetLogger() *Logger {
	return defaultLogger
}
