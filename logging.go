package sqlapply

import (
	"io"

	"github.com/loykin/sqlapply/internal/common"
)

// Re-export logging types and functions for public API
type Logger = common.Logger
type LogLevel = common.LogLevel
type LogFormat = common.Format

const (
	LogLevelError = common.LogLevelError
	LogLevelWarn  = common.LogLevelWarn
	LogLevelInfo  = common.LogLevelInfo
	LogLevelDebug = common.LogLevelDebug

	LogFormatText  = common.FormatText
	LogFormatJSON  = common.FormatJSON
	LogFormatColor = common.FormatColor
)

// NewLogger creates a text logger on stderr.
func NewLogger(level LogLevel) *Logger { return common.NewLogger(level) }

// NewJSONLogger creates a JSON logger on stderr.
func NewJSONLogger(level LogLevel) *Logger { return common.NewJSONLogger(level) }

// NewColorLogger creates a colorized logger on stderr.
func NewColorLogger(level LogLevel) *Logger { return common.NewColorLogger(level) }

// NewLoggerTo creates a logger writing to w in the given format.
func NewLoggerTo(w io.Writer, level LogLevel, format LogFormat) *Logger {
	return common.New(w, level, format)
}

func ParseLogLevel(s string) (LogLevel, error) { return common.ParseLogLevel(s) }

func ParseLogFormat(s string) (LogFormat, error) { return common.ParseFormat(s) }

// SetDefaultLogger sets the logger used by Apply.
func SetDefaultLogger(logger *Logger) { common.SetDefaultLogger(logger) }

func GetLogger() *Logger { return common.GetLogger() }
