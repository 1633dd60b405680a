// Package logging builds the structured pterm loggers shared by the engine
// components. Engine code never prints directly; it logs through a
// *pterm.Logger handed to it at construction time.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/pterm/pterm"
)

// New creates a logger writing to stderr at the given level.
// Unknown levels fall back to warn. format is "colorful" or "json".
func New(level, format string) *pterm.Logger {
	return NewWithWriter(os.Stderr, level, format)
}

// NewWithWriter creates a logger writing to w
func NewWithWriter(w io.Writer, level, format string) *pterm.Logger {
	logger := pterm.DefaultLogger.
		WithWriter(w).
		WithLevel(ParseLevel(level))

	if strings.EqualFold(format, "json") {
		logger = logger.WithFormatter(pterm.LogFormatterJSON)
	}
	return logger
}

// Discard returns a logger that drops everything. Used by tests and by
// callers that have no logger of their own.
func Discard() *pterm.Logger {
	return pterm.DefaultLogger.WithWriter(io.Discard).WithLevel(pterm.LogLevelDisabled)
}

// OrDiscard returns l, or a discarding logger when l is nil
func OrDiscard(l *pterm.Logger) *pterm.Logger {
	if l == nil {
		return Discard()
	}
	return l
}

// ParseLevel maps a config string onto a pterm level
func ParseLevel(level string) pterm.LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return pterm.LogLevelTrace
	case "debug":
		return pterm.LogLevelDebug
	case "info":
		return pterm.LogLevelInfo
	case "error":
		return pterm.LogLevelError
	case "off", "disabled", "none":
		return pterm.LogLevelDisabled
	default:
		return pterm.LogLevelWarn
	}
}
