// Package logger provides component-scoped loggers shared across netspeak's
// packages, all backed by charmbracelet/log so every subsystem logs with a
// consistent prefix, level, and format.
package logger

import (
	"os"

	"github.com/charmbracelet/log"
)

// New creates a logger for the named component (e.g. "corpus", "postings",
// "regexindex") that respects the process-wide log level.
func New(component string) *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          component,
		ReportCaller:    false,
		ReportTimestamp: true,
		Formatter:       log.TextFormatter,
		Level:           log.GetLevel(),
	})
}

// NewWithLevel creates a component logger pinned to an explicit level,
// independent of the global level.
func NewWithLevel(component string, level log.Level) *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          component,
		ReportCaller:    false,
		ReportTimestamp: true,
		Formatter:       log.TextFormatter,
		Level:           level,
	})
}
