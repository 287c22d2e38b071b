// Package logging provides the charmbracelet logger used by the analysis
// packages. It is configured from the environment:
//
//	FSPATCH_LOG_LEVEL:   debug, info, warn, error (default: info)
//	FSPATCH_LOG_PREFIX:  prefix for log lines (default: "fspatch ")
//	FSPATCH_LOG_TO_FILE: "1" writes to fspatch-<timestamp>-debug.log
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

const (
	envLevel  = "FSPATCH_LOG_LEVEL"
	envPrefix = "FSPATCH_LOG_PREFIX"
	envToFile = "FSPATCH_LOG_TO_FILE"
)

// LoggerCloser wraps a logger and closes its output when that is a file.
type LoggerCloser struct {
	*log.Logger
	closer io.Closer
}

// Close closes the underlying writer if it's closeable
func (lc *LoggerCloser) Close() error {
	if lc.closer != nil {
		return lc.closer.Close()
	}
	return nil
}

// NewLoggerWithWriter creates a logger writing to w.
func NewLoggerWithWriter(w io.Writer) *LoggerCloser {
	lg := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	})
	lg.SetLevel(ParseLevel(os.Getenv(envLevel)))

	prefix := os.Getenv(envPrefix)
	if prefix == "" {
		prefix = "fspatch "
	}

	var closer io.Closer
	if c, ok := w.(io.Closer); ok && w != os.Stderr && w != os.Stdout {
		closer = c
	}

	return &LoggerCloser{
		Logger: lg.WithPrefix(prefix),
		closer: closer,
	}
}

// NewLogger creates a logger on stderr, or on a timestamped file when
// FSPATCH_LOG_TO_FILE=1.
func NewLogger() *LoggerCloser {
	output := io.Writer(os.Stderr)

	if os.Getenv(envToFile) == "1" {
		logFile := fmt.Sprintf("fspatch-%s-debug.log", time.Now().Format("20060102-150405"))
		f, err := os.OpenFile(logFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err == nil {
			output = f
		}
		// If file creation fails, fall back to stderr
	}

	return NewLoggerWithWriter(output)
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.New(io.Discard)
}

// ParseLevel maps a level name to a log level, defaulting to info.
func ParseLevel(s string) log.Level {
	switch s {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// IsDebug returns true if debug logging is enabled
func IsDebug() bool {
	return os.Getenv(envLevel) == "debug"
}
