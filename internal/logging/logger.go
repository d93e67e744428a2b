// Package logging builds the charmbracelet/log logger that traces decode
// drops and command progress.
//
// Environment:
//
//	LA32RSTATS_LOG_LEVEL   debug, info, warn, error or fatal (default info)
//	LA32RSTATS_LOG_PREFIX  message prefix (default "la32rstats ")
//	LA32RSTATS_LOG_TO_FILE "1" writes to la32rstats-<time>-debug.log
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

const (
	EnvLevel  = "LA32RSTATS_LOG_LEVEL"
	EnvPrefix = "LA32RSTATS_LOG_PREFIX"
	EnvToFile = "LA32RSTATS_LOG_TO_FILE"

	defaultPrefix = "la32rstats "
)

// LoggerCloser is a logger that owns its destination. Close releases a
// log file; the standard streams are never closed.
type LoggerCloser struct {
	*log.Logger
	closer io.Closer
}

func (lc *LoggerCloser) Close() error {
	if lc.closer == nil {
		return nil
	}
	err := lc.closer.Close()
	lc.closer = nil
	return err
}

// NewLoggerWithWriter logs to w with the level and prefix from the
// environment. w is closed by Close when it is an io.Closer other than
// os.Stdout or os.Stderr.
func NewLoggerWithWriter(w io.Writer) *LoggerCloser {
	prefix := os.Getenv(EnvPrefix)
	if prefix == "" {
		prefix = defaultPrefix
	}
	lc := &LoggerCloser{
		Logger: log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			TimeFormat:      time.Kitchen,
			Level:           LevelFromEnv(),
			Prefix:          prefix,
		}),
	}
	if c, ok := w.(io.Closer); ok && w != os.Stderr && w != os.Stdout {
		lc.closer = c
	}
	return lc
}

// NewLogger logs to stderr, or to a timestamped file in the working
// directory when LA32RSTATS_LOG_TO_FILE=1. A file that cannot be created
// falls back to stderr.
func NewLogger() *LoggerCloser {
	if os.Getenv(EnvToFile) != "1" {
		return NewLoggerWithWriter(os.Stderr)
	}
	name := fmt.Sprintf("la32rstats-%s-debug.log", time.Now().Format("20060102-150405"))
	f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return NewLoggerWithWriter(os.Stderr)
	}
	return NewLoggerWithWriter(f)
}

// LevelFromEnv parses LA32RSTATS_LOG_LEVEL. Unset or unknown values mean info.
func LevelFromEnv() log.Level {
	lvl, err := log.ParseLevel(os.Getenv(EnvLevel))
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// ForceDebug lowers the logger to debug level, as the --debug flag does.
func (lc *LoggerCloser) ForceDebug() {
	lc.SetLevel(log.DebugLevel)
}

func IsDebug() bool {
	return LevelFromEnv() == log.DebugLevel
}
