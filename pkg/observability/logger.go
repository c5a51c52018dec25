package observability

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger creates a structured JSON logger at the given level.
func NewLogger(level logrus.Level, output io.Writer) *logrus.Entry {
	if output == nil {
		output = os.Stderr
	}

	logger := logrus.New()
	logger.SetOutput(output)
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.JSONFormatter{})

	return logrus.NewEntry(logger)
}

// NopLogger returns a logger that discards all output. Components use it as
// their default so logging is always safe to call.
func NopLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

// ParseLevel converts a level name ("debug", "info", "warn", "error") to a
// logrus level, defaulting to info on unknown input.
func ParseLevel(name string) logrus.Level {
	level, err := logrus.ParseLevel(name)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}
