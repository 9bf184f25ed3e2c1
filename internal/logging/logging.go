// Package logging builds the logrus loggers shared by the CLIs and the server.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger represents a logger instance
type Logger = *logrus.Logger

// Fields represents structured logging fields
type Fields = logrus.Fields

// NewLogger returns a text logger writing to stderr at warn level, or debug when verbose
func NewLogger(verbose bool) *logrus.Logger {
	level := logrus.WarnLevel
	if verbose {
		level = logrus.DebugLevel
	}
	return New(os.Stderr, level)
}

// New returns a text logger with the given output and level
func New(w io.Writer, level logrus.Level) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})
	logger.SetLevel(level)
	return logger
}

// NewServiceLogger returns a JSON logger tagged with a service name
func NewServiceLogger(serviceName string) *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)
	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logger.SetLevel(lvl)
	}
	return logger.WithField("service", serviceName)
}

// Discard returns a logger that drops everything, for tests
func Discard() *logrus.Logger {
	return New(io.Discard, logrus.PanicLevel)
}
