// Package logging configures the logrus logger shared by the application.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/diewo77/gst-invoices/internal/config"
)

// New builds a logger from the log section of the configuration.
func New(cfg config.LogConfig) *logrus.Logger {
	return NewWithOutput(cfg, os.Stdout)
}

// NewWithOutput is New with an explicit writer.
func NewWithOutput(cfg config.LogConfig, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	if strings.EqualFold(cfg.Format, "text") {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

// Discard returns a logger that writes nowhere. Used by tests and defaults.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// WithComponent tags every entry with the component name.
func WithComponent(logger *logrus.Logger, component string) *logrus.Entry {
	if logger == nil {
		logger = Discard()
	}
	return logger.WithField("component", component)
}

// LogError writes an error with the calling function and context attached.
func LogError(entry *logrus.Entry, funcName, context string, data any, err error) {
	fields := logrus.Fields{
		"funcName": funcName,
		"context":  context,
	}
	if data != nil {
		fields["data"] = data
	}
	entry.WithFields(fields).Error(err.Error())
}
