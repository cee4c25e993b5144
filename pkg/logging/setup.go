// Package logging configures the shared logrus logger and provides the
// colored development formatter.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
// LOG_FORMAT=text selects the colored development formatter; anything else
// keeps JSON output. An unparseable LOG_LEVEL falls back to info.
func NewLogger() *logrus.Logger {
	log := logrus.New()

	if os.Getenv("LOG_FORMAT") == "text" {
		log.SetFormatter(NewColoredJSONFormatter())
	} else {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if level, err := logrus.ParseLevel(logLevel); err == nil {
		log.SetLevel(level)
	} else {
		log.SetLevel(logrus.InfoLevel)
		if logLevel != "" {
			log.WithFields(logrus.Fields{
				"attempted_level": logLevel,
				"default_level":   "INFO",
			}).Warn("Invalid log level specified, defaulting to INFO")
		}
	}

	return log
}
