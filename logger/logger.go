package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// New returns the service logger. Unknown levels fall back to info.
func New(level string) *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: time.DateTime,
		FullTimestamp:   true,
	})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	return l
}

// Component tags every entry with the part of the service that produced it.
func Component(l *logrus.Logger, name string) *logrus.Entry {
	return l.WithFields(logrus.Fields{
		"from": name,
	})
}
