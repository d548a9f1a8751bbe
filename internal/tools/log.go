package tools

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the service logger: JSON lines to stdout, and to logFile when set.
func NewLogger(level string, logFile string) (*logrus.Logger, error) {
	l := logrus.New()
	l.Formatter = &logrus.JSONFormatter{}
	l.SetLevel(ParseLogLevel(level))

	if logFile == "" {
		l.SetOutput(os.Stdout)
		return l, nil
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, err
	}
	l.SetOutput(io.MultiWriter(f, os.Stdout))
	return l, nil
}

// ParseLogLevel maps LOG_LEVEL values onto logrus levels, defaulting to info.
func ParseLogLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}
