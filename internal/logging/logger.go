package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var base = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if os.Getenv("DEBUG") == "true" {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

// SetOutput redirects all subsystem logs (the REPL sends them to a file)
func SetOutput(w io.Writer) {
	base.SetOutput(w)
}

// SetDebug toggles debug output at runtime
func SetDebug(enabled bool) {
	if enabled {
		base.SetLevel(logrus.DebugLevel)
		return
	}
	base.SetLevel(logrus.InfoLevel)
}

// For returns a logrus entry tagged with the subsystem, for callers that want fields
func For(subsystem string) *logrus.Entry {
	return base.WithField("subsystem", subsystem)
}

// Info logs an informational message (always shown)
func Info(subsystem, format string, args ...any) {
	For(subsystem).Infof(format, args...)
}

// Warn logs a recoverable problem
func Warn(subsystem, format string, args ...any) {
	For(subsystem).Warnf(format, args...)
}

// Error logs a failure that was contained
func Error(subsystem, format string, args ...any) {
	For(subsystem).Errorf(format, args...)
}

// Debug logs a debug message (only shown if DEBUG=true)
func Debug(subsystem, format string, args ...any) {
	For(subsystem).Debugf(format, args...)
}

// Truncate truncates a string to maxLen and adds ellipsis
func Truncate(s string, maxLen int) string {
	// Replace newlines with spaces for one-line logs
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.TrimSpace(s)
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
