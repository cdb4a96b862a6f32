package logger

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// StdOutLogger writes through charmbracelet/log.
type StdOutLogger struct {
	logger *log.Logger
}

var _ Logger = (*StdOutLogger)(nil)

func NewStdOutLogger(debug bool) *StdOutLogger {
	return NewWriterLogger(os.Stdout, debug)
}

func NewWriterLogger(w io.Writer, debug bool) *StdOutLogger {
	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
		Prefix:          "netvardump",
	})
	logger.SetLevel(log.InfoLevel)
	if debug {
		logger.SetLevel(log.DebugLevel)
	}
	return &StdOutLogger{logger: logger}
}

func (l *StdOutLogger) With(args ...interface{}) Logger {
	return &StdOutLogger{logger: l.logger.With(args...)}
}

func (l *StdOutLogger) Info(msg string, args ...interface{}) {
	l.logger.Info(msg, args...)
}

func (l *StdOutLogger) Debug(msg string, args ...interface{}) {
	l.logger.Debug(msg, args...)
}

func (l *StdOutLogger) Warn(msg string, args ...interface{}) {
	l.logger.Warn(msg, args...)
}

func (l *StdOutLogger) Error(msg string, args ...interface{}) {
	l.logger.Error(msg, args...)
}
