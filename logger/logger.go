package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger wraps logrus with the service name attached to every line.
type Logger struct {
	*logrus.Logger
	service string
}

// New builds a JSON logger writing to stdout.
func New(serviceName, level string) *Logger {
	return NewWithOutput(serviceName, level, os.Stdout)
}

// NewWithOutput is New with an explicit writer.
func NewWithOutput(serviceName, level string, out io.Writer) *Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})
	log.SetOutput(out)

	switch strings.ToLower(level) {
	case "debug":
		log.SetLevel(logrus.DebugLevel)
	case "warn":
		log.SetLevel(logrus.WarnLevel)
	case "error":
		log.SetLevel(logrus.ErrorLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
	}

	return &Logger{Logger: log, service: serviceName}
}

// Service returns an entry carrying the service field.
func (l *Logger) Service() *logrus.Entry {
	return l.WithField("service", l.service)
}

// WithRequestID adds the request id to a service entry.
func (l *Logger) WithRequestID(requestID string) *logrus.Entry {
	return l.Service().WithField("request_id", requestID)
}

// WithJob tags lines emitted by scheduled jobs.
func (l *Logger) WithJob(job string) *logrus.Entry {
	return l.Service().WithField("job", job)
}

// Discard returns a logger that drops everything; used in tests.
func Discard() *Logger {
	return NewWithOutput("test", "error", io.Discard)
}
