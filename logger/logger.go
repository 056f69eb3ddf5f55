package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger takes a message followed by alternating key/value pairs.
type Logger interface {
	Info(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	With(args ...interface{}) Logger
}

type LogrusLogger struct {
	entry *logrus.Entry
}

// New returns a Logger writing text lines to stderr at info level.
func New() Logger {
	return NewWithOutput(os.Stderr, logrus.InfoLevel)
}

func NewWithOutput(w io.Writer, level logrus.Level) Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(level)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return &LogrusLogger{entry: logrus.NewEntry(l)}
}

// Discard returns a Logger that drops everything.
func Discard() Logger {
	return NewWithOutput(io.Discard, logrus.PanicLevel)
}

func (l *LogrusLogger) Info(msg string, args ...interface{}) {
	l.entry.WithFields(fields(args)).Info(msg)
}

func (l *LogrusLogger) Debug(msg string, args ...interface{}) {
	l.entry.WithFields(fields(args)).Debug(msg)
}

func (l *LogrusLogger) Warn(msg string, args ...interface{}) {
	l.entry.WithFields(fields(args)).Warn(msg)
}

func (l *LogrusLogger) Error(msg string, args ...interface{}) {
	l.entry.WithFields(fields(args)).Error(msg)
}

func (l *LogrusLogger) With(args ...interface{}) Logger {
	return &LogrusLogger{entry: l.entry.WithFields(fields(args))}
}

func fields(args []interface{}) logrus.Fields {
	f := make(logrus.Fields, (len(args)+1)/2)
	for i := 0; i < len(args); i += 2 {
		key := fmt.Sprint(args[i])
		if i+1 == len(args) {
			f["!BADKEY"] = args[i]
			break
		}
		f[key] = args[i+1]
	}
	return f
}
