package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/sirupsen/logrus"
)

var (
	// InfoLogger logs informational messages
	InfoLogger = discardLogger()
	// ErrorLogger logs error messages
	ErrorLogger = discardLogger()
	// DebugLogger logs debug messages
	DebugLogger = discardLogger()
)

// LoggerOptions controls where the log streams are written.
type LoggerOptions struct {
	Dir    string
	MaxAge time.Duration
	Level  string
}

func discardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// newStreamLogger writes one stream to a daily rotated file under dir/name.
func newStreamLogger(dir, name string, maxAge time.Duration, level logrus.Level) (*logrus.Logger, error) {
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %v", path, err)
	}

	writer, err := rotatelogs.New(
		filepath.Join(path, name+".log.%Y-%m-%d"),
		rotatelogs.WithLinkName(filepath.Join(path, name+".log")),
		rotatelogs.WithRotationTime(24*time.Hour),
		rotatelogs.WithMaxAge(maxAge),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s log: %v", name, err)
	}

	l := logrus.New()
	l.SetOutput(writer)
	l.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
		FullTimestamp:   true,
	})
	l.SetLevel(level)
	return l, nil
}

// InitLogger initializes the info, error and debug streams
func InitLogger(opts LoggerOptions) error {
	if opts.Dir == "" {
		opts.Dir = "logs"
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = 7 * 24 * time.Hour
	}
	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
	}

	info, err := newStreamLogger(opts.Dir, "info", opts.MaxAge, logrus.InfoLevel)
	if err != nil {
		return err
	}
	errs, err := newStreamLogger(opts.Dir, "error", opts.MaxAge, logrus.ErrorLevel)
	if err != nil {
		return err
	}
	debug, err := newStreamLogger(opts.Dir, "debug", opts.MaxAge, level)
	if err != nil {
		return err
	}

	InfoLogger, ErrorLogger, DebugLogger = info, errs, debug
	return nil
}

// LogInfo logs an informational message
func LogInfo(format string, v ...interface{}) {
	InfoLogger.Infof(format, v...)
}

// LogWarn logs a warning to the info stream
func LogWarn(format string, v ...interface{}) {
	InfoLogger.Warnf(format, v...)
}

// LogError logs an error message
func LogError(format string, v ...interface{}) {
	ErrorLogger.Errorf(format, v...)
}

// LogDebug logs a debug message
func LogDebug(format string, v ...interface{}) {
	DebugLogger.Debugf(format, v...)
}

// WithFields returns an info entry carrying structured fields.
func WithFields(fields logrus.Fields) *logrus.Entry {
	return InfoLogger.WithFields(fields)
}

// LogRequest logs HTTP request details
func LogRequest(method, path, ip string, status int, duration time.Duration) {
	InfoLogger.WithFields(logrus.Fields{
		"method":   method,
		"path":     path,
		"ip":       ip,
		"status":   status,
		"duration": duration.String(),
	}).Info("request")
}

// LogErrorWithStack logs an error with stack trace
func LogErrorWithStack(err error, stack []byte) {
	ErrorLogger.WithField("stack", string(stack)).Errorf("Error: %v", err)
}
