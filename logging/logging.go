package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	logger  = newLogger(os.Stderr)
	logFile *os.File
	mu      sync.Mutex
	isSetup bool
)

func newLogger(out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
	return l
}

// SetupLogger configures the shared logger. With an empty path it logs to
// stderr only; otherwise entries go to the file, and also to stderr when debug
// is enabled.
func SetupLogger(logFilePath string, debug bool) error {
	mu.Lock()
	defer mu.Unlock()

	if isSetup {
		return nil
	}

	if debug {
		logger.SetLevel(logrus.DebugLevel)
	}

	if logFilePath != "" {
		f, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		logFile = f
		if debug {
			logger.SetOutput(io.MultiWriter(os.Stderr, f))
		} else {
			logger.SetOutput(f)
		}
		logger.Debugf("--- phototriage log started at %s ---", time.Now().Format(time.RFC3339))
	}

	isSetup = true
	return nil
}

// CloseLogger closes the log file and resets output to stderr
func CloseLogger() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logger.Debugf("--- phototriage log closed at %s ---", time.Now().Format(time.RFC3339))
		logger.SetOutput(os.Stderr)
		_ = logFile.Close()
		logFile = nil
	}
	logger.SetLevel(logrus.InfoLevel)
	isSetup = false
}

// SetOutput redirects the shared logger, mainly for tests.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

// Logger exposes the shared logrus logger for callers that want fields.
func Logger() *logrus.Logger { return logger }

// WithField starts a structured entry on the shared logger.
func WithField(key string, value any) *logrus.Entry {
	return logger.WithField(key, value)
}

// LogInfo logs an information message
func LogInfo(format string, args ...any) {
	logger.Infof(format, args...)
}

// DebugLog logs a message if debug mode is enabled
func DebugLog(format string, args ...any) {
	logger.Debugf(format, args...)
}

// LogError logs an error message
func LogError(format string, args ...any) {
	logger.Errorf(format, args...)
}

// LogWarning logs a warning message
func LogWarning(format string, args ...any) {
	logger.Warnf(format, args...)
}

// LogImageProcessed logs the outcome for one image
func LogImageProcessed(path string, success bool, errMsg string) {
	entry := logger.WithField("file", path)
	if success {
		entry.Debug("processed")
		return
	}
	entry.WithField("error", errMsg).Warn("failed")
}
