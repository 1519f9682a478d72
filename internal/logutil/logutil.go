package logutil

import (
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/log"
)

var (
	logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "mdpost", ReportTimestamp: true, Level: log.InfoLevel})
	mu     sync.Mutex
)

// SetVerbose adjusts the global logging level.
func SetVerbose(enable bool) {
	mu.Lock()
	defer mu.Unlock()
	if enable {
		logger.SetLevel(log.DebugLevel)
	} else {
		logger.SetLevel(log.InfoLevel)
	}
}

// SetOutput redirects log output, mainly for tests.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

// Debugf logs a debug message when verbose logging is enabled.
func Debugf(format string, args ...any) {
	logger.Debugf(format, args...)
}

// Infof logs an informational message.
func Infof(format string, args ...any) {
	logger.Infof(format, args...)
}

// Warnf logs a warning.
func Warnf(format string, args ...any) {
	logger.Warnf(format, args...)
}

// Errorf logs an error message.
func Errorf(format string, args ...any) {
	logger.Errorf(format, args...)
}
