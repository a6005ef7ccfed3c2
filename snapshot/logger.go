package snapshot

import (
	"sync"

	"go.uber.org/zap"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the package logger, initializing a no-op logger on
// first use if none was set.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger sets the logger for this package. It must be called before
// any snapshot loading operations to take effect.
func SetLogger(l *zap.Logger) {
	if l != nil {
		logger = l
	}
}
