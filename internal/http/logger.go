package http

import (
	"github.com/go-logr/logr"
	"github.com/hashicorp/go-retryablehttp"
)

// newLeveledLogger returns a retryablehttp.LeveledLogger that forwards to
// the given logr.Logger. Errors and warnings are logged at V(0), info at
// V(1) and debug at V(2).
func newLeveledLogger(log logr.Logger) retryablehttp.LeveledLogger {
	return &leveledLogger{log: log}
}

type leveledLogger struct {
	log logr.Logger
}

func (l *leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.log.Info(msg, keysAndValues...)
}

func (l *leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.log.Info(msg, keysAndValues...)
}

func (l *leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.V(1).Info(msg, keysAndValues...)
}

func (l *leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.log.V(2).Info(msg, keysAndValues...)
}
