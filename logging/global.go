package logging

import (
	"os"
	"sync"
)

var (
	globalMu     sync.RWMutex
	globalLogger *Logger
)

func init() {
	level := os.Getenv("WG_LOG_LEVEL")
	if level == "" {
		level = "info"
	}

	globalLogger = New(Config{
		Level:       level,
		Output:      os.Stdout,
		EnableColor: os.Getenv("WG_LOG_COLOR") != "false",
	})
}

func global() *Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// GetGlobalLogger returns the global logger instance
func GetGlobalLogger() *Logger {
	return global()
}

// SetGlobalLogger replaces the global logger instance
func SetGlobalLogger(logger *Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = logger
}

// Configure rebuilds the global logger from config
func Configure(config Config) {
	SetGlobalLogger(New(config))
}

// Debug logs a message at DEBUG level using the global logger
func Debug(args ...interface{}) { global().Debug(args...) }

// Debugf logs a formatted message at DEBUG level using the global logger
func Debugf(format string, args ...interface{}) { global().Debugf(format, args...) }

// Info logs a message at INFO level using the global logger
func Info(args ...interface{}) { global().Info(args...) }

// Infof logs a formatted message at INFO level using the global logger
func Infof(format string, args ...interface{}) { global().Infof(format, args...) }

// Warn logs a message at WARN level using the global logger
func Warn(args ...interface{}) { global().Warn(args...) }

// Warnf logs a formatted message at WARN level using the global logger
func Warnf(format string, args ...interface{}) { global().Warnf(format, args...) }

// Error logs a message at ERROR level using the global logger
func Error(args ...interface{}) { global().Error(args...) }

// Errorf logs a formatted message at ERROR level using the global logger
func Errorf(format string, args ...interface{}) { global().Errorf(format, args...) }

// Fatal logs at FATAL level using the global logger and exits
func Fatal(args ...interface{}) { global().Fatal(args...) }

// Fatalf logs a formatted message at FATAL level using the global logger and exits
func Fatalf(format string, args ...interface{}) { global().Fatalf(format, args...) }

// WithPrefix returns a prefixed child of the global logger
func WithPrefix(prefix string) *Logger {
	return global().WithPrefix(prefix)
}

// WithFields returns a child of the global logger carrying fields
func WithFields(fields Fields) *Logger {
	return global().WithFields(fields)
}
