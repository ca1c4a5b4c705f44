package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the severity level of a log message
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Color returns ANSI color codes for terminal output
func (l LogLevel) Color() string {
	switch l {
	case DEBUG:
		return "\033[36m" // Cyan
	case INFO:
		return "\033[38;5;195m" // Pale Blue
	case WARN:
		return "\033[33m" // Yellow
	case ERROR:
		return "\033[31m" // Red
	case FATAL:
		return "\033[35m" // Magenta
	default:
		return "\033[0m"
	}
}

// Fields carries structured key/value context rendered after the message
type Fields map[string]interface{}

// Logger is a leveled, prefixed logger safe for concurrent use
type Logger struct {
	mu          sync.RWMutex
	level       LogLevel
	output      io.Writer
	prefix      string
	enableColor bool
	fields      Fields
	logger      *log.Logger
	exit        func(int)
}

// Config holds logger configuration options
type Config struct {
	Level       string // "debug", "info", "warn", "error", "fatal"
	Output      io.Writer
	Prefix      string
	EnableColor bool
}

// DefaultConfig returns a default logger configuration
func DefaultConfig() Config {
	return Config{
		Level:       "info",
		Output:      os.Stdout,
		EnableColor: true,
	}
}

// ParseLevel converts a string level to LogLevel, defaulting to INFO
func ParseLevel(level string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return DEBUG
	case "info":
		return INFO
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	case "fatal":
		return FATAL
	default:
		return INFO
	}
}

// New creates a new Logger instance
func New(config Config) *Logger {
	if config.Output == nil {
		config.Output = os.Stdout
	}

	return &Logger{
		level:       ParseLevel(config.Level),
		output:      config.Output,
		prefix:      config.Prefix,
		enableColor: config.EnableColor,
		logger:      log.New(config.Output, "", 0),
		exit:        os.Exit,
	}
}

// NewDefault creates a logger with default configuration
func NewDefault() *Logger {
	return New(DefaultConfig())
}

// SetLevel sets the minimum log level
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// SetOutput sets the output destination
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.output = w
	l.logger.SetOutput(w)
}

// IsLevelEnabled checks if the given level is enabled
func (l *Logger) IsLevelEnabled(level LogLevel) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return level >= l.level
}

func (l *Logger) formatMessage(level LogLevel, message string) string {
	timestamp := time.Now().Format("2006-01-02 15:04:05.000")

	var colorStart, colorEnd string
	if l.enableColor {
		colorStart = level.Color()
		colorEnd = "\033[0m"
	}

	prefix := ""
	if l.prefix != "" {
		prefix = fmt.Sprintf("[%s] ", l.prefix)
	}

	return fmt.Sprintf("%s%-5s %s %-30s%s%s%s",
		colorStart,
		level.String(),
		timestamp,
		prefix,
		message,
		l.renderFields(),
		colorEnd,
	)
}

// renderFields prints fields as sorted key=value pairs so lines are stable
func (l *Logger) renderFields() string {
	if len(l.fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(l.fields))
	for k := range l.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, l.fields[k])
	}
	return b.String()
}

func (l *Logger) write(level LogLevel, message string) {
	l.mu.RLock()
	formatted := l.formatMessage(level, message)
	l.logger.Print(formatted)
	exit := l.exit
	l.mu.RUnlock()

	if level == FATAL {
		exit(1)
	}
}

func (l *Logger) log(level LogLevel, args ...interface{}) {
	if !l.IsLevelEnabled(level) {
		return
	}
	l.write(level, fmt.Sprint(args...))
}

func (l *Logger) logf(level LogLevel, format string, args ...interface{}) {
	if !l.IsLevelEnabled(level) {
		return
	}
	l.write(level, fmt.Sprintf(format, args...))
}

// Debug logs a message at DEBUG level
func (l *Logger) Debug(args ...interface{}) { l.log(DEBUG, args...) }

// Debugf logs a formatted message at DEBUG level
func (l *Logger) Debugf(format string, args ...interface{}) { l.logf(DEBUG, format, args...) }

// Info logs a message at INFO level
func (l *Logger) Info(args ...interface{}) { l.log(INFO, args...) }

// Infof logs a formatted message at INFO level
func (l *Logger) Infof(format string, args ...interface{}) { l.logf(INFO, format, args...) }

// Warn logs a message at WARN level
func (l *Logger) Warn(args ...interface{}) { l.log(WARN, args...) }

// Warnf logs a formatted message at WARN level
func (l *Logger) Warnf(format string, args ...interface{}) { l.logf(WARN, format, args...) }

// Error logs a message at ERROR level
func (l *Logger) Error(args ...interface{}) { l.log(ERROR, args...) }

// Errorf logs a formatted message at ERROR level
func (l *Logger) Errorf(format string, args ...interface{}) { l.logf(ERROR, format, args...) }

// Fatal logs a message at FATAL level and exits the program
func (l *Logger) Fatal(args ...interface{}) { l.log(FATAL, args...) }

// Fatalf logs a formatted message at FATAL level and exits the program
func (l *Logger) Fatalf(format string, args ...interface{}) { l.logf(FATAL, format, args...) }

func (l *Logger) clone() *Logger {
	fields := make(Fields, len(l.fields))
	for k, v := range l.fields {
		fields[k] = v
	}
	return &Logger{
		level:       l.level,
		output:      l.output,
		prefix:      l.prefix,
		enableColor: l.enableColor,
		fields:      fields,
		logger:      log.New(l.output, "", 0),
		exit:        l.exit,
	}
}

// WithPrefix returns a new logger with the specified prefix appended
func (l *Logger) WithPrefix(prefix string) *Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()

	child := l.clone()
	if l.prefix != "" {
		child.prefix = l.prefix + ":" + prefix
	} else {
		child.prefix = prefix
	}
	return child
}

// WithFields returns a new logger that appends the given fields to every line
func (l *Logger) WithFields(fields Fields) *Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()

	child := l.clone()
	for k, v := range fields {
		child.fields[k] = v
	}
	return child
}

// WithField is shorthand for WithFields with a single pair
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.WithFields(Fields{key: value})
}
