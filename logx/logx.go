// Package logx provides the leveled logging sink used throughout mcpwire.
// Components accept a Logger through their options and default to the no-op
// implementation, so library users only see log output when they ask for it.
package logx

import (
	"log"
	"os"
	"sync"
)

// Level identifies the severity of a log message.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the conventional upper-case name of the level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger defines the interface for logging. It allows different logging
// implementations to be plugged into the library.
type Logger interface {
	Debug(format string, v ...interface{})
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
	SetLevel(level Level)
}

// DefaultLogger is a basic Logger implementation on top of the standard log
// package, writing to stderr.
type DefaultLogger struct {
	logger *log.Logger
	level  Level
	mu     sync.Mutex
}

// NewDefaultLogger creates a logger writing to stderr at LevelInfo.
func NewDefaultLogger() *DefaultLogger {
	return &DefaultLogger{
		logger: log.New(os.Stderr, "[mcpwire] ", log.LstdFlags|log.Lmsgprefix),
		level:  LevelInfo,
	}
}

// NewLogger creates a logger wrapping an existing standard log.Logger.
// A nil logger falls back to the stderr default.
func NewLogger(logger *log.Logger, level Level) *DefaultLogger {
	if logger == nil {
		logger = log.New(os.Stderr, "[mcpwire] ", log.LstdFlags|log.Lmsgprefix)
	}
	return &DefaultLogger{logger: logger, level: level}
}

func (l *DefaultLogger) logf(level Level, format string, v ...interface{}) {
	l.mu.Lock()
	enabled := level >= l.level
	l.mu.Unlock()
	if !enabled {
		return
	}
	l.logger.Printf(level.String()+": "+format, v...)
}

func (l *DefaultLogger) Debug(format string, v ...interface{}) {
	l.logf(LevelDebug, format, v...)
}

func (l *DefaultLogger) Info(format string, v ...interface{}) {
	l.logf(LevelInfo, format, v...)
}

func (l *DefaultLogger) Warn(format string, v ...interface{}) {
	l.logf(LevelWarn, format, v...)
}

func (l *DefaultLogger) Error(format string, v ...interface{}) {
	l.logf(LevelError, format, v...)
}

// SetLevel updates the minimum level emitted by the logger.
func (l *DefaultLogger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

var _ Logger = (*DefaultLogger)(nil)

// NopLogger discards everything. It is the default sink for all components.
type NopLogger struct{}

// NewNopLogger returns a Logger that discards all messages.
func NewNopLogger() *NopLogger { return &NopLogger{} }

func (NopLogger) Debug(string, ...interface{}) {}
func (NopLogger) Info(string, ...interface{})  {}
func (NopLogger) Warn(string, ...interface{})  {}
func (NopLogger) Error(string, ...interface{}) {}
func (NopLogger) SetLevel(Level)               {}

var _ Logger = (*NopLogger)(nil)
