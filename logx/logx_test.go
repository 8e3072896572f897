package logx

import (
	"bytes"
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(log.New(&buf, "", 0), LevelWarn)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	out := buf.String()
	assert.NotContains(t, out, "debug message")
	assert.NotContains(t, out, "info message")
	assert.Contains(t, out, "WARN: warn message")
	assert.Contains(t, out, "ERROR: error message")
}

func TestDefaultLoggerSetLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(log.New(&buf, "", 0), LevelError)

	logger.Info("before")
	logger.SetLevel(LevelDebug)
	logger.Debug("after %d", 42)

	out := buf.String()
	assert.NotContains(t, out, "before")
	assert.Contains(t, out, "DEBUG: after 42")
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "INFO", LevelInfo.String())
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN", Level(99).String())
}

func TestNopLoggerDiscards(t *testing.T) {
	// Must not panic and must produce no output anywhere observable.
	logger := NewNopLogger()
	logger.Debug("a")
	logger.Info("b %s", "c")
	logger.Warn("d")
	logger.Error("e")
	logger.SetLevel(LevelDebug)
}

func TestDefaultLoggerFormats(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(log.New(&buf, "", 0), LevelDebug)
	logger.Info("connected to %s in %dms", "server-a", 12)
	assert.True(t, strings.Contains(buf.String(), "INFO: connected to server-a in 12ms"))
}
