package internal

import (
	"bytes"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })
	return &buf
}

func TestLoggerPrefixesLevelAndComponent(t *testing.T) {
	buf := captureLog(t)

	logger := NewLogger(LogLevelInfo).For("Engine")
	logger.Warn("proposal %s rejected", "p-1")

	assert.Contains(t, buf.String(), "[WARN] [Engine] proposal p-1 rejected")
}

func TestLoggerWithoutComponentOmitsTag(t *testing.T) {
	buf := captureLog(t)

	NewLogger(LogLevelInfo).Info("starting up")

	assert.Contains(t, buf.String(), "[INFO] starting up")
	assert.NotContains(t, buf.String(), "[INFO] []")
}

func TestLoggerSuppressesBelowLevel(t *testing.T) {
	buf := captureLog(t)

	logger := NewLogger(LogLevelWarn).For("Server")
	logger.Info("listening on %s", ":8080")
	logger.Debug("request body: %s", "{}")

	assert.Empty(t, buf.String())

	logger.Error("bind failed")
	assert.Contains(t, buf.String(), "[ERROR] [Server] bind failed")
}

func TestForSharesLevelAcrossComponents(t *testing.T) {
	buf := captureLog(t)

	root := NewLogger(LogLevelDebug)
	root.For("ChatService").Debug("tool call received")
	root.For("BriefService").Debug("parsing upload")

	out := buf.String()
	assert.Contains(t, out, "[DEBUG] [ChatService] tool call received")
	assert.Contains(t, out, "[DEBUG] [BriefService] parsing upload")
}

func TestNewDefaultLoggerReadsEnvironment(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	assert.Equal(t, LogLevelDebug, NewDefaultLogger().level)

	t.Setenv("LOG_LEVEL", "WARN")
	assert.Equal(t, LogLevelWarn, NewDefaultLogger().level)

	t.Setenv("LOG_LEVEL", "nonsense")
	assert.Equal(t, LogLevelInfo, NewDefaultLogger().level)
}
