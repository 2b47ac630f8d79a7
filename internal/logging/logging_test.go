package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("WARN"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel(""))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}

func TestNewWritesStructuredFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deletion.log")
	logger := New(Config{Level: "info", File: path})

	logger.Debug("hidden")
	logger.Info("Document deletion workflow succeeded.", zap.String("executionId", "exec-1"))
	_ = logger.Sync()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "INFO", entry["severity"])
	assert.Equal(t, "Document deletion workflow succeeded.", entry["message"])
	assert.Equal(t, "exec-1", entry["executionId"])
	assert.Contains(t, entry, "timestamp")
}
