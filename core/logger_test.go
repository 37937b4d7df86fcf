package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductionLoggerJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewProductionLogger("test-service", LoggerOptions{
		Level:  "DEBUG",
		Format: "json",
		Output: &buf,
	})

	logger.Info("something happened", map[string]interface{}{
		"namespace": "ns1",
		"count":     3,
	})

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	assert.Equal(t, "INFO", record["level"])
	assert.Equal(t, "test-service", record["service"])
	assert.Equal(t, "something happened", record["message"])
	assert.Equal(t, "ns1", record["namespace"])
	assert.Equal(t, float64(3), record["count"])
	assert.NotEmpty(t, record["timestamp"])
}

func TestProductionLoggerFlattensErrors(t *testing.T) {
	var buf bytes.Buffer
	logger := NewProductionLogger("test", LoggerOptions{
		Level:  "DEBUG",
		Format: "json",
		Output: &buf,
	})

	logger.Error("operation failed", map[string]interface{}{
		"error": errors.New("connection refused"),
	})

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "connection refused", record["error"])
}

func TestProductionLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewProductionLogger("test", LoggerOptions{
		Level:  "WARN",
		Format: "text",
		Output: &buf,
	})

	logger.Debug("debug line", nil)
	logger.Info("info line", nil)
	assert.Empty(t, buf.String())

	logger.Warn("warn line", nil)
	logger.Error("error line", nil)

	out := buf.String()
	assert.Contains(t, out, "warn line")
	assert.Contains(t, out, "error line")
}

func TestProductionLoggerTextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewProductionLogger("test", LoggerOptions{
		Level:  "INFO",
		Format: "text",
		Output: &buf,
	})

	logger.Info("request handled", map[string]interface{}{
		"status": 200,
		"path":   "/memory/store",
	})

	line := buf.String()
	assert.Contains(t, line, "[INFO]")
	assert.Contains(t, line, "request handled")
	// fields appear in sorted key order
	assert.Less(t, strings.Index(line, "path="), strings.Index(line, "status="))
}

func TestNoOpLogger(t *testing.T) {
	logger := &NoOpLogger{}
	assert.NotPanics(t, func() {
		logger.Info("x", nil)
		logger.Error("x", map[string]interface{}{"k": "v"})
		logger.Warn("x", nil)
		logger.Debug("x", nil)
	})
}
