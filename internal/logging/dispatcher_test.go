package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "output: %s", buf.String())
	return entry
}

func TestDispatcherLogger_Debug(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(zerolog.New(&buf).Level(zerolog.DebugLevel))

	dl.Debug("test message", "key1", "value1", "key2", 42)

	entry := decodeLine(t, &buf)
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "test message", entry["message"])
	assert.Equal(t, "value1", entry["key1"])
	assert.Equal(t, float64(42), entry["key2"])
}

func TestDispatcherLogger_Info(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(zerolog.New(&buf))

	dl.Info("info message", "status", "ok")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "ok", entry["status"])
}

func TestDispatcherLogger_Error(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(zerolog.New(&buf))

	dl.Error("packet handler failed", "error", errors.New("boom"), "duration", 1500*time.Microsecond)

	entry := decodeLine(t, &buf)
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, 1.5, entry["duration"])
}

func TestDispatcherLogger_OddKeyValues(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(zerolog.New(&buf))

	dl.Info("odd", "dangling", 7, "value")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "odd", entry["message"])
	assert.Equal(t, float64(7), entry["dangling"])
	assert.NotContains(t, entry, "value")
}

func TestNewTraceLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(NewTraceLogger(&buf, slog.LevelInfo))

	dl.Debug("filtered")
	assert.Empty(t, buf.String())

	dl.Info("kept")
	entry := decodeLine(t, &buf)
	assert.Equal(t, "packets", entry["component"])
	assert.Contains(t, entry, "time")
}

func TestZerologLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, zerologLevel(slog.LevelDebug))
	assert.Equal(t, zerolog.InfoLevel, zerologLevel(slog.LevelInfo))
	assert.Equal(t, zerolog.WarnLevel, zerologLevel(slog.LevelWarn))
	assert.Equal(t, zerolog.ErrorLevel, zerologLevel(slog.LevelError))
}

func TestDispatcherLogger_ImplementsInterface(t *testing.T) {
	var _ interface {
		Debug(msg string, keysAndValues ...any)
		Info(msg string, keysAndValues ...any)
		Error(msg string, keysAndValues ...any)
	} = NewDispatcherLogger(zerolog.Nop())
}
