package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestModuleLoggerLevels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		level    LogLevel
		log      func(Logger)
		expected bool
	}{
		{"debug suppressed at info", LogLevelInfo, func(l Logger) { l.Debug("hidden") }, false},
		{"info shown at info", LogLevelInfo, func(l Logger) { l.Info("shown") }, true},
		{"trace shown at trace", LogLevelTrace, func(l Logger) { l.Trace("shown") }, true},
		{"warn suppressed at error", LogLevelError, func(l Logger) { l.Warn("hidden") }, false},
		{"explicit level respected", LogLevelWarn, func(l Logger) { l.Log(LogLevelInfo, "hidden") }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			buf := &bytes.Buffer{}
			tt.log(NewSlogLogger(buf, tt.level, time.UTC))
			assert.Equal(t, tt.expected, buf.Len() > 0, buf.String())
		})
	}
}

func TestModuleLoggerFieldsAndScope(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := NewSlogLogger(buf, LogLevelDebug, time.UTC).
		Module("inspection").
		Module("session").
		With(String("inspection_id", "insp-1"))

	log.Info("response recorded", Int("responded", 3), Error(errors.New("boom")), Duration("took", 1500*time.Millisecond))

	out := buf.String()
	assert.Contains(t, out, "module=inspection.session")
	assert.Contains(t, out, "inspection_id=insp-1")
	assert.Contains(t, out, "responded=3")
	assert.Contains(t, out, "error=boom")
	assert.Contains(t, out, "took=1.5s")
	assert.NotContains(t, out, "time=")
}

func TestWithContextAddsTraceID(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := NewSlogLogger(buf, LogLevelInfo, time.UTC)

	log.WithContext(WithTraceID(t.Context(), "req-42")).Info("handled")
	log.WithContext(t.Context()).Info("plain")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "trace_id=req-42")
	assert.NotContains(t, lines[1], "trace_id")
}

func TestCentralLoggerFileOutputIsJSON(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "safetrack.log")
	cl, err := NewCentralLogger(&LoggingConfig{
		DefaultLevel: "debug",
		Timezone:     "UTC",
		Console:      &ConsoleOutput{Enabled: false},
		FileOutput:   &FileOutput{Enabled: true, Path: path, Level: "debug"},
		ModuleLevels: map[string]string{"datastore": "warn"},
	})
	require.NoError(t, err)

	cl.Module("inspection").Debug("visible", String("status", "in_progress"))
	cl.Module("datastore").Info("filtered by module level")
	require.NoError(t, cl.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "visible", entry["msg"])
	assert.Equal(t, "inspection", entry["module"])
	assert.Equal(t, "in_progress", entry["status"])
}

func TestSetLevelsReachesExistingLoggers(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "safetrack.log")
	cl, err := NewCentralLogger(&LoggingConfig{
		DefaultLevel: "info",
		Console:      &ConsoleOutput{Enabled: false},
		FileOutput:   &FileOutput{Enabled: true, Path: path, Level: "debug"},
	})
	require.NoError(t, err)

	api := cl.Module("api")
	api.Debug("before reload")

	cl.SetLevels("info", map[string]string{"api": "debug"})
	api.Debug("after reload")
	cl.Module("datastore").Debug("default level still info")
	require.NoError(t, cl.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "before reload")
	assert.Contains(t, string(data), "after reload")
	assert.NotContains(t, string(data), "default level still info")
}

func TestNewCentralLoggerRejectsBadInput(t *testing.T) {
	t.Parallel()

	_, err := NewCentralLogger(nil)
	require.Error(t, err)

	_, err = NewCentralLogger(&LoggingConfig{Timezone: "Mars/Olympus"})
	require.Error(t, err)
}

func TestGormAdapterLevels(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	adapter := NewGormLoggerAdapter(NewSlogLogger(buf, LogLevelInfo, time.UTC), 10*time.Millisecond)
	sql := func() (string, int64) { return "SELECT 1", 1 }

	adapter.Trace(t.Context(), time.Now(), sql, nil)
	assert.Empty(t, buf.String(), "plain queries stay at trace")

	adapter.Trace(t.Context(), time.Now(), sql, gorm.ErrRecordNotFound)
	assert.Empty(t, buf.String(), "record not found is not a failure")

	adapter.Trace(t.Context(), time.Now(), sql, errors.New("disk I/O error"))
	assert.Contains(t, buf.String(), "query error")

	buf.Reset()
	adapter.Trace(t.Context(), time.Now().Add(-time.Second), sql, nil)
	assert.Contains(t, buf.String(), "slow query")
}
