package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/cmlabs-hris/courier-payroll-go/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" WARN ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNewLogger_WritesJSONWithAppAttrs(t *testing.T) {
	var buf bytes.Buffer
	log, closer := newLogger(config.AppConfig{Name: "courier-payroll", Env: "test", LogLevel: "info"}, &buf)
	defer closer.Close()

	log.Debug("hidden")
	log.Info("Batch completed", "successful", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "courier-payroll", entry["app"])
	assert.Equal(t, "test", entry["env"])
	assert.EqualValues(t, 3, entry["successful"])
	assert.NotContains(t, buf.String(), "hidden")
}

func TestNewLogger_AlsoWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payroll.log")
	var buf bytes.Buffer
	log, closer := newLogger(config.AppConfig{Name: "courier-payroll", LogFile: path}, &buf)

	log.Info("Run lock acquired")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Run lock acquired")
	assert.Contains(t, buf.String(), "Run lock acquired")
}
