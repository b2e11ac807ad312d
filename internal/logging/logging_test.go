package logging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, LevelInfo, cfg.Level)
	assert.Equal(t, FormatText, cfg.Format)
	assert.Equal(t, "stderr", cfg.Output)
	assert.False(t, cfg.AddSource)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected slog.Level
	}{
		{LevelDebug, slog.LevelDebug},
		{LevelInfo, slog.LevelInfo},
		{LevelWarn, slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{LevelError, slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.level))
		})
	}
}

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(Config{Level: LevelDebug, Format: FormatJSON}, &buf)

	logger.WithComponent("firewall").InfoScan("classified", "10.0.0.1", "technique", "tcp_syn")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "classified", entry["msg"])
	assert.Equal(t, "firewall", entry["component"])
	assert.Equal(t, "10.0.0.1", entry["target"])
	assert.Equal(t, "tcp_syn", entry["technique"])
}

func TestNewWithWriter_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(Config{Level: LevelWarn, Format: FormatText}, &buf)

	logger.Info("hidden")
	logger.DebugProbe("icmp-echo", "alive")
	logger.WarnProbe("nmap", fmt.Errorf("not installed"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.NotContains(t, out, "icmp-echo")
	assert.Contains(t, out, "probe degraded")
	assert.Contains(t, out, "not installed")
}

func TestLoggerHelpers(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(Config{Level: LevelDebug, Format: FormatText}, &buf)

	logger.WithAssessmentID("abc").WithTarget("host.example").ErrorScan("dial failed", "host.example", fmt.Errorf("boom"))

	out := buf.String()
	assert.Contains(t, out, "assessment_id=abc")
	assert.Contains(t, out, "target=host.example")
	assert.Contains(t, out, "error=boom")
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "recon.log")

	logger, err := New(Config{Level: LevelInfo, Format: FormatText, Output: path})
	require.NoError(t, err)
	logger.Info("written to file")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "written to file"))
}

func TestOrDefault(t *testing.T) {
	assert.Same(t, Default(), OrDefault(nil))

	l := Nop()
	assert.Same(t, l, OrDefault(l))
}

func TestSetDefault(t *testing.T) {
	original := Default()
	defer SetDefault(original)

	var buf bytes.Buffer
	SetDefault(NewWithWriter(Config{Level: LevelDebug}, &buf))

	Debug("d")
	Info("i")
	Warn("w")
	Error("e")

	out := buf.String()
	for _, msg := range []string{"msg=d", "msg=i", "msg=w", "msg=e"} {
		assert.Contains(t, out, msg)
	}
}
