package app

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/taskmaster-io/backend/internal/config"
)

// bufferLogger builds a logger with NewLogger's handler selection logic but
// writing to buf, so tests can assert on output.
func bufferLogger(buf *bytes.Buffer, cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     parseLevel(cfg.Level),
		AddSource: strings.EqualFold(cfg.Format, "text"),
	}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(buf, opts))
	}
	return slog.New(slog.NewTextHandler(buf, opts))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{" error ", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := bufferLogger(&buf, config.LogConfig{Level: "warn", Format: "text"})

	logger.Log(context.TODO(), slog.LevelInfo, "suppressed")
	if buf.Len() != 0 {
		t.Fatalf("info should be suppressed at warn level, got %s", buf.String())
	}

	logger.Log(context.TODO(), slog.LevelWarn, "emitted")
	if buf.Len() == 0 {
		t.Fatal("warn should be emitted at warn level")
	}
}

func TestLogger_FormatSelection(t *testing.T) {
	var textBuf, jsonBuf bytes.Buffer

	bufferLogger(&textBuf, config.LogConfig{Level: "info", Format: "text"}).Info("hello")
	bufferLogger(&jsonBuf, config.LogConfig{Level: "info", Format: "json"}).Info("hello")

	if !strings.Contains(textBuf.String(), "source=") {
		t.Error("text format should include source locations")
	}

	var m map[string]any
	if err := json.Unmarshal(jsonBuf.Bytes(), &m); err != nil {
		t.Fatalf("json format should produce valid JSON: %v", err)
	}
	if _, ok := m["source"]; ok {
		t.Error("json format should not include source locations")
	}
}

func TestNewLogger_SetsDefault(t *testing.T) {
	logger := NewLogger(config.LogConfig{Level: "info", Format: "json"})

	if slog.Default().Handler() != logger.Handler() {
		t.Error("NewLogger should install the returned logger as slog default")
	}
}
