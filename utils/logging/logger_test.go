package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestLevelFromEnv(t *testing.T) {
	t.Run("default info", func(t *testing.T) {
		t.Setenv("DEBUG", "")
		var buf bytes.Buffer
		logger := NewWriter(&buf)
		if logger.Enabled(context.Background(), slog.LevelDebug) {
			t.Error("debug should be disabled by default")
		}
		if !logger.Enabled(context.Background(), slog.LevelInfo) {
			t.Error("info should be enabled by default")
		}
	})

	t.Run("debug enabled", func(t *testing.T) {
		t.Setenv("DEBUG", "true")
		var buf bytes.Buffer
		logger := NewWriter(&buf)
		if !logger.Enabled(context.Background(), slog.LevelDebug) {
			t.Error("DEBUG=true should enable debug")
		}
	})
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriter(&buf)
	logger.Info("pull complete", "events", 12)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if rec["msg"] != "pull complete" {
		t.Errorf("msg = %v", rec["msg"])
	}
	if rec["events"] != float64(12) {
		t.Errorf("events = %v", rec["events"])
	}
}
