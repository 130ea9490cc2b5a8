package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewHandler(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(NewHandler(&buf, slog.LevelInfo, "json"))
		logger.Debug("hidden")
		logger.Info("bill archived", "folder_id", "f1")

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) != 1 {
			t.Fatalf("Expected 1 line, got %d: %q", len(lines), buf.String())
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
			t.Fatalf("Expected JSON output: %v", err)
		}
		if entry["folder_id"] != "f1" {
			t.Errorf("Expected folder_id attribute, got %v", entry)
		}
	})

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(NewHandler(&buf, slog.LevelDebug, "text"))
		logger.Debug("receipt analyzed", "items", 3)
		if !strings.Contains(buf.String(), "receipt analyzed") {
			t.Errorf("Expected message in output, got %q", buf.String())
		}
	})
}
