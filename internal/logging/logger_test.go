package logging

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.expected {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestLoggerWritesJSON(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir, "DEBUG", DefaultRotationConfig())
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}

	logger.Info("turn completed", "round", 3)
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "roundtable.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(data))), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["msg"] != "turn completed" {
		t.Errorf("msg = %v, want %q", entry["msg"], "turn completed")
	}
	if entry["round"] != float64(3) {
		t.Errorf("round = %v, want 3", entry["round"])
	}
}

func TestChildLoggerAttrs(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir, "INFO", DefaultRotationConfig())
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}

	child := logger.WithConversation("conv-1").WithPhase("discussing").WithParticipant("agent-2")
	child.Info("message appended")
	logger.Close()

	data, err := os.ReadFile(filepath.Join(dir, "roundtable.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(data))), &entry); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if entry["conversation_id"] != "conv-1" {
		t.Errorf("conversation_id = %v", entry["conversation_id"])
	}
	if entry["phase"] != "discussing" {
		t.Errorf("phase = %v", entry["phase"])
	}
	if entry["participant_id"] != "agent-2" {
		t.Errorf("participant_id = %v", entry["participant_id"])
	}
}

func TestChildLoggerDoesNotMutateParent(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir, "INFO", DefaultRotationConfig())
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}

	_ = logger.WithConversation("conv-1")
	logger.Info("parent entry")
	logger.Close()

	data, _ := os.ReadFile(filepath.Join(dir, "roundtable.log"))
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		var entry map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if _, ok := entry["conversation_id"]; ok {
			t.Error("parent logger carried child attribute")
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir, "WARN", DefaultRotationConfig())
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}

	logger.Debug("should not appear")
	logger.Info("should not appear either")
	logger.Warn("should appear")
	logger.Close()

	data, _ := os.ReadFile(filepath.Join(dir, "roundtable.log"))
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d log lines, want 1", len(lines))
	}
	if !strings.Contains(lines[0], "should appear") {
		t.Errorf("unexpected line: %s", lines[0])
	}
}

func TestNopLogger(t *testing.T) {
	logger := NopLogger()
	logger.Info("discarded")
	logger.WithConversation("x").Error("also discarded")
	if err := logger.Close(); err != nil {
		t.Errorf("Close on NopLogger: %v", err)
	}
}
