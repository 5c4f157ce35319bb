package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/npratt/vtree/internal/config"
)

func TestSetupTUILogger_WritesToFile(t *testing.T) {
	tmpDir := filepath.Join(t.TempDir(), "logs")

	result, err := SetupTUILogger(tmpDir, slog.LevelInfo, config.Default().LogRotation)
	if err != nil {
		t.Fatalf("SetupTUILogger failed: %v", err)
	}
	defer func() { _ = result.Close() }()

	expectedPath := filepath.Join(tmpDir, "vtree-debug.log")
	if result.FilePath != expectedPath {
		t.Errorf("FilePath = %q, want %q", result.FilePath, expectedPath)
	}

	result.Logger.Info("test message", "key", "value")

	content, err := os.ReadFile(result.FilePath)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !strings.Contains(string(content), "test message") {
		t.Errorf("log file should contain 'test message', got: %s", content)
	}
	if !strings.Contains(string(content), `"key":"value"`) {
		t.Errorf("log file should contain key=value, got: %s", content)
	}
}

func TestSetupTUILogger_RespectsLevel(t *testing.T) {
	level := &slog.LevelVar{}
	level.Set(slog.LevelWarn)

	result, err := SetupTUILogger(t.TempDir(), level, config.Default().LogRotation)
	if err != nil {
		t.Fatalf("SetupTUILogger failed: %v", err)
	}
	defer func() { _ = result.Close() }()

	result.Logger.Info("quiet")
	result.Logger.Warn("loud")

	content, err := os.ReadFile(result.FilePath)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if strings.Contains(string(content), "quiet") {
		t.Errorf("info line written below warn level: %s", content)
	}
	if !strings.Contains(string(content), "loud") {
		t.Errorf("warn line missing: %s", content)
	}
}

func TestTUILoggerResult_CloseWithoutFile(t *testing.T) {
	r := &TUILoggerResult{}
	if err := r.Close(); err != nil {
		t.Errorf("Close() = %v, want nil", err)
	}
}

func TestSetupLoggerWithWriter(t *testing.T) {
	var buf bytes.Buffer
	level := &slog.LevelVar{}
	logger := SetupLoggerWithWriter(&buf, level)

	logger.Debug("hidden")
	level.Set(slog.LevelDebug)
	logger.Debug("shown", "count", 3)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug line written at info level: %s", out)
	}
	if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"count":3`) {
		t.Errorf("expected JSON debug line, got: %s", out)
	}
}
