package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInit(t *testing.T) {
	configDir := filepath.Join(t.TempDir(), "config")

	if err := Init(Config{Debug: false, ConfigDir: configDir}); err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}

	logDir := filepath.Join(configDir, "logs")
	if _, err := os.Stat(logDir); os.IsNotExist(err) {
		t.Errorf("Log directory was not created: %s", logDir)
	}
	if Logger == nil {
		t.Fatal("Logger is nil after initialization")
	}

	Warn("habit save failed", "habit_id", "abc")

	data, err := os.ReadFile(filepath.Join(logDir, "habitline.log"))
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "habit save failed") {
		t.Errorf("log file missing warning, got %q", string(data))
	}
}

func TestInitLogDirOverride(t *testing.T) {
	tempDir := t.TempDir()
	logDir := filepath.Join(tempDir, "custom-logs")

	if err := Init(Config{ConfigDir: filepath.Join(tempDir, "config"), LogDir: logDir}); err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}
	if _, err := os.Stat(logDir); err != nil {
		t.Errorf("custom log directory was not created: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tempDir, "config", "logs")); !os.IsNotExist(err) {
		t.Errorf("default log directory should not be created when LogDir is set")
	}
}

func TestInitDebugMode(t *testing.T) {
	configDir := filepath.Join(t.TempDir(), "config")

	if err := Init(Config{Debug: true, ConfigDir: configDir}); err != nil {
		t.Fatalf("Failed to initialize logger in debug mode: %v", err)
	}
	if Logger == nil {
		t.Error("Logger is nil after initialization")
	}

	Debug("Test debug message in debug mode")
	Info("Test info message in debug mode")
}

func TestLogFunctionsWithoutInit(t *testing.T) {
	Logger = nil

	// These should not panic when Logger is nil
	Debug("Test debug message")
	Info("Test info message")
	Warn("Test warning message")
	Error("Test error message")

	if Get() == nil {
		t.Error("Get() returned nil before Init")
	}
	With("repository").Warn("silent")
}
