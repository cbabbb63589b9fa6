package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestSaveCreatesFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.json")

	cfg := DefaultConfig()
	cfg.Scheduler.MaxConcurrent = 3

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read config file: %v", err)
	}

	var loaded Config
	if err := json.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("Config file contains invalid JSON: %v", err)
	}

	if loaded.Scheduler.MaxConcurrent != 3 {
		t.Errorf("Expected max_concurrent 3, got %d", loaded.Scheduler.MaxConcurrent)
	}
}

func TestSaveCreatesParentDir(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "nested", "deep", "config.json")

	if err := Save(DefaultConfig(), path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Fatalf("Config file was not created: %s", path)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.json")

	cfg := &Config{
		Scheduler: SchedulerConfig{MaxConcurrent: 9},
		Journal:   JournalConfig{Enabled: false, Path: "elsewhere.db", BufferSize: 64},
		Log:       LogConfig{Level: "trace", JSON: true},
		Metrics:   MetricsConfig{Enabled: true},
	}

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path, "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if *loaded != *cfg {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", *loaded, *cfg)
	}
}

func TestSaveOverwritesExisting(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.json")

	first := DefaultConfig()
	first.Log.Level = "debug"
	if err := Save(first, path); err != nil {
		t.Fatalf("First save failed: %v", err)
	}

	second := DefaultConfig()
	second.Log.Level = "error"
	if err := Save(second, path); err != nil {
		t.Fatalf("Second save failed: %v", err)
	}

	loaded, err := Load("", path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Log.Level != "error" {
		t.Errorf("Expected 'error', got '%s'", loaded.Log.Level)
	}
}
