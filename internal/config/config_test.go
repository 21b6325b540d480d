package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.DefaultCase = "case-7"
	cfg.Formats = []string{FormatCSV}
	cfg.Acquire.ADBTimeout = Duration{90 * time.Second}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.DefaultCase != "case-7" {
		t.Errorf("DefaultCase = %q, want %q", loaded.DefaultCase, "case-7")
	}
	if len(loaded.Formats) != 1 || loaded.Formats[0] != FormatCSV {
		t.Errorf("Formats = %v, want [csv]", loaded.Formats)
	}
	if loaded.Acquire.ADBTimeout.Duration != 90*time.Second {
		t.Errorf("ADBTimeout = %v, want 1m30s", loaded.Acquire.ADBTimeout)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := "log_level = \"debug\"\n[case]\nexaminer = \"J. Doe\"\n[acquire]\nadb_timeout = \"30s\"\n"
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LogLevel != "debug" || cfg.Case.Examiner != "J. Doe" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.Case.Company != "WhatsApp Forensics Report" || cfg.Parse.MessageLimit != 1000 || cfg.OutputDir != "output" {
		t.Errorf("defaults lost: %+v", cfg)
	}
	if cfg.Acquire.ADBTimeout.Duration != 30*time.Second {
		t.Errorf("ADBTimeout = %v, want 30s", cfg.Acquire.ADBTimeout)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"log level", "log_level = \"loud\"\n"},
		{"format", "formats = [\"pdf\"]\n"},
		{"duration", "[acquire]\nadb_timeout = \"soon\"\n"},
		{"limit", "[parse]\nchat_limit = -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tt.data), 0600); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("Load() expected error")
			}
		})
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/config.toml")
	if err == nil {
		t.Error("Load() expected error for missing file")
	}
	cfg, err := LoadOrDefault("/nonexistent/config.toml")
	if err != nil {
		t.Fatalf("LoadOrDefault() error = %v", err)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
}

func TestSavePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	if err := Save(path, Default()); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	perm := info.Mode().Perm()
	if perm != 0600 {
		t.Errorf("file permission = %o, want 0600", perm)
	}
}
