package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sentinel.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `version = "2"`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Rules.ComplexityMax != 10 {
		t.Errorf("ComplexityMax = %d, want 10", cfg.Rules.ComplexityMax)
	}
	if cfg.Rules.FunctionMaxLines != 50 {
		t.Errorf("FunctionMaxLines = %d, want 50", cfg.Rules.FunctionMaxLines)
	}
	if !cfg.HasExtension(".go") {
		t.Error("expected default extensions to include .go")
	}
}

func TestLoad_RejectsUnsupportedVersion(t *testing.T) {
	path := writeConfig(t, `version = "99"`)

	if _, err := Load(path); err == nil {
		t.Fatal("Load with unsupported version: want error, got nil")
	}
}

func TestLoad_AcceptsPreviousVersion(t *testing.T) {
	path := writeConfig(t, `version = "1"
watch_dir = "lib"`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.WatchDir != "lib" {
		t.Errorf("WatchDir = %q, want %q", cfg.WatchDir, "lib")
	}
}
