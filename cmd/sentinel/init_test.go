package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/BurntSushi/toml"

	"github.com/sergiogswv/sentinel/internal/config"
)

func TestRunInitWritesDefaultConfig(t *testing.T) {
	tmp := t.TempDir()

	if err := runInit(tmp); err != nil {
		t.Fatalf("runInit() error = %v", err)
	}

	configPath := filepath.Join(tmp, "sentinel.toml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("sentinel.toml was not written: %v", err)
	}

	var got config.Config
	if err := toml.Unmarshal(data, &got); err != nil {
		t.Fatalf("written config is not valid TOML: %v", err)
	}

	want := config.Default()
	if len(got.Extensions) != len(want.Extensions) {
		t.Errorf("Extensions = %v, want %v", got.Extensions, want.Extensions)
	}
}

func TestRunInitLeavesExistingConfigUntouched(t *testing.T) {
	tmp := t.TempDir()
	configPath := filepath.Join(tmp, "sentinel.toml")
	const sentinel = "# hand-edited, do not overwrite\n"
	if err := os.WriteFile(configPath, []byte(sentinel), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := runInit(tmp); err != nil {
		t.Fatalf("runInit() error = %v", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != sentinel {
		t.Error("runInit() overwrote an existing sentinel.toml")
	}
}
