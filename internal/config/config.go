// Package config exposes the typed, read-only-after-startup view of project
// configuration that the core consumes. The interactive wizard and format
// migration live outside this module; Load only refuses to proceed past a
// config version it does not recognize.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/sergiogswv/sentinel/internal/model"
)

// CurrentVersion is the newest config schema version this build understands.
const CurrentVersion = "2"

// SupportedVersions lists config versions Load accepts without migration.
var SupportedVersions = map[string]bool{
	"1": true,
	"2": true,
}

// RuleThresholds holds the static analyzer thresholds.
type RuleThresholds struct {
	ComplexityMax   int `toml:"complexity_max"`
	FunctionMaxLines int `toml:"function_max_lines"`
}

// Config is the typed project configuration consumed by every subsystem.
type Config struct {
	Version string `toml:"version"`

	ProjectRoot string   `toml:"-"` // set by the loader, not persisted
	WatchDir    string   `toml:"watch_dir"`
	Extensions  []string `toml:"extensions"`
	Ignore      []string `toml:"ignore_patterns"`

	Primary  model.ModelDescriptor  `toml:"primary"`
	Fallback *model.ModelDescriptor `toml:"fallback"`

	Rules RuleThresholds `toml:"rules"`

	TestCommand []string `toml:"test_command"`

	Features map[string]bool `toml:"features"`
}

// Default returns a Config with the documented defaults applied.
func Default() *Config {
	return &Config{
		Version:    CurrentVersion,
		WatchDir:   "src",
		Extensions: []string{".ts", ".tsx", ".js", ".jsx", ".go", ".py"},
		Rules: RuleThresholds{
			ComplexityMax:    10,
			FunctionMaxLines: 50,
		},
		Features: map[string]bool{},
	}
}

// Load reads and parses the TOML config file at path. It does not attempt
// to migrate an old-format file in place — that is the external wizard's
// job — it only validates that the declared version is one this build
// understands.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}

	if cfg.Version == "" {
		cfg.Version = "1"
	}
	if !SupportedVersions[cfg.Version] {
		return nil, fmt.Errorf("unsupported config version %q in %s (run the config wizard to migrate)", cfg.Version, path)
	}

	if len(cfg.Extensions) == 0 {
		cfg.Extensions = Default().Extensions
	}
	if cfg.Rules.ComplexityMax == 0 {
		cfg.Rules.ComplexityMax = 10
	}
	if cfg.Rules.FunctionMaxLines == 0 {
		cfg.Rules.FunctionMaxLines = 50
	}

	return cfg, nil
}

// HasExtension reports whether path's extension is configured for watching.
func (c *Config) HasExtension(ext string) bool {
	for _, e := range c.Extensions {
		if e == ext {
			return true
		}
	}
	return false
}
