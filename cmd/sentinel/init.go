package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/sergiogswv/sentinel/internal/config"
	"github.com/sergiogswv/sentinel/internal/ui"
	"github.com/sergiogswv/sentinel/internal/vcsignore"
)

// externalWizardBinary is the name of the out-of-tree interactive
// configuration wizard. Sentinel itself never prompts for provider
// credentials or rule thresholds interactively.
const externalWizardBinary = "sentinel-config-wizard"

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Invoke the external config wizard, or scaffold a default config if it isn't installed",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := os.Getwd()
			if err != nil {
				return err
			}
			if projectRootFlag != "." {
				root = projectRootFlag
			}
			return runInit(root)
		},
	}
}

func runInit(root string) error {
	if path, err := exec.LookPath(externalWizardBinary); err == nil {
		c := exec.Command(path, "--project-root", root)
		c.Stdin, c.Stdout, c.Stderr = os.Stdin, os.Stdout, os.Stderr
		return c.Run()
	}

	configPath := filepath.Join(root, "sentinel.toml")
	if _, err := os.Stat(configPath); err == nil {
		ui.Info("sentinel.toml already exists, leaving it untouched")
		return nil
	}

	f, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("create config: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config.Default()); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := vcsignore.Ensure(root, "sentinel.toml"); err != nil {
		ui.Warn("could not add sentinel.toml to .gitignore: " + err.Error())
	}

	ui.Success("wrote sentinel.toml with default settings")
	ui.Info(fmt.Sprintf("install %s on PATH for interactive setup (model credentials, rule thresholds)", externalWizardBinary))
	return nil
}
