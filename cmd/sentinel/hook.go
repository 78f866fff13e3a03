package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sergiogswv/sentinel/internal/ui"
)

// hookMarker identifies a post-commit hook as Sentinel's own, so install
// refuses to clobber a user's hook and remove refuses to delete one.
const hookMarker = "# sentinel post-commit hook"

const postCommitHookTemplate = `#!/bin/sh
%s
# installed by: sentinel hook install
# removed with: sentinel hook remove
sentinel pro review --security "$(git diff-tree --no-commit-id --name-only -r HEAD)" >/dev/null 2>&1 &
`

func newHookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hook",
		Short: "Manage the git post-commit hook that pings Sentinel after each commit",
	}
	cmd.AddCommand(newHookInstallCmd(), newHookRemoveCmd())
	return cmd
}

func newHookInstallCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install the post-commit hook",
		RunE: func(cmd *cobra.Command, args []string) error {
			gitDir, err := findGitDir()
			if err != nil {
				return err
			}
			hookPath := filepath.Join(gitDir, "hooks", "post-commit")
			if err := installHook(hookPath, force); err != nil {
				return err
			}
			ui.Success("installed post-commit hook at " + hookPath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing non-Sentinel hook")
	return cmd
}

func newHookRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove",
		Short: "Remove the post-commit hook",
		RunE: func(cmd *cobra.Command, args []string) error {
			gitDir, err := findGitDir()
			if err != nil {
				return err
			}
			hookPath := filepath.Join(gitDir, "hooks", "post-commit")
			if err := removeHook(hookPath); err != nil {
				return err
			}
			ui.Success("removed post-commit hook")
			return nil
		},
	}
}

// findGitDir walks up from the working directory looking for .git,
// resolving the gitdir pointer file used by worktrees.
func findGitDir() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	dir := cwd
	for {
		gitPath := filepath.Join(dir, ".git")
		if info, err := os.Stat(gitPath); err == nil {
			if info.IsDir() {
				return gitPath, nil
			}
			content, err := os.ReadFile(gitPath)
			if err != nil {
				return "", fmt.Errorf("read .git file: %w", err)
			}
			const prefix = "gitdir: "
			gitdir := strings.TrimSpace(strings.TrimPrefix(string(content), prefix))
			if filepath.IsAbs(gitdir) {
				return gitdir, nil
			}
			return filepath.Join(dir, gitdir), nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not a git repository (or any parent directory)")
		}
		dir = parent
	}
}

func installHook(hookPath string, force bool) error {
	if err := os.MkdirAll(filepath.Dir(hookPath), 0o755); err != nil {
		return fmt.Errorf("create hooks directory: %w", err)
	}

	if content, err := os.ReadFile(hookPath); err == nil {
		if strings.Contains(string(content), hookMarker) {
			ui.Info("Sentinel hook already installed, leaving it untouched")
			return nil
		}
		if !force {
			return fmt.Errorf("hook already exists at %s (use --force to overwrite)", hookPath)
		}
	}

	content := fmt.Sprintf(postCommitHookTemplate, hookMarker)
	return os.WriteFile(hookPath, []byte(content), 0o755)
}

func removeHook(hookPath string) error {
	content, err := os.ReadFile(hookPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("no hook installed at %s", hookPath)
		}
		return fmt.Errorf("read hook: %w", err)
	}
	if !strings.Contains(string(content), hookMarker) {
		return fmt.Errorf("hook at %s was not installed by Sentinel, remove it manually", hookPath)
	}
	return os.Remove(hookPath)
}
