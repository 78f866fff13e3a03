// Package vcsignore appends Sentinel's own persisted artifacts to the
// project's .gitignore, so its state never shows up as untracked noise in
// the user's VCS status.
package vcsignore

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
)

// Ensure appends rel (a project-root-relative path) to root's .gitignore
// if it is not already listed, creating the file if it doesn't exist yet.
// Called at every persisted-artifact creation site: config file, stats
// file, cache directory, index database, ignore file, .suggested
// siblings, generated doc markdown.
func Ensure(root, rel string) error {
	rel = filepath.ToSlash(rel)
	path := filepath.Join(root, ".gitignore")

	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	for _, line := range strings.Split(string(existing), "\n") {
		if strings.TrimSpace(line) == rel {
			return nil
		}
	}

	content := string(existing)
	if len(content) > 0 && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += rel + "\n"

	return renameio.WriteFile(path, []byte(content), 0o644)
}
