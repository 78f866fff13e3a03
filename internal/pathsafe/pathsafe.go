// Package pathsafe implements the path-safety contract every agent file
// write routes through: reject absolute paths outside the project root,
// reject ".." traversal, reject symlinks resolving outside.
package pathsafe

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SecureJoin joins root and userPath, returning an error if the resulting
// path would escape root (via traversal, an absolute path outside root, or
// a symlink that resolves outside).
func SecureJoin(root, userPath string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve root: %w", err)
	}

	var candidate string
	if filepath.IsAbs(userPath) {
		candidate = filepath.Clean(userPath)
	} else {
		candidate = filepath.Join(absRoot, userPath)
	}

	if !isDescendant(absRoot, candidate) {
		return "", fmt.Errorf("path %q escapes project root %q", userPath, root)
	}

	// Resolve symlinks along the way; if the real path escapes root, reject.
	resolved, err := resolveSymlinks(candidate)
	if err == nil && !isDescendant(absRoot, resolved) {
		return "", fmt.Errorf("path %q resolves outside project root via symlink", userPath)
	}

	return candidate, nil
}

func isDescendant(root, candidate string) bool {
	rel, err := filepath.Rel(root, candidate)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && rel != ".."
}

// resolveSymlinks resolves symlinks for the longest existing prefix of
// path, appending the remaining (not-yet-created) components unchanged.
func resolveSymlinks(path string) (string, error) {
	if _, err := os.Lstat(path); err == nil {
		return filepath.EvalSymlinks(path)
	}

	parent := filepath.Dir(path)
	if parent == path {
		return path, nil
	}
	resolvedParent, err := resolveSymlinks(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(resolvedParent, filepath.Base(path)), nil
}
