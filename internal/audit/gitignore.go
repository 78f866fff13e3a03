package audit

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// gitignoreMatcher is a small subset of .gitignore semantics: plain
// substrings, "*" glob segments, and directory-only patterns (trailing
// slash). It does not implement negation or nested .gitignore discovery
// beyond the project root's own file — sufficient for the Audit Batcher's
// candidate-selection filter.
type gitignoreMatcher struct {
	patterns []gitignorePattern
}

type gitignorePattern struct {
	glob    string
	dirOnly bool
}

// loadGitignore reads root's .gitignore file, if present, plus a small
// fixed set of conventional directories that are always excluded.
func loadGitignore(root string) (*gitignoreMatcher, error) {
	m := &gitignoreMatcher{patterns: []gitignorePattern{
		{glob: ".git", dirOnly: true},
		{glob: "node_modules", dirOnly: true},
		{glob: "vendor", dirOnly: true},
	}}

	f, err := os.Open(filepath.Join(root, ".gitignore"))
	if os.IsNotExist(err) {
		return m, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		dirOnly := strings.HasSuffix(line, "/")
		glob := strings.TrimSuffix(strings.TrimPrefix(line, "/"), "/")
		m.patterns = append(m.patterns, gitignorePattern{glob: glob, dirOnly: dirOnly})
	}
	return m, scanner.Err()
}

// match reports whether rel (a slash-joined path relative to root) is
// excluded by any loaded pattern. isDir lets directory-only patterns apply
// only to directory entries.
func (m *gitignoreMatcher) match(rel string, isDir bool) bool {
	rel = filepath.ToSlash(rel)
	base := filepath.Base(rel)
	for _, p := range m.patterns {
		if p.dirOnly && !isDir {
			continue
		}
		if ok, _ := filepath.Match(p.glob, base); ok {
			return true
		}
		if ok, _ := filepath.Match(p.glob, rel); ok {
			return true
		}
	}
	return false
}
