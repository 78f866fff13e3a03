package rules

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/renameio/v2"

	"github.com/sergiogswv/sentinel/internal/model"
)

const ignoreFileVersion = "1"

type ignoreFile struct {
	Version string              `json:"version"`
	Entries []model.IgnoreEntry `json:"entries"`
}

// IgnoreStore is the persistent allowlist of (rule, file, symbol?) tuples
// that suppress violations, one JSON file for the whole project.
type IgnoreStore struct {
	mu      sync.Mutex
	path    string
	entries []model.IgnoreEntry
}

// OpenIgnoreStore loads path, creating an empty store if it does not exist.
func OpenIgnoreStore(path string) (*IgnoreStore, error) {
	s := &IgnoreStore{path: path}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("read ignore file: %w", err)
	}

	var f ignoreFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode ignore file: %w", err)
	}
	s.entries = f.Entries
	return s, nil
}

// Add appends a new ignore entry and persists the store. symbol == "" means
// rule-wide suppression in that file.
func (s *IgnoreStore) Add(rule, file, symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, model.IgnoreEntry{
		Rule: rule, File: file, Symbol: symbol, AddedAt: time.Now(),
	})
	return s.saveLocked()
}

// List returns a copy of all entries.
func (s *IgnoreStore) List() []model.IgnoreEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.IgnoreEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// ClearFile removes every entry for file and persists the store.
func (s *IgnoreStore) ClearFile(file string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []model.IgnoreEntry
	for _, e := range s.entries {
		if e.File != file {
			kept = append(kept, e)
		}
	}
	s.entries = kept
	return s.saveLocked()
}

// FilterAll drops every violation matching an ignore entry.
func (s *IgnoreStore) FilterAll(violations []model.Violation) []model.Violation {
	s.mu.Lock()
	entries := s.entries
	s.mu.Unlock()

	var out []model.Violation
	for _, v := range violations {
		suppressed := false
		for _, e := range entries {
			if e.Matches(v) {
				suppressed = true
				break
			}
		}
		if !suppressed {
			out = append(out, v)
		}
	}
	return out
}

func (s *IgnoreStore) saveLocked() error {
	data, err := json.MarshalIndent(ignoreFile{Version: ignoreFileVersion, Entries: s.entries}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ignore file: %w", err)
	}
	return renameio.WriteFile(s.path, data, 0o644)
}
