// Package cache implements the content-addressed response cache: one file
// per fingerprint, written via write-then-rename so concurrent readers
// always observe either a fully formed entry or none.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"

	"github.com/sergiogswv/sentinel/internal/model"
)

// ErrMiss is returned by Get when no entry exists for the fingerprint.
var ErrMiss = errors.New("cache: miss")

// Cache is a directory of content-addressed response files.
type Cache struct {
	dir string
}

// New opens (and creates if needed) a cache rooted at dir.
func New(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Cache{dir: dir}, nil
}

// Fingerprint computes the stable digest over (prompt, taskClass, model)
// used as the cache key throughout the provider/agent layers.
func Fingerprint(prompt, taskClass, modelName string) string {
	h := sha256.New()
	h.Write([]byte(taskClass))
	h.Write([]byte{0})
	h.Write([]byte(modelName))
	h.Write([]byte{0})
	h.Write([]byte(prompt))
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Cache) path(fingerprint string) string {
	return filepath.Join(c.dir, fingerprint+".json")
}

// Get probes the cache for fingerprint. Returns ErrMiss on a cold cache.
func (c *Cache) Get(fingerprint string) (*model.CacheEntry, error) {
	data, err := os.ReadFile(c.path(fingerprint))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("read cache entry: %w", err)
	}

	var entry model.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("decode cache entry: %w", err)
	}
	return &entry, nil
}

// Put writes entry under fingerprint via write-then-rename. Cache entries
// are immutable once written: a second Put for the same fingerprint simply
// overwrites (the entry's content is deterministic from the same inputs).
func (c *Cache) Put(fingerprint string, entry model.CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := renameio.WriteFile(c.path(fingerprint), data, 0o644); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}

// Clear removes every entry in the cache. Deletion is whole-cache only;
// individual entries are never removed piecemeal.
func (c *Cache) Clear() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("read cache dir: %w", err)
	}
	for _, e := range entries {
		if err := os.Remove(filepath.Join(c.dir, e.Name())); err != nil {
			return fmt.Errorf("remove cache entry %s: %w", e.Name(), err)
		}
	}
	return nil
}

// Count returns the number of entries currently cached.
func (c *Cache) Count() (int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}
