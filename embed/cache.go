package embed

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Cache is a JSON-backed map from normalized text to embedding vector.
// Writers go through tmp + rename, so concurrent processes see either the
// old file or the new one; the last flusher wins.
type Cache struct {
	path   string
	logger *slog.Logger

	mu      sync.RWMutex
	entries map[string][]float64
	dirty   bool
}

// OpenCache loads the cache at path. A missing file starts an empty
// cache; an unreadable one is logged and also starts empty.
func OpenCache(path string, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Cache{
		path:    path,
		logger:  logger,
		entries: make(map[string][]float64),
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("could not read embedding cache", "path", path, "error", err)
		}
		return c
	}
	if err := json.Unmarshal(raw, &c.entries); err != nil {
		logger.Warn("could not parse embedding cache, starting empty", "path", path, "error", err)
		c.entries = make(map[string][]float64)
	}
	return c
}

// Get returns the cached vector for a normalized key.
func (c *Cache) Get(key string) ([]float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	vec, ok := c.entries[key]
	return vec, ok
}

// Put stores a vector under a normalized key and marks the cache dirty.
func (c *Cache) Put(key string, vec []float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = vec
	c.dirty = true
}

// Len reports the number of cached vectors.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Flush writes the cache to disk when it has unsaved entries.
func (c *Cache) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	raw, err := json.Marshal(c.entries)
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("replace cache: %w", err)
	}
	c.dirty = false
	c.logger.Debug("flushed embedding cache", "path", c.path, "entries", len(c.entries))
	return nil
}

// Close flushes any unsaved entries.
func (c *Cache) Close() error {
	return c.Flush()
}
