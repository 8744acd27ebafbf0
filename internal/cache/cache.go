// Package cache stores scoring engine results on disk so that scoring the
// same reports again with the same settings skips the engine.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/spboyer/rrgen/internal/radeval"
)

// Cache provides caching for engine scores
type Cache struct {
	dir string
	mu  sync.Mutex
}

// New creates a new cache instance with the specified directory
func New(dir string) *Cache {
	return &Cache{dir: dir}
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	return c.dir
}

// Key generates a unique cache key for a scoring request.
// The key is based on:
// - the engine identity (kind and address)
// - metric flags and engine options
// - every reference and hypothesis, in order
func Key(engineID string, req *radeval.Request) (string, error) {
	h := sha256.New()

	if err := writeString(h, engineID); err != nil {
		return "", err
	}

	flagsJSON, err := json.Marshal(req.Flags)
	if err != nil {
		return "", fmt.Errorf("marshaling flags: %w", err)
	}
	if _, err := h.Write(flagsJSON); err != nil {
		return "", err
	}
	optionsJSON, err := json.Marshal(req.Options)
	if err != nil {
		return "", fmt.Errorf("marshaling options: %w", err)
	}
	if _, err := h.Write(optionsJSON); err != nil {
		return "", err
	}

	if err := writeInt(h, len(req.Refs)); err != nil {
		return "", err
	}
	for _, s := range req.Refs {
		if err := writeString(h, s); err != nil {
			return "", err
		}
	}
	if err := writeInt(h, len(req.Hyps)); err != nil {
		return "", err
	}
	for _, s := range req.Hyps {
		if err := writeString(h, s); err != nil {
			return "", err
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Get retrieves cached scores if they exist
func (c *Cache) Get(key string) (radeval.Scores, bool) {
	if c.dir == "" {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.cachePath(key))
	if err != nil {
		// Cache miss
		return nil, false
	}

	var scores radeval.Scores
	if err := json.Unmarshal(data, &scores); err != nil || scores == nil {
		// Invalid cache entry, treat as miss
		return nil, false
	}

	return scores, true
}

// Put stores scores in the cache
func (c *Cache) Put(key string, scores radeval.Scores) error {
	if c.dir == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Ensure cache directory exists
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	data, err := json.MarshalIndent(scores, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling scores: %w", err)
	}

	if err := os.WriteFile(c.cachePath(key), data, 0644); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}

	return nil
}

// Clear removes all cached scores
func (c *Cache) Clear() error {
	if c.dir == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Check if directory exists
	if _, err := os.Stat(c.dir); os.IsNotExist(err) {
		return nil
	}

	// Safety check: only remove a directory that holds nothing but cache files
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("reading cache directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			return fmt.Errorf("cache directory contains subdirectories - refusing to delete for safety")
		}
		if filepath.Ext(entry.Name()) != ".json" {
			return fmt.Errorf("cache directory contains non-cache files - refusing to delete for safety")
		}
	}

	return os.RemoveAll(c.dir)
}

// cachePath returns the file path for a cache key
func (c *Cache) cachePath(key string) string {
	return filepath.Join(c.dir, key+".json")
}

// Engine wraps another engine and serves repeated requests from a Cache.
type Engine struct {
	inner radeval.Engine
	cache *Cache
	id    string
}

// Wrap returns an engine that consults c before calling inner. engineID
// separates entries produced by different engines.
func Wrap(inner radeval.Engine, c *Cache, engineID string) *Engine {
	return &Engine{inner: inner, cache: c, id: engineID}
}

func (e *Engine) Score(ctx context.Context, req *radeval.Request) (radeval.Scores, error) {
	key, err := Key(e.id, req)
	if err != nil {
		return nil, err
	}

	if scores, ok := e.cache.Get(key); ok {
		slog.Debug("Scores served from cache", "key", key)
		return scores, nil
	}

	scores, err := e.inner.Score(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := e.cache.Put(key, scores); err != nil {
		slog.Warn("Failed to cache scores", "error", err)
	}
	return scores, nil
}

// Helper functions

func writeString(w io.Writer, s string) error {
	// Write string with null byte delimiter to prevent hash collisions
	_, err := w.Write([]byte(s + "\x00"))
	return err
}

func writeInt(w io.Writer, i int) error {
	// Write int with null byte delimiter to prevent hash collisions
	_, err := fmt.Fprintf(w, "%d\x00", i)
	return err
}
