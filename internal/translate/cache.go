package translate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"pdf-trans/internal/logger"
)

// cacheVersion is written into the cache file
const cacheVersion = "1.0"

// CacheEntry is one cached translation
type CacheEntry struct {
	Hash        string    `json:"hash"`
	Source      string    `json:"source"`
	Target      string    `json:"target"`
	Original    string    `json:"original"`
	Translation string    `json:"translation"`
	CreatedAt   time.Time `json:"created_at"`
}

// CacheFile is the on-disk layout of the cache
type CacheFile struct {
	Version string       `json:"version"`
	Entries []CacheEntry `json:"entries"`
}

// TranslationCache stores translations keyed by language pair and text
type TranslationCache struct {
	cachePath string
	cache     map[string]CacheEntry // hash -> entry
	dirty     bool
	mu        sync.RWMutex
}

// NewTranslationCache creates an empty cache persisted at cachePath. An
// empty path keeps the cache in memory only.
func NewTranslationCache(cachePath string) *TranslationCache {
	return &TranslationCache{
		cachePath: cachePath,
		cache:     make(map[string]CacheEntry),
	}
}

// ComputeHash hashes the language pair and text with SHA-256
func ComputeHash(source, target, text string) string {
	hash := sha256.Sum256([]byte(source + "\x00" + target + "\x00" + text))
	return hex.EncodeToString(hash[:])
}

// Get returns the cached translation of text
func (c *TranslationCache) Get(source, target, text string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.cache[ComputeHash(source, target, text)]
	if !ok {
		return "", false
	}
	return entry.Translation, true
}

// Set stores a translation
func (c *TranslationCache) Set(source, target, text, translation string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	hash := ComputeHash(source, target, text)
	c.cache[hash] = CacheEntry{
		Hash:        hash,
		Source:      source,
		Target:      target,
		Original:    text,
		Translation: translation,
		CreatedAt:   time.Now(),
	}
	c.dirty = true
}

// Load reads the cache file. A missing file leaves the cache empty.
func (c *TranslationCache) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cachePath == "" {
		return nil
	}
	data, err := os.ReadFile(c.cachePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return NewError(ErrCacheFailed, "failed to read cache file", err)
	}

	var cacheFile CacheFile
	if err := json.Unmarshal(data, &cacheFile); err != nil {
		return NewError(ErrCacheFailed, "failed to parse cache file", err)
	}

	c.cache = make(map[string]CacheEntry, len(cacheFile.Entries))
	for _, entry := range cacheFile.Entries {
		c.cache[entry.Hash] = entry
	}
	c.dirty = false
	return nil
}

// Save writes the cache file when it changed since the last load or save
func (c *TranslationCache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cachePath == "" || !c.dirty {
		return nil
	}

	entries := make([]CacheEntry, 0, len(c.cache))
	for _, entry := range c.cache {
		entries = append(entries, entry)
	}
	data, err := json.MarshalIndent(CacheFile{Version: cacheVersion, Entries: entries}, "", "  ")
	if err != nil {
		return NewError(ErrCacheFailed, "failed to marshal cache", err)
	}

	if err := os.MkdirAll(filepath.Dir(c.cachePath), 0755); err != nil {
		return NewError(ErrCacheFailed, "failed to create cache directory", err)
	}
	if err := os.WriteFile(c.cachePath, data, 0644); err != nil {
		return NewError(ErrCacheFailed, "failed to write cache file", err)
	}
	c.dirty = false
	logger.Debug("translation cache saved", logger.String("path", c.cachePath), logger.Int("entries", len(entries)))
	return nil
}

// Size returns the number of entries
func (c *TranslationCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

// Clear empties the cache
func (c *TranslationCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]CacheEntry)
	c.dirty = true
}

// GetCachePath returns the cache file path
func (c *TranslationCache) GetCachePath() string {
	return c.cachePath
}

// CachedGateway consults a TranslationCache before the wrapped gateway
type CachedGateway struct {
	inner Gateway
	cache *TranslationCache
}

// NewCachedGateway wraps inner with cache
func NewCachedGateway(inner Gateway, cache *TranslationCache) *CachedGateway {
	return &CachedGateway{inner: inner, cache: cache}
}

// Name returns the wrapped backend name
func (g *CachedGateway) Name() string { return g.inner.Name() }

// Cache returns the underlying cache
func (g *CachedGateway) Cache() *TranslationCache { return g.cache }

// Translate returns a cached translation or asks the wrapped gateway and
// caches a successful result.
func (g *CachedGateway) Translate(ctx context.Context, text, source, target string) (string, error) {
	if out, ok := g.cache.Get(source, target, text); ok {
		return out, nil
	}
	out, err := g.inner.Translate(ctx, text, source, target)
	if err != nil {
		return "", err
	}
	if out != "" {
		g.cache.Set(source, target, text, out)
	}
	return out, nil
}
