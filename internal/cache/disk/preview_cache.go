package disk

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// PreviewCache persists rendered composition previews on disk, keyed by a
// hash of the composition code, with TTL expiry and LRU eviction. Rendering
// a preview is expensive; re-requesting the same composition is common when
// a user iterates on an instruction.
type PreviewCache struct {
	mu sync.Mutex

	dataDir   string
	indexPath string

	maxEntries int
	ttl        time.Duration

	entries map[string]previewEntry
}

type previewEntry struct {
	File       string    `json:"file"`
	ExpiresAt  time.Time `json:"expires_at"`
	AccessedAt time.Time `json:"accessed_at"`
}

type previewIndex struct {
	Entries map[string]previewEntry `json:"entries"`
}

type PreviewCacheConfig struct {
	Root       string
	MaxEntries int
	TTL        time.Duration
}

func NewPreviewCache(cfg PreviewCacheConfig) (*PreviewCache, error) {
	root := strings.TrimSpace(cfg.Root)
	if root == "" {
		return nil, fmt.Errorf("root is required")
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 64
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}

	c := &PreviewCache{
		dataDir:    filepath.Join(root, "data"),
		indexPath:  filepath.Join(root, "index.json"),
		maxEntries: cfg.MaxEntries,
		ttl:        cfg.TTL,
		entries:    map[string]previewEntry{},
	}
	if err := os.MkdirAll(c.dataDir, 0o755); err != nil {
		return nil, err
	}
	if err := c.loadIndex(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evictLocked(time.Now())
	return c, c.persistIndexLocked()
}

// Key derives the cache key for a composition.
func Key(compositionCode string) string {
	sum := sha256.Sum256([]byte(compositionCode))
	return hex.EncodeToString(sum[:])
}

// Load returns the cached preview payload for key, if present and fresh.
func (c *PreviewCache) Load(_ context.Context, key string) ([]byte, bool, error) {
	if c == nil {
		return nil, false, fmt.Errorf("cache is nil")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, false, fmt.Errorf("key is required")
	}

	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	ent, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if now.After(ent.ExpiresAt) {
		c.removeLocked(key, ent)
		return nil, false, c.persistIndexLocked()
	}
	raw, err := os.ReadFile(filepath.Join(c.dataDir, ent.File))
	if err != nil {
		if os.IsNotExist(err) {
			c.removeLocked(key, ent)
			return nil, false, c.persistIndexLocked()
		}
		return nil, false, err
	}
	ent.AccessedAt = now
	c.entries[key] = ent
	if err := c.persistIndexLocked(); err != nil {
		return nil, false, err
	}
	return append([]byte(nil), raw...), true, nil
}

// Store writes a preview payload under key, evicting stale and
// least-recently-used entries as needed.
func (c *PreviewCache) Store(_ context.Context, key string, payload []byte) error {
	if c == nil {
		return fmt.Errorf("cache is nil")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("key is required")
	}

	now := time.Now()
	file := key + ".bin"
	if err := os.WriteFile(filepath.Join(c.dataDir, file), payload, 0o644); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = previewEntry{
		File:       file,
		ExpiresAt:  now.Add(c.ttl),
		AccessedAt: now,
	}
	c.evictLocked(now)
	return c.persistIndexLocked()
}

func (c *PreviewCache) loadIndex() error {
	raw, err := os.ReadFile(c.indexPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var idx previewIndex
	if err := json.Unmarshal(raw, &idx); err != nil {
		return err
	}
	if idx.Entries != nil {
		c.entries = idx.Entries
	}
	return nil
}

func (c *PreviewCache) evictLocked(now time.Time) {
	for key, ent := range c.entries {
		if now.After(ent.ExpiresAt) {
			c.removeLocked(key, ent)
		}
	}
	for len(c.entries) > c.maxEntries {
		key, ent, ok := c.oldestLocked()
		if !ok {
			return
		}
		c.removeLocked(key, ent)
	}
}

func (c *PreviewCache) oldestLocked() (string, previewEntry, bool) {
	if len(c.entries) == 0 {
		return "", previewEntry{}, false
	}
	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		li := c.entries[keys[i]].AccessedAt
		lj := c.entries[keys[j]].AccessedAt
		if li.Equal(lj) {
			return keys[i] < keys[j]
		}
		return li.Before(lj)
	})
	k := keys[0]
	return k, c.entries[k], true
}

func (c *PreviewCache) removeLocked(key string, ent previewEntry) {
	delete(c.entries, key)
	_ = os.Remove(filepath.Join(c.dataDir, ent.File))
}

func (c *PreviewCache) persistIndexLocked() error {
	raw, err := json.MarshalIndent(previewIndex{Entries: c.entries}, "", "  ")
	if err != nil {
		return err
	}
	tmp := c.indexPath + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, c.indexPath)
}
