package imgembed

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// ManifestCache holds the parsed manifest in memory and re-reads the file
// when the TTL has elapsed and the file's modification time has changed.
type ManifestCache struct {
	mu      sync.RWMutex
	path    string
	ttl     time.Duration
	acc     *Accessor
	modTime time.Time
	checked time.Time
}

// NewManifestCache creates a ManifestCache for the manifest at path.
func NewManifestCache(path string, ttl time.Duration) *ManifestCache {
	return &ManifestCache{path: path, ttl: ttl}
}

func (c *ManifestCache) valid() bool {
	return c.acc != nil && time.Since(c.checked) < c.ttl
}

// Invalidate forces the next read to check the file again.
func (c *ManifestCache) Invalidate() {
	c.mu.Lock()
	c.checked = time.Time{}
	c.mu.Unlock()
}

func (c *ManifestCache) load() error {
	if c.valid() {
		return nil
	}
	info, err := os.Stat(c.path)
	if err != nil {
		return fmt.Errorf("stat manifest: %w", err)
	}
	if c.acc != nil && info.ModTime().Equal(c.modTime) {
		c.checked = time.Now()
		return nil
	}
	acc, err := Load(c.path)
	if err != nil {
		return err
	}
	c.acc = acc
	c.modTime = info.ModTime()
	c.checked = time.Now()
	return nil
}

// Accessor returns the current manifest accessor, reloading it if needed.
// It tries a read lock first and only takes the write lock to reload.
func (c *ManifestCache) Accessor() (*Accessor, error) {
	c.mu.RLock()
	if c.valid() {
		acc := c.acc
		c.mu.RUnlock()
		return acc, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.load(); err != nil {
		return nil, err
	}
	return c.acc, nil
}
