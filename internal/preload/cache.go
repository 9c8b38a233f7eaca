/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package preload

import (
	"sync"

	"github.com/luizarrieira/radio-lrr-iv/internal/audio"
	"github.com/luizarrieira/radio-lrr-iv/internal/telemetry"
)

// Cache maps content paths to decoded buffers. Entries are written once and
// never evicted.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]audio.Buffer
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]audio.Buffer)}
}

// Get returns the buffer for path.
func (c *Cache) Get(path string) (audio.Buffer, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	buf, ok := c.entries[path]
	return buf, ok
}

// Has reports whether path is cached.
func (c *Cache) Has(path string) bool {
	_, ok := c.Get(path)
	return ok
}

// Len returns the number of cached paths.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Insert stores buf under path unless the path is already cached. It reports
// whether buf was stored.
func (c *Cache) Insert(path string, buf audio.Buffer) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[path]; ok {
		return false
	}
	c.entries[path] = buf
	telemetry.CacheEntries.Set(float64(len(c.entries)))
	return true
}
