// Package assets handles game data lookup and caching.
package assets

import (
	"fmt"
	"io"
	"sync"

	"go.uber.org/multierr"

	"github.com/Faultbox/cryconv/pkg/encoding"
	"github.com/Faultbox/cryconv/pkg/pak"
	"github.com/Faultbox/cryconv/pkg/scene"
)

// Manager searches data roots and .pak archives and caches what it
// reads. It implements scene.Source and is safe for concurrent use.
type Manager struct {
	sources scene.MultiSource
	closers []io.Closer
	cache   *Cache
	mu      sync.RWMutex
}

// NewManager creates a manager whose cache holds at most maxCacheBytes
// (0 = unlimited).
func NewManager(maxCacheBytes int64) *Manager {
	return &Manager{
		cache: NewCache(maxCacheBytes),
	}
}

// AddDir adds an extracted data directory.
// Sources are searched in the order they were added.
func (m *Manager) AddDir(root string) {
	m.mu.Lock()
	m.sources = append(m.sources, scene.DirSource{Root: root})
	m.mu.Unlock()
}

// AddArchive opens a .pak archive and adds it to the search list.
func (m *Manager) AddArchive(path string) (*pak.Archive, error) {
	archive, err := pak.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening archive %s: %w", path, err)
	}

	m.mu.Lock()
	m.sources = append(m.sources, archive)
	m.closers = append(m.closers, archive)
	m.mu.Unlock()

	return archive, nil
}

// ReadFile implements scene.Source.
func (m *Manager) ReadFile(path string) ([]byte, error) {
	key := encoding.NormalizePath(path)

	// Check cache first
	if data, ok := m.cache.Get(key); ok {
		return data, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	data, err := m.sources.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m.cache.Set(key, data)
	return data, nil
}

// List implements scene.Lister over every source.
func (m *Manager) List(dir string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sources.List(dir)
}

// Len returns the number of sources.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sources)
}

// CacheStats returns cache hits and misses.
func (m *Manager) CacheStats() (hits, misses int) {
	return m.cache.Stats()
}

// Close closes all archives and drops the cache.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	for _, c := range m.closers {
		err = multierr.Append(err, c.Close())
	}
	m.sources = nil
	m.closers = nil
	m.cache.Clear()
	return err
}

// Cache is a simple in-memory cache for loaded files. Entries that
// would exceed the byte limit are not stored.
type Cache struct {
	data     map[string][]byte
	size     int64
	maxBytes int64
	mu       sync.RWMutex

	// Stats
	hits   int
	misses int
}

// NewCache creates a new cache. maxBytes 0 means unlimited.
func NewCache(maxBytes int64) *Cache {
	return &Cache{
		data:     make(map[string][]byte),
		maxBytes: maxBytes,
	}
}

// Get retrieves an item from cache.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return data, ok
}

// Set stores an item in cache.
func (c *Cache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.data[key]; ok {
		c.size -= int64(len(old))
	}
	if c.maxBytes > 0 && c.size+int64(len(data)) > c.maxBytes {
		delete(c.data, key)
		return
	}
	c.data[key] = data
	c.size += int64(len(data))
}

// Size returns the number of cached bytes.
func (c *Cache) Size() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.size
}

// Clear clears the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string][]byte)
	c.size = 0
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}
