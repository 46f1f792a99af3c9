package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sync"
)

// ErrNotFound is returned when no root contains a file.
var ErrNotFound = errors.New("file not found")

// Manager reads asset files from a stack of roots.
type Manager struct {
	roots []fs.FS
	cache *Cache
	mu    sync.RWMutex
}

// NewManager creates a manager with no roots.
func NewManager() *Manager {
	return &Manager{
		cache: NewCache(),
	}
}

// AddDir adds a directory root.
// Roots are searched in reverse order (last added = highest priority).
func (m *Manager) AddDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("adding root %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("adding root %s: not a directory", dir)
	}
	m.AddFS(os.DirFS(dir))
	return nil
}

// AddFS adds an arbitrary file system root.
func (m *Manager) AddFS(root fs.FS) {
	m.mu.Lock()
	m.roots = append(m.roots, root)
	m.mu.Unlock()
}

// Load reads a slash-separated path relative to the roots.
func (m *Manager) Load(name string) ([]byte, error) {
	name = path.Clean(name)
	if data, ok := m.cache.Get(name); ok {
		return data, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.roots) - 1; i >= 0; i-- {
		data, err := fs.ReadFile(m.roots[i], name)
		if err == nil {
			m.cache.Set(name, data)
			return data, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Close drops all roots and cached file data.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.roots = nil
	m.cache.Clear()
}

// Cache keeps raw file bytes so a file shared by several textures is read
// once.
type Cache struct {
	data map[string][]byte
	mu   sync.Mutex

	hits   int
	misses int
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string][]byte),
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
	c.data[key] = data
}

// Clear empties the cache and resets its counters.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string][]byte)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// CacheStats returns the file cache's hit and miss counts.
func (m *Manager) CacheStats() (hits, misses int) {
	return m.cache.Stats()
}
