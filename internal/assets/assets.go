// Package assets resolves files and models across layered GRF archives.
package assets

import (
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/Faultbox/midgard3mf/pkg/encoding"
	"github.com/Faultbox/midgard3mf/pkg/formats"
	"github.com/Faultbox/midgard3mf/pkg/grf"
)

// ErrNotFound is returned when no archive holds the requested file.
var ErrNotFound = errors.New("file not found in any archive")

// Manager reads files from a stack of GRF archives.
// Archives are searched in reverse order (last added = highest priority).
type Manager struct {
	archives []*grf.Archive
	models   *Cache
	mu       sync.RWMutex
}

// NewManager creates a new asset manager.
func NewManager() *Manager {
	return &Manager{
		models: NewCache(),
	}
}

// AddArchive opens path and puts it on top of the stack.
func (m *Manager) AddArchive(path string) error {
	archive, err := grf.Open(path)
	if err != nil {
		return errors.Wrapf(err, "opening archive %s", path)
	}

	m.mu.Lock()
	m.archives = append(m.archives, archive)
	m.mu.Unlock()

	return nil
}

// Read returns the file from the highest priority archive holding it.
func (m *Manager) Read(path string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.archives) - 1; i >= 0; i-- {
		if !m.archives[i].Contains(path) {
			continue
		}
		return m.archives[i].Read(path)
	}
	return nil, errors.Wrap(ErrNotFound, path)
}

// LoadRSM reads and parses a model. Parsed models are cached by normalized
// path.
func (m *Manager) LoadRSM(path string) (*formats.RSM, error) {
	key := encoding.NormalizeGRFPath(path)
	if rsm, ok := m.models.Get(key); ok {
		return rsm, nil
	}

	data, err := m.Read(path)
	if err != nil {
		return nil, err
	}
	rsm, err := formats.ParseRSM(data)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	m.models.Set(key, rsm)
	return rsm, nil
}

// Glob returns the sorted union of the matches in every archive.
func (m *Manager) Glob(pattern string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool)
	var result []string
	for _, archive := range m.archives {
		matches, err := archive.Glob(pattern)
		if err != nil {
			return nil, err
		}
		for _, p := range matches {
			if !seen[p] {
				seen[p] = true
				result = append(result, p)
			}
		}
	}
	sort.Strings(result)
	return result, nil
}

// Close closes all archives.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, archive := range m.archives {
		archive.Close()
	}
	m.archives = nil
	m.models.Clear()
}

// Stats returns model cache statistics.
func (m *Manager) Stats() (hits, misses int) {
	return m.models.Stats()
}

// Cache is a simple in-memory cache for parsed models.
type Cache struct {
	data map[string]*formats.RSM
	mu   sync.RWMutex

	// Stats
	hits   int
	misses int
}

// NewCache creates a new cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string]*formats.RSM),
	}
}

// Get retrieves an item from cache.
func (c *Cache) Get(key string) (*formats.RSM, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rsm, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return rsm, ok
}

// Set stores an item in cache.
func (c *Cache) Set(key string, rsm *formats.RSM) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = rsm
}

// Clear clears the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]*formats.RSM)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}
