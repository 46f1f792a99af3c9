// Package cache deduplicates GPU resources by stable asset identity.
//
// Each resource kind has one mutex that is held while its factory runs, so a
// key is never constructed twice. Factories may resolve resources of a lower
// kind (a mesh factory resolves materials, a material factory resolves
// textures), which fixes the lock order Mesh > Material > Texture. A factory
// must never request its own kind or a higher one.
package cache

import (
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/Faultbox/umapview/internal/logger"
)

// Resource is anything holding GPU memory.
type Resource interface {
	Release()
}

// Kind identifies one of the cache's maps.
type Kind int

const (
	KindTexture Kind = iota
	KindMaterial
	KindMesh
	kindCount
)

func (k Kind) String() string {
	switch k {
	case KindTexture:
		return "texture"
	case KindMaterial:
		return "material"
	case KindMesh:
		return "mesh"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

type store struct {
	mu      sync.Mutex
	entries map[string]Resource
}

// ResourceCache holds at most one resource per kind and key until Clear.
type ResourceCache struct {
	stores [kindCount]store

	hits   atomic.Int64
	misses atomic.Int64
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits    int64
	Misses  int64
	Entries [kindCount]int
}

// New creates an empty cache.
func New() *ResourceCache {
	c := &ResourceCache{}
	for i := range c.stores {
		c.stores[i].entries = make(map[string]Resource)
	}
	return c
}

// GetOrAdd returns the resource stored under kind and key, calling factory
// to create it on a miss. The factory runs at most once per key while the
// kind is locked. A factory error is returned and nothing is stored, so a
// later call may retry.
func (c *ResourceCache) GetOrAdd(kind Kind, key string, factory func() (Resource, error)) (Resource, error) {
	s := &c.stores[kind]
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := s.entries[key]; ok {
		c.hits.Add(1)
		return r, nil
	}
	c.misses.Add(1)

	r, err := factory()
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, fmt.Errorf("cache: %s factory for %q returned nil", kind, key)
	}
	s.entries[key] = r
	return r, nil
}

// Get is the typed form of GetOrAdd.
func Get[T Resource](c *ResourceCache, kind Kind, key string, factory func() (T, error)) (T, error) {
	r, err := c.GetOrAdd(kind, key, func() (Resource, error) {
		v, err := factory()
		if err != nil {
			return nil, err
		}
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	v, ok := r.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("cache: %s %q holds %T", kind, key, r)
	}
	return v, nil
}

// Len returns the number of resources of one kind.
func (c *ResourceCache) Len(kind Kind) int {
	s := &c.stores[kind]
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Stats returns hit/miss counters and per-kind entry counts.
func (c *ResourceCache) Stats() Stats {
	st := Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
	for k := Kind(0); k < kindCount; k++ {
		st.Entries[k] = c.Len(k)
	}
	return st
}

// Clear releases every resource and empties all maps. Callers must not hold
// resources obtained before Clear.
func (c *ResourceCache) Clear() {
	for k := kindCount - 1; k >= 0; k-- {
		c.stores[k].mu.Lock()
	}
	defer func() {
		for k := Kind(0); k < kindCount; k++ {
			c.stores[k].mu.Unlock()
		}
	}()

	released := 0
	for k := kindCount - 1; k >= 0; k-- {
		s := &c.stores[k]
		for _, r := range s.entries {
			r.Release()
		}
		released += len(s.entries)
		s.entries = make(map[string]Resource)
	}
	c.hits.Store(0)
	c.misses.Store(0)

	logger.Named("cache").Debug("cache cleared", zap.Int("released", released))
}
