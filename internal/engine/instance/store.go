package instance

import (
	"github.com/Faultbox/umapview/internal/assets"
	"github.com/Faultbox/umapview/pkg/math"
)

// Store holds an entity's instance matrices, their bounds and the
// visible-instance buffer rewritten by every Cull.
type Store struct {
	transforms []math.Mat4
	bounds     []BoundingVolume
	visible    []math.Mat4
	count      int
	unculled   bool
}

// NewStore precomputes bounds for every transform.
func NewStore(transforms []math.Mat4, local assets.BoxSphereBounds) *Store {
	bounds := make([]BoundingVolume, len(transforms))
	for i, m := range transforms {
		bounds[i] = NewBoundingVolume(local, m)
	}
	return &Store{
		transforms: transforms,
		bounds:     bounds,
		visible:    make([]math.Mat4, len(transforms)),
	}
}

// NewUnculledStore returns a store whose Cull keeps every transform.
func NewUnculledStore(transforms []math.Mat4) *Store {
	return &Store{
		transforms: transforms,
		visible:    transforms,
		count:      len(transforms),
		unculled:   true,
	}
}

// Cull refreshes the visible prefix and returns its length.
func (s *Store) Cull(f math.Frustum) int {
	if s.unculled {
		return s.count
	}
	s.count = Cull(f, s.transforms, s.bounds, s.visible)
	return s.count
}

// Visible returns the transforms that survived the last Cull.
func (s *Store) Visible() []math.Mat4 {
	return s.visible[:s.count]
}

// Len returns the total number of instances.
func (s *Store) Len() int {
	return len(s.transforms)
}

// Bounds returns the precomputed bounds, nil for an unculled store.
func (s *Store) Bounds() []BoundingVolume {
	return s.bounds
}
