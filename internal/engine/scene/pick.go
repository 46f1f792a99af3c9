package scene

import (
	"github.com/Faultbox/umapview/internal/engine/picking"
)

// Hit is the instance a picking ray met first.
type Hit struct {
	Mesh     string
	Instance int
	Distance float32
}

// Pick returns the nearest instance whose world bounds the ray crosses.
// Previews have no bounds and are never picked.
func (r *Renderer) Pick(ray picking.Ray) (Hit, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var best Hit
	found := false
	for _, e := range r.entities {
		for i := range e.store.Bounds() {
			box := picking.BoundsOf(e.store.Bounds()[i].Corners[:])
			t, ok := ray.IntersectAABB(box)
			if !ok || (found && t >= best.Distance) {
				continue
			}
			best = Hit{Mesh: e.Mesh.Name, Instance: i, Distance: t}
			found = true
		}
	}
	return best, found
}
