// Package instance computes instance matrices and bounds and culls them
// against the view frustum.
package instance

import (
	"github.com/Faultbox/umapview/internal/assets"
	"github.com/Faultbox/umapview/pkg/math"
)

// FromSource builds the render-space matrix of an asset-space transform.
// The Y and Z axes are swapped on translation, rotation and scale, and the
// rotation's handedness flips with them.
func FromSource(t assets.Transform) math.Mat4 {
	q := math.Quat{X: t.Rotation.X, Y: t.Rotation.Z, Z: t.Rotation.Y, W: -t.Rotation.W}
	return math.Translate(t.Translation.X, t.Translation.Z, t.Translation.Y).
		Mul(q.ToMat4()).
		Mul(math.Scale(t.Scale.X, t.Scale.Z, t.Scale.Y))
}

// Mirrored reports whether any scale component is negative.
func Mirrored(t assets.Transform) bool {
	return t.Scale.X < 0 || t.Scale.Y < 0 || t.Scale.Z < 0
}

// BoundingVolume is an instance's world-space bounds.
type BoundingVolume struct {
	Origin  math.Vec3
	Radius  float32
	Corners [8]math.Vec3
}

// NewBoundingVolume transforms local bounds by m. The sphere radius is kept
// as authored and does not follow the instance scale.
func NewBoundingVolume(local assets.BoxSphereBounds, m math.Mat4) BoundingVolume {
	bv := BoundingVolume{
		Origin: m.TransformPoint(local.Origin.SwapYZ()),
		Radius: local.SphereRadius,
	}
	i := 0
	for _, sx := range [2]float32{-1, 1} {
		for _, sy := range [2]float32{-1, 1} {
			for _, sz := range [2]float32{-1, 1} {
				corner := local.Origin.Add(local.BoxExtent.Mul(math.Vec3{X: sx, Y: sy, Z: sz}))
				bv.Corners[i] = m.TransformPoint(corner.SwapYZ())
				i++
			}
		}
	}
	return bv
}

// Visible reports whether bv may intersect f. A plane rejects the volume
// only when both the sphere and every box corner lie behind it.
func (bv *BoundingVolume) Visible(f *math.Frustum) bool {
	for p := range f {
		plane := &f[p]
		if plane.Distance(bv.Origin) >= -bv.Radius {
			continue
		}
		inside := false
		for c := range bv.Corners {
			if plane.Distance(bv.Corners[c]) >= 0 {
				inside = true
				break
			}
		}
		if !inside {
			return false
		}
	}
	return true
}

// Cull copies the transforms whose bounds are visible into dst, in order,
// and returns how many it wrote. dst must be at least len(transforms) long.
// It does not allocate.
func Cull(f math.Frustum, transforms []math.Mat4, bounds []BoundingVolume, dst []math.Mat4) int {
	n := 0
	for i := range transforms {
		if bounds[i].Visible(&f) {
			dst[n] = transforms[i]
			n++
		}
	}
	return n
}
