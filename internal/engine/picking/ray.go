// Package picking provides ray casting against instance bounds.
package picking

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/umapview/internal/engine/camera"
	"github.com/Faultbox/umapview/pkg/math"
)

// Ray represents a ray in 3D space with origin and direction.
type Ray struct {
	Origin    math.Vec3
	Direction math.Vec3 // Normalized direction
}

// AABB represents an axis-aligned bounding box.
type AABB struct {
	Min math.Vec3
	Max math.Vec3
}

// ScreenToNDC converts pixel coordinates to normalized device coordinates
// (-1 to 1, Y up).
func ScreenToNDC(screenX, screenY float32, viewportW, viewportH int) (x, y float32) {
	x = 2*screenX/float32(viewportW) - 1
	y = 1 - 2*screenY/float32(viewportH)
	return x, y
}

// FromCamera returns the ray through a point of c's viewport given in
// normalized device coordinates.
func FromCamera(c *camera.FlyCamera, ndcX, ndcY float32) Ray {
	front := c.Front()
	right := c.Right()
	up := right.Cross(front)

	tanHalf := math32.Tan(c.FOV * math32.Pi / 360)
	dir := front.
		Add(right.Scale(ndcX * tanHalf * c.Aspect)).
		Add(up.Scale(ndcY * tanHalf))
	return Ray{Origin: c.Position, Direction: dir.Normalize()}
}

// BoundsOf returns the box enclosing points.
func BoundsOf(points []math.Vec3) AABB {
	if len(points) == 0 {
		return AABB{}
	}
	box := AABB{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		box.Min = math.Vec3{X: math32.Min(box.Min.X, p.X), Y: math32.Min(box.Min.Y, p.Y), Z: math32.Min(box.Min.Z, p.Z)}
		box.Max = math.Vec3{X: math32.Max(box.Max.X, p.X), Y: math32.Max(box.Max.Y, p.Y), Z: math32.Max(box.Max.Z, p.Z)}
	}
	return box
}

func axes(v math.Vec3) [3]float32 {
	return [3]float32{v.X, v.Y, v.Z}
}

// IntersectAABB tests ray intersection with an axis-aligned bounding box.
// Returns the distance to intersection (t) and whether intersection occurred.
// If the ray starts inside the box, returns the exit distance.
func (r Ray) IntersectAABB(box AABB) (t float32, hit bool) {
	tmin := float32(-math32.MaxFloat32)
	tmax := float32(math32.MaxFloat32)

	origin, dir := axes(r.Origin), axes(r.Direction)
	lo, hi := axes(box.Min), axes(box.Max)
	for i := 0; i < 3; i++ {
		if dir[i] == 0 {
			if origin[i] < lo[i] || origin[i] > hi[i] {
				return 0, false
			}
			continue
		}
		t1 := (lo[i] - origin[i]) / dir[i]
		t2 := (hi[i] - origin[i]) / dir[i]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math32.Max(tmin, t1)
		tmax = math32.Min(tmax, t2)
	}

	if tmax < tmin || tmax < 0 {
		return 0, false
	}
	// Return entry point, or exit point if starting inside
	if tmin < 0 {
		return tmax, true
	}
	return tmin, true
}
