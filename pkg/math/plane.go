package math

import "github.com/chewxy/math32"

// Plane is the half-space n·p + D >= 0. Normal points inside.
type Plane struct {
	Normal Vec3
	D      float32
}

// Distance returns the signed distance of p to the plane. It is a true
// distance only for normalized planes.
func (p Plane) Distance(point Vec3) float32 {
	return p.Normal.Dot(point) + p.D
}

func planeFromRow(r Vec4) Plane {
	p := Plane{Normal: Vec3{r[0], r[1], r[2]}, D: r[3]}
	l := p.Normal.Length()
	if l == 0 {
		return p
	}
	return Plane{Normal: p.Normal.Scale(1 / l), D: p.D / l}
}

// Frustum plane indices.
const (
	FrustumLeft = iota
	FrustumRight
	FrustumBottom
	FrustumTop
	FrustumNear
	FrustumFar
)

// Frustum holds six inward-facing planes.
type Frustum [6]Plane

// FrustumFromMatrix extracts normalized frustum planes from a combined
// projection*view matrix (Gribb/Hartmann). The projection must map depth into
// [0, 1] as PerspectiveFov does, so the near plane is row 2 on its own.
func FrustumFromMatrix(viewProj Mat4) Frustum {
	r0, r1, r2, r3 := viewProj.Row(0), viewProj.Row(1), viewProj.Row(2), viewProj.Row(3)

	var f Frustum
	f[FrustumLeft] = planeFromRow(add4(r3, r0))
	f[FrustumRight] = planeFromRow(sub4(r3, r0))
	f[FrustumBottom] = planeFromRow(add4(r3, r1))
	f[FrustumTop] = planeFromRow(sub4(r3, r1))
	f[FrustumNear] = planeFromRow(r2)
	f[FrustumFar] = planeFromRow(sub4(r3, r2))
	return f
}

func add4(a, b Vec4) Vec4 {
	return Vec4{a[0] + b[0], a[1] + b[1], a[2] + b[2], a[3] + b[3]}
}

func sub4(a, b Vec4) Vec4 {
	return Vec4{a[0] - b[0], a[1] - b[1], a[2] - b[2], a[3] - b[3]}
}

// ContainsPoint reports whether p is inside or on every plane.
func (f Frustum) ContainsPoint(p Vec3) bool {
	for _, pl := range f {
		if pl.Distance(p) < -epsilon {
			return false
		}
	}
	return true
}

const epsilon = 1e-4

// ApproxEqual reports whether a and b differ by at most tol.
func ApproxEqual(a, b, tol float32) bool {
	return math32.Abs(a-b) <= tol
}
