package assets

import (
	"github.com/Faultbox/umapview/pkg/math"
)

// quad appends one face of half-size h centred at n*h, spanned by u and v
// with u x v = n. Triangles are wound so they face outward once the Y and Z
// axes are swapped into render space.
func quad(m *ConvertedMesh, center, u, v, n math.Vec3) {
	base := uint32(len(m.Vertices))
	corners := [4]struct {
		su, sv float32
		uv     math.Vec2
	}{
		{-1, -1, math.Vec2{X: 0, Y: 1}},
		{+1, -1, math.Vec2{X: 1, Y: 1}},
		{+1, +1, math.Vec2{X: 1, Y: 0}},
		{-1, +1, math.Vec2{X: 0, Y: 0}},
	}
	for _, c := range corners {
		m.Vertices = append(m.Vertices, SourceVertex{
			Position: center.Add(u.Scale(c.su)).Add(v.Scale(c.sv)),
			Normal:   n,
			Tangent:  u.Normalize(),
			UV:       c.uv,
		})
	}
	m.Indices = append(m.Indices, base, base+2, base+1, base, base+3, base+2)
}

// Cube returns an axis-aligned cube of edge length size centred at the origin,
// drawn as one section with material slot 0.
func Cube(name string, size float32) *ConvertedMesh {
	h := size / 2
	m := &ConvertedMesh{Name: name}

	x := math.Vec3{X: 1}
	y := math.Vec3{Y: 1}
	z := math.Vec3{Z: 1}
	faces := [6][3]math.Vec3{
		{x, y, z},
		{x.Scale(-1), z, y},
		{y, z, x},
		{y.Scale(-1), x, z},
		{z, x, y},
		{z.Scale(-1), y, x},
	}
	for _, f := range faces {
		n, u, v := f[0], f[1], f[2]
		quad(m, n.Scale(h), u.Scale(h), v.Scale(h), n)
	}

	m.Sections = []SourceSection{{MaterialIndex: 0, FirstIndex: 0, NumFaces: len(m.Indices) / 3}}
	m.Bounds = ComputeBounds(m.Vertices)
	return m
}

// Plane returns a square of edge length size in the XY plane facing +Z.
func Plane(name string, size float32) *ConvertedMesh {
	h := size / 2
	m := &ConvertedMesh{Name: name}
	quad(m, math.Vec3{}, math.Vec3{X: h}, math.Vec3{Y: h}, math.Vec3{Z: 1})

	m.Sections = []SourceSection{{MaterialIndex: 0, FirstIndex: 0, NumFaces: 2}}
	m.Bounds = ComputeBounds(m.Vertices)
	return m
}
