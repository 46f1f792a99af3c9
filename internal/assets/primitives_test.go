package assets

import (
	"testing"

	"github.com/Faultbox/umapview/pkg/math"
)

func TestCube(t *testing.T) {
	m := Cube("SM_Cube", 100)

	if len(m.Vertices) != 24 || len(m.Indices) != 36 {
		t.Fatalf("expected 24 vertices and 36 indices, got %d and %d", len(m.Vertices), len(m.Indices))
	}
	if len(m.Sections) != 1 || m.Sections[0].NumFaces != 12 {
		t.Errorf("expected one section of 12 faces, got %+v", m.Sections)
	}
	if m.Bounds.BoxExtent != (math.Vec3{X: 50, Y: 50, Z: 50}) || m.Bounds.Origin != (math.Vec3{}) {
		t.Errorf("unexpected bounds %+v", m.Bounds)
	}
	if !math.ApproxEqual(m.Bounds.SphereRadius, 86.60254, 1e-3) {
		t.Errorf("expected radius 86.6, got %f", m.Bounds.SphereRadius)
	}

	// In render space (Y/Z swapped) every triangle winds counter-clockwise
	// seen from outside, so its geometric normal agrees with the vertex
	// normal.
	for i := 0; i < len(m.Indices); i += 3 {
		a := m.Vertices[m.Indices[i]]
		b := m.Vertices[m.Indices[i+1]]
		c := m.Vertices[m.Indices[i+2]]
		pa, pb, pc := a.Position.SwapYZ(), b.Position.SwapYZ(), c.Position.SwapYZ()
		n := pb.Sub(pa).Cross(pc.Sub(pa))
		if n.Dot(a.Normal.SwapYZ()) <= 0 {
			t.Errorf("triangle %d faces inward", i/3)
		}
		if a.Tangent.Dot(a.Normal) != 0 {
			t.Errorf("triangle %d: tangent not perpendicular to normal", i/3)
		}
	}
}

func TestPlane(t *testing.T) {
	m := Plane("SM_Plane", 10)
	if len(m.Vertices) != 4 || len(m.Indices) != 6 {
		t.Fatalf("expected a quad, got %d vertices", len(m.Vertices))
	}
	if m.Bounds.BoxExtent != (math.Vec3{X: 5, Y: 5}) {
		t.Errorf("unexpected extent %v", m.Bounds.BoxExtent)
	}
}

func TestComputeBounds(t *testing.T) {
	if got := ComputeBounds(nil); got != (BoxSphereBounds{}) {
		t.Errorf("expected zero bounds, got %+v", got)
	}

	got := ComputeBounds([]SourceVertex{
		{Position: math.Vec3{X: 0, Y: 0, Z: 0}},
		{Position: math.Vec3{X: 4, Y: 2, Z: 0}},
	})
	want := BoxSphereBounds{
		Origin:    math.Vec3{X: 2, Y: 1},
		BoxExtent: math.Vec3{X: 2, Y: 1},
	}
	if got.Origin != want.Origin || got.BoxExtent != want.BoxExtent {
		t.Errorf("expected %+v, got %+v", want, got)
	}
	if !math.ApproxEqual(got.SphereRadius, 2.236068, 1e-5) {
		t.Errorf("expected radius sqrt(5), got %f", got.SphereRadius)
	}
}
