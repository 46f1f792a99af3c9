// Package assets holds the converted asset data the renderer consumes: meshes,
// instance transforms, the material graph and texture bitmaps. It also loads
// them from a YAML scene manifest.
package assets

import (
	"github.com/Faultbox/umapview/pkg/math"
)

// SourceVertex is one vertex as exported, in Z-up asset space.
type SourceVertex struct {
	Position math.Vec3
	Normal   math.Vec3
	Tangent  math.Vec3
	UV       math.Vec2
}

// SourceSection is a contiguous run of triangles drawn with one material.
type SourceSection struct {
	MaterialIndex int
	FirstIndex    int
	NumFaces      int
}

// BoxSphereBounds is a mesh's local bounding box and sphere.
type BoxSphereBounds struct {
	Origin       math.Vec3
	BoxExtent    math.Vec3
	SphereRadius float32
}

// ConvertedMesh is the first LOD of a static mesh.
type ConvertedMesh struct {
	Name     string
	Vertices []SourceVertex
	// Colors is optional. When set it has one entry per vertex.
	Colors    []math.Vec4
	Indices   []uint32
	Sections  []SourceSection
	Bounds    BoxSphereBounds
	TwoSided  bool
	Materials []MaterialNode
}

// Transform places one instance in asset space.
type Transform struct {
	Translation math.Vec3
	Rotation    math.Quat
	Scale       math.Vec3
}

// IdentityTransform returns a transform with unit scale and no rotation.
func IdentityTransform() Transform {
	return Transform{Rotation: math.QuatIdentity(), Scale: math.Vec3{X: 1, Y: 1, Z: 1}}
}

// ComputeBounds derives box and sphere bounds from vertex positions.
func ComputeBounds(vertices []SourceVertex) BoxSphereBounds {
	if len(vertices) == 0 {
		return BoxSphereBounds{}
	}
	lo, hi := vertices[0].Position, vertices[0].Position
	for _, v := range vertices[1:] {
		p := v.Position
		lo = math.Vec3{X: min(lo.X, p.X), Y: min(lo.Y, p.Y), Z: min(lo.Z, p.Z)}
		hi = math.Vec3{X: max(hi.X, p.X), Y: max(hi.Y, p.Y), Z: max(hi.Z, p.Z)}
	}
	center := lo.Add(hi).Scale(0.5)

	var radius float32
	for _, v := range vertices {
		radius = max(radius, v.Position.Sub(center).Length())
	}
	return BoxSphereBounds{
		Origin:       center,
		BoxExtent:    hi.Sub(lo).Scale(0.5),
		SphereRadius: radius,
	}
}
