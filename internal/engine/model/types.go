// Package model builds GPU meshes from converted static meshes.
package model

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Faultbox/umapview/internal/assets"
	"github.com/Faultbox/umapview/internal/engine/gpu"
	"github.com/Faultbox/umapview/internal/engine/material"
	"github.com/Faultbox/umapview/pkg/math"
)

// Vertex is one interleaved vertex in render space (Y up).
type Vertex struct {
	Position math.Vec3
	Color    math.Vec4
	Normal   math.Vec3
	Tangent  math.Vec3
	UV       math.Vec2
}

// Section is a run of indices drawn with one material slot.
type Section struct {
	MaterialIndex int
	FirstIndex    uint32
	IndexCount    uint32
}

// Mesh is an uploaded mesh. It is shared through the resource cache.
type Mesh struct {
	Name     string
	Vertices gpu.Buffer
	Indices  gpu.Buffer
	Sections []Section
	// Materials holds the mesh's own material per slot; entries may be nil.
	Materials []*material.Material
	TwoSided  bool
	Bounds    assets.BoxSphereBounds

	VertexCount int
	IndexCount  int

	dev  gpu.Device
	once sync.Once
}

// Release frees the vertex and index buffers. Materials belong to the cache.
func (m *Mesh) Release() {
	m.once.Do(func() {
		m.dev.ReleaseBuffer(m.Vertices)
		m.dev.ReleaseBuffer(m.Indices)
	})
}

// Material returns the mesh's material for slot i, or nil.
func (m *Mesh) Material(i int) *material.Material {
	if i < 0 || i >= len(m.Materials) {
		return nil
	}
	return m.Materials[i]
}

// Validation errors.
var (
	ErrTooFewVertices    = errors.New("mesh has fewer than 3 vertices")
	ErrTooFewIndices     = errors.New("mesh has fewer than 3 indices")
	ErrIndexOutOfRange   = errors.New("index out of range")
	ErrSectionOutOfRange = errors.New("section exceeds index buffer")
)

// BuildError reports why a mesh was rejected. Index is the offending index
// position (or section number for ErrSectionOutOfRange) and Value the
// offending value; both are -1 when not applicable.
type BuildError struct {
	Mesh  string
	Index int
	Value int
	Err   error
}

func (e *BuildError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("mesh %q: %v", e.Mesh, e.Err)
	}
	return fmt.Sprintf("mesh %q: %v at %d (value %d)", e.Mesh, e.Err, e.Index, e.Value)
}

func (e *BuildError) Unwrap() error { return e.Err }
