package model

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/umapview/internal/assets"
	"github.com/Faultbox/umapview/internal/engine/cache"
	"github.com/Faultbox/umapview/internal/engine/gpu"
	"github.com/Faultbox/umapview/internal/engine/material"
	"github.com/Faultbox/umapview/internal/logger"
	"github.com/Faultbox/umapview/pkg/math"
)

var white = math.Vec4{1, 1, 1, 1}

// Builder uploads meshes and resolves their materials.
type Builder struct {
	dev      gpu.Device
	cache    *cache.ResourceCache
	resolver *material.Resolver
	log      *zap.Logger
}

// NewBuilder creates a mesh builder.
func NewBuilder(dev gpu.Device, c *cache.ResourceCache, r *material.Resolver) *Builder {
	return &Builder{dev: dev, cache: c, resolver: r, log: logger.Named("model")}
}

// LoadMesh returns the cached mesh for src.Name, building it on first use.
func (b *Builder) LoadMesh(src *assets.ConvertedMesh) (*Mesh, error) {
	return cache.Get(b.cache, cache.KindMesh, src.Name, func() (*Mesh, error) {
		return b.Build(src)
	})
}

// LoadMaterial returns the cached material for node, resolving it on first
// use. A nil node, typed or not, yields nil.
func (b *Builder) LoadMaterial(node assets.MaterialNode) (*material.Material, error) {
	if assets.IsNilNode(node) {
		return nil, nil
	}
	return cache.Get(b.cache, cache.KindMaterial, node.NodeName(), func() (*material.Material, error) {
		return b.resolver.Resolve(node)
	})
}

// FallbackMaterial returns the cached material drawn for sections without
// one.
func (b *Builder) FallbackMaterial() (*material.Material, error) {
	return cache.Get(b.cache, cache.KindMaterial, material.FallbackKey, b.resolver.Fallback)
}

// Build validates src, resolves its materials and uploads it. Nothing is
// allocated when validation fails.
func (b *Builder) Build(src *assets.ConvertedMesh) (*Mesh, error) {
	if err := Validate(src); err != nil {
		return nil, err
	}

	materials := make([]*material.Material, len(src.Materials))
	for i, node := range src.Materials {
		m, err := b.LoadMaterial(node)
		if err != nil {
			return nil, fmt.Errorf("mesh %q material %d: %w", src.Name, i, err)
		}
		materials[i] = m
	}

	vb, err := b.dev.CreateBuffer(gpu.BufferVertex, len(src.Vertices)*gpu.VertexStride, EncodeVertices(ConvertVertices(src)))
	if err != nil {
		return nil, fmt.Errorf("mesh %q vertex buffer: %w", src.Name, err)
	}
	ib, err := b.dev.CreateBuffer(gpu.BufferIndex, len(src.Indices)*4, gpu.AppendUint32s(nil, src.Indices...))
	if err != nil {
		b.dev.ReleaseBuffer(vb)
		return nil, fmt.Errorf("mesh %q index buffer: %w", src.Name, err)
	}

	sections := make([]Section, len(src.Sections))
	for i, s := range src.Sections {
		sections[i] = Section{
			MaterialIndex: s.MaterialIndex,
			FirstIndex:    uint32(s.FirstIndex),
			IndexCount:    uint32(s.NumFaces * 3),
		}
	}

	b.log.Debug("mesh built",
		zap.String("mesh", src.Name),
		zap.Int("vertices", len(src.Vertices)),
		zap.Int("indices", len(src.Indices)),
		zap.Int("sections", len(sections)))

	return &Mesh{
		Name:        src.Name,
		Vertices:    vb,
		Indices:     ib,
		Sections:    sections,
		Materials:   materials,
		TwoSided:    src.TwoSided,
		Bounds:      src.Bounds,
		VertexCount: len(src.Vertices),
		IndexCount:  len(src.Indices),
		dev:         b.dev,
	}, nil
}

// Validate checks the vertex and index counts, every index, and every
// section range.
func Validate(src *assets.ConvertedMesh) error {
	fail := func(err error, index, value int) error {
		return &BuildError{Mesh: src.Name, Index: index, Value: value, Err: err}
	}

	if len(src.Vertices) < 3 {
		return fail(ErrTooFewVertices, -1, len(src.Vertices))
	}
	if len(src.Indices) < 3 {
		return fail(ErrTooFewIndices, -1, len(src.Indices))
	}
	n := uint32(len(src.Vertices))
	for i, idx := range src.Indices {
		if idx >= n {
			return fail(ErrIndexOutOfRange, i, int(idx))
		}
	}
	for i, s := range src.Sections {
		end := s.FirstIndex + s.NumFaces*3
		if s.FirstIndex < 0 || s.NumFaces < 0 || end > len(src.Indices) {
			return fail(ErrSectionOutOfRange, i, end)
		}
	}
	return nil
}

// ConvertVertices remaps src's vertices into render space. Meshes without
// vertex colours get opaque white.
func ConvertVertices(src *assets.ConvertedMesh) []Vertex {
	out := make([]Vertex, len(src.Vertices))
	for i, v := range src.Vertices {
		c := white
		if i < len(src.Colors) {
			c = src.Colors[i]
		}
		out[i] = Vertex{
			Position: v.Position.SwapYZ(),
			Color:    c,
			Normal:   v.Normal.SwapYZ(),
			Tangent:  v.Tangent.SwapYZ(),
			UV:       v.UV,
		}
	}
	return out
}

// EncodeVertices packs vertices in the interleaved gpu.VertexStride layout.
func EncodeVertices(vertices []Vertex) []byte {
	buf := make([]byte, 0, len(vertices)*gpu.VertexStride)
	for _, v := range vertices {
		buf = gpu.AppendFloat32s(buf,
			v.Position.X, v.Position.Y, v.Position.Z,
			v.Color[0], v.Color[1], v.Color[2], v.Color[3],
			v.Normal.X, v.Normal.Y, v.Normal.Z,
			v.Tangent.X, v.Tangent.Y, v.Tangent.Z,
			v.UV.X, v.UV.Y,
		)
	}
	return buf
}
