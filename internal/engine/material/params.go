package material

import (
	"strconv"

	"github.com/Faultbox/umapview/internal/assets"
)

// MaxChainDepth bounds the number of material instances walked before the
// base material.
const MaxChainDepth = 64

// TextureMap is a string to texture map that remembers insertion order.
type TextureMap struct {
	keys   []string
	values map[string]*assets.TextureRef
}

func newTextureMap() *TextureMap {
	return &TextureMap{values: make(map[string]*assets.TextureRef)}
}

// add stores value under key unless key is empty, value is nil, or key is
// already present.
func (m *TextureMap) add(key string, value *assets.TextureRef) {
	if key == "" || value == nil {
		return
	}
	if _, ok := m.values[key]; ok {
		return
	}
	m.keys = append(m.keys, key)
	m.values[key] = value
}

// Len returns the number of entries.
func (m *TextureMap) Len() int { return len(m.keys) }

// Keys returns the keys in insertion order.
func (m *TextureMap) Keys() []string { return m.keys }

// Get returns the texture stored under key.
func (m *TextureMap) Get(key string) (*assets.TextureRef, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Parameters are the merged texture parameters and flags of a material
// chain.
type Parameters struct {
	TwoSided     bool
	BlendMode    string
	ShadingModel string

	// Textures holds named texture parameters, most derived layer first.
	Textures *TextureMap
	// ReferenceTextures holds textures the base material samples directly,
	// keyed by texture name. They rank below Textures.
	ReferenceTextures *TextureMap

	// Truncated is set when the walk stopped at a cycle or at MaxChainDepth.
	Truncated bool

	twoSidedSet, blendModeSet, shadingModelSet bool
}

// CollectParameters walks node's override chain down to its base material,
// merging parameters so that the first layer to set a value wins.
func CollectParameters(node assets.MaterialNode) Parameters {
	p := Parameters{
		Textures:          newTextureMap(),
		ReferenceTextures: newTextureMap(),
	}

	visited := make(map[assets.MaterialNode]struct{})
	for depth := 0; node != nil; depth++ {
		if _, seen := visited[node]; seen || depth > MaxChainDepth {
			p.Truncated = true
			break
		}
		visited[node] = struct{}{}

		switch n := node.(type) {
		case *assets.MaterialInstance:
			if n == nil {
				return p
			}
			p.readInstance(n)
			node = n.Parent
		case *assets.BaseMaterial:
			if n != nil {
				p.readBase(n)
			}
			return p
		default:
			return p
		}
	}
	return p
}

func (p *Parameters) readInstance(n *assets.MaterialInstance) {
	if o := n.Overrides.TwoSided; o != nil && !p.twoSidedSet {
		p.TwoSided, p.twoSidedSet = *o, true
	}
	if o := n.Overrides.BlendMode; o != nil && !p.blendModeSet {
		p.BlendMode, p.blendModeSet = *o, true
	}
	if o := n.Overrides.ShadingModel; o != nil && !p.shadingModelSet {
		p.ShadingModel, p.shadingModelSet = *o, true
	}
	for _, tp := range n.TextureParams {
		p.Textures.add(tp.Name, tp.Texture)
	}
}

func (p *Parameters) readBase(n *assets.BaseMaterial) {
	if !p.twoSidedSet {
		p.TwoSided, p.twoSidedSet = n.TwoSided, true
	}
	if !p.blendModeSet {
		p.BlendMode, p.blendModeSet = n.BlendMode, true
	}
	if !p.shadingModelSet {
		p.ShadingModel, p.shadingModelSet = n.ShadingModel, true
	}

	for _, tp := range n.CachedTextureParams {
		p.Textures.add(tp.Name, tp.Texture)
	}
	for _, ref := range n.ReferencedTextures {
		if ref != nil {
			p.ReferenceTextures.add(ref.Name, ref)
		}
	}
	for i, e := range n.Expressions {
		if e.Texture == nil {
			continue
		}
		switch e.Kind {
		case assets.ExprTextureSampleParameter:
			name := e.ParameterName
			if name == "" || name == "None" {
				name = "Texture" + strconv.Itoa(i)
			}
			p.Textures.add(name, e.Texture)
		case assets.ExprTextureSample:
			p.ReferenceTextures.add(e.Texture.Name, e.Texture)
		}
	}
}
