// Package material resolves material override chains into the eight texture
// bindings the shader samples.
package material

import (
	"github.com/Faultbox/umapview/internal/engine/gpu"
	"github.com/Faultbox/umapview/internal/engine/texture"
)

// Material is a resolved material. Its textures belong to the resource
// cache.
type Material struct {
	Name         string
	Textures     [SlotCount]*texture.Texture
	TwoSided     bool
	BlendMode    string
	ShadingModel string
}

// Release does nothing: textures are released by the cache.
func (m *Material) Release() {}

// Handles returns the texture handles in slot order.
func (m *Material) Handles() [SlotCount]gpu.Texture {
	var h [SlotCount]gpu.Texture
	for i, t := range m.Textures {
		if t != nil {
			h[i] = t.Handle
		}
	}
	return h
}
