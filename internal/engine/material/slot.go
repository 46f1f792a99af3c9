package material

import (
	"strings"

	"github.com/Faultbox/umapview/internal/engine/gpu"
	"github.com/Faultbox/umapview/internal/engine/texture"
)

// Slot is one of the fixed texture bindings of a material. The order is the
// binding order in the shader.
type Slot int

const (
	SlotColor Slot = iota
	SlotMetallic
	SlotSpecular
	SlotRoughness
	SlotAO
	SlotNormal
	SlotAlpha
	SlotEmissive
)

// SlotCount is the number of slots.
const SlotCount = gpu.SlotCount

var slotNames = [SlotCount]string{
	"Color", "Metallic", "Specular", "Roughness", "AO", "Normal", "Alpha", "Emissive",
}

var fallbackColors = [SlotCount]texture.Color{
	SlotColor:     {0.5, 0.5, 0.5, 0.5},
	SlotMetallic:  {0, 0, 0, 0},
	SlotSpecular:  {0.5, 0.5, 0.5, 0.5},
	SlotRoughness: {0.5, 0.5, 0.5, 0.5},
	SlotAO:        {1, 1, 1, 1},
	SlotNormal:    {0.5, 0.5, 1, 1},
	SlotAlpha:     {1, 1, 1, 1},
	SlotEmissive:  {0, 0, 0, 0},
}

func (s Slot) String() string {
	if s < 0 || s >= SlotCount {
		return "Unknown"
	}
	return slotNames[s]
}

// FallbackColor is the constant a slot shows when no texture resolves.
func (s Slot) FallbackColor() texture.Color {
	return fallbackColors[s]
}

// FallbackKey is the cache key of the slot's constant texture.
func (s Slot) FallbackKey() string {
	return "fallback_" + s.String()
}

// ParseSlot looks a slot up by name, ignoring case.
func ParseSlot(name string) (Slot, bool) {
	for i, n := range slotNames {
		if strings.EqualFold(n, name) {
			return Slot(i), true
		}
	}
	return 0, false
}
