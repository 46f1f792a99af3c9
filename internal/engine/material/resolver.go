package material

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/Faultbox/umapview/internal/assets"
	"github.com/Faultbox/umapview/internal/engine/cache"
	"github.com/Faultbox/umapview/internal/engine/texture"
	"github.com/Faultbox/umapview/internal/logger"
	"github.com/Faultbox/umapview/pkg/math"
)

// FallbackKey is the cache key of the material used by sections that have
// none.
const FallbackKey = "fallback_material"

// undecodable is shown for a discovered texture whose bitmap fails to
// decode.
var undecodable = texture.Color{0.5, 0.5, 0.5, 0.5}

// Resolver builds Materials. Textures are shared through the cache.
type Resolver struct {
	cache  *cache.ResourceCache
	binder *texture.Binder
	rules  atomic.Pointer[RuleSet]
	log    *zap.Logger
}

// NewResolver creates a resolver using the given rules.
func NewResolver(c *cache.ResourceCache, binder *texture.Binder, rules []AutoTextureRule) *Resolver {
	r := &Resolver{cache: c, binder: binder, log: logger.Named("material")}
	r.SetRules(rules)
	return r
}

// SetRules replaces the rule set. Materials already resolved keep their
// textures.
func (r *Resolver) SetRules(rules []AutoTextureRule) {
	r.rules.Store(CompileRules(rules, r.log))
}

// Masks returns the channel masks of the current rules.
func (r *Resolver) Masks() [SlotCount]math.Vec4 {
	return r.rules.Load().Masks()
}

// Resolve walks node's override chain and binds a texture to every slot.
// Only GPU allocation errors are returned.
func (r *Resolver) Resolve(node assets.MaterialNode) (*Material, error) {
	if assets.IsNilNode(node) {
		return r.Fallback()
	}
	params := CollectParameters(node)
	if params.Truncated {
		r.log.Warn("material chain truncated", zap.String("material", node.NodeName()), zap.Int("max_depth", MaxChainDepth))
	}

	rules := r.rules.Load()
	m := &Material{
		Name:         node.NodeName(),
		TwoSided:     params.TwoSided,
		BlendMode:    params.BlendMode,
		ShadingModel: params.ShadingModel,
	}
	for slot := Slot(0); slot < SlotCount; slot++ {
		var (
			tex *texture.Texture
			err error
		)
		if ref := rules.Select(slot, params); ref != nil {
			tex, err = cache.Get(r.cache, cache.KindTexture, ref.Identity(), func() (*texture.Texture, error) {
				return r.binder.Resolve(ref.Bitmap, undecodable)
			})
		} else {
			tex, err = r.fallbackTexture(slot)
		}
		if err != nil {
			return nil, fmt.Errorf("material %q slot %s: %w", m.Name, slot, err)
		}
		m.Textures[slot] = tex
	}

	r.log.Debug("material resolved",
		zap.String("material", m.Name),
		zap.Int("textures", params.Textures.Len()),
		zap.Int("references", params.ReferenceTextures.Len()),
		zap.Bool("two_sided", m.TwoSided),
		zap.String("blend_mode", m.BlendMode),
		zap.String("shading_model", m.ShadingModel))
	return m, nil
}

// Fallback builds a material with every slot at its fallback colour.
func (r *Resolver) Fallback() (*Material, error) {
	m := &Material{Name: FallbackKey}
	for slot := Slot(0); slot < SlotCount; slot++ {
		tex, err := r.fallbackTexture(slot)
		if err != nil {
			return nil, fmt.Errorf("fallback material slot %s: %w", slot, err)
		}
		m.Textures[slot] = tex
	}
	return m, nil
}

func (r *Resolver) fallbackTexture(slot Slot) (*texture.Texture, error) {
	return cache.Get(r.cache, cache.KindTexture, slot.FallbackKey(), func() (*texture.Texture, error) {
		return r.binder.Solid(slot.FallbackColor())
	})
}
