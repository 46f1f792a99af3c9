package material

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/umapview/internal/assets"
	"github.com/Faultbox/umapview/pkg/math"
)

// AutoTextureRule picks the texture for one slot. Name and Blacklist are
// case-insensitive regular expressions matched against parameter names; R,
// G, B and A select the channels the shader reads from the chosen texture.
type AutoTextureRule struct {
	Slot      string
	Name      string
	Blacklist string
	R, G, B   bool
	A         bool
}

// Matcher reports whether a parameter name matches a pattern.
type Matcher interface {
	Match(name string) bool
}

// MatcherFunc adapts a function to Matcher.
type MatcherFunc func(name string) bool

func (f MatcherFunc) Match(name string) bool { return f(name) }

var never = MatcherFunc(func(string) bool { return false })

// CompileMatcher returns a case-insensitive regular expression matcher. An
// empty pattern never matches. A pattern that does not compile never matches
// and the compile error is returned alongside.
func CompileMatcher(pattern string) (Matcher, error) {
	if strings.TrimSpace(pattern) == "" {
		return never, nil
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return never, err
	}
	return MatcherFunc(re.MatchString), nil
}

type slotRule struct {
	name      Matcher
	blacklist Matcher
}

// RuleSet is a compiled, immutable set of auto-texture rules.
type RuleSet struct {
	slots [SlotCount]*slotRule
	masks [SlotCount]math.Vec4
}

// CompileRules compiles rules into a RuleSet. The first rule for a slot
// wins. Unknown slots are logged and skipped. A name or blacklist pattern
// that does not compile is logged and leaves its slot on the fallback color.
func CompileRules(rules []AutoTextureRule, log *zap.Logger) *RuleSet {
	rs := &RuleSet{}
	for _, r := range rules {
		slot, ok := ParseSlot(r.Slot)
		if !ok {
			log.Warn("auto texture rule for unknown slot", zap.String("slot", r.Slot))
			continue
		}
		if rs.slots[slot] != nil {
			log.Debug("duplicate auto texture rule ignored", zap.Stringer("slot", slot))
			continue
		}

		sr := &slotRule{}
		var err error
		if strings.TrimSpace(r.Name) != "" {
			if sr.name, err = CompileMatcher(r.Name); err != nil {
				log.Warn("bad auto texture pattern", zap.Stringer("slot", slot), zap.String("pattern", r.Name), zap.Error(err))
			}
		}
		if sr.blacklist, err = CompileMatcher(r.Blacklist); err != nil {
			log.Warn("bad auto texture blacklist", zap.Stringer("slot", slot), zap.String("pattern", r.Blacklist), zap.Error(err))
			sr.name = never
		}
		rs.slots[slot] = sr
		rs.masks[slot] = math.Vec4{flag(r.R), flag(r.G), flag(r.B), flag(r.A)}
	}
	return rs
}

func flag(b bool) float32 {
	if b {
		return 1
	}
	return 0
}

// Masks returns the per-slot channel masks in slot order. Slots without a
// rule are all zero.
func (rs *RuleSet) Masks() [SlotCount]math.Vec4 {
	return rs.masks
}

// Select picks the texture for slot from p, or nil when the slot should use
// its fallback.
func (rs *RuleSet) Select(slot Slot, p Parameters) *assets.TextureRef {
	sr := rs.slots[slot]
	if sr == nil || sr.name == nil {
		return nil
	}
	if ref := sr.first(p.Textures); ref != nil {
		return ref
	}
	return sr.first(p.ReferenceTextures)
}

func (sr *slotRule) first(m *TextureMap) *assets.TextureRef {
	if m == nil {
		return nil
	}
	for _, key := range m.keys {
		if sr.name.Match(key) && !sr.blacklist.Match(key) {
			return m.values[key]
		}
	}
	return nil
}
