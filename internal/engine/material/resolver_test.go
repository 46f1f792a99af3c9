package material

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/Faultbox/umapview/internal/assets"
	"github.com/Faultbox/umapview/internal/engine/cache"
	"github.com/Faultbox/umapview/internal/engine/gpu"
	"github.com/Faultbox/umapview/internal/engine/gpu/gputest"
	"github.com/Faultbox/umapview/internal/engine/texture"
)

func newTestResolver(rules []AutoTextureRule) (*Resolver, *cache.ResourceCache, *gputest.Recorder) {
	dev := gputest.New()
	c := cache.New()
	return NewResolver(c, texture.NewBinder(dev), rules), c, dev
}

func bitmapTex(name string, c color.RGBA) *assets.TextureRef {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for i := 0; i < 4; i++ {
		img.SetRGBA(i%2, i/2, c)
	}
	return &assets.TextureRef{Name: name, Owner: "/Game/" + name, Bitmap: &assets.ImageBitmap{ID: name, Image: img, IsSRGB: true}}
}

func pixel(t *testing.T, dev *gputest.Recorder, tex *texture.Texture) []byte {
	t.Helper()
	rec, ok := dev.Texture(tex.Handle)
	if !ok {
		t.Fatalf("texture %d not live", tex.Handle)
	}
	return rec.Pixels[:4]
}

func TestResolve_NoRulesUsesFallbacks(t *testing.T) {
	r, c, dev := newTestResolver(nil)

	m, err := r.Resolve(testChain())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	for slot := Slot(0); slot < SlotCount; slot++ {
		want := slot.FallbackColor()
		q := texture.Quantize(want)
		if got := pixel(t, dev, m.Textures[slot]); string(got) != string(q[:]) {
			t.Errorf("%s: got %v, want %v", slot, got, q)
		}
	}
	if n := c.Len(cache.KindTexture); n != SlotCount {
		t.Errorf("got %d cached textures, want %d fallbacks", n, SlotCount)
	}
}

func TestResolve_SharesTexturesByOwner(t *testing.T) {
	r, c, dev := newTestResolver([]AutoTextureRule{
		{Slot: "Color", Name: "diffuse"},
		{Slot: "Emissive", Name: "glow"},
	})

	red := bitmapTex("T_Red", color.RGBA{255, 0, 0, 255})
	alias := &assets.TextureRef{Name: "T_Red_Alias", Owner: red.Owner, Bitmap: red.Bitmap}
	a := &assets.MaterialInstance{Name: "MI_A", TextureParams: []assets.TextureParam{
		{Name: "Diffuse", Texture: red},
		{Name: "Glow", Texture: alias},
	}}
	b := &assets.MaterialInstance{Name: "MI_B", TextureParams: []assets.TextureParam{{Name: "Diffuse", Texture: red}}}

	ma, err := r.Resolve(a)
	if err != nil {
		t.Fatal(err)
	}
	mb, err := r.Resolve(b)
	if err != nil {
		t.Fatal(err)
	}

	if ma.Textures[SlotColor] != mb.Textures[SlotColor] || ma.Textures[SlotColor] != ma.Textures[SlotEmissive] {
		t.Error("textures with one owner should share one GPU texture")
	}
	if ma.Textures[SlotMetallic] != mb.Textures[SlotMetallic] {
		t.Error("fallback textures should be shared")
	}
	if got := pixel(t, dev, ma.Textures[SlotColor]); got[0] != 255 || got[1] != 0 {
		t.Errorf("color: got %v, want red", got)
	}
	if rec, _ := dev.Texture(ma.Textures[SlotColor].Handle); rec.Desc.Format != gpu.FormatRGBA8SRGB || rec.Desc.Width != 2 {
		t.Errorf("unexpected desc %+v", rec.Desc)
	}
	// One bitmap texture, six fallbacks for MI_A and the emissive fallback of MI_B.
	if _, created := dev.Creates(); created != 1+7 {
		t.Errorf("got %d texture uploads, want 8", created)
	}
	if n := c.Len(cache.KindTexture); n != 1+7 {
		t.Errorf("got %d cached textures, want 8", n)
	}
}

func TestResolve_UndecodableTexture(t *testing.T) {
	r, _, dev := newTestResolver([]AutoTextureRule{{Slot: "Normal", Name: "normal"}})

	broken := &assets.TextureRef{Name: "T_N", Bitmap: &assets.ImageBitmap{ID: "T_N", Err: errors.New("bc5 unsupported")}}
	m, err := r.Resolve(&assets.MaterialInstance{Name: "MI", TextureParams: []assets.TextureParam{{Name: "Normal", Texture: broken}}})
	if err != nil {
		t.Fatalf("decode failure should be soft, got %v", err)
	}
	if got := pixel(t, dev, m.Textures[SlotNormal]); string(got) != string([]byte{128, 128, 128, 128}) {
		t.Errorf("got %v, want mid gray", got)
	}
}

func TestResolve_BadBlacklistUsesFallbackColor(t *testing.T) {
	r, _, dev := newTestResolver([]AutoTextureRule{
		{Slot: "Color", Name: "diffuse", Blacklist: "([broken"},
		{Slot: "Normal", Name: "normal"},
	})

	node := &assets.MaterialInstance{Name: "MI", TextureParams: []assets.TextureParam{
		{Name: "Diffuse", Texture: bitmapTex("T_Red", color.RGBA{255, 0, 0, 255})},
		{Name: "Normal", Texture: bitmapTex("T_Flat", color.RGBA{128, 128, 255, 255})},
	}}
	m, err := r.Resolve(node)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	q := texture.Quantize(SlotColor.FallbackColor())
	if got := pixel(t, dev, m.Textures[SlotColor]); string(got) != string(q[:]) {
		t.Errorf("color: got %v, want fallback %v", got, q)
	}
	if got := pixel(t, dev, m.Textures[SlotNormal]); got[2] != 255 || got[0] != 128 {
		t.Errorf("normal: got %v, want T_Flat", got)
	}
}

func TestResolve_TypedNilUsesFallback(t *testing.T) {
	r, _, _ := newTestResolver(nil)
	for _, node := range []assets.MaterialNode{
		(*assets.MaterialInstance)(nil),
		(*assets.BaseMaterial)(nil),
	} {
		m, err := r.Resolve(node)
		if err != nil {
			t.Fatalf("Resolve(%T) failed: %v", node, err)
		}
		if m.Name != FallbackKey {
			t.Errorf("Resolve(%T): got %q, want %q", node, m.Name, FallbackKey)
		}
	}
}

func TestResolve_FlagsAndCycle(t *testing.T) {
	r, _, _ := newTestResolver(defaultTestRules())

	a := &assets.MaterialInstance{Name: "A", Overrides: assets.Overrides{TwoSided: ptr(true), BlendMode: ptr("BLEND_Translucent")}}
	b := &assets.MaterialInstance{Name: "B", Parent: a}
	a.Parent = b

	m, err := r.Resolve(a)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !m.TwoSided || m.BlendMode != "BLEND_Translucent" || m.Name != "A" {
		t.Errorf("unexpected material %+v", m)
	}
}

func TestResolve_AllocationError(t *testing.T) {
	r, c, dev := newTestResolver(nil)
	dev.FailCreate = gpu.ErrDeviceClosed

	if _, err := r.Resolve(testChain()); !errors.Is(err, gpu.ErrDeviceClosed) {
		t.Fatalf("got %v, want ErrDeviceClosed", err)
	}
	if n := c.Len(cache.KindTexture); n != 0 {
		t.Errorf("failed textures should not be cached, got %d", n)
	}
}

func TestSetRules(t *testing.T) {
	r, _, dev := newTestResolver(nil)
	node := &assets.MaterialInstance{Name: "MI", TextureParams: []assets.TextureParam{
		{Name: "Diffuse", Texture: bitmapTex("T_Blue", color.RGBA{0, 0, 255, 255})},
	}}

	before, _ := r.Resolve(node)
	r.SetRules([]AutoTextureRule{{Slot: "Color", Name: "diffuse", R: true, G: true, B: true}})
	after, _ := r.Resolve(node)

	if got := pixel(t, dev, before.Textures[SlotColor]); got[2] != 128 {
		t.Errorf("before: got %v, want fallback gray", got)
	}
	if got := pixel(t, dev, after.Textures[SlotColor]); got[2] != 255 {
		t.Errorf("after: got %v, want blue", got)
	}
	if masks := r.Masks(); masks[SlotColor] != ([4]float32{1, 1, 1, 0}) {
		t.Errorf("masks: got %v", masks[SlotColor])
	}
}

func TestFallbackMaterial(t *testing.T) {
	r, _, _ := newTestResolver(nil)
	m, err := r.Resolve(nil)
	if err != nil {
		t.Fatal(err)
	}
	if m.Name != FallbackKey || m.TwoSided {
		t.Errorf("unexpected fallback material %+v", m)
	}
	h := m.Handles()
	for slot, handle := range h {
		if handle == 0 {
			t.Errorf("slot %d has no texture", slot)
		}
	}
}

// defaultTestRules is a subset of the viewer defaults.
func defaultTestRules() []AutoTextureRule {
	return []AutoTextureRule{
		{Slot: "Color", Name: "diffuse|albedo|base_?color", Blacklist: "detail", R: true, G: true, B: true},
		{Slot: "Normal", Name: "normal", R: true, G: true, B: true},
	}
}
