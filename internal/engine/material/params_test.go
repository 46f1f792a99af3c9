package material

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/Faultbox/umapview/internal/assets"
)

func tex(name string) *assets.TextureRef {
	return &assets.TextureRef{Name: name, Owner: "/Game/" + name}
}

func ptr[T any](v T) *T { return &v }

func TestCollectParameters_OverridePrecedence(t *testing.T) {
	base := &assets.BaseMaterial{
		Name:         "M_Base",
		TwoSided:     false,
		BlendMode:    "BLEND_Opaque",
		ShadingModel: "MSM_DefaultLit",
		CachedTextureParams: []assets.TextureParam{
			{Name: "Diffuse", Texture: tex("T_Base_D")},
			{Name: "Normal", Texture: tex("T_Base_N")},
		},
	}
	parent := &assets.MaterialInstance{
		Name:   "MI_Parent",
		Parent: base,
		TextureParams: []assets.TextureParam{
			{Name: "Diffuse", Texture: tex("T_Parent_D")},
			{Name: "Mask", Texture: tex("T_Parent_M")},
		},
		Overrides: assets.Overrides{TwoSided: ptr(false), BlendMode: ptr("BLEND_Masked")},
	}
	child := &assets.MaterialInstance{
		Name:   "MI_Child",
		Parent: parent,
		TextureParams: []assets.TextureParam{
			{Name: "Diffuse", Texture: tex("T_Child_D")},
			{Name: "Empty", Texture: nil},
		},
		Overrides: assets.Overrides{TwoSided: ptr(true)},
	}

	p := CollectParameters(child)

	if got, _ := p.Textures.Get("Diffuse"); got.Name != "T_Child_D" {
		t.Errorf("Diffuse: got %s, want T_Child_D", got.Name)
	}
	if got, _ := p.Textures.Get("Normal"); got.Name != "T_Base_N" {
		t.Errorf("Normal: got %s, want T_Base_N", got.Name)
	}
	if _, ok := p.Textures.Get("Empty"); ok {
		t.Error("nil texture parameter should be skipped")
	}
	if want := []string{"Diffuse", "Mask", "Normal"}; !reflect.DeepEqual(p.Textures.Keys(), want) {
		t.Errorf("key order: got %v, want %v", p.Textures.Keys(), want)
	}
	if !p.TwoSided {
		t.Error("TwoSided: most derived override should win")
	}
	if p.BlendMode != "BLEND_Masked" {
		t.Errorf("BlendMode: got %q, want BLEND_Masked", p.BlendMode)
	}
	if p.ShadingModel != "MSM_DefaultLit" {
		t.Errorf("ShadingModel: got %q, want base value", p.ShadingModel)
	}
	if p.Truncated {
		t.Error("chain should not be truncated")
	}
}

func TestCollectParameters_BaseLayer(t *testing.T) {
	d := tex("T_D")
	base := &assets.BaseMaterial{
		Name:     "M_Base",
		TwoSided: true,
		Expressions: []assets.Expression{
			{Kind: assets.ExprOther, Texture: tex("T_Ignored")},
			{Kind: assets.ExprTextureSampleParameter, ParameterName: "None", Texture: tex("T_Unnamed")},
			{Kind: assets.ExprTextureSampleParameter, ParameterName: "", Texture: tex("T_Blank")},
			{Kind: assets.ExprTextureSampleParameter, ParameterName: "Rough", Texture: tex("T_R")},
			{Kind: assets.ExprTextureSampleParameter, ParameterName: "NoTexture"},
			{Kind: assets.ExprTextureSample, Texture: tex("T_Sampled")},
			{Kind: assets.ExprTextureSample, Texture: d},
		},
		ReferencedTextures: []*assets.TextureRef{d, nil, tex("T_Ref")},
	}

	p := CollectParameters(base)

	if want := []string{"Texture1", "Texture2", "Rough"}; !reflect.DeepEqual(p.Textures.Keys(), want) {
		t.Errorf("Textures: got %v, want %v", p.Textures.Keys(), want)
	}
	if want := []string{"T_D", "T_Ref", "T_Sampled"}; !reflect.DeepEqual(p.ReferenceTextures.Keys(), want) {
		t.Errorf("ReferenceTextures: got %v, want %v", p.ReferenceTextures.Keys(), want)
	}
	if !p.TwoSided {
		t.Error("TwoSided: base value should fill an unset flag")
	}
}

func TestCollectParameters_ChainBreak(t *testing.T) {
	tests := []struct {
		name string
		node assets.MaterialNode
		want int
	}{
		{"nil", nil, 0},
		{"missing parent", &assets.MaterialInstance{
			Name:          "MI_Orphan",
			TextureParams: []assets.TextureParam{{Name: "Diffuse", Texture: tex("T")}},
		}, 1},
		{"typed nil parent", &assets.MaterialInstance{
			Name:          "MI",
			Parent:        (*assets.BaseMaterial)(nil),
			TextureParams: []assets.TextureParam{{Name: "A", Texture: tex("T")}},
		}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := CollectParameters(tt.node)
			if p.Textures.Len() != tt.want {
				t.Errorf("got %d textures, want %d", p.Textures.Len(), tt.want)
			}
			if p.Truncated {
				t.Error("a chain break is not a truncation")
			}
		})
	}
}

func TestCollectParameters_Cycle(t *testing.T) {
	a := &assets.MaterialInstance{Name: "A", TextureParams: []assets.TextureParam{{Name: "Diffuse", Texture: tex("T_A")}}}
	b := &assets.MaterialInstance{Name: "B", Parent: a, TextureParams: []assets.TextureParam{{Name: "Normal", Texture: tex("T_B")}}}
	a.Parent = b

	p := CollectParameters(a)

	if !p.Truncated {
		t.Error("expected Truncated for a cycle")
	}
	if p.Textures.Len() != 2 {
		t.Errorf("parameters collected before the cycle should be kept, got %v", p.Textures.Keys())
	}
}

func chain(instances int) assets.MaterialNode {
	var node assets.MaterialNode = &assets.BaseMaterial{
		Name:                "M_Base",
		CachedTextureParams: []assets.TextureParam{{Name: "Base", Texture: tex("T_Base")}},
	}
	for i := 0; i < instances; i++ {
		node = &assets.MaterialInstance{Name: fmt.Sprintf("MI_%d", i), Parent: node}
	}
	return node
}

func TestCollectParameters_DepthLimit(t *testing.T) {
	p := CollectParameters(chain(MaxChainDepth))
	if p.Truncated {
		t.Errorf("%d instances should fit", MaxChainDepth)
	}
	if _, ok := p.Textures.Get("Base"); !ok {
		t.Error("base parameters should be reached")
	}

	p = CollectParameters(chain(MaxChainDepth + 1))
	if !p.Truncated {
		t.Errorf("%d instances should truncate", MaxChainDepth+1)
	}
	if _, ok := p.Textures.Get("Base"); ok {
		t.Error("base should not be reached past the depth limit")
	}
}
