package assets

// MaterialNode is one link of a material override chain: either a
// *MaterialInstance or a *BaseMaterial.
type MaterialNode interface {
	NodeName() string
	materialNode()
}

// IsNilNode reports whether n is nil or a nil pointer wrapped in the
// interface.
func IsNilNode(n MaterialNode) bool {
	switch v := n.(type) {
	case nil:
		return true
	case *MaterialInstance:
		return v == nil
	case *BaseMaterial:
		return v == nil
	}
	return false
}

// TextureRef names a texture asset. Owner is the stable identity of the
// underlying image (its package path); several refs may share one owner.
type TextureRef struct {
	Name   string
	Owner  string
	Bitmap Bitmap
}

// Identity returns the key the texture is shared under.
func (t *TextureRef) Identity() string {
	if t.Owner != "" {
		return t.Owner
	}
	return t.Name
}

// TextureParam is a named texture parameter value.
type TextureParam struct {
	Name    string
	Texture *TextureRef
}

// Overrides are the base property overrides of an instance. Nil means unset.
type Overrides struct {
	TwoSided     *bool
	BlendMode    *string
	ShadingModel *string
}

// MaterialInstance overrides parameters of its parent.
type MaterialInstance struct {
	Name          string
	Parent        MaterialNode
	TextureParams []TextureParam
	Overrides     Overrides
}

func (m *MaterialInstance) NodeName() string { return m.Name }
func (*MaterialInstance) materialNode()      {}

// ExpressionKind classifies a material graph expression.
type ExpressionKind int

const (
	ExprOther ExpressionKind = iota
	ExprTextureSampleParameter
	ExprTextureSample
)

// Expression is a node of a base material's expression graph. Only texture
// sampling expressions carry data the renderer reads.
type Expression struct {
	Kind          ExpressionKind
	ParameterName string
	Texture       *TextureRef
}

// BaseMaterial terminates an override chain.
type BaseMaterial struct {
	Name         string
	TwoSided     bool
	BlendMode    string
	ShadingModel string

	// CachedTextureParams are the texture parameter defaults baked into the
	// material's cached expression data.
	CachedTextureParams []TextureParam
	Expressions         []Expression
	ReferencedTextures  []*TextureRef
}

func (m *BaseMaterial) NodeName() string { return m.Name }
func (*BaseMaterial) materialNode()      {}
