package assets

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/chewxy/math32"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/umapview/internal/logger"
	"github.com/Faultbox/umapview/pkg/math"
)

// Scene is a loaded manifest: entities ready to hand to the renderer.
type Scene struct {
	Name     string
	Entities []Entity
	Camera   *CameraStart

	// Files reads the bitmaps referenced by the scene.
	Files *Manager
}

// Entity is one placed mesh with all of its instances.
type Entity struct {
	Mesh                         *ConvertedMesh
	Transforms                   []Transform
	Overrides                    []MaterialNode
	Mirrored                     bool
	DisallowMeshPaintPerInstance bool
}

// CameraStart is the initial viewer pose. Position is in asset space, angles
// are in degrees.
type CameraStart struct {
	Position math.Vec3
	Yaw      float32
	Pitch    float32
}

// Instances returns the total instance count over all entities.
func (s *Scene) Instances() int {
	n := 0
	for _, e := range s.Entities {
		n += len(e.Transforms)
	}
	return n
}

// Mesh returns the first entity mesh named name, or nil.
func (s *Scene) Mesh(name string) *ConvertedMesh {
	for _, e := range s.Entities {
		if e.Mesh != nil && e.Mesh.Name == name {
			return e.Mesh
		}
	}
	return nil
}

// Close releases the scene's file cache.
func (s *Scene) Close() {
	if s.Files != nil {
		s.Files.Close()
	}
}

type manifestFile struct {
	Name      string        `yaml:"name"`
	Roots     []string      `yaml:"roots"`
	Camera    *cameraDef    `yaml:"camera"`
	Textures  []textureDef  `yaml:"textures"`
	Materials []materialDef `yaml:"materials"`
	Meshes    []meshDef     `yaml:"meshes"`
	Entities  []entityDef   `yaml:"entities"`
}

type cameraDef struct {
	Position [3]float32 `yaml:"position"`
	Yaw      float32    `yaml:"yaw"`
	Pitch    float32    `yaml:"pitch"`
}

type textureDef struct {
	Name  string `yaml:"name"`
	Owner string `yaml:"owner"`
	File  string `yaml:"file"`
	SRGB  bool   `yaml:"srgb"`
}

type paramDef struct {
	Name    string `yaml:"name"`
	Texture string `yaml:"texture"`
}

type expressionDef struct {
	Kind      string `yaml:"kind"`
	Parameter string `yaml:"parameter"`
	Texture   string `yaml:"texture"`
}

type materialDef struct {
	Name   string `yaml:"name"`
	Kind   string `yaml:"kind"`
	Parent string `yaml:"parent"`

	Textures    []paramDef      `yaml:"textures"`
	Expressions []expressionDef `yaml:"expressions"`
	Referenced  []string        `yaml:"referenced_textures"`

	TwoSided     *bool   `yaml:"two_sided"`
	BlendMode    *string `yaml:"blend_mode"`
	ShadingModel *string `yaml:"shading_model"`
}

type vertexDef struct {
	Position [3]float32 `yaml:"position"`
	Normal   [3]float32 `yaml:"normal"`
	Tangent  [3]float32 `yaml:"tangent"`
	UV       [2]float32 `yaml:"uv"`
}

type sectionDef struct {
	Material int `yaml:"material"`
	First    int `yaml:"first"`
	Faces    int `yaml:"faces"`
}

type meshDef struct {
	Name      string   `yaml:"name"`
	Primitive string   `yaml:"primitive"`
	Size      float32  `yaml:"size"`
	TwoSided  bool     `yaml:"two_sided"`
	Materials []string `yaml:"materials"`

	Vertices []vertexDef  `yaml:"vertices"`
	Colors   [][4]float32 `yaml:"colors"`
	Indices  []uint32     `yaml:"indices"`
	Sections []sectionDef `yaml:"sections"`
}

type transformDef struct {
	Translation [3]float32  `yaml:"translation"`
	Rotation    *[4]float32 `yaml:"rotation"`
	Yaw         float32     `yaml:"yaw"`
	Scale       *[3]float32 `yaml:"scale"`
}

type gridDef struct {
	Count        [3]int     `yaml:"count"`
	Spacing      [3]float32 `yaml:"spacing"`
	transformDef `yaml:",inline"`
}

type entityDef struct {
	Mesh              string         `yaml:"mesh"`
	Overrides         []string       `yaml:"overrides"`
	Mirrored          bool           `yaml:"mirrored"`
	DisallowMeshPaint bool           `yaml:"disallow_mesh_paint_per_instance"`
	Instances         []transformDef `yaml:"instances"`
	Grid              []gridDef      `yaml:"grid"`
}

// LoadManifest reads a YAML scene manifest. Texture files are looked up
// relative to the manifest's directory and any extra roots it lists.
func LoadManifest(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var mf manifestFile
	if err := unmarshalManifest(data, &mf); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}

	files := NewManager()
	dir := filepath.Dir(path)
	if err := files.AddDir(dir); err != nil {
		return nil, err
	}
	for _, root := range mf.Roots {
		if !filepath.IsAbs(root) {
			root = filepath.Join(dir, root)
		}
		if err := files.AddDir(root); err != nil {
			return nil, err
		}
	}

	scene, err := build(&mf, files)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return scene, nil
}

// ParseManifest builds a scene from manifest bytes, reading files through
// the given manager.
func ParseManifest(data []byte, files *Manager) (*Scene, error) {
	var mf manifestFile
	if err := unmarshalManifest(data, &mf); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return build(&mf, files)
}

// unmarshalManifest decodes UTF-8 or, when a byte order mark says so,
// UTF-16 manifest text.
func unmarshalManifest(data []byte, mf *manifestFile) error {
	text, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
	if err != nil {
		return fmt.Errorf("decoding text: %w", err)
	}
	return yaml.Unmarshal(text, mf)
}

func build(mf *manifestFile, files *Manager) (*Scene, error) {
	log := logger.Named("assets")

	textures := make(map[string]*TextureRef, len(mf.Textures))
	for _, def := range mf.Textures {
		if _, dup := textures[def.Name]; dup {
			return nil, fmt.Errorf("duplicate texture %q", def.Name)
		}
		ref := &TextureRef{Name: def.Name, Owner: def.Owner}
		if def.File != "" {
			ref.Bitmap = &FileBitmap{Files: files, Path: filepath.ToSlash(def.File), IsSRGB: def.SRGB}
			if ref.Owner == "" {
				ref.Owner = filepath.ToSlash(def.File)
			}
		}
		textures[def.Name] = ref
	}
	texture := func(owner, name string) *TextureRef {
		if name == "" {
			return nil
		}
		ref, ok := textures[name]
		if !ok {
			log.Warn("unknown texture", zap.String("material", owner), zap.String("texture", name))
		}
		return ref
	}

	materials := make(map[string]MaterialNode, len(mf.Materials))
	parents := make(map[*MaterialInstance]string)
	for _, def := range mf.Materials {
		if _, dup := materials[def.Name]; dup {
			return nil, fmt.Errorf("duplicate material %q", def.Name)
		}
		node, err := buildMaterial(def, texture)
		if err != nil {
			return nil, err
		}
		if mi, ok := node.(*MaterialInstance); ok && def.Parent != "" {
			parents[mi] = def.Parent
		}
		materials[def.Name] = node
	}
	// Parents are linked by name after every material exists, so chains may
	// reference later entries and may even loop.
	for mi, name := range parents {
		parent, ok := materials[name]
		if !ok {
			log.Warn("unknown parent material", zap.String("material", mi.Name), zap.String("parent", name))
			continue
		}
		mi.Parent = parent
	}
	material := func(name string) MaterialNode {
		if name == "" {
			return nil
		}
		node, ok := materials[name]
		if !ok {
			log.Warn("unknown material", zap.String("material", name))
			return nil
		}
		return node
	}

	meshes := make(map[string]*ConvertedMesh, len(mf.Meshes))
	for _, def := range mf.Meshes {
		if _, dup := meshes[def.Name]; dup {
			return nil, fmt.Errorf("duplicate mesh %q", def.Name)
		}
		mesh, err := buildMesh(def)
		if err != nil {
			return nil, err
		}
		for _, name := range def.Materials {
			mesh.Materials = append(mesh.Materials, material(name))
		}
		meshes[def.Name] = mesh
	}

	scene := &Scene{Name: mf.Name, Files: files}
	if mf.Camera != nil {
		scene.Camera = &CameraStart{
			Position: vec3(mf.Camera.Position),
			Yaw:      mf.Camera.Yaw,
			Pitch:    mf.Camera.Pitch,
		}
	}
	for i, def := range mf.Entities {
		mesh, ok := meshes[def.Mesh]
		if !ok {
			return nil, fmt.Errorf("entity %d: unknown mesh %q", i, def.Mesh)
		}
		e := Entity{
			Mesh:                         mesh,
			Mirrored:                     def.Mirrored,
			DisallowMeshPaintPerInstance: def.DisallowMeshPaint,
		}
		for _, name := range def.Overrides {
			e.Overrides = append(e.Overrides, material(name))
		}
		for _, t := range def.Instances {
			e.Transforms = append(e.Transforms, t.transform())
		}
		for _, g := range def.Grid {
			e.Transforms = append(e.Transforms, g.transforms()...)
		}
		if len(e.Transforms) == 0 {
			e.Transforms = []Transform{IdentityTransform()}
		}
		scene.Entities = append(scene.Entities, e)
	}

	log.Info("manifest loaded",
		zap.String("scene", scene.Name),
		zap.Int("textures", len(textures)),
		zap.Int("materials", len(materials)),
		zap.Int("meshes", len(meshes)),
		zap.Int("entities", len(scene.Entities)),
		zap.Int("instances", scene.Instances()))
	return scene, nil
}

func buildMaterial(def materialDef, texture func(owner, name string) *TextureRef) (MaterialNode, error) {
	kind := def.Kind
	if kind == "" {
		kind = "base"
		if def.Parent != "" {
			kind = "instance"
		}
	}

	switch kind {
	case "instance":
		mi := &MaterialInstance{
			Name: def.Name,
			Overrides: Overrides{
				TwoSided:     def.TwoSided,
				BlendMode:    def.BlendMode,
				ShadingModel: def.ShadingModel,
			},
		}
		for _, p := range def.Textures {
			mi.TextureParams = append(mi.TextureParams, TextureParam{Name: p.Name, Texture: texture(def.Name, p.Texture)})
		}
		return mi, nil

	case "base":
		bm := &BaseMaterial{Name: def.Name}
		if def.TwoSided != nil {
			bm.TwoSided = *def.TwoSided
		}
		if def.BlendMode != nil {
			bm.BlendMode = *def.BlendMode
		}
		if def.ShadingModel != nil {
			bm.ShadingModel = *def.ShadingModel
		}
		for _, p := range def.Textures {
			bm.CachedTextureParams = append(bm.CachedTextureParams, TextureParam{Name: p.Name, Texture: texture(def.Name, p.Texture)})
		}
		for _, e := range def.Expressions {
			expr := Expression{ParameterName: e.Parameter, Texture: texture(def.Name, e.Texture)}
			switch e.Kind {
			case "TextureSampleParameter", "TextureSampleParameter2D":
				expr.Kind = ExprTextureSampleParameter
			case "TextureSample":
				expr.Kind = ExprTextureSample
			default:
				expr.Kind = ExprOther
			}
			bm.Expressions = append(bm.Expressions, expr)
		}
		for _, name := range def.Referenced {
			bm.ReferencedTextures = append(bm.ReferencedTextures, texture(def.Name, name))
		}
		return bm, nil

	default:
		return nil, fmt.Errorf("material %q: unknown kind %q", def.Name, def.Kind)
	}
}

func buildMesh(def meshDef) (*ConvertedMesh, error) {
	var mesh *ConvertedMesh
	size := def.Size
	if size == 0 {
		size = 100
	}

	switch def.Primitive {
	case "cube":
		mesh = Cube(def.Name, size)
	case "plane":
		mesh = Plane(def.Name, size)
	case "":
		mesh = &ConvertedMesh{Name: def.Name, Indices: def.Indices}
		for _, v := range def.Vertices {
			mesh.Vertices = append(mesh.Vertices, SourceVertex{
				Position: vec3(v.Position),
				Normal:   vec3(v.Normal),
				Tangent:  vec3(v.Tangent),
				UV:       math.Vec2{X: v.UV[0], Y: v.UV[1]},
			})
		}
		if len(def.Colors) > 0 {
			if len(def.Colors) != len(def.Vertices) {
				return nil, fmt.Errorf("mesh %q: %d colors for %d vertices", def.Name, len(def.Colors), len(def.Vertices))
			}
			for _, c := range def.Colors {
				mesh.Colors = append(mesh.Colors, math.Vec4(c))
			}
		}
		for _, s := range def.Sections {
			mesh.Sections = append(mesh.Sections, SourceSection{MaterialIndex: s.Material, FirstIndex: s.First, NumFaces: s.Faces})
		}
		if len(mesh.Sections) == 0 {
			mesh.Sections = []SourceSection{{NumFaces: len(mesh.Indices) / 3}}
		}
		mesh.Bounds = ComputeBounds(mesh.Vertices)
	default:
		return nil, fmt.Errorf("mesh %q: unknown primitive %q", def.Name, def.Primitive)
	}

	mesh.TwoSided = def.TwoSided
	return mesh, nil
}

func (t transformDef) transform() Transform {
	out := IdentityTransform()
	out.Translation = vec3(t.Translation)
	switch {
	case t.Rotation != nil:
		r := t.Rotation
		out.Rotation = math.Quat{X: r[0], Y: r[1], Z: r[2], W: r[3]}
	case t.Yaw != 0:
		out.Rotation = math.QuatFromAxisAngle(math.Vec3{Z: 1}, t.Yaw*degToRad)
	}
	if t.Scale != nil {
		out.Scale = vec3(*t.Scale)
	}
	return out
}

// transforms expands the grid into Count[0]*Count[1]*Count[2] instances,
// x fastest. A zero count on an axis counts as one.
func (g gridDef) transforms() []Transform {
	n := [3]int{}
	for i, c := range g.Count {
		n[i] = max(c, 1)
	}
	base := g.transform()
	out := make([]Transform, 0, n[0]*n[1]*n[2])
	for z := 0; z < n[2]; z++ {
		for y := 0; y < n[1]; y++ {
			for x := 0; x < n[0]; x++ {
				t := base
				t.Translation = base.Translation.Add(math.Vec3{
					X: float32(x) * g.Spacing[0],
					Y: float32(y) * g.Spacing[1],
					Z: float32(z) * g.Spacing[2],
				})
				out = append(out, t)
			}
		}
	}
	return out
}

const degToRad = math32.Pi / 180

func vec3(a [3]float32) math.Vec3 {
	return math.Vec3{X: a[0], Y: a[1], Z: a[2]}
}
