package scene

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/umapview/internal/assets"
	"github.com/Faultbox/umapview/internal/engine/gpu"
	"github.com/Faultbox/umapview/internal/engine/instance"
	"github.com/Faultbox/umapview/internal/engine/material"
	"github.com/Faultbox/umapview/internal/engine/model"
	"github.com/Faultbox/umapview/pkg/math"
)

// EntitySource describes one placed mesh with all of its instances.
type EntitySource struct {
	Mesh       *assets.ConvertedMesh
	Transforms []assets.Transform
	// Overrides replaces the mesh's materials by index; nil entries keep
	// the mesh's own material.
	Overrides                    []assets.MaterialNode
	Mirrored                     bool
	DisallowMeshPaintPerInstance bool
}

// SourceFromAsset converts a manifest entity.
func SourceFromAsset(e assets.Entity) EntitySource {
	return EntitySource{
		Mesh:                         e.Mesh,
		Transforms:                   e.Transforms,
		Overrides:                    e.Overrides,
		Mirrored:                     e.Mirrored,
		DisallowMeshPaintPerInstance: e.DisallowMeshPaintPerInstance,
	}
}

type drawSection struct {
	model.Section
	material *material.Material
	pipeline gpu.Pipeline
}

// Entity is a loaded mesh with its instances.
type Entity struct {
	Mesh     *model.Mesh
	TwoSided bool

	store     *instance.Store
	instances gpu.Buffer
	scratch   []byte
	sections  []drawSection
}

// Instances returns the number of instances, culled or not.
func (e *Entity) Instances() int {
	return e.store.Len()
}

// cull refreshes the visible instances and uploads them. Unculled
// instances were uploaded at load.
func (e *Entity) cull(dev gpu.Device, f math.Frustum) int {
	n := e.store.Cull(f)
	if n == 0 || e.store.Bounds() == nil {
		return n
	}
	e.scratch = e.scratch[:0]
	for _, m := range e.store.Visible() {
		e.scratch = gpu.AppendFloat32s(e.scratch, m[:]...)
	}
	dev.WriteBuffer(e.instances, 0, e.scratch)
	return n
}

func (e *Entity) release(dev gpu.Device) {
	if e.instances != 0 {
		dev.ReleaseBuffer(e.instances)
		e.instances = 0
	}
}

// LoadEntity builds (or reuses) the entity's mesh and materials, uploads
// its instance buffer and adds it to the scene.
func (r *Renderer) LoadEntity(src EntitySource) error {
	if src.Mesh == nil {
		return ErrNoMesh
	}
	gen, err := r.checkOpen()
	if err != nil {
		return err
	}

	mesh, err := r.builder.LoadMesh(src.Mesh)
	if err != nil {
		return fmt.Errorf("loading entity %q: %w", src.Mesh.Name, err)
	}

	overrides := make([]*material.Material, len(src.Overrides))
	for i, node := range src.Overrides {
		if overrides[i], err = r.builder.LoadMaterial(node); err != nil {
			return fmt.Errorf("loading entity %q: override %d: %w", src.Mesh.Name, i, err)
		}
	}

	twoSided := mesh.TwoSided || src.Mirrored || src.DisallowMeshPaintPerInstance
	transforms := make([]math.Mat4, len(src.Transforms))
	for i, t := range src.Transforms {
		transforms[i] = instance.FromSource(t)
		if instance.Mirrored(t) {
			twoSided = true
		}
	}

	e := &Entity{
		Mesh:     mesh,
		TwoSided: twoSided,
		store:    instance.NewStore(transforms, mesh.Bounds),
	}
	for _, s := range mesh.Sections {
		m := mesh.Material(s.MaterialIndex)
		if s.MaterialIndex >= 0 && s.MaterialIndex < len(overrides) && overrides[s.MaterialIndex] != nil {
			m = overrides[s.MaterialIndex]
		}
		if e.sections, err = r.appendSection(e.sections, s, m, twoSided); err != nil {
			return fmt.Errorf("loading entity %q: %w", src.Mesh.Name, err)
		}
	}

	if err := r.add(e, gen); err != nil {
		return fmt.Errorf("loading entity %q: %w", src.Mesh.Name, err)
	}
	r.log.Debug("entity loaded",
		zap.String("mesh", mesh.Name),
		zap.Int("instances", len(transforms)),
		zap.Int("sections", len(e.sections)),
		zap.Bool("two_sided", twoSided))
	return nil
}

// LoadPreview adds a single untransformed, never culled instance of mesh
// drawn with its first section's material.
func (r *Renderer) LoadPreview(src *assets.ConvertedMesh) error {
	if src == nil {
		return ErrNoMesh
	}
	gen, err := r.checkOpen()
	if err != nil {
		return err
	}

	mesh, err := r.builder.LoadMesh(src)
	if err != nil {
		return fmt.Errorf("loading preview %q: %w", src.Name, err)
	}

	var first *material.Material
	if len(mesh.Sections) > 0 {
		first = mesh.Material(mesh.Sections[0].MaterialIndex)
	}
	e := &Entity{
		Mesh:     mesh,
		TwoSided: mesh.TwoSided,
		store:    instance.NewUnculledStore([]math.Mat4{math.Identity()}),
	}
	for _, s := range mesh.Sections {
		if e.sections, err = r.appendSection(e.sections, s, first, mesh.TwoSided); err != nil {
			return fmt.Errorf("loading preview %q: %w", src.Name, err)
		}
	}

	if err := r.add(e, gen); err != nil {
		return fmt.Errorf("loading preview %q: %w", src.Name, err)
	}
	return nil
}

func (r *Renderer) appendSection(dst []drawSection, s model.Section, m *material.Material, twoSided bool) ([]drawSection, error) {
	if m == nil {
		var err error
		if m, err = r.builder.FallbackMaterial(); err != nil {
			return dst, err
		}
	}
	pipeline := gpu.PipelineRegular
	if twoSided || m.TwoSided {
		pipeline = gpu.PipelineTwoSided
	}
	return append(dst, drawSection{Section: s, material: m, pipeline: pipeline}), nil
}

func (r *Renderer) checkOpen() (uint64, error) {
	r.loopMu.Lock()
	closed := r.closed
	r.loopMu.Unlock()
	if closed {
		return 0, ErrClosed
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generation, nil
}

// add allocates the instance buffer and appends e, unless the scene was
// cleared since gen.
func (r *Renderer) add(e *Entity, gen uint64) error {
	n := e.store.Len()
	size := max(n, 1) * gpu.InstanceStride
	e.scratch = make([]byte, 0, size)

	var initial []byte
	if e.store.Bounds() == nil {
		for _, m := range e.store.Visible() {
			initial = gpu.AppendFloat32s(initial, m[:]...)
		}
	}
	buf, err := r.dev.CreateBuffer(gpu.BufferInstance, size, initial)
	if err != nil {
		return err
	}
	e.instances = buf

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.generation != gen {
		e.release(r.dev)
		return ErrCleared
	}
	r.entities = append(r.entities, e)
	return nil
}
