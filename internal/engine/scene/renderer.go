// Package scene owns the loaded entities and draws them every frame: it
// culls each entity's instances, uploads the survivors and issues one
// instanced draw per mesh section.
package scene

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/umapview/internal/engine/cache"
	"github.com/Faultbox/umapview/internal/engine/gpu"
	"github.com/Faultbox/umapview/internal/engine/material"
	"github.com/Faultbox/umapview/internal/engine/model"
	"github.com/Faultbox/umapview/internal/engine/texture"
	"github.com/Faultbox/umapview/internal/logger"
	"github.com/Faultbox/umapview/pkg/math"
)

var (
	// ErrClosed is returned by operations on a closed renderer.
	ErrClosed = errors.New("scene: renderer closed")
	// ErrRunning is returned when a second render loop is started.
	ErrRunning = errors.New("scene: render loop already running")
	// ErrCleared is returned by a load that raced with Clear.
	ErrCleared = errors.New("scene: cleared during load")
	// ErrNoMesh is returned when an entity source has no mesh.
	ErrNoMesh = errors.New("scene: entity has no mesh")
)

// Config contains renderer options.
type Config struct {
	// MaxFPS caps the headless loop. Zero or less means uncapped.
	MaxFPS int
	// StatsInterval is the number of frames between stats log lines, zero
	// disables them.
	StatsInterval int
	AutoTexture   []material.AutoTextureRule
}

// FrameStats describes the last rendered frame.
type FrameStats struct {
	Frame     uint64
	Entities  int
	Instances int
	Visible   int
	DrawCalls int
}

type cameraState struct {
	projection math.Mat4
	view       math.Mat4
	front      math.Vec4
}

// Renderer draws entities through a gpu.Device.
type Renderer struct {
	dev      gpu.Device
	cache    *cache.ResourceCache
	resolver *material.Resolver
	builder  *model.Builder
	cfg      Config
	log      *zap.Logger

	cameraBuf gpu.Buffer
	masksBuf  gpu.Buffer

	// mu guards the entity list. The render loop holds it for a whole
	// frame; loaders hold it only to append or clear.
	mu         sync.Mutex
	entities   []*Entity
	generation uint64

	// stateMu guards camera, pending masks and stats.
	stateMu      sync.Mutex
	camera       cameraState
	pendingMasks *[material.SlotCount]math.Vec4
	stats        FrameStats
	frame        uint64

	loopMu   sync.Mutex
	loopDone chan struct{}
	stop     chan struct{}
	closed   bool
}

// New creates a renderer and its uniform buffers.
func New(dev gpu.Device, c *cache.ResourceCache, cfg Config) (*Renderer, error) {
	resolver := material.NewResolver(c, texture.NewBinder(dev), cfg.AutoTexture)
	r := &Renderer{
		dev:      dev,
		cache:    c,
		resolver: resolver,
		builder:  model.NewBuilder(dev, c, resolver),
		cfg:      cfg,
		log:      logger.Named("scene"),
		camera:   cameraState{projection: math.Identity(), view: math.Identity()},
		stop:     make(chan struct{}),
	}

	var err error
	if r.cameraBuf, err = dev.CreateBuffer(gpu.BufferUniform, gpu.CameraUniformSize, encodeCamera(r.camera)); err != nil {
		return nil, err
	}
	if r.masksBuf, err = dev.CreateBuffer(gpu.BufferUniform, gpu.MasksUniformSize, encodeMasks(resolver.Masks())); err != nil {
		dev.ReleaseBuffer(r.cameraBuf)
		return nil, err
	}
	return r, nil
}

// SetAutoTextureRules replaces the rules used by later material
// resolutions. The new channel masks are uploaded with the next frame.
// Materials already cached keep their textures until Clear.
func (r *Renderer) SetAutoTextureRules(rules []material.AutoTextureRule) {
	r.resolver.SetRules(rules)
	masks := r.resolver.Masks()

	r.stateMu.Lock()
	r.pendingMasks = &masks
	r.stateMu.Unlock()

	r.log.Info("auto texture rules updated", zap.Int("rules", len(rules)))
}

// UpdateCamera sets the matrices used from the next frame on.
func (r *Renderer) UpdateCamera(projection, view math.Mat4, front math.Vec4) {
	r.stateMu.Lock()
	r.camera = cameraState{projection: projection, view: view, front: front}
	r.stateMu.Unlock()
}

// Stats returns the statistics of the last rendered frame.
func (r *Renderer) Stats() FrameStats {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()
	return r.stats
}

// Cache returns the resource cache the renderer loads through.
func (r *Renderer) Cache() *cache.ResourceCache {
	return r.cache
}

// Clear releases every entity and every cached resource.
func (r *Renderer) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entities {
		e.release(r.dev)
	}
	n := len(r.entities)
	r.entities = nil
	r.generation++
	r.cache.Clear()

	r.log.Info("scene cleared", zap.Int("entities", n))
}

// RenderFrame uploads the uniforms, then culls and draws every entity.
func (r *Renderer) RenderFrame() {
	r.stateMu.Lock()
	cam := r.camera
	masks := r.pendingMasks
	r.pendingMasks = nil
	r.stateMu.Unlock()

	r.dev.BeginFrame()

	if masks != nil {
		r.dev.WriteBuffer(r.masksBuf, 0, encodeMasks(*masks))
	}
	r.dev.WriteBuffer(r.cameraBuf, 0, encodeCamera(cam))
	frustum := math.FrustumFromMatrix(cam.projection.Mul(cam.view))

	stats := FrameStats{}
	r.mu.Lock()
	for _, e := range r.entities {
		stats.Instances += e.store.Len()
		visible := e.cull(r.dev, frustum)
		if visible == 0 {
			continue
		}
		stats.Visible += visible
		stats.DrawCalls += r.draw(e, visible)
	}
	stats.Entities = len(r.entities)
	r.mu.Unlock()

	r.dev.EndFrame()

	r.stateMu.Lock()
	r.frame++
	stats.Frame = r.frame
	r.stats = stats
	r.stateMu.Unlock()

	if r.cfg.StatsInterval > 0 && stats.Frame%uint64(r.cfg.StatsInterval) == 0 {
		cs := r.cache.Stats()
		r.log.Debug("frame stats",
			zap.Uint64("frame", stats.Frame),
			zap.Int("entities", stats.Entities),
			zap.Int("instances", stats.Instances),
			zap.Int("visible", stats.Visible),
			zap.Int("draw_calls", stats.DrawCalls),
			zap.Int("meshes", cs.Entries[cache.KindMesh]),
			zap.Int("materials", cs.Entries[cache.KindMaterial]),
			zap.Int("textures", cs.Entries[cache.KindTexture]))
	}
}

func (r *Renderer) draw(e *Entity, visible int) int {
	for _, s := range e.sections {
		r.dev.Draw(gpu.DrawCall{
			Pipeline:      s.pipeline,
			Camera:        r.cameraBuf,
			Masks:         r.masksBuf,
			Textures:      s.material.Handles(),
			Vertices:      e.Mesh.Vertices,
			Indices:       e.Mesh.Indices,
			Instances:     e.instances,
			FirstIndex:    s.FirstIndex,
			IndexCount:    s.IndexCount,
			InstanceCount: uint32(visible),
		})
	}
	return len(e.sections)
}
