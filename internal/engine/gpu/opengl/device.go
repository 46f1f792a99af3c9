// Package opengl implements gpu.Device on OpenGL 4.1 core.
//
// The device is created on the render thread with its context current.
// Loader goroutines may create and release resources while a second context,
// sharing objects with the render context, is current on their OS thread.
// Vertex array objects are per-context, so they are built lazily on the
// render thread and swept when a buffer they reference is released.
package opengl

import (
	"fmt"
	"sync"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/umapview/internal/engine/gpu"
	"github.com/Faultbox/umapview/internal/engine/shader"
	"github.com/Faultbox/umapview/internal/logger"
)

// Config holds device settings.
type Config struct {
	Width, Height int
	ClearColor    [4]float32
}

type bufferInfo struct {
	kind gpu.BufferKind
	gen  uint64
}

type vaoKey struct {
	vertices, indices, instances gpu.Buffer
	gens                         [3]uint64
}

// Device is an OpenGL gpu.Device.
type Device struct {
	cfg     Config
	log     *zap.Logger
	program uint32

	mu      sync.Mutex
	buffers map[gpu.Buffer]bufferInfo
	gen     uint64
	dirty   bool
	closed  bool

	// render thread only
	vaos     map[vaoKey]uint32
	pipeline gpu.Pipeline
}

// New initializes OpenGL on the current context and compiles the mesh program.
func New(cfg Config) (*Device, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("initializing OpenGL: %w", err)
	}

	d := &Device{
		cfg:     cfg,
		log:     logger.Named("gpu"),
		buffers: make(map[gpu.Buffer]bufferInfo),
		vaos:    make(map[vaoKey]uint32),
	}
	d.log.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)

	program, err := shader.CompileProgram(vertexSource, fragmentSource)
	if err != nil {
		return nil, fmt.Errorf("compiling mesh program: %w", err)
	}
	if err := shader.BindUniformBlock(program, "Camera", cameraBinding); err != nil {
		gl.DeleteProgram(program)
		return nil, err
	}
	if err := shader.BindUniformBlock(program, "AutoTextureMasks", masksBinding); err != nil {
		gl.DeleteProgram(program)
		return nil, err
	}
	shader.BindSamplers(program, samplerNames[:]...)
	d.program = program

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LEQUAL)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	gl.Enable(gl.FRAMEBUFFER_SRGB)
	gl.FrontFace(gl.CCW)
	gl.CullFace(gl.BACK)
	gl.Enable(gl.CULL_FACE)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	d.Resize(cfg.Width, cfg.Height)

	return d, nil
}

// Resize updates the viewport. Render thread only.
func (d *Device) Resize(width, height int) {
	d.cfg.Width, d.cfg.Height = width, height
	gl.Viewport(0, 0, int32(width), int32(height))
}

// ReadPixels returns the back buffer as bottom-up RGBA rows. Render thread
// only, before the buffers are swapped.
func (d *Device) ReadPixels() (pixels []byte, width, height int) {
	width, height = d.cfg.Width, d.cfg.Height
	pixels = make([]byte, width*height*4)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, int32(width), int32(height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
	return pixels, width, height
}

func usage(kind gpu.BufferKind) uint32 {
	switch kind {
	case gpu.BufferInstance, gpu.BufferUniform:
		return gl.DYNAMIC_DRAW
	default:
		return gl.STATIC_DRAW
	}
}

func (d *Device) CreateBuffer(kind gpu.BufferKind, size int, data []byte) (gpu.Buffer, error) {
	if size <= 0 || len(data) > size {
		return 0, fmt.Errorf("creating %s buffer: invalid size %d for %d bytes", kind, size, len(data))
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return 0, gpu.ErrDeviceClosed
	}
	d.mu.Unlock()

	// COPY_WRITE_BUFFER does not disturb any VAO or indexed binding.
	var name uint32
	gl.GenBuffers(1, &name)
	gl.BindBuffer(gl.COPY_WRITE_BUFFER, name)
	gl.BufferData(gl.COPY_WRITE_BUFFER, size, nil, usage(kind))
	if len(data) > 0 {
		gl.BufferSubData(gl.COPY_WRITE_BUFFER, 0, len(data), gl.Ptr(data))
	}
	gl.BindBuffer(gl.COPY_WRITE_BUFFER, 0)
	if err := glError("creating buffer"); err != nil {
		gl.DeleteBuffers(1, &name)
		return 0, err
	}
	// Objects become visible to the other context once the commands completed.
	gl.Finish()

	b := gpu.Buffer(name)
	d.mu.Lock()
	d.gen++
	d.buffers[b] = bufferInfo{kind: kind, gen: d.gen}
	d.mu.Unlock()
	return b, nil
}

func (d *Device) WriteBuffer(b gpu.Buffer, offset int, data []byte) {
	if len(data) == 0 {
		return
	}
	gl.BindBuffer(gl.COPY_WRITE_BUFFER, uint32(b))
	gl.BufferSubData(gl.COPY_WRITE_BUFFER, offset, len(data), gl.Ptr(data))
	gl.BindBuffer(gl.COPY_WRITE_BUFFER, 0)
}

func (d *Device) ReleaseBuffer(b gpu.Buffer) {
	d.mu.Lock()
	if _, ok := d.buffers[b]; !ok {
		d.mu.Unlock()
		return
	}
	delete(d.buffers, b)
	d.dirty = true
	d.mu.Unlock()

	name := uint32(b)
	gl.DeleteBuffers(1, &name)
}

func (d *Device) CreateTexture(desc gpu.TextureDesc, pixels []byte) (gpu.Texture, error) {
	if desc.Width <= 0 || desc.Height <= 0 || len(pixels) != desc.Width*desc.Height*4 {
		return 0, fmt.Errorf("creating texture: %dx%d with %d bytes", desc.Width, desc.Height, len(pixels))
	}

	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return 0, gpu.ErrDeviceClosed
	}

	internal := int32(gl.RGBA8)
	if desc.Format == gpu.FormatRGBA8SRGB {
		internal = gl.SRGB8_ALPHA8
	}

	var name uint32
	gl.GenTextures(1, &name)
	gl.BindTexture(gl.TEXTURE_2D, name)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_BASE_LEVEL, 0)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAX_LEVEL, int32(max(desc.MipLevels, 1)-1))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.REPEAT)
	gl.TexImage2D(gl.TEXTURE_2D, 0, internal, int32(desc.Width), int32(desc.Height), 0,
		gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
	gl.BindTexture(gl.TEXTURE_2D, 0)
	if err := glError("creating texture"); err != nil {
		gl.DeleteTextures(1, &name)
		return 0, err
	}
	gl.Finish()

	return gpu.Texture(name), nil
}

func (d *Device) ReleaseTexture(t gpu.Texture) {
	name := uint32(t)
	gl.DeleteTextures(1, &name)
}

func (d *Device) BeginFrame() {
	d.sweepVAOs()

	c := d.cfg.ClearColor
	gl.ClearColor(c[0], c[1], c[2], c[3])
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
	gl.UseProgram(d.program)
	d.setPipeline(gpu.PipelineRegular)
}

func (d *Device) Draw(call gpu.DrawCall) {
	if call.InstanceCount == 0 || call.IndexCount == 0 {
		return
	}
	vao, ok := d.vertexArray(call)
	if !ok {
		d.log.Warn("draw references a released buffer", zap.Uint32("vertices", uint32(call.Vertices)))
		return
	}

	d.setPipeline(call.Pipeline)
	gl.BindBufferBase(gl.UNIFORM_BUFFER, cameraBinding, uint32(call.Camera))
	gl.BindBufferBase(gl.UNIFORM_BUFFER, masksBinding, uint32(call.Masks))
	for i, t := range call.Textures {
		gl.ActiveTexture(gl.TEXTURE0 + uint32(i))
		gl.BindTexture(gl.TEXTURE_2D, uint32(t))
	}

	gl.BindVertexArray(vao)
	gl.DrawElementsInstanced(gl.TRIANGLES, int32(call.IndexCount), gl.UNSIGNED_INT,
		gl.PtrOffset(int(call.FirstIndex)*4), int32(call.InstanceCount))
	gl.BindVertexArray(0)
}

func (d *Device) EndFrame() {
	gl.UseProgram(0)
}

func (d *Device) setPipeline(p gpu.Pipeline) {
	if p == d.pipeline {
		return
	}
	if p == gpu.PipelineTwoSided {
		gl.Disable(gl.CULL_FACE)
	} else {
		gl.Enable(gl.CULL_FACE)
	}
	d.pipeline = p
}

// vertexArray returns the VAO binding a vertex, index and instance buffer
// triple, creating it on first use.
func (d *Device) vertexArray(call gpu.DrawCall) (uint32, bool) {
	d.mu.Lock()
	v, okV := d.buffers[call.Vertices]
	i, okI := d.buffers[call.Indices]
	n, okN := d.buffers[call.Instances]
	d.mu.Unlock()
	if !okV || !okI || !okN {
		return 0, false
	}

	key := vaoKey{call.Vertices, call.Indices, call.Instances, [3]uint64{v.gen, i.gen, n.gen}}
	if vao, ok := d.vaos[key]; ok {
		return vao, true
	}

	var vao uint32
	gl.GenVertexArrays(1, &vao)
	gl.BindVertexArray(vao)

	gl.BindBuffer(gl.ARRAY_BUFFER, uint32(call.Vertices))
	attribs := []struct {
		size   int32
		offset uintptr
	}{
		{3, gpu.OffsetPosition},
		{4, gpu.OffsetColor},
		{3, gpu.OffsetNormal},
		{3, gpu.OffsetTangent},
		{2, gpu.OffsetUV},
	}
	for loc, a := range attribs {
		gl.EnableVertexAttribArray(uint32(loc))
		gl.VertexAttribPointerWithOffset(uint32(loc), a.size, gl.FLOAT, false, gpu.VertexStride, a.offset)
	}

	// mat4 instance attribute spans four vec4 locations
	gl.BindBuffer(gl.ARRAY_BUFFER, uint32(call.Instances))
	for col := uint32(0); col < 4; col++ {
		loc := uint32(len(attribs)) + col
		gl.EnableVertexAttribArray(loc)
		gl.VertexAttribPointerWithOffset(loc, 4, gl.FLOAT, false, gpu.InstanceStride, uintptr(col*16))
		gl.VertexAttribDivisor(loc, 1)
	}

	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, uint32(call.Indices))
	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)

	d.vaos[key] = vao
	return vao, true
}

// sweepVAOs deletes vertex arrays whose buffers were released or replaced.
func (d *Device) sweepVAOs() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.dirty {
		return
	}
	d.dirty = false

	live := func(b gpu.Buffer, gen uint64) bool {
		info, ok := d.buffers[b]
		return ok && info.gen == gen
	}
	for key, vao := range d.vaos {
		if live(key.vertices, key.gens[0]) && live(key.indices, key.gens[1]) && live(key.instances, key.gens[2]) {
			continue
		}
		gl.DeleteVertexArrays(1, &vao)
		delete(d.vaos, key)
	}
}

// Close deletes the program and every vertex array, then rejects further
// resource creation. Buffers and textures are released by their owners.
// Render thread only.
func (d *Device) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	for key, vao := range d.vaos {
		gl.DeleteVertexArrays(1, &vao)
		delete(d.vaos, key)
	}
	if d.program != 0 {
		gl.DeleteProgram(d.program)
		d.program = 0
	}
	d.log.Info("device closed")
}

func glError(op string) error {
	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("%s: GL error 0x%x", op, code)
	}
	return nil
}

var _ gpu.Device = (*Device)(nil)
