// Package gpu defines the device abstraction the renderer core draws through.
//
// Buffers and textures are plain handles. Resource creation may be called
// from loader goroutines; WriteBuffer, BeginFrame, Draw and EndFrame are only
// called from the render goroutine.
package gpu

import "errors"

// ErrDeviceClosed is returned by creation calls after Close.
var ErrDeviceClosed = errors.New("gpu: device closed")

// Buffer is a device buffer handle. Zero is never a valid buffer.
type Buffer uint32

// Texture is a device texture handle. Zero is never a valid texture.
type Texture uint32

// BufferKind tells the device how a buffer is bound.
type BufferKind int

const (
	BufferVertex BufferKind = iota
	BufferIndex
	BufferInstance
	BufferUniform
)

func (k BufferKind) String() string {
	switch k {
	case BufferVertex:
		return "vertex"
	case BufferIndex:
		return "index"
	case BufferInstance:
		return "instance"
	case BufferUniform:
		return "uniform"
	default:
		return "unknown"
	}
}

// Format is a texel format.
type Format int

const (
	FormatRGBA8 Format = iota
	FormatRGBA8SRGB
)

func (f Format) String() string {
	if f == FormatRGBA8SRGB {
		return "rgba8_srgb"
	}
	return "rgba8"
}

// TextureDesc describes a 2D texture.
type TextureDesc struct {
	Width, Height int
	Format        Format
	MipLevels     int
}

// Pipeline selects the raster state variant.
type Pipeline int

const (
	PipelineRegular  Pipeline = iota // back-face culling
	PipelineTwoSided                 // no face culling
)

// SlotCount is the number of material texture bindings per draw.
const SlotCount = 8

// DrawCall is one instanced indexed draw. Bindings are, in order: the camera
// uniform, the auto-texture mask uniform, then the SlotCount textures.
type DrawCall struct {
	Pipeline  Pipeline
	Camera    Buffer
	Masks     Buffer
	Textures  [SlotCount]Texture
	Vertices  Buffer
	Indices   Buffer
	Instances Buffer

	FirstIndex    uint32
	IndexCount    uint32
	InstanceCount uint32
}

// Device is the subset of a graphics API the renderer needs.
type Device interface {
	// CreateBuffer allocates size bytes and uploads data (which may be
	// shorter than size, or nil).
	CreateBuffer(kind BufferKind, size int, data []byte) (Buffer, error)
	// WriteBuffer overwrites part of a buffer.
	WriteBuffer(b Buffer, offset int, data []byte)
	ReleaseBuffer(b Buffer)

	CreateTexture(desc TextureDesc, pixels []byte) (Texture, error)
	ReleaseTexture(t Texture)

	BeginFrame()
	Draw(call DrawCall)
	EndFrame()
}

// Interleaved vertex layout shared by mesh builders and devices:
// position vec3, color vec4, normal vec3, tangent vec3, uv vec2.
const (
	VertexStride   = 60
	OffsetPosition = 0
	OffsetColor    = 12
	OffsetNormal   = 28
	OffsetTangent  = 40
	OffsetUV       = 52
)

// InstanceStride is the size of one per-instance record: a column-major mat4.
const InstanceStride = 64

// Uniform block sizes (std140).
const (
	CameraUniformSize = 64 + 64 + 16 // projection, view, front
	MasksUniformSize  = SlotCount * 16
)
