// Package gputest provides an in-memory gpu.Device for tests.
package gputest

import (
	"fmt"
	"sync"

	"github.com/Faultbox/umapview/internal/engine/gpu"
)

// TextureRecord is the state of a texture created on a Recorder.
type TextureRecord struct {
	Desc   gpu.TextureDesc
	Pixels []byte
}

// Recorder is a gpu.Device that keeps every resource in memory and records
// draw calls. It is safe for concurrent use.
type Recorder struct {
	mu sync.Mutex

	next     uint32
	buffers  map[gpu.Buffer][]byte
	kinds    map[gpu.Buffer]gpu.BufferKind
	textures map[gpu.Texture]TextureRecord

	frames  int
	inFrame bool
	draws   []gpu.DrawCall
	last    []gpu.DrawCall

	bufferCreates  int
	textureCreates int

	// FailCreate, when set, is returned by every creation call.
	FailCreate error
}

// New returns an empty Recorder.
func New() *Recorder {
	return &Recorder{
		buffers:  make(map[gpu.Buffer][]byte),
		kinds:    make(map[gpu.Buffer]gpu.BufferKind),
		textures: make(map[gpu.Texture]TextureRecord),
	}
}

func (r *Recorder) CreateBuffer(kind gpu.BufferKind, size int, data []byte) (gpu.Buffer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailCreate != nil {
		return 0, r.FailCreate
	}
	if len(data) > size {
		return 0, fmt.Errorf("gputest: %d bytes of data for a %d byte buffer", len(data), size)
	}
	r.next++
	b := gpu.Buffer(r.next)
	mem := make([]byte, size)
	copy(mem, data)
	r.buffers[b] = mem
	r.kinds[b] = kind
	r.bufferCreates++
	return b, nil
}

func (r *Recorder) WriteBuffer(b gpu.Buffer, offset int, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	mem, ok := r.buffers[b]
	if !ok {
		panic(fmt.Sprintf("gputest: write to unknown buffer %d", b))
	}
	if offset+len(data) > len(mem) {
		panic(fmt.Sprintf("gputest: write of %d bytes at %d overflows buffer %d (%d bytes)", len(data), offset, b, len(mem)))
	}
	copy(mem[offset:], data)
}

func (r *Recorder) ReleaseBuffer(b gpu.Buffer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.buffers, b)
	delete(r.kinds, b)
}

func (r *Recorder) CreateTexture(desc gpu.TextureDesc, pixels []byte) (gpu.Texture, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailCreate != nil {
		return 0, r.FailCreate
	}
	if want := desc.Width * desc.Height * 4; len(pixels) != want {
		return 0, fmt.Errorf("gputest: %d bytes of pixels for %dx%d", len(pixels), desc.Width, desc.Height)
	}
	r.next++
	t := gpu.Texture(r.next)
	r.textures[t] = TextureRecord{Desc: desc, Pixels: append([]byte(nil), pixels...)}
	r.textureCreates++
	return t, nil
}

func (r *Recorder) ReleaseTexture(t gpu.Texture) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.textures, t)
}

func (r *Recorder) BeginFrame() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inFrame = true
	r.draws = r.draws[:0]
}

func (r *Recorder) Draw(call gpu.DrawCall) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.inFrame {
		panic("gputest: Draw outside BeginFrame/EndFrame")
	}
	r.draws = append(r.draws, call)
}

func (r *Recorder) EndFrame() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inFrame = false
	r.frames++
	r.last = append(r.last[:0], r.draws...)
}

// Frames returns the number of completed frames.
func (r *Recorder) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// LastFrame returns a copy of the draw calls of the last completed frame.
func (r *Recorder) LastFrame() []gpu.DrawCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]gpu.DrawCall(nil), r.last...)
}

// BufferData returns a copy of a live buffer's contents.
func (r *Recorder) BufferData(b gpu.Buffer) ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	mem, ok := r.buffers[b]
	return append([]byte(nil), mem...), ok
}

// BufferKind returns the kind a live buffer was created with.
func (r *Recorder) BufferKind(b gpu.Buffer) (gpu.BufferKind, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.kinds[b]
	return k, ok
}

// Texture returns a live texture's description and pixels.
func (r *Recorder) Texture(t gpu.Texture) (TextureRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.textures[t]
	return rec, ok
}

// Live returns the number of buffers and textures not yet released.
func (r *Recorder) Live() (buffers, textures int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buffers), len(r.textures)
}

// Creates returns how many buffers and textures were ever created.
func (r *Recorder) Creates() (buffers, textures int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bufferCreates, r.textureCreates
}

var _ gpu.Device = (*Recorder)(nil)
