package main

import (
	"fmt"
	"time"

	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/umapview/internal/assets"
	"github.com/Faultbox/umapview/internal/engine/camera"
	"github.com/Faultbox/umapview/internal/engine/debug"
	"github.com/Faultbox/umapview/internal/engine/gpu/opengl"
	"github.com/Faultbox/umapview/internal/engine/input"
	"github.com/Faultbox/umapview/internal/engine/picking"
	"github.com/Faultbox/umapview/internal/engine/scene"
	"github.com/Faultbox/umapview/internal/engine/window"
	"github.com/Faultbox/umapview/internal/logger"
)

// host drives the render loop from SDL input on the main thread.
type host struct {
	win    *window.Window
	dev    *opengl.Device
	input  *input.Input
	camera *camera.FlyCamera
	r      *scene.Renderer

	// starts carries the manifest's camera pose from the loader.
	starts chan assets.CameraStart

	screenshots *debug.ScreenshotCapture
	capture     bool

	frames    int
	titleTime time.Time
	log       *zap.Logger
}

func newHost(win *window.Window, dev *opengl.Device, in *input.Input, cam *camera.FlyCamera, r *scene.Renderer) *host {
	return &host{
		win:         win,
		dev:         dev,
		input:       in,
		camera:      cam,
		r:           r,
		starts:      make(chan assets.CameraStart, 1),
		screenshots: debug.NewScreenshotCapture("screenshots", "umapview"),
		titleTime:   time.Now(),
		log:         logger.Named("host"),
	}
}

// place hands a camera pose to the render thread. Later poses replace
// unconsumed ones.
func (h *host) place(start assets.CameraStart) {
	select {
	case <-h.starts:
	default:
	}
	h.starts <- start
}

func (h *host) Frame(dt time.Duration) bool {
	if h.input.Update() {
		return false
	}

	for _, event := range h.input.Events() {
		switch event.Type {
		case input.EventWindowResize:
			width, height := h.win.GetSize()
			h.dev.Resize(width, height)
			h.camera.Resize(width, height)
		case input.EventKeyDown:
			switch event.Key {
			case sdl.SCANCODE_ESCAPE:
				return false
			case sdl.SCANCODE_F12:
				h.capture = true
			}
		case input.EventMouseDown:
			switch event.Button {
			case sdl.BUTTON_RIGHT:
				h.win.SetRelativeMouse(true)
			case sdl.BUTTON_LEFT:
				h.pick(event.MouseX, event.MouseY)
			}
		case input.EventMouseUp:
			if event.Button == sdl.BUTTON_RIGHT {
				h.win.SetRelativeMouse(false)
			}
		}
	}

	select {
	case start := <-h.starts:
		h.camera.Place(start)
	default:
	}

	h.camera.Update(dt, h.input.FlyControls())
	h.r.UpdateCamera(h.camera.Uniform())
	return true
}

// pick logs the instance under a window point.
func (h *host) pick(x, y int) {
	width, height := h.win.GetPointSize()
	ndcX, ndcY := picking.ScreenToNDC(float32(x), float32(y), width, height)
	hit, ok := h.r.Pick(picking.FromCamera(h.camera, ndcX, ndcY))
	if !ok {
		h.log.Info("nothing picked")
		return
	}
	h.log.Info("picked",
		zap.String("mesh", hit.Mesh),
		zap.Int("instance", hit.Instance),
		zap.Float32("distance", hit.Distance))
}

func (h *host) Present() {
	if h.capture {
		h.capture = false
		pixels, width, height := h.dev.ReadPixels()
		if name, err := h.screenshots.CaptureFromPixels(pixels, width, height); err != nil {
			h.log.Warn("screenshot failed", zap.Error(err))
		} else {
			h.log.Info("screenshot saved", zap.String("file", name))
		}
	}
	h.win.SwapBuffers()

	// FPS counter in the title bar
	h.frames++
	if elapsed := time.Since(h.titleTime); elapsed >= time.Second {
		s := h.r.Stats()
		h.win.SetTitle(fmt.Sprintf("umapview - %.0f fps - %d/%d instances - %d draws",
			float64(h.frames)/elapsed.Seconds(), s.Visible, s.Instances, s.DrawCalls))
		h.frames = 0
		h.titleTime = time.Now()
	}
}
