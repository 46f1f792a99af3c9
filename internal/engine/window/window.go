// Package window handles the SDL2 window and its OpenGL contexts.
package window

import (
	"fmt"
	"runtime"

	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/umapview/internal/logger"
)

func init() {
	// SDL events and the render context belong to the main thread
	runtime.LockOSThread()
}

// Config holds window configuration.
type Config struct {
	Title      string
	Width      int
	Height     int
	Fullscreen bool
	VSync      bool
}

// Window wraps an SDL2 window with two OpenGL contexts sharing objects: one
// for rendering on the main thread and one for a loader goroutine.
type Window struct {
	config        Config
	sdlWindow     *sdl.Window
	glContext     sdl.GLContext
	loaderContext sdl.GLContext
	log           *zap.Logger
}

// New creates a new window with its OpenGL contexts. The render context is
// current on return.
func New(cfg Config) (*Window, error) {
	w := &Window{
		config: cfg,
		log:    logger.Named("window"),
	}

	w.log.Info("initializing SDL2")
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return nil, fmt.Errorf("SDL_Init failed: %w", err)
	}

	// OpenGL 4.1 Core Profile (max supported on macOS)
	sdl.GLSetAttribute(sdl.GL_CONTEXT_MAJOR_VERSION, 4)
	sdl.GLSetAttribute(sdl.GL_CONTEXT_MINOR_VERSION, 1)
	sdl.GLSetAttribute(sdl.GL_CONTEXT_PROFILE_MASK, sdl.GL_CONTEXT_PROFILE_CORE)
	sdl.GLSetAttribute(sdl.GL_DOUBLEBUFFER, 1)
	sdl.GLSetAttribute(sdl.GL_DEPTH_SIZE, 24)
	sdl.GLSetAttribute(sdl.GL_FRAMEBUFFER_SRGB_CAPABLE, 1)

	flags := uint32(sdl.WINDOW_OPENGL | sdl.WINDOW_RESIZABLE)
	if cfg.Fullscreen {
		flags |= sdl.WINDOW_FULLSCREEN
	}

	var err error
	w.sdlWindow, err = sdl.CreateWindow(
		cfg.Title,
		sdl.WINDOWPOS_CENTERED,
		sdl.WINDOWPOS_CENTERED,
		int32(cfg.Width),
		int32(cfg.Height),
		flags,
	)
	if err != nil {
		sdl.Quit()
		return nil, fmt.Errorf("SDL_CreateWindow failed: %w", err)
	}

	w.glContext, err = w.sdlWindow.GLCreateContext()
	if err != nil {
		w.Close()
		return nil, fmt.Errorf("SDL_GL_CreateContext failed: %w", err)
	}

	// The loader context shares buffers and textures with the render
	// context. Creating it makes it current, so switch back afterwards.
	sdl.GLSetAttribute(sdl.GL_SHARE_WITH_CURRENT_CONTEXT, 1)
	w.loaderContext, err = w.sdlWindow.GLCreateContext()
	if err != nil {
		w.Close()
		return nil, fmt.Errorf("creating loader context: %w", err)
	}
	if err := w.sdlWindow.GLMakeCurrent(w.glContext); err != nil {
		w.Close()
		return nil, fmt.Errorf("SDL_GL_MakeCurrent failed: %w", err)
	}

	if cfg.VSync {
		if err := sdl.GLSetSwapInterval(1); err != nil {
			w.log.Warn("failed to enable VSync", zap.Error(err))
		}
	} else {
		sdl.GLSetSwapInterval(0)
	}

	w.log.Info("window created",
		zap.String("title", cfg.Title),
		zap.Int("width", cfg.Width),
		zap.Int("height", cfg.Height),
		zap.Bool("fullscreen", cfg.Fullscreen),
		zap.Bool("vsync", cfg.VSync),
	)

	return w, nil
}

// MakeLoaderCurrent binds the loader context to the calling thread. The
// caller must hold its goroutine on that thread with runtime.LockOSThread.
func (w *Window) MakeLoaderCurrent() error {
	if err := w.sdlWindow.GLMakeCurrent(w.loaderContext); err != nil {
		return fmt.Errorf("binding loader context: %w", err)
	}
	return nil
}

// ReleaseLoader unbinds the loader context from the calling thread.
func (w *Window) ReleaseLoader() {
	if err := w.sdlWindow.GLMakeCurrent(nil); err != nil {
		w.log.Warn("failed to release loader context", zap.Error(err))
	}
}

// Close destroys the contexts and the window and shuts SDL2 down.
func (w *Window) Close() {
	w.log.Info("closing window")

	if w.loaderContext != nil {
		sdl.GLDeleteContext(w.loaderContext)
	}
	if w.glContext != nil {
		sdl.GLDeleteContext(w.glContext)
	}
	if w.sdlWindow != nil {
		w.sdlWindow.Destroy()
	}

	sdl.Quit()
}

// SwapBuffers swaps the OpenGL buffers.
func (w *Window) SwapBuffers() {
	w.sdlWindow.GLSwap()
}

// GetSize returns the current drawable size in pixels.
func (w *Window) GetSize() (int, int) {
	width, height := w.sdlWindow.GLGetDrawableSize()
	return int(width), int(height)
}

// GetPointSize returns the window size in screen points, the unit of mouse
// coordinates.
func (w *Window) GetPointSize() (int, int) {
	width, height := w.sdlWindow.GetSize()
	return int(width), int(height)
}

// SetTitle sets the window title.
func (w *Window) SetTitle(title string) {
	w.sdlWindow.SetTitle(title)
}

// SetRelativeMouse hides the cursor and reports only relative motion while
// enabled.
func (w *Window) SetRelativeMouse(enabled bool) {
	sdl.SetRelativeMouseMode(enabled)
}
