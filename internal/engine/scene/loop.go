package scene

import (
	"context"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/umapview/internal/engine/gpu"
)

// Host drives a render loop. Frame runs before each rendered frame and
// returns false to stop the loop; Present runs after it.
type Host interface {
	Frame(dt time.Duration) bool
	Present()
}

// Run renders frames on the calling goroutine until ctx is cancelled, Close
// is called or the host asks to stop. The caller must own the device's
// context. A nil host renders headless, at most Config.MaxFPS times a
// second.
func (r *Renderer) Run(ctx context.Context, host Host) error {
	done, err := r.acquireLoop()
	if err != nil {
		return err
	}
	r.loop(ctx, host, done)
	return nil
}

// Start runs the loop on a new goroutine locked to its OS thread.
func (r *Renderer) Start(ctx context.Context, host Host) error {
	done, err := r.acquireLoop()
	if err != nil {
		return err
	}
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		r.loop(ctx, host, done)
	}()
	return nil
}

// Close stops the loop, waits for it and releases every GPU resource the
// renderer owns. It is safe to call more than once.
func (r *Renderer) Close() {
	r.loopMu.Lock()
	if r.closed {
		r.loopMu.Unlock()
		return
	}
	r.closed = true
	close(r.stop)
	done := r.loopDone
	r.loopMu.Unlock()

	if done != nil {
		<-done
	}

	r.Clear()
	r.dev.ReleaseBuffer(r.cameraBuf)
	r.dev.ReleaseBuffer(r.masksBuf)
	r.log.Info("renderer closed")
}

func (r *Renderer) acquireLoop() (chan struct{}, error) {
	r.loopMu.Lock()
	defer r.loopMu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	if r.loopDone != nil {
		return nil, ErrRunning
	}
	r.loopDone = make(chan struct{})
	return r.loopDone, nil
}

func (r *Renderer) loop(ctx context.Context, host Host, done chan struct{}) {
	defer func() {
		r.loopMu.Lock()
		r.loopDone = nil
		r.loopMu.Unlock()
		close(done)
	}()

	var tick <-chan time.Time
	if host == nil && r.cfg.MaxFPS > 0 {
		ticker := time.NewTicker(time.Second / time.Duration(r.cfg.MaxFPS))
		defer ticker.Stop()
		tick = ticker.C
	}

	r.log.Info("render loop started", zap.Bool("headless", host == nil), zap.Int("max_fps", r.cfg.MaxFPS))
	defer func() {
		r.log.Info("render loop stopped", zap.Uint64("frames", r.Stats().Frame))
	}()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stop:
			return
		default:
		}

		now := time.Now()
		dt := now.Sub(last)
		last = now

		if host != nil && !host.Frame(dt) {
			return
		}

		r.RenderFrame()

		if host != nil {
			host.Present()
			continue
		}
		if tick != nil {
			select {
			case <-tick:
			case <-ctx.Done():
				return
			case <-r.stop:
				return
			}
		}
	}
}

// Device returns the device the renderer draws through.
func (r *Renderer) Device() gpu.Device {
	return r.dev
}
