// Package main runs a scene through the renderer without a window and
// reports how much of it survives frustum culling along a camera sweep.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/chewxy/math32"
	"go.uber.org/zap"

	"github.com/Faultbox/umapview/internal/assets"
	"github.com/Faultbox/umapview/internal/config"
	"github.com/Faultbox/umapview/internal/engine/cache"
	"github.com/Faultbox/umapview/internal/engine/camera"
	"github.com/Faultbox/umapview/internal/engine/gpu/gputest"
	"github.com/Faultbox/umapview/internal/engine/material"
	"github.com/Faultbox/umapview/internal/engine/scene"
	"github.com/Faultbox/umapview/internal/logger"
)

var (
	flagSteps   = flag.Int("steps", 36, "Camera positions in one full turn")
	flagAspect  = flag.Float64("aspect", 16.0/9, "Viewport aspect ratio")
	flagVerbose = flag.Bool("v", false, "Print one row per camera position")
)

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if cfg.Scene.Manifest == "" {
		fmt.Fprintln(os.Stderr, "Usage: umapbench --scene <manifest.yaml> [--steps N] [-v]")
		os.Exit(2)
	}

	if err := run(os.Stdout, cfg); err != nil {
		logger.Error("benchmark failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

type sample struct {
	step      int
	yaw       float32
	visible   int
	instances int
	draws     int
	elapsed   time.Duration
}

func run(out io.Writer, cfg *config.Config) error {
	sc, err := assets.LoadManifest(cfg.Scene.Manifest)
	if err != nil {
		return err
	}
	defer sc.Close()

	rules := make([]material.AutoTextureRule, len(cfg.AutoTexture))
	for i, rule := range cfg.AutoTexture {
		rules[i] = material.AutoTextureRule(rule)
	}

	dev := gputest.New()
	c := cache.New()
	r, err := scene.New(dev, c, scene.Config{AutoTexture: rules})
	if err != nil {
		return err
	}
	defer r.Close()

	res, err := r.LoadScene(context.Background(), sc)
	if err != nil {
		return err
	}

	cam := camera.New(camera.Config(cfg.Camera), float32(*flagAspect))
	if sc.Camera != nil {
		cam.Place(*sc.Camera)
	}
	samples := sweep(r, cam, max(*flagSteps, 1))

	return report(out, sc, res, samples, c.Stats())
}

// sweep turns the camera in place one full circle, rendering a frame at
// every step.
func sweep(r *scene.Renderer, cam *camera.FlyCamera, steps int) []sample {
	start := cam.Yaw
	samples := make([]sample, steps)
	for i := range samples {
		cam.Yaw = start + float32(i)*2*math32.Pi/float32(steps)
		r.UpdateCamera(cam.Uniform())

		t := time.Now()
		r.RenderFrame()
		elapsed := time.Since(t)

		s := r.Stats()
		samples[i] = sample{
			step:      i,
			yaw:       cam.Yaw * 180 / math32.Pi,
			visible:   s.Visible,
			instances: s.Instances,
			draws:     s.DrawCalls,
			elapsed:   elapsed,
		}
	}
	return samples
}

func report(out io.Writer, sc *assets.Scene, res scene.LoadResult, samples []sample, cs cache.Stats) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "scene\t%s\n", sc.Name)
	fmt.Fprintf(w, "entities\t%d loaded, %d failed\n", res.Loaded, res.Failed)
	fmt.Fprintf(w, "instances\t%d\n", res.Instances)
	fmt.Fprintf(w, "load time\t%v\n", res.Elapsed.Round(time.Microsecond))
	fmt.Fprintf(w, "cache\t%d meshes, %d materials, %d textures (%d hits, %d misses)\n",
		cs.Entries[cache.KindMesh], cs.Entries[cache.KindMaterial], cs.Entries[cache.KindTexture], cs.Hits, cs.Misses)
	fmt.Fprintln(w)

	if *flagVerbose {
		fmt.Fprintln(w, "step\tyaw\tvisible\tdraws\tframe")
		for _, s := range samples {
			fmt.Fprintf(w, "%d\t%.1f\t%d/%d\t%d\t%v\n", s.step, s.yaw, s.visible, s.instances, s.draws, s.elapsed)
		}
		fmt.Fprintln(w)
	}

	minVis, maxVis, sumVis := samples[0].visible, samples[0].visible, 0
	var total time.Duration
	for _, s := range samples {
		minVis = min(minVis, s.visible)
		maxVis = max(maxVis, s.visible)
		sumVis += s.visible
		total += s.elapsed
	}
	n := len(samples)
	fmt.Fprintf(w, "visible\tmin %d, avg %.1f, max %d of %d\n", minVis, float64(sumVis)/float64(n), maxVis, samples[0].instances)
	if samples[0].instances > 0 {
		fmt.Fprintf(w, "culled\t%.1f%% on average\n", 100-100*float64(sumVis)/float64(n*samples[0].instances))
	}
	fmt.Fprintf(w, "frame\tavg %v over %d frames\n", (total / time.Duration(n)).Round(time.Microsecond), n)

	return w.Flush()
}
