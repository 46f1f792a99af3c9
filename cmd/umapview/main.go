// Package main is the entry point for the umapview scene viewer.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/umapview/internal/assets"
	"github.com/Faultbox/umapview/internal/config"
	"github.com/Faultbox/umapview/internal/engine/cache"
	"github.com/Faultbox/umapview/internal/engine/camera"
	"github.com/Faultbox/umapview/internal/engine/gpu/opengl"
	"github.com/Faultbox/umapview/internal/engine/input"
	"github.com/Faultbox/umapview/internal/engine/material"
	"github.com/Faultbox/umapview/internal/engine/scene"
	"github.com/Faultbox/umapview/internal/engine/window"
	"github.com/Faultbox/umapview/internal/logger"
)

var (
	flagPreview     = flag.String("preview", "", "Show only the named mesh, untransformed")
	flagWriteConfig = flag.Bool("write-config", false, "Write the effective config to the user config directory and exit")
)

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if *flagWriteConfig {
		if err := cfg.Save(); err != nil {
			fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(config.DefaultPath())
		return
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== umapview ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	if err := run(cfg); err != nil {
		logger.Error("viewer error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}

	logger.Info("viewer closed normally")
}

func run(cfg *config.Config) error {
	win, err := window.New(window.Config(cfg.Window))
	if err != nil {
		return err
	}
	defer win.Close()

	width, height := win.GetSize()
	dev, err := opengl.New(opengl.Config{Width: width, Height: height, ClearColor: cfg.Render.ClearColor})
	if err != nil {
		return err
	}
	defer dev.Close()

	r, err := scene.New(dev, cache.New(), scene.Config{
		MaxFPS:        cfg.Render.MaxFPS,
		StatsInterval: cfg.Render.StatsInterval,
		AutoTexture:   autoTextureRules(cfg.AutoTexture),
	})
	if err != nil {
		return err
	}
	defer r.Close()

	cam := camera.New(camera.Config(cfg.Camera), float32(width)/float32(height))
	h := newHost(win, dev, input.New(), cam, r)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if cfg.Scene.Manifest != "" {
		g.Go(func() error {
			loadManifest(gctx, win, r, h, cfg.Scene.Manifest)
			return nil
		})
	} else {
		logger.Warn("no scene manifest configured, use --scene")
	}

	if cfg.Source != "" {
		g.Go(func() error {
			return config.Watch(gctx, cfg.Source, func(c *config.Config) {
				r.SetAutoTextureRules(autoTextureRules(c.AutoTexture))
				logger.SetLevel(c.Logging.Level)
			})
		})
	}

	// The render loop owns the main thread and its GL context.
	runErr := r.Run(gctx, h)
	cancel()
	if err := g.Wait(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// loadManifest loads the scene on the loader GL context.
func loadManifest(ctx context.Context, win *window.Window, r *scene.Renderer, h *host, path string) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	log := logger.Named("loader")
	if err := win.MakeLoaderCurrent(); err != nil {
		log.Error("no loader context", zap.Error(err))
		return
	}
	defer win.ReleaseLoader()

	sc, err := assets.LoadManifest(path)
	if err != nil {
		log.Error("failed to load scene manifest", zap.String("path", path), zap.Error(err))
		return
	}
	defer sc.Close()

	if sc.Camera != nil {
		h.place(*sc.Camera)
	}

	if *flagPreview != "" {
		mesh := sc.Mesh(*flagPreview)
		if mesh == nil {
			log.Error("preview mesh not in scene", zap.String("mesh", *flagPreview))
			return
		}
		if err := r.LoadPreview(mesh); err != nil {
			log.Error("failed to load preview", zap.Error(err))
		}
		return
	}

	if _, err := r.LoadScene(ctx, sc); err != nil {
		log.Info("scene load interrupted", zap.Error(err))
	}
}

func autoTextureRules(rules []config.AutoTextureRule) []material.AutoTextureRule {
	out := make([]material.AutoTextureRule, len(rules))
	for i, rule := range rules {
		out[i] = material.AutoTextureRule(rule)
	}
	return out
}
