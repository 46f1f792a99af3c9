package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Window.Width != 1280 {
		t.Errorf("expected width 1280, got %d", cfg.Window.Width)
	}
	if cfg.Window.Height != 720 {
		t.Errorf("expected height 720, got %d", cfg.Window.Height)
	}
	if cfg.Window.Fullscreen {
		t.Error("expected fullscreen to be false by default")
	}
	if !cfg.Window.VSync {
		t.Error("expected vsync to be true by default")
	}

	if cfg.Camera.FOV != 90 || cfg.Camera.Near != 10 || cfg.Camera.Far != 100000 {
		t.Errorf("unexpected camera defaults: %+v", cfg.Camera)
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "" {
		t.Errorf("expected empty log file, got %s", cfg.Logging.LogFile)
	}
	if cfg.Source != "" {
		t.Errorf("expected empty source for defaults, got %s", cfg.Source)
	}
}

func TestDefaultAutoTextureOnePerSlot(t *testing.T) {
	seen := map[string]bool{}
	for _, r := range DefaultAutoTexture() {
		if seen[r.Slot] {
			t.Errorf("slot %s configured twice", r.Slot)
		}
		seen[r.Slot] = true
		if r.Name == "" {
			t.Errorf("slot %s has an empty name pattern", r.Slot)
		}
	}
	if len(seen) != 8 {
		t.Errorf("expected 8 slots, got %d", len(seen))
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "umapview.yaml")

	yamlContent := `
window:
  width: 1920
  height: 1080
  fullscreen: true
  vsync: false

camera:
  fov: 70
  far: 50000

render:
  max_fps: 144

scene:
  manifest: "maps/town.yaml"

auto_texture:
  - slot: Color
    name: "_D$"
    blacklist: "decal"
    r: true
    g: true
    b: true

logging:
  level: "debug"
  log_file: "viewer.log"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Window.Width != 1920 || cfg.Window.Height != 1080 {
		t.Errorf("expected 1920x1080, got %dx%d", cfg.Window.Width, cfg.Window.Height)
	}
	if !cfg.Window.Fullscreen {
		t.Error("expected fullscreen to be true")
	}
	if cfg.Window.VSync {
		t.Error("expected vsync to be false")
	}
	if cfg.Camera.FOV != 70 || cfg.Camera.Far != 50000 {
		t.Errorf("camera overrides not applied: %+v", cfg.Camera)
	}
	// Unset keys keep their defaults
	if cfg.Camera.Near != 10 {
		t.Errorf("expected default near 10, got %f", cfg.Camera.Near)
	}
	if cfg.Render.MaxFPS != 144 {
		t.Errorf("expected max fps 144, got %d", cfg.Render.MaxFPS)
	}
	if cfg.Scene.Manifest != "maps/town.yaml" {
		t.Errorf("expected manifest maps/town.yaml, got %s", cfg.Scene.Manifest)
	}

	if len(cfg.AutoTexture) != 1 {
		t.Fatalf("expected file rules to replace defaults, got %d rules", len(cfg.AutoTexture))
	}
	want := AutoTextureRule{Slot: "Color", Name: "_D$", Blacklist: "decal", R: true, G: true, B: true}
	if cfg.AutoTexture[0] != want {
		t.Errorf("rule: got %+v, want %+v", cfg.AutoTexture[0], want)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "viewer.log" {
		t.Errorf("expected log file 'viewer.log', got %s", cfg.Logging.LogFile)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "invalid.yaml")

	invalidYAML := `
window:
  width: not a number
  invalid syntax here
`
	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	if err := loadFromFile(Default(), configPath); err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if err := loadFromFile(Default(), "/nonexistent/path/umapview.yaml"); err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()
	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	tmpDir := t.TempDir()
	os.Chdir(tmpDir)
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	if path := findConfigFile(); path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	if err := os.WriteFile(filepath.Join(tmpDir, fileName), []byte("window:\n  width: 800\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	if path := findConfigFile(); path == "" {
		t.Error("expected to find umapview.yaml in current directory")
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*testing.T, *Config)
		teardown func()
	}{
		{
			name:  "debug flag",
			setup: func() { *flagDebug = true },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
				if cfg.Render.StatsInterval != 60 {
					t.Errorf("expected stats every 60 frames, got %d", cfg.Render.StatsInterval)
				}
			},
			teardown: func() { *flagDebug = false },
		},
		{
			name:  "scene flag",
			setup: func() { *flagScene = "demo.yaml" },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Scene.Manifest != "demo.yaml" {
					t.Errorf("expected manifest demo.yaml, got %s", cfg.Scene.Manifest)
				}
			},
			teardown: func() { *flagScene = "" },
		},
		{
			name:  "fullscreen flag",
			setup: func() { *flagFullscreen = true },
			verify: func(t *testing.T, cfg *Config) {
				if !cfg.Window.Fullscreen {
					t.Error("expected fullscreen to be true with fullscreen flag")
				}
			},
			teardown: func() { *flagFullscreen = false },
		},
		{
			name: "width and height flags",
			setup: func() {
				*flagWidth = 2560
				*flagHeight = 1440
			},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Window.Width != 2560 || cfg.Window.Height != 1440 {
					t.Errorf("expected 2560x1440, got %dx%d", cfg.Window.Width, cfg.Window.Height)
				}
			},
			teardown: func() {
				*flagWidth = 0
				*flagHeight = 0
			},
		},
		{
			name:  "max fps zero means unlimited",
			setup: func() { *flagMaxFPS = 0 },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Render.MaxFPS != 0 {
					t.Errorf("expected max fps 0, got %d", cfg.Render.MaxFPS)
				}
			},
			teardown: func() { *flagMaxFPS = -1 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer tt.teardown()

			cfg := Default()
			applyFlags(cfg)
			tt.verify(t, cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "umapview.yaml")

	yamlContent := `
window:
  width: 1600
  height: 900
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	*flagConfig = configPath
	*flagWidth = 1920
	defer func() {
		*flagConfig = ""
		*flagWidth = 0
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Width from flag, height from file
	if cfg.Window.Width != 1920 {
		t.Errorf("expected width 1920 from flag, got %d", cfg.Window.Width)
	}
	if cfg.Window.Height != 900 {
		t.Errorf("expected height 900 from file, got %d", cfg.Window.Height)
	}
	if cfg.Source != configPath {
		t.Errorf("expected source %s, got %s", configPath, cfg.Source)
	}
}

func TestSaveToRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "umapview.yaml")

	cfg := Default()
	cfg.Scene.Manifest = "saved.yaml"
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	loaded, err := Reload(path)
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if loaded.Scene.Manifest != "saved.yaml" {
		t.Errorf("expected manifest saved.yaml, got %s", loaded.Scene.Manifest)
	}
	if len(loaded.AutoTexture) != len(cfg.AutoTexture) {
		t.Errorf("expected %d rules, got %d", len(cfg.AutoTexture), len(loaded.AutoTexture))
	}
}

func TestWatchReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "umapview.yaml")
	if err := os.WriteFile(path, []byte("scene:\n  manifest: a.yaml\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(c *Config) { changes <- c })
	}()

	// Give the watcher time to register before writing
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("scene:\n  manifest: b.yaml\n"), 0644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	select {
	case c := <-changes:
		if c.Scene.Manifest != "b.yaml" {
			t.Errorf("expected reloaded manifest b.yaml, got %s", c.Scene.Manifest)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Watch returned %v", err)
	}
}

func TestSaveToReplacesExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "umapview.yaml")
	if err := os.WriteFile(path, []byte("scene:\n  manifest: old.yaml\n"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg := Default()
	cfg.Scene.Manifest = "new.yaml"
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the config file, got %d entries", len(entries))
	}
	loaded, err := Reload(path)
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if loaded.Scene.Manifest != "new.yaml" {
		t.Errorf("expected manifest new.yaml, got %s", loaded.Scene.Manifest)
	}
}
