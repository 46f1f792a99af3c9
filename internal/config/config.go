// Package config handles viewer configuration loading and management.
package config

// Config holds all viewer settings.
type Config struct {
	Window      WindowConfig      `yaml:"window"`
	Camera      CameraConfig      `yaml:"camera"`
	Render      RenderConfig      `yaml:"render"`
	Scene       SceneConfig       `yaml:"scene"`
	AutoTexture []AutoTextureRule `yaml:"auto_texture"`
	Logging     LoggingConfig     `yaml:"logging"`

	// Source is the file the config was read from, empty for pure defaults.
	Source string `yaml:"-"`
}

// WindowConfig holds display settings.
type WindowConfig struct {
	Title      string `yaml:"title"`
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Fullscreen bool   `yaml:"fullscreen"`
	VSync      bool   `yaml:"vsync"`
}

// CameraConfig holds the fly camera settings. FOV is in degrees.
type CameraConfig struct {
	FOV        float32 `yaml:"fov"`
	Near       float32 `yaml:"near"`
	Far        float32 `yaml:"far"`
	FlySpeed   float32 `yaml:"fly_speed"`
	BoostSpeed float32 `yaml:"boost_speed"`
	MouseSpeed float32 `yaml:"mouse_speed"`
}

// RenderConfig holds frame loop settings.
type RenderConfig struct {
	MaxFPS        int        `yaml:"max_fps"` // 0 = unlimited (vsync paced)
	ClearColor    [4]float32 `yaml:"clear_color"`
	StatsInterval int        `yaml:"stats_interval"` // frames between stats log lines, 0 = off
}

// SceneConfig points at the scene manifest to load on start.
type SceneConfig struct {
	Manifest string `yaml:"manifest"`
}

// AutoTextureRule maps a material slot to a texture parameter name pattern.
// Name and Blacklist are case-insensitive regular expressions; R/G/B/A select
// which channels of the matched texture the shader reads.
type AutoTextureRule struct {
	Slot      string `yaml:"slot"`
	Name      string `yaml:"name"`
	Blacklist string `yaml:"blacklist"`
	R         bool   `yaml:"r"`
	G         bool   `yaml:"g"`
	B         bool   `yaml:"b"`
	A         bool   `yaml:"a"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Title:  "umapview",
			Width:  1280,
			Height: 720,
			VSync:  true,
		},
		Camera: CameraConfig{
			FOV:        90,
			Near:       10,
			Far:        100000,
			FlySpeed:   700,
			BoostSpeed: 3000,
			MouseSpeed: 1,
		},
		Render: RenderConfig{
			MaxFPS:        0,
			ClearColor:    [4]float32{0.1, 0.1, 0.12, 1},
			StatsInterval: 600,
		},
		AutoTexture: DefaultAutoTexture(),
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultAutoTexture returns the built-in rule set, one rule per slot.
func DefaultAutoTexture() []AutoTextureRule {
	return []AutoTextureRule{
		{Slot: "Color", Name: "diffuse|albedo|base_?color|^color", Blacklist: "detail|mask|tint", R: true, G: true, B: true},
		{Slot: "Metallic", Name: "metal", R: true},
		{Slot: "Specular", Name: "spec", Blacklist: "color", R: true},
		{Slot: "Roughness", Name: "rough", R: true},
		{Slot: "AO", Name: "^ao|ambient_?occlusion", R: true},
		{Slot: "Normal", Name: "normal", Blacklist: "detail", R: true, G: true, B: true},
		{Slot: "Alpha", Name: "opacity|alpha", R: true},
		{Slot: "Emissive", Name: "emissive|emission|glow", R: true, G: true, B: true},
	}
}
