package config

import (
	"bytes"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/vulkanmc/engine/core"
)

type WindowConfig struct {
	Title  string `toml:"title"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
	// Starting position, if the platform honours it.
	X int `toml:"x"`
	Y int `toml:"y"`
}

type RendererConfig struct {
	Validation    bool `toml:"validation"`
	PreferMailbox bool `toml:"prefer_mailbox"`
}

type ShadersConfig struct {
	Dir      string `toml:"dir"`
	Vertex   string `toml:"vertex"`
	Fragment string `toml:"fragment"`
}

type PhysicsConfig struct {
	Gravity               [2]float32 `toml:"gravity"`
	GravitationalConstant float32    `toml:"gravitational_constant"`
	// Added to the squared distance so close bodies don't blow up.
	Softening  float32 `toml:"softening"`
	Substeps   int     `toml:"substeps"`
	Collisions bool    `toml:"collisions"`
}

type SceneConfig struct {
	Seed           uint64  `toml:"seed"`
	Circles        int     `toml:"circles"`
	CircleSegments int     `toml:"circle_segments"`
	CircleRadius   float32 `toml:"circle_radius"`
	Rects          int     `toml:"rects"`
	RectLength     float32 `toml:"rect_length"`
	RectWidth      float32 `toml:"rect_width"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type Config struct {
	Window   WindowConfig   `toml:"window"`
	Renderer RendererConfig `toml:"renderer"`
	Shaders  ShadersConfig  `toml:"shaders"`
	Physics  PhysicsConfig  `toml:"physics"`
	Scene    SceneConfig    `toml:"scene"`
	Log      LogConfig      `toml:"log"`
}

// Default returns the built-in configuration used when no file is present.
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Title:  "VulkanMC",
			Width:  800,
			Height: 800,
			X:      100,
			Y:      100,
		},
		Renderer: RendererConfig{
			Validation:    true,
			PreferMailbox: true,
		},
		Shaders: ShadersConfig{
			Dir:      "shaders",
			Vertex:   "simple.vert.spv",
			Fragment: "simple.frag.spv",
		},
		Physics: PhysicsConfig{
			Gravity:               [2]float32{0, 0},
			GravitationalConstant: 0.81,
			Softening:             1e-4,
			Substeps:              5,
			Collisions:            true,
		},
		Scene: SceneConfig{
			Seed:           1,
			Circles:        12,
			CircleSegments: 64,
			CircleRadius:   0.05,
			Rects:          0,
			RectLength:     0.05,
			RectWidth:      0.05,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load overlays the TOML file at path onto the defaults. A missing file is not
// an error. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			core.LogWarn("config file %s not found, using defaults", path)
			return cfg, nil
		}
		return nil, core.ConfigurationError(err, "failed to read config %s", path)
	}
	if err := decode(data, cfg); err != nil {
		return nil, core.ConfigurationError(err, "failed to parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadPhysics re-reads only the [physics] table of path on top of current.
func LoadPhysics(path string, current PhysicsConfig) (PhysicsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return current, errors.Wrapf(err, "failed to read config %s", path)
	}
	cfg := Default()
	cfg.Physics = current
	if err := decode(data, cfg); err != nil {
		return current, errors.Wrapf(err, "failed to parse config %s", path)
	}
	if err := cfg.Physics.validate(); err != nil {
		return current, err
	}
	return cfg.Physics, nil
}

func decode(data []byte, cfg *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return errors.Newf("%s", strict.String())
		}
		return err
	}
	return nil
}

// Validate reports the first invalid value as a configuration error.
func (c *Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return core.ConfigurationError(nil, "window size must be positive, got %dx%d", c.Window.Width, c.Window.Height)
	}
	if c.Shaders.Vertex == "" || c.Shaders.Fragment == "" {
		return core.ConfigurationError(nil, "vertex and fragment shader names are required")
	}
	if err := c.Physics.validate(); err != nil {
		return err
	}
	s := c.Scene
	if s.Circles < 0 || s.Rects < 0 {
		return core.ConfigurationError(nil, "entity counts must not be negative")
	}
	if s.Circles > 0 && (s.CircleSegments < 3 || s.CircleRadius <= 0) {
		return core.ConfigurationError(nil, "circles need at least 3 segments and a positive radius")
	}
	if s.Rects > 0 && (s.RectLength <= 0 || s.RectWidth <= 0) {
		return core.ConfigurationError(nil, "rect dimensions must be positive")
	}
	return nil
}

func (p PhysicsConfig) validate() error {
	if p.Substeps <= 0 {
		return core.ConfigurationError(nil, "physics substeps must be positive, got %d", p.Substeps)
	}
	if p.Softening < 0 {
		return core.ConfigurationError(nil, "physics softening must not be negative")
	}
	return nil
}
