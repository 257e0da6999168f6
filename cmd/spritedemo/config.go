package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/tanema/gween/ease"
	"gopkg.in/yaml.v3"
)

// Config is the demo configuration, read from a YAML file.
type Config struct {
	Width      uint32 `yaml:"width"`
	Height     uint32 `yaml:"height"`
	Frames     int    `yaml:"frames"`
	Sprites    int    `yaml:"sprites"`
	MaxSprites int    `yaml:"max_sprites"`

	ContentDir string `yaml:"content_dir"`
	Texture    string `yaml:"texture"`
	Output     string `yaml:"output"`

	// Backend is "vulkan" or "noop".
	Backend string `yaml:"backend"`

	// Projection is "ortho" or "perspective".
	Projection string     `yaml:"projection"`
	FOV        float32    `yaml:"fov"`
	ClearColor [4]float32 `yaml:"clear_color"`

	Rotate       bool `yaml:"rotate"`
	SPIRV        bool `yaml:"spirv"`
	LinearFilter bool `yaml:"linear_filter"`

	LogLevel string `yaml:"log_level"`

	Pan PanConfig `yaml:"pan"`
}

// PanConfig describes a camera pan played over the run.
type PanConfig struct {
	X       float32 `yaml:"x"`
	Y       float32 `yaml:"y"`
	Seconds float32 `yaml:"seconds"`
	Ease    string  `yaml:"ease"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Width:      800,
		Height:     600,
		Frames:     60,
		Sprites:    200,
		MaxSprites: 1024,
		ContentDir: "Content",
		Texture:    "checker.png",
		Output:     "spritedemo.png",
		Backend:    "vulkan",
		Projection: "ortho",
		FOV:        90,
		ClearColor: [4]float32{0.1, 0.1, 0.15, 1},
		LogLevel:   "info",
		Pan:        PanConfig{X: 120, Y: 60, Seconds: 1, Ease: "in-out-quad"},
	}
}

// LoadConfig reads path over the defaults. An empty path returns the
// defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case c.Width == 0 || c.Height == 0:
		return errors.New("config: width and height must be positive")
	case c.Frames <= 0:
		return errors.New("config: frames must be positive")
	case c.Sprites < 0 || c.MaxSprites <= 0:
		return errors.New("config: sprites must be >= 0 and max_sprites > 0")
	case c.Backend != "vulkan" && c.Backend != "noop":
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	case c.Projection != "ortho" && c.Projection != "perspective":
		return fmt.Errorf("config: unknown projection %q", c.Projection)
	case c.Projection == "perspective" && (c.FOV <= 0 || c.FOV >= 180):
		return fmt.Errorf("config: fov %v must be between 0 and 180 degrees", c.FOV)
	}
	if _, err := c.Pan.EaseFunc(); err != nil {
		return err
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

var easings = map[string]ease.TweenFunc{
	"":             ease.Linear,
	"linear":       ease.Linear,
	"in-quad":      ease.InQuad,
	"out-quad":     ease.OutQuad,
	"in-out-quad":  ease.InOutQuad,
	"out-cubic":    ease.OutCubic,
	"in-out-cubic": ease.InOutCubic,
	"in-out-sine":  ease.InOutSine,
	"out-bounce":   ease.OutBounce,
}

// EaseFunc returns the easing function named by Ease.
func (p PanConfig) EaseFunc() (ease.TweenFunc, error) {
	fn, ok := easings[strings.ToLower(p.Ease)]
	if !ok {
		return nil, fmt.Errorf("config: unknown ease %q", p.Ease)
	}
	return fn, nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("config: %w", err)
	}
	return l, nil
}
