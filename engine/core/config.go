package core

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"
)

type WindowConfig struct {
	Width     uint32 `toml:"width"`
	Height    uint32 `toml:"height"`
	Title     string `toml:"title"`
	Resizable bool   `toml:"resizable"`
}

type RendererConfig struct {
	FramesInFlight uint32    `toml:"frames_in_flight"`
	ClearColor     []float32 `toml:"clear_color"`
	Validation     bool      `toml:"validation"`
	ShaderDir      string    `toml:"shader_dir"`
	Compiler       string    `toml:"compiler"`
}

type AssetsConfig struct {
	Root  string `toml:"root"`
	Watch bool   `toml:"watch"`
}

type GUIConfig struct {
	// Font is the path of a BMFont descriptor. Empty selects the built-in face.
	Font string `toml:"font"`
}

type LogConfig struct {
	Level LogLevel `toml:"level"`
}

type Config struct {
	Window   WindowConfig   `toml:"window"`
	Renderer RendererConfig `toml:"renderer"`
	Assets   AssetsConfig   `toml:"assets"`
	GUI      GUIConfig      `toml:"gui"`
	Log      LogConfig      `toml:"log"`
}

// MaxFramesInFlight bounds the number of frame slots the renderer accepts.
const MaxFramesInFlight uint32 = 3

func DefaultConfig() *Config {
	return &Config{
		Window: WindowConfig{
			Width:     1280,
			Height:    720,
			Title:     "testbed",
			Resizable: false,
		},
		Renderer: RendererConfig{
			FramesInFlight: 2,
			ClearColor:     []float32{0.05, 0.05, 0.05, 1.0},
			Validation:     true,
			ShaderDir:      "shaders",
			Compiler:       "glslc",
		},
		Assets: AssetsConfig{
			Root:  "res",
			Watch: true,
		},
		Log: LogConfig{
			Level: LogLevelDebug,
		},
	}
}

// LoadConfig decodes the TOML file at path over the defaults. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			LogInfo("config file `%s` not found, using defaults", path)
			return cfg, nil
		}
		return nil, NewEnvironmentError("load config", err)
	}
	if err := ParseConfig(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseConfig decodes data into cfg and validates the result.
func ParseConfig(data []byte, cfg *Config) error {
	if err := toml.Unmarshal(data, cfg); err != nil {
		err = NewEnvironmentError("parse config", err)
		LogError("%s", err)
		return err
	}
	return cfg.Validate()
}

func (c *Config) Validate() error {
	if err := Check(c.Window.Width > 0 && c.Window.Height > 0, "validate config",
		"window size must be non zero, got %dx%d", c.Window.Width, c.Window.Height); err != nil {
		return err
	}
	if err := Check(c.Renderer.FramesInFlight >= 1 && c.Renderer.FramesInFlight <= MaxFramesInFlight, "validate config",
		"frames_in_flight must be in [1, %d], got %d", MaxFramesInFlight, c.Renderer.FramesInFlight); err != nil {
		return err
	}
	if err := Check(len(c.Renderer.ClearColor) == 4, "validate config",
		"clear_color needs 4 components, got %d", len(c.Renderer.ClearColor)); err != nil {
		return err
	}
	return nil
}

// AspectRatio is the window width over its height.
func (c *Config) AspectRatio() float32 {
	return float32(c.Window.Width) / float32(c.Window.Height)
}

func (c *Config) String() string {
	return fmt.Sprintf("%dx%d %q frames=%d validation=%t",
		c.Window.Width, c.Window.Height, c.Window.Title, c.Renderer.FramesInFlight, c.Renderer.Validation)
}
