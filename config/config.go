// Package config loads the host configuration from TOML
package config

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/lixenwraith/starbright/pacer"
)

// FileName is the default config file name inside the config directory
const FileName = "starbright.toml"

var ErrInvalidConfig = errors.New("invalid config")

// Config is the full host configuration
type Config struct {
	Pacer   PacerConfig   `toml:"pacer"`
	Display DisplayConfig `toml:"display"`
	Audio   AudioConfig   `toml:"audio"`
	Render  RenderConfig  `toml:"render"`
	Log     LogConfig     `toml:"log"`
}

// PacerConfig sets the simulation rate and the catch-up clamp
type PacerConfig struct {
	StepHz   float64 `toml:"step_hz"`
	MaxSteps int     `toml:"max_steps"`
}

// DisplayConfig sets the display link refresh rate
type DisplayConfig struct {
	RefreshHz float64 `toml:"refresh_hz"`
}

// AudioConfig controls the sound manager
type AudioConfig struct {
	Enabled    bool    `toml:"enabled"`
	SampleRate int     `toml:"sample_rate"`
	MaxStreams int     `toml:"max_streams"`
	Volume     float64 `toml:"volume"`
}

// RenderConfig tunes the starfield
type RenderConfig struct {
	Stars       int     `toml:"stars"`
	Speed       float64 `toml:"speed"`
	Seed        int64   `toml:"seed"`
	ShowOverlay bool    `toml:"show_overlay"`
}

// LogConfig selects the log file and level
type LogConfig struct {
	File  string `toml:"file"`
	Level string `toml:"level"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Pacer: PacerConfig{
			StepHz:   60,
			MaxSteps: pacer.DefaultMaxSteps,
		},
		Display: DisplayConfig{
			RefreshHz: 60,
		},
		Audio: AudioConfig{
			Enabled:    true,
			SampleRate: 48000,
			MaxStreams: 8,
			Volume:     0.5,
		},
		Render: RenderConfig{
			Stars:       200,
			Speed:       0.35,
			ShowOverlay: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads path over the defaults, keys absent from the file keep their default
func Load(path string) (Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return cfg, fmt.Errorf("%w: unknown key %q in %s", ErrInvalidConfig, undecoded[0].String(), path)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Write stores cfg as TOML at path, creating parent directories
func Write(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// DefaultPath returns $XDG_CONFIG_HOME/starbright/starbright.toml with a ~/.config fallback
func DefaultPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		dir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(dir, "starbright", FileName)
}

// Validate checks ranges
func (c Config) Validate() error {
	if !positive(c.Pacer.StepHz) {
		return fmt.Errorf("%w: pacer.step_hz %v must be positive", ErrInvalidConfig, c.Pacer.StepHz)
	}
	if c.Pacer.MaxSteps < 1 {
		return fmt.Errorf("%w: pacer.max_steps %d must be at least 1", ErrInvalidConfig, c.Pacer.MaxSteps)
	}
	if !positive(c.Display.RefreshHz) {
		return fmt.Errorf("%w: display.refresh_hz %v must be positive", ErrInvalidConfig, c.Display.RefreshHz)
	}
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("%w: audio.sample_rate %d must be positive", ErrInvalidConfig, c.Audio.SampleRate)
	}
	if c.Audio.MaxStreams < 1 {
		return fmt.Errorf("%w: audio.max_streams %d must be at least 1", ErrInvalidConfig, c.Audio.MaxStreams)
	}
	if math.IsNaN(c.Audio.Volume) || c.Audio.Volume < 0 || c.Audio.Volume > 1 {
		return fmt.Errorf("%w: audio.volume %v must be in [0,1]", ErrInvalidConfig, c.Audio.Volume)
	}
	if c.Render.Stars < 1 {
		return fmt.Errorf("%w: render.stars %d must be at least 1", ErrInvalidConfig, c.Render.Stars)
	}
	if !positive(c.Render.Speed) {
		return fmt.Errorf("%w: render.speed %v must be positive", ErrInvalidConfig, c.Render.Speed)
	}
	return nil
}

// PacerConfig converts the rate-based settings to a pacer config
func (c Config) PacerConfig() pacer.Config {
	return pacer.Config{
		Step:     1 / c.Pacer.StepHz,
		MaxSteps: c.Pacer.MaxSteps,
	}
}

func positive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}
