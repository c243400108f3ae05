package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	ErrCaptureUnavailable = errors.New("audio capture unavailable")
	ErrInvalidConfig      = errors.New("invalid configuration")
)

type AudioConfig struct {
	SampleRate int `yaml:"sample_rate"`
	BufferSize int `yaml:"buffer_size"`
}

type AnalysisConfig struct {
	FFTSize          int     `yaml:"fft_size"`
	Smoothing        float64 `yaml:"smoothing"`
	VoiceThreshold   float64 `yaml:"voice_threshold"`
	UpdateIntervalMs int     `yaml:"update_interval_ms"`
}

type ParticleConfig struct {
	Count           int     `yaml:"count"`
	BaseRadius      float64 `yaml:"base_radius"`
	SizeMin         float64 `yaml:"size_min"`
	SizeMax         float64 `yaml:"size_max"`
	SpeedMultiplier float64 `yaml:"speed_multiplier"`
}

type ModeConfig struct {
	ListeningTimeoutMs int  `yaml:"listening_timeout_ms"`
	ThinkingTimeoutMs  int  `yaml:"thinking_timeout_ms"`
	AutoIdle           bool `yaml:"auto_idle"`
}

type VisualConfig struct {
	FPS        int     `yaml:"fps"`
	TrailDecay float64 `yaml:"trail_decay"`
	ShowStatus bool    `yaml:"show_status"`
	ShowMeter  bool    `yaml:"show_meter"`
}

type Config struct {
	Audio     AudioConfig    `yaml:"audio"`
	Analysis  AnalysisConfig `yaml:"analysis"`
	Particles ParticleConfig `yaml:"particles"`
	Modes     ModeConfig     `yaml:"modes"`
	Visual    VisualConfig   `yaml:"visual"`
	DemoMode  bool           `yaml:"-"`
}

func DefaultConfig() *Config {
	return &Config{
		Audio: AudioConfig{
			SampleRate: 44100,
			BufferSize: 4096,
		},
		Analysis: AnalysisConfig{
			FFTSize:          256,
			Smoothing:        0.8,
			VoiceThreshold:   0.02,
			UpdateIntervalMs: 16,
		},
		Particles: ParticleConfig{
			Count:           1500,
			BaseRadius:      120,
			SizeMin:         1,
			SizeMax:         3,
			SpeedMultiplier: 1.0,
		},
		Modes: ModeConfig{
			ListeningTimeoutMs: 2000,
			ThinkingTimeoutMs:  30000,
			AutoIdle:           true,
		},
		Visual: VisualConfig{
			FPS:        60,
			TrailDecay: 0.8,
			ShowStatus: true,
			ShowMeter:  true,
		},
	}
}

func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) TryLoadDefault() {
	home, err := os.UserHomeDir()
	if err != nil {
		return
	}
	paths := []string{
		filepath.Join(home, ".config", "voxorb", "config.yaml"),
		filepath.Join(home, ".config", "voxorb", "config.yml"),
		filepath.Join(home, ".voxorb.yaml"),
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			_ = c.LoadFromFile(p)
			return
		}
	}
}

// Validate rejects malformed numeric configuration outright; nothing is
// silently clamped.
func (c *Config) Validate() error {
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrInvalidConfig, c.Audio.SampleRate)
	}
	if c.Audio.BufferSize <= 0 {
		return fmt.Errorf("%w: buffer size %d", ErrInvalidConfig, c.Audio.BufferSize)
	}
	if err := validateFFTSize(c.Analysis.FFTSize); err != nil {
		return err
	}
	if c.Analysis.Smoothing < 0 || c.Analysis.Smoothing >= 1 {
		return fmt.Errorf("%w: smoothing %.3f outside [0,1)", ErrInvalidConfig, c.Analysis.Smoothing)
	}
	if c.Analysis.VoiceThreshold < 0 {
		return fmt.Errorf("%w: voice threshold %.3f", ErrInvalidConfig, c.Analysis.VoiceThreshold)
	}
	if c.Analysis.UpdateIntervalMs <= 0 {
		return fmt.Errorf("%w: update interval %dms", ErrInvalidConfig, c.Analysis.UpdateIntervalMs)
	}
	if err := (FieldConfig{
		Count:           c.Particles.Count,
		BaseRadius:      c.Particles.BaseRadius,
		SizeMin:         c.Particles.SizeMin,
		SizeMax:         c.Particles.SizeMax,
		SpeedMultiplier: c.Particles.SpeedMultiplier,
	}).validate(); err != nil {
		return err
	}
	if c.Modes.ListeningTimeoutMs <= 0 || c.Modes.ThinkingTimeoutMs <= 0 {
		return fmt.Errorf("%w: mode timeouts must be positive", ErrInvalidConfig)
	}
	if c.Visual.FPS <= 0 || c.Visual.FPS > 240 {
		return fmt.Errorf("%w: fps %d", ErrInvalidConfig, c.Visual.FPS)
	}
	if c.Visual.TrailDecay < 0 || c.Visual.TrailDecay >= 1 {
		return fmt.Errorf("%w: trail decay %.3f outside [0,1)", ErrInvalidConfig, c.Visual.TrailDecay)
	}
	return nil
}

func (c *Config) UpdateInterval() time.Duration {
	return time.Duration(c.Analysis.UpdateIntervalMs) * time.Millisecond
}

func (c *Config) ListeningTimeout() time.Duration {
	return time.Duration(c.Modes.ListeningTimeoutMs) * time.Millisecond
}

func (c *Config) ThinkingTimeout() time.Duration {
	return time.Duration(c.Modes.ThinkingTimeoutMs) * time.Millisecond
}

func validateFFTSize(n int) error {
	if n < 32 || n > 32768 || n&(n-1) != 0 {
		return fmt.Errorf("%w: fft size %d must be a power of two in [32, 32768]", ErrInvalidConfig, n)
	}
	return nil
}
