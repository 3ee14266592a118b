// Package config loads the project configuration: a YAML file, an
// optional .env file and VOICECLONER_* environment overrides, applied in
// that order on top of the defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"

	"github.com/PlumbMonkey/voice-cloner/pkg/cascade"
	"github.com/PlumbMonkey/voice-cloner/pkg/segment"
	"github.com/PlumbMonkey/voice-cloner/pkg/spectral"
	"github.com/PlumbMonkey/voice-cloner/pkg/storage"
	"github.com/PlumbMonkey/voice-cloner/pkg/toolkit"
	"github.com/PlumbMonkey/voice-cloner/pkg/trainer"
)

const (
	// DefaultConfigFile is the config file name inside a project.
	DefaultConfigFile = "voicecloner.yaml"
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "VOICECLONER_"
)

// Storage backends.
const (
	BackendLocal = "local"
	BackendS3    = "s3"
)

// Config is the project configuration.
type Config struct {
	Paths      Paths          `yaml:"paths"`
	Audio      Audio          `yaml:"audio"`
	Segment    Segment        `yaml:"segment"`
	Conversion Conversion     `yaml:"conversion"`
	Training   Training       `yaml:"training"`
	Toolkit    toolkit.Config `yaml:"toolkit"`
	Storage    Storage        `yaml:"storage"`

	path string
}

// Paths are the project directories. Relative paths are resolved against
// Project.
type Paths struct {
	Project string `yaml:"project"`
	Input   string `yaml:"input"`
	Data    string `yaml:"data"`
	Output  string `yaml:"output"`
	Models  string `yaml:"models"`
	State   string `yaml:"state"` // badger directory; empty keeps state in memory
	Profile string `yaml:"profile"`
}

// Audio holds the signal parameters.
type Audio struct {
	SampleRate int `yaml:"sample_rate"`
	BitDepth   int `yaml:"bit_depth"`
	NFFT       int `yaml:"n_fft"`
	HopLength  int `yaml:"hop_length"`
}

// Segment holds the preprocessing parameters. Durations are in seconds.
type Segment struct {
	MinDuration      float64 `yaml:"min_duration"`
	MaxDuration      float64 `yaml:"max_duration"`
	TopDB            float64 `yaml:"top_db"`
	MinFileSize      int64   `yaml:"min_file_size"`
	RecommendedTotal float64 `yaml:"recommended_total"`
	ValFraction      float64 `yaml:"val_fraction"`
	ExtractF0        bool    `yaml:"extract_f0"`
}

// Conversion holds the conversion defaults.
type Conversion struct {
	F0Method   string  `yaml:"f0_method"`
	Preset     string  `yaml:"preset"`
	PitchShift float64 `yaml:"pitch_shift"`
	Blend      float64 `yaml:"blend"`
	AutoPitch  bool    `yaml:"auto_pitch"`
}

// Training holds the trainer parameters.
type Training struct {
	Speaker      string  `yaml:"speaker"`
	Epochs       int     `yaml:"epochs"`
	BatchSize    int     `yaml:"batch_size"`
	LearningRate float64 `yaml:"learning_rate"`
	Device       string  `yaml:"device"`
}

// Storage selects where data and output files live.
type Storage struct {
	Backend string           `yaml:"backend"`
	S3      storage.S3Config `yaml:"s3"`
}

// Default returns the default configuration rooted at the current
// directory.
func Default() *Config {
	return &Config{
		Paths: Paths{
			Project: ".",
			Input:   "input",
			Data:    "data",
			Output:  "output",
			Models:  "models",
			State:   "state",
			Profile: "models/speaker_profile.json",
		},
		Audio: Audio{
			SampleRate: 44100,
			BitDepth:   24,
			NFFT:       2048,
			HopLength:  512,
		},
		Segment: Segment{
			MinDuration:      0.5,
			MaxDuration:      15,
			TopDB:            40,
			MinFileSize:      1 << 20,
			RecommendedTotal: 600,
			ValFraction:      0.1,
			ExtractF0:        true,
		},
		Conversion: Conversion{
			F0Method:  string(cascade.DefaultF0Method),
			Preset:    spectral.DefaultPreset,
			AutoPitch: true,
		},
		Training: Training{
			Speaker:      "default",
			Epochs:       100,
			BatchSize:    16,
			LearningRate: 1e-4,
		},
		Storage: Storage{Backend: BackendLocal},
	}
}

// Load reads the config file at path, then the .env file next to it, then
// the environment. A missing file leaves the defaults in place; an empty
// path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	cfg.path = path
	dir := "."
	if path != "" {
		dir = filepath.Dir(path)
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("config: read: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}
	if err := loadDotenv(filepath.Join(dir, ".env")); err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.resolve()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadDotenv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

// resolve makes relative paths absolute under Paths.Project.
func (c *Config) resolve() {
	root := c.Paths.Project
	if root == "" {
		root = "."
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	c.Paths.Project = root
	for _, p := range []*string{&c.Paths.Input, &c.Paths.Data, &c.Paths.Output, &c.Paths.Models, &c.Paths.State, &c.Paths.Profile} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(root, *p)
		}
	}
}

// Validate checks the values a run cannot start without.
func (c *Config) Validate() error {
	switch {
	case c.Audio.SampleRate <= 0:
		return fmt.Errorf("config: sample_rate must be positive")
	case c.Audio.NFFT <= 0 || c.Audio.HopLength <= 0 || c.Audio.HopLength > c.Audio.NFFT:
		return fmt.Errorf("config: need 0 < hop_length <= n_fft, got %d and %d", c.Audio.HopLength, c.Audio.NFFT)
	case c.Audio.BitDepth != 16 && c.Audio.BitDepth != 24:
		return fmt.Errorf("config: bit_depth must be 16 or 24, got %d", c.Audio.BitDepth)
	case c.Segment.MinDuration <= 0 || c.Segment.MaxDuration < c.Segment.MinDuration:
		return fmt.Errorf("config: need 0 < min_duration <= max_duration, got %g and %g", c.Segment.MinDuration, c.Segment.MaxDuration)
	case c.Storage.Backend != BackendLocal && c.Storage.Backend != BackendS3:
		return fmt.Errorf("config: unknown storage backend %q", c.Storage.Backend)
	case c.Storage.Backend == BackendS3 && c.Storage.S3.Bucket == "":
		return fmt.Errorf("config: s3 backend needs a bucket")
	}
	if _, err := spectral.LookupPreset(c.Conversion.Preset); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return c.TrainerConfig().Validate()
}

// Path returns the file the config was loaded from.
func (c *Config) Path() string { return c.path }

// Save writes the config as YAML to path, or to the path it was loaded
// from when path is empty.
func (c *Config) Save(path string) error {
	if path == "" {
		path = c.path
	}
	if path == "" {
		return fmt.Errorf("config: no path to save to")
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("config: write: %w", err)
	}
	c.path = path
	return nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// SegmentConfig returns the preprocessing configuration.
func (c *Config) SegmentConfig() segment.Config {
	sc := segment.DefaultConfig()
	sc.SampleRate = c.Audio.SampleRate
	sc.FrameLength = c.Audio.NFFT
	sc.HopLength = c.Audio.HopLength
	sc.TopDB = c.Segment.TopDB
	sc.MinDuration = seconds(c.Segment.MinDuration)
	sc.MaxDuration = seconds(c.Segment.MaxDuration)
	sc.MinFileSize = c.Segment.MinFileSize
	sc.MinFileDuration = seconds(c.Segment.MinDuration)
	sc.RecommendedTotal = seconds(c.Segment.RecommendedTotal)
	sc.ValFraction = c.Segment.ValFraction
	sc.ExtractF0 = c.Segment.ExtractF0
	return sc
}

// TrainerConfig returns the trainer configuration.
func (c *Config) TrainerConfig() trainer.Config {
	tc := trainer.DefaultConfig()
	tc.Speaker = c.Training.Speaker
	tc.Epochs = c.Training.Epochs
	tc.BatchSize = c.Training.BatchSize
	tc.LearningRate = c.Training.LearningRate
	if c.Training.Device != "" {
		tc.Device = c.Training.Device
	}
	tc.SampleRate = c.Audio.SampleRate
	tc.NFFT = c.Audio.NFFT
	tc.HopLength = c.Audio.HopLength
	return tc
}

// ToolkitConfigured reports whether an external toolkit is set up.
func (c *Config) ToolkitConfigured() bool {
	return c.Toolkit.Executable != "" && c.Toolkit.Checkpoint != ""
}
