package config

import (
	"fmt"
	"strconv"
	"strings"
)

type envVar struct {
	name string
	set  func(c *Config, v string) error
}

func str(f func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*f(c) = v
		return nil
	}
}

func integer(f func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*f(c) = n
		return nil
	}
}

func float(f func(*Config) *float64) func(*Config, string) error {
	return func(c *Config, v string) error {
		x, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*f(c) = x
		return nil
	}
}

func boolean(f func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*f(c) = b
		return nil
	}
}

// envVars lists the supported overrides, without EnvPrefix.
var envVars = []envVar{
	{"PROJECT_DIR", str(func(c *Config) *string { return &c.Paths.Project })},
	{"INPUT_DIR", str(func(c *Config) *string { return &c.Paths.Input })},
	{"DATA_DIR", str(func(c *Config) *string { return &c.Paths.Data })},
	{"OUTPUT_DIR", str(func(c *Config) *string { return &c.Paths.Output })},
	{"MODELS_DIR", str(func(c *Config) *string { return &c.Paths.Models })},
	{"STATE_DIR", str(func(c *Config) *string { return &c.Paths.State })},
	{"PROFILE_PATH", str(func(c *Config) *string { return &c.Paths.Profile })},

	{"SAMPLE_RATE", integer(func(c *Config) *int { return &c.Audio.SampleRate })},
	{"BIT_DEPTH", integer(func(c *Config) *int { return &c.Audio.BitDepth })},
	{"N_FFT", integer(func(c *Config) *int { return &c.Audio.NFFT })},
	{"HOP_LENGTH", integer(func(c *Config) *int { return &c.Audio.HopLength })},

	{"MIN_DURATION", float(func(c *Config) *float64 { return &c.Segment.MinDuration })},
	{"MAX_DURATION", float(func(c *Config) *float64 { return &c.Segment.MaxDuration })},
	{"TOP_DB", float(func(c *Config) *float64 { return &c.Segment.TopDB })},
	{"VAL_FRACTION", float(func(c *Config) *float64 { return &c.Segment.ValFraction })},
	{"EXTRACT_F0", boolean(func(c *Config) *bool { return &c.Segment.ExtractF0 })},

	{"F0_METHOD", str(func(c *Config) *string { return &c.Conversion.F0Method })},
	{"PRESET", str(func(c *Config) *string { return &c.Conversion.Preset })},
	{"PITCH_SHIFT", float(func(c *Config) *float64 { return &c.Conversion.PitchShift })},
	{"BLEND", float(func(c *Config) *float64 { return &c.Conversion.Blend })},
	{"AUTO_PITCH", boolean(func(c *Config) *bool { return &c.Conversion.AutoPitch })},

	{"SPEAKER", str(func(c *Config) *string { return &c.Training.Speaker })},
	{"EPOCHS", integer(func(c *Config) *int { return &c.Training.Epochs })},
	{"BATCH_SIZE", integer(func(c *Config) *int { return &c.Training.BatchSize })},
	{"LEARNING_RATE", float(func(c *Config) *float64 { return &c.Training.LearningRate })},
	{"DEVICE", str(func(c *Config) *string { return &c.Training.Device })},

	{"TOOLKIT_EXECUTABLE", str(func(c *Config) *string { return &c.Toolkit.Executable })},
	{"TOOLKIT_CHECKPOINT", str(func(c *Config) *string { return &c.Toolkit.Checkpoint })},
	{"TOOLKIT_CONFIG", str(func(c *Config) *string { return &c.Toolkit.ConfigPath })},
	{"TOOLKIT_SPEAKER", str(func(c *Config) *string { return &c.Toolkit.Speaker })},

	{"STORAGE", str(func(c *Config) *string { return &c.Storage.Backend })},
	{"S3_BUCKET", str(func(c *Config) *string { return &c.Storage.S3.Bucket })},
	{"S3_PREFIX", str(func(c *Config) *string { return &c.Storage.S3.Prefix })},
	{"S3_REGION", str(func(c *Config) *string { return &c.Storage.S3.Region })},
	{"S3_ENDPOINT", str(func(c *Config) *string { return &c.Storage.S3.Endpoint })},
	{"S3_ACCESS_KEY", str(func(c *Config) *string { return &c.Storage.S3.AccessKey })},
	{"S3_SECRET_KEY", str(func(c *Config) *string { return &c.Storage.S3.SecretKey })},
	{"S3_PATH_STYLE", boolean(func(c *Config) *bool { return &c.Storage.S3.PathStyle })},
}

// EnvNames returns the full names of the supported environment overrides.
func EnvNames() []string {
	names := make([]string, len(envVars))
	for i, e := range envVars {
		names[i] = EnvPrefix + e.name
	}
	return names
}

// ApplyEnv applies VOICECLONER_* overrides found by lookup. Empty values
// are ignored.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	for _, e := range envVars {
		v, ok := lookup(EnvPrefix + e.name)
		if !ok {
			continue
		}
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if err := e.set(c, v); err != nil {
			return fmt.Errorf("config: %s%s=%q: %w", EnvPrefix, e.name, v, err)
		}
	}
	return nil
}
