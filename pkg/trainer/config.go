package trainer

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the training hyperparameters.
type Config struct {
	Speaker      string  `yaml:"speaker"`
	Epochs       int     `yaml:"epochs"`
	BatchSize    int     `yaml:"batch_size"`
	LearningRate float64 `yaml:"learning_rate"`
	SaveInterval int     `yaml:"save_interval"`
	NumWorkers   int     `yaml:"num_workers"`
	Device       string  `yaml:"device"`

	SampleRate int `yaml:"sample_rate"`
	NFFT       int `yaml:"n_fft"`
	HopLength  int `yaml:"hop_length"`

	// HashBits is the voice hash precision used for the speaker
	// consistency check.
	HashBits int `yaml:"hash_bits"`
	// MinConsistency is the share of segments that must carry the
	// dominant voice hash.
	MinConsistency float32 `yaml:"min_consistency"`
}

// DefaultConfig returns the default hyperparameters.
func DefaultConfig() Config {
	return Config{
		Speaker:        "default",
		Epochs:         100,
		BatchSize:      16,
		LearningRate:   1e-4,
		SaveInterval:   10,
		NumWorkers:     4,
		Device:         "cpu",
		SampleRate:     44100,
		NFFT:           2048,
		HopLength:      512,
		HashBits:       8,
		MinConsistency: 0.6,
	}
}

// Validate rejects hyperparameters the trainer cannot run with.
func (c Config) Validate() error {
	switch {
	case c.Epochs < 1:
		return fmt.Errorf("trainer: epochs must be >= 1, got %d", c.Epochs)
	case c.BatchSize < 1:
		return fmt.Errorf("trainer: batch size must be >= 1, got %d", c.BatchSize)
	case !(c.LearningRate > 0):
		return fmt.Errorf("trainer: learning rate must be > 0, got %g", c.LearningRate)
	case c.Speaker == "":
		return fmt.Errorf("trainer: speaker name required")
	case strings.ContainsRune(c.Speaker, ':'):
		return fmt.Errorf("trainer: speaker name %q contains ':'", c.Speaker)
	}
	return nil
}

// Estimate returns a rough wall-clock training time for n samples.
func (c Config) Estimate(n int) time.Duration {
	perBatch := 5 * time.Second
	if c.Device == "cuda" {
		perBatch = 500 * time.Millisecond
	}
	batches := max(1, n/max(1, c.BatchSize))
	return time.Duration(batches*c.Epochs) * perBatch
}

// trainingDoc is the config file handed to the external trainer.
type trainingDoc struct {
	Train struct {
		Epochs       int     `yaml:"epochs"`
		BatchSize    int     `yaml:"batch_size"`
		LearningRate float64 `yaml:"learning_rate"`
		SaveInterval int     `yaml:"save_interval"`
		NumWorkers   int     `yaml:"num_workers"`
		Device       string  `yaml:"device"`
	} `yaml:"train"`
	Data struct {
		SampleRate int    `yaml:"sample_rate"`
		NFFT       int    `yaml:"n_fft"`
		HopLength  int    `yaml:"hop_length"`
		NMel       int    `yaml:"n_mel"`
		TrainPath  string `yaml:"train_path"`
		ValPath    string `yaml:"val_path"`
	} `yaml:"data"`
	Model struct {
		NSpeakers      int `yaml:"n_speakers"`
		HiddenChannels int `yaml:"hidden_channels"`
		FilterChannels int `yaml:"filter_channels"`
		NHeads         int `yaml:"n_heads"`
		NLayers        int `yaml:"n_layers"`
		KernelSize     int `yaml:"kernel_size"`
	} `yaml:"model"`
	Spk map[string]int `yaml:"spk"`
}

// TrainingConfig renders the external trainer's YAML config.
func (c Config) TrainingConfig(trainPath, valPath string) ([]byte, error) {
	var d trainingDoc
	d.Train.Epochs = c.Epochs
	d.Train.BatchSize = c.BatchSize
	d.Train.LearningRate = c.LearningRate
	d.Train.SaveInterval = c.SaveInterval
	d.Train.NumWorkers = c.NumWorkers
	d.Train.Device = c.Device
	d.Data.SampleRate = c.SampleRate
	d.Data.NFFT = c.NFFT
	d.Data.HopLength = c.HopLength
	d.Data.NMel = 80
	d.Data.TrainPath = trainPath
	d.Data.ValPath = valPath
	d.Model.NSpeakers = 1
	d.Model.HiddenChannels = 192
	d.Model.FilterChannels = 768
	d.Model.NHeads = 2
	d.Model.NLayers = 6
	d.Model.KernelSize = 3
	d.Spk = map[string]int{c.Speaker: 0}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&d); err != nil {
		return nil, fmt.Errorf("trainer: encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
