package voiceprint

import (
	"errors"
	"fmt"

	"github.com/PlumbMonkey/voice-cloner/pkg/audio/pcm"
	"github.com/PlumbMonkey/voice-cloner/pkg/audio/resampler"
)

// SampleRate is the input rate every Model expects.
const SampleRate = 16000

// ErrTooShort is returned when the audio holds too few usable frames.
var ErrTooShort = errors.New("voiceprint: audio too short")

// Model extracts speaker embedding vectors from raw audio.
//
// The input is mono float audio in [-1, 1] at SampleRate. The output is a
// dense vector of length Dimension().
//
// Implementations must be safe for concurrent use.
type Model interface {
	// Extract computes a speaker embedding.
	Extract(samples []float32) ([]float32, error)

	// Dimension returns the length of the vectors produced by Extract.
	Dimension() int

	// Close releases any resources held by the model.
	Close() error
}

// Embed resamples buf to SampleRate when needed and runs m on it.
func Embed(m Model, buf *pcm.Buffer) ([]float32, error) {
	if buf.SampleRate != SampleRate {
		r, err := resampler.Resample(buf, SampleRate)
		if err != nil {
			return nil, fmt.Errorf("voiceprint: resample: %w", err)
		}
		buf = r
	}
	return m.Extract(buf.Float32())
}
