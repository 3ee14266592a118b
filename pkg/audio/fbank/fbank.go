// Package fbank computes log mel filterbank features and cepstral
// coefficients from mono PCM audio.
//
// The voiceprint front-end uses the Kaldi-style defaults:
//
//	SampleRate:  16000
//	WindowSize:  400 (25 ms)
//	HopSize:     160 (10 ms)
//	FFTSize:     512
//	NumMels:     80
//	LowFreq:     20
//	HighFreq:  7600
//	PreEmphasis: 0.97
//
// Speaker profiles use ForRate, which matches the conversion STFT
// (2048-point frames, 512 hop, no pre-emphasis) so that a cepstral vector
// can be turned back into a spectral envelope with Envelope.
package fbank

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/PlumbMonkey/voice-cloner/pkg/dsp"
)

// Config controls mel filterbank extraction parameters.
type Config struct {
	SampleRate  int     // audio sample rate in Hz (default 16000)
	WindowSize  int     // window length in samples (default 400 = 25ms)
	HopSize     int     // hop length in samples (default 160 = 10ms)
	FFTSize     int     // FFT size (default 512)
	NumMels     int     // number of mel bins (default 80)
	LowFreq     float64 // lowest mel frequency (default 20)
	HighFreq    float64 // highest mel frequency (default 7600)
	PreEmphasis float64 // pre-emphasis coefficient (default 0.97)
}

// DefaultConfig returns the voiceprint front-end config.
func DefaultConfig() Config {
	return Config{
		SampleRate:  16000,
		WindowSize:  400,
		HopSize:     160,
		FFTSize:     512,
		NumMels:     80,
		LowFreq:     20,
		HighFreq:    7600,
		PreEmphasis: 0.97,
	}
}

// ForRate returns the analysis config used for speaker profiles at the
// given sample rate.
func ForRate(sampleRate int) Config {
	return Config{
		SampleRate: sampleRate,
		WindowSize: 2048,
		HopSize:    512,
		FFTSize:    2048,
		NumMels:    64,
		LowFreq:    0,
		HighFreq:   float64(sampleRate) / 2,
	}
}

// Extractor computes mel filterbank features from PCM samples.
// An Extractor reuses an FFT plan and is not safe for concurrent use.
type Extractor struct {
	cfg     Config
	window  []float64 // Hamming window
	melBank [][]float64
	fft     *fourier.FFT
}

// New creates a new fbank Extractor with the given config.
func New(cfg Config) *Extractor {
	return &Extractor{
		cfg:     cfg,
		window:  dsp.Hamming(cfg.WindowSize),
		melBank: melFilterBank(cfg.NumMels, cfg.FFTSize, cfg.SampleRate, cfg.LowFreq, cfg.HighFreq),
		fft:     fourier.NewFFT(cfg.FFTSize),
	}
}

// Config returns the extractor configuration.
func (e *Extractor) Config() Config { return e.cfg }

// NumFrames returns the number of frames produced for n samples.
func (e *Extractor) NumFrames(n int) int {
	if n < e.cfg.WindowSize {
		return 0
	}
	return (n-e.cfg.WindowSize)/e.cfg.HopSize + 1
}

// Power returns the power spectrum of each frame, [T][FFTSize/2+1].
func (e *Extractor) Power(x []float64) [][]float64 {
	cfg := e.cfg
	numFrames := e.NumFrames(len(x))
	frame := make([]float64, cfg.FFTSize)
	out := make([][]float64, numFrames)
	for t := range numFrames {
		start := t * cfg.HopSize
		for i := range cfg.WindowSize {
			s := x[start+i]
			if i > 0 && cfg.PreEmphasis != 0 {
				s -= cfg.PreEmphasis * x[start+i-1]
			}
			frame[i] = s * e.window[i]
		}
		// Zero-pad
		for i := cfg.WindowSize; i < cfg.FFTSize; i++ {
			frame[i] = 0
		}
		coeff := e.fft.Coefficients(nil, frame)
		power := make([]float64, len(coeff))
		for k, c := range coeff {
			power[k] = real(c)*real(c) + imag(c)*imag(c)
		}
		out[t] = power
	}
	return out
}

// LogMel returns log mel energies, [T][NumMels].
func (e *Extractor) LogMel(x []float64) [][]float64 {
	power := e.Power(x)
	out := make([][]float64, len(power))
	for t, p := range power {
		out[t] = e.MelFrame(p)
	}
	return out
}

// MelFrame applies the filterbank to one power spectrum and takes the log.
func (e *Extractor) MelFrame(power []float64) []float64 {
	mel := make([]float64, e.cfg.NumMels)
	for m := range mel {
		sum := 0.0
		for k, w := range e.melBank[m] {
			if w != 0 {
				sum += w * power[k]
			}
		}
		// Log with floor to avoid -inf
		mel[m] = math.Log(math.Max(sum, 1e-10))
	}
	return mel
}

// Extract computes log mel filterbank features from PCM float32 samples.
// Input: pcm is normalized float32 audio samples (range [-1, 1]).
// Output: [T][numMels] float32 matrix where T = (len(pcm) - windowSize) / hopSize + 1.
func (e *Extractor) Extract(pcm []float32) [][]float32 {
	x := make([]float64, len(pcm))
	for i, s := range pcm {
		x[i] = float64(s)
	}
	logmel := e.LogMel(x)
	if len(logmel) == 0 {
		return nil
	}
	features := make([][]float32, len(logmel))
	for t, row := range logmel {
		f := make([]float32, len(row))
		for m, v := range row {
			f[m] = float32(v)
		}
		features[t] = f
	}
	return features
}

// CMVN applies Cepstral Mean and Variance Normalization in-place.
// For each mel dimension, subtracts the mean and divides by the standard
// deviation across all frames.
func CMVN(features [][]float32) {
	if len(features) == 0 {
		return
	}
	numMels := len(features[0])
	T := float64(len(features))

	for m := 0; m < numMels; m++ {
		sum := float64(0)
		for _, f := range features {
			sum += float64(f[m])
		}
		mean := sum / T

		varSum := float64(0)
		for _, f := range features {
			d := float64(f[m]) - mean
			varSum += d * d
		}
		std := math.Sqrt(varSum / T)
		if std < 1e-10 {
			std = 1e-10
		}

		for _, f := range features {
			f[m] = float32((float64(f[m]) - mean) / std)
		}
	}
}

// Flatten converts [T][numMels] to a flat [T*numMels] slice.
func Flatten(features [][]float32) []float32 {
	if len(features) == 0 {
		return nil
	}
	cols := len(features[0])
	flat := make([]float32, len(features)*cols)
	for t, row := range features {
		copy(flat[t*cols:], row)
	}
	return flat
}
