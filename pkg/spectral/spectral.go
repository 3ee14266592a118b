// Package spectral implements the DSP voice conversion transforms: phase
// vocoder pitch shift, formant warping, spectral envelope blending,
// per-band gain, brightness filtering, quantisation and loudness matching.
//
// Every transform returns a new buffer of exactly the input length and
// never modifies its input. Chain composes them in a fixed order: pitch
// first, then the spectral-shape stages, and loudness matching with hard
// clipping last.
package spectral

import (
	"math"
	"math/cmplx"

	"github.com/PlumbMonkey/voice-cloner/pkg/audio/pcm"
	"github.com/PlumbMonkey/voice-cloner/pkg/dsp"
)

// Analysis frame defaults.
const (
	FrameSize = 2048
	HopSize   = 512
)

// Formant warp ratio bounds.
const (
	MinWarp = 0.7
	MaxWarp = 1.4
)

// Loudness scale bounds.
const (
	MinScale = 0.3
	MaxScale = 2.0
)

type options struct {
	size     int
	hop      int
	strength float64
	minScale float64
	maxScale float64
	ceiling  float64
}

// Option configures a transform.
type Option func(*options)

// WithFrame sets the STFT frame size and hop.
func WithFrame(size, hop int) Option {
	return func(o *options) {
		if size > 0 && hop > 0 && hop <= size {
			o.size, o.hop = size, hop
		}
	}
}

// WithStrength mixes a warped spectrum with the original, 0..1.
func WithStrength(s float64) Option {
	return func(o *options) { o.strength = clamp(s, 0, 1) }
}

// WithScaleBounds bounds the loudness scale factor.
func WithScaleBounds(lo, hi float64) Option {
	return func(o *options) {
		if lo > 0 && hi >= lo {
			o.minScale, o.maxScale = lo, hi
		}
	}
}

// WithCeiling limits the loudness scale so the peak stays at or below c.
func WithCeiling(c float64) Option {
	return func(o *options) { o.ceiling = c }
}

func apply(opts []Option) options {
	o := options{
		size:     FrameSize,
		hop:      HopSize,
		strength: 1,
		minScale: MinScale,
		maxScale: MaxScale,
	}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// mapMagnitude rewrites the magnitude of every STFT frame with fn, keeps
// the phase and resynthesises a buffer of the input length.
func mapMagnitude(buf *pcm.Buffer, o options, fn func(mag []float64)) *pcm.Buffer {
	st := dsp.NewSTFT(o.size, o.hop)
	sp := st.Forward(buf.Samples)
	mag := make([]float64, sp.Bins())
	for _, frame := range sp.Frames {
		for k, c := range frame {
			mag[k] = cmplx.Abs(c)
		}
		fn(mag)
		for k, c := range frame {
			frame[k] = cmplx.Rect(mag[k], cmplx.Phase(c))
		}
	}
	return buf.WithSamples(st.Inverse(sp))
}
