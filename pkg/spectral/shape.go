package spectral

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/PlumbMonkey/voice-cloner/pkg/audio/pcm"
	"github.com/PlumbMonkey/voice-cloner/pkg/dsp"
)

// FormantWarp remaps the frequency axis of every magnitude frame by
// ratio: output bin k takes the source magnitude at bin k/ratio, so
// ratio > 1 moves resonances up. Phase is untouched. ratio is clamped to
// [MinWarp, MaxWarp]; WithStrength mixes the warped magnitude with the
// original.
func FormantWarp(buf *pcm.Buffer, ratio float64, opts ...Option) *pcm.Buffer {
	if !finite(ratio) || ratio <= 0 {
		return buf.Clone()
	}
	ratio = clamp(ratio, MinWarp, MaxWarp)
	o := apply(opts)
	if ratio == 1 || o.strength == 0 {
		return buf.Clone()
	}
	var src []float64
	return mapMagnitude(buf, o, func(mag []float64) {
		src = append(src[:0], mag...)
		last := float64(len(src) - 1)
		for k := range mag {
			var w float64
			if pos := float64(k) / ratio; pos <= last {
				w = dsp.Interp(src, pos)
			}
			mag[k] = (1-o.strength)*src[k] + o.strength*w
		}
	})
}

// EnvelopeBlend moves the spectral shape of buf toward target, a
// magnitude envelope over the frame's linear bins (resampled when its
// length differs). Each frame is normalised to its peak, blended
// linearly with the peak-normalised target and rescaled to its original
// energy, so the loudness contour of the source is preserved. blend is
// clamped to [0, 1]; silent frames are left alone.
func EnvelopeBlend(buf *pcm.Buffer, target []float64, blend float64, opts ...Option) *pcm.Buffer {
	blend = clamp(blend, 0, 1)
	if len(target) == 0 || blend == 0 || !finite(blend) {
		return buf.Clone()
	}
	o := apply(opts)
	bins := o.size/2 + 1
	env := target
	if len(env) != bins {
		env = dsp.ResampleLinear(target, bins)
	} else {
		env = append([]float64(nil), target...)
	}
	for k, v := range env {
		if !finite(v) || v < 0 {
			env[k] = 0
		}
	}
	peak := floats.Max(env)
	if peak <= 0 {
		return buf.Clone()
	}
	floats.Scale(1/peak, env)

	return mapMagnitude(buf, o, func(mag []float64) {
		mx := floats.Max(mag)
		if mx < 1e-10 {
			return
		}
		energy := floats.Dot(mag, mag)
		for k := range mag {
			mag[k] = (1-blend)*mag[k]/mx + blend*env[k]
		}
		if e := floats.Dot(mag, mag); e > 0 {
			floats.Scale(math.Sqrt(energy/e), mag)
		}
	})
}

// Gain bounds for BandGain.
const (
	minBandGain = 0.1
	maxBandGain = 10
)

// BandGain multiplies each magnitude frame by a gain curve given at band
// centre frequencies (Hz, ascending) and interpolated linearly between
// them; bins outside the band range take the nearest band's gain. Gains
// are bounded to [0.1, 10]; non-finite gains count as 1.
func BandGain(buf *pcm.Buffer, centers, gains []float64, opts ...Option) *pcm.Buffer {
	if len(centers) == 0 || len(centers) != len(gains) {
		return buf.Clone()
	}
	o := apply(opts)
	g := make([]float64, len(gains))
	for i, v := range gains {
		if !finite(v) || v <= 0 {
			v = 1
		}
		g[i] = clamp(v, minBandGain, maxBandGain)
	}
	bins := o.size/2 + 1
	binHz := float64(buf.SampleRate) / float64(o.size)
	curve := make([]float64, bins)
	j := 0
	for k := range curve {
		hz := float64(k) * binHz
		for j < len(centers)-1 && centers[j+1] < hz {
			j++
		}
		switch {
		case hz <= centers[0]:
			curve[k] = g[0]
		case j >= len(centers)-1:
			curve[k] = g[len(g)-1]
		default:
			f := (hz - centers[j]) / (centers[j+1] - centers[j])
			curve[k] = g[j]*(1-f) + g[j+1]*f
		}
	}
	return mapMagnitude(buf, o, func(mag []float64) {
		floats.Mul(mag, curve)
	})
}
