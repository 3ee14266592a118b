package spectral

import (
	"math"

	"github.com/PlumbMonkey/voice-cloner/pkg/audio/pcm"
	"github.com/PlumbMonkey/voice-cloner/pkg/dsp"
)

// LoudnessMatch scales buf toward targetRMS and hard clips the result to
// [-1, 1]. The scale factor is bounded by WithScaleBounds (default
// [MinScale, MaxScale]) and, with WithCeiling, kept low enough that the
// peak stays under the ceiling. A non-positive or non-finite target, or a
// silent input, falls back to the minimum scale.
func LoudnessMatch(buf *pcm.Buffer, targetRMS float64, opts ...Option) *pcm.Buffer {
	o := apply(opts)
	scale := o.minScale
	if rms := buf.RMS(); targetRMS > 0 && finite(targetRMS) && rms > 1e-10 {
		scale = clamp(targetRMS/rms, o.minScale, o.maxScale)
	}
	if peak := buf.Peak(); o.ceiling > 0 && peak*scale > o.ceiling {
		scale = o.ceiling / peak
	}
	return buf.Scale(scale).Clip()
}

// Limit scales buf down so its peak does not exceed ceiling.
func Limit(buf *pcm.Buffer, ceiling float64) *pcm.Buffer {
	if peak := buf.Peak(); ceiling > 0 && peak > ceiling {
		return buf.Scale(ceiling / peak)
	}
	return buf.Clone()
}

// BrightnessFilter tilts the spectrum with a single 4th-order Butterworth
// filter. factor > 1 brightens with a high-pass at nyquist*0.5/factor,
// factor < 1 darkens with a low-pass at nyquist*factor; 1 or a
// non-positive factor returns a copy. The filtered signal is rescaled to
// the input peak.
func BrightnessFilter(buf *pcm.Buffer, factor float64) *pcm.Buffer {
	if factor == 1 || factor <= 0 || !finite(factor) || buf.Len() == 0 {
		return buf.Clone()
	}
	nyq := float64(buf.SampleRate) / 2
	var y []float64
	if factor > 1 {
		y = dsp.Butter4HighPass(buf.Samples, nyq*0.5/factor, buf.SampleRate)
	} else {
		y = dsp.Butter4LowPass(buf.Samples, nyq*factor, buf.SampleRate)
	}
	out := buf.WithSamples(y)
	if p := out.Peak(); p > 0 {
		out = out.Scale(buf.Peak() / p)
	}
	return out
}

// Quantize rounds buf to a coarser bit depth. Depths outside [2, 16)
// return a copy.
func Quantize(buf *pcm.Buffer, bits int) *pcm.Buffer {
	if bits < 2 || bits >= 16 {
		return buf.Clone()
	}
	step := math.Exp2(float64(bits - 1))
	out := make([]float64, buf.Len())
	for i, v := range buf.Samples {
		out[i] = math.Round(v*step) / step
	}
	return buf.WithSamples(out)
}
