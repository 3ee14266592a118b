package spectral

import (
	"math"
	"math/cmplx"

	"github.com/PlumbMonkey/voice-cloner/pkg/audio/pcm"
	"github.com/PlumbMonkey/voice-cloner/pkg/audio/resampler"
	"github.com/PlumbMonkey/voice-cloner/pkg/dsp"
)

// MaxSemitones bounds pitch shifts in both directions.
const MaxSemitones = 24

// PitchShift moves the pitch of buf by semitones (positive is up) while
// preserving its duration: the signal is time-stretched by the pitch ratio
// with a phase vocoder and resampled back to the original length.
func PitchShift(buf *pcm.Buffer, semitones float64, opts ...Option) *pcm.Buffer {
	semitones = clamp(semitones, -MaxSemitones, MaxSemitones)
	if semitones == 0 || buf.Len() == 0 {
		return buf.Clone()
	}
	n := buf.Len()
	ratio := math.Pow(2, semitones/12)
	stretched := TimeStretch(buf.Samples, 1/ratio, opts...)
	sr := float64(buf.SampleRate)
	out, err := resampler.Convert(stretched, sr*ratio, sr)
	if err != nil {
		out = dsp.ResampleLinear(stretched, n)
	}
	return buf.WithSamples(out).FitLength(n)
}

// TimeStretch changes the duration of x by 1/rate without changing its
// pitch. rate > 1 shortens. The output has round(len(x)/rate) samples;
// a non-positive rate yields nil.
func TimeStretch(x []float64, rate float64, opts ...Option) []float64 {
	if rate <= 0 || !finite(rate) {
		return nil
	}
	n := int(math.Round(float64(len(x)) / rate))
	if len(x) == 0 {
		return make([]float64, n)
	}
	o := apply(opts)
	st := dsp.NewSTFT(o.size, o.hop)
	sp := st.Forward(x)
	bins := sp.Bins()

	advance := make([]float64, bins)
	for k := range advance {
		advance[k] = 2 * math.Pi * float64(o.hop) * float64(k) / float64(o.size)
	}
	phase := make([]float64, bins)
	for k, c := range sp.Frames[0] {
		phase[k] = cmplx.Phase(c)
	}
	zero := make([]complex128, bins)
	column := func(t int) []complex128 {
		if t < len(sp.Frames) {
			return sp.Frames[t]
		}
		return zero
	}

	out := &dsp.Spectrogram{Size: sp.Size, Hop: sp.Hop, Length: n}
	for step := 0.0; step < float64(len(sp.Frames)); step += rate {
		t := int(step)
		alpha := step - float64(t)
		c0, c1 := column(t), column(t+1)
		frame := make([]complex128, bins)
		for k := range frame {
			mag := (1-alpha)*cmplx.Abs(c0[k]) + alpha*cmplx.Abs(c1[k])
			frame[k] = cmplx.Rect(mag, phase[k])
			d := cmplx.Phase(c1[k]) - cmplx.Phase(c0[k]) - advance[k]
			d -= 2 * math.Pi * math.Round(d/(2*math.Pi))
			phase[k] += advance[k] + d
		}
		out.Frames = append(out.Frames, frame)
	}
	return st.InverseLength(out, n)
}
