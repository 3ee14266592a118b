package spectral

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/PlumbMonkey/voice-cloner/pkg/audio/pcm"
)

// DefaultCeiling is the output peak ceiling applied by Chain.
const DefaultCeiling = 0.95

// Params selects the stages Chain runs. Zero values disable a stage,
// except loudness matching, which always runs.
type Params struct {
	PitchShift float64 // semitones, positive is up

	FormantRatio    float64 // 0 or 1 leaves formants alone
	FormantStrength float64 // 0 means full strength

	Envelope      []float64 // target magnitude envelope over linear bins
	EnvelopeBlend float64

	BandCenters []float64 // Hz
	BandGains   []float64

	Brightness float64 // 0 or 1 leaves the tilt alone
	Quantize   int     // bits, 0 disables

	TargetRMS float64 // <= 0 keeps the loudness of the input
	MinScale  float64 // 0 means MinScale
	MaxScale  float64 // 0 means MaxScale
	Ceiling   float64 // 0 means DefaultCeiling
}

// Chain runs the enabled stages in order: pitch shift, formant warp,
// envelope blend, band gain, brightness, quantisation, then loudness
// matching with the peak ceiling and hard clipping. The output has the
// input length.
func Chain(buf *pcm.Buffer, p Params, opts ...Option) *pcm.Buffer {
	n := buf.Len()
	target := p.TargetRMS
	if target <= 0 {
		target = buf.RMS()
	}
	out := buf
	if p.PitchShift != 0 {
		out = PitchShift(out, p.PitchShift, opts...)
	}
	if p.FormantRatio > 0 && p.FormantRatio != 1 {
		wopts := opts
		if p.FormantStrength > 0 {
			wopts = append(slices.Clone(opts), WithStrength(p.FormantStrength))
		}
		out = FormantWarp(out, p.FormantRatio, wopts...)
	}
	if len(p.Envelope) > 0 && p.EnvelopeBlend > 0 {
		out = EnvelopeBlend(out, p.Envelope, p.EnvelopeBlend, opts...)
	}
	if len(p.BandGains) > 0 {
		out = BandGain(out, p.BandCenters, p.BandGains, opts...)
	}
	if p.Brightness > 0 && p.Brightness != 1 {
		out = BrightnessFilter(out, p.Brightness)
	}
	if p.Quantize > 0 {
		out = Quantize(out, p.Quantize)
	}

	lo, hi := p.MinScale, p.MaxScale
	if lo <= 0 {
		lo = MinScale
	}
	if hi <= 0 {
		hi = MaxScale
	}
	ceiling := p.Ceiling
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}
	out = LoudnessMatch(out, target, append(slices.Clone(opts), WithScaleBounds(lo, hi), WithCeiling(ceiling))...)
	if out.Len() != n {
		out = out.FitLength(n)
	}
	slog.Debug("spectral: chain",
		"pitch", p.PitchShift,
		"formant", p.FormantRatio,
		"blend", p.EnvelopeBlend,
		"brightness", p.Brightness,
		"rms_in", buf.RMS(),
		"rms_out", out.RMS())
	return out
}

// Preset is a named set of conversion strengths.
type Preset struct {
	Name            string
	FormantStrength float64 // mix of the warped spectrum
	EnvelopeBlend   float64 // default envelope blend
	TiltLimit       float64 // brightness factor stays within 1 +- TiltLimit
	MinScale        float64
	MaxScale        float64
}

// Built-in presets.
var presets = map[string]Preset{
	"gentle": {
		Name:            "gentle",
		FormantStrength: 0.4,
		EnvelopeBlend:   0.25,
		TiltLimit:       0.1,
		MinScale:        0.5,
		MaxScale:        1.5,
	},
	"balanced": {
		Name:            "balanced",
		FormantStrength: 0.6,
		EnvelopeBlend:   0.5,
		TiltLimit:       0.15,
		MinScale:        MinScale,
		MaxScale:        MaxScale,
	},
	"strong": {
		Name:            "strong",
		FormantStrength: 1,
		EnvelopeBlend:   0.7,
		TiltLimit:       0.2,
		MinScale:        MinScale,
		MaxScale:        3,
	},
}

// DefaultPreset is used when no preset is named.
const DefaultPreset = "balanced"

// LookupPreset returns the named preset; an empty name selects
// DefaultPreset.
func LookupPreset(name string) (Preset, error) {
	if name == "" {
		name = DefaultPreset
	}
	p, ok := presets[name]
	if !ok {
		return Preset{}, fmt.Errorf("spectral: unknown preset %q (have %v)", name, PresetNames())
	}
	return p, nil
}

// PresetNames lists the built-in presets in order.
func PresetNames() []string {
	return slices.Sorted(maps.Keys(presets))
}

// Tilt bounds a brightness factor to the preset's tilt limit.
func (p Preset) Tilt(factor float64) float64 {
	return clamp(factor, 1-p.TiltLimit, 1+p.TiltLimit)
}
