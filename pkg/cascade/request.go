package cascade

import (
	"log/slog"
	"math"
	"slices"

	"github.com/PlumbMonkey/voice-cloner/pkg/audio/pcm"
	"github.com/PlumbMonkey/voice-cloner/pkg/spectral"
)

// F0Method names the pitch extractor an external toolkit should use.
type F0Method string

// Supported F0 methods.
const (
	Crepe   F0Method = "crepe"
	DIO     F0Method = "dio"
	Harvest F0Method = "harvest"
	RMVPE   F0Method = "rmvpe"
)

// DefaultF0Method replaces unknown methods.
const DefaultF0Method = Crepe

var f0Methods = []F0Method{Crepe, DIO, Harvest, RMVPE}

// F0Methods lists the supported methods.
func F0Methods() []F0Method { return slices.Clone(f0Methods) }

// ParseF0Method reports whether s names a supported method.
func ParseF0Method(s string) (F0Method, bool) {
	m := F0Method(s)
	return m, slices.Contains(f0Methods, m)
}

// Request is one conversion.
type Request struct {
	Source *pcm.Buffer

	// PitchShift in semitones, positive raises the pitch. Clamped to
	// ±spectral.MaxSemitones.
	PitchShift float64

	F0Method F0Method

	// Blend is how far toward the target timbre to move, in [0, 1]. Zero
	// selects the preset's default. The external toolkit receives it as
	// its cluster ratio.
	Blend float64

	// Preset names a spectral preset; empty selects the default.
	Preset string
}

// Normalize returns a copy of r with every field in range. An unknown F0
// method becomes DefaultF0Method with a warning; it is never an error.
func (r Request) Normalize() Request {
	if r.F0Method == "" {
		r.F0Method = DefaultF0Method
	} else if _, ok := ParseF0Method(string(r.F0Method)); !ok {
		slog.Warn("cascade: invalid f0 method, using default", "f0_method", r.F0Method, "default", DefaultF0Method)
		r.F0Method = DefaultF0Method
	}
	if math.IsNaN(r.PitchShift) {
		r.PitchShift = 0
	}
	if r.PitchShift < -spectral.MaxSemitones || r.PitchShift > spectral.MaxSemitones {
		slog.Warn("cascade: pitch shift clamped", "pitch_shift", r.PitchShift)
		r.PitchShift = max(-spectral.MaxSemitones, min(spectral.MaxSemitones, r.PitchShift))
	}
	if math.IsNaN(r.Blend) {
		r.Blend = 0
	}
	r.Blend = max(0, min(1, r.Blend))
	if _, err := spectral.LookupPreset(r.Preset); err != nil {
		slog.Warn("cascade: unknown preset, using default", "preset", r.Preset, "default", spectral.DefaultPreset)
		r.Preset = spectral.DefaultPreset
	}
	return r
}

// preset resolves r.Preset, assuming r is normalised.
func (r Request) preset() spectral.Preset {
	p, err := spectral.LookupPreset(r.Preset)
	if err != nil {
		p, _ = spectral.LookupPreset("")
	}
	return p
}

// blend returns r.Blend, or the preset default when zero.
func (r Request) blend(p spectral.Preset) float64 {
	if r.Blend > 0 {
		return r.Blend
	}
	return p.EnvelopeBlend
}
