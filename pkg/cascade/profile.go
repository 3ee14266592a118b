package cascade

import (
	"context"
	"log/slog"
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"

	"github.com/PlumbMonkey/voice-cloner/pkg/audio/pcm"
	"github.com/PlumbMonkey/voice-cloner/pkg/profile"
	"github.com/PlumbMonkey/voice-cloner/pkg/segment"
	"github.com/PlumbMonkey/voice-cloner/pkg/spectral"
)

// Profile converts with the spectral chain parameterised by a target
// speaker profile.
//
// The pitch shift is the request's shift plus, with AutoPitch, the
// interval from the source's median F0 to the centre of the target's
// pitch range. Formants are warped from where the pitch shift leaves them
// to the target formants. The target's cepstral envelope is blended in
// when the source shares the profile's sample rate; otherwise the
// centroid ratio drives a brightness tilt. Loudness is matched to the
// target's RMS.
type Profile struct {
	Target    *profile.Profile
	Extractor *profile.Extractor
	AutoPitch bool
}

// NewProfile returns a Profile strategy with automatic pitch matching.
func NewProfile(target *profile.Profile) *Profile {
	return &Profile{
		Target:    target,
		Extractor: profile.NewExtractor(profile.DefaultConfig()),
		AutoPitch: true,
	}
}

func (p *Profile) Name() string { return "profile" }

func (p *Profile) Available() bool {
	return p != nil && p.Target != nil && p.Target.Validate() == nil
}

// Convert implements Strategy.
func (p *Profile) Convert(_ context.Context, req Request) (*pcm.Buffer, error) {
	params, err := p.Params(req)
	if err != nil {
		return nil, err
	}
	return spectral.Chain(req.Source, params), nil
}

// Params derives the chain parameters for req.
func (p *Profile) Params(req Request) (spectral.Params, error) {
	src := req.Source
	pr := req.preset()
	ext := p.Extractor
	if ext == nil {
		ext = profile.NewExtractor(profile.DefaultConfig())
	}

	shift := req.PitchShift
	if p.AutoPitch {
		if auto, ok := pitchInterval(src, p.Target.PitchRange.Center()); ok {
			shift += auto
		}
	}
	shift = max(-spectral.MaxSemitones, min(spectral.MaxSemitones, shift))

	params := spectral.Params{
		PitchShift:      shift,
		FormantStrength: pr.FormantStrength,
		TargetRMS:       p.Target.RMS,
		MinScale:        pr.MinScale,
		MaxScale:        pr.MaxScale,
	}

	pitchRatio := math.Exp2(shift / 12)
	if formants, err := ext.Formants(src); err == nil {
		params.FormantRatio = formantRatio(formants, p.Target.Formants, pitchRatio)
	} else {
		slog.Debug("cascade: source formants unavailable", "error", err)
	}

	var env []float64
	if src.SampleRate == p.Target.SampleRate {
		env = p.Target.Envelope(spectral.FrameSize)
	}
	if len(env) > 0 {
		params.Envelope = env
		params.EnvelopeBlend = req.blend(pr)
	} else if d, err := ext.Spectral(src); err == nil && d.Centroid > 0 {
		params.Brightness = pr.Tilt(p.Target.Centroid / d.Centroid)
	}

	slog.Debug("cascade: profile params",
		"pitch", params.PitchShift,
		"formant_ratio", params.FormantRatio,
		"envelope", len(params.Envelope) > 0,
		"brightness", params.Brightness,
		"target_rms", params.TargetRMS)
	return params, nil
}

// pitchInterval returns the shift in semitones that moves the median
// voiced F0 of buf to target Hz.
func pitchInterval(buf *pcm.Buffer, target float64) (float64, bool) {
	if target <= 0 {
		return 0, false
	}
	c, err := segment.TrackF0(buf, profile.DefaultPitchMin/2, profile.DefaultPitchMax*2)
	if err != nil {
		return 0, false
	}
	voiced := c.Voiced()
	if len(voiced) == 0 {
		return 0, false
	}
	slices.Sort(voiced)
	med := stat.Quantile(0.5, stat.Empirical, voiced, nil)
	if med <= 0 {
		return 0, false
	}
	return 12 * math.Log2(target/med), true
}

// formantRatio is the geometric mean of target/source over the formant
// slots both sides have, after the source has been scaled by pitchRatio.
// It returns 1 when nothing matches.
func formantRatio(src, tgt []float64, pitchRatio float64) float64 {
	var logSum float64
	n := 0
	for i := range min(len(src), len(tgt)) {
		s := src[i] * pitchRatio
		if s <= 0 || tgt[i] <= 0 {
			continue
		}
		logSum += math.Log(tgt[i] / s)
		n++
	}
	if n == 0 {
		return 1
	}
	return math.Exp(logSum / float64(n))
}
