// Package profile extracts and persists speaker profiles.
//
// A Profile is the aggregate acoustic identity of one speaker, built from
// that speaker's training segments: LPC formants (histogram mode across
// segments), mean spectral centroid, rolloff and cepstral vector, the
// global voiced pitch range and vibrato parameters. Profiles parameterise
// the DSP conversion path and are immutable once built.
package profile

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/PlumbMonkey/voice-cloner/pkg/audio/fbank"
	"github.com/PlumbMonkey/voice-cloner/pkg/voxerr"
)

// Defaults used when a descriptor cannot be measured.
const (
	DefaultCentroid     = 2000.0
	DefaultRolloff      = 8000.0
	DefaultPitchMin     = 60.0
	DefaultPitchMax     = 300.0
	DefaultVibratoRate  = 5.0
	DefaultVibratoDepth = 0.05
)

// PitchRange is a (min, max) fundamental frequency pair in Hz. It encodes
// as a two-element JSON array.
type PitchRange struct {
	Min float64 `msgpack:"min"`
	Max float64 `msgpack:"max"`
}

// DefaultPitchRange is reported when no frame is voiced.
func DefaultPitchRange() PitchRange {
	return PitchRange{Min: DefaultPitchMin, Max: DefaultPitchMax}
}

// Center returns the geometric centre of the range.
func (r PitchRange) Center() float64 {
	if r.Min <= 0 || r.Max <= 0 {
		return 0
	}
	return math.Sqrt(r.Min * r.Max)
}

func (r PitchRange) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{r.Min, r.Max})
}

func (r *PitchRange) UnmarshalJSON(b []byte) error {
	var v [2]float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	r.Min, r.Max = v[0], v[1]
	return nil
}

// Profile is the persisted speaker identity.
type Profile struct {
	Formants     []float64  `json:"formant_frequencies" msgpack:"formants"`
	Centroid     float64    `json:"spectral_centroid" msgpack:"centroid"`
	Rolloff      float64    `json:"spectral_rolloff" msgpack:"rolloff"`
	MFCCMean     []float64  `json:"mfcc_mean" msgpack:"mfcc"`
	PitchRange   PitchRange `json:"pitch_range" msgpack:"pitch"`
	VibratoRate  float64    `json:"vibrato_rate" msgpack:"vibrato_rate"`
	VibratoDepth float64    `json:"vibrato_depth" msgpack:"vibrato_depth"`

	RMS        float64   `json:"rms" msgpack:"rms"`
	SampleRate int       `json:"sample_rate" msgpack:"sr"`
	Label      string    `json:"label,omitempty" msgpack:"label,omitempty"`
	Segments   int       `json:"segments" msgpack:"segments"`
	CreatedAt  time.Time `json:"created_at" msgpack:"created_at"`
}

// Validate checks the structural invariants of a profile.
func (p *Profile) Validate() error {
	switch {
	case p == nil:
		return fmt.Errorf("profile: nil")
	case p.PitchRange.Min > p.PitchRange.Max:
		return fmt.Errorf("profile: pitch range min %.1f > max %.1f", p.PitchRange.Min, p.PitchRange.Max)
	case p.Centroid <= 0:
		return fmt.Errorf("profile: non-positive centroid %.1f", p.Centroid)
	case p.SampleRate <= 0:
		return fmt.Errorf("profile: invalid sample rate %d", p.SampleRate)
	}
	return nil
}

// Envelope reconstructs the target magnitude envelope with fftSize/2+1
// linear bins from the mean cepstral vector. It returns nil when the
// profile has no cepstral data.
func (p *Profile) Envelope(fftSize int) []float64 {
	if len(p.MFCCMean) == 0 {
		return nil
	}
	cfg := fbank.ForRate(p.SampleRate)
	cfg.FFTSize = fftSize
	cfg.WindowSize = fftSize
	return fbank.New(cfg).Envelope(p.MFCCMean)
}

// SaveJSON writes the human-readable profile record to path.
func SaveJSON(path string, p *Profile) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return voxerr.File(voxerr.IOFailure, "profile.save", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return voxerr.File(voxerr.IOFailure, "profile.save", path, err)
	}
	return nil
}

// LoadJSON reads a profile written by SaveJSON.
func LoadJSON(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, voxerr.File(voxerr.IOFailure, "profile.load", path, err)
	}
	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, voxerr.File(voxerr.FileInvalid, "profile.load", path, err)
	}
	if err := p.Validate(); err != nil {
		return nil, voxerr.File(voxerr.FileInvalid, "profile.load", path, err)
	}
	return &p, nil
}
