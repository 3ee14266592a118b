package cascade

import (
	"context"
	"math"

	"github.com/PlumbMonkey/voice-cloner/pkg/audio/pcm"
	"github.com/PlumbMonkey/voice-cloner/pkg/spectral"
)

// Simulation approximates a voice change with DSP alone: the pitch shift,
// a brightness tilt that follows the shift direction, and a mild bit-depth
// reduction that grows with the shift. It needs nothing and is always
// available.
type Simulation struct{}

func (Simulation) Name() string    { return "simulation" }
func (Simulation) Available() bool { return true }

// Convert implements Strategy.
func (Simulation) Convert(_ context.Context, req Request) (*pcm.Buffer, error) {
	p := SimulationParams(req.PitchShift)
	p.TargetRMS = req.Source.RMS()
	return spectral.Chain(req.Source, p), nil
}

// SimulationParams returns the chain used for a pitch shift of semitones:
// brightness 1 ± 0.5·|shift|/24 (brighter when raising) and quantisation to
// 16 - round(4·|shift|/24) bits. A zero shift is a plain level pass.
func SimulationParams(semitones float64) spectral.Params {
	if semitones == 0 {
		return spectral.Params{}
	}
	amount := math.Abs(semitones) / spectral.MaxSemitones
	return spectral.Params{
		PitchShift: semitones,
		Brightness: 1 + math.Copysign(0.5*amount, semitones),
		Quantize:   16 - int(math.Round(4*amount)),
	}
}
