package dsp

import (
	"math"
	"slices"
)

// YIN estimates the fundamental frequency of successive frames.
type YIN struct {
	SampleRate int
	FrameSize  int
	Hop        int
	FMin       float64
	FMax       float64
	Threshold  float64 // cumulative mean normalised difference threshold
	MinRMS     float64 // frames quieter than this are unvoiced
}

// NewYIN returns a tracker for the band [fmin, fmax] with frame sizes
// derived from the sample rate.
func NewYIN(sampleRate int, fmin, fmax float64) *YIN {
	tauMax := int(math.Ceil(float64(sampleRate) / fmin))
	return &YIN{
		SampleRate: sampleRate,
		FrameSize:  NextPow2(2 * tauMax),
		Hop:        max(1, sampleRate/100),
		FMin:       fmin,
		FMax:       fmax,
		Threshold:  0.15,
		MinRMS:     1e-3,
	}
}

// Pitch is one frame estimate. Hz is zero when the frame is unvoiced.
type Pitch struct {
	Hz     float64
	Voiced bool
}

// Track returns one estimate per hop.
func (y *YIN) Track(x []float64) []Pitch {
	tauMin := max(2, int(float64(y.SampleRate)/y.FMax))
	tauMax := int(math.Ceil(float64(y.SampleRate) / y.FMin))
	w := y.FrameSize - tauMax
	if w <= 0 || len(x) < y.FrameSize {
		return nil
	}
	d := make([]float64, tauMax+1)
	cmnd := make([]float64, tauMax+1)
	var out []Pitch
	for start := 0; start+y.FrameSize <= len(x); start += y.Hop {
		frame := x[start : start+y.FrameSize]
		var energy float64
		for _, v := range frame[:w] {
			energy += v * v
		}
		if math.Sqrt(energy/float64(w)) < y.MinRMS {
			out = append(out, Pitch{})
			continue
		}
		for tau := 1; tau <= tauMax; tau++ {
			var s float64
			for j := range w {
				diff := frame[j] - frame[j+tau]
				s += diff * diff
			}
			d[tau] = s
		}
		cmnd[0] = 1
		var running float64
		for tau := 1; tau <= tauMax; tau++ {
			running += d[tau]
			if running == 0 {
				cmnd[tau] = 1
			} else {
				cmnd[tau] = d[tau] * float64(tau) / running
			}
		}
		tau := -1
		for t := tauMin; t <= tauMax; t++ {
			if cmnd[t] < y.Threshold {
				for t+1 <= tauMax && cmnd[t+1] < cmnd[t] {
					t++
				}
				tau = t
				break
			}
		}
		if tau < 0 {
			out = append(out, Pitch{})
			continue
		}
		est := float64(tau)
		if tau > 1 && tau < tauMax {
			a, b, c := cmnd[tau-1], cmnd[tau], cmnd[tau+1]
			if den := a - 2*b + c; den != 0 {
				est += 0.5 * (a - c) / den
			}
		}
		hz := float64(y.SampleRate) / est
		if hz < y.FMin || hz > y.FMax {
			out = append(out, Pitch{})
			continue
		}
		out = append(out, Pitch{Hz: hz, Voiced: true})
	}
	return out
}

// MedianHz returns the median of voiced estimates, or 0 when none are.
func MedianHz(track []Pitch) float64 {
	var v []float64
	for _, p := range track {
		if p.Voiced {
			v = append(v, p.Hz)
		}
	}
	if len(v) == 0 {
		return 0
	}
	slices.Sort(v)
	return v[len(v)/2]
}
