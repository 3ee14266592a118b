package dsp

import "math"

// Biquad is a second-order IIR section in transposed direct form II.
type Biquad struct {
	b0, b1, b2, a1, a2 float64
}

// Butterworth 4th order as two cascaded sections.
var butterworth4Q = [2]float64{0.5412, 1.3066}

// LowPass returns an RBJ low-pass section.
func LowPass(cutoff float64, sampleRate int, q float64) Biquad {
	w0, alpha := rbj(cutoff, sampleRate, q)
	cw := math.Cos(w0)
	a0 := 1 + alpha
	return Biquad{
		b0: (1 - cw) / 2 / a0,
		b1: (1 - cw) / a0,
		b2: (1 - cw) / 2 / a0,
		a1: -2 * cw / a0,
		a2: (1 - alpha) / a0,
	}
}

// HighPass returns an RBJ high-pass section.
func HighPass(cutoff float64, sampleRate int, q float64) Biquad {
	w0, alpha := rbj(cutoff, sampleRate, q)
	cw := math.Cos(w0)
	a0 := 1 + alpha
	return Biquad{
		b0: (1 + cw) / 2 / a0,
		b1: -(1 + cw) / a0,
		b2: (1 + cw) / 2 / a0,
		a1: -2 * cw / a0,
		a2: (1 - alpha) / a0,
	}
}

func rbj(cutoff float64, sampleRate int, q float64) (w0, alpha float64) {
	nyq := float64(sampleRate) / 2
	cutoff = math.Max(1, math.Min(cutoff, nyq*0.99))
	w0 = 2 * math.Pi * cutoff / float64(sampleRate)
	alpha = math.Sin(w0) / (2 * q)
	return w0, alpha
}

// Apply filters x and returns the result.
func (f Biquad) Apply(x []float64) []float64 {
	out := make([]float64, len(x))
	var z1, z2 float64
	for i, in := range x {
		y := f.b0*in + z1
		z1 = f.b1*in - f.a1*y + z2
		z2 = f.b2*in - f.a2*y
		out[i] = y
	}
	return out
}

// Butter4LowPass applies a 4th-order Butterworth low-pass filter.
func Butter4LowPass(x []float64, cutoff float64, sampleRate int) []float64 {
	for _, q := range butterworth4Q {
		x = LowPass(cutoff, sampleRate, q).Apply(x)
	}
	return x
}

// Butter4HighPass applies a 4th-order Butterworth high-pass filter.
func Butter4HighPass(x []float64, cutoff float64, sampleRate int) []float64 {
	for _, q := range butterworth4Q {
		x = HighPass(cutoff, sampleRate, q).Apply(x)
	}
	return x
}
