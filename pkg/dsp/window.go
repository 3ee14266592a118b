// Package dsp holds the numeric building blocks shared by the analysis and
// conversion packages: windows, a short-time Fourier transform, linear
// prediction, biquad filters, a YIN pitch tracker and frame energy.
//
// All functions operate on float64 slices and never modify their inputs.
package dsp

import "math"

// Hann returns a periodic Hann window, suitable for overlap-add.
func Hann(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}

// Hamming returns a symmetric Hamming window.
func Hamming(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := range w {
		w[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

// NextPow2 returns the smallest power of two >= n.
func NextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// Linspace returns n evenly spaced values over [lo, hi].
func Linspace(lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = lo
		return out
	}
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}

// Interp linearly samples y (defined at integer positions) at fractional
// position x. Out-of-range positions return 0.
func Interp(y []float64, x float64) float64 {
	if x < 0 || x > float64(len(y)-1) || len(y) == 0 {
		return 0
	}
	i := int(x)
	if i >= len(y)-1 {
		return y[len(y)-1]
	}
	f := x - float64(i)
	return y[i]*(1-f) + y[i+1]*f
}

// ResampleLinear stretches x to exactly n samples by linear interpolation.
func ResampleLinear(x []float64, n int) []float64 {
	out := make([]float64, n)
	if len(x) == 0 || n == 0 {
		return out
	}
	if n == 1 || len(x) == 1 {
		for i := range out {
			out[i] = x[0]
		}
		return out
	}
	scale := float64(len(x)-1) / float64(n-1)
	for i := range out {
		out[i] = Interp(x, float64(i)*scale)
	}
	return out
}
