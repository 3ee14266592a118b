package dsp

import (
	"errors"
	"math"
	"math/cmplx"
	"slices"

	"gonum.org/v1/gonum/mat"
)

// ErrDegenerate is returned when a frame carries too little energy for a
// stable linear-prediction fit.
var ErrDegenerate = errors.New("dsp: degenerate frame")

// Autocorr returns the autocorrelation of x for lags 0..maxLag.
func Autocorr(x []float64, maxLag int) []float64 {
	r := make([]float64, maxLag+1)
	for lag := 0; lag <= maxLag && lag < len(x); lag++ {
		var s float64
		for i := lag; i < len(x); i++ {
			s += x[i] * x[i-lag]
		}
		r[lag] = s
	}
	return r
}

// LPC fits an all-pole model of the given order to frame using the
// autocorrelation method and the Levinson-Durbin recursion. The returned
// polynomial is [1, a1, ..., a_order].
func LPC(frame []float64, order int) ([]float64, error) {
	if len(frame) <= order {
		return nil, ErrDegenerate
	}
	r := Autocorr(frame, order)
	if r[0] < 1e-10 {
		return nil, ErrDegenerate
	}
	a := make([]float64, order+1)
	a[0] = 1
	e := r[0]
	tmp := make([]float64, order+1)
	for i := 1; i <= order; i++ {
		acc := r[i]
		for j := 1; j < i; j++ {
			acc += a[j] * r[i-j]
		}
		k := -acc / e
		copy(tmp, a)
		for j := 1; j < i; j++ {
			a[j] = tmp[j] + k*tmp[i-j]
		}
		a[i] = k
		e *= 1 - k*k
		if e <= 0 || math.IsNaN(e) {
			return nil, ErrDegenerate
		}
	}
	for _, v := range a {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, ErrDegenerate
		}
	}
	return a, nil
}

// PolyRoots returns the complex roots of the polynomial
// a[0]*z^n + a[1]*z^(n-1) + ... + a[n] as eigenvalues of its companion
// matrix.
func PolyRoots(a []float64) ([]complex128, error) {
	for len(a) > 0 && a[0] == 0 {
		a = a[1:]
	}
	n := len(a) - 1
	if n < 1 {
		return nil, nil
	}
	c := mat.NewDense(n, n, nil)
	for j := range n {
		c.Set(0, j, -a[j+1]/a[0])
	}
	for i := 1; i < n; i++ {
		c.Set(i, i-1, 1)
	}
	var eig mat.Eigen
	if ok := eig.Factorize(c, mat.EigenNone); !ok {
		return nil, ErrDegenerate
	}
	return eig.Values(nil), nil
}

// RootFrequencies converts polynomial roots to frequencies in Hz, keeping
// only roots in the upper half plane strictly between 0 and Nyquist.
// Results are sorted ascending.
func RootFrequencies(roots []complex128, sampleRate int) []float64 {
	nyq := float64(sampleRate) / 2
	var out []float64
	for _, z := range roots {
		if imag(z) <= 0 {
			continue
		}
		hz := cmplx.Phase(z) * float64(sampleRate) / (2 * math.Pi)
		if hz > 0 && hz < nyq {
			out = append(out, hz)
		}
	}
	slices.Sort(out)
	return out
}

// PreEmphasis applies y[n] = x[n] - coef*x[n-1].
func PreEmphasis(x []float64, coef float64) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		out[i] = x[i]
		if i > 0 {
			out[i] -= coef * x[i-1]
		}
	}
	return out
}
