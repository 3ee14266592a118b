package fbank

import "math"

// DCT applies an orthonormal DCT-II to logmel and keeps the first n
// coefficients.
func DCT(logmel []float64, n int) []float64 {
	m := len(logmel)
	n = min(n, m)
	out := make([]float64, n)
	for k := range n {
		var s float64
		for i, v := range logmel {
			s += v * math.Cos(math.Pi*float64(k)*(float64(i)+0.5)/float64(m))
		}
		scale := math.Sqrt(2 / float64(m))
		if k == 0 {
			scale = math.Sqrt(1 / float64(m))
		}
		out[k] = s * scale
	}
	return out
}

// InverseDCT reconstructs numMels log mel energies from truncated
// orthonormal DCT-II coefficients. Missing coefficients are zero, so the
// result is a smoothed envelope.
func InverseDCT(coeffs []float64, numMels int) []float64 {
	out := make([]float64, numMels)
	for i := range out {
		var s float64
		for k, c := range coeffs {
			scale := math.Sqrt(2 / float64(numMels))
			if k == 0 {
				scale = math.Sqrt(1 / float64(numMels))
			}
			s += c * scale * math.Cos(math.Pi*float64(k)*(float64(i)+0.5)/float64(numMels))
		}
		out[i] = s
	}
	return out
}

// MFCC returns n cepstral coefficients per frame of x.
func (e *Extractor) MFCC(x []float64, n int) [][]float64 {
	logmel := e.LogMel(x)
	out := make([][]float64, len(logmel))
	for t, row := range logmel {
		out[t] = DCT(row, n)
	}
	return out
}

// Envelope converts a cepstral vector back to a linear-frequency magnitude
// envelope with FFTSize/2+1 bins. Mel band energies are placed at their
// centre frequencies and linearly interpolated; bins outside the band
// range take the nearest band value.
func (e *Extractor) Envelope(mfcc []float64) []float64 {
	logmel := InverseDCT(mfcc, e.cfg.NumMels)
	centers := e.MelCenters()
	bins := e.cfg.FFTSize/2 + 1
	binHz := float64(e.cfg.SampleRate) / float64(e.cfg.FFTSize)
	env := make([]float64, bins)
	j := 0
	for k := range env {
		hz := float64(k) * binHz
		for j < len(centers)-1 && centers[j+1] < hz {
			j++
		}
		var lm float64
		switch {
		case hz <= centers[0]:
			lm = logmel[0]
		case j >= len(centers)-1:
			lm = logmel[len(centers)-1]
		default:
			f := (hz - centers[j]) / (centers[j+1] - centers[j])
			lm = logmel[j]*(1-f) + logmel[j+1]*f
		}
		// log power to magnitude
		env[k] = math.Exp(lm / 2)
	}
	return env
}
