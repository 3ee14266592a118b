package dsp

import "math"

// FrameRMS returns the RMS of centred frames: frame t covers samples
// [t*hop-frame/2, t*hop+frame/2) with zero padding outside the signal.
// A non-positive frame or hop yields nil.
func FrameRMS(x []float64, frame, hop int) []float64 {
	if frame <= 0 || hop <= 0 {
		return nil
	}
	nf := len(x)/hop + 1
	out := make([]float64, nf)
	half := frame / 2
	for t := range nf {
		start := t*hop - half
		var s float64
		for i := max(0, start); i < min(len(x), start+frame); i++ {
			s += x[i] * x[i]
		}
		out[t] = math.Sqrt(s / float64(frame))
	}
	return out
}

// AmplitudeToDB converts an amplitude to decibels relative to ref.
func AmplitudeToDB(a, ref float64) float64 {
	const amin = 1e-10
	return 20 * math.Log10(math.Max(a, amin)/math.Max(ref, amin))
}
