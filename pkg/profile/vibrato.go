package profile

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"

	"github.com/PlumbMonkey/voice-cloner/pkg/segment"
)

// Vibrato is a periodic F0 modulation. Depth is the modulation amplitude
// in semitones.
type Vibrato struct {
	Rate  float64
	Depth float64
}

// Vibrato analysis limits.
const (
	minVibratoRun  = 0.5  // seconds of continuous voicing
	minVibratoRate = 3.0  // Hz
	maxVibratoRate = 10.0 // Hz
	vibratoDead    = 0.02 // semitones ignored around zero
)

// EstimateVibrato measures vibrato on the voiced runs of c that last at
// least half a second. Each run is converted to semitones around its
// median, detrended and smoothed; the rate follows from its zero crossings
// and the depth from its deviation. Runs outside the 3-10 Hz vibrato band
// are ignored. The result is the duration-weighted mean over accepted
// runs, and false when none qualifies.
func EstimateVibrato(c *segment.F0Contour) (Vibrato, bool) {
	fr := c.FrameRate()
	minLen := int(minVibratoRun * fr)
	var rates, depths, weights []float64
	for _, run := range voicedRuns(c.Hz, minLen) {
		v, ok := runVibrato(run, fr)
		if !ok {
			continue
		}
		rates = append(rates, v.Rate)
		depths = append(depths, v.Depth)
		weights = append(weights, float64(len(run)))
	}
	if len(rates) == 0 {
		return Vibrato{}, false
	}
	return Vibrato{
		Rate:  stat.Mean(rates, weights),
		Depth: stat.Mean(depths, weights),
	}, true
}

func voicedRuns(hz []float64, minLen int) [][]float64 {
	var runs [][]float64
	start := -1
	for i := 0; i <= len(hz); i++ {
		voiced := i < len(hz) && hz[i] > 0
		switch {
		case voiced && start < 0:
			start = i
		case !voiced && start >= 0:
			if i-start >= minLen {
				runs = append(runs, hz[start:i])
			}
			start = -1
		}
	}
	return runs
}

func runVibrato(run []float64, frameRate float64) (Vibrato, bool) {
	sorted := slices.Clone(run)
	slices.Sort(sorted)
	ref := stat.Quantile(0.5, stat.Empirical, sorted, nil)

	n := len(run)
	xs := make([]float64, n)
	st := make([]float64, n)
	for i, f := range run {
		xs[i] = float64(i)
		st[i] = 12 * math.Log2(f/ref)
	}
	alpha, beta := stat.LinearRegression(xs, st, nil, false)
	resid := make([]float64, n)
	for i := range st {
		resid[i] = st[i] - (alpha + beta*xs[i])
	}
	// 3-point moving average against frame-level jitter
	smooth := make([]float64, n)
	for i := range resid {
		lo, hi := max(0, i-1), min(n-1, i+1)
		smooth[i] = stat.Mean(resid[lo:hi+1], nil)
	}

	crossings := 0
	sign := 0
	for _, v := range smooth {
		s := 0
		switch {
		case v > vibratoDead:
			s = 1
		case v < -vibratoDead:
			s = -1
		}
		if s != 0 {
			if sign != 0 && s != sign {
				crossings++
			}
			sign = s
		}
	}
	seconds := float64(n) / frameRate
	rate := float64(crossings) / 2 / seconds
	if rate < minVibratoRate || rate > maxVibratoRate {
		return Vibrato{}, false
	}
	return Vibrato{Rate: rate, Depth: math.Sqrt2 * stat.StdDev(smooth, nil)}, true
}
