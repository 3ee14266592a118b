package fbank

import "math"

// HTK mel scale.
func hzToMel(hz float64) float64 { return 2595 * math.Log10(1+hz/700) }

func melToHz(mel float64) float64 { return 700 * (math.Pow(10, mel/2595) - 1) }

// melEdges returns the numMels+2 band edges in Hz, equally spaced in mel
// between lowFreq and highFreq. Band m spans edges[m]..edges[m+2] and
// peaks at edges[m+1].
func melEdges(numMels int, lowFreq, highFreq float64) []float64 {
	lo, hi := hzToMel(lowFreq), hzToMel(highFreq)
	step := (hi - lo) / float64(numMels+1)
	edges := make([]float64, numMels+2)
	for i := range edges {
		edges[i] = melToHz(lo + float64(i)*step)
	}
	return edges
}

// melFilterBank returns numMels triangular filters over the fftSize/2+1
// linear bins. Weights are evaluated at each bin's centre frequency, so
// neighbouring filters overlap smoothly. A band too narrow to cover any
// bin gets weight 1 on the bin nearest its peak.
func melFilterBank(numMels, fftSize, sampleRate int, lowFreq, highFreq float64) [][]float64 {
	bins := fftSize/2 + 1
	binHz := float64(sampleRate) / float64(fftSize)
	edges := melEdges(numMels, lowFreq, highFreq)

	bank := make([][]float64, numMels)
	for m := range bank {
		left, peak, right := edges[m], edges[m+1], edges[m+2]
		w := make([]float64, bins)
		covered := false
		first := max(0, int(math.Floor(left/binHz)))
		last := min(bins-1, int(math.Ceil(right/binHz)))
		for k := first; k <= last; k++ {
			f := float64(k) * binHz
			rise := (f - left) / (peak - left)
			fall := (right - f) / (right - peak)
			if v := math.Min(rise, fall); v > 0 {
				w[k] = v
				covered = true
			}
		}
		if !covered {
			w[min(bins-1, int(math.Round(peak/binHz)))] = 1
		}
		bank[m] = w
	}
	return bank
}

// MelCenters returns the peak frequency in Hz of every mel band.
func (e *Extractor) MelCenters() []float64 {
	edges := melEdges(e.cfg.NumMels, e.cfg.LowFreq, e.cfg.HighFreq)
	return edges[1 : len(edges)-1]
}
