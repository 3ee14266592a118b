package profile

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/PlumbMonkey/voice-cloner/pkg/audio/fbank"
	"github.com/PlumbMonkey/voice-cloner/pkg/audio/pcm"
	"github.com/PlumbMonkey/voice-cloner/pkg/audio/resampler"
	"github.com/PlumbMonkey/voice-cloner/pkg/dsp"
	"github.com/PlumbMonkey/voice-cloner/pkg/segment"
	"github.com/PlumbMonkey/voice-cloner/pkg/voxerr"
)

// Config controls per-segment analysis and aggregation.
type Config struct {
	NumFormants    int     // formants kept per frame; LPC order is twice this
	FormantRate    int     // analysis rate for LPC, about twice the highest formant; 0 analyses at the buffer rate
	MaxBandwidth   float64 // Hz; wider LPC resonances are not formants
	NumMFCC        int     // cepstral coefficients per frame
	RolloffPercent float64 // energy fraction below the rolloff frequency
	PitchMin       float64 // Hz, F0 search band
	PitchMax       float64

	// Formant histogram [HistLow, HistHigh] split into HistEdges-1 bins.
	HistLow   float64
	HistHigh  float64
	HistEdges int
}

// DefaultConfig returns the standard analysis parameters.
func DefaultConfig() Config {
	return Config{
		NumFormants:    4,
		FormantRate:    10000,
		MaxBandwidth:   400,
		NumMFCC:        13,
		RolloffPercent: 0.85,
		PitchMin:       50,
		PitchMax:       500,
		HistLow:        200,
		HistHigh:       8000,
		HistEdges:      50,
	}
}

// Descriptors are the time-averaged spectral descriptors of one buffer.
type Descriptors struct {
	Centroid float64
	Rolloff  float64
	MFCC     []float64
}

// Features are the analysis results of one segment.
type Features struct {
	Formants []float64
	Descriptors
	RMS float64

	Pitch  PitchRange
	Voiced bool // Pitch was measured rather than defaulted

	VibratoRate  float64
	VibratoDepth float64
	Vibrato      bool // vibrato was measured rather than defaulted
}

// Extractor analyses segments of one speaker. It caches filterbanks per
// sample rate and is not safe for concurrent use.
type Extractor struct {
	cfg   Config
	banks map[int]*fbank.Extractor
}

// NewExtractor returns an Extractor using cfg.
func NewExtractor(cfg Config) *Extractor {
	return &Extractor{cfg: cfg, banks: make(map[int]*fbank.Extractor)}
}

// Config returns the extractor configuration.
func (e *Extractor) Config() Config { return e.cfg }

func (e *Extractor) bank(sampleRate int) *fbank.Extractor {
	fb, ok := e.banks[sampleRate]
	if !ok {
		fb = fbank.New(fbank.ForRate(sampleRate))
		e.banks[sampleRate] = fb
	}
	return fb
}

// Formants estimates up to NumFormants formant frequencies of buf. Each
// 25 ms frame (10 ms hop) is pre-emphasised, Hamming windowed and fitted
// with an LPC polynomial of order 2*NumFormants; the lowest resonances of
// every frame are averaged slot by slot. Degenerate frames are skipped. An
// error of kind AnalysisDegenerate is returned when no frame yields a
// formant.
func (e *Extractor) Formants(buf *pcm.Buffer) ([]float64, error) {
	if e.cfg.FormantRate > 0 && buf.SampleRate != e.cfg.FormantRate {
		var err error
		if buf, err = resampler.Resample(buf, e.cfg.FormantRate); err != nil {
			return nil, voxerr.New(voxerr.AnalysisDegenerate, "profile.formants", err)
		}
	}
	sr := buf.SampleRate
	size := sr * 25 / 1000
	hop := sr / 100
	x := dsp.PreEmphasis(buf.Samples, 0.97)
	win := dsp.Hamming(size)
	frame := make([]float64, size)

	n := e.cfg.NumFormants
	sum := make([]float64, n)
	count := make([]int, n)
	for start := 0; start+size <= len(x); start += hop {
		for i := range frame {
			frame[i] = x[start+i] * win[i]
		}
		fs, err := frameFormants(frame, n, sr, e.cfg.MaxBandwidth)
		if err != nil {
			continue
		}
		for i, f := range fs {
			sum[i] += f
			count[i]++
		}
	}
	var out []float64
	for i := range n {
		if count[i] > 0 {
			out = append(out, sum[i]/float64(count[i]))
		}
	}
	if len(out) == 0 {
		return nil, voxerr.Newf(voxerr.AnalysisDegenerate, "profile.formants", "no frame produced a formant")
	}
	return out, nil
}

// frameFormants returns the n lowest resonances of one windowed frame.
func frameFormants(frame []float64, n, sampleRate int, maxBW float64) ([]float64, error) {
	a, err := dsp.LPC(frame, 2*n)
	if err != nil {
		return nil, err
	}
	roots, err := dsp.PolyRoots(a)
	if err != nil {
		return nil, err
	}
	var narrow []complex128
	for _, z := range roots {
		r := math.Hypot(real(z), imag(z))
		if r <= 0 || r >= 1 {
			continue
		}
		bw := -float64(sampleRate) / math.Pi * math.Log(r)
		if maxBW <= 0 || bw < maxBW {
			narrow = append(narrow, z)
		}
	}
	fs := dsp.RootFrequencies(narrow, sampleRate)
	if len(fs) == 0 {
		return nil, dsp.ErrDegenerate
	}
	return fs[:min(n, len(fs))], nil
}

// Spectral computes the mean spectral centroid, rolloff and cepstral
// vector of buf over 2048-point frames. Frames without energy are left out
// of the centroid and rolloff averages.
func (e *Extractor) Spectral(buf *pcm.Buffer) (Descriptors, error) {
	fb := e.bank(buf.SampleRate)
	power := fb.Power(buf.Samples)
	if len(power) == 0 {
		return Descriptors{}, voxerr.Newf(voxerr.AnalysisDegenerate, "profile.spectral",
			"buffer of %d samples shorter than one frame", buf.Len())
	}
	binHz := float64(buf.SampleRate) / float64(fb.Config().FFTSize)
	freqs := make([]float64, len(power[0]))
	for k := range freqs {
		freqs[k] = float64(k) * binHz
	}

	var centroids, rolloffs []float64
	mfcc := make([]float64, e.cfg.NumMFCC)
	mag := make([]float64, len(freqs))
	for _, p := range power {
		for k, v := range p {
			mag[k] = math.Sqrt(v)
		}
		if total := floats.Sum(mag); total > 1e-10 {
			centroids = append(centroids, floats.Dot(freqs, mag)/total)
			rolloffs = append(rolloffs, rolloff(freqs, mag, total*e.cfg.RolloffPercent))
		}
		floats.Add(mfcc, fbank.DCT(fb.MelFrame(p), e.cfg.NumMFCC))
	}
	if len(centroids) == 0 {
		return Descriptors{}, voxerr.Newf(voxerr.AnalysisDegenerate, "profile.spectral", "no frame carries energy")
	}
	floats.Scale(1/float64(len(power)), mfcc)
	return Descriptors{
		Centroid: stat.Mean(centroids, nil),
		Rolloff:  stat.Mean(rolloffs, nil),
		MFCC:     mfcc,
	}, nil
}

func rolloff(freqs, mag []float64, threshold float64) float64 {
	var acc float64
	for k, m := range mag {
		acc += m
		if acc >= threshold {
			return freqs[k]
		}
	}
	return freqs[len(freqs)-1]
}

// PitchRangeOf returns the (min, max) of the voiced estimates of c, or the
// default range and false when no frame is voiced.
func PitchRangeOf(c *segment.F0Contour) (PitchRange, bool) {
	voiced := c.Voiced()
	if len(voiced) == 0 {
		return DefaultPitchRange(), false
	}
	return PitchRange{Min: floats.Min(voiced), Max: floats.Max(voiced)}, true
}

// EstimatePitchRange tracks F0 over [PitchMin, PitchMax] and returns the
// voiced range. It never fails: tracking errors and unvoiced input yield
// the default range.
func (e *Extractor) EstimatePitchRange(buf *pcm.Buffer) PitchRange {
	c, err := segment.TrackF0(buf, e.cfg.PitchMin, e.cfg.PitchMax)
	if err != nil {
		return DefaultPitchRange()
	}
	r, _ := PitchRangeOf(c)
	return r
}

// Analyze runs every per-segment analysis on buf. contour may be nil, in
// which case F0 is tracked here.
func (e *Extractor) Analyze(buf *pcm.Buffer, contour *segment.F0Contour) (*Features, error) {
	formants, err := e.Formants(buf)
	if err != nil {
		return nil, err
	}
	desc, err := e.Spectral(buf)
	if err != nil {
		return nil, err
	}
	f := &Features{
		Formants:     formants,
		Descriptors:  desc,
		RMS:          buf.RMS(),
		Pitch:        DefaultPitchRange(),
		VibratoRate:  DefaultVibratoRate,
		VibratoDepth: DefaultVibratoDepth,
	}
	if contour == nil {
		contour, err = segment.TrackF0(buf, e.cfg.PitchMin, e.cfg.PitchMax)
		if err != nil {
			return f, nil
		}
	}
	f.Pitch, f.Voiced = PitchRangeOf(contour)
	if v, ok := EstimateVibrato(contour); ok {
		f.VibratoRate, f.VibratoDepth, f.Vibrato = v.Rate, v.Depth, true
	}
	return f, nil
}
