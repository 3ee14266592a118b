package profile

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/PlumbMonkey/voice-cloner/pkg/audio/pcm"
	"github.com/PlumbMonkey/voice-cloner/pkg/dsp"
	"github.com/PlumbMonkey/voice-cloner/pkg/segment"
	"github.com/PlumbMonkey/voice-cloner/pkg/storage"
	"github.com/PlumbMonkey/voice-cloner/pkg/voxerr"
)

// Aggregate builds a profile from per-segment features at sampleRate.
// Centroid, rolloff, cepstral vector and loudness are averaged; formants
// are the most populated bins of a histogram over every segment formant;
// the pitch range is the global voiced (min, max). Nil entries are
// skipped. Zero usable segments is an AnalysisDegenerate error.
// CreatedAt is left zero; the Extractor stamps it.
func Aggregate(features []*Features, sampleRate int, cfg Config) (*Profile, error) {
	var ok []*Features
	for _, f := range features {
		if f != nil {
			ok = append(ok, f)
		}
	}
	if len(ok) == 0 {
		return nil, voxerr.Newf(voxerr.AnalysisDegenerate, "profile.aggregate", "no segment analysed")
	}

	p := &Profile{
		SampleRate:   sampleRate,
		Segments:     len(ok),
		PitchRange:   DefaultPitchRange(),
		VibratoRate:  DefaultVibratoRate,
		VibratoDepth: DefaultVibratoDepth,
	}

	var centroids, rolloffs, rms, all []float64
	p.MFCCMean = make([]float64, len(ok[0].MFCC))
	for _, f := range ok {
		centroids = append(centroids, f.Centroid)
		rolloffs = append(rolloffs, f.Rolloff)
		rms = append(rms, f.RMS)
		all = append(all, f.Formants...)
		if len(f.MFCC) == len(p.MFCCMean) {
			floats.Add(p.MFCCMean, f.MFCC)
		}
	}
	floats.Scale(1/float64(len(ok)), p.MFCCMean)
	p.Centroid = stat.Mean(centroids, nil)
	p.Rolloff = stat.Mean(rolloffs, nil)
	p.RMS = stat.Mean(rms, nil)
	p.Formants = FormantModes(all, cfg)

	var lo, hi []float64
	var rates, depths []float64
	for _, f := range ok {
		if f.Voiced {
			lo = append(lo, f.Pitch.Min)
			hi = append(hi, f.Pitch.Max)
		}
		if f.Vibrato {
			rates = append(rates, f.VibratoRate)
			depths = append(depths, f.VibratoDepth)
		}
	}
	if len(lo) > 0 {
		p.PitchRange = PitchRange{Min: floats.Min(lo), Max: floats.Max(hi)}
	}
	if len(rates) > 0 {
		p.VibratoRate = stat.Mean(rates, nil)
		p.VibratoDepth = stat.Mean(depths, nil)
	}
	if p.Centroid <= 0 {
		p.Centroid = DefaultCentroid
	}
	return p, nil
}

// FormantModes histograms values over [HistLow, HistHigh) and returns the
// centres of the NumFormants most populated bins in ascending order. Ties
// prefer the lower bin, so the result only depends on the values.
func FormantModes(values []float64, cfg Config) []float64 {
	dividers := dsp.Linspace(cfg.HistLow, cfg.HistHigh, cfg.HistEdges)
	var x []float64
	for _, v := range values {
		if v >= cfg.HistLow && v < cfg.HistHigh {
			x = append(x, v)
		}
	}
	if len(x) == 0 {
		return nil
	}
	slices.Sort(x)
	counts := stat.Histogram(nil, dividers, x, nil)

	bins := make([]int, len(counts))
	for i := range bins {
		bins[i] = i
	}
	slices.SortStableFunc(bins, func(a, b int) int {
		return cmp.Compare(counts[b], counts[a])
	})
	var out []float64
	for _, b := range bins[:min(cfg.NumFormants, len(bins))] {
		if counts[b] == 0 {
			break
		}
		out = append(out, (dividers[b]+dividers[b+1])/2)
	}
	slices.Sort(out)
	return out
}

// FromBuffers analyses each buffer and aggregates the results. Buffers
// that fail analysis are logged and skipped.
func (e *Extractor) FromBuffers(ctx context.Context, bufs []*pcm.Buffer) (*Profile, error) {
	if len(bufs) == 0 {
		return nil, voxerr.Newf(voxerr.AnalysisDegenerate, "profile.extract", "no segments")
	}
	features := make([]*Features, 0, len(bufs))
	for i, b := range bufs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f, err := e.Analyze(b, nil)
		if err != nil {
			slog.Warn("profile: segment skipped", "index", i, "error", err)
			continue
		}
		features = append(features, f)
	}
	prof, err := Aggregate(features, bufs[0].SampleRate, e.cfg)
	if err != nil {
		return nil, err
	}
	prof.CreatedAt = time.Now().UTC()
	return prof, nil
}

// FromSegments loads the given segment paths from store and builds a
// profile. Stored F0 contours are reused when present.
func (e *Extractor) FromSegments(ctx context.Context, store storage.FileStore, paths []string) (*Profile, error) {
	if len(paths) == 0 {
		return nil, voxerr.Newf(voxerr.AnalysisDegenerate, "profile.extract", "no segments")
	}
	var features []*Features
	sampleRate := 0
	for i, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		buf, err := segment.LoadSegment(ctx, store, p)
		if err != nil {
			slog.Warn("profile: segment unreadable", "path", p, "error", err)
			continue
		}
		contour, err := segment.ReadF0(ctx, store, p)
		if err != nil {
			contour = nil
		}
		f, err := e.Analyze(buf, contour)
		if err != nil {
			slog.Warn("profile: segment skipped", "path", p, "error", err)
			continue
		}
		if sampleRate == 0 {
			sampleRate = buf.SampleRate
		}
		features = append(features, f)
		if (i+1)%50 == 0 {
			slog.Info("profile: analysed", "segments", i+1, "of", len(paths))
		}
	}
	prof, err := Aggregate(features, sampleRate, e.cfg)
	if err != nil {
		return nil, err
	}
	prof.CreatedAt = time.Now().UTC()
	slog.Info("profile: extracted",
		"segments", prof.Segments,
		"skipped", len(paths)-prof.Segments,
		"formants", prof.Formants,
		"centroid", int(prof.Centroid),
		"pitch_min", int(prof.PitchRange.Min),
		"pitch_max", int(prof.PitchRange.Max))
	return prof, nil
}
