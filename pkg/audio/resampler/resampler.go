package resampler

import (
	"fmt"
	"math"
	"sync"

	resampling "github.com/tphakala/go-audio-resampling"

	"github.com/PlumbMonkey/voice-cloner/pkg/audio/pcm"
)

// OutputLen returns the number of samples n input samples become when
// converted from src to dst Hz.
func OutputLen(n, src, dst int) int {
	return int(math.Round(float64(n) * float64(dst) / float64(src)))
}

// Resample returns buf converted to rate. A buffer already at rate is
// cloned.
func Resample(buf *pcm.Buffer, rate int) (*pcm.Buffer, error) {
	if rate <= 0 || buf.SampleRate <= 0 {
		return nil, fmt.Errorf("resampler: invalid rate %d -> %d", buf.SampleRate, rate)
	}
	if buf.SampleRate == rate {
		return buf.Clone(), nil
	}
	out, err := Convert(buf.Samples, float64(buf.SampleRate), float64(rate))
	if err != nil {
		return nil, err
	}
	want := OutputLen(buf.Len(), buf.SampleRate, rate)
	return pcm.New(out, rate).FitLength(want), nil
}

// Convert resamples x from inRate to outRate, which need not be integers.
// The output is aligned with the input timeline and holds
// round(len(x) * outRate / inRate) samples.
func Convert(x []float64, inRate, outRate float64) ([]float64, error) {
	if inRate <= 0 || outRate <= 0 {
		return nil, fmt.Errorf("resampler: invalid rate %g -> %g", inRate, outRate)
	}
	ahead, err := lead(inRate, outRate)
	if err != nil {
		return nil, err
	}
	ratio := outRate / inRate
	// Leading silence keeps the start of x out of the filter's warm-up;
	// the extra output it causes is dropped again below.
	pad := int(math.Ceil(float64(max(ahead, 0))/ratio)) + 1
	in := make([]float64, pad+len(x))
	copy(in[pad:], x)
	out, err := run(in, inRate, outRate)
	if err != nil {
		return nil, err
	}
	drop := min(max(int(math.Round(float64(pad)*ratio))-ahead, 0), len(out))
	want := int(math.Round(float64(len(x)) * ratio))
	return pcm.New(out[drop:], 0).FitLength(want).Samples, nil
}

// run pushes x through a fresh resampler and flushes its tail.
func run(x []float64, inRate, outRate float64) ([]float64, error) {
	r, err := resampling.New(&resampling.Config{
		InputRate:  inRate,
		OutputRate: outRate,
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("resampler: create: %w", err)
	}
	out, err := r.Process(x)
	if err != nil {
		return nil, fmt.Errorf("resampler: process: %w", err)
	}
	tail, err := r.Flush()
	if err != nil {
		return nil, fmt.Errorf("resampler: flush: %w", err)
	}
	return append(out, tail...), nil
}

// leads caches lead per [inRate, outRate].
var leads sync.Map

// lead returns how many output samples the resampler runs ahead of the
// input timeline. It is measured once per rate pair from the position of
// a resampled unit impulse.
func lead(inRate, outRate float64) (int, error) {
	key := [2]float64{inRate, outRate}
	if v, ok := leads.Load(key); ok {
		return v.(int), nil
	}
	at := max(int(math.Round(inRate)), 64)
	x := make([]float64, 2*at)
	x[at] = 1
	y, err := run(x, inRate, outRate)
	if err != nil {
		return 0, err
	}
	peak := 0
	for i, v := range y {
		if math.Abs(v) > math.Abs(y[peak]) {
			peak = i
		}
	}
	n := int(math.Round(float64(at)*outRate/inRate)) - peak
	leads.Store(key, n)
	return n, nil
}
