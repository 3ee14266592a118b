package voiceprint

import (
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/PlumbMonkey/voice-cloner/pkg/audio/fbank"
)

// MelStats is a Model whose embedding is the long-term log mel spectrum
// of the speaker: for each band the mean log energy (with the mean over
// bands removed, so the vector does not depend on level) followed by the
// standard deviation over time. Frames more than GateDB below the loudest
// frame are ignored.
type MelStats struct {
	GateDB    float64
	MinFrames int

	mu  sync.Mutex
	ext *fbank.Extractor
}

// NewMelStats returns a MelStats model on the default 80-band front-end.
func NewMelStats() *MelStats {
	return &MelStats{
		GateDB:    40,
		MinFrames: 10,
		ext:       fbank.New(fbank.DefaultConfig()),
	}
}

// NumBands returns the number of mel bands.
func (m *MelStats) NumBands() int { return m.ext.Config().NumMels }

// Dimension implements Model.
func (m *MelStats) Dimension() int { return 2 * m.NumBands() }

// Close implements Model.
func (m *MelStats) Close() error { return nil }

// Centers returns the centre frequency of every band in Hz.
func (m *MelStats) Centers() []float64 { return m.ext.MelCenters() }

// Extract implements Model.
func (m *MelStats) Extract(samples []float32) ([]float32, error) {
	x := make([]float64, len(samples))
	for i, s := range samples {
		x[i] = float64(s)
	}
	m.mu.Lock()
	logmel := m.ext.LogMel(x)
	m.mu.Unlock()

	nb := m.NumBands()
	level := make([]float64, len(logmel))
	for t, row := range logmel {
		var s float64
		for _, v := range row {
			s += v
		}
		level[t] = s / float64(nb)
	}
	if len(level) == 0 {
		return nil, ErrTooShort
	}
	// log power: 10 dB per ln(10)
	floor := slices.Max(level) - m.GateDB*math.Ln10/10
	var frames [][]float64
	for t, row := range logmel {
		if level[t] >= floor {
			frames = append(frames, row)
		}
	}
	if len(frames) < m.MinFrames {
		return nil, fmt.Errorf("%w: %d usable frames", ErrTooShort, len(frames))
	}

	mean := make([]float64, nb)
	for _, row := range frames {
		for b, v := range row {
			mean[b] += v
		}
	}
	var offset float64
	for b := range mean {
		mean[b] /= float64(len(frames))
		offset += mean[b]
	}
	offset /= float64(nb)

	emb := make([]float32, 2*nb)
	for b := range nb {
		var ss float64
		for _, row := range frames {
			d := row[b] - mean[b]
			ss += d * d
		}
		emb[b] = float32(mean[b] - offset)
		emb[nb+b] = float32(math.Sqrt(ss / float64(len(frames))))
	}
	return emb, nil
}

// BandGains returns, per band, the amplitude gain that moves the long-term
// spectrum of an embedding src toward tgt. strength scales the log gain.
func (m *MelStats) BandGains(src, tgt []float32, strength float64) ([]float64, error) {
	nb := m.NumBands()
	if len(src) != 2*nb || len(tgt) != 2*nb {
		return nil, fmt.Errorf("voiceprint: embedding length %d/%d, want %d", len(src), len(tgt), 2*nb)
	}
	gains := make([]float64, nb)
	for b := range gains {
		// log power difference to amplitude
		gains[b] = math.Exp(strength * float64(tgt[b]-src[b]) / 2)
	}
	return gains, nil
}

// Mean returns the element-wise mean of the given embeddings, skipping
// any whose length differs from the first. It returns nil for no input.
func Mean(embeddings [][]float32) []float32 {
	if len(embeddings) == 0 {
		return nil
	}
	dim := len(embeddings[0])
	sum := make([]float64, dim)
	n := 0
	for _, e := range embeddings {
		if len(e) != dim {
			continue
		}
		for i, v := range e {
			sum[i] += float64(v)
		}
		n++
	}
	out := make([]float32, dim)
	for i, v := range sum {
		out[i] = float32(v / float64(n))
	}
	return out
}
