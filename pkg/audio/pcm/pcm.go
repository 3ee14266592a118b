package pcm

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
)

// Buffer is a mono audio buffer.
type Buffer struct {
	Samples    []float64
	SampleRate int
}

// New returns a Buffer wrapping samples. The slice is not copied.
func New(samples []float64, sampleRate int) *Buffer {
	return &Buffer{Samples: samples, SampleRate: sampleRate}
}

// Silence returns a zero-valued buffer of the given duration.
func Silence(sampleRate int, d time.Duration) *Buffer {
	n := int(int64(sampleRate) * int64(d) / int64(time.Second))
	return New(make([]float64, n), sampleRate)
}

// Len returns the number of samples.
func (b *Buffer) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Samples)
}

// Seconds returns the duration in seconds.
func (b *Buffer) Seconds() float64 {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return float64(len(b.Samples)) / float64(b.SampleRate)
}

// Duration returns the duration of the buffer.
func (b *Buffer) Duration() time.Duration {
	return time.Duration(b.Seconds() * float64(time.Second))
}

// SamplesIn returns the number of samples covering d at the buffer's rate.
func (b *Buffer) SamplesIn(d time.Duration) int {
	return int(math.Round(d.Seconds() * float64(b.SampleRate)))
}

// RMS returns the root mean square level.
func (b *Buffer) RMS() float64 {
	if b.Len() == 0 {
		return 0
	}
	return floats.Norm(b.Samples, 2) / math.Sqrt(float64(len(b.Samples)))
}

// Peak returns the maximum absolute sample value.
func (b *Buffer) Peak() float64 {
	var p float64
	for _, s := range b.Samples {
		if a := math.Abs(s); a > p {
			p = a
		}
	}
	return p
}

// Clone returns a deep copy.
func (b *Buffer) Clone() *Buffer {
	s := make([]float64, len(b.Samples))
	copy(s, b.Samples)
	return New(s, b.SampleRate)
}

// Slice returns a copy of samples [start, end). Bounds are clamped.
func (b *Buffer) Slice(start, end int) *Buffer {
	start = max(0, min(start, len(b.Samples)))
	end = max(start, min(end, len(b.Samples)))
	s := make([]float64, end-start)
	copy(s, b.Samples[start:end])
	return New(s, b.SampleRate)
}

// FitLength returns a copy trimmed or zero-padded to exactly n samples.
func (b *Buffer) FitLength(n int) *Buffer {
	s := make([]float64, n)
	copy(s, b.Samples)
	return New(s, b.SampleRate)
}

// WithSamples returns a buffer at the same rate holding samples.
func (b *Buffer) WithSamples(samples []float64) *Buffer {
	return New(samples, b.SampleRate)
}

// Scale returns a copy with every sample multiplied by g.
func (b *Buffer) Scale(g float64) *Buffer {
	out := b.Clone()
	floats.Scale(g, out.Samples)
	return out
}

// PeakNormalize returns a copy scaled so the peak equals target. A silent
// buffer is returned unchanged.
func (b *Buffer) PeakNormalize(target float64) *Buffer {
	p := b.Peak()
	if p < 1e-9 {
		return b.Clone()
	}
	return b.Scale(target / p)
}

// Clip returns a copy with samples hard-limited to [-1, 1]. Non-finite
// samples become zero.
func (b *Buffer) Clip() *Buffer {
	out := b.Clone()
	for i, s := range out.Samples {
		switch {
		case math.IsNaN(s) || math.IsInf(s, 0):
			out.Samples[i] = 0
		case s > 1:
			out.Samples[i] = 1
		case s < -1:
			out.Samples[i] = -1
		}
	}
	return out
}

// Float32 returns the samples as float32.
func (b *Buffer) Float32() []float32 {
	out := make([]float32, len(b.Samples))
	for i, s := range b.Samples {
		out[i] = float32(s)
	}
	return out
}

// Concat joins buffers of the same sample rate.
func Concat(bufs ...*Buffer) *Buffer {
	if len(bufs) == 0 {
		return New(nil, 0)
	}
	var n int
	for _, b := range bufs {
		n += b.Len()
	}
	s := make([]float64, 0, n)
	for _, b := range bufs {
		s = append(s, b.Samples...)
	}
	return New(s, bufs[0].SampleRate)
}
