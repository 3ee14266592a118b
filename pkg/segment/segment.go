// Package segment prepares a training corpus from raw recordings.
//
// Files are validated, decoded, resampled to the canonical rate and peak
// normalised. Silence is removed with a relative energy threshold and the
// remaining intervals are cut into segments whose duration lies within
// [MinDuration, MaxDuration]. Segments are written as
// wavs/segment_NNNNN.wav with one counter shared by the whole run, and
// train.txt / val.txt manifests list them in emission order.
package segment

import (
	"time"

	"github.com/PlumbMonkey/voice-cloner/pkg/audio/pcm"
	"github.com/PlumbMonkey/voice-cloner/pkg/dsp"
)

// Config controls validation and segmentation.
type Config struct {
	SampleRate  int           // canonical rate segments are written at
	FrameLength int           // energy frame length in samples
	HopLength   int           // energy hop in samples
	TopDB       float64       // frames this far below the peak are silent
	MinDuration time.Duration // shortest kept segment
	MaxDuration time.Duration // longest segment; longer intervals are split

	MinFileSize      int64         // bytes; smaller files are rejected
	MinFileDuration  time.Duration // shorter files are rejected
	RecommendedTotal time.Duration // warn when the corpus is shorter
	ValFraction      float64       // share of segments in val.txt
	BitDepth         int           // segment WAV bit depth
	ExtractF0        bool          // write F0 contours under features/f0
}

// DefaultConfig returns the standard preprocessing parameters.
func DefaultConfig() Config {
	return Config{
		SampleRate:       44100,
		FrameLength:      2048,
		HopLength:        512,
		TopDB:            40,
		MinDuration:      500 * time.Millisecond,
		MaxDuration:      15 * time.Second,
		MinFileSize:      1 << 20,
		MinFileDuration:  500 * time.Millisecond,
		RecommendedTotal: 10 * time.Minute,
		ValFraction:      0.1,
		BitDepth:         16,
		ExtractF0:        true,
	}
}

// Interval is a half-open sample range [Start, End).
type Interval struct {
	Start int
	End   int
}

// Len returns the interval length in samples.
func (iv Interval) Len() int { return iv.End - iv.Start }

// Segmenter splits buffers into bounded, non-silent intervals.
type Segmenter struct {
	cfg Config
}

// NewSegmenter returns a Segmenter using cfg.
func NewSegmenter(cfg Config) *Segmenter {
	return &Segmenter{cfg: cfg}
}

// NonSilent returns the intervals whose frame energy lies within TopDB of
// the loudest frame, in source order. A silent buffer yields none.
func (s *Segmenter) NonSilent(buf *pcm.Buffer) []Interval {
	x := buf.Samples
	if len(x) == 0 {
		return nil
	}
	rms := dsp.FrameRMS(x, s.cfg.FrameLength, s.cfg.HopLength)
	var peak float64
	for _, v := range rms {
		peak = max(peak, v)
	}
	if peak < 1e-10 {
		return nil
	}
	var out []Interval
	start := -1
	for t, v := range rms {
		voiced := dsp.AmplitudeToDB(v, peak) > -s.cfg.TopDB
		switch {
		case voiced && start < 0:
			start = t
		case !voiced && start >= 0:
			out = append(out, s.frameInterval(start, t, len(x)))
			start = -1
		}
	}
	if start >= 0 {
		out = append(out, s.frameInterval(start, len(rms), len(x)))
	}
	return out
}

func (s *Segmenter) frameInterval(from, to, n int) Interval {
	return Interval{
		Start: min(from*s.cfg.HopLength, n),
		End:   min(to*s.cfg.HopLength, n),
	}
}

// Split returns the segment intervals of buf: non-silent intervals
// shorter than MinDuration are dropped, longer than MaxDuration are cut
// into MaxDuration chunks and a trailing chunk shorter than MinDuration is
// dropped.
func (s *Segmenter) Split(buf *pcm.Buffer) []Interval {
	minLen := buf.SamplesIn(s.cfg.MinDuration)
	maxLen := buf.SamplesIn(s.cfg.MaxDuration)
	var out []Interval
	for _, iv := range s.NonSilent(buf) {
		if iv.Len() < minLen {
			continue
		}
		if iv.Len() <= maxLen {
			out = append(out, iv)
			continue
		}
		for start := iv.Start; start < iv.End; start += maxLen {
			chunk := Interval{Start: start, End: min(start+maxLen, iv.End)}
			if chunk.Len() >= minLen {
				out = append(out, chunk)
			}
		}
	}
	return out
}
