package segment

import (
	"context"
	"path"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/PlumbMonkey/voice-cloner/pkg/audio/pcm"
	"github.com/PlumbMonkey/voice-cloner/pkg/audio/resampler"
	"github.com/PlumbMonkey/voice-cloner/pkg/dsp"
	"github.com/PlumbMonkey/voice-cloner/pkg/storage"
)

// F0Rate is the analysis rate for F0 contours.
const F0Rate = 16000

// F0Contour is a per-frame fundamental frequency track. Unvoiced frames
// hold zero.
type F0Contour struct {
	SampleRate int       `msgpack:"sr"`
	Hop        int       `msgpack:"hop"`
	Hz         []float64 `msgpack:"hz"`
}

// Voiced returns the non-zero estimates.
func (c *F0Contour) Voiced() []float64 {
	var out []float64
	for _, v := range c.Hz {
		if v > 0 {
			out = append(out, v)
		}
	}
	return out
}

// FrameRate returns contour frames per second.
func (c *F0Contour) FrameRate() float64 {
	return float64(c.SampleRate) / float64(c.Hop)
}

// TrackF0 computes the contour of buf over [fmin, fmax] Hz.
func TrackF0(buf *pcm.Buffer, fmin, fmax float64) (*F0Contour, error) {
	b, err := resampler.Resample(buf, F0Rate)
	if err != nil {
		return nil, err
	}
	y := dsp.NewYIN(F0Rate, fmin, fmax)
	track := y.Track(b.Samples)
	c := &F0Contour{SampleRate: F0Rate, Hop: y.Hop, Hz: make([]float64, len(track))}
	for i, p := range track {
		c.Hz[i] = p.Hz
	}
	return c, nil
}

// F0Path returns the feature path for a segment path.
func F0Path(segmentPath string) string {
	base := strings.TrimSuffix(path.Base(segmentPath), path.Ext(segmentPath))
	return path.Join(F0Dir, base+".f0")
}

// WriteF0 tracks the segment's F0 over 50-500 Hz and stores it.
func WriteF0(ctx context.Context, store storage.FileStore, seg Segment, audio *pcm.Buffer) error {
	c, err := TrackF0(audio, 50, 500)
	if err != nil {
		return err
	}
	data, err := msgpack.Marshal(c)
	if err != nil {
		return err
	}
	return storage.WriteFile(ctx, store, F0Path(seg.Path), data)
}

// ReadF0 loads the stored contour of a segment.
func ReadF0(ctx context.Context, store storage.FileStore, segmentPath string) (*F0Contour, error) {
	data, err := storage.ReadFile(ctx, store, F0Path(segmentPath))
	if err != nil {
		return nil, err
	}
	var c F0Contour
	if err := msgpack.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}
