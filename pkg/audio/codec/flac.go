package codec

import (
	"errors"
	"fmt"
	"io"

	"github.com/mewkiz/flac"

	"github.com/PlumbMonkey/voice-cloner/pkg/audio/pcm"
)

// DecodeFLAC decodes a FLAC stream, downmixing all channels to mono.
func DecodeFLAC(r io.Reader) (*pcm.Buffer, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, fmt.Errorf("codec: flac: %w", err)
	}
	defer stream.Close()

	info := stream.Info
	depth := int(info.BitsPerSample)
	if info.SampleRate == 0 || info.NChannels == 0 || depth == 0 {
		return nil, errors.New("codec: flac: incomplete stream info")
	}
	out := make([]float64, 0, info.NSamples)
	for {
		f, err := stream.ParseNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("codec: flac frame: %w", err)
		}
		ch := len(f.Subframes)
		for i := range int(f.BlockSize) {
			var sum float64
			for _, sub := range f.Subframes {
				sum += pcm.FromInt(int(sub.Samples[i]), depth)
			}
			out = append(out, sum/float64(ch))
		}
	}
	if len(out) == 0 {
		return nil, errors.New("codec: flac: empty stream")
	}
	return pcm.New(out, int(info.SampleRate)), nil
}
