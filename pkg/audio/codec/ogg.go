package codec

import (
	"errors"
	"fmt"
	"io"

	"github.com/jfreymuth/oggvorbis"

	"github.com/PlumbMonkey/voice-cloner/pkg/audio/pcm"
)

// DecodeOgg decodes an Ogg Vorbis stream. Samples arrive interleaved and
// are averaged to mono.
func DecodeOgg(r io.Reader) (*pcm.Buffer, error) {
	data, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("codec: ogg: %w", err)
	}
	if format.SampleRate <= 0 || format.Channels <= 0 || len(data) == 0 {
		return nil, errors.New("codec: ogg: empty stream")
	}
	ch := format.Channels
	out := make([]float64, len(data)/ch)
	for i := range out {
		var sum float64
		for _, v := range data[i*ch : i*ch+ch] {
			sum += float64(v)
		}
		out[i] = sum / float64(ch)
	}
	return pcm.New(out, format.SampleRate), nil
}
