package codec

import (
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"

	"github.com/PlumbMonkey/voice-cloner/pkg/audio/pcm"
)

// DecodeMP3 decodes an MP3 stream. The decoder always produces 16-bit
// little-endian stereo, which is downmixed to mono.
func DecodeMP3(r io.Reader) (*pcm.Buffer, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("codec: mp3: %w", err)
	}
	data, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("codec: mp3 decode: %w", err)
	}
	if dec.SampleRate() <= 0 || len(data) == 0 {
		return nil, fmt.Errorf("codec: mp3: empty stream")
	}
	return pcm.New(pcm.DecodeL16(data, 2), dec.SampleRate()), nil
}
