package codec

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/PlumbMonkey/voice-cloner/pkg/audio/pcm"
)

// ErrInvalidWAV is returned for data that is not a RIFF/WAVE PCM file.
var ErrInvalidWAV = errors.New("codec: invalid wav file")

// DecodeWAV decodes a PCM WAV stream of any bit depth and channel count.
func DecodeWAV(r io.ReadSeeker) (*pcm.Buffer, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, ErrInvalidWAV
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("codec: read pcm: %w", err)
	}
	if buf.Format == nil || buf.Format.SampleRate <= 0 {
		return nil, ErrInvalidWAV
	}
	depth := buf.SourceBitDepth
	if depth == 0 {
		depth = int(dec.BitDepth)
	}
	if depth == 0 {
		return nil, ErrInvalidWAV
	}
	ch := max(1, buf.Format.NumChannels)
	n := len(buf.Data) / ch
	out := make([]float64, n)
	for i := range n {
		var sum float64
		for c := range ch {
			sum += pcm.FromInt(buf.Data[i*ch+c], depth)
		}
		out[i] = sum / float64(ch)
	}
	return pcm.New(out, buf.Format.SampleRate), nil
}

// ProbeWAV returns the duration of the PCM data chunk of a WAV stream.
func ProbeWAV(r io.ReadSeeker) (time.Duration, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return 0, ErrInvalidWAV
	}
	if err := dec.FwdToPCM(); err != nil {
		return 0, fmt.Errorf("codec: find pcm chunk: %w", err)
	}
	frame := int64(dec.NumChans) * int64(dec.BitDepth) / 8
	if frame <= 0 || dec.SampleRate == 0 {
		return 0, ErrInvalidWAV
	}
	frames := int64(dec.PCMSize) / frame
	return time.Duration(frames * int64(time.Second) / int64(dec.SampleRate)), nil
}

// EncodeWAV writes buf as mono PCM WAV with the given bit depth (16 or 24).
func EncodeWAV(w io.WriteSeeker, buf *pcm.Buffer, bitDepth int) error {
	if bitDepth != 16 && bitDepth != 24 {
		return fmt.Errorf("codec: unsupported bit depth %d", bitDepth)
	}
	data := make([]int, buf.Len())
	for i, s := range buf.Samples {
		data[i] = pcm.ToInt(s, bitDepth)
	}
	enc := wav.NewEncoder(w, buf.SampleRate, bitDepth, 1, 1)
	ib := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 1,
			SampleRate:  buf.SampleRate,
		},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(ib); err != nil {
		return fmt.Errorf("codec: write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("codec: close wav: %w", err)
	}
	return nil
}
