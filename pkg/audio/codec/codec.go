// Package codec decodes WAV, MP3, FLAC and Ogg Vorbis files into mono
// pcm.Buffers and encodes buffers as 16 or 24-bit PCM WAV.
//
// Decoding downmixes any channel count to mono by averaging. Other
// extensions are rejected with a FileInvalid error.
package codec

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PlumbMonkey/voice-cloner/pkg/audio/pcm"
	"github.com/PlumbMonkey/voice-cloner/pkg/voxerr"
)

// Supported file extensions.
var Extensions = []string{".wav", ".mp3", ".flac", ".ogg"}

// Supported reports whether path has a decodable extension.
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Decode reads an audio file from disk.
func Decode(path string) (*pcm.Buffer, error) {
	if !Supported(path) {
		return nil, voxerr.File(voxerr.FileInvalid, "codec.decode", path,
			fmt.Errorf("unsupported format %q", filepath.Ext(path)))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, voxerr.File(voxerr.FileInvalid, "codec.decode", path, err)
	}
	buf, err := DecodeBytes(data, filepath.Ext(path))
	if err != nil {
		return nil, voxerr.File(voxerr.FileInvalid, "codec.decode", path, err)
	}
	return buf, nil
}

// DecodeBytes decodes data whose container is given by ext.
func DecodeBytes(data []byte, ext string) (*pcm.Buffer, error) {
	switch strings.ToLower(ext) {
	case ".wav":
		return DecodeWAV(bytes.NewReader(data))
	case ".mp3":
		return DecodeMP3(bytes.NewReader(data))
	case ".flac":
		return DecodeFLAC(bytes.NewReader(data))
	case ".ogg":
		return DecodeOgg(bytes.NewReader(data))
	}
	return nil, fmt.Errorf("codec: unsupported format %q", ext)
}

// Probe returns the duration of an audio file. WAV durations come from
// the header; other formats are decoded.
func Probe(path string) (time.Duration, error) {
	if !Supported(path) {
		return 0, voxerr.File(voxerr.FileInvalid, "codec.probe", path,
			fmt.Errorf("unsupported format %q", filepath.Ext(path)))
	}
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		f, err := os.Open(path)
		if err != nil {
			return 0, voxerr.File(voxerr.FileInvalid, "codec.probe", path, err)
		}
		defer f.Close()
		d, err := ProbeWAV(f)
		if err != nil {
			return 0, voxerr.File(voxerr.FileInvalid, "codec.probe", path, err)
		}
		return d, nil
	}
	buf, err := Decode(path)
	if err != nil {
		return 0, err
	}
	return buf.Duration(), nil
}

// Encode writes buf as a WAV file to w.
func Encode(w io.Writer, buf *pcm.Buffer, bitDepth int) error {
	ws := &seekBuffer{}
	if err := EncodeWAV(ws, buf, bitDepth); err != nil {
		return err
	}
	_, err := w.Write(ws.Bytes())
	return err
}
