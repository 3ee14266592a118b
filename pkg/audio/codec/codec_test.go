package codec

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/PlumbMonkey/voice-cloner/pkg/audio/pcm"
	"github.com/PlumbMonkey/voice-cloner/pkg/voxerr"
)

func writeTone(t *testing.T, path string, sr, n, depth int) *pcm.Buffer {
	t.Helper()
	s := make([]float64, n)
	for i := range s {
		s[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/float64(sr))
	}
	buf := pcm.New(s, sr)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := Encode(f, buf, depth); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return buf
}

func TestWAVRoundTrip(t *testing.T) {
	for _, depth := range []int{16, 24} {
		path := filepath.Join(t.TempDir(), "tone.wav")
		in := writeTone(t, path, 16000, 8000, depth)

		out, err := Decode(path)
		if err != nil {
			t.Fatalf("depth %d: Decode: %v", depth, err)
		}
		if out.SampleRate != 16000 || out.Len() != in.Len() {
			t.Fatalf("depth %d: got %d samples @ %d Hz, want %d @ 16000", depth, out.Len(), out.SampleRate, in.Len())
		}
		tol := 2.0 / float64(int(1)<<(depth-1))
		for i := range in.Samples {
			if math.Abs(out.Samples[i]-in.Samples[i]) > tol {
				t.Fatalf("depth %d: sample %d = %f, want %f", depth, i, out.Samples[i], in.Samples[i])
			}
		}
	}
}

func TestProbeWAV(t *testing.T) {
	for _, depth := range []int{16, 24} {
		path := filepath.Join(t.TempDir(), "tone.wav")
		writeTone(t, path, 8000, 12000, depth)
		d, err := Probe(path)
		if err != nil {
			t.Fatal(err)
		}
		if d != 1500*time.Millisecond {
			t.Errorf("depth %d: duration = %v, want 1.5s", depth, d)
		}
	}
}

func TestDecodeFLAC(t *testing.T) {
	// 0.5 s of a 440 Hz sine at half scale, 8 kHz mono 16-bit.
	buf, err := Decode(filepath.Join("testdata", "tone.flac"))
	if err != nil {
		t.Fatal(err)
	}
	if buf.SampleRate != 8000 || buf.Len() != 4000 {
		t.Fatalf("got %d samples @ %d Hz, want 4000 @ 8000", buf.Len(), buf.SampleRate)
	}
	for i, s := range buf.Samples {
		want := 0.5 * math.Sin(2*math.Pi*440*float64(i)/8000)
		if math.Abs(s-want) > 1e-3 {
			t.Fatalf("sample %d = %f, want %f", i, s, want)
		}
	}
	d, err := Probe(filepath.Join("testdata", "tone.flac"))
	if err != nil || d != 500*time.Millisecond {
		t.Errorf("Probe = %v, %v; want 500ms", d, err)
	}
}

func TestDecodeOgg(t *testing.T) {
	buf, err := Decode(filepath.Join("testdata", "tone.ogg"))
	if err != nil {
		t.Fatal(err)
	}
	if buf.SampleRate != 44100 || buf.Len() != 44100 {
		t.Fatalf("got %d samples @ %d Hz, want 44100 @ 44100", buf.Len(), buf.SampleRate)
	}
	if p := buf.Peak(); p < 0.8 || p > 0.85 {
		t.Errorf("peak = %f, want ~0.83", p)
	}
}

func TestDecodeUnsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voice.aiff")
	if err := os.WriteFile(path, []byte("FORM"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Decode(path)
	if !voxerr.IsKind(err, voxerr.FileInvalid) {
		t.Errorf("err = %v, want FileInvalid", err)
	}
}

func TestDecodeCorrupt(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"bad.wav", "bad.mp3", "bad.flac", "bad.ogg"} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("definitely not audio"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Decode(path); !voxerr.IsKind(err, voxerr.FileInvalid) {
			t.Errorf("%s: err = %v, want FileInvalid", name, err)
		}
	}
}

func TestEncodeBadDepth(t *testing.T) {
	if err := EncodeWAV(&seekBuffer{}, pcm.New([]float64{0}, 8000), 8); err == nil {
		t.Error("expected error for 8-bit output")
	}
}

func TestSupported(t *testing.T) {
	tests := map[string]bool{
		"a.wav": true, "b.WAV": true, "c.mp3": true, "d.flac": true,
		"e.OGG": true, "f.aiff": false, "g": false,
	}
	for path, want := range tests {
		if got := Supported(path); got != want {
			t.Errorf("Supported(%q) = %v, want %v", path, got, want)
		}
	}
}
