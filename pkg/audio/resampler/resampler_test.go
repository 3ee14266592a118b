package resampler

import (
	"math"
	"testing"

	"github.com/PlumbMonkey/voice-cloner/pkg/audio/pcm"
)

func tone(freq float64, sr, n int) *pcm.Buffer {
	s := make([]float64, n)
	for i := range s {
		s[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(sr))
	}
	return pcm.New(s, sr)
}

func TestResampleLength(t *testing.T) {
	tests := []struct {
		name     string
		src, dst int
		n        int
	}{
		{"44100->16000", 44100, 16000, 44100},
		{"16000->44100", 16000, 44100, 8000},
		{"48000->44100", 48000, 44100, 12345},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Resample(tone(440, tt.src, tt.n), tt.dst)
			if err != nil {
				t.Fatal(err)
			}
			if out.SampleRate != tt.dst {
				t.Errorf("rate = %d, want %d", out.SampleRate, tt.dst)
			}
			if want := OutputLen(tt.n, tt.src, tt.dst); out.Len() != want {
				t.Errorf("len = %d, want %d", out.Len(), want)
			}
		})
	}
}

func TestResamplePreservesLevel(t *testing.T) {
	in := tone(440, 44100, 44100)
	out, err := Resample(in, 16000)
	if err != nil {
		t.Fatal(err)
	}
	// Compare the middle to stay clear of filter edges.
	mid := out.Slice(out.Len()/4, 3*out.Len()/4)
	if got, want := mid.RMS(), in.RMS(); math.Abs(got-want)/want > 0.1 {
		t.Errorf("RMS = %f, want ~%f", got, want)
	}
}

func TestResampleSameRate(t *testing.T) {
	in := tone(440, 16000, 100)
	out, err := Resample(in, 16000)
	if err != nil {
		t.Fatal(err)
	}
	if out == in || out.Len() != in.Len() || out.Samples[10] != in.Samples[10] {
		t.Error("same-rate resample should return an equal clone")
	}
}

func TestResampleInvalidRate(t *testing.T) {
	if _, err := Resample(tone(440, 16000, 10), 0); err == nil {
		t.Error("expected error for zero rate")
	}
}

func TestConvertFractional(t *testing.T) {
	in := tone(300, 22050, 22050)
	ratio := math.Pow(2, 5.0/12)
	out, err := Convert(in.Samples, 22050*ratio, 22050)
	if err != nil {
		t.Fatal(err)
	}
	if want := int(22050 / ratio); len(out) < want {
		t.Fatalf("len = %d, want >= %d", len(out), want)
	}
	if _, err := Convert(in.Samples, 0, 22050); err == nil {
		t.Error("zero input rate accepted")
	}
}

func TestConvertAlignment(t *testing.T) {
	tests := []struct {
		name    string
		in, out float64
		at      int
	}{
		{"44100->16000", 44100, 16000, 10000},
		{"16000->44100", 16000, 44100, 10000},
		{"48000->44100", 48000, 44100, 7000},
		{"onset", 44100, 16000, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := make([]float64, 2*tt.at+20000)
			x[tt.at] = 1
			y, err := Convert(x, tt.in, tt.out)
			if err != nil {
				t.Fatal(err)
			}
			peak := 0
			for i, v := range y {
				if math.Abs(v) > math.Abs(y[peak]) {
					peak = i
				}
			}
			want := float64(tt.at) * tt.out / tt.in
			if math.Abs(float64(peak)-want) > 1 {
				t.Errorf("peak at %d, want %.1f", peak, want)
			}
		})
	}
}
