package pcm

import (
	"math"
	"testing"
	"time"
)

func TestBufferBasics(t *testing.T) {
	b := New([]float64{0.5, -1, 0.25, 0}, 4)
	if b.Len() != 4 {
		t.Fatalf("Len = %d, want 4", b.Len())
	}
	if b.Duration() != time.Second {
		t.Errorf("Duration = %v, want 1s", b.Duration())
	}
	if b.Peak() != 1 {
		t.Errorf("Peak = %f, want 1", b.Peak())
	}
	wantRMS := math.Sqrt((0.25 + 1 + 0.0625) / 4)
	if math.Abs(b.RMS()-wantRMS) > 1e-12 {
		t.Errorf("RMS = %f, want %f", b.RMS(), wantRMS)
	}
}

func TestFitLength(t *testing.T) {
	b := New([]float64{1, 2, 3}, 8000)
	if got := b.FitLength(5).Samples; len(got) != 5 || got[2] != 3 || got[4] != 0 {
		t.Errorf("pad: got %v", got)
	}
	if got := b.FitLength(2).Samples; len(got) != 2 || got[1] != 2 {
		t.Errorf("trim: got %v", got)
	}
	if b.Len() != 3 {
		t.Error("FitLength modified receiver")
	}
}

func TestSliceClamps(t *testing.T) {
	b := New([]float64{1, 2, 3, 4}, 8000)
	if got := b.Slice(-3, 2).Samples; len(got) != 2 || got[0] != 1 {
		t.Errorf("Slice(-3,2) = %v", got)
	}
	if got := b.Slice(3, 10).Samples; len(got) != 1 || got[0] != 4 {
		t.Errorf("Slice(3,10) = %v", got)
	}
	if got := b.Slice(5, 1).Len(); got != 0 {
		t.Errorf("Slice(5,1).Len = %d, want 0", got)
	}
}

func TestClip(t *testing.T) {
	b := New([]float64{2, -3, math.NaN(), math.Inf(1), 0.5}, 8000)
	got := b.Clip().Samples
	want := []float64{1, -1, 0, 0, 0.5}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Clip[%d] = %f, want %f", i, got[i], want[i])
		}
	}
}

func TestPeakNormalize(t *testing.T) {
	b := New([]float64{0.1, -0.2}, 8000)
	if p := b.PeakNormalize(0.9).Peak(); math.Abs(p-0.9) > 1e-12 {
		t.Errorf("peak = %f, want 0.9", p)
	}
	silent := Silence(8000, 10*time.Millisecond)
	if silent.Len() != 80 {
		t.Fatalf("Silence len = %d, want 80", silent.Len())
	}
	if p := silent.PeakNormalize(1).Peak(); p != 0 {
		t.Errorf("silent peak = %f, want 0", p)
	}
}

func TestL16RoundTrip(t *testing.T) {
	in := []float64{0, 0.5, -0.5, 0.999}
	out := DecodeL16(EncodeL16(in), 1)
	for i := range in {
		if math.Abs(out[i]-in[i]) > 1.0/32768 {
			t.Errorf("sample %d: got %f, want %f", i, out[i], in[i])
		}
	}
}

func TestDecodeL16Stereo(t *testing.T) {
	// L=16384 (0.5), R=0
	b := []byte{0x00, 0x40, 0x00, 0x00}
	got := DecodeL16(b, 2)
	if len(got) != 1 || math.Abs(got[0]-0.25) > 1e-9 {
		t.Errorf("DecodeL16 stereo = %v, want [0.25]", got)
	}
}

func TestToIntClamps(t *testing.T) {
	if v := ToInt(1.5, 16); v != 32767 {
		t.Errorf("ToInt(1.5) = %d, want 32767", v)
	}
	if v := ToInt(-1.5, 24); v != -8388608 {
		t.Errorf("ToInt(-1.5, 24) = %d, want -8388608", v)
	}
}
