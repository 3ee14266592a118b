package dsp

import (
	"fmt"

	"gonum.org/v1/gonum/dsp/fourier"
)

// STFT is a centred short-time Fourier transform with a Hann window.
// An STFT holds an FFT plan and is not safe for concurrent use.
type STFT struct {
	Size   int
	Hop    int
	window []float64
	fft    *fourier.FFT
	frame  []float64
}

// Spectrogram is the output of STFT.Forward. Frames[t] has Size/2+1 bins.
type Spectrogram struct {
	Frames [][]complex128
	Size   int
	Hop    int
	Length int // number of samples in the analysed signal
}

// Bins returns the number of frequency bins per frame.
func (s *Spectrogram) Bins() int { return s.Size/2 + 1 }

// Clone returns a deep copy of the spectrogram.
func (s *Spectrogram) Clone() *Spectrogram {
	out := &Spectrogram{Size: s.Size, Hop: s.Hop, Length: s.Length}
	out.Frames = make([][]complex128, len(s.Frames))
	for i, f := range s.Frames {
		out.Frames[i] = append([]complex128(nil), f...)
	}
	return out
}

// NewSTFT returns an STFT with the given frame size and hop. It panics
// unless 0 < hop <= size.
func NewSTFT(size, hop int) *STFT {
	if hop <= 0 || hop > size {
		panic(fmt.Sprintf("dsp: invalid stft size %d hop %d", size, hop))
	}
	return &STFT{
		Size:   size,
		Hop:    hop,
		window: Hann(size),
		fft:    fourier.NewFFT(size),
		frame:  make([]float64, size),
	}
}

// NumFrames returns the number of frames Forward produces for n samples.
func (s *STFT) NumFrames(n int) int {
	return n/s.Hop + 1
}

// Forward analyses x. Frame t is centred on sample t*Hop; the signal is
// zero-padded by Size/2 on both sides.
func (s *STFT) Forward(x []float64) *Spectrogram {
	half := s.Size / 2
	nf := s.NumFrames(len(x))
	sp := &Spectrogram{
		Frames: make([][]complex128, nf),
		Size:   s.Size,
		Hop:    s.Hop,
		Length: len(x),
	}
	for t := range nf {
		start := t*s.Hop - half
		for k := range s.Size {
			i := start + k
			if i >= 0 && i < len(x) {
				s.frame[k] = x[i] * s.window[k]
			} else {
				s.frame[k] = 0
			}
		}
		sp.Frames[t] = s.fft.Coefficients(nil, s.frame)
	}
	return sp
}

// Inverse resynthesises a signal of sp.Length samples by windowed
// overlap-add, normalised by the summed squared window.
func (s *STFT) Inverse(sp *Spectrogram) []float64 {
	return s.InverseLength(sp, sp.Length)
}

// InverseLength is Inverse with an explicit output length.
func (s *STFT) InverseLength(sp *Spectrogram, n int) []float64 {
	half := s.Size / 2
	total := (len(sp.Frames)-1)*s.Hop + s.Size
	acc := make([]float64, total)
	norm := make([]float64, total)
	inv := 1 / float64(s.Size)
	for t, coeff := range sp.Frames {
		seq := s.fft.Sequence(s.frame, coeff)
		off := t * s.Hop
		for k := range s.Size {
			w := s.window[k]
			acc[off+k] += seq[k] * inv * w
			norm[off+k] += w * w
		}
	}
	out := make([]float64, n)
	for i := range out {
		j := i + half
		if j >= total {
			break
		}
		if norm[j] > 1e-8 {
			out[i] = acc[j] / norm[j]
		}
	}
	return out
}
