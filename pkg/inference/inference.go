// Package inference converts audio files with a conversion cascade and
// writes the results to an output store.
package inference

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/PlumbMonkey/voice-cloner/pkg/audio/codec"
	"github.com/PlumbMonkey/voice-cloner/pkg/audio/pcm"
	"github.com/PlumbMonkey/voice-cloner/pkg/audio/resampler"
	"github.com/PlumbMonkey/voice-cloner/pkg/cascade"
	"github.com/PlumbMonkey/voice-cloner/pkg/segment"
	"github.com/PlumbMonkey/voice-cloner/pkg/storage"
	"github.com/PlumbMonkey/voice-cloner/pkg/voxerr"
)

// Defaults for the output files.
const (
	DefaultSampleRate = 44100
	DefaultBitDepth   = 24
	OutputSuffix      = "_converted"
)

// Options are the per-conversion settings.
type Options struct {
	PitchShift float64 // semitones, positive raises the pitch
	F0Method   string
	Blend      float64
	Preset     string
}

func (o Options) request(src *pcm.Buffer) cascade.Request {
	return cascade.Request{
		Source:     src,
		PitchShift: o.PitchShift,
		F0Method:   cascade.F0Method(o.F0Method),
		Blend:      o.Blend,
		Preset:     o.Preset,
	}
}

// Conversion describes one converted file.
type Conversion struct {
	Source   string
	Output   string
	Strategy string
	Duration time.Duration // audio length
	Elapsed  time.Duration
}

// Service converts files one at a time.
type Service struct {
	cascade    *cascade.Cascade
	out        storage.FileStore
	sampleRate int
	bitDepth   int
}

// Option configures a Service.
type Option func(*Service)

// WithSampleRate sets the rate sources are converted and written at.
func WithSampleRate(sr int) Option {
	return func(s *Service) {
		if sr > 0 {
			s.sampleRate = sr
		}
	}
}

// WithBitDepth sets the output WAV bit depth (16 or 24).
func WithBitDepth(bits int) Option {
	return func(s *Service) {
		if bits == 16 || bits == 24 {
			s.bitDepth = bits
		}
	}
}

// New returns a Service writing into out.
func New(c *cascade.Cascade, out storage.FileStore, opts ...Option) *Service {
	s := &Service{
		cascade:    c,
		out:        out,
		sampleRate: DefaultSampleRate,
		bitDepth:   DefaultBitDepth,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Strategies lists the cascade strategies in the order they are tried.
func (s *Service) Strategies() []string { return s.cascade.Names() }

// OutputName returns the default output path for a source file:
// "<stem>_converted.wav".
func OutputName(src string) string {
	base := filepath.Base(src)
	return strings.TrimSuffix(base, filepath.Ext(base)) + OutputSuffix + ".wav"
}

// ConvertFile converts src and writes the result to dst in the output
// store, or to OutputName(src) when dst is empty. An unreadable source is
// FileInvalid; a failed write is IOFailure.
func (s *Service) ConvertFile(ctx context.Context, src, dst string, opts Options) (*Conversion, error) {
	start := time.Now()
	if dst == "" {
		dst = OutputName(src)
	}
	buf, err := s.load(src)
	if err != nil {
		return nil, err
	}
	slog.Info("inference: converting", "source", src, "duration", buf.Duration().Round(time.Millisecond), "pitch", opts.PitchShift)

	res, err := s.cascade.Convert(ctx, opts.request(buf))
	if err != nil {
		return nil, err
	}

	var wav bytes.Buffer
	if err := codec.Encode(&wav, res.Buffer, s.bitDepth); err != nil {
		return nil, voxerr.File(voxerr.IOFailure, "inference.encode", dst, err)
	}
	if err := storage.WriteFile(ctx, s.out, dst, wav.Bytes()); err != nil {
		return nil, voxerr.File(voxerr.IOFailure, "inference.write", dst, err)
	}
	c := &Conversion{
		Source:   src,
		Output:   dst,
		Strategy: res.Strategy,
		Duration: res.Buffer.Duration(),
		Elapsed:  time.Since(start),
	}
	slog.Info("inference: converted", "source", src, "output", dst, "strategy", c.Strategy, "elapsed", c.Elapsed.Round(time.Millisecond))
	return c, nil
}

func (s *Service) load(src string) (*pcm.Buffer, error) {
	buf, err := codec.Decode(src)
	if err != nil {
		return nil, err
	}
	if buf.SampleRate != s.sampleRate {
		if buf, err = resampler.Resample(buf, s.sampleRate); err != nil {
			return nil, voxerr.File(voxerr.FileInvalid, "inference.resample", src, err)
		}
	}
	if buf.Len() == 0 {
		return nil, voxerr.File(voxerr.FileInvalid, "inference.load", src, errors.New("no samples"))
	}
	return buf, nil
}

// Failure is one file that could not be converted.
type Failure struct {
	Path string
	Err  error
}

// BatchReport summarises a batch conversion.
type BatchReport struct {
	Run         string
	Succeeded   int
	Failed      int
	Conversions []*Conversion
	Failures    []Failure
}

// BatchConvert converts every supported file under inDir, one after
// another, writing each to outDir/<subdir>/OutputName(file) in the output
// store, where subdir is the file's directory relative to inDir. Sources
// that share a stem in one directory (take.mp3, take.wav) are told apart
// by their extension. A failed file is recorded and the batch continues;
// earlier outputs are left in place. Only a cancelled context or an
// unreadable inDir stop the batch early.
func (s *Service) BatchConvert(ctx context.Context, inDir, outDir string, opts Options) (*BatchReport, error) {
	files, err := segment.Scan(inDir)
	if err != nil {
		return nil, err
	}
	report := &BatchReport{Run: uuid.NewString()}
	log := slog.With("run", report.Run)
	log.Info("inference: batch", "dir", inDir, "files", len(files))

	used := make(map[string]bool, len(files))
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		dst := batchOutput(inDir, outDir, f, used)
		c, err := s.ConvertFile(ctx, f, dst, opts)
		if err != nil {
			log.Warn("inference: file failed", "file", f, "index", i, "error", err)
			report.Failed++
			report.Failures = append(report.Failures, Failure{Path: f, Err: err})
			continue
		}
		report.Succeeded++
		report.Conversions = append(report.Conversions, c)
	}
	log.Info("inference: batch done", "succeeded", report.Succeeded, "failed", report.Failed)
	return report, nil
}

// batchOutput returns the output path of f, mirroring its location under
// inDir and avoiding every path already in used.
func batchOutput(inDir, outDir, f string, used map[string]bool) string {
	dir := "."
	if rel, err := filepath.Rel(inDir, filepath.Dir(f)); err == nil && !strings.HasPrefix(rel, "..") {
		dir = filepath.ToSlash(rel)
	}
	dir = path.Join(filepath.ToSlash(outDir), dir)
	dst := path.Join(dir, OutputName(f))
	if used[dst] {
		base := filepath.Base(f)
		ext := strings.TrimPrefix(filepath.Ext(base), ".")
		stem := strings.TrimSuffix(base, filepath.Ext(base))
		dst = path.Join(dir, stem+"_"+ext+OutputSuffix+".wav")
		for n := 2; used[dst]; n++ {
			dst = path.Join(dir, fmt.Sprintf("%s_%s%d%s.wav", stem, ext, n, OutputSuffix))
		}
	}
	used[dst] = true
	return dst
}
