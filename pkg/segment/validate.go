package segment

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/PlumbMonkey/voice-cloner/pkg/audio/codec"
	"github.com/PlumbMonkey/voice-cloner/pkg/audio/pcm"
	"github.com/PlumbMonkey/voice-cloner/pkg/audio/resampler"
	"github.com/PlumbMonkey/voice-cloner/pkg/voxerr"
)

// FileInfo describes an accepted input file.
type FileInfo struct {
	Path     string
	Size     int64
	Duration time.Duration
}

// Rejection records why an input file was not accepted.
type Rejection struct {
	Path string
	Err  error
}

// ValidationReport is the result of Validate.
type ValidationReport struct {
	Valid            []FileInfo
	Rejected         []Rejection
	TotalDuration    time.Duration
	BelowRecommended bool
}

// Scan returns the supported audio files under dir, recursively, sorted
// by path.
func Scan(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && codec.Supported(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, voxerr.File(voxerr.IOFailure, "segment.scan", dir, err)
	}
	slices.Sort(files)
	return files, nil
}

// Validate checks every supported file under dir against the minimum size
// and duration. Falling short of RecommendedTotal only logs a warning.
func Validate(dir string, cfg Config) (*ValidationReport, error) {
	files, err := Scan(dir)
	if err != nil {
		return nil, err
	}
	slog.Info("segment: scanning", "dir", dir, "files", len(files))

	report := &ValidationReport{}
	for _, path := range files {
		info, err := validateFile(path, cfg)
		if err != nil {
			slog.Warn("segment: rejected file", "path", path, "error", err)
			report.Rejected = append(report.Rejected, Rejection{Path: path, Err: err})
			continue
		}
		slog.Debug("segment: valid file", "path", path, "duration", info.Duration, "size", info.Size)
		report.Valid = append(report.Valid, info)
		report.TotalDuration += info.Duration
	}
	if report.TotalDuration < cfg.RecommendedTotal {
		report.BelowRecommended = true
		slog.Warn("segment: total duration below recommended",
			"total", report.TotalDuration.Round(time.Second),
			"recommended", cfg.RecommendedTotal)
	}
	return report, nil
}

func validateFile(path string, cfg Config) (FileInfo, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return FileInfo{}, voxerr.File(voxerr.FileInvalid, "segment.validate", path, err)
	}
	st := fi.Size()
	if st < cfg.MinFileSize {
		return FileInfo{}, voxerr.File(voxerr.FileInvalid, "segment.validate", path,
			fmt.Errorf("file too small: %d bytes < %d", st, cfg.MinFileSize))
	}
	d, err := codec.Probe(path)
	if err != nil {
		return FileInfo{}, err
	}
	if d < cfg.MinFileDuration {
		return FileInfo{}, voxerr.File(voxerr.FileInvalid, "segment.validate", path,
			fmt.Errorf("audio too short: %v < %v", d, cfg.MinFileDuration))
	}
	return FileInfo{Path: path, Size: st, Duration: d}, nil
}

// LoadAndNormalize decodes path, downmixes to mono, resamples to the
// canonical rate and peak normalises. Decode failures are logged and
// returned as FileInvalid with a nil buffer.
func LoadAndNormalize(path string, sampleRate int) (*pcm.Buffer, error) {
	buf, err := codec.Decode(path)
	if err != nil {
		slog.Error("segment: load failed", "path", path, "error", err)
		return nil, err
	}
	if buf.SampleRate != sampleRate {
		slog.Debug("segment: resampling", "path", path, "from", buf.SampleRate, "to", sampleRate)
		buf, err = resampler.Resample(buf, sampleRate)
		if err != nil {
			slog.Error("segment: resample failed", "path", path, "error", err)
			return nil, voxerr.File(voxerr.FileInvalid, "segment.load", path, err)
		}
	}
	return buf.PeakNormalize(1), nil
}
