package segment

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/PlumbMonkey/voice-cloner/pkg/audio/codec"
	"github.com/PlumbMonkey/voice-cloner/pkg/audio/pcm"
	"github.com/PlumbMonkey/voice-cloner/pkg/storage"
	"github.com/PlumbMonkey/voice-cloner/pkg/voxerr"
)

// Storage paths, relative to the data root.
const (
	WavsDir   = "wavs"
	TrainList = "train.txt"
	ValList   = "val.txt"
	F0Dir     = "features/f0"
)

// Segment is one emitted training segment.
type Segment struct {
	Index  int           `json:"index" msgpack:"index"`
	Source string        `json:"source" msgpack:"source"`
	Start  int           `json:"start" msgpack:"start"` // sample offset in the normalised source
	End    int           `json:"end" msgpack:"end"`
	Path   string        `json:"path" msgpack:"path"` // relative to the data root
	Length time.Duration `json:"length" msgpack:"length"`
}

// SegmentPath returns the storage path of segment index i.
func SegmentPath(i int) string {
	return path.Join(WavsDir, fmt.Sprintf("segment_%05d.wav", i))
}

// Load reads the segment audio back from store.
func (s Segment) Load(ctx context.Context, store storage.FileStore) (*pcm.Buffer, error) {
	return LoadSegment(ctx, store, s.Path)
}

// LoadSegment reads and decodes a WAV file from store.
func LoadSegment(ctx context.Context, store storage.FileStore, p string) (*pcm.Buffer, error) {
	data, err := storage.ReadFile(ctx, store, p)
	if err != nil {
		return nil, voxerr.File(voxerr.IOFailure, "segment.read", p, err)
	}
	buf, err := codec.DecodeWAV(bytes.NewReader(data))
	if err != nil {
		return nil, voxerr.File(voxerr.FileInvalid, "segment.read", p, err)
	}
	return buf, nil
}

// Report summarises a preprocessing run.
type Report struct {
	Run        string
	Validation *ValidationReport
	Segments   []Segment
	Skipped    []Rejection // valid files that produced no segments
}

// Stats mirrors the preprocessing statistics of a run.
type Stats struct {
	Segments        int           `json:"segments"`
	TotalDuration   time.Duration `json:"total_duration"`
	AverageDuration time.Duration `json:"average_segment_duration"`
}

// Stats returns segment count and durations.
func (r *Report) Stats() Stats {
	var st Stats
	st.Segments = len(r.Segments)
	for _, s := range r.Segments {
		st.TotalDuration += s.Length
	}
	if st.Segments > 0 {
		st.AverageDuration = st.TotalDuration / time.Duration(st.Segments)
	}
	return st
}

// Pipeline runs validation, segmentation and manifest generation, writing
// its artifacts to a FileStore rooted at the data directory.
type Pipeline struct {
	cfg   Config
	store storage.FileStore
	seg   *Segmenter
}

// NewPipeline returns a Pipeline writing to store.
func NewPipeline(cfg Config, store storage.FileStore) *Pipeline {
	return &Pipeline{cfg: cfg, store: store, seg: NewSegmenter(cfg)}
}

// Run processes every valid file under inputDir in path order. Files that
// fail to decode or contain no usable speech are skipped. Run fails only
// when nothing was produced or an artifact cannot be written.
func (p *Pipeline) Run(ctx context.Context, inputDir string) (*Report, error) {
	report := &Report{Run: uuid.NewString()}
	log := slog.With("run", report.Run)

	val, err := Validate(inputDir, p.cfg)
	if err != nil {
		return nil, err
	}
	report.Validation = val
	if len(val.Valid) == 0 {
		return report, voxerr.File(voxerr.FileInvalid, "segment.run", inputDir,
			fmt.Errorf("no valid audio files"))
	}
	log.Info("segment: valid files", "count", len(val.Valid), "total", val.TotalDuration.Round(time.Second))

	for i, file := range val.Valid {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		log.Info("segment: processing", "file", file.Path, "n", i+1, "of", len(val.Valid))

		buf, err := LoadAndNormalize(file.Path, p.cfg.SampleRate)
		if buf == nil {
			report.Skipped = append(report.Skipped, Rejection{Path: file.Path, Err: err})
			continue
		}
		n, err := p.emit(ctx, report, file.Path, buf)
		if err != nil {
			return report, err
		}
		if n == 0 {
			log.Warn("segment: no valid segments", "file", file.Path)
			report.Skipped = append(report.Skipped, Rejection{
				Path: file.Path,
				Err:  voxerr.File(voxerr.FileInvalid, "segment.split", file.Path, fmt.Errorf("no non-silent interval within duration bounds")),
			})
			continue
		}
		log.Info("segment: created segments", "file", file.Path, "count", n)
	}

	if len(report.Segments) == 0 {
		return report, voxerr.Newf(voxerr.FileInvalid, "segment.run", "no valid audio segments created")
	}
	if err := p.WriteManifests(ctx, report.Segments); err != nil {
		return report, err
	}
	st := report.Stats()
	log.Info("segment: preprocessing complete",
		"segments", st.Segments,
		"total", st.TotalDuration.Round(time.Millisecond),
		"average", st.AverageDuration.Round(time.Millisecond))
	return report, nil
}

// emit splits buf and writes its segments, continuing the run-wide index.
func (p *Pipeline) emit(ctx context.Context, report *Report, source string, buf *pcm.Buffer) (int, error) {
	intervals := p.seg.Split(buf)
	for _, iv := range intervals {
		idx := len(report.Segments)
		seg := Segment{
			Index:  idx,
			Source: source,
			Start:  iv.Start,
			End:    iv.End,
			Path:   SegmentPath(idx),
		}
		audio := buf.Slice(iv.Start, iv.End)
		seg.Length = audio.Duration()

		var wav bytes.Buffer
		if err := codec.Encode(&wav, audio, p.cfg.BitDepth); err != nil {
			return 0, voxerr.File(voxerr.IOFailure, "segment.encode", seg.Path, err)
		}
		if err := storage.WriteFile(ctx, p.store, seg.Path, wav.Bytes()); err != nil {
			return 0, voxerr.File(voxerr.IOFailure, "segment.write", seg.Path, err)
		}
		if p.cfg.ExtractF0 {
			if err := WriteF0(ctx, p.store, seg, audio); err != nil {
				slog.Warn("segment: f0 extraction failed", "segment", seg.Path, "error", err)
			}
		}
		report.Segments = append(report.Segments, seg)
	}
	return len(intervals), nil
}

// WriteManifests writes train.txt with every segment and val.txt with the
// first ValFraction of them (at least one), both in emission order.
func (p *Pipeline) WriteManifests(ctx context.Context, segments []Segment) error {
	train, val := Manifests(segments, p.cfg.ValFraction)
	if err := storage.WriteFile(ctx, p.store, TrainList, []byte(train)); err != nil {
		return voxerr.File(voxerr.IOFailure, "segment.manifest", TrainList, err)
	}
	if err := storage.WriteFile(ctx, p.store, ValList, []byte(val)); err != nil {
		return voxerr.File(voxerr.IOFailure, "segment.manifest", ValList, err)
	}
	slog.Info("segment: manifests written", "train", len(segments), "val", ValCount(len(segments), p.cfg.ValFraction))
	return nil
}

// ValCount returns how many of n segments go to the validation list.
func ValCount(n int, fraction float64) int {
	if n == 0 {
		return 0
	}
	return max(1, int(float64(n)*fraction))
}

// Manifests renders the train and validation lists.
func Manifests(segments []Segment, valFraction float64) (train, val string) {
	var tb, vb strings.Builder
	nVal := ValCount(len(segments), valFraction)
	for i, s := range segments {
		tb.WriteString(s.Path)
		tb.WriteByte('\n')
		if i < nVal {
			vb.WriteString(s.Path)
			vb.WriteByte('\n')
		}
	}
	return tb.String(), vb.String()
}

// ReadManifest returns the segment paths listed in a manifest file.
func ReadManifest(ctx context.Context, store storage.FileStore, name string) ([]string, error) {
	data, err := storage.ReadFile(ctx, store, name)
	if err != nil {
		return nil, voxerr.File(voxerr.IOFailure, "segment.manifest", name, err)
	}
	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out, nil
}
