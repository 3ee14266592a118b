package segment

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PlumbMonkey/voice-cloner/pkg/audio/codec"
	"github.com/PlumbMonkey/voice-cloner/pkg/audio/pcm"
	"github.com/PlumbMonkey/voice-cloner/pkg/storage"
	"github.com/PlumbMonkey/voice-cloner/pkg/voxerr"
)

const testRate = 8000

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.SampleRate = testRate
	cfg.MinFileSize = 0
	cfg.ExtractF0 = false
	return cfg
}

func tone(seconds float64) *pcm.Buffer {
	n := int(seconds * testRate)
	s := make([]float64, n)
	for i := range s {
		ti := float64(i) / testRate
		s[i] = 0.4*math.Sin(2*math.Pi*180*ti) + 0.2*math.Sin(2*math.Pi*360*ti)
	}
	return pcm.New(s, testRate)
}

func writeWAV(t *testing.T, path string, buf *pcm.Buffer) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := codec.Encode(f, buf, 16); err != nil {
		t.Fatal(err)
	}
}

func TestSplitScenario(t *testing.T) {
	seg := NewSegmenter(testConfig())
	var all []Interval
	for _, src := range []struct {
		seconds float64
		want    []float64
	}{
		{20, []float64{15, 5}},
		{0.3, nil},
		{45, []float64{15, 15, 15}},
	} {
		got := seg.Split(tone(src.seconds))
		if len(got) != len(src.want) {
			t.Fatalf("%.1fs source: %d segments, want %d (%v)", src.seconds, len(got), len(src.want), got)
		}
		for i, iv := range got {
			d := float64(iv.Len()) / testRate
			if math.Abs(d-src.want[i]) > 0.1 {
				t.Errorf("%.1fs source segment %d: %.2fs, want ~%.0fs", src.seconds, i, d, src.want[i])
			}
		}
		all = append(all, got...)
	}
	if len(all) < 4 {
		t.Errorf("total segments = %d, want >= 4", len(all))
	}
}

func TestSplitBounds(t *testing.T) {
	cfg := testConfig()
	cfg.MaxDuration = 2 * time.Second
	seg := NewSegmenter(cfg)
	// speech bursts of varied length separated by silence
	var parts []*pcm.Buffer
	for _, d := range []float64{0.2, 1.0, 4.3, 0.6, 2.4} {
		parts = append(parts, tone(d), pcm.Silence(testRate, time.Second))
	}
	buf := pcm.Concat(parts...)
	minLen := buf.SamplesIn(cfg.MinDuration)
	maxLen := buf.SamplesIn(cfg.MaxDuration)
	got := seg.Split(buf)
	if len(got) == 0 {
		t.Fatal("no segments")
	}
	prev := -1
	for _, iv := range got {
		if iv.Len() < minLen || iv.Len() > maxLen {
			t.Errorf("segment %v has %d samples, outside [%d, %d]", iv, iv.Len(), minLen, maxLen)
		}
		if iv.Start < prev {
			t.Errorf("segments out of order at %v", iv)
		}
		prev = iv.End
	}
}

func TestSplitSilence(t *testing.T) {
	seg := NewSegmenter(testConfig())
	if got := seg.Split(pcm.Silence(testRate, 3*time.Second)); len(got) != 0 {
		t.Errorf("silent buffer: got %d segments, want 0", len(got))
	}
	if got := seg.Split(pcm.New(nil, testRate)); len(got) != 0 {
		t.Errorf("empty buffer: got %d segments, want 0", len(got))
	}
}

func TestNonSilentGaps(t *testing.T) {
	seg := NewSegmenter(testConfig())
	buf := pcm.Concat(tone(2), pcm.Silence(testRate, 2*time.Second), tone(2))
	got := seg.NonSilent(buf)
	if len(got) != 2 {
		t.Fatalf("intervals = %v, want 2", got)
	}
	if got[0].Start != 0 || got[1].End != buf.Len() {
		t.Errorf("intervals = %v", got)
	}
}

func TestManifests(t *testing.T) {
	var segs []Segment
	for i := range 25 {
		segs = append(segs, Segment{Index: i, Path: SegmentPath(i)})
	}
	train, val := Manifests(segs, 0.1)
	tl := strings.Split(strings.TrimSpace(train), "\n")
	vl := strings.Split(strings.TrimSpace(val), "\n")
	if len(tl) != 25 || len(vl) != 2 {
		t.Fatalf("train=%d val=%d, want 25 and 2", len(tl), len(vl))
	}
	if tl[0] != "wavs/segment_00000.wav" || vl[1] != "wavs/segment_00001.wav" {
		t.Errorf("unexpected ordering: train[0]=%q val[1]=%q", tl[0], vl[1])
	}
	if ValCount(3, 0.1) != 1 || ValCount(0, 0.1) != 0 {
		t.Error("ValCount minimum of one not honoured")
	}
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	writeWAV(t, filepath.Join(dir, "long.wav"), tone(2))
	writeWAV(t, filepath.Join(dir, "short.wav"), tone(0.3))
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "broken.wav"), []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}

	report, err := Validate(dir, testConfig())
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Valid) != 1 || filepath.Base(report.Valid[0].Path) != "long.wav" {
		t.Fatalf("valid = %+v", report.Valid)
	}
	if len(report.Rejected) != 2 {
		t.Fatalf("rejected = %+v, want short.wav and broken.wav", report.Rejected)
	}
	for _, r := range report.Rejected {
		if !voxerr.IsKind(r.Err, voxerr.FileInvalid) {
			t.Errorf("%s: err = %v, want FileInvalid", r.Path, r.Err)
		}
	}
	if !report.BelowRecommended {
		t.Error("2s corpus should be below the recommended total")
	}

	cfg := testConfig()
	cfg.MinFileSize = 1 << 20
	report, err = Validate(dir, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Valid) != 0 {
		t.Errorf("files under the minimum size accepted: %+v", report.Valid)
	}
}

func TestPipelineRun(t *testing.T) {
	dir := t.TempDir()
	writeWAV(t, filepath.Join(dir, "a.wav"), tone(20))
	writeWAV(t, filepath.Join(dir, "b_silent.wav"), pcm.Silence(testRate, 2*time.Second))
	sub := filepath.Join(dir, "more")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	writeWAV(t, filepath.Join(sub, "c.wav"), tone(3))

	store := storage.NewMemory()
	ctx := context.Background()
	report, err := NewPipeline(testConfig(), store).Run(ctx, dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Segments) != 3 {
		t.Fatalf("segments = %d, want 3", len(report.Segments))
	}
	if len(report.Skipped) != 1 || filepath.Base(report.Skipped[0].Path) != "b_silent.wav" {
		t.Errorf("skipped = %+v, want the silent file", report.Skipped)
	}
	for i, s := range report.Segments {
		if s.Index != i || s.Path != SegmentPath(i) {
			t.Errorf("segment %d: index %d path %s", i, s.Index, s.Path)
		}
		buf, err := s.Load(ctx, store)
		if err != nil {
			t.Fatal(err)
		}
		if buf.SampleRate != testRate || buf.Len() != s.End-s.Start {
			t.Errorf("segment %d: %d samples @ %d", i, buf.Len(), buf.SampleRate)
		}
	}
	// a.wav sorts before more/c.wav
	if filepath.Base(report.Segments[2].Source) != "c.wav" {
		t.Errorf("last segment source = %s, want c.wav", report.Segments[2].Source)
	}

	train, err := ReadManifest(ctx, store, TrainList)
	if err != nil {
		t.Fatal(err)
	}
	val, err := ReadManifest(ctx, store, ValList)
	if err != nil {
		t.Fatal(err)
	}
	if len(train) != 3 || len(val) != 1 || val[0] != train[0] {
		t.Errorf("train = %v, val = %v", train, val)
	}

	st := report.Stats()
	if st.Segments != 3 || math.Abs(st.TotalDuration.Seconds()-23) > 0.2 {
		t.Errorf("stats = %+v", st)
	}
}

func TestPipelineNothingValid(t *testing.T) {
	dir := t.TempDir()
	writeWAV(t, filepath.Join(dir, "silent.wav"), pcm.Silence(testRate, time.Second))
	_, err := NewPipeline(testConfig(), storage.NewMemory()).Run(context.Background(), dir)
	if !voxerr.IsKind(err, voxerr.FileInvalid) {
		t.Errorf("err = %v, want FileInvalid", err)
	}

	_, err = NewPipeline(testConfig(), storage.NewMemory()).Run(context.Background(), t.TempDir())
	if !voxerr.IsKind(err, voxerr.FileInvalid) {
		t.Errorf("empty dir: err = %v, want FileInvalid", err)
	}
}

func TestF0RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	seg := Segment{Path: SegmentPath(7)}
	if err := WriteF0(ctx, store, seg, tone(1)); err != nil {
		t.Fatal(err)
	}
	c, err := ReadF0(ctx, store, seg.Path)
	if err != nil {
		t.Fatal(err)
	}
	if F0Path(seg.Path) != "features/f0/segment_00007.f0" {
		t.Errorf("F0Path = %s", F0Path(seg.Path))
	}
	voiced := c.Voiced()
	if len(voiced) == 0 {
		t.Fatal("no voiced frames")
	}
	var mean float64
	for _, v := range voiced {
		mean += v / float64(len(voiced))
	}
	if math.Abs(mean-180) > 10 {
		t.Errorf("mean f0 = %.1f, want ~180", mean)
	}
}
