// Package trainer builds the target-speaker artifacts from preprocessed
// segments: the speaker profile, a speaker embedding checkpoint and the
// config file consumed by an external trainer.
package trainer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/PlumbMonkey/voice-cloner/pkg/kv"
	"github.com/PlumbMonkey/voice-cloner/pkg/profile"
	"github.com/PlumbMonkey/voice-cloner/pkg/segment"
	"github.com/PlumbMonkey/voice-cloner/pkg/storage"
	"github.com/PlumbMonkey/voice-cloner/pkg/voiceprint"
	"github.com/PlumbMonkey/voice-cloner/pkg/voxerr"
)

// TrainingConfigName is the storage path of the generated trainer config.
const TrainingConfigName = "training_config.yaml"

// HashSeed seeds the voice hasher used for the consistency check.
const HashSeed uint64 = 0x766f6963

// Result is the outcome of a training run.
type Result struct {
	Success     bool
	Checkpoints int    // checkpoints stored for the speaker, this one included
	Path        string // kv key of the new checkpoint
	Profile     *profile.Profile
	Verdict     voiceprint.Verdict
	Segments    int
	Estimate    time.Duration
}

// Trainer runs training for one speaker.
type Trainer struct {
	cfg         Config
	data        storage.FileStore
	extractor   *profile.Extractor
	profiles    *profile.Store
	checkpoints *Checkpoints
	model       voiceprint.Model
	profileFile string
}

// Option configures a Trainer.
type Option func(*Trainer)

// WithExtractor sets the profile extractor.
func WithExtractor(e *profile.Extractor) Option {
	return func(t *Trainer) { t.extractor = e }
}

// WithModel sets the embedding model. The default is voiceprint.MelStats.
func WithModel(m voiceprint.Model) Option {
	return func(t *Trainer) { t.model = m }
}

// WithProfileFile also writes the profile as JSON to a local file.
func WithProfileFile(path string) Option {
	return func(t *Trainer) { t.profileFile = path }
}

// New returns a Trainer reading segments and manifests from data and
// persisting profiles and checkpoints in store.
func New(cfg Config, data storage.FileStore, store kv.Store, opts ...Option) *Trainer {
	t := &Trainer{
		cfg:         cfg,
		data:        data,
		extractor:   profile.NewExtractor(profile.DefaultConfig()),
		profiles:    profile.NewStore(store),
		checkpoints: NewCheckpoints(store),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.model == nil {
		t.model = voiceprint.NewMelStats()
	}
	return t
}

// Config returns the trainer configuration.
func (t *Trainer) Config() Config { return t.cfg }

// Checkpoints returns the checkpoint store.
func (t *Trainer) Checkpoints() *Checkpoints { return t.checkpoints }

// Profiles returns the profile store.
func (t *Trainer) Profiles() *profile.Store { return t.profiles }

// Train reads the train manifest, extracts and stores the speaker profile,
// computes the target embedding and stores it as a new checkpoint.
func (t *Trainer) Train(ctx context.Context) (*Result, error) {
	if err := t.cfg.Validate(); err != nil {
		return nil, voxerr.New(voxerr.PreconditionViolated, "trainer.config", err)
	}
	paths, err := segment.ReadManifest(ctx, t.data, segment.TrainList)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, voxerr.Newf(voxerr.PreconditionViolated, "trainer.manifest", "%s is empty", segment.TrainList)
	}
	speaker := t.cfg.Speaker
	res := &Result{Estimate: t.cfg.Estimate(len(paths))}
	slog.Info("trainer: starting", "speaker", speaker, "segments", len(paths), "device", t.cfg.Device, "estimate", res.Estimate)

	if err := t.writeTrainingConfig(ctx); err != nil {
		return nil, err
	}

	p, err := t.extractor.FromSegments(ctx, t.data, paths)
	if err != nil {
		return nil, err
	}
	p.Label = speaker
	if err := t.profiles.Put(ctx, speaker, p); err != nil {
		return nil, voxerr.New(voxerr.IOFailure, "trainer.profile", err)
	}
	if t.profileFile != "" {
		if err := profile.SaveJSON(t.profileFile, p); err != nil {
			return nil, err
		}
	}
	res.Profile = p

	embeddings, err := t.embed(ctx, paths)
	if err != nil {
		return nil, err
	}
	res.Segments = len(embeddings)
	res.Verdict = t.consistency(embeddings)
	if res.Verdict.Status != voiceprint.StatusSingle {
		slog.Warn("trainer: segments may contain more than one voice",
			"status", res.Verdict.Status, "candidates", res.Verdict.Candidates, "confidence", res.Verdict.Confidence)
	}

	cp := &Checkpoint{
		Speaker:   speaker,
		Model:     fmt.Sprintf("%T", t.model),
		Embedding: voiceprint.Mean(embeddings),
		Segments:  len(embeddings),
		Verdict:   res.Verdict,
		Epochs:    t.cfg.Epochs,
		CreatedAt: time.Now().UTC(),
	}
	n, err := t.checkpoints.Add(ctx, cp)
	if err != nil {
		return nil, voxerr.New(voxerr.IOFailure, "trainer.checkpoint", err)
	}
	res.Success = true
	res.Checkpoints = n
	res.Path = checkpointKey(speaker, cp.Seq).String()
	slog.Info("trainer: done", "speaker", speaker, "checkpoint", res.Path, "checkpoints", n, "speaker_status", res.Verdict.Status)
	return res, nil
}

// embed computes one embedding per readable segment. Segments too short
// for the model are skipped.
func (t *Trainer) embed(ctx context.Context, paths []string) ([][]float32, error) {
	var out [][]float32
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		buf, err := segment.LoadSegment(ctx, t.data, p)
		if err != nil {
			slog.Warn("trainer: segment unreadable", "path", p, "error", err)
			continue
		}
		e, err := voiceprint.Embed(t.model, buf)
		if err != nil {
			slog.Debug("trainer: no embedding", "path", p, "error", err)
			continue
		}
		out = append(out, e)
	}
	if len(out) == 0 {
		return nil, voxerr.Newf(voxerr.AnalysisDegenerate, "trainer.embed", "no segment produced an embedding")
	}
	return out, nil
}

func (t *Trainer) consistency(embeddings [][]float32) voiceprint.Verdict {
	h := voiceprint.NewHasher(t.model.Dimension(), 16, HashSeed)
	bits := t.cfg.HashBits
	if bits <= 0 {
		bits = 8
	}
	hashes := make([]string, len(embeddings))
	for i, e := range embeddings {
		hashes[i] = voiceprint.Truncate(h.Hash(e), bits)
	}
	return voiceprint.Consistency(hashes, t.cfg.MinConsistency)
}

func (t *Trainer) writeTrainingConfig(ctx context.Context) error {
	trainPath, valPath := segment.TrainList, segment.ValList
	if l, ok := t.data.(storage.Localizer); ok {
		trainPath, valPath = l.LocalPath(trainPath), l.LocalPath(valPath)
	}
	data, err := t.cfg.TrainingConfig(trainPath, valPath)
	if err != nil {
		return err
	}
	if err := storage.WriteFile(ctx, t.data, TrainingConfigName, data); err != nil {
		return voxerr.File(voxerr.IOFailure, "trainer.config", TrainingConfigName, err)
	}
	return nil
}
