// Package voicecloner assembles a project: stores, the preprocessing
// pipeline, the trainer, the conversion cascade and the workflow
// controller, all configured from a config.Config.
package voicecloner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"

	"github.com/PlumbMonkey/voice-cloner/pkg/cascade"
	"github.com/PlumbMonkey/voice-cloner/pkg/config"
	"github.com/PlumbMonkey/voice-cloner/pkg/envcheck"
	"github.com/PlumbMonkey/voice-cloner/pkg/inference"
	"github.com/PlumbMonkey/voice-cloner/pkg/kv"
	"github.com/PlumbMonkey/voice-cloner/pkg/profile"
	"github.com/PlumbMonkey/voice-cloner/pkg/segment"
	"github.com/PlumbMonkey/voice-cloner/pkg/storage"
	"github.com/PlumbMonkey/voice-cloner/pkg/toolkit"
	"github.com/PlumbMonkey/voice-cloner/pkg/trainer"
	"github.com/PlumbMonkey/voice-cloner/pkg/voiceprint"
	"github.com/PlumbMonkey/voice-cloner/pkg/workflow"
)

// App is an assembled project.
type App struct {
	Config     *config.Config
	KV         kv.Store
	Data       storage.FileStore // segments, manifests, features
	Output     storage.FileStore // converted audio
	Pipeline   *segment.Pipeline
	Profiles   *profile.Store
	Toolkit    *toolkit.Command // nil when no toolkit is configured
	Controller *workflow.Controller

	detector envcheck.ProbeFunc
}

// Option configures New.
type Option func(*App)

// WithStore uses s instead of opening the configured state directory.
func WithStore(s kv.Store) Option {
	return func(a *App) { a.KV = s }
}

// WithFileStores uses data and output instead of the configured backend.
func WithFileStores(data, output storage.FileStore) Option {
	return func(a *App) {
		a.Data = data
		a.Output = output
	}
}

// WithProbe replaces the host probe used by the detect phase.
func WithProbe(p envcheck.ProbeFunc) Option {
	return func(a *App) { a.detector = p }
}

// New opens the stores and wires the workflow collaborators.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{Config: cfg}
	for _, opt := range opts {
		opt(a)
	}
	if a.KV == nil {
		s, err := kv.Open(cfg.Paths.State)
		if err != nil {
			return nil, err
		}
		a.KV = s
	}
	if a.Data == nil || a.Output == nil {
		if err := a.openFileStores(); err != nil {
			a.KV.Close()
			return nil, err
		}
	}
	a.Pipeline = segment.NewPipeline(cfg.SegmentConfig(), a.Data)
	a.Profiles = profile.NewStore(a.KV)
	if cfg.ToolkitConfigured() {
		a.Toolkit = toolkit.New(cfg.Toolkit)
	}

	setup := envcheck.Setup{Dirs: a.localDirs()}
	if a.Toolkit != nil {
		setup.Toolkit = a.Toolkit
	}
	var detOpts []envcheck.Option
	if a.detector != nil {
		detOpts = append(detOpts, envcheck.WithProbe(a.detector))
	}
	ctrl, err := workflow.New(ctx, workflow.Collaborators{
		Detector:     envcheck.NewDetector(cfg.Paths.Project, detOpts...),
		Installer:    setup,
		Preprocessor: a.Pipeline,
		Trainer:      trainPhase{a},
		Loader:       a,
	}, workflow.WithStore(a.KV))
	if err != nil {
		a.KV.Close()
		return nil, err
	}
	a.Controller = ctrl
	return a, nil
}

func (a *App) openFileStores() error {
	cfg := a.Config
	switch cfg.Storage.Backend {
	case config.BackendS3:
		client := storage.NewS3Client(cfg.Storage.S3)
		a.Data = storage.NewS3(client, cfg.Storage.S3.Bucket, path.Join(cfg.Storage.S3.Prefix, "data"))
		a.Output = storage.NewS3(client, cfg.Storage.S3.Bucket, path.Join(cfg.Storage.S3.Prefix, "output"))
		slog.Info("voicecloner: using s3 storage", "bucket", cfg.Storage.S3.Bucket, "prefix", cfg.Storage.S3.Prefix)
	default:
		data, err := storage.NewLocal(cfg.Paths.Data)
		if err != nil {
			return fmt.Errorf("voicecloner: data dir: %w", err)
		}
		out, err := storage.NewLocal(cfg.Paths.Output)
		if err != nil {
			return fmt.Errorf("voicecloner: output dir: %w", err)
		}
		a.Data, a.Output = data, out
	}
	return nil
}

// localDirs are the directories the setup phase creates.
func (a *App) localDirs() []string {
	p := a.Config.Paths
	dirs := []string{p.Input, p.Models, p.State}
	if a.Config.Storage.Backend != config.BackendS3 {
		dirs = append(dirs, p.Data, p.Output)
	}
	return dirs
}

// Close releases the kv store.
func (a *App) Close() error {
	return a.KV.Close()
}

// Trainer returns a trainer configured for the project. The device
// defaults to the one recommended by the detect phase.
func (a *App) Trainer() *trainer.Trainer {
	tc := a.Config.TrainerConfig()
	if a.Config.Training.Device == "" {
		if d := a.Controller.Status().Device; d != "" {
			tc.Device = d
		}
	}
	return trainer.New(tc, a.Data, a.KV, trainer.WithProfileFile(a.Config.Paths.Profile))
}

type trainPhase struct{ a *App }

func (t trainPhase) Train(ctx context.Context) (*trainer.Result, error) {
	return t.a.Trainer().Train(ctx)
}

// TargetProfile returns the speaker profile from the store, falling back to
// the JSON profile file. It returns nil without error when neither exists.
func (a *App) TargetProfile(ctx context.Context) (*profile.Profile, error) {
	speaker := a.Config.Training.Speaker
	p, err := a.Profiles.Get(ctx, speaker)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, profile.ErrNotFound) {
		return nil, err
	}
	if a.Config.Paths.Profile == "" {
		return nil, nil
	}
	p, err = profile.LoadJSON(a.Config.Paths.Profile)
	if err != nil {
		slog.Debug("voicecloner: no profile file", "path", a.Config.Paths.Profile, "error", err)
		return nil, nil
	}
	return p, nil
}

// Cascade builds the conversion cascade from what the project has: the
// learned strategy when a checkpoint exists, the profile strategy when a
// profile exists, the external toolkit when configured, and always the
// simulation.
func (a *App) Cascade(ctx context.Context) (*cascade.Cascade, error) {
	var strategies []cascade.Strategy

	model := voiceprint.NewMelStats()
	cp, err := trainer.NewCheckpoints(a.KV).Latest(ctx, a.Config.Training.Speaker)
	switch {
	case errors.Is(err, trainer.ErrNoCheckpoint):
	case err != nil:
		return nil, err
	case cp.Model != fmt.Sprintf("%T", model):
		slog.Warn("voicecloner: checkpoint from another model ignored", "model", cp.Model)
	default:
		strategies = append(strategies, &cascade.Learned{
			Model:   model,
			Target:  cp.Embedding,
			Decoder: cascade.MelStatsDecoder{Model: model},
		})
	}

	p, err := a.TargetProfile(ctx)
	if err != nil {
		return nil, err
	}
	if p != nil {
		ps := cascade.NewProfile(p)
		ps.AutoPitch = a.Config.Conversion.AutoPitch
		strategies = append(strategies, ps)
	}

	if a.Toolkit != nil {
		strategies = append(strategies, &cascade.External{Toolkit: a.Toolkit, Speaker: a.Config.Toolkit.Speaker})
	}
	strategies = append(strategies, cascade.Simulation{})
	return cascade.New(strategies...), nil
}

// Load builds the inference service. It is the collaborator of the infer
// phase.
func (a *App) Load(ctx context.Context) (*inference.Service, error) {
	c, err := a.Cascade(ctx)
	if err != nil {
		return nil, err
	}
	return inference.New(c, a.Output,
		inference.WithSampleRate(a.Config.Audio.SampleRate),
		inference.WithBitDepth(a.Config.Audio.BitDepth),
	), nil
}

// ConversionOptions returns the configured conversion defaults.
func (a *App) ConversionOptions() inference.Options {
	c := a.Config.Conversion
	return inference.Options{
		PitchShift: c.PitchShift,
		F0Method:   c.F0Method,
		Blend:      c.Blend,
		Preset:     c.Preset,
	}
}

// Forget removes the stored profile and checkpoints of speaker. The
// profile file is left alone.
func (a *App) Forget(ctx context.Context, speaker string) error {
	if err := a.Profiles.Delete(ctx, speaker); err != nil {
		return err
	}
	if err := trainer.NewCheckpoints(a.KV).Clear(ctx, speaker); err != nil {
		return err
	}
	slog.Info("voicecloner: speaker forgotten", "speaker", speaker)
	return nil
}
