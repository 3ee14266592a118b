// Package workflow gates the voice cloning phases: detect, setup,
// preprocess, train and infer. Each phase runs only after its predecessor
// succeeded, delegates to one collaborator and sets one flag.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/PlumbMonkey/voice-cloner/pkg/envcheck"
	"github.com/PlumbMonkey/voice-cloner/pkg/inference"
	"github.com/PlumbMonkey/voice-cloner/pkg/kv"
	"github.com/PlumbMonkey/voice-cloner/pkg/segment"
	"github.com/PlumbMonkey/voice-cloner/pkg/trainer"
	"github.com/PlumbMonkey/voice-cloner/pkg/voxerr"
)

var (
	// ErrOutOfOrder is returned when a phase runs before its predecessor
	// succeeded.
	ErrOutOfOrder error = voxerr.E(voxerr.PreconditionViolated)

	// ErrEnvironment is returned when detection finds blocking problems.
	ErrEnvironment = errors.New("workflow: environment check failed")

	// ErrNoCollaborator is returned when a phase has nothing to delegate to.
	ErrNoCollaborator = errors.New("workflow: phase not configured")
)

var stateKey = kv.Key{"workflow", "state"}

// Detector checks the host.
type Detector interface {
	Detect(ctx context.Context) (*envcheck.Report, error)
}

// Installer prepares the project environment.
type Installer interface {
	Run(ctx context.Context) (*envcheck.SetupReport, error)
}

// Preprocessor segments the input recordings.
type Preprocessor interface {
	Run(ctx context.Context, inputDir string) (*segment.Report, error)
}

// Trainer builds the speaker artifacts.
type Trainer interface {
	Train(ctx context.Context) (*trainer.Result, error)
}

// Loader builds the inference service from the trained artifacts.
type Loader interface {
	Load(ctx context.Context) (*inference.Service, error)
}

// Collaborators are the phase delegates. A nil collaborator makes its
// phase fail with ErrNoCollaborator.
type Collaborators struct {
	Detector     Detector
	Installer    Installer
	Preprocessor Preprocessor
	Trainer      Trainer
	Loader       Loader
}

// Controller runs the phases and tracks their flags.
type Controller struct {
	c     Collaborators
	store kv.Store

	mu     sync.Mutex
	state  State
	engine *inference.Service
}

// Option configures a Controller.
type Option func(*Controller)

// WithStore persists the state in s. It is loaded by New and saved after
// every phase that succeeds.
func WithStore(s kv.Store) Option {
	return func(c *Controller) { c.store = s }
}

// New returns a Controller. With a store, previously saved flags are
// restored.
func New(ctx context.Context, collab Collaborators, opts ...Option) (*Controller, error) {
	c := &Controller{c: collab}
	for _, opt := range opts {
		opt(c)
	}
	if c.store != nil {
		err := kv.Load(ctx, c.store, stateKey, &c.state)
		if err != nil && !errors.Is(err, kv.ErrNotFound) {
			return nil, fmt.Errorf("workflow: load state: %w", err)
		}
	}
	return c, nil
}

// Status returns a snapshot of the state.
func (c *Controller) Status() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// begin checks the predecessor of p.
func (c *Controller) begin(p Phase) error {
	if p == PhaseDetect {
		return nil
	}
	prev := p - 1
	c.mu.Lock()
	done := c.state.Done(prev)
	c.mu.Unlock()
	if !done {
		slog.Error("workflow: phase out of order", "phase", p, "requires", prev)
		return voxerr.Newf(voxerr.PreconditionViolated, "workflow."+p.String(), "%s must complete first", prev)
	}
	slog.Info("workflow: phase", "phase", p)
	return nil
}

// complete sets the flag of p, applies update and saves the state.
func (c *Controller) complete(ctx context.Context, p Phase, update func(*State)) error {
	c.mu.Lock()
	c.state.set(p)
	if update != nil {
		update(&c.state)
	}
	snapshot := c.state
	c.mu.Unlock()

	slog.Info("workflow: phase done", "phase", p, "flag", p.Flag())
	if c.store == nil {
		return nil
	}
	if err := kv.Save(ctx, c.store, stateKey, &snapshot); err != nil {
		return voxerr.New(voxerr.IOFailure, "workflow.save", err)
	}
	return nil
}

// Detect runs environment detection. It fails with ErrEnvironment when the
// report carries errors; the report is returned either way.
func (c *Controller) Detect(ctx context.Context) (*envcheck.Report, error) {
	if err := c.begin(PhaseDetect); err != nil {
		return nil, err
	}
	if c.c.Detector == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoCollaborator, PhaseDetect)
	}
	r, err := c.c.Detector.Detect(ctx)
	if err != nil {
		return nil, err
	}
	if !r.OK() {
		return r, fmt.Errorf("%w: %d errors", ErrEnvironment, len(r.Errors))
	}
	slog.Info("workflow: recommended device", "device", r.Device)
	return r, c.complete(ctx, PhaseDetect, func(s *State) { s.Device = r.Device })
}

// Setup prepares the environment. Requires Detect.
func (c *Controller) Setup(ctx context.Context) (*envcheck.SetupReport, error) {
	if err := c.begin(PhaseSetup); err != nil {
		return nil, err
	}
	if c.c.Installer == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoCollaborator, PhaseSetup)
	}
	r, err := c.c.Installer.Run(ctx)
	if err != nil {
		return nil, err
	}
	return r, c.complete(ctx, PhaseSetup, nil)
}

// Preprocess segments the recordings in inputDir. Requires Setup.
func (c *Controller) Preprocess(ctx context.Context, inputDir string) (*segment.Report, error) {
	if err := c.begin(PhasePreprocess); err != nil {
		return nil, err
	}
	if c.c.Preprocessor == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoCollaborator, PhasePreprocess)
	}
	r, err := c.c.Preprocessor.Run(ctx, inputDir)
	if err != nil {
		return r, err
	}
	st := r.Stats()
	slog.Info("workflow: preprocessing", "segments", st.Segments, "total", st.TotalDuration)
	return r, c.complete(ctx, PhasePreprocess, func(s *State) { s.Segments = st.Segments })
}

// Train builds the speaker artifacts. Requires Preprocess.
func (c *Controller) Train(ctx context.Context) (*trainer.Result, error) {
	if err := c.begin(PhaseTrain); err != nil {
		return nil, err
	}
	if c.c.Trainer == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoCollaborator, PhaseTrain)
	}
	r, err := c.c.Trainer.Train(ctx)
	if err != nil {
		return nil, err
	}
	if !r.Success {
		return r, voxerr.Newf(voxerr.StrategyFailed, "workflow.train", "trainer reported failure")
	}
	return r, c.complete(ctx, PhaseTrain, func(s *State) { s.Checkpoint = r.Path })
}

// Infer prepares the inference service. Requires Train.
func (c *Controller) Infer(ctx context.Context) (*inference.Service, error) {
	if err := c.begin(PhaseInfer); err != nil {
		return nil, err
	}
	svc, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	return svc, c.complete(ctx, PhaseInfer, nil)
}

func (c *Controller) load(ctx context.Context) (*inference.Service, error) {
	if c.c.Loader == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoCollaborator, PhaseInfer)
	}
	svc, err := c.c.Loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.engine = svc
	c.mu.Unlock()
	slog.Info("workflow: inference ready", "strategies", svc.Strategies())
	return svc, nil
}

// Engine returns the inference service. It requires the infer phase to
// have completed, in this process or in an earlier one whose state was
// restored from the store.
func (c *Controller) Engine(ctx context.Context) (*inference.Service, error) {
	c.mu.Lock()
	ready, svc := c.state.ReadyForInference, c.engine
	c.mu.Unlock()
	if !ready {
		return nil, voxerr.Newf(voxerr.PreconditionViolated, "workflow.engine", "%s must complete first", PhaseInfer)
	}
	if svc != nil {
		return svc, nil
	}
	return c.load(ctx)
}
