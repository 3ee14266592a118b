// Package cascade converts a source recording toward a target speaker by
// trying conversion strategies in priority order.
//
// Strategies are checked for availability once, when the Cascade is built.
// A strategy that returns an error, returns nothing or panics is logged
// and skipped; the next one is tried. Simulation is always available, so a
// structurally valid request always yields a buffer, and the output has
// exactly the length of the source whichever strategy wins.
package cascade

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/PlumbMonkey/voice-cloner/pkg/audio/pcm"
	"github.com/PlumbMonkey/voice-cloner/pkg/voxerr"
)

// Strategy is one way of converting a request.
type Strategy interface {
	// Name identifies the strategy in logs and results.
	Name() string

	// Available reports whether the strategy has what it needs. It is
	// called once by New.
	Available() bool

	// Convert returns the converted audio. The cascade fixes up the
	// length, so implementations need not be sample exact.
	Convert(ctx context.Context, req Request) (*pcm.Buffer, error)
}

// Result is the output of a conversion.
type Result struct {
	Buffer   *pcm.Buffer
	Strategy string
}

// Cascade holds the available strategies in priority order.
type Cascade struct {
	strategies []Strategy
	skipped    []string
}

// New checks each strategy and keeps the available ones in the given
// order. A Simulation strategy is appended when none was given.
func New(strategies ...Strategy) *Cascade {
	c := &Cascade{}
	hasSim := false
	for _, s := range strategies {
		if s == nil {
			continue
		}
		switch s.(type) {
		case Simulation, *Simulation:
			hasSim = true
		}
		if !s.Available() {
			slog.Info("cascade: strategy unavailable", "strategy", s.Name())
			c.skipped = append(c.skipped, s.Name())
			continue
		}
		c.strategies = append(c.strategies, s)
	}
	if !hasSim {
		c.strategies = append(c.strategies, Simulation{})
	}
	slog.Debug("cascade: ready", "strategies", c.Names(), "skipped", c.skipped)
	return c
}

// Names lists the available strategies in the order they are tried.
func (c *Cascade) Names() []string {
	names := make([]string, len(c.strategies))
	for i, s := range c.strategies {
		names[i] = s.Name()
	}
	return names
}

// Skipped lists the strategies found unavailable by New.
func (c *Cascade) Skipped() []string { return c.skipped }

// Convert normalises req and runs the strategies in order until one
// succeeds. It fails only for an empty source, a cancelled context, or
// when every strategy failed.
func (c *Cascade) Convert(ctx context.Context, req Request) (*Result, error) {
	if req.Source == nil || req.Source.Len() == 0 || req.Source.SampleRate <= 0 {
		return nil, voxerr.Newf(voxerr.FileInvalid, "cascade.Convert", "empty source")
	}
	req = req.Normalize()
	n := req.Source.Len()

	var errs []error
	for _, s := range c.strategies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		out, err := attempt(ctx, s, req)
		if err != nil {
			slog.Warn("cascade: strategy failed", "strategy", s.Name(), "error", err, "elapsed", time.Since(start))
			errs = append(errs, err)
			continue
		}
		if out.Len() != n {
			out = out.FitLength(n)
		}
		slog.Info("cascade: converted", "strategy", s.Name(), "samples", n, "elapsed", time.Since(start))
		return &Result{Buffer: out, Strategy: s.Name()}, nil
	}
	return nil, voxerr.New(voxerr.StrategyFailed, "cascade.Convert", errors.Join(errs...))
}

// attempt runs one strategy, turning panics and empty output into
// StrategyFailed errors.
func attempt(ctx context.Context, s Strategy, req Request) (out *pcm.Buffer, err error) {
	op := "cascade." + s.Name()
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, voxerr.New(voxerr.StrategyFailed, op, fmt.Errorf("panic: %v", r))
		}
	}()
	out, err = s.Convert(ctx, req)
	if err != nil {
		if voxerr.KindOf(err) == voxerr.KindUnknown {
			err = voxerr.New(voxerr.StrategyFailed, op, err)
		}
		return nil, err
	}
	if out == nil || out.Len() == 0 {
		return nil, voxerr.Newf(voxerr.StrategyFailed, op, "no output")
	}
	return out, nil
}
