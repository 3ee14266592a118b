package envcheck

import (
	"context"
	"log/slog"
	"os"

	"github.com/PlumbMonkey/voice-cloner/pkg/voxerr"
)

// Toolkit is the optional external conversion toolkit.
type Toolkit interface {
	Available() bool
}

// SetupReport is the result of Setup.Run.
type SetupReport struct {
	Dirs     []string
	Toolkit  bool
	Warnings []string
}

// Setup prepares a project on the local filesystem.
type Setup struct {
	// Dirs are created when missing and must be writable.
	Dirs []string
	// Toolkit, when set, is probed and reported. A missing toolkit is a
	// warning: conversion falls back to the built-in strategies.
	Toolkit Toolkit
}

// Run creates the directories and checks that each accepts writes.
func (s Setup) Run(ctx context.Context) (*SetupReport, error) {
	r := &SetupReport{}
	for _, dir := range s.Dirs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, voxerr.File(voxerr.IOFailure, "envcheck.setup", dir, err)
		}
		if err := probeWritable(dir); err != nil {
			return nil, voxerr.File(voxerr.IOFailure, "envcheck.setup", dir, err)
		}
		r.Dirs = append(r.Dirs, dir)
		slog.Debug("envcheck: directory ready", "dir", dir)
	}
	if s.Toolkit != nil {
		r.Toolkit = s.Toolkit.Available()
		if !r.Toolkit {
			r.Warnings = append(r.Warnings, "conversion toolkit not available, using built-in conversion")
		}
	}
	slog.Info("envcheck: setup done", "dirs", len(r.Dirs), "toolkit", r.Toolkit)
	return r, nil
}

func probeWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".write-check-*")
	if err != nil {
		return err
	}
	name := f.Name()
	if _, err := f.WriteString("ok"); err != nil {
		f.Close()
		os.Remove(name)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return err
	}
	return os.Remove(name)
}
