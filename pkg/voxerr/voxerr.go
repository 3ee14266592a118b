// Package voxerr classifies failures of the voice conversion pipeline.
//
// Every error carries a Kind that decides how callers react to it:
// FileInvalid and AnalysisDegenerate are skipped and the batch continues,
// StrategyUnavailable and StrategyFailed make the cascade fall through,
// PreconditionViolated and IOFailure are the only kinds surfaced to users.
package voxerr

import (
	"errors"
	"fmt"
)

// Kind is the class of a pipeline failure.
type Kind int

const (
	KindUnknown Kind = iota
	FileInvalid
	AnalysisDegenerate
	StrategyUnavailable
	StrategyFailed
	PreconditionViolated
	IOFailure
)

func (k Kind) String() string {
	switch k {
	case FileInvalid:
		return "file_invalid"
	case AnalysisDegenerate:
		return "analysis_degenerate"
	case StrategyUnavailable:
		return "strategy_unavailable"
	case StrategyFailed:
		return "strategy_failed"
	case PreconditionViolated:
		return "precondition_violated"
	case IOFailure:
		return "io_failure"
	}
	return "unknown"
}

// Error is a classified pipeline error.
type Error struct {
	Kind Kind
	Op   string // operation, e.g. "segment.load"
	Path string // file involved, if any
	Err  error
}

func (e *Error) Error() string {
	s := e.Op
	if e.Path != "" {
		s += " " + e.Path
	}
	if e.Err != nil {
		return fmt.Sprintf("%s [%s]: %v", s, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s [%s]", s, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error with the same Kind and no Op, so that
// errors.Is(err, voxerr.E(voxerr.IOFailure)) tests the class only.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Path == "" && t.Err == nil && t.Kind == e.Kind
}

// E returns a bare error of kind k, used as an errors.Is target.
func E(k Kind) *Error { return &Error{Kind: k} }

// New returns an error of kind k for op.
func New(k Kind, op string, err error) *Error {
	return &Error{Kind: k, Op: op, Err: err}
}

// Newf is New with a formatted message.
func Newf(k Kind, op, format string, args ...any) *Error {
	return &Error{Kind: k, Op: op, Err: fmt.Errorf(format, args...)}
}

// File returns an error of kind k for op on path.
func File(k Kind, op, path string, err error) *Error {
	return &Error{Kind: k, Op: op, Path: path, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err's chain contains an *Error of kind k.
func IsKind(err error, k Kind) bool {
	return errors.Is(err, E(k))
}
