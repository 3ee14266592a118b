package voxerr

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestKindMatching(t *testing.T) {
	err := File(IOFailure, "inference.write", "/tmp/out.wav", io.ErrShortWrite)
	wrapped := fmt.Errorf("convert: %w", err)

	if !IsKind(wrapped, IOFailure) {
		t.Fatal("IsKind(IOFailure) = false, want true")
	}
	if IsKind(wrapped, FileInvalid) {
		t.Fatal("IsKind(FileInvalid) = true, want false")
	}
	if !errors.Is(wrapped, io.ErrShortWrite) {
		t.Fatal("cause not reachable through Unwrap")
	}
	if got := KindOf(wrapped); got != IOFailure {
		t.Errorf("KindOf = %v, want %v", got, IOFailure)
	}
	if got := KindOf(io.EOF); got != KindUnknown {
		t.Errorf("KindOf(io.EOF) = %v, want unknown", got)
	}
}

func TestErrorString(t *testing.T) {
	err := Newf(PreconditionViolated, "workflow.preprocess", "missing %s", "env_setup")
	want := "workflow.preprocess [precondition_violated]: missing env_setup"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
