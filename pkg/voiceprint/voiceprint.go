// Package voiceprint computes speaker embeddings and compact voice labels.
//
// # Pipeline
//
//  1. Model.Extract: 16 kHz mono float audio → fixed-size embedding
//  2. Hasher.Hash: embedding → hex hash (e.g. "A3F8")
//  3. Detector.Feed: sequence of hashes → Verdict
//
// The trainer runs the pipeline over every training segment to check that
// the corpus holds a single speaker, and stores the mean embedding as the
// target of the learned conversion strategy.
//
// # Multi-Level Precision
//
// Hashes support prefix truncation, similar to geohash:
//
//	16 bit: A3F8  ← exact match
//	12 bit: A3F   ← fuzzy match
//	 8 bit: A3    ← group level
//	 4 bit: A     ← coarse partition
package voiceprint

import (
	"fmt"
	"math"
)

// SpeakerStatus is the outcome of a speaker consistency check.
type SpeakerStatus int

const (
	// StatusUnknown means no hash dominates.
	StatusUnknown SpeakerStatus = iota

	// StatusSingle means one stable speaker.
	StatusSingle

	// StatusOverlap means two hashes share most of the window.
	StatusOverlap
)

func (s SpeakerStatus) String() string {
	switch s {
	case StatusUnknown:
		return "unknown"
	case StatusSingle:
		return "single"
	case StatusOverlap:
		return "overlap"
	default:
		return fmt.Sprintf("SpeakerStatus(%d)", int(s))
	}
}

// Verdict is the speaker state of a window of hashes.
type Verdict struct {
	Status SpeakerStatus `msgpack:"status"`

	// Speaker is the dominant label ("voice:A3F8"); empty when unknown.
	Speaker string `msgpack:"speaker,omitempty"`

	// Candidates holds the dominant label, plus the runner-up on overlap.
	Candidates []string `msgpack:"candidates,omitempty"`

	// Confidence in [0, 1]: share of the window covered by the candidates.
	Confidence float32 `msgpack:"confidence"`
}

// VoiceLabel returns the label for a hash: "voice:{hash}".
func VoiceLabel(hash string) string {
	return "voice:" + hash
}

// Cosine returns the cosine similarity of a and b, or 0 when either is
// zero or their lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / math.Sqrt(na*nb)
}
