package workflow

import (
	"fmt"
	"time"
)

// Phase is one step of the workflow. Phases run strictly in order.
type Phase int

const (
	PhaseDetect Phase = iota
	PhaseSetup
	PhasePreprocess
	PhaseTrain
	PhaseInfer
)

// Phases lists every phase in order.
var Phases = []Phase{PhaseDetect, PhaseSetup, PhasePreprocess, PhaseTrain, PhaseInfer}

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseDetect:
		return "detect"
	case PhaseSetup:
		return "setup"
	case PhasePreprocess:
		return "preprocess"
	case PhaseTrain:
		return "train"
	case PhaseInfer:
		return "infer"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Flag returns the name of the state flag the phase sets.
func (p Phase) Flag() string {
	switch p {
	case PhaseDetect:
		return "env_detected"
	case PhaseSetup:
		return "env_setup"
	case PhasePreprocess:
		return "audio_processed"
	case PhaseTrain:
		return "model_trained"
	case PhaseInfer:
		return "ready_for_inference"
	default:
		return ""
	}
}

// State holds the workflow flags and what the phases reported. Flags only
// ever go from false to true.
type State struct {
	EnvDetected       bool `msgpack:"env_detected" json:"env_detected"`
	EnvSetup          bool `msgpack:"env_setup" json:"env_setup"`
	AudioProcessed    bool `msgpack:"audio_processed" json:"audio_processed"`
	ModelTrained      bool `msgpack:"model_trained" json:"model_trained"`
	ReadyForInference bool `msgpack:"ready_for_inference" json:"ready_for_inference"`

	Device     string    `msgpack:"device,omitempty" json:"device,omitempty"`
	Segments   int       `msgpack:"segments,omitempty" json:"segments,omitempty"`
	Checkpoint string    `msgpack:"checkpoint,omitempty" json:"checkpoint,omitempty"`
	UpdatedAt  time.Time `msgpack:"updated_at" json:"updated_at"`
}

// Done reports whether the flag of p is set.
func (s State) Done(p Phase) bool {
	switch p {
	case PhaseDetect:
		return s.EnvDetected
	case PhaseSetup:
		return s.EnvSetup
	case PhasePreprocess:
		return s.AudioProcessed
	case PhaseTrain:
		return s.ModelTrained
	case PhaseInfer:
		return s.ReadyForInference
	}
	return false
}

func (s *State) set(p Phase) {
	switch p {
	case PhaseDetect:
		s.EnvDetected = true
	case PhaseSetup:
		s.EnvSetup = true
	case PhasePreprocess:
		s.AudioProcessed = true
	case PhaseTrain:
		s.ModelTrained = true
	case PhaseInfer:
		s.ReadyForInference = true
	}
	s.UpdatedAt = time.Now().UTC()
}

// Next returns the first phase whose flag is not set, and false when all
// phases are done.
func (s State) Next() (Phase, bool) {
	for _, p := range Phases {
		if !s.Done(p) {
			return p, true
		}
	}
	return 0, false
}
