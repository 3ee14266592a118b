package cascade

import (
	"context"
	"math"

	"github.com/PlumbMonkey/voice-cloner/pkg/audio/pcm"
	"github.com/PlumbMonkey/voice-cloner/pkg/toolkit"
)

// Toolkit is an external converter such as toolkit.Command.
type Toolkit interface {
	Available() bool
	Convert(ctx context.Context, buf *pcm.Buffer, opts toolkit.Options) (*pcm.Buffer, error)
}

// External delegates the conversion to a Toolkit. The pitch shift is
// rounded to whole semitones and the blend is passed as cluster ratio.
type External struct {
	Toolkit Toolkit
	Speaker string
}

func (e *External) Name() string { return "external" }

func (e *External) Available() bool {
	return e != nil && e.Toolkit != nil && e.Toolkit.Available()
}

// Convert implements Strategy.
func (e *External) Convert(ctx context.Context, req Request) (*pcm.Buffer, error) {
	return e.Toolkit.Convert(ctx, req.Source, toolkit.Options{
		Speaker:      e.Speaker,
		Transpose:    int(math.Round(req.PitchShift)),
		F0Method:     string(req.F0Method),
		ClusterRatio: req.Blend,
	})
}
