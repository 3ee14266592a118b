package cascade

import (
	"context"
	"fmt"

	"github.com/PlumbMonkey/voice-cloner/pkg/audio/pcm"
	"github.com/PlumbMonkey/voice-cloner/pkg/spectral"
	"github.com/PlumbMonkey/voice-cloner/pkg/voiceprint"
)

// Decoder renders source audio with the timbre of a target embedding.
type Decoder interface {
	Decode(ctx context.Context, req Request, source, target []float32) (*pcm.Buffer, error)
}

// Learned converts with a trained embedding model: the source is embedded,
// and the decoder moves it toward the stored target embedding.
type Learned struct {
	Model   voiceprint.Model
	Target  []float32
	Decoder Decoder
}

func (l *Learned) Name() string { return "learned" }

func (l *Learned) Available() bool {
	return l != nil && l.Model != nil && l.Decoder != nil &&
		len(l.Target) > 0 && len(l.Target) == l.Model.Dimension()
}

// Convert implements Strategy.
func (l *Learned) Convert(ctx context.Context, req Request) (*pcm.Buffer, error) {
	src, err := voiceprint.Embed(l.Model, req.Source)
	if err != nil {
		return nil, fmt.Errorf("embed source: %w", err)
	}
	return l.Decoder.Decode(ctx, req, src, l.Target)
}

// MelStatsDecoder decodes MelStats embeddings: the difference between the
// long-term mel spectra becomes a per-band gain curve, applied by the
// spectral chain after the requested pitch shift. The request blend (or
// the preset default) scales the log gains.
type MelStatsDecoder struct {
	Model *voiceprint.MelStats
}

// Decode implements Decoder.
func (d MelStatsDecoder) Decode(_ context.Context, req Request, source, target []float32) (*pcm.Buffer, error) {
	pr := req.preset()
	gains, err := d.Model.BandGains(source, target, req.blend(pr))
	if err != nil {
		return nil, err
	}
	return spectral.Chain(req.Source, spectral.Params{
		PitchShift:  req.PitchShift,
		BandCenters: d.Model.Centers(),
		BandGains:   gains,
		MinScale:    pr.MinScale,
		MaxScale:    pr.MaxScale,
	}), nil
}
