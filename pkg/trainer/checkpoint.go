package trainer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/PlumbMonkey/voice-cloner/pkg/kv"
	"github.com/PlumbMonkey/voice-cloner/pkg/voiceprint"
)

// ErrNoCheckpoint is returned when a speaker has no stored checkpoint.
var ErrNoCheckpoint = errors.New("trainer: no checkpoint")

// Checkpoint is a stored target embedding.
type Checkpoint struct {
	Speaker   string             `msgpack:"speaker"`
	Seq       int                `msgpack:"seq"`
	Model     string             `msgpack:"model"`
	Embedding []float32          `msgpack:"embedding"`
	Segments  int                `msgpack:"segments"`
	Verdict   voiceprint.Verdict `msgpack:"verdict"`
	Epochs    int                `msgpack:"epochs"`
	CreatedAt time.Time          `msgpack:"created_at"`
}

// Checkpoints stores checkpoints in a kv.Store under
// {"checkpoint", speaker, seq}; seq is zero padded so listing is in
// creation order.
type Checkpoints struct {
	kv kv.Store
}

// NewCheckpoints returns a checkpoint store on s.
func NewCheckpoints(s kv.Store) *Checkpoints {
	return &Checkpoints{kv: s}
}

func checkpointKey(speaker string, seq int) kv.Key {
	return kv.Key{"checkpoint", speaker, fmt.Sprintf("%06d", seq)}
}

// List returns every checkpoint of speaker, oldest first.
func (c *Checkpoints) List(ctx context.Context, speaker string) ([]*Checkpoint, error) {
	var out []*Checkpoint
	for e, err := range c.kv.List(ctx, kv.Key{"checkpoint", speaker}) {
		if err != nil {
			return nil, err
		}
		var cp Checkpoint
		if err := msgpack.Unmarshal(e.Value, &cp); err != nil {
			return nil, fmt.Errorf("trainer: decode %s: %w", e.Key, err)
		}
		out = append(out, &cp)
	}
	return out, nil
}

// Add stores cp as the next checkpoint of its speaker and returns the
// number of checkpoints the speaker now has.
func (c *Checkpoints) Add(ctx context.Context, cp *Checkpoint) (int, error) {
	existing, err := c.List(ctx, cp.Speaker)
	if err != nil {
		return 0, err
	}
	cp.Seq = len(existing) + 1
	if n := len(existing); n > 0 && existing[n-1].Seq >= cp.Seq {
		cp.Seq = existing[n-1].Seq + 1
	}
	if err := kv.Save(ctx, c.kv, checkpointKey(cp.Speaker, cp.Seq), cp); err != nil {
		return 0, err
	}
	return len(existing) + 1, nil
}

// Latest returns the newest checkpoint of speaker.
func (c *Checkpoints) Latest(ctx context.Context, speaker string) (*Checkpoint, error) {
	all, err := c.List(ctx, speaker)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("%w for %q", ErrNoCheckpoint, speaker)
	}
	return all[len(all)-1], nil
}

// Clear removes every checkpoint of speaker.
func (c *Checkpoints) Clear(ctx context.Context, speaker string) error {
	return c.kv.DeletePrefix(ctx, kv.Key{"checkpoint", speaker})
}
