package profile

import (
	"context"
	"errors"
	"fmt"

	"github.com/PlumbMonkey/voice-cloner/pkg/kv"
)

// ErrNotFound is returned when no profile is stored under a name.
var ErrNotFound = errors.New("profile: not found")

// Store persists profiles in a kv.Store under {"profile", name}.
type Store struct {
	kv kv.Store
}

// NewStore returns a Store on s.
func NewStore(s kv.Store) *Store {
	return &Store{kv: s}
}

func key(name string) kv.Key { return kv.Key{"profile", name} }

// Put stores p under name.
func (s *Store) Put(ctx context.Context, name string, p *Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return kv.Save(ctx, s.kv, key(name), p)
}

// Get returns the profile stored under name.
func (s *Store) Get(ctx context.Context, name string) (*Profile, error) {
	var p Profile
	if err := kv.Load(ctx, s.kv, key(name), &p); err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, err
	}
	return &p, nil
}

// Names lists the stored profile names in order.
func (s *Store) Names(ctx context.Context) ([]string, error) {
	var out []string
	for e, err := range s.kv.List(ctx, kv.Key{"profile"}) {
		if err != nil {
			return nil, err
		}
		out = append(out, e.Key[len(e.Key)-1])
	}
	return out, nil
}

// Delete removes the profile stored under name.
func (s *Store) Delete(ctx context.Context, name string) error {
	return s.kv.Delete(ctx, key(name))
}
