package kv

import (
	"context"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Load reads key and decodes its msgpack value into v. It returns
// ErrNotFound when the key is absent.
func Load(ctx context.Context, s Store, key Key, v any) error {
	data, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := msgpack.Unmarshal(data, v); err != nil {
		return fmt.Errorf("kv: decode %s: %w", key, err)
	}
	return nil
}

// Save msgpack-encodes v and stores it under key.
func Save(ctx context.Context, s Store, key Key, v any) error {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("kv: encode %s: %w", key, err)
	}
	return s.Set(ctx, key, data)
}

// Open returns a Badger store in dir, or an in-memory store when dir is
// empty.
func Open(dir string) (Store, error) {
	if dir == "" {
		return NewMemory(), nil
	}
	b, err := NewBadger(BadgerOptions{Dir: dir})
	if err != nil {
		return nil, fmt.Errorf("kv: open %s: %w", dir, err)
	}
	return b, nil
}
