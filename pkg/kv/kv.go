// Package kv is the durable state of a voice cloning project: speaker
// profiles, embedding checkpoints and workflow flags. Keys are paths such
// as {"profile", "alice"} or {"workflow", "state"}, stored joined with ':'.
// Values are opaque bytes; Load and Save store msgpack-encoded structs.
//
// Badger is the on-disk implementation under the project's state
// directory; Memory backs tests and runs without a state directory.
package kv

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
)

var (
	// ErrNotFound is returned when a key does not exist in the store.
	ErrNotFound = errors.New("kv: not found")

	// ErrInvalidKey is returned for keys with an empty segment or a
	// segment containing the separator.
	ErrInvalidKey = errors.New("kv: invalid key")
)

// Separator joins key segments.
const Separator = ':'

// Key is a path of string segments.
type Key []string

// String returns the stored form of the key, "profile:alice".
func (k Key) String() string {
	return strings.Join(k, string(Separator))
}

// Validate checks that every segment is non-empty and free of the
// separator.
func (k Key) Validate() error {
	for _, seg := range k {
		if seg == "" || strings.IndexByte(seg, Separator) >= 0 {
			return fmt.Errorf("%w: %q", ErrInvalidKey, k.String())
		}
	}
	return nil
}

func (k Key) bytes() ([]byte, error) {
	if len(k) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	if err := k.Validate(); err != nil {
		return nil, err
	}
	return []byte(k.String()), nil
}

// scope returns the byte prefix matching every key under k. An empty k
// matches everything.
func (k Key) scope() ([]byte, error) {
	if len(k) == 0 {
		return nil, nil
	}
	b, err := k.bytes()
	if err != nil {
		return nil, err
	}
	return append(b, Separator), nil
}

func parseKey(b []byte) Key {
	return Key(strings.Split(string(b), string(Separator)))
}

// Entry is a key-value pair returned by List.
type Entry struct {
	Key   Key
	Value []byte
}

// Store is a key-value store with path keys.
type Store interface {
	// Get returns the value of key, or ErrNotFound.
	Get(ctx context.Context, key Key) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key Key, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key Key) error

	// List yields the entries strictly under prefix in key order. A nil
	// prefix lists everything.
	List(ctx context.Context, prefix Key) iter.Seq2[Entry, error]

	// DeletePrefix removes every entry strictly under prefix.
	DeletePrefix(ctx context.Context, prefix Key) error

	Close() error
}
