package kv

import (
	"bytes"
	"context"
	"iter"
	"slices"
	"sync"
)

// Memory is an in-memory Store, safe for concurrent use.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key Key) ([]byte, error) {
	k, err := key.bytes()
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[string(k)]
	if !ok {
		return nil, ErrNotFound
	}
	return bytes.Clone(v), nil
}

func (m *Memory) Set(_ context.Context, key Key, value []byte) error {
	k, err := key.bytes()
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data[string(k)] = bytes.Clone(value)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, key Key) error {
	k, err := key.bytes()
	if err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.data, string(k))
	m.mu.Unlock()
	return nil
}

// under returns the sorted stored keys in scope. Callers hold mu.
func (m *Memory) under(scope []byte) []string {
	var ks []string
	for k := range m.data {
		if bytes.HasPrefix([]byte(k), scope) {
			ks = append(ks, k)
		}
	}
	slices.Sort(ks)
	return ks
}

// List yields a snapshot taken when iteration starts.
func (m *Memory) List(_ context.Context, prefix Key) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		scope, err := prefix.scope()
		if err != nil {
			yield(Entry{}, err)
			return
		}
		m.mu.RLock()
		ks := m.under(scope)
		entries := make([]Entry, len(ks))
		for i, k := range ks {
			entries[i] = Entry{Key: parseKey([]byte(k)), Value: bytes.Clone(m.data[k])}
		}
		m.mu.RUnlock()

		for _, e := range entries {
			if !yield(e, nil) {
				return
			}
		}
	}
}

func (m *Memory) DeletePrefix(_ context.Context, prefix Key) error {
	scope, err := prefix.scope()
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range m.under(scope) {
		delete(m.data, k)
	}
	return nil
}

func (m *Memory) Close() error { return nil }
