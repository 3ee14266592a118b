package kv_test

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/PlumbMonkey/voice-cloner/pkg/kv"
)

func stores(t *testing.T) map[string]kv.Store {
	t.Helper()
	b, err := kv.NewBadger(kv.BadgerOptions{InMemory: true})
	if err != nil {
		t.Fatalf("NewBadger: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return map[string]kv.Store{"memory": kv.NewMemory(), "badger": b}
}

func forEach(t *testing.T, fn func(t *testing.T, s kv.Store)) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) { fn(t, s) })
	}
}

func keys(t *testing.T, s kv.Store, prefix kv.Key) []string {
	t.Helper()
	var out []string
	for e, err := range s.List(context.Background(), prefix) {
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		out = append(out, e.Key.String())
	}
	return out
}

func fill(t *testing.T, s kv.Store, ks ...kv.Key) {
	t.Helper()
	for _, k := range ks {
		if err := s.Set(context.Background(), k, []byte(k.String())); err != nil {
			t.Fatalf("Set %s: %v", k, err)
		}
	}
}

func TestGetSetDelete(t *testing.T) {
	forEach(t, func(t *testing.T, s kv.Store) {
		ctx := context.Background()
		key := kv.Key{"profile", "alice"}

		if _, err := s.Get(ctx, key); !errors.Is(err, kv.ErrNotFound) {
			t.Fatalf("Get missing: %v, want ErrNotFound", err)
		}
		for _, v := range []string{"v1", "v2"} {
			if err := s.Set(ctx, key, []byte(v)); err != nil {
				t.Fatal(err)
			}
			if got, err := s.Get(ctx, key); err != nil || string(got) != v {
				t.Fatalf("Get = %q, %v; want %q", got, err, v)
			}
		}
		if err := s.Delete(ctx, key); err != nil {
			t.Fatal(err)
		}
		if _, err := s.Get(ctx, key); !errors.Is(err, kv.ErrNotFound) {
			t.Fatalf("Get after delete: %v", err)
		}
		if err := s.Delete(ctx, kv.Key{"checkpoint", "nobody", "000001"}); err != nil {
			t.Fatalf("Delete missing: %v", err)
		}
	})
}

func TestList(t *testing.T) {
	forEach(t, func(t *testing.T, s kv.Store) {
		fill(t, s,
			kv.Key{"profile", "bob"},
			kv.Key{"profile", "alice"},
			kv.Key{"profiles", "x"},
			kv.Key{"checkpoint", "alice", "000002"},
			kv.Key{"checkpoint", "alice", "000001"},
			kv.Key{"checkpoint", "alicia", "000001"},
			kv.Key{"workflow", "state"},
		)
		if got, want := keys(t, s, kv.Key{"profile"}), []string{"profile:alice", "profile:bob"}; !slices.Equal(got, want) {
			t.Errorf("List profile = %v, want %v", got, want)
		}
		want := []string{"checkpoint:alice:000001", "checkpoint:alice:000002"}
		if got := keys(t, s, kv.Key{"checkpoint", "alice"}); !slices.Equal(got, want) {
			t.Errorf("List checkpoint:alice = %v, want %v", got, want)
		}
		if got := keys(t, s, nil); len(got) != 7 {
			t.Errorf("List all = %v", got)
		}
	})
}

func TestListStop(t *testing.T) {
	forEach(t, func(t *testing.T, s kv.Store) {
		fill(t, s, kv.Key{"a", "1"}, kv.Key{"a", "2"}, kv.Key{"a", "3"})
		n := 0
		for _, err := range s.List(context.Background(), kv.Key{"a"}) {
			if err != nil {
				t.Fatal(err)
			}
			n++
			if n == 2 {
				break
			}
		}
		if n != 2 {
			t.Errorf("iterated %d entries", n)
		}
	})
}

func TestDeletePrefix(t *testing.T) {
	forEach(t, func(t *testing.T, s kv.Store) {
		fill(t, s,
			kv.Key{"checkpoint", "alice", "000001"},
			kv.Key{"checkpoint", "alice", "000002"},
			kv.Key{"checkpoint", "alicia", "000001"},
		)
		if err := s.DeletePrefix(context.Background(), kv.Key{"checkpoint", "alice"}); err != nil {
			t.Fatal(err)
		}
		if got := keys(t, s, kv.Key{"checkpoint"}); !slices.Equal(got, []string{"checkpoint:alicia:000001"}) {
			t.Errorf("remaining = %v", got)
		}
	})
}

func TestInvalidKey(t *testing.T) {
	forEach(t, func(t *testing.T, s kv.Store) {
		ctx := context.Background()
		for _, k := range []kv.Key{nil, {"bad:seg", "x"}, {"profile", ""}} {
			if err := s.Set(ctx, k, []byte("v")); !errors.Is(err, kv.ErrInvalidKey) {
				t.Errorf("Set(%q) = %v, want ErrInvalidKey", k, err)
			}
		}
		for _, err := range s.List(ctx, kv.Key{"a:b"}) {
			if !errors.Is(err, kv.ErrInvalidKey) {
				t.Errorf("List err = %v", err)
			}
		}
	})
}

func TestValueIsolation(t *testing.T) {
	ctx := context.Background()
	s := kv.NewMemory()
	key := kv.Key{"iso", "test"}
	original := []byte("original")
	if err := s.Set(ctx, key, original); err != nil {
		t.Fatal(err)
	}
	original[0] = 'X'
	got, _ := s.Get(ctx, key)
	got[1] = 'Y'
	if again, _ := s.Get(ctx, key); string(again) != "original" {
		t.Fatalf("stored value mutated: %q", again)
	}
}

type record struct {
	Name    string    `msgpack:"name"`
	Values  []float64 `msgpack:"values"`
	Created time.Time `msgpack:"created"`
}

func TestLoadSave(t *testing.T) {
	forEach(t, func(t *testing.T, s kv.Store) {
		ctx := context.Background()
		key := kv.Key{"profile", "alice"}
		var got record
		if err := kv.Load(ctx, s, key, &got); !errors.Is(err, kv.ErrNotFound) {
			t.Fatalf("Load missing: %v", err)
		}
		want := record{Name: "alice", Values: []float64{700, 1200}, Created: time.Unix(1700000000, 0).UTC()}
		if err := kv.Save(ctx, s, key, want); err != nil {
			t.Fatal(err)
		}
		if err := kv.Load(ctx, s, key, &got); err != nil {
			t.Fatal(err)
		}
		if got.Name != want.Name || !slices.Equal(got.Values, want.Values) || !got.Created.Equal(want.Created) {
			t.Errorf("Load = %+v, want %+v", got, want)
		}

		if err := s.Set(ctx, kv.Key{"bad"}, []byte{0xc1}); err != nil {
			t.Fatal(err)
		}
		if err := kv.Load(ctx, s, kv.Key{"bad"}, &got); err == nil {
			t.Error("Load of a corrupt value succeeded")
		}
	})
}

func TestOpen(t *testing.T) {
	s, err := kv.Open("")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*kv.Memory); !ok {
		t.Errorf("Open(\"\") = %T, want *kv.Memory", s)
	}

	dir := filepath.Join(t.TempDir(), "state")
	s, err = kv.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := s.Set(ctx, kv.Key{"workflow", "state"}, []byte("1")); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = kv.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if v, err := s.Get(ctx, kv.Key{"workflow", "state"}); err != nil || string(v) != "1" {
		t.Errorf("reopened Get = %q, %v", v, err)
	}
}

func TestBadgerNeedsDir(t *testing.T) {
	if _, err := kv.NewBadger(kv.BadgerOptions{}); err == nil {
		t.Fatal("NewBadger without a directory succeeded")
	}
}
