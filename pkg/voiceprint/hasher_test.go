package voiceprint

import (
	"math/rand/v2"
	"strings"
	"testing"
)

func randomEmbedding(rng *rand.Rand, dim int) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = float32(rng.NormFloat64())
	}
	return v
}

func TestHasherStable(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))
	emb := randomEmbedding(rng, 160)

	a := NewHasher(160, 16, 42).Hash(emb)
	b := NewHasher(160, 16, 42).Hash(emb)
	if a != b {
		t.Errorf("same seed: %s != %s", a, b)
	}
	if c := NewHasher(160, 16, 43).Hash(emb); c == a {
		t.Errorf("seeds 42 and 43 gave the same hash %s", a)
	}
}

func TestHasherNearbyEmbeddings(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	h := NewHasher(160, 16, 42)
	same := 0
	const trials = 20
	for range trials {
		emb := randomEmbedding(rng, 160)
		near := make([]float32, len(emb))
		for i, v := range emb {
			near[i] = v + 0.001*float32(rng.NormFloat64())
		}
		if Truncate(h.Hash(emb), 8) == Truncate(h.Hash(near), 8) {
			same++
		}
	}
	if same < trials-2 {
		t.Errorf("only %d/%d perturbed embeddings kept their 8-bit hash", same, trials)
	}
}

func TestHasherScaleInvariant(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	h := NewHasher(64, 12, 9)
	emb := randomEmbedding(rng, 64)
	louder := make([]float32, len(emb))
	for i, v := range emb {
		louder[i] = 4 * v
	}
	if a, b := h.Hash(emb), h.Hash(louder); a != b {
		t.Errorf("scaled embedding: %s != %s", a, b)
	}
}

func TestHasherFormat(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	for _, bits := range []int{4, 8, 12, 16, 32} {
		h := NewHasher(32, bits, 1)
		if h.Bits() != bits || h.Dim() != 32 {
			t.Errorf("accessors = %d bits, dim %d", h.Bits(), h.Dim())
		}
		emb := randomEmbedding(rng, 32)
		hash := h.Hash(emb)
		if len(hash) != bits/4 {
			t.Errorf("%d bits: hash %q has %d digits", bits, hash, len(hash))
		}
		if strings.Trim(hash, "0123456789ABCDEF") != "" {
			t.Errorf("%d bits: hash %q is not uppercase hex", bits, hash)
		}
		if got := h.Label(emb); got != "voice:"+hash {
			t.Errorf("Label = %q", got)
		}
	}
}

func TestHasherPrecisionPrefix(t *testing.T) {
	rng := rand.New(rand.NewPCG(8, 8))
	emb := randomEmbedding(rng, 160)
	full := NewHasher(160, 16, 42).Hash(emb)
	if short := NewHasher(160, 8, 42).Hash(emb); !strings.HasPrefix(full, short) {
		t.Errorf("8-bit hash %s is not a prefix of %s", short, full)
	}
}

func TestNewHasherPanics(t *testing.T) {
	for name, fn := range map[string]func(){
		"zero bits":     func() { NewHasher(8, 0, 1) },
		"odd bits":      func() { NewHasher(8, 6, 1) },
		"zero dim":      func() { NewHasher(0, 8, 1) },
		"dim mismatch":  func() { NewHasher(8, 8, 1).Hash(make([]float32, 4)) },
		"nil embedding": func() { NewHasher(8, 8, 1).Hash(nil) },
	} {
		t.Run(name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("no panic")
				}
			}()
			fn()
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		hash string
		bits int
		want string
	}{
		{"A3F8", 16, "A3F8"},
		{"A3F8", 8, "A3"},
		{"A3F8", 10, "A3"},
		{"A3F8", 64, "A3F8"},
		{"A3F8", 0, ""},
		{"A3F8", -4, ""},
	}
	for _, tt := range tests {
		if got := Truncate(tt.hash, tt.bits); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.hash, tt.bits, got, tt.want)
		}
	}
}

func BenchmarkHash(b *testing.B) {
	h := NewHasher(160, 16, 42)
	emb := randomEmbedding(rand.New(rand.NewPCG(1, 1)), 160)
	for b.Loop() {
		h.Hash(emb)
	}
}
