package voiceprint

import (
	"encoding/hex"
	"math"
	"math/rand/v2"
	"strings"
)

// Hasher projects embeddings into compact locality-sensitive hashes with
// random hyperplanes: each plane contributes one bit, set when the dot
// product with the embedding is positive. Nearby embeddings share most
// bits, so truncating the hex string gives coarser matches.
type Hasher struct {
	dim    int
	bits   int
	planes [][]float32 // bits × dim, unit rows
}

// NewHasher creates a Hasher for embeddings of length dim producing bits
// bits. bits must be a positive multiple of 4. The same seed always yields
// the same planes, so hashes are stable across runs.
func NewHasher(dim, bits int, seed uint64) *Hasher {
	if bits <= 0 || bits%4 != 0 {
		panic("voiceprint: bits must be a positive multiple of 4")
	}
	if dim <= 0 {
		panic("voiceprint: dim must be positive")
	}

	rng := rand.New(rand.NewPCG(seed, seed^0xdeadbeef))
	planes := make([][]float32, bits)
	for i := range planes {
		plane := make([]float64, dim)
		for j := range plane {
			plane[j] = rng.NormFloat64()
		}
		planes[i] = unit(plane)
	}
	return &Hasher{dim: dim, bits: bits, planes: planes}
}

func unit(v []float64) []float32 {
	var n float64
	for _, x := range v {
		n += x * x
	}
	out := make([]float32, len(v))
	if n == 0 {
		return out
	}
	n = math.Sqrt(n)
	for i, x := range v {
		out[i] = float32(x / n)
	}
	return out
}

// Hash returns the uppercase hex hash of embedding, bits/4 characters
// long. It panics when the embedding length does not match.
func (h *Hasher) Hash(embedding []float32) string {
	if len(embedding) != h.dim {
		panic("voiceprint: embedding dimension mismatch")
	}
	out := make([]byte, (h.bits+7)/8)
	for i, plane := range h.planes {
		var dot float32
		for j, v := range plane {
			dot += v * embedding[j]
		}
		if dot > 0 {
			out[i/8] |= 1 << (7 - uint(i%8))
		}
	}
	return strings.ToUpper(hex.EncodeToString(out))[:h.bits/4]
}

// Label returns VoiceLabel(h.Hash(embedding)).
func (h *Hasher) Label(embedding []float32) string {
	return VoiceLabel(h.Hash(embedding))
}

// Bits returns the number of hash bits.
func (h *Hasher) Bits() int { return h.bits }

// Dim returns the expected embedding dimension.
func (h *Hasher) Dim() int { return h.dim }

// Truncate cuts hash to the given precision in bits (rounded down to a
// whole hex digit).
func Truncate(hash string, bits int) string {
	n := bits / 4
	if n < 0 {
		n = 0
	}
	if n >= len(hash) {
		return hash
	}
	return hash[:n]
}
