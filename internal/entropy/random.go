// Package entropy provides the single seedable random source that every
// stochastic draw in the simulation is routed through.
// Replaying a run with the same seed reproduces it exactly, provided agents are
// stepped in registration order.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	mrand "math/rand"
)

// Source wraps a seeded PRNG with the draw helpers the model needs.
// It is not safe for concurrent use; the simulation is single-threaded.
type Source struct {
	seed int64
	rng  *mrand.Rand
}

// New creates a source from seed. A zero seed is replaced with one read from
// crypto/rand so unseeded runs still differ from each other.
func New(seed int64) *Source {
	if seed == 0 {
		seed = CryptoSeed()
	}
	return &Source{
		seed: seed,
		rng:  mrand.New(mrand.NewSource(seed)),
	}
}

// Seed returns the effective seed (useful for logging a replayable run).
func (s *Source) Seed() int64 {
	return s.seed
}

// Float returns a float64 in [0, 1).
func (s *Source) Float() float64 {
	return s.rng.Float64()
}

// Chance reports whether a Bernoulli trial with probability p succeeds.
func (s *Source) Chance(p float64) bool {
	return s.rng.Float64() < p
}

// Uniform returns a float64 in [lo, hi).
func (s *Source) Uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*s.rng.Float64()
}

// IntRange returns an int in [lo, hi], both ends inclusive.
func (s *Source) IntRange(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + s.rng.Intn(hi-lo+1)
}

// Intn returns an int in [0, n). n <= 0 yields 0.
func (s *Source) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return s.rng.Intn(n)
}

// Sample picks k distinct indices from [0, n) uniformly without replacement.
// k is clamped to [0, n].
func (s *Source) Sample(n, k int) []int {
	if k > n {
		k = n
	}
	if k <= 0 {
		return nil
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	// Partial Fisher–Yates: only the first k positions are shuffled.
	for i := 0; i < k; i++ {
		j := i + s.rng.Intn(n-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	return idx[:k]
}

// SampleFrom picks k distinct elements of pool without replacement.
func (s *Source) SampleFrom(pool []int, k int) []int {
	picks := s.Sample(len(pool), k)
	out := make([]int, len(picks))
	for i, p := range picks {
		out[i] = pool[p]
	}
	return out
}

// CryptoSeed returns a non-zero seed read from crypto/rand.
func CryptoSeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// This should never happen; fall back to a fixed seed.
		return 1
	}
	seed := int64(binary.LittleEndian.Uint64(buf[:]) >> 1)
	if seed == 0 {
		seed = 1
	}
	return seed
}
