// Package randsrc implements the random source collaborator (§6, "A
// random source — uniform [0,1) doubles and integer ranges") shared by
// the IDS channel, the Monte Carlo driver, and the interleaver
// construction heuristics.
package randsrc

import "math/rand/v2"

// Source is a reproducible uniform random source, seeded once and then
// advanced by every draw.
type Source struct {
	rng  *rand.Rand
	seed uint64
}

// New builds a source seeded deterministically from seed.
func New(seed uint32) *Source {
	s := &Source{seed: uint64(seed)}
	s.rng = rand.New(rand.NewPCG(s.seed, s.seed^0x9E3779B97F4A7C15))
	return s
}

// Seed reseeds the source, discarding all prior state.
func (s *Source) Seed(seed uint32) {
	s.seed = uint64(seed)
	s.rng = rand.New(rand.NewPCG(s.seed, s.seed^0x9E3779B97F4A7C15))
}

// Float64 draws a uniform value in [0,1).
func (s *Source) Float64() float64 { return s.rng.Float64() }

// IntN draws a uniform integer in [0,n).
func (s *Source) IntN(n int) int { return s.rng.IntN(n) }

// Bernoulli returns true with probability p.
func (s *Source) Bernoulli(p float64) bool { return s.Float64() < p }

// Symbol draws a uniform symbol in [0,q), q>=1.
func (s *Source) Symbol(q int) int {
	if q <= 1 {
		return 0
	}
	return s.IntN(q)
}
