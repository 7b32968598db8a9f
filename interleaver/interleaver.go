// Package interleaver implements the permutation collaborator the turbo
// iterator (package turbo) uses to decorrelate errors between constituent
// decoders (§6, "An interleaver"; GLOSSARY). It follows the fixed
// lookup-table pattern the M17 codec uses for its own payload
// interleaver (InterleaveBits/DeinterleaveSymbols), generalised to
// arbitrary lengths and to probability-matrix rows.
package interleaver

import (
	"fmt"
	"math/rand/v2"
)

// Interleaver is a permutation on symbol positions of a fixed size.
// Transform/Inverse must preserve element count and must compose to the
// identity (§6, §8 invariant 5).
type Interleaver interface {
	// Transform writes out[i] = in[perm[i]] for a size-matched in/out pair.
	Transform(in, out []int) error
	// Inverse undoes Transform on a matrix of per-position probability
	// rows: out[perm[i]] = in[i].
	Inverse(in, out [][]float64) error
	// Advance regenerates the permutation (for interleavers whose
	// construction is randomised); identity and fixed-table interleavers
	// treat this as a no-op.
	Advance()
	// Seed reseeds the interleaver's random generator, if it has one.
	Seed(seed uint32)
	// Size is the number of positions the interleaver permutes.
	Size() int
	// Perm exposes the current permutation (out[i] = in[perm[i]]) so
	// callers working over a numeric backend other than float64 can
	// permute their own matrices without this package depending on that
	// backend's generic constraint.
	Perm() []int
}

func checkLen(perm []int, in, out []int) error {
	if len(in) != len(perm) || len(out) != len(perm) {
		return fmt.Errorf("interleaver: length mismatch, in=%d out=%d want %d", len(in), len(out), len(perm))
	}
	return nil
}

func transform(perm []int, in, out []int) error {
	if err := checkLen(perm, in, out); err != nil {
		return err
	}
	for i, p := range perm {
		out[i] = in[p]
	}
	return nil
}

func inverseRows(perm []int, in, out [][]float64) error {
	if len(in) != len(perm) || len(out) != len(perm) {
		return fmt.Errorf("interleaver: length mismatch, in=%d out=%d want %d", len(in), len(out), len(perm))
	}
	for i, p := range perm {
		if len(out[p]) != len(in[i]) {
			return fmt.Errorf("interleaver: row %d width mismatch, in=%d out=%d", i, len(in[i]), len(out[p]))
		}
		copy(out[p], in[i])
	}
	return nil
}

// Identity is π_0 (§4.F composition): every position maps to itself.
type Identity struct {
	size int
}

// NewIdentity builds the identity interleaver of the given size.
func NewIdentity(size int) *Identity { return &Identity{size: size} }

func (id *Identity) Size() int { return id.size }
func (id *Identity) Perm() []int { return identityPerm(id.size) }
func (id *Identity) Advance()  {}
func (id *Identity) Seed(uint32) {}

func (id *Identity) Transform(in, out []int) error {
	if len(in) != id.size || len(out) != id.size {
		return fmt.Errorf("interleaver: length mismatch, in=%d out=%d want %d", len(in), len(out), id.size)
	}
	copy(out, in)
	return nil
}

func (id *Identity) Inverse(in, out [][]float64) error {
	if len(in) != id.size || len(out) != id.size {
		return fmt.Errorf("interleaver: length mismatch, in=%d out=%d want %d", len(in), len(out), id.size)
	}
	for i := range in {
		copy(out[i], in[i])
	}
	return nil
}

// Random is a permutation drawn uniformly at random (Fisher-Yates),
// reproducible from a seed via Seed/Advance.
type Random struct {
	perm []int
	rng  *rand.Rand
	seed uint64
}

// NewRandom builds a random permutation of the given size seeded
// deterministically from seed.
func NewRandom(size int, seed uint32) *Random {
	r := &Random{seed: uint64(seed)}
	r.rng = rand.New(rand.NewPCG(r.seed, r.seed^0x9E3779B97F4A7C15))
	r.perm = identityPerm(size)
	r.shuffle()
	return r
}

func identityPerm(size int) []int {
	perm := make([]int, size)
	for i := range perm {
		perm[i] = i
	}
	return perm
}

func (r *Random) shuffle() {
	r.rng.Shuffle(len(r.perm), func(i, j int) { r.perm[i], r.perm[j] = r.perm[j], r.perm[i] })
}

func (r *Random) Size() int { return len(r.perm) }

// Advance draws a fresh permutation from the running generator (used
// between turbo blocks that should not share the same interleaver).
func (r *Random) Advance() { r.shuffle() }

// Seed reseeds the generator and redraws the permutation.
func (r *Random) Seed(seed uint32) {
	r.seed = uint64(seed)
	r.rng = rand.New(rand.NewPCG(r.seed, r.seed^0x9E3779B97F4A7C15))
	r.perm = identityPerm(len(r.perm))
	r.shuffle()
}

func (r *Random) Transform(in, out []int) error { return transform(r.perm, in, out) }
func (r *Random) Inverse(in, out [][]float64) error { return inverseRows(r.perm, in, out) }
func (r *Random) Perm() []int {
	out := make([]int, len(r.perm))
	copy(out, r.perm)
	return out
}

// SRandom is a spread (s-random) permutation: adjacent positions in the
// permuted domain never land within s of each other in the original
// domain, reducing short-cycle correlations between constituent BCJR
// passes (§6, "decorrelate errors between constituent decoders").
type SRandom struct {
	perm []int
	size int
	s    int
	rng  *rand.Rand
	seed uint64
}

// NewSRandom builds an s-random permutation of the given size and spread.
// If no valid permutation is found within a bounded number of restarts,
// it falls back to the best candidate found (a smaller effective spread).
func NewSRandom(size, s int, seed uint32) *SRandom {
	r := &SRandom{size: size, s: s, seed: uint64(seed)}
	r.rng = rand.New(rand.NewPCG(r.seed, r.seed^0x9E3779B97F4A7C15))
	r.perm = r.generate()
	return r
}

func (r *SRandom) generate() []int {
	const maxAttempts = 64
	var best []int
	for attempt := 0; attempt < maxAttempts; attempt++ {
		perm, ok := r.tryGenerate()
		if ok {
			return perm
		}
		if len(perm) > len(best) {
			best = perm
		}
	}
	// pad the best partial attempt out to full size with any unused
	// indices, in placement order, rather than fail construction.
	used := make([]bool, r.size)
	for _, v := range best {
		used[v] = true
	}
	for i := range used {
		if !used[i] {
			best = append(best, i)
		}
	}
	return best
}

// tryGenerate attempts one greedy construction pass, returning the
// partial permutation built and whether it reached full size.
func (r *SRandom) tryGenerate() ([]int, bool) {
	remaining := identityPerm(r.size)
	placed := make([]int, 0, r.size)
	for len(placed) < r.size {
		candidateIdx := -1
		for tries := 0; tries < len(remaining)*4 && candidateIdx < 0; tries++ {
			idx := r.rng.IntN(len(remaining))
			v := remaining[idx]
			if r.fits(placed, v) {
				candidateIdx = idx
			}
		}
		if candidateIdx < 0 {
			for idx, v := range remaining {
				if r.fits(placed, v) {
					candidateIdx = idx
					break
				}
			}
		}
		if candidateIdx < 0 {
			return placed, false
		}
		placed = append(placed, remaining[candidateIdx])
		remaining = append(remaining[:candidateIdx], remaining[candidateIdx+1:]...)
	}
	return placed, true
}

func (r *SRandom) fits(placed []int, candidate int) bool {
	lookback := r.s
	if lookback > len(placed) {
		lookback = len(placed)
	}
	for k := 0; k < lookback; k++ {
		prev := placed[len(placed)-1-k]
		diff := candidate - prev
		if diff < 0 {
			diff = -diff
		}
		if diff < r.s {
			return false
		}
	}
	return true
}

func (r *SRandom) Size() int { return len(r.perm) }

func (r *SRandom) Advance() {
	r.perm = r.generate()
}

func (r *SRandom) Seed(seed uint32) {
	r.seed = uint64(seed)
	r.rng = rand.New(rand.NewPCG(r.seed, r.seed^0x9E3779B97F4A7C15))
	r.perm = r.generate()
}

func (r *SRandom) Transform(in, out []int) error      { return transform(r.perm, in, out) }
func (r *SRandom) Inverse(in, out [][]float64) error { return inverseRows(r.perm, in, out) }
func (r *SRandom) Perm() []int {
	out := make([]int, len(r.perm))
	copy(out, r.perm)
	return out
}

// Fixed wraps a caller-supplied permutation table, for codes (like M17's
// payload interleaver) that specify their interleaver as a constant LUT
// rather than construct one at runtime.
type Fixed struct {
	perm []int
}

// NewFixed validates that table is a permutation of [0,len(table)) and
// wraps it.
func NewFixed(table []int) (*Fixed, error) {
	seen := make([]bool, len(table))
	for _, v := range table {
		if v < 0 || v >= len(table) || seen[v] {
			return nil, fmt.Errorf("interleaver: table is not a permutation of [0,%d)", len(table))
		}
		seen[v] = true
	}
	perm := make([]int, len(table))
	copy(perm, table)
	return &Fixed{perm: perm}, nil
}

func (f *Fixed) Size() int         { return len(f.perm) }
func (f *Fixed) Advance()          {}
func (f *Fixed) Seed(uint32)       {}
func (f *Fixed) Transform(in, out []int) error      { return transform(f.perm, in, out) }
func (f *Fixed) Inverse(in, out [][]float64) error { return inverseRows(f.perm, in, out) }
func (f *Fixed) Perm() []int {
	out := make([]int, len(f.perm))
	copy(out, f.perm)
	return out
}
