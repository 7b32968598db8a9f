// Package idschannel computes per-codeword receive likelihoods for a
// channel that substitutes, inserts, and deletes symbols (§4.D). It is
// the collaborator fba.Decoder consults for every (entering drift, data
// symbol, drift change) branch metric. Like bcjr.Decoder, it is
// parameterised on a numeric.Real backend (§4.A: "All decoder arithmetic
// is parameterised on backend") rather than hardcoding float64, since its
// output feeds directly into fba's alpha/beta recursion and a long
// codeword can underflow plain doubles the same way a long trellis does.
package idschannel

import (
	"fmt"

	"github.com/kd4xpt/turbosim/numeric"
)

// Params are the three independent event probabilities of a q-ary
// insertion/deletion/substitution channel, plus the alphabet size q used
// to spread substitution and insertion mass uniformly over the wrong
// symbols. These stay plain float64 regardless of backend - they are
// configuration, not decoder state.
type Params struct {
	Ps, Pd, Pi float64
	Q          int
}

func (p Params) validate() error {
	if p.Q < 2 {
		return fmt.Errorf("idschannel: alphabet size Q must be >= 2, got %d", p.Q)
	}
	if p.Ps < 0 || p.Ps > 1 || p.Pd < 0 || p.Pd > 1 || p.Pi < 0 || p.Pi > 1 {
		return fmt.Errorf("idschannel: Ps, Pd, Pi must each lie in [0,1]")
	}
	if p.Pi+p.Pd > 1 {
		return fmt.Errorf("idschannel: Pi+Pd must not exceed 1")
	}
	return nil
}

// eventCoefficients are the four per-symbol-event transition coefficients
// (§4.D's "Rtable"), recomputed whenever a channel parameter changes so
// the lattice's inner loop is a lookup plus a multiply instead of a
// recomputation of Ps/Pd/Pi arithmetic on every cell.
type eventCoefficients[T numeric.Real[T]] struct {
	match    T // transmit x, receive x
	mismatch T // transmit x, receive y != x
	del      T // tx symbol consumed, no rx symbol
	ins      T // rx symbol consumed, no tx symbol, uniform over Q
}

func computeCoefficients[T numeric.Real[T]](p Params) eventCoefficients[T] {
	var z T
	keep := 1 - p.Pi - p.Pd
	c := eventCoefficients[T]{
		del: z.FromFloat64(p.Pd),
		ins: z.FromFloat64(p.Pi / float64(p.Q)),
	}
	if p.Q > 1 {
		c.match = z.FromFloat64(keep * (1 - p.Ps))
		c.mismatch = z.FromFloat64(keep * p.Ps / float64(p.Q-1))
	} else {
		c.match = z.FromFloat64(keep)
	}
	return c
}

// Computer evaluates the small forward lattice described in §4.D for one
// transmitted codeword against a candidate received segment, with the
// segment length allowed to vary by Δ ∈ [deltaMin, deltaMax] relative to
// the codeword's own length.
type Computer[T numeric.Real[T]] struct {
	params             Params
	coeffs             eventCoefficients[T]
	deltaMin, deltaMax int
}

// New builds a channel metric computer for the given parameters and
// per-codeword drift-change corridor.
func New[T numeric.Real[T]](p Params, deltaMin, deltaMax int) (*Computer[T], error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if deltaMin > deltaMax {
		return nil, fmt.Errorf("idschannel: deltaMin (%d) must be <= deltaMax (%d)", deltaMin, deltaMax)
	}
	return &Computer[T]{
		params:   p,
		coeffs:   computeCoefficients[T](p),
		deltaMin: deltaMin,
		deltaMax: deltaMax,
	}, nil
}

// SetParameter updates the channel's (Ps, Pd, Pi) and recomputes the
// cached event coefficients (§4.D, "Recomputed whenever a channel
// parameter changes").
func (c *Computer[T]) SetParameter(p Params) error {
	p.Q = c.params.Q
	if err := p.validate(); err != nil {
		return err
	}
	c.params = p
	c.coeffs = computeCoefficients[T](p)
	return nil
}

// Probabilities runs the forward lattice over tx (n symbols) against a
// received window rx of length n+deltaMax (the caller supplies enough rx
// symbols to cover the widest corridor the computer was built with), and
// returns one probability per Δ ∈ [deltaMin, deltaMax], indexed from 0.
func (c *Computer[T]) Probabilities(tx, rx []int) []T {
	var z T
	zero := z.FromFloat64(0)

	n := len(tx)
	maxLen := n + c.deltaMax
	if len(rx) < maxLen {
		maxLen = len(rx)
	}
	// cell[i][k] = probability of having consumed i tx symbols and k rx
	// symbols, for k-i within [deltaMin, deltaMax].
	width := c.deltaMax - c.deltaMin + 1
	cell := make([][]T, n+1)
	for i := range cell {
		cell[i] = make([]T, maxLen+1)
		for k := range cell[i] {
			cell[i][k] = zero
		}
	}
	cell[0][0] = z.FromFloat64(1)
	for i := 0; i <= n; i++ {
		for k := 0; k <= maxLen; k++ {
			d := k - i
			if d < c.deltaMin || d > c.deltaMax {
				continue
			}
			p := cell[i][k]
			if p.IsZero() {
				continue
			}
			// match/substitute: consume tx[i], rx[k]
			if i < n && k < maxLen {
				f := c.coeffs.mismatch
				if tx[i] == rx[k] {
					f = c.coeffs.match
				}
				cell[i+1][k+1] = cell[i+1][k+1].Add(p.Mul(f))
			}
			// delete: consume tx[i], no rx symbol
			if i < n {
				cell[i+1][k] = cell[i+1][k].Add(p.Mul(c.coeffs.del))
			}
			// insert: consume rx[k], no tx symbol
			if k < maxLen {
				cell[i][k+1] = cell[i][k+1].Add(p.Mul(c.coeffs.ins))
			}
		}
	}
	out := make([]T, width)
	for idx := range out {
		out[idx] = zero
	}
	for idx := 0; idx < width; idx++ {
		delta := c.deltaMin + idx
		k := n + delta
		if k < 0 || k > maxLen {
			continue
		}
		out[idx] = cell[n][k]
	}
	return out
}

// Probability is Probabilities restricted to a single Δ, for callers that
// only need one branch metric rather than a full sweep.
func (c *Computer[T]) Probability(tx, rx []int, delta int) T {
	var z T
	if delta < c.deltaMin || delta > c.deltaMax {
		return z.FromFloat64(0)
	}
	probs := c.Probabilities(tx, rx)
	return probs[delta-c.deltaMin]
}
