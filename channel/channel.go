// Package channel implements the channel collaborator (§6, "A channel —
// corrupt(sym), pdf(tx, rx), transmit(tx, rx), and for IDS channels
// receive(tx_vec, rx_vec, ptable)"). It is grounded on the original
// source's bsid (binary substitution/insertion/deletion) channel for the
// IDS variant, generalised here to a q-ary alphabet, plus a plain
// memoryless substitution-only channel for the non-drift case.
package channel

import (
	"fmt"

	"github.com/kd4xpt/turbosim/randsrc"
)

// Params are a channel's three independent event probabilities plus its
// symbol alphabet size.
type Params struct {
	Ps, Pd, Pi float64
	Q          int
}

func (p Params) validate() error {
	if p.Q < 2 {
		return fmt.Errorf("channel: alphabet size Q must be >= 2, got %d", p.Q)
	}
	if p.Ps < 0 || p.Ps > 0.5 {
		return fmt.Errorf("channel: Ps must lie in [0,0.5]")
	}
	if p.Pd < 0 || p.Pd > 1 || p.Pi < 0 || p.Pi > 1 {
		return fmt.Errorf("channel: Pd, Pi must each lie in [0,1]")
	}
	if p.Pi+p.Pd > 1 {
		return fmt.Errorf("channel: Pi+Pd must not exceed 1")
	}
	return nil
}

// BSID is the q-ary binary-substitution/insertion/deletion channel
// (grounded on bsid.cpp's corrupt/pdf/transmit).
type BSID struct {
	params Params
}

// NewBSID builds an IDS channel with the given parameters.
func NewBSID(p Params) (*BSID, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &BSID{params: p}, nil
}

// SetParameter updates (Ps, Pd, Pi), preserving the configured alphabet.
func (c *BSID) SetParameter(p Params) error {
	p.Q = c.params.Q
	if err := p.validate(); err != nil {
		return err
	}
	c.params = p
	return nil
}

// Corrupt applies a single substitution event: with probability Ps, sym
// is replaced by one of the other Q-1 symbols, chosen uniformly.
func (c *BSID) Corrupt(sym int, src *randsrc.Source) int {
	if !src.Bernoulli(c.params.Ps) {
		return sym
	}
	if c.params.Q <= 1 {
		return sym
	}
	offset := 1 + src.IntN(c.params.Q-1)
	return (sym + offset) % c.params.Q
}

// Pdf is the substitution-only likelihood of a single received symbol
// given a single transmitted one, ignoring insertion/deletion (used by
// §4.D's per-position match/mismatch coefficients).
func (c *BSID) Pdf(tx, rx int) float64 {
	if tx == rx {
		return 1 - c.params.Ps
	}
	if c.params.Q <= 1 {
		return 0
	}
	return c.params.Ps / float64(c.params.Q-1)
}

// Transmit runs the full IDS channel over a transmitted sequence,
// producing a received sequence whose length varies with the number of
// insertion and deletion events realised (grounded on bsid::transmit:
// for each position, draw insertions before it, then decide whether the
// symbol itself is deleted, then substitute what survives).
func (c *BSID) Transmit(tx []int, src *randsrc.Source) []int {
	rx := make([]int, 0, len(tx))
	for _, sym := range tx {
		for src.Bernoulli(c.params.Pi) {
			rx = append(rx, src.Symbol(c.params.Q))
		}
		if src.Bernoulli(c.params.Pd / maxFloat(1-c.params.Pi, 1e-12)) {
			continue
		}
		rx = append(rx, c.Corrupt(sym, src))
	}
	return rx
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// BSC is a memoryless, substitution-only binary symmetric channel: the
// IDS channel's Pd = Pi = 0 special case, kept as its own type because
// it is the common case exercised by the BCJR decoder (which has no
// notion of drift) and does not need the corridor/window bookkeeping IDS
// channels require.
type BSC struct {
	p float64 // crossover probability
}

// NewBSC builds a binary symmetric channel with crossover probability p.
func NewBSC(p float64) (*BSC, error) {
	if p < 0 || p > 1 {
		return nil, fmt.Errorf("channel: BSC crossover probability must lie in [0,1], got %v", p)
	}
	return &BSC{p: p}, nil
}

// SetParameter updates the crossover probability.
func (c *BSC) SetParameter(p float64) error {
	if p < 0 || p > 1 {
		return fmt.Errorf("channel: BSC crossover probability must lie in [0,1], got %v", p)
	}
	c.p = p
	return nil
}

// Corrupt flips bit with probability p.
func (c *BSC) Corrupt(bit int, src *randsrc.Source) int {
	if src.Bernoulli(c.p) {
		return 1 - bit
	}
	return bit
}

// Pdf is the likelihood of receiving rx given tx was sent.
func (c *BSC) Pdf(tx, rx int) float64 {
	if tx == rx {
		return 1 - c.p
	}
	return c.p
}

// Transmit applies Corrupt independently to every bit; the output length
// always equals len(tx) since a BSC never inserts or deletes.
func (c *BSC) Transmit(tx []int, src *randsrc.Source) []int {
	rx := make([]int, len(tx))
	for i, b := range tx {
		rx[i] = c.Corrupt(b, src)
	}
	return rx
}
