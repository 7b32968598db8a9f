// Package fba implements the generalized forward-backward algorithm over
// a two-index (codeword index, drift) lattice for channels that insert,
// delete, and substitute symbols (§4.C). It is the FBA counterpart to
// bcjr.Decoder, used in place of a BCJR trellis decoder whenever the
// channel model has synchronisation drift. Like bcjr.Decoder it is
// parameterised on a numeric.Real backend rather than hardcoding
// float64 - a long codeword sequence underflows plain doubles for the
// same reason a long trellis does (§4.A).
package fba

import (
	"errors"
	"fmt"

	"github.com/kd4xpt/turbosim/idschannel"
	"github.com/kd4xpt/turbosim/numeric"
)

// StorageMode selects how the branch-metric tensor gamma is held in
// memory (§3, "Storage policy").
type StorageMode int

const (
	// GlobalStore allocates the full gamma tensor once; forward and
	// backward can then run independently, in either order.
	GlobalStore StorageMode = iota
	// LocalStore recomputes one gamma slice at a time inside the forward
	// and backward passes, halving memory at the cost of recomputation.
	LocalStore
)

// ErrUnderflow indicates a row's maximum is zero during normalisation: an
// impossible observation given the current priors.
var ErrUnderflow = errors.New("fba: numeric underflow during normalisation")

// ErrShapeMismatch indicates a caller-supplied vector does not match the
// decoder's declared drift corridor or codeword count.
var ErrShapeMismatch = errors.New("fba: input shape mismatch")

// CodewordFunc maps a data symbol d, transmitted at codeword index i, to
// the n channel symbols it produces. Most codes are time-invariant (the
// index i is ignored) but the signature keeps position-dependent codes
// (e.g. watermark/sparse codes) expressible.
type CodewordFunc func(i, d int) []int

// Config parameterises a Decoder (§6, "init(N, n, q, driftMin, driftMax,
// ΔMin, ΔMax, thresholds)" for FBA).
type Config struct {
	Tau                int // number of transmitted codewords (Ntrellis)
	N                  int // channel symbols per codeword
	Q                  int // data symbol alphabet size
	DriftMin, DriftMax int
	DeltaMin, DeltaMax int
	Normalize          bool
	ThInner            float64 // path-truncation threshold, as a fraction of the row max; 0 disables truncation
	Storage            StorageMode
}

func (c Config) validate() error {
	if c.Tau < 1 {
		return fmt.Errorf("fba: tau must be >= 1, got %d", c.Tau)
	}
	if c.N < 1 || c.Q < 2 {
		return fmt.Errorf("fba: n must be >= 1 and q >= 2")
	}
	if c.DriftMin > 0 || c.DriftMax < 0 || c.DriftMin > c.DriftMax {
		return fmt.Errorf("fba: drift corridor must contain zero (got [%d,%d])", c.DriftMin, c.DriftMax)
	}
	if c.DeltaMin > c.DeltaMax {
		return fmt.Errorf("fba: deltaMin must be <= deltaMax")
	}
	if c.ThInner < 0 {
		return fmt.Errorf("fba: th_inner must be >= 0")
	}
	return nil
}

// Decoder is a forward-backward lattice decoder over one channel metric
// computer and one (possibly time-varying) codeword map, parameterised
// on numeric backend T to match bcjr.Decoder[T].
type Decoder[T numeric.Real[T]] struct {
	cfg      Config
	metric   *idschannel.Computer[T]
	codeword CodewordFunc

	driftWidth int // DriftMax - DriftMin + 1
	deltaWidth int // DeltaMax - DeltaMin + 1

	alpha [][]T // [i][x-DriftMin], i in [0,Tau]
	beta  [][]T

	// gamma is only populated for GlobalStore; [i][x-DriftMin][d][Δ-DeltaMin]
	gamma [][][][]T

	initialised bool
}

// New builds a decoder. The channel metric computer must have been built
// with the same [DeltaMin,DeltaMax] corridor as cfg.
func New[T numeric.Real[T]](cfg Config, metric *idschannel.Computer[T], codeword CodewordFunc) (*Decoder[T], error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Decoder[T]{
		cfg:        cfg,
		metric:     metric,
		codeword:   codeword,
		driftWidth: cfg.DriftMax - cfg.DriftMin + 1,
		deltaWidth: cfg.DeltaMax - cfg.DeltaMin + 1,
	}, nil
}

func (d *Decoder[T]) allocate() {
	if d.initialised {
		return
	}
	var z T
	zero := z.FromFloat64(0)
	d.alpha = make([][]T, d.cfg.Tau+1)
	d.beta = make([][]T, d.cfg.Tau+1)
	for i := range d.alpha {
		d.alpha[i] = make([]T, d.driftWidth)
		d.beta[i] = make([]T, d.driftWidth)
		for xi := range d.alpha[i] {
			d.alpha[i][xi] = zero
			d.beta[i][xi] = zero
		}
	}
	if d.cfg.Storage == GlobalStore {
		d.gamma = make([][][][]T, d.cfg.Tau)
		for i := range d.gamma {
			d.gamma[i] = make([][][]T, d.driftWidth)
			for x := range d.gamma[i] {
				d.gamma[i][x] = make([][]T, d.cfg.Q)
			}
		}
	}
	d.initialised = true
}

// gammaSlice returns gamma[i][x-DriftMin][d][:], computing it on demand
// for LocalStore and caching it in the tensor for GlobalStore.
func (d *Decoder[T]) gammaSlice(i, x, sym int, rx []int) []T {
	xi := x - d.cfg.DriftMin
	if d.cfg.Storage == GlobalStore {
		if d.gamma[i][xi][sym] != nil {
			return d.gamma[i][xi][sym]
		}
	}
	tx := d.codeword(i, sym)
	start := i*d.cfg.N + x
	end := start + d.cfg.N + d.cfg.DeltaMax
	if start < 0 {
		start = 0
	}
	if start > len(rx) {
		start = len(rx)
	}
	if end > len(rx) {
		end = len(rx)
	}
	if end < start {
		end = start
	}
	window := rx[start:end]
	probs := d.metric.Probabilities(tx, window)
	if d.cfg.Storage == GlobalStore {
		d.gamma[i][xi][sym] = probs
	}
	return probs
}

// SetStartPDF sets alpha(0,*) from a caller-supplied distribution indexed
// [DriftMin,DriftMax].
func (d *Decoder[T]) SetStartPDF(pdf []T) error {
	if len(pdf) != d.driftWidth {
		return fmt.Errorf("%w: start pdf has %d entries, want %d", ErrShapeMismatch, len(pdf), d.driftWidth)
	}
	d.allocate()
	copy(d.alpha[0], pdf)
	return nil
}

// SetEndPDF sets beta(tau,*) from a caller-supplied distribution.
func (d *Decoder[T]) SetEndPDF(pdf []T) error {
	if len(pdf) != d.driftWidth {
		return fmt.Errorf("%w: end pdf has %d entries, want %d", ErrShapeMismatch, len(pdf), d.driftWidth)
	}
	d.allocate()
	copy(d.beta[d.cfg.Tau], pdf)
	return nil
}

// less reports whether a is strictly less than b, the mirror of Greater
// that T does not otherwise expose.
func less[T numeric.Real[T]](a, b T) bool { return b.Greater(a) }

// Forward runs the forward recursion over the received sequence rx
// (§4.C, "Forward: α[i+1][y] = Σ_x Σ_d α[i][x] · γ[i][x][d][y−x]").
func (d *Decoder[T]) Forward(rx []int) error {
	d.allocate()
	var z T
	zero := z.FromFloat64(0)
	for i := 0; i < d.cfg.Tau; i++ {
		next := make([]T, d.driftWidth)
		for xi := range next {
			next[xi] = zero
		}
		threshold := numeric.RowMax(d.alpha[i]).Mul(z.FromFloat64(d.cfg.ThInner))
		for xi, ax := range d.alpha[i] {
			if ax.IsZero() || less(ax, threshold) {
				continue
			}
			x := d.cfg.DriftMin + xi
			for sym := 0; sym < d.cfg.Q; sym++ {
				gs := d.gammaSlice(i, x, sym, rx)
				for di, g := range gs {
					if g.IsZero() {
						continue
					}
					delta := d.cfg.DeltaMin + di
					y := x + delta
					if y < d.cfg.DriftMin || y > d.cfg.DriftMax {
						continue
					}
					yi := y - d.cfg.DriftMin
					next[yi] = next[yi].Add(ax.Mul(g))
				}
			}
		}
		if d.cfg.Normalize {
			if numeric.RowMax(next).IsZero() {
				return fmt.Errorf("%w: forward row %d", ErrUnderflow, i+1)
			}
			numeric.Normalize(next)
		}
		d.alpha[i+1] = next
	}
	return nil
}

// Backward runs the backward recursion over the received sequence rx.
func (d *Decoder[T]) Backward(rx []int) error {
	d.allocate()
	var z T
	zero := z.FromFloat64(0)
	for i := d.cfg.Tau - 1; i >= 0; i-- {
		prev := make([]T, d.driftWidth)
		for xi := range prev {
			prev[xi] = zero
		}
		threshold := numeric.RowMax(d.beta[i+1]).Mul(z.FromFloat64(d.cfg.ThInner))
		for yi, by := range d.beta[i+1] {
			if by.IsZero() || less(by, threshold) {
				continue
			}
			y := d.cfg.DriftMin + yi
			for sym := 0; sym < d.cfg.Q; sym++ {
				for xi := 0; xi < d.driftWidth; xi++ {
					x := d.cfg.DriftMin + xi
					delta := y - x
					if delta < d.cfg.DeltaMin || delta > d.cfg.DeltaMax {
						continue
					}
					gs := d.gammaSlice(i, x, sym, rx)
					g := gs[delta-d.cfg.DeltaMin]
					if g.IsZero() {
						continue
					}
					prev[xi] = prev[xi].Add(by.Mul(g))
				}
			}
		}
		if d.cfg.Normalize {
			if numeric.RowMax(prev).IsZero() {
				return fmt.Errorf("%w: backward row %d", ErrUnderflow, i)
			}
			numeric.Normalize(prev)
		}
		d.beta[i] = prev
	}
	return nil
}

// Prepare runs the forward and backward passes (§4.C, order is
// independent under GlobalStore).
func (d *Decoder[T]) Prepare(rx []int) error {
	if err := d.Forward(rx); err != nil {
		return err
	}
	return d.Backward(rx)
}

// SymbolPosteriors returns, for codeword index i, the posterior
// probability of each data symbol d (§4.C, "Message APP at index i,
// symbol d").
func (d *Decoder[T]) SymbolPosteriors(i int, rx []int) []T {
	var z T
	zero := z.FromFloat64(0)
	out := make([]T, d.cfg.Q)
	for sym := 0; sym < d.cfg.Q; sym++ {
		sum := zero
		for xi, ax := range d.alpha[i] {
			if ax.IsZero() {
				continue
			}
			x := d.cfg.DriftMin + xi
			gs := d.gammaSlice(i, x, sym, rx)
			for di, g := range gs {
				if g.IsZero() {
					continue
				}
				y := x + d.cfg.DeltaMin + di
				if y < d.cfg.DriftMin || y > d.cfg.DriftMax {
					continue
				}
				sum = sum.Add(ax.Mul(g).Mul(d.beta[i+1][y-d.cfg.DriftMin]))
			}
		}
		out[sym] = sum
	}
	return out
}

// DriftPDF returns alpha(i,*)*beta(i,*) at boundary i, unnormalised
// (§4.C, "Drift PDF at any boundary i").
func (d *Decoder[T]) DriftPDF(i int) []T {
	out := make([]T, d.driftWidth)
	for xi := range out {
		out[xi] = d.alpha[i][xi].Mul(d.beta[i][xi])
	}
	return out
}

// EndDriftPDF exports the posterior drift distribution at the end of the
// frame, normalised to sum to one, for seeding the next frame's
// start-of-frame prior in streaming mode (§4.C, "Stream mode").
func (d *Decoder[T]) EndDriftPDF() []T {
	var z T
	pdf := d.DriftPDF(d.cfg.Tau)
	sum := z.FromFloat64(0)
	for _, v := range pdf {
		sum = sum.Add(v)
	}
	if !sum.IsZero() {
		inv := sum.Recip()
		for i := range pdf {
			pdf[i] = pdf[i].Mul(inv)
		}
	}
	return pdf
}
