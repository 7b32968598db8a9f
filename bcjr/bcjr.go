// Package bcjr implements the Bahl-Cocke-Jelinek-Raviv MAP trellis decoder
// (§4.B): forward/backward recursions over a precomputed trellis LUT,
// producing posterior probabilities for both the encoder's input and
// output alphabets. It is parameterised on a numeric.Real backend so the
// same algorithm runs identically over plain doubles, log-domain reals, or
// arbitrary-precision reals.
package bcjr

import (
	"errors"
	"fmt"

	"github.com/kd4xpt/turbosim/fsm"
	"github.com/kd4xpt/turbosim/numeric"
	"github.com/kd4xpt/turbosim/trellis"
)

// ErrUnderflow is returned when a normalisation row's maximum is zero:
// the observation is impossible given the current priors (§7, "Numeric
// underflow").
var ErrUnderflow = errors.New("bcjr: numeric underflow during normalisation")

// ErrShapeMismatch is returned when a caller-supplied matrix does not
// match the decoder's declared (tau, alphabet) shape.
var ErrShapeMismatch = errors.New("bcjr: input shape mismatch")

// Decoder is a MAP trellis decoder for one constituent FSM, over numeric
// backend T.
type Decoder[T numeric.Real[T]] struct {
	tau    int
	lut    trellis.LUT
	alpha  [][]T // (tau+1) x M
	beta   [][]T // (tau+1) x M
	gamma  [][][]T // tau x M x K
	initialised bool
}

// New builds the trellis LUT for encoder and returns a decoder for blocks
// of length tau. No matrices are allocated yet (§3, "Lifecycle").
func New[T numeric.Real[T]](encoder fsm.FSM, tau int) (*Decoder[T], error) {
	if tau < 1 {
		return nil, fmt.Errorf("bcjr: block length must be >= 1, got %d", tau)
	}
	return &Decoder[T]{
		tau: tau,
		lut: trellis.Build(encoder),
	}, nil
}

func alloc2[T any](rows, cols int) [][]T {
	m := make([][]T, rows)
	for i := range m {
		m[i] = make([]T, cols)
	}
	return m
}

func alloc3[T any](n, rows, cols int) [][][]T {
	m := make([][][]T, n)
	for i := range m {
		m[i] = alloc2[T](rows, cols)
	}
	return m
}

// allocate is shape-tested: if the decoder was already initialised at the
// same (tau, M, K) shape, the existing arrays are kept and only their
// contents get overwritten by the next decode (§3, "Lifecycle").
func (d *Decoder[T]) allocate() {
	m, k := d.lut.M, d.lut.K
	if d.initialised && len(d.alpha) == d.tau+1 && len(d.alpha[0]) == m && len(d.gamma) == d.tau && len(d.gamma[0][0]) == k {
		return
	}
	d.alpha = alloc2[T](d.tau+1, m)
	d.beta = alloc2[T](d.tau+1, m)
	d.gamma = alloc3[T](d.tau, m, k)
	d.initialised = true
}

// SetStartEquiprobable sets alpha(0,m) = 1/M for every state.
func (d *Decoder[T]) SetStartEquiprobable() {
	d.allocate()
	var z T
	p := z.FromFloat64(1.0 / float64(d.lut.M))
	for m := 0; m < d.lut.M; m++ {
		d.alpha[0][m] = p
	}
}

// SetStart sets alpha(0,state) = 1, all other states to 0.
func (d *Decoder[T]) SetStart(state int) {
	d.allocate()
	var z T
	zero, one := z.FromFloat64(0), z.FromFloat64(1)
	for m := 0; m < d.lut.M; m++ {
		d.alpha[0][m] = zero
	}
	d.alpha[0][state] = one
}

// SetStartPDF sets alpha(0,*) directly from a caller-supplied distribution.
func (d *Decoder[T]) SetStartPDF(pdf []T) error {
	if len(pdf) != d.lut.M {
		return fmt.Errorf("%w: start pdf has %d entries, want %d", ErrShapeMismatch, len(pdf), d.lut.M)
	}
	d.allocate()
	copy(d.alpha[0], pdf)
	return nil
}

// SetEndEquiprobable sets beta(tau,m) = 1/M for every state.
func (d *Decoder[T]) SetEndEquiprobable() {
	d.allocate()
	var z T
	p := z.FromFloat64(1.0 / float64(d.lut.M))
	for m := 0; m < d.lut.M; m++ {
		d.beta[d.tau][m] = p
	}
}

// SetEnd sets beta(tau,state) = 1, all other states to 0.
func (d *Decoder[T]) SetEnd(state int) {
	d.allocate()
	var z T
	zero, one := z.FromFloat64(0), z.FromFloat64(1)
	for m := 0; m < d.lut.M; m++ {
		d.beta[d.tau][m] = zero
	}
	d.beta[d.tau][state] = one
}

// SetEndPDF sets beta(tau,*) directly from a caller-supplied distribution.
func (d *Decoder[T]) SetEndPDF(pdf []T) error {
	if len(pdf) != d.lut.M {
		return fmt.Errorf("%w: end pdf has %d entries, want %d", ErrShapeMismatch, len(pdf), d.lut.M)
	}
	d.allocate()
	copy(d.beta[d.tau], pdf)
	return nil
}

// GetStart returns beta(0,*) - the posterior of the start state, used by
// the turbo wrapper to carry circular-termination state across outer
// iterations.
func (d *Decoder[T]) GetStart() []T {
	out := make([]T, d.lut.M)
	copy(out, d.beta[0])
	return out
}

// GetEnd returns alpha(tau,*) - the posterior of the end state.
func (d *Decoder[T]) GetEnd() []T {
	out := make([]T, d.lut.M)
	copy(out, d.alpha[d.tau])
	return out
}

func (d *Decoder[T]) workGamma(R [][]T, app [][]T) {
	lut := d.lut
	for t := 0; t < d.tau; t++ {
		for mdash := 0; mdash < lut.M; mdash++ {
			for i := 0; i < lut.K; i++ {
				x := lut.Output[mdash][i]
				v := R[t][x]
				if app != nil {
					v = v.Mul(app[t][i])
				}
				d.gamma[t][mdash][i] = v
			}
		}
	}
}

func (d *Decoder[T]) workAlpha() error {
	lut := d.lut
	for t := 1; t <= d.tau; t++ {
		var z T
		zero := z.FromFloat64(0)
		for m := 0; m < lut.M; m++ {
			d.alpha[t][m] = zero
		}
		for mdash := 0; mdash < lut.M; mdash++ {
			for i := 0; i < lut.K; i++ {
				m := lut.NextState[mdash][i]
				d.alpha[t][m] = d.alpha[t][m].Add(d.alpha[t-1][mdash].Mul(d.gamma[t-1][mdash][i]))
			}
		}
		if numeric.RowMax(d.alpha[t]).IsZero() {
			return fmt.Errorf("%w: alpha row %d", ErrUnderflow, t)
		}
		numeric.Normalize(d.alpha[t])
	}
	return nil
}

func (d *Decoder[T]) workBeta() error {
	lut := d.lut
	for t := d.tau - 1; t >= 0; t-- {
		var z T
		zero := z.FromFloat64(0)
		for m := 0; m < lut.M; m++ {
			d.beta[t][m] = zero
		}
		for m := 0; m < lut.M; m++ {
			for i := 0; i < lut.K; i++ {
				mdash := lut.NextState[m][i]
				d.beta[t][m] = d.beta[t][m].Add(d.beta[t+1][mdash].Mul(d.gamma[t][m][i]))
			}
		}
		if numeric.RowMax(d.beta[t]).IsZero() {
			return fmt.Errorf("%w: beta row %d", ErrUnderflow, t)
		}
		numeric.Normalize(d.beta[t])
	}
	return nil
}

// lambda is the state probability metric Pr{S(t)=m, Y}.
func (d *Decoder[T]) lambda(t, m int) T { return d.alpha[t][m].Mul(d.beta[t][m]) }

// sigma is the transition probability metric Pr{S(t-1)=m, S(t)=m(m,i), Y}.
func (d *Decoder[T]) sigma(t, m, i int) T {
	mdash := d.lut.NextState[m][i]
	return d.alpha[t-1][m].Mul(d.gamma[t-1][m][i]).Mul(d.beta[t][mdash])
}

func (d *Decoder[T]) workResults(ri, ro [][]T) error {
	var z T
	py := z.FromFloat64(0)
	for mdash := 0; mdash < d.lut.M; mdash++ {
		py = py.Add(d.lambda(d.tau, mdash))
	}
	if py.IsZero() {
		return fmt.Errorf("%w: Py is zero", ErrUnderflow)
	}
	zero := z.FromFloat64(0)
	for t := 0; t < d.tau; t++ {
		for i := 0; i < d.lut.K; i++ {
			ri[t][i] = zero
		}
		if ro != nil {
			for x := 0; x < d.lut.N; x++ {
				ro[t][x] = zero
			}
		}
	}
	for t := 1; t <= d.tau; t++ {
		for mdash := 0; mdash < d.lut.M; mdash++ {
			for i := 0; i < d.lut.K; i++ {
				x := d.lut.Output[mdash][i]
				delta := d.sigma(t, mdash, i).Div(py)
				ri[t-1][i] = ri[t-1][i].Add(delta)
				if ro != nil {
					ro[t-1][x] = ro[t-1][x].Add(delta)
				}
			}
		}
	}
	// Each alpha/beta row was rescaled by its own maximum, so Py alone
	// does not make every time step sum to one; rescale each row by its sum.
	for t := 0; t < d.tau; t++ {
		rows := [][]T{ri[t]}
		if ro != nil {
			rows = append(rows, ro[t])
		}
		for _, row := range rows {
			sum := zero
			for _, v := range row {
				sum = sum.Add(v)
			}
			if !sum.IsZero() {
				inv := sum.Recip()
				for j := range row {
					row[j] = row[j].Mul(inv)
				}
			}
		}
	}
	return nil
}

// Decode runs a full decode cycle: gamma, forward, backward, and both
// input/output posterior extraction (§4.B, "decode(R, ri, ro)").
func (d *Decoder[T]) Decode(R [][]T, ri, ro [][]T) error {
	return d.decode(R, nil, ri, ro)
}

// DecodeWithApp is Decode with per-time-step a-priori input probabilities
// folded into gamma (§4.B, "decode(R, app, ri, ro)").
func (d *Decoder[T]) DecodeWithApp(R, app [][]T, ri, ro [][]T) error {
	return d.decode(R, app, ri, ro)
}

// FDecode is the fast path returning only input posteriors.
func (d *Decoder[T]) FDecode(R [][]T, ri [][]T) error {
	return d.decode(R, nil, ri, nil)
}

// FDecodeWithApp is FDecode folding in a-priori input probabilities.
func (d *Decoder[T]) FDecodeWithApp(R, app [][]T, ri [][]T) error {
	return d.decode(R, app, ri, nil)
}

func (d *Decoder[T]) decode(R, app, ri, ro [][]T) error {
	d.allocate()
	if len(R) != d.tau || len(R[0]) != d.lut.N {
		return fmt.Errorf("%w: R is %dx%d, want %dx%d", ErrShapeMismatch, len(R), len(R[0]), d.tau, d.lut.N)
	}
	if app != nil && (len(app) != d.tau || len(app[0]) != d.lut.K) {
		return fmt.Errorf("%w: app is %dx%d, want %dx%d", ErrShapeMismatch, len(app), len(app[0]), d.tau, d.lut.K)
	}
	d.workGamma(R, app)
	if err := d.workAlpha(); err != nil {
		return err
	}
	if err := d.workBeta(); err != nil {
		return err
	}
	return d.workResults(ri, ro)
}

// Normalize divides every row of r by its row maximum, leaving a row
// untouched if its maximum is already zero (used by the turbo wrapper on
// intrinsic/extrinsic probability matrices where an all-zero row is valid,
// unlike the internal alpha/beta rows which treat it as underflow).
func Normalize[T numeric.Real[T]](r [][]T) {
	for _, row := range r {
		if !numeric.RowMax(row).IsZero() {
			numeric.Normalize(row)
		}
	}
}

// HardDecision returns, for each time step, the argmax input symbol, ties
// broken by lowest index (§4.F).
func HardDecision[T numeric.Real[T]](ri [][]T) []int {
	out := make([]int, len(ri))
	for t, row := range ri {
		best := 0
		for i := 1; i < len(row); i++ {
			if row[i].Greater(row[best]) {
				best = i
			}
		}
		out[t] = best
	}
	return out
}
