// Package turbo implements the turbo iterator (§4.E): it orchestrates N
// BCJR passes across parallel interleaved constituent codes, exchanges
// extrinsic information between them, and terminates after a fixed
// iteration count. It is grounded on the original source's turbo<real,
// dbl> template (bcjr_wrap/decode_serial/decode_parallel/translate/
// encode), generalised from its S-ary modulation-symbol demultiplexing
// (excluded here as a modulation concern) to the plain systematic/parity
// split the rest of this module's decoders already use.
package turbo

import (
	"errors"
	"fmt"
	"math"

	"github.com/kd4xpt/turbosim/bcjr"
	"github.com/kd4xpt/turbosim/fsm"
	"github.com/kd4xpt/turbosim/interleaver"
	"github.com/kd4xpt/turbosim/numeric"
)

// Schedule selects how extrinsic information is exchanged between sets
// (§4.E, "Serial schedule" / "Parallel schedule").
type Schedule int

const (
	Serial Schedule = iota
	Parallel
)

// Config parameterises a Decoder (§4.E, "Composition").
type Config struct {
	Tau        int
	EndAtZero  bool
	Circular   bool
	Schedule   Schedule
	Iterations int
}

func (c Config) validate() error {
	if c.Tau < 1 {
		return fmt.Errorf("turbo: tau must be >= 1, got %d", c.Tau)
	}
	if c.EndAtZero && c.Circular {
		return fmt.Errorf("turbo: endAtZero and circular are mutually exclusive")
	}
	if c.Iterations < 1 {
		return fmt.Errorf("turbo: iterations must be >= 1, got %d", c.Iterations)
	}
	return nil
}

// ErrShapeMismatch is returned when a caller-supplied matrix does not
// match the decoder's declared shape.
var ErrShapeMismatch = errors.New("turbo: input shape mismatch")

// Decoder orchestrates S constituent BCJR passes over one shared
// encoder/trellis configuration, one per interleaved set.
type Decoder[T numeric.Real[T]] struct {
	cfg     Config
	encoder fsm.FSM
	inter   []interleaver.Interleaver
	bc      *bcjr.Decoder[T]

	k, n, parityQ, m int // input alphabet, output alphabet, parity alphabet (n/k), state count

	rp     [][]T   // tau x k: intrinsic input (systematic) prior
	ri     [][]T   // tau x k: a posteriori
	ra     [][][]T // len 1 (serial) or numSets (parallel), each tau x k
	rai    [][]T   // scratch tau x k: interleaved ra
	rii    [][]T   // scratch tau x k: interleaved ri
	rInter [][][]T // per set, tau x k: interleaved rp ('r(set)' in the extrinsic-division denominator)
	R      [][][]T // per set, tau x n: branch prior fed to the constituent BCJR

	ss, se [][]T // per set, m: circular start/end-state posteriors

	initialised bool
}

// New builds a turbo decoder for one constituent FSM shared across all
// interleaved sets. len(inter) is the number of sets S; every
// interleaver must have size cfg.Tau.
func New[T numeric.Real[T]](encoder fsm.FSM, inter []interleaver.Interleaver, cfg Config) (*Decoder[T], error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if len(inter) == 0 {
		return nil, fmt.Errorf("turbo: at least one interleaved set is required")
	}
	for i, it := range inter {
		if it.Size() != cfg.Tau {
			return nil, fmt.Errorf("turbo: interleaver %d has size %d, want %d", i, it.Size(), cfg.Tau)
		}
	}
	k, n := encoder.NumInputs(), encoder.NumOutputs()
	if n%k != 0 {
		return nil, fmt.Errorf("turbo: encoder output alphabet (%d) must be a multiple of the input alphabet (%d)", n, k)
	}
	bc, err := bcjr.New[T](encoder, cfg.Tau)
	if err != nil {
		return nil, err
	}
	return &Decoder[T]{
		cfg:     cfg,
		encoder: encoder,
		inter:   inter,
		bc:      bc,
		k:       k,
		n:       n,
		parityQ: n / k,
		m:       encoder.NumStates(),
	}, nil
}

func (d *Decoder[T]) numSets() int { return len(d.inter) }

// NumSets is the number of interleaved constituent sets.
func (d *Decoder[T]) NumSets() int { return d.numSets() }

// InputAlphabet is the constituent FSM's input alphabet size k, the
// width callers must use for Translate's rpIn rows.
func (d *Decoder[T]) InputAlphabet() int { return d.k }

// ParityAlphabet is n/k, the width callers must use for each set's
// parity prior rows passed to Translate.
func (d *Decoder[T]) ParityAlphabet() int { return d.parityQ }

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

func (d *Decoder[T]) allocate() {
	if d.initialised {
		return
	}
	tau, k, n := d.cfg.Tau, d.k, d.n
	d.rp = alloc2[T](tau, k)
	d.ri = alloc2[T](tau, k)
	raSets := 1
	if d.cfg.Schedule == Parallel {
		raSets = d.numSets()
	}
	d.ra = alloc3[T](raSets, tau, k)
	d.rai = alloc2[T](tau, k)
	d.rii = alloc2[T](tau, k)
	d.rInter = alloc3[T](d.numSets(), tau, k)
	d.R = alloc3[T](d.numSets(), tau, n)
	if d.cfg.Circular {
		d.ss = alloc2[T](d.numSets(), d.m)
		d.se = alloc2[T](d.numSets(), d.m)
	}
	d.initialised = true
}

// Seed reseeds every interleaved set's interleaver, offsetting each by
// its set index so that sets sharing the same interleaver type do not
// draw identical permutations (§4.E, "seed(u32)").
func (d *Decoder[T]) Seed(s uint32) {
	for set, it := range d.inter {
		it.Seed(s + uint32(set))
	}
}

// reset seeds start/end state priors ahead of the first decode cycle
// (§4.E, "Circular (tail-biting) support").
func (d *Decoder[T]) reset() {
	if d.cfg.Circular {
		var z T
		uniform := z.FromFloat64(1.0 / float64(d.m))
		for set := range d.ss {
			for i := range d.ss[set] {
				d.ss[set][i] = uniform
				d.se[set][i] = uniform
			}
		}
		return
	}
	if d.cfg.EndAtZero {
		d.bc.SetStart(0)
		d.bc.SetEnd(0)
		return
	}
	d.bc.SetStart(0)
	d.bc.SetEndEquiprobable()
}

func permuteRows[T any](perm []int, in, out [][]T) {
	for i, p := range perm {
		copy(out[i], in[p])
	}
}

func deinterleaveRows[T any](perm []int, in, out [][]T) {
	for i, p := range perm {
		copy(out[p], in[i])
	}
}

// workExtrinsic computes re[t][x] = ri[t][x] / (ra[t][x] · r[t][x]),
// zero wherever ri is zero (§8, invariant "re = 0 where ri = 0";
// grounded on the bsource's work_extrinsic, which keeps the guard as a
// defined contract rather than an optimisation).
func workExtrinsic[T numeric.Real[T]](ra, ri, r, re [][]T) {
	var z T
	zero := z.FromFloat64(0)
	for t := range ri {
		for x := range ri[t] {
			if !ri[t][x].IsZero() {
				re[t][x] = ri[t][x].Div(ra[t][x].Mul(r[t][x]))
			} else {
				re[t][x] = zero
			}
		}
	}
}

// bcjrWrap runs one complete BCJR cycle for a set: interleave the a
// priori input, decode, compute extrinsic information in the
// interleaved domain, then de-interleave both results back to source
// order (§4.E, grounded on bcjr_wrap).
func (d *Decoder[T]) bcjrWrap(set int, ra, ri, re [][]T) error {
	if d.cfg.Circular {
		if err := d.bc.SetStartPDF(d.ss[set]); err != nil {
			return err
		}
		if err := d.bc.SetEndPDF(d.se[set]); err != nil {
			return err
		}
	}
	perm := d.inter[set].Perm()
	permuteRows(perm, ra, d.rai)
	if err := d.bc.FDecodeWithApp(d.R[set], d.rai, d.rii); err != nil {
		return err
	}
	workExtrinsic(d.rai, d.rii, d.rInter[set], d.rai)
	deinterleaveRows(perm, d.rii, ri)
	deinterleaveRows(perm, d.rai, re)
	if d.cfg.Circular {
		d.ss[set] = d.bc.GetStart()
		d.se[set] = d.bc.GetEnd()
	}
	return nil
}

func (d *Decoder[T]) decodeSerial(ri [][]T) error {
	for set := 0; set < d.numSets(); set++ {
		if err := d.bcjrWrap(set, d.ra[0], ri, d.ra[0]); err != nil {
			return err
		}
		bcjr.Normalize(d.ra[0])
	}
	bcjr.Normalize(ri)
	return nil
}

func (d *Decoder[T]) decodeParallel(ri [][]T) error {
	for set := 0; set < d.numSets(); set++ {
		if err := d.bcjrWrap(set, d.ra[set], ri, d.ra[set]); err != nil {
			return err
		}
	}
	// ri <- product of all sets' extrinsic information.
	for t := range ri {
		for x := range ri[t] {
			ri[t][x] = d.ra[0][t][x]
		}
	}
	for set := 1; set < d.numSets(); set++ {
		for t := range ri {
			for x := range ri[t] {
				ri[t][x] = ri[t][x].Mul(d.ra[set][t][x])
			}
		}
	}
	// next stage's a priori for each set excludes that set's own
	// contribution from the product just formed; zero wherever the
	// product is zero, as in workExtrinsic.
	var z T
	zero := z.FromFloat64(0)
	for set := 0; set < d.numSets(); set++ {
		for t := range ri {
			for x := range ri[t] {
				if ri[t][x].IsZero() {
					d.ra[set][t][x] = zero
				} else {
					d.ra[set][t][x] = ri[t][x].Div(d.ra[set][t][x])
				}
			}
		}
	}
	for t := range ri {
		for x := range ri[t] {
			ri[t][x] = ri[t][x].Mul(d.rp[t][x])
		}
	}
	for set := range d.ra {
		bcjr.Normalize(d.ra[set])
	}
	bcjr.Normalize(ri)
	return nil
}

// HardDecision returns the argmax input symbol per time step, ties
// broken by lowest index (§4.F).
func HardDecision[T numeric.Real[T]](ri [][]T) []int {
	return bcjr.HardDecision(ri)
}

// Translate folds channel observations into the decoder's working
// priors (§4.E, "Translate step"): rpIn is the intrinsic input prior
// rp[t][i] (t ∈ [0,tau), i ∈ [0,k)); parity[s] is set s's intrinsic
// parity-symbol prior (t ∈ [0,tau), x ∈ [0,parityQ)). Both are folded
// into each set's trellis branch prior R_s[t][x] = rp_interleaved[t][x
// mod k] · parity[s][t][x div k], then normalised. Callers that observe
// the channel at the modulation-symbol level rather than as pre-split
// input/parity priors should build a ptable and call
// TranslateFromPtable instead.
func (d *Decoder[T]) Translate(rpIn [][]T, parity [][][]T) error {
	d.allocate()
	tau, k, parityQ := d.cfg.Tau, d.k, d.parityQ
	if len(rpIn) != tau || len(rpIn[0]) != k {
		return fmt.Errorf("%w: rp is %dx%d, want %dx%d", ErrShapeMismatch, len(rpIn), len(rpIn[0]), tau, k)
	}
	if len(parity) != d.numSets() {
		return fmt.Errorf("%w: parity has %d sets, want %d", ErrShapeMismatch, len(parity), d.numSets())
	}
	for s, p := range parity {
		if len(p) != tau || len(p[0]) != parityQ {
			return fmt.Errorf("%w: parity[%d] is %dx%d, want %dx%d", ErrShapeMismatch, s, len(p), len(p[0]), tau, parityQ)
		}
	}
	for t := range rpIn {
		copy(d.rp[t], rpIn[t])
	}
	bcjr.Normalize(d.rp)

	var z T
	raInit := z.FromFloat64(1)
	for set := range d.ra {
		for t := range d.ra[set] {
			for x := range d.ra[set][t] {
				d.ra[set][t][x] = raInit
			}
		}
	}

	for set := 0; set < d.numSets(); set++ {
		perm := d.inter[set].Perm()
		permuteRows(perm, d.rp, d.rInter[set])
		for t := 0; t < tau; t++ {
			for x := 0; x < d.n; x++ {
				d.R[set][t][x] = d.rInter[set][t][x%k].Mul(parity[set][t][x/k])
			}
		}
		bcjr.Normalize(d.R[set])
	}
	d.reset()
	return nil
}

// intPow returns base^exp for exp >= 0.
func intPow(base, exp int) int {
	p := 1
	for i := 0; i < exp; i++ {
		p *= base
	}
	return p
}

// TranslateFromPtable is the symbol-level Translate step (§4.E,
// "translate(ptable)"): ptable[t*s+i][y] is the probability that
// modulation symbol value y (one of S values) occupies the i-th
// modulation-symbol slot within time step t, where s = sk + numSets*sp is
// the total slots per time step - sk slots carrying the systematic input
// alphabet, then sp slots per set carrying that set's parity alphabet. It
// demultiplexes ptable into the rp/parity shape Translate expects and
// validates that both the input and parity alphabets are representable by
// an integral number of modulation symbols, mirroring turbo.cpp's
// translate fatal check (turned into a returned error here, per §7).
func (d *Decoder[T]) TranslateFromPtable(ptable [][]T) error {
	if len(ptable) == 0 || len(ptable[0]) == 0 {
		return fmt.Errorf("%w: ptable must have at least one row and column", ErrShapeMismatch)
	}
	S := len(ptable[0])
	for i, row := range ptable {
		if len(row) != S {
			return fmt.Errorf("%w: ptable row %d has width %d, want %d", ErrShapeMismatch, i, len(row), S)
		}
	}

	logS := math.Log(float64(S))
	sp := int(math.Round(math.Log(float64(d.parityQ)) / logS))
	sk := int(math.Round(math.Log(float64(d.k)) / logS))
	if intPow(S, sp) != d.parityQ || intPow(S, sk) != d.k {
		return fmt.Errorf("turbo: encoder parity (%d) and input (%d) alphabets must each be representable by an integral number of modulation symbols (S=%d); nearest symbol counts were (%d,%d)",
			d.parityQ, d.k, S, sp, sk)
	}
	s := sk + d.numSets()*sp
	tau := d.cfg.Tau
	if len(ptable) != tau*s {
		return fmt.Errorf("%w: ptable has %d rows, want %d (tau=%d, symbols/step=%d)", ErrShapeMismatch, len(ptable), tau*s, tau, s)
	}

	rp := alloc2[T](tau, d.k)
	parity := make([][][]T, d.numSets())
	for set := range parity {
		parity[set] = alloc2[T](tau, d.parityQ)
	}

	var z T
	one := z.FromFloat64(1)
	for t := 0; t < tau; t++ {
		for x := 0; x < d.k; x++ {
			acc := one
			thisx := x
			for i := 0; i < sk; i++ {
				acc = acc.Mul(ptable[t*s+i][thisx%S])
				thisx /= S
			}
			rp[t][x] = acc
		}
		for x := 0; x < d.parityQ; x++ {
			offset := sk
			for set := 0; set < d.numSets(); set++ {
				acc := one
				thisx := x
				for i := 0; i < sp; i++ {
					acc = acc.Mul(ptable[t*s+i+offset][thisx%S])
					thisx /= S
				}
				parity[set][t][x] = acc
				offset += sp
			}
		}
	}

	return d.Translate(rp, parity)
}

// Decode runs one outer iteration (serial or parallel, per Config) and
// returns the hard-decided symbol sequence. The caller repeats this
// cfg.Iterations times; the extrinsic state carries across calls in d.
func (d *Decoder[T]) Decode() ([]int, error) {
	d.allocate()
	var err error
	if d.cfg.Schedule == Parallel {
		err = d.decodeParallel(d.ri)
	} else {
		err = d.decodeSerial(d.ri)
	}
	if err != nil {
		return nil, err
	}
	return HardDecision(d.ri), nil
}

// RunIterations runs the configured number of outer iterations and
// returns the final hard decision.
func (d *Decoder[T]) RunIterations() ([]int, error) {
	var decoded []int
	for i := 0; i < d.cfg.Iterations; i++ {
		var err error
		decoded, err = d.Decode()
		if err != nil {
			return nil, err
		}
	}
	return decoded, nil
}

// Encode runs source through the FSM once per interleaved set and
// returns each set's output symbol sequence (§4.E, "Encoding"). For
// circular codes, a first zero-state sweep determines the closure state,
// the encoder resets to it, and the real encode pass re-runs the same
// interleaved sequence from there; afterward the encoder's end state must
// equal the state it started the real pass at, mirroring the original
// encoder's post-encode assertion that the trellis actually closed. For
// EndAtZero codes the real pass must instead land back on state zero.
// Both checks are returned as errors rather than panics: a block length
// that happens to be a multiple of the constituent code's period can
// leave no exact tail-biting closure state for a given source, which is
// a property of the input, not a programming error.
func (d *Decoder[T]) Encode(source []int) ([][]int, error) {
	tau := d.cfg.Tau
	if len(source) != tau {
		return nil, fmt.Errorf("%w: source has %d symbols, want %d", ErrShapeMismatch, len(source), tau)
	}
	outputs := make([][]int, d.numSets())
	interleaved := make([]int, tau)
	for set := 0; set < d.numSets(); set++ {
		d.inter[set].Advance()
		if err := d.inter[set].Transform(source, interleaved); err != nil {
			return nil, err
		}
		d.encoder.Reset(0)

		cstate := 0
		if d.cfg.Circular {
			for t := 0; t < tau; t++ {
				d.encoder.Advance(interleaved[t])
			}
			d.encoder.ResetCircular()
			cstate = d.encoder.State()
		}

		row := make([]int, tau)
		for t := 0; t < tau; t++ {
			row[t] = d.encoder.Step(interleaved[t])
		}
		outputs[set] = row

		if d.cfg.Circular && d.encoder.State() != cstate {
			return nil, fmt.Errorf("turbo: set %d did not close its circular trellis: re-encode started at state %d, ended at %d", set, cstate, d.encoder.State())
		}
		if d.cfg.EndAtZero && d.encoder.State() != 0 {
			return nil, fmt.Errorf("turbo: set %d did not terminate at the zero state, ended at %d", set, d.encoder.State())
		}
	}
	return outputs, nil
}
