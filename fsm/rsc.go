package fsm

import "fmt"

// RSC is a binary recursive systematic convolutional encoder in controller
// canonical form: one systematic output bit (the input itself) plus one
// output bit per parity generator polynomial, combined with a feedback
// polynomial that is recursed back into the shift register.
//
// The encode step mirrors m17/codec.go's ConvolutionalEncode: a small
// window of register bits is XORed against fixed taps every step, the
// same shift-and-mask structure, generalised from one hard-coded
// generator pair into arbitrary feedback/parity polynomials so the same
// code can realise any constraint-length RSC constituent code a turbo
// scheme needs.
//
// Polynomials are given as a bitmask of width nu+1: bit nu is the tap on
// the current input, and bit i (for i < nu) is the tap on register[i]
// (register[0] is the most recently fed-back bit). The register taps
// therefore read in the reverse of the usual MSB-first octal notation:
// 0b101 taps the input and register[0], i.e. 1 + D, not 1 + D^2. Octal 7
// ("111") over 2 memory bits is the feedback polynomial of the classic
// 4-state Berrou/Glavieux/Thitimajshima constituent code under either
// reading, since it is symmetric.
type RSC struct {
	nu       int
	feedback uint
	parity   []uint
	register []int // register[0] is most recent; length nu
	state    int
	steps    int // inputs consumed since the last Reset, for ResetCircular's N
}

// NewRSC builds a recursive systematic convolutional FSM with nu bits of
// memory, a feedback polynomial, and one or more parity generator
// polynomials (each produces one additional output bit alongside the
// systematic bit).
func NewRSC(nu int, feedback uint, parity []uint) (*RSC, error) {
	if nu < 1 {
		return nil, fmt.Errorf("fsm: RSC memory order must be >= 1, got %d", nu)
	}
	if len(parity) == 0 {
		return nil, fmt.Errorf("fsm: RSC needs at least one parity generator")
	}
	mask := uint(1<<(nu+1)) - 1
	if feedback&mask == 0 {
		return nil, fmt.Errorf("fsm: feedback polynomial %#o has no taps", feedback)
	}
	r := &RSC{
		nu:       nu,
		feedback: feedback,
		parity:   append([]uint{}, parity...),
		register: make([]int, nu),
	}
	return r, nil
}

func (r *RSC) NumInputs() int  { return 2 }
func (r *RSC) NumOutputs() int { return 1 << (1 + len(r.parity)) }
func (r *RSC) NumStates() int  { return 1 << r.nu }

func (r *RSC) State() int { return r.state }

func (r *RSC) Reset(state int) {
	r.state = state
	r.steps = 0
	for i := 0; i < r.nu; i++ {
		r.register[i] = state & 1
		state >>= 1
	}
}

// tap reports whether polynomial p has a tap at register position i
// (0-indexed from the most recently fed-back bit).
func tap(p uint, i int) bool { return p&(1<<uint(i)) != 0 }

// inputTap reports whether polynomial p (of width nu+1) taps the current
// input bit, which sits in the most significant position.
func inputTap(p uint, nu int) bool { return p&(1<<uint(nu)) != 0 }

func (r *RSC) feedbackBit(input int) int {
	fb := 0
	if inputTap(r.feedback, r.nu) {
		fb = input
	}
	for i := 0; i < r.nu; i++ {
		if tap(r.feedback, i) && r.register[i] == 1 {
			fb ^= 1
		}
	}
	return fb
}

func (r *RSC) parityBit(poly uint, fb int) int {
	p := 0
	if inputTap(poly, r.nu) {
		p = fb
	}
	for i := 0; i < r.nu; i++ {
		if tap(poly, i) && r.register[i] == 1 {
			p ^= 1
		}
	}
	return p
}

func (r *RSC) Step(input int) int {
	fb := r.feedbackBit(input)
	output := input // systematic bit occupies the low bit of the output symbol
	for i, poly := range r.parity {
		output |= r.parityBit(poly, fb) << uint(1+i)
	}
	for i := r.nu - 1; i > 0; i-- {
		r.register[i] = r.register[i-1]
	}
	r.register[0] = fb
	r.state = 0
	for i := r.nu - 1; i >= 0; i-- {
		r.state = r.state<<1 | r.register[i]
	}
	r.steps++
	return output
}

func (r *RSC) Advance(input int) { r.Step(input) }

// zeroInputMatrix is A, the one-step register transition under a zero
// input: new_register[0] is the feedback tap sum over the current
// register, new_register[j] = register[j-1] for j >= 1. It depends only
// on the feedback polynomial, not on any particular register contents.
func (r *RSC) zeroInputMatrix() gf2Matrix {
	m := make(gf2Matrix, r.nu)
	var row0 uint64
	for i := 0; i < r.nu; i++ {
		if tap(r.feedback, i) {
			row0 |= 1 << uint(i)
		}
	}
	m[0] = row0
	for j := 1; j < r.nu; j++ {
		m[j] = 1 << uint(j-1)
	}
	return m
}

// ResetCircular snaps the register to the tail-biting closure state for
// the block just swept through with Advance: the state s0 such that
// resetting to s0 and feeding the same inputs again for the same number
// of steps N returns the register to s0. Writing the zero-input
// transition as A and the register reached by this sweep (which started
// at the all-zero state) as z, s0 must satisfy the fixed point
//
//	s0 = A^N*s0 + z  =>  (I + A^N)*s0 = z
//
// over GF(2), since the shift register's response is linear: running the
// same input sequence from s0 instead of zero adds the zero-input
// evolution of s0 itself (A^N*s0) to the all-zero-start trajectory (z).
// The system is solved by Gauss-Jordan elimination; if it has no exact
// solution (possible when N is a multiple of the register's period and z
// does not happen to lie in (I+A^N)'s range), the register is left at z
// and the caller's own post-encode state check is expected to catch the
// resulting mismatch.
func (r *RSC) ResetCircular() {
	a := r.zeroInputMatrix()
	an := powGF2(a, r.steps, r.nu)
	m := addGF2(identityGF2(r.nu), an)

	var z uint64
	for i := 0; i < r.nu; i++ {
		if r.register[i] == 1 {
			z |= 1 << uint(i)
		}
	}

	s0, ok := solveGF2(m, z, r.nu)
	if !ok {
		return
	}
	for i := 0; i < r.nu; i++ {
		r.register[i] = int((s0 >> uint(i)) & 1)
	}
	r.state = 0
	for i := r.nu - 1; i >= 0; i-- {
		r.state = r.state<<1 | r.register[i]
	}
}
