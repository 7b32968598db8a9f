// Package trellis precomputes the transition tables a trellis decoder
// consults on every branch-metric evaluation, so the decoder never calls
// back into the encoder's Step/Reset machinery once decoding starts.
package trellis

import "github.com/kd4xpt/turbosim/fsm"

// LUT is the precomputed next-state and output-symbol table for every
// (state, input) pair of an FSM (§3, "Trellis LUT (C)"). It is built once
// in O(M*K) and never mutated afterwards.
type LUT struct {
	M, K, N int
	// NextState[m][i] is the state reached from state m on input i.
	NextState [][]int
	// Output[m][i] is the output symbol produced from state m on input i.
	Output [][]int
}

// Build constructs the LUT for encoder by resetting it to every state and
// stepping it through every input, exactly as bcjr.cpp's init() does:
// "for mdash in states, for i in inputs: encoder.reset(mdash); step(i)".
func Build(encoder fsm.FSM) LUT {
	m := encoder.NumStates()
	k := encoder.NumInputs()
	n := encoder.NumOutputs()
	lut := LUT{
		M: m, K: k, N: n,
		NextState: make([][]int, m),
		Output:    make([][]int, m),
	}
	for mdash := 0; mdash < m; mdash++ {
		lut.NextState[mdash] = make([]int, k)
		lut.Output[mdash] = make([]int, k)
		for i := 0; i < k; i++ {
			encoder.Reset(mdash)
			lut.Output[mdash][i] = encoder.Step(i)
			lut.NextState[mdash][i] = encoder.State()
		}
	}
	return lut
}
