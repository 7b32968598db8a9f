// Package fsm abstracts the finite-state encoder that a trellis decoder
// drives: anything with an input/output alphabet, a state count, and a
// step function can be decoded by bcjr.Decoder or used to build a
// trellis.LUT. The FSM collaborator provides no arithmetic of its own - it is pure bookkeeping,
// in the spirit of m17/codec.go's ConvolutionalEncode, generalised away
// from one fixed shift register into an interface any encoder can satisfy.
package fsm

// FSM is the finite-state encoder abstraction (§3, "Finite state machine
// (B)"). Implementations are expected to be cheap to copy or to carry a
// Reset/ResetCircular pair that returns them to a known state, since the
// trellis LUT builder resets and steps through every (state, input) pair.
type FSM interface {
	// NumInputs is K, the input symbol alphabet size per step.
	NumInputs() int
	// NumOutputs is N, the output symbol alphabet size per step.
	NumOutputs() int
	// NumStates is M, the number of states.
	NumStates() int
	// State returns the current state, an integer in [0, NumStates()).
	State() int
	// Reset sets the current state without producing output.
	Reset(state int)
	// Step advances the state machine by one input symbol and returns the
	// output symbol produced.
	Step(input int) int
	// Advance is equivalent to Step but discards the output; callers that
	// only need to know the resulting state (e.g. the turbo encoder's
	// zero-state sweep to determine the tail-biting closure state) use it
	// to skip computing output symbols they will not use.
	Advance(input int)
	// ResetCircular snaps the state to the tail-biting closure state: the
	// state which, re-encoding the same input sequence just swept through
	// with Advance/Step, returns the FSM to that same state at the end of
	// the block. This is generally a real fixed-point computation over the
	// FSM's state-update recursion, not merely Reset(State()).
	ResetCircular()
}
