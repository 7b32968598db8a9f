package turbo

import (
	"testing"

	"github.com/kd4xpt/turbosim/fsm"
	"github.com/kd4xpt/turbosim/interleaver"
	"github.com/kd4xpt/turbosim/numeric"
)

func newRSC(t *testing.T) *fsm.RSC {
	t.Helper()
	r, err := fsm.NewRSC(2, 0b111, []uint{0b101})
	if err != nil {
		t.Fatalf("NewRSC: %v", err)
	}
	return r
}

func buildDecoder(t *testing.T, tau int, cfg Config, seeds ...uint32) *Decoder[numeric.Float64] {
	t.Helper()
	inters := make([]interleaver.Interleaver, len(seeds))
	for i, s := range seeds {
		if s == 0 {
			inters[i] = interleaver.NewIdentity(tau)
		} else {
			inters[i] = interleaver.NewRandom(tau, s)
		}
	}
	dec, err := New[numeric.Float64](newRSC(t), inters, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return dec
}

func cleanTranslateInputs(t *testing.T, dec *Decoder[numeric.Float64], source []int, outputs [][]int) ([][]numeric.Float64, [][][]numeric.Float64) {
	t.Helper()
	tau := len(source)
	rp := make([][]numeric.Float64, tau)
	for i := range rp {
		rp[i] = make([]numeric.Float64, dec.k)
		rp[i][source[i]] = 1
	}
	parity := make([][][]numeric.Float64, dec.numSets())
	for set := range parity {
		parity[set] = make([][]numeric.Float64, tau)
		for t := range parity[set] {
			parity[set][t] = make([]numeric.Float64, dec.parityQ)
			parity[set][t][outputs[set][t]>>1] = 1
		}
	}
	return rp, parity
}

func TestEncodeDecodeRoundTripZeroNoise(t *testing.T) {
	tau := 16
	cfg := Config{Tau: tau, Schedule: Serial, Iterations: 4}
	dec := buildDecoder(t, tau, cfg, 0, 123)

	source := []int{1, 0, 1, 1, 0, 0, 1, 0, 1, 1, 1, 0, 0, 0, 1, 0}
	outputs, err := dec.Encode(source)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	rp, parity := cleanTranslateInputs(t, dec, source, outputs)
	if err := dec.Translate(rp, parity); err != nil {
		t.Fatalf("Translate: %v", err)
	}
	decoded, err := dec.RunIterations()
	if err != nil {
		t.Fatalf("RunIterations: %v", err)
	}
	for i, want := range source {
		if decoded[i] != want {
			t.Errorf("t=%d: decoded %d, want %d", i, decoded[i], want)
		}
	}
}

func TestParallelScheduleZeroNoise(t *testing.T) {
	tau := 20
	cfg := Config{Tau: tau, Schedule: Parallel, Iterations: 5}
	dec := buildDecoder(t, tau, cfg, 0, 77)

	source := make([]int, tau)
	for i := range source {
		source[i] = i % 2
	}
	outputs, err := dec.Encode(source)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	rp, parity := cleanTranslateInputs(t, dec, source, outputs)
	if err := dec.Translate(rp, parity); err != nil {
		t.Fatalf("Translate: %v", err)
	}
	decoded, err := dec.RunIterations()
	if err != nil {
		t.Fatalf("RunIterations: %v", err)
	}
	for i, want := range source {
		if decoded[i] != want {
			t.Errorf("t=%d: decoded %d, want %d", i, decoded[i], want)
		}
	}
}

func TestCircularAndEndAtZeroAreMutuallyExclusive(t *testing.T) {
	tau := 8
	cfg := Config{Tau: tau, EndAtZero: true, Circular: true, Schedule: Serial, Iterations: 1}
	inters := []interleaver.Interleaver{interleaver.NewIdentity(tau)}
	if _, err := New[numeric.Float64](newRSC(t), inters, cfg); err == nil {
		t.Error("expected error for endAtZero && circular")
	}
}

func TestRejectsMismatchedInterleaverSize(t *testing.T) {
	cfg := Config{Tau: 8, Schedule: Serial, Iterations: 1}
	inters := []interleaver.Interleaver{interleaver.NewIdentity(6)}
	if _, err := New[numeric.Float64](newRSC(t), inters, cfg); err == nil {
		t.Error("expected error for an interleaver sized differently from tau")
	}
}

func TestTranslateRejectsShapeMismatch(t *testing.T) {
	tau := 8
	dec := buildDecoder(t, tau, Config{Tau: tau, Schedule: Serial, Iterations: 1}, 0)
	badRp := make([][]numeric.Float64, tau-1)
	for i := range badRp {
		badRp[i] = make([]numeric.Float64, dec.k)
	}
	parity := make([][][]numeric.Float64, 1)
	parity[0] = make([][]numeric.Float64, tau)
	for i := range parity[0] {
		parity[0][i] = make([]numeric.Float64, dec.parityQ)
	}
	if err := dec.Translate(badRp, parity); err == nil {
		t.Error("expected shape mismatch error for a short rp matrix")
	}
}

func TestEncodeRejectsWrongSourceLength(t *testing.T) {
	tau := 8
	dec := buildDecoder(t, tau, Config{Tau: tau, Schedule: Serial, Iterations: 1}, 0)
	if _, err := dec.Encode(make([]int, tau-1)); err == nil {
		t.Error("expected error for a source shorter than tau")
	}
}

// cleanPtable builds a symbol-level ptable equivalent to
// cleanTranslateInputs, for a binary (S=2) modulation alphabet: one slot
// per time step for the systematic input, then one slot per set for its
// parity, matching this decoder's k=2, parityQ=2 constituent code.
func cleanPtable(t *testing.T, dec *Decoder[numeric.Float64], source []int, outputs [][]int) [][]numeric.Float64 {
	t.Helper()
	tau := len(source)
	s := 1 + dec.numSets()
	ptable := make([][]numeric.Float64, tau*s)
	for i := range ptable {
		ptable[i] = make([]numeric.Float64, 2)
	}
	for i := 0; i < tau; i++ {
		ptable[i*s][source[i]] = 1
		for set := 0; set < dec.numSets(); set++ {
			ptable[i*s+1+set][outputs[set][i]>>1] = 1
		}
	}
	return ptable
}

func TestTranslateFromPtableMatchesDirectTranslate(t *testing.T) {
	tau := 16
	cfg := Config{Tau: tau, Schedule: Serial, Iterations: 4}
	dec := buildDecoder(t, tau, cfg, 0, 123)

	source := []int{1, 0, 1, 1, 0, 0, 1, 0, 1, 1, 1, 0, 0, 0, 1, 0}
	outputs, err := dec.Encode(source)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	ptable := cleanPtable(t, dec, source, outputs)
	if err := dec.TranslateFromPtable(ptable); err != nil {
		t.Fatalf("TranslateFromPtable: %v", err)
	}
	decoded, err := dec.RunIterations()
	if err != nil {
		t.Fatalf("RunIterations: %v", err)
	}
	for i, want := range source {
		if decoded[i] != want {
			t.Errorf("t=%d: decoded %d, want %d", i, decoded[i], want)
		}
	}
}

func TestTranslateFromPtableRejectsNonIntegralAlphabet(t *testing.T) {
	tau := 4
	dec := buildDecoder(t, tau, Config{Tau: tau, Schedule: Serial, Iterations: 1}, 0)

	// S=3 cannot represent k=2 or parityQ=2 as an integral power of 3.
	s := 1 + dec.numSets()
	ptable := make([][]numeric.Float64, tau*s)
	for i := range ptable {
		ptable[i] = make([]numeric.Float64, 3)
	}
	if err := dec.TranslateFromPtable(ptable); err == nil {
		t.Error("expected error for a modulation alphabet that doesn't divide the encoder alphabets evenly")
	}
}

func TestTranslateFromPtableRejectsShapeMismatch(t *testing.T) {
	tau := 8
	dec := buildDecoder(t, tau, Config{Tau: tau, Schedule: Serial, Iterations: 1}, 0)

	s := 1 + dec.numSets()
	short := make([][]numeric.Float64, tau*s-1)
	for i := range short {
		short[i] = make([]numeric.Float64, 2)
	}
	if err := dec.TranslateFromPtable(short); err == nil {
		t.Error("expected shape mismatch error for a ptable with too few rows")
	}
}

func TestCircularConfigConvergesOnCleanChannel(t *testing.T) {
	tau := 13
	cfg := Config{Tau: tau, Circular: true, Schedule: Serial, Iterations: 4}
	dec := buildDecoder(t, tau, cfg, 0, 55)

	source := []int{0, 1, 0, 0, 1, 1, 0, 1, 0, 0, 1, 1, 0}
	outputs, err := dec.Encode(source)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	rp, parity := cleanTranslateInputs(t, dec, source, outputs)
	if err := dec.Translate(rp, parity); err != nil {
		t.Fatalf("Translate: %v", err)
	}
	decoded, err := dec.RunIterations()
	if err != nil {
		t.Fatalf("RunIterations: %v", err)
	}
	mismatches := 0
	for i, want := range source {
		if decoded[i] != want {
			mismatches++
		}
	}
	if mismatches > 0 {
		t.Errorf("circular decode on a clean channel mismatched %d/%d positions", mismatches, tau)
	}
}

// TestCircularEncodeClosesTrellisForNonTrivialSource exercises a source
// vector whose zero-state sweep ends at a different register state than
// the one needed to close the tail-biting trellis (hand-confirmed for
// this nu=2, feedback=0b111 code), unlike
// TestCircularConfigConvergesOnCleanChannel's vector, which happens to
// close under a trivial zero-sweep reset and so cannot tell a working
// ResetCircular from a no-op.
func TestCircularEncodeClosesTrellisForNonTrivialSource(t *testing.T) {
	tau := 8
	cfg := Config{Tau: tau, Circular: true, Schedule: Serial, Iterations: 4}
	dec := buildDecoder(t, tau, cfg, 0)

	source := []int{1, 0, 1, 1, 0, 0, 1, 0}
	outputs, err := dec.Encode(source)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	r := newRSC(t)
	r.Reset(0)
	for _, in := range source {
		r.Advance(in)
	}
	r.ResetCircular()
	cstate := r.State()
	if cstate == 0 {
		t.Fatal("test vector's zero-sweep end state coincidentally closes trivially; pick another vector")
	}
	for _, in := range source {
		r.Step(in)
	}
	if r.State() != cstate {
		t.Errorf("ResetCircular did not close the trellis: started re-encode at %d, ended at %d", cstate, r.State())
	}

	rp, parity := cleanTranslateInputs(t, dec, source, outputs)
	if err := dec.Translate(rp, parity); err != nil {
		t.Fatalf("Translate: %v", err)
	}
	decoded, err := dec.RunIterations()
	if err != nil {
		t.Fatalf("RunIterations: %v", err)
	}
	for i, want := range source {
		if decoded[i] != want {
			t.Errorf("t=%d: decoded %d, want %d", i, decoded[i], want)
		}
	}
}
