package bcjr

import (
	"testing"

	"github.com/kd4xpt/turbosim/fsm"
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

// encodeClean runs bits through enc from state 0 and returns the sequence
// of output symbols and a noiseless R matrix (impulse at the transmitted
// symbol, per time step).
func encodeClean(enc *fsm.RSC, bits []int) (outputs []int, R [][]numeric.Float64) {
	enc.Reset(0)
	n := enc.NumOutputs()
	R = make([][]numeric.Float64, len(bits))
	outputs = make([]int, len(bits))
	for t, b := range bits {
		x := enc.Step(b)
		outputs[t] = x
		row := make([]numeric.Float64, n)
		row[x] = 1
		R[t] = row
	}
	return outputs, R
}

func TestDecodeRecoversCleanCodeword(t *testing.T) {
	bits := []int{1, 0, 1, 1, 0, 0, 1, 0}
	enc := newRSC(t)
	_, R := encodeClean(enc, bits)

	dec, err := New[numeric.Float64](newRSC(t), len(bits))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	dec.SetStart(0)
	dec.SetEndEquiprobable()

	ri := make([][]numeric.Float64, len(bits))
	ro := make([][]numeric.Float64, len(bits))
	for i := range ri {
		ri[i] = make([]numeric.Float64, dec.lut.K)
		ro[i] = make([]numeric.Float64, dec.lut.N)
	}
	if err := dec.Decode(R, ri, ro); err != nil {
		t.Fatalf("Decode: %v", err)
	}

	decoded := HardDecision(ri)
	for i, want := range bits {
		if decoded[i] != want {
			t.Errorf("t=%d: decoded input %d, want %d (ri=%v)", i, decoded[i], want, ri[i])
		}
	}
}

func TestPosteriorsSumToOne(t *testing.T) {
	bits := []int{0, 1, 1, 0, 1, 0, 0, 1}
	enc := newRSC(t)
	_, R := encodeClean(enc, bits)
	// perturb R to remain strictly positive everywhere, not just at the
	// transmitted symbol, so the invariant is exercised with noise.
	for t := range R {
		for x := range R[t] {
			if R[t][x] == 0 {
				R[t][x] = 0.05
			} else {
				R[t][x] = 0.85
			}
		}
	}

	dec, err := New[numeric.Float64](newRSC(t), len(bits))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	dec.SetStartEquiprobable()
	dec.SetEndEquiprobable()

	ri := make([][]numeric.Float64, len(bits))
	for i := range ri {
		ri[i] = make([]numeric.Float64, dec.lut.K)
	}
	if err := dec.FDecode(R, ri); err != nil {
		t.Fatalf("FDecode: %v", err)
	}
	for i, row := range ri {
		sum := numeric.Float64(0)
		for _, v := range row {
			sum += v
		}
		if sum < 0.999 || sum > 1.001 {
			t.Errorf("t=%d: ri row sums to %v, want ~1", i, sum)
		}
	}
}

func TestHardDecisionTieBreaksLowestIndex(t *testing.T) {
	ri := [][]numeric.Float64{{0.5, 0.5}, {0.25, 0.25, 0.25, 0.25}}
	got := HardDecision(ri)
	want := []int{0, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("HardDecision tie at %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestUnderflowDetected(t *testing.T) {
	bits := []int{1, 0, 1}
	enc := newRSC(t)
	dec, err := New[numeric.Float64](enc, len(bits))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	dec.SetStart(0)
	dec.SetEndEquiprobable()

	R := make([][]numeric.Float64, len(bits))
	ri := make([][]numeric.Float64, len(bits))
	for i := range R {
		R[i] = make([]numeric.Float64, dec.lut.N) // all-zero row: impossible observation
		ri[i] = make([]numeric.Float64, dec.lut.K)
	}
	if err := dec.FDecode(R, ri); err == nil {
		t.Fatal("expected underflow error decoding an all-zero R row")
	}
}
