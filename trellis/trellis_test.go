package trellis

import (
	"testing"

	"github.com/kd4xpt/turbosim/fsm"
)

func TestBuildInvariants(t *testing.T) {
	enc, err := fsm.NewRSC(2, 0b111, []uint{0b101})
	if err != nil {
		t.Fatalf("NewRSC: %v", err)
	}
	lut := Build(enc)
	if lut.M != 4 || lut.K != 2 || lut.N != 4 {
		t.Fatalf("unexpected shape M=%d K=%d N=%d", lut.M, lut.K, lut.N)
	}
	for m := 0; m < lut.M; m++ {
		for i := 0; i < lut.K; i++ {
			ns := lut.NextState[m][i]
			if ns < 0 || ns >= lut.M {
				t.Errorf("NextState[%d][%d] = %d out of range", m, i, ns)
			}
			out := lut.Output[m][i]
			if out < 0 || out >= lut.N {
				t.Errorf("Output[%d][%d] = %d out of range", m, i, out)
			}
		}
	}
	// building must not leave the encoder at a stale state
	if enc.State() < 0 || enc.State() >= lut.M {
		t.Errorf("encoder left in invalid state %d after Build", enc.State())
	}
}
