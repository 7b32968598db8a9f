package channel

import (
	"testing"

	"github.com/kd4xpt/turbosim/randsrc"
)

func TestBSIDZeroNoiseIsLossless(t *testing.T) {
	c, err := NewBSID(Params{Ps: 0, Pd: 0, Pi: 0, Q: 4})
	if err != nil {
		t.Fatalf("NewBSID: %v", err)
	}
	tx := []int{0, 1, 2, 3, 1, 0}
	src := randsrc.New(1)
	rx := c.Transmit(tx, src)
	if len(rx) != len(tx) {
		t.Fatalf("Transmit changed length: got %d, want %d", len(rx), len(tx))
	}
	for i := range tx {
		if rx[i] != tx[i] {
			t.Errorf("position %d: rx=%d, want %d (tx unchanged under zero noise)", i, rx[i], tx[i])
		}
	}
}

func TestBSIDPdfSumsToOneAcrossAlphabet(t *testing.T) {
	c, err := NewBSID(Params{Ps: 0.2, Pd: 0, Pi: 0, Q: 4})
	if err != nil {
		t.Fatalf("NewBSID: %v", err)
	}
	for tx := 0; tx < 4; tx++ {
		var sum float64
		for rx := 0; rx < 4; rx++ {
			sum += c.Pdf(tx, rx)
		}
		if sum < 0.999 || sum > 1.001 {
			t.Errorf("tx=%d: Pdf sums to %v, want ~1", tx, sum)
		}
	}
}

func TestBSIDSetParameterRejectsInvalid(t *testing.T) {
	c, err := NewBSID(Params{Ps: 0.1, Pd: 0.1, Pi: 0.1, Q: 2})
	if err != nil {
		t.Fatalf("NewBSID: %v", err)
	}
	if err := c.SetParameter(Params{Ps: 0.1, Pd: 0.6, Pi: 0.6}); err == nil {
		t.Error("expected error for Pi+Pd > 1")
	}
	if err := c.SetParameter(Params{Ps: 0.6}); err == nil {
		t.Error("expected error for Ps > 0.5")
	}
}

func TestBSIDDeletionAndInsertionChangeLength(t *testing.T) {
	c, err := NewBSID(Params{Ps: 0, Pd: 1, Pi: 0, Q: 2})
	if err != nil {
		t.Fatalf("NewBSID: %v", err)
	}
	tx := []int{0, 1, 0, 1}
	src := randsrc.New(3)
	rx := c.Transmit(tx, src)
	if len(rx) != 0 {
		t.Fatalf("Pd=1 should delete every symbol, got rx=%v", rx)
	}
}

func TestBSCCorruptRespectsZeroCrossover(t *testing.T) {
	c, err := NewBSC(0)
	if err != nil {
		t.Fatalf("NewBSC: %v", err)
	}
	src := randsrc.New(2)
	for _, b := range []int{0, 1, 0, 1, 1} {
		if got := c.Corrupt(b, src); got != b {
			t.Errorf("Corrupt(%d) with p=0 = %d, want %d", b, got, b)
		}
	}
}

func TestBSCCorruptAlwaysFlipsAtOne(t *testing.T) {
	c, err := NewBSC(1)
	if err != nil {
		t.Fatalf("NewBSC: %v", err)
	}
	src := randsrc.New(5)
	for _, b := range []int{0, 1, 0, 1, 1} {
		if got := c.Corrupt(b, src); got != 1-b {
			t.Errorf("Corrupt(%d) with p=1 = %d, want %d", b, got, 1-b)
		}
	}
}

func TestBSCTransmitPreservesLength(t *testing.T) {
	c, err := NewBSC(0.3)
	if err != nil {
		t.Fatalf("NewBSC: %v", err)
	}
	tx := []int{0, 1, 1, 0, 1, 0, 0, 1}
	rx := c.Transmit(tx, randsrc.New(9))
	if len(rx) != len(tx) {
		t.Fatalf("BSC Transmit changed length: got %d, want %d", len(rx), len(tx))
	}
}

func TestBSCPdf(t *testing.T) {
	c, err := NewBSC(0.25)
	if err != nil {
		t.Fatalf("NewBSC: %v", err)
	}
	if got := c.Pdf(0, 0); got != 0.75 {
		t.Errorf("Pdf(0,0) = %v, want 0.75", got)
	}
	if got := c.Pdf(0, 1); got != 0.25 {
		t.Errorf("Pdf(0,1) = %v, want 0.25", got)
	}
}

func TestNewBSCRejectsOutOfRange(t *testing.T) {
	if _, err := NewBSC(-0.1); err == nil {
		t.Error("expected error for negative crossover probability")
	}
	if _, err := NewBSC(1.1); err == nil {
		t.Error("expected error for crossover probability > 1")
	}
}
