package idschannel

import (
	"testing"

	"github.com/kd4xpt/turbosim/numeric"
)

func TestZeroNoiseChannelConcentratesOnExactMatch(t *testing.T) {
	c, err := New[numeric.Float64](Params{Ps: 0, Pd: 0, Pi: 0, Q: 2}, -2, 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	tx := []int{1, 0, 1, 1}
	rx := append(append([]int{}, tx...), 0, 1) // pad with garbage beyond the true length
	probs := c.Probabilities(tx, rx)
	for i, pt := range probs {
		p := pt.Float64()
		delta := -2 + i
		if delta == 0 {
			if p < 0.999 || p > 1.001 {
				t.Errorf("delta=0 probability = %v, want ~1", p)
			}
		} else if p > 1e-12 {
			t.Errorf("delta=%d probability = %v, want ~0", delta, p)
		}
	}
}

func TestMismatchedSymbolZerosExactMatch(t *testing.T) {
	c, err := New[numeric.Float64](Params{Ps: 0, Pd: 0, Pi: 0, Q: 2}, 0, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	tx := []int{1, 0, 1}
	rx := []int{1, 1, 1} // one substitution, impossible with Ps=0
	if p := c.Probability(tx, rx, 0); p.Float64() != 0 {
		t.Errorf("Probability with impossible substitution = %v, want 0", p.Float64())
	}
}

func TestSetParameterRejectsInvalidValues(t *testing.T) {
	c, err := New[numeric.Float64](Params{Ps: 0.1, Pd: 0.1, Pi: 0.1, Q: 4}, -1, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.SetParameter(Params{Ps: 0.1, Pd: 0.6, Pi: 0.6}); err == nil {
		t.Error("expected error for Pi+Pd > 1")
	}
}

func TestProbabilitiesSumIsPositiveUnderNoise(t *testing.T) {
	c, err := New[numeric.Float64](Params{Ps: 0.05, Pd: 0.05, Pi: 0.05, Q: 2}, -2, 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	tx := []int{0, 1, 0, 1, 1}
	rx := []int{0, 1, 1, 1, 1, 0, 1}
	sum := 0.0
	for _, p := range c.Probabilities(tx, rx) {
		sum += p.Float64()
	}
	if sum <= 0 {
		t.Errorf("expected positive total probability mass, got %v", sum)
	}
}
