package main

import (
	"fmt"

	"github.com/kd4xpt/turbosim/idschannel"
	"github.com/kd4xpt/turbosim/numeric"
	"github.com/kd4xpt/turbosim/randsrc"
)

// driftDistribution builds a drift PDF over a synthetic codeword: draw a
// random length-n symbol sequence, feed it to itself as the received
// window (no actual noise is applied — the Computer's own Ps/Pd/Pi
// weighting is what produces the spread over Δ), and return one bar per
// Δ in [-spread, spread]. The UI only ever plots this once per click, so
// plain float64 backend is all it needs.
func driftDistribution(p idschannel.Params, n, spread int) ([]string, []float64, error) {
	c, err := idschannel.New[numeric.Float64](p, -spread, spread)
	if err != nil {
		return nil, nil, fmt.Errorf("build drift computer: %w", err)
	}
	src := randsrc.New(1)
	tx := make([]int, n)
	for i := range tx {
		tx[i] = src.Symbol(p.Q)
	}
	rx := make([]int, n+spread)
	copy(rx, tx)
	for i := n; i < len(rx); i++ {
		rx[i] = src.Symbol(p.Q)
	}

	probs := c.Probabilities(tx, rx)
	labels := make([]string, len(probs))
	values := make([]float64, len(probs))
	for i := range probs {
		labels[i] = fmt.Sprintf("%+d", i-spread)
		values[i] = probs[i].Float64()
	}
	return labels, values, nil
}
