package main

import (
	"github.com/kd4xpt/turbosim/numeric"
	"github.com/kd4xpt/turbosim/randsrc"
)

// bitPriors turns a received bit sequence into a tau x 2 likelihood
// matrix via the channel's own Pdf, the same substitution-likelihood
// shape channel.BSID.Pdf / channel.BSC.Pdf already provide for the
// plain BCJR path.
func bitPriors(rx []int, pdf func(tx, rx int) float64) [][]numeric.Float64 {
	out := make([][]numeric.Float64, len(rx))
	for t, b := range rx {
		row := make([]numeric.Float64, 2)
		for tx := 0; tx < 2; tx++ {
			var v numeric.Float64
			row[tx] = v.FromFloat64(pdf(tx, b))
		}
		out[t] = row
	}
	return out
}

// runTrial encodes a fresh random source block through every
// interleaved set, transmits the systematic stream and each set's
// parity stream independently over the channel (the classical turbo
// wire model: the systematic bit is sent once, each set's own
// interleaved parity is sent once), decodes, and reports the outcome.
func runTrial(sys *system, src *randsrc.Source) (bitErrors, totalBits int, frameErr bool) {
	tau := sys.cfg.Tau
	source := make([]int, tau)
	for t := range source {
		source[t] = src.IntN(2)
	}

	outputs, err := sys.dec.Encode(source)
	if err != nil {
		panic(err) // configuration bug, not a runtime trial failure
	}

	rxSystematic := sys.ch.Transmit(source, src)
	rp := bitPriors(rxSystematic, sys.ch.Pdf)

	parity := make([][][]numeric.Float64, sys.dec.NumSets())
	for s, row := range outputs {
		parityBits := make([]int, tau)
		for t, x := range row {
			parityBits[t] = x >> 1
		}
		rxParity := sys.ch.Transmit(parityBits, src)
		parity[s] = bitPriors(rxParity, sys.ch.Pdf)
	}

	if err := sys.dec.Translate(rp, parity); err != nil {
		panic(err)
	}
	decoded, err := sys.dec.RunIterations()
	if err != nil {
		// numeric underflow on an implausible observation: the Monte
		// Carlo driver discards this frame by reporting it as 100%
		// wrong rather than crashing the run (§7: "the Monte Carlo
		// driver (external) may discard a frame on underflow").
		return tau, tau, true
	}

	for t, want := range source {
		if decoded[t] != want {
			bitErrors++
		}
	}
	return bitErrors, tau, bitErrors > 0
}
