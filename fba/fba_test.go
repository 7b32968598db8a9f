package fba

import (
	"testing"

	"github.com/kd4xpt/turbosim/idschannel"
	"github.com/kd4xpt/turbosim/numeric"
)

// repeatCode encodes each bit as n copies of itself; it gives Probabilities
// a codeword whose symbol identity is unambiguous under a noiseless channel.
func repeatCode(n int) CodewordFunc {
	return func(i, d int) []int {
		cw := make([]int, n)
		for j := range cw {
			cw[j] = d
		}
		return cw
	}
}

func spikeAt(width, index int) []numeric.Float64 {
	pdf := make([]numeric.Float64, width)
	pdf[index] = 1
	return pdf
}

func TestCleanChannelRecoversSymbolsAndZeroDrift(t *testing.T) {
	bits := []int{1, 0, 1, 0}
	n := 2
	metric, err := idschannel.New[numeric.Float64](idschannel.Params{Ps: 0, Pd: 0, Pi: 0, Q: 2}, -1, 1)
	if err != nil {
		t.Fatalf("idschannel.New: %v", err)
	}
	cfg := Config{
		Tau: len(bits), N: n, Q: 2,
		DriftMin: -2, DriftMax: 2,
		DeltaMin: -1, DeltaMax: 1,
		Normalize: true,
	}
	dec, err := New[numeric.Float64](cfg, metric, repeatCode(n))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rx := make([]int, 0, len(bits)*n)
	for _, b := range bits {
		rx = append(rx, b, b)
	}

	driftWidth := cfg.DriftMax - cfg.DriftMin + 1
	if err := dec.SetStartPDF(spikeAt(driftWidth, -cfg.DriftMin)); err != nil {
		t.Fatalf("SetStartPDF: %v", err)
	}
	if err := dec.SetEndPDF(spikeAt(driftWidth, -cfg.DriftMin)); err != nil {
		t.Fatalf("SetEndPDF: %v", err)
	}
	if err := dec.Prepare(rx); err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	for i, want := range bits {
		post := dec.SymbolPosteriors(i, rx)
		var sum float64
		for _, p := range post {
			sum += p.Float64()
		}
		if sum <= 0 {
			t.Fatalf("i=%d: posterior mass is zero", i)
		}
		best := 0
		for d := 1; d < len(post); d++ {
			if post[d].Greater(post[best]) {
				best = d
			}
		}
		if best != want {
			t.Errorf("i=%d: decoded symbol %d, want %d (post=%v)", i, best, want, post)
		}
	}

	for i := 0; i <= len(bits); i++ {
		pdf := dec.DriftPDF(i)
		best := 0
		for x := 1; x < len(pdf); x++ {
			if pdf[x].Greater(pdf[best]) {
				best = x
			}
		}
		if best != -cfg.DriftMin {
			t.Errorf("boundary %d: drift mode at index %d, want %d (pdf=%v)", i, best, -cfg.DriftMin, pdf)
		}
	}
}

func TestForwardUnderflowOnImpossibleObservation(t *testing.T) {
	metric, err := idschannel.New[numeric.Float64](idschannel.Params{Ps: 0, Pd: 0, Pi: 0, Q: 2}, 0, 0)
	if err != nil {
		t.Fatalf("idschannel.New: %v", err)
	}
	cfg := Config{
		Tau: 2, N: 2, Q: 2,
		DriftMin: 0, DriftMax: 0,
		DeltaMin: 0, DeltaMax: 0,
		Normalize: true,
	}
	dec, err := New[numeric.Float64](cfg, metric, repeatCode(2))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// rx disagrees with every possible codeword under Ps=0: forced to zero.
	rx := []int{1, 0, 1, 0}
	if err := dec.SetStartPDF(spikeAt(1, 0)); err != nil {
		t.Fatalf("SetStartPDF: %v", err)
	}
	if err := dec.Forward(rx); err == nil {
		t.Fatal("expected underflow error from an impossible observation")
	}
}

func TestConfigValidation(t *testing.T) {
	metric, err := idschannel.New[numeric.Float64](idschannel.Params{Ps: 0.1, Pd: 0.1, Pi: 0.1, Q: 2}, -1, 1)
	if err != nil {
		t.Fatalf("idschannel.New: %v", err)
	}
	cases := []Config{
		{Tau: 0, N: 1, Q: 2, DriftMin: -1, DriftMax: 1, DeltaMin: -1, DeltaMax: 1},
		{Tau: 1, N: 1, Q: 1, DriftMin: -1, DriftMax: 1, DeltaMin: -1, DeltaMax: 1},
		{Tau: 1, N: 1, Q: 2, DriftMin: 1, DriftMax: 2, DeltaMin: -1, DeltaMax: 1},
		{Tau: 1, N: 1, Q: 2, DriftMin: -1, DriftMax: 1, DeltaMin: 2, DeltaMax: 1},
		{Tau: 1, N: 1, Q: 2, DriftMin: -1, DriftMax: 1, DeltaMin: -1, DeltaMax: 1, ThInner: -0.1},
	}
	for i, c := range cases {
		if _, err := New[numeric.Float64](c, metric, repeatCode(1)); err == nil {
			t.Errorf("case %d: expected validation error, got nil", i)
		}
	}
}

func TestShapeMismatchRejected(t *testing.T) {
	metric, err := idschannel.New[numeric.Float64](idschannel.Params{Ps: 0.1, Pd: 0.1, Pi: 0.1, Q: 2}, -1, 1)
	if err != nil {
		t.Fatalf("idschannel.New: %v", err)
	}
	cfg := Config{
		Tau: 2, N: 1, Q: 2,
		DriftMin: -1, DriftMax: 1,
		DeltaMin: -1, DeltaMax: 1,
	}
	dec, err := New[numeric.Float64](cfg, metric, repeatCode(1))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := dec.SetStartPDF([]numeric.Float64{1, 0}); err == nil {
		t.Error("expected shape mismatch for a wrong-width start pdf")
	}
}

func TestLocalStoreMatchesGlobalStore(t *testing.T) {
	bits := []int{0, 1, 1, 0}
	n := 2
	runWith := func(storage StorageMode) []numeric.Float64 {
		metric, err := idschannel.New[numeric.Float64](idschannel.Params{Ps: 0.05, Pd: 0.02, Pi: 0.02, Q: 2}, -1, 1)
		if err != nil {
			t.Fatalf("idschannel.New: %v", err)
		}
		cfg := Config{
			Tau: len(bits), N: n, Q: 2,
			DriftMin: -2, DriftMax: 2,
			DeltaMin: -1, DeltaMax: 1,
			Normalize: true,
			Storage:   storage,
		}
		dec, err := New[numeric.Float64](cfg, metric, repeatCode(n))
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		rx := []int{0, 0, 1, 0, 1, 1, 0, 0}
		driftWidth := cfg.DriftMax - cfg.DriftMin + 1
		if err := dec.SetStartPDF(spikeAt(driftWidth, -cfg.DriftMin)); err != nil {
			t.Fatalf("SetStartPDF: %v", err)
		}
		if err := dec.SetEndPDF(spikeAt(driftWidth, -cfg.DriftMin)); err != nil {
			t.Fatalf("SetEndPDF: %v", err)
		}
		if err := dec.Prepare(rx); err != nil {
			t.Fatalf("Prepare: %v", err)
		}
		return dec.SymbolPosteriors(1, rx)
	}

	global := runWith(GlobalStore)
	local := runWith(LocalStore)
	for d := range global {
		diff := global[d].Float64() - local[d].Float64()
		if diff < -1e-12 || diff > 1e-12 {
			t.Errorf("symbol %d: global=%v local=%v, want identical", d, global[d], local[d])
		}
	}
}
