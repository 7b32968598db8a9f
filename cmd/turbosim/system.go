package main

import (
	"fmt"

	"github.com/kd4xpt/turbosim/channel"
	"github.com/kd4xpt/turbosim/fsm"
	"github.com/kd4xpt/turbosim/interleaver"
	"github.com/kd4xpt/turbosim/numeric"
	"github.com/kd4xpt/turbosim/turbo"
)

// system bundles the pieces one Monte Carlo trial needs together.
type system struct {
	cfg ExperimentConfig
	dec *turbo.Decoder[numeric.Float64]
	ch  *channel.BSC
}

func buildSystem(cfg ExperimentConfig) (*system, error) {
	encoder, err := fsm.NewRSC(cfg.Nu, cfg.Feedback, cfg.ParityGenerators)
	if err != nil {
		return nil, fmt.Errorf("build constituent code: %w", err)
	}

	if cfg.NumSets < 1 {
		return nil, fmt.Errorf("num_sets must be >= 1, got %d", cfg.NumSets)
	}
	inters := make([]interleaver.Interleaver, cfg.NumSets)
	inters[0] = interleaver.NewIdentity(cfg.Tau)
	for i := 1; i < cfg.NumSets; i++ {
		inters[i] = interleaver.NewRandom(cfg.Tau, cfg.InterleaverSeed+uint32(i))
	}

	var schedule turbo.Schedule
	switch cfg.Schedule {
	case "", "serial":
		schedule = turbo.Serial
	case "parallel":
		schedule = turbo.Parallel
	default:
		return nil, fmt.Errorf("unknown schedule %q, want serial or parallel", cfg.Schedule)
	}

	dec, err := turbo.New[numeric.Float64](encoder, inters, turbo.Config{
		Tau:        cfg.Tau,
		EndAtZero:  cfg.EndAtZero,
		Circular:   cfg.Circular,
		Schedule:   schedule,
		Iterations: cfg.Iterations,
	})
	if err != nil {
		return nil, fmt.Errorf("build turbo decoder: %w", err)
	}

	ch, err := channel.NewBSC(cfg.CrossoverProb)
	if err != nil {
		return nil, fmt.Errorf("build channel: %w", err)
	}

	return &system{cfg: cfg, dec: dec, ch: ch}, nil
}
