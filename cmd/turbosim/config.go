package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ExperimentConfig is the resolved set of parameters a turbosim run
// needs: the constituent code, the interleaved sets, the channel, the
// turbo schedule, and the Monte Carlo stopping rule. It loads from YAML
// (-yaml) as the teacher's gateway.go loads its settings from flags;
// unlike flags it is also the shape persisted through serialize's
// textual format via -save/-load.
type ExperimentConfig struct {
	Tau        int    `yaml:"tau"`
	Iterations int    `yaml:"iterations"`
	Schedule   string `yaml:"schedule"` // "serial" or "parallel"
	Circular   bool   `yaml:"circular"`
	EndAtZero  bool   `yaml:"end_at_zero"`

	Nu               int    `yaml:"nu"`
	Feedback         uint   `yaml:"feedback"` // octal tap mask, width nu+1
	ParityGenerators []uint `yaml:"parity_generators"`

	NumSets         int    `yaml:"num_sets"`
	InterleaverSeed uint32 `yaml:"interleaver_seed"`

	CrossoverProb float64 `yaml:"crossover_prob"`

	Workers    int     `yaml:"workers"`
	MaxTrials  int     `yaml:"max_trials"`
	MinTrials  int     `yaml:"min_trials"`
	Confidence float64 `yaml:"confidence"`
	Accuracy   float64 `yaml:"accuracy"`
}

// defaultConfig mirrors the zero-noise round trip turbo/turbo_test.go
// exercises, scaled up to a block length and trial count worth
// sampling.
func defaultConfig() ExperimentConfig {
	return ExperimentConfig{
		Tau:              64,
		Iterations:       8,
		Schedule:         "serial",
		Nu:               2,
		Feedback:         0b111,
		ParityGenerators: []uint{0b101},
		NumSets:          2,
		InterleaverSeed:  1,
		CrossoverProb:    0.05,
		Workers:          4,
		MaxTrials:        2000,
		MinTrials:        100,
		Confidence:       0.95,
		Accuracy:         0.1,
	}
}

func loadYAML(path string) (ExperimentConfig, error) {
	cfg := defaultConfig()
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open experiment file: %w", err)
	}
	defer f.Close()
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parse experiment YAML: %w", err)
	}
	return cfg, nil
}
