package main

import (
	"fmt"
	"os"

	"github.com/kd4xpt/turbosim/serialize"
)

// toDocument folds an ExperimentConfig into serialize's textual
// <field>\n<value>\n form (§6's stable external interface).
func toDocument(cfg ExperimentConfig) *serialize.Document {
	doc := serialize.NewDocument()
	doc.SetInt("tau", cfg.Tau)
	doc.SetInt("iterations", cfg.Iterations)
	doc.Set("schedule", cfg.Schedule)
	doc.SetBool("circular", cfg.Circular)
	doc.SetBool("end_at_zero", cfg.EndAtZero)
	doc.SetInt("nu", cfg.Nu)
	doc.SetInt("feedback", int(cfg.Feedback))
	for i, g := range cfg.ParityGenerators {
		doc.SetInt(fmt.Sprintf("parity_generator_%d", i), int(g))
	}
	doc.SetInt("num_parity_generators", len(cfg.ParityGenerators))
	doc.SetInt("num_sets", cfg.NumSets)
	doc.SetInt("interleaver_seed", int(cfg.InterleaverSeed))
	doc.SetFloat64("crossover_prob", cfg.CrossoverProb)
	doc.SetInt("workers", cfg.Workers)
	doc.SetInt("max_trials", cfg.MaxTrials)
	doc.SetInt("min_trials", cfg.MinTrials)
	doc.SetFloat64("confidence", cfg.Confidence)
	doc.SetFloat64("accuracy", cfg.Accuracy)
	return doc
}

// fromDocument is toDocument's inverse.
func fromDocument(doc *serialize.Document) (ExperimentConfig, error) {
	var cfg ExperimentConfig
	var err error
	get := func(field string) int {
		v, e := doc.Int(field)
		if e != nil {
			err = e
		}
		return v
	}
	getF := func(field string) float64 {
		v, e := doc.Float64(field)
		if e != nil {
			err = e
		}
		return v
	}
	cfg.Tau = get("tau")
	cfg.Iterations = get("iterations")
	cfg.Schedule, _ = doc.Get("schedule")
	cfg.Circular, err = doc.Bool("circular")
	cfg.EndAtZero, err = doc.Bool("end_at_zero")
	cfg.Nu = get("nu")
	cfg.Feedback = uint(get("feedback"))
	n := get("num_parity_generators")
	for i := 0; i < n; i++ {
		cfg.ParityGenerators = append(cfg.ParityGenerators, uint(get(fmt.Sprintf("parity_generator_%d", i))))
	}
	cfg.NumSets = get("num_sets")
	cfg.InterleaverSeed = uint32(get("interleaver_seed"))
	cfg.CrossoverProb = getF("crossover_prob")
	cfg.Workers = get("workers")
	cfg.MaxTrials = get("max_trials")
	cfg.MinTrials = get("min_trials")
	cfg.Confidence = getF("confidence")
	cfg.Accuracy = getF("accuracy")
	if err != nil {
		return cfg, fmt.Errorf("decode persisted experiment: %w", err)
	}
	return cfg, nil
}

func saveConfig(path string, cfg ExperimentConfig) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return toDocument(cfg).Marshal(f)
}

func loadConfig(path string) (ExperimentConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return ExperimentConfig{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	doc, err := serialize.Unmarshal(f)
	if err != nil {
		return ExperimentConfig{}, fmt.Errorf("unmarshal %s: %w", path, err)
	}
	return fromDocument(doc)
}
