// Command turbosim runs a Monte Carlo bit/frame error rate estimate for
// a turbo-coded constituent system over a binary symmetric channel,
// following the teacher's gateway.go pattern for flag parsing and
// level-filtered logging (github.com/hashicorp/logutils).
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"

	"github.com/hashicorp/logutils"
	"github.com/kd4xpt/turbosim/monitor"
	"github.com/kd4xpt/turbosim/montecarlo"
	"github.com/kd4xpt/turbosim/randsrc"
)

var (
	isDebugArg *bool   = flag.Bool("debug", false, "Emit debug log messages")
	yamlArg    *string = flag.String("yaml", "", "Load experiment parameters from a YAML file")
	loadArg    *string = flag.String("load", "", "Load experiment parameters from a serialize'd document")
	saveArg    *string = flag.String("save", "", "Save the resolved experiment parameters to a serialize'd document")
	seedArg    *uint   = flag.Uint("seed", 1, "Random source seed")
	monitorArg *string = flag.String("monitor-addr", "", "If set, serve a live dashboard at this address (e.g. :8080)")
	helpArg    *bool   = flag.Bool("h", false, "Print arguments")
)

func main() {
	flag.Parse()
	if *helpArg {
		flag.Usage()
		return
	}
	setupLogging()

	cfg, err := resolveConfig()
	if err != nil {
		log.Fatalf("resolve experiment config: %v", err)
	}
	if *saveArg != "" {
		if err := saveConfig(*saveArg, cfg); err != nil {
			log.Fatalf("save experiment config: %v", err)
		}
	}

	if _, err := buildSystem(cfg); err != nil {
		log.Fatalf("build system: %v", err)
	}

	var hub *monitor.Hub
	if *monitorArg != "" {
		hub = monitor.NewHub(slog.Default())
		done := make(chan struct{})
		go hub.Run(done)
		go func() {
			log.Printf("[INFO] dashboard listening on %s", *monitorArg)
			if err := http.ListenAndServe(*monitorArg, hub.Handler()); err != nil {
				log.Printf("[ERROR] dashboard server: %v", err)
			}
		}()
	}

	mcCfg := montecarlo.Config{
		Workers:    cfg.Workers,
		MaxTrials:  cfg.MaxTrials,
		MinTrials:  cfg.MinTrials,
		Confidence: cfg.Confidence,
		Accuracy:   cfg.Accuracy,
	}
	if hub != nil {
		mcCfg.OnProgress = func(r montecarlo.Result) {
			hub.BroadcastProgress(r.Trials, r.TotalBits, r.BitErrors, r.FrameErrs, r.Converged)
		}
	}
	driver, err := montecarlo.New(mcCfg)
	if err != nil {
		log.Fatalf("build montecarlo driver: %v", err)
	}

	// Trial forbids sharing mutable state across goroutines, so each call
	// gets its own Source and its own system (decoder included) rather
	// than workers contending on one rng or one turbo.Decoder; trialSeq
	// keeps every trial's stream distinct from the base seed.
	var trialSeq atomic.Uint32
	result := driver.Run(func() (int, int, bool) {
		src := randsrc.New(uint32(*seedArg) + trialSeq.Add(1))
		sys, err := buildSystem(cfg)
		if err != nil {
			panic(err) // cfg already built successfully above
		}
		return runTrial(sys, src)
	})

	ber, _ := result.BER()
	fer, _ := result.FER()
	fmt.Printf("trials=%d ber=%.6g fer=%.6g converged=%v\n", result.Trials, ber, fer, result.Converged)
}

func resolveConfig() (ExperimentConfig, error) {
	switch {
	case *yamlArg != "":
		return loadYAML(*yamlArg)
	case *loadArg != "":
		return loadConfig(*loadArg)
	default:
		return defaultConfig(), nil
	}
}

func setupLogging() {
	minLogLevel := "INFO"
	if *isDebugArg {
		minLogLevel = "DEBUG"
	}
	filter := &logutils.LevelFilter{
		Levels:   []logutils.LogLevel{"DEBUG", "INFO", "ERROR"},
		MinLevel: logutils.LogLevel(minLogLevel),
		Writer:   os.Stderr,
	}
	log.SetOutput(filter)
	log.Print("[DEBUG] debug logging is on")
}
