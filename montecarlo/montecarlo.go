// Package montecarlo implements the Monte Carlo sampling driver (§5,
// "montecarlo.Driver runs N independent trial workers... aggregating into
// a lock-protected accumulator"). It runs independent decoder trials
// across worker goroutines with a sync.WaitGroup, in the style of
// m17/modem.go's explicit sync.Mutex-guarded shared state, and stops
// early once the running bit/frame error estimate has converged to a
// target accuracy (grounded on the original source's montecarlo.h
// confidence/accuracy stopping rule: min_samples, set_confidence,
// set_accuracy).
package montecarlo

import (
	"errors"
	"fmt"
	"math"
	"sync"
)

// Trial runs one independent encode/corrupt/decode cycle and reports how
// many bits were in error, how many bits were sent, and whether the
// frame as a whole was in error. Implementations must not share mutable
// state between calls made from different goroutines (§5: "no shared
// mutation").
type Trial func() (bitErrors, totalBits int, frameErr bool)

// Config parameterises a Driver.
type Config struct {
	// Workers is the number of goroutines running trials concurrently.
	Workers int
	// MaxTrials bounds the total number of trials run, regardless of
	// convergence.
	MaxTrials int
	// MinTrials is the minimum number of trials before the accuracy
	// stopping rule is consulted (the original's min_samples).
	MinTrials int
	// Confidence is the two-sided confidence level for the stopping
	// rule's interval, e.g. 0.95 for 95%.
	Confidence float64
	// Accuracy is the target relative half-width of that interval
	// around the running bit-error-rate estimate, e.g. 0.1 for ±10%.
	Accuracy float64
	// OnProgress, if set, is called with a snapshot of the running
	// accumulator after every completed trial (e.g. to feed
	// monitor.Hub.BroadcastProgress). Called outside the accumulator
	// lock; must not block for long.
	OnProgress func(Result)
}

func (c Config) validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("montecarlo: workers must be >= 1, got %d", c.Workers)
	}
	if c.MaxTrials < 1 {
		return fmt.Errorf("montecarlo: maxTrials must be >= 1, got %d", c.MaxTrials)
	}
	if c.MinTrials < 0 || c.MinTrials > c.MaxTrials {
		return fmt.Errorf("montecarlo: minTrials must lie in [0,maxTrials]")
	}
	if c.Confidence <= 0 || c.Confidence >= 1 {
		return fmt.Errorf("montecarlo: confidence must lie in (0,1), got %v", c.Confidence)
	}
	if c.Accuracy <= 0 {
		return fmt.Errorf("montecarlo: accuracy must be > 0, got %v", c.Accuracy)
	}
	return nil
}

// ErrNoTrials is returned by Result's rate computations when no bits
// were sampled at all.
var ErrNoTrials = errors.New("montecarlo: no trials completed")

// Result is the accumulated outcome of a Driver run.
type Result struct {
	Trials     int
	BitErrors  int
	TotalBits  int
	FrameErrs  int
	Converged  bool // true if the accuracy stopping rule fired before MaxTrials
}

// BER is the running bit error rate.
func (r Result) BER() (float64, error) {
	if r.TotalBits == 0 {
		return 0, ErrNoTrials
	}
	return float64(r.BitErrors) / float64(r.TotalBits), nil
}

// FER is the running frame error rate.
func (r Result) FER() (float64, error) {
	if r.Trials == 0 {
		return 0, ErrNoTrials
	}
	return float64(r.FrameErrs) / float64(r.Trials), nil
}

// Driver runs a Trial repeatedly across Config.Workers goroutines,
// accumulating results under a single mutex-protected counter.
type Driver struct {
	cfg Config

	mu  sync.Mutex
	acc Result
}

// New builds a Driver for the given configuration.
func New(cfg Config) (*Driver, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Driver{cfg: cfg}, nil
}

// zTable covers the confidence levels this driver's callers are
// expected to use; z is the two-sided standard normal quantile.
var zTable = map[float64]float64{
	0.80: 1.2816,
	0.90: 1.6449,
	0.95: 1.9600,
	0.98: 2.3263,
	0.99: 2.5758,
}

func zScore(confidence float64) float64 {
	if z, ok := zTable[confidence]; ok {
		return z
	}
	// Fallback: interpolate from the 95% point rather than fail the
	// run over an unlisted confidence level.
	return 1.9600 * confidence / 0.95
}

// converged reports whether the running BER estimate's relative
// half-width confidence interval is within cfg.Accuracy, given at least
// cfg.MinTrials samples (grounded on montecarlo.h's min_samples +
// set_accuracy pairing).
func (d *Driver) converged(acc Result) bool {
	if acc.Trials < d.cfg.MinTrials {
		return false
	}
	p, err := acc.BER()
	if err != nil || p <= 0 {
		return false
	}
	n := float64(acc.TotalBits)
	z := zScore(d.cfg.Confidence)
	halfWidth := z * math.Sqrt(p*(1-p)/n)
	return halfWidth/p <= d.cfg.Accuracy
}

// Run drives the configured number of workers, each pulling trials from
// a shared counter until MaxTrials is reached or the accuracy stopping
// rule fires; results from every goroutine are folded into one Result
// under d.mu (§5's lock-protected accumulator).
func (d *Driver) Run(trial Trial) Result {
	var (
		wg       sync.WaitGroup
		stop     = make(chan struct{})
		stopOnce sync.Once
		stopped  bool
		next     int
	)
	closeStop := func() { stopOnce.Do(func() { close(stop) }) }
	d.mu.Lock()
	d.acc = Result{}
	d.mu.Unlock()

	claim := func() (int, bool) {
		d.mu.Lock()
		defer d.mu.Unlock()
		if stopped || next >= d.cfg.MaxTrials {
			return 0, false
		}
		next++
		return next, true
	}

	for w := 0; w < d.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				if _, ok := claim(); !ok {
					return
				}
				bitErrors, totalBits, frameErr := trial()

				d.mu.Lock()
				d.acc.Trials++
				d.acc.BitErrors += bitErrors
				d.acc.TotalBits += totalBits
				if frameErr {
					d.acc.FrameErrs++
				}
				converged := d.converged(d.acc)
				if converged {
					d.acc.Converged = true
					stopped = true
				}
				snapshot := d.acc
				d.mu.Unlock()

				if d.cfg.OnProgress != nil {
					d.cfg.OnProgress(snapshot)
				}
				if converged {
					closeStop()
					return
				}
			}
		}()
	}
	wg.Wait()

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.acc
}
