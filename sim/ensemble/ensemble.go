// Package ensemble runs independent repetitions of one simulation in parallel. The
// repetitions share only the read-only topology and the start occupancy; each gets its
// own random stream derived from a master seed.
package ensemble

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/lattice-mc/lattice-mc/sim"
	"github.com/lattice-mc/lattice-mc/sim/record"
	"github.com/lattice-mc/lattice-mc/sim/topology"
)

// Config groups ensemble parameters.
type Config struct {
	Sim         sim.SimulatorConfig
	From, To    int   // repetitions From..To-1
	Seed        int64 // master seed; 0 draws one from OS entropy
	Parallelism int   // concurrent repetitions (0 = number of CPUs)
	TraceStride int64 // energy trace stride passed to each record.Collector (0 = off)
}

// Outcome is one finished (or aborted) repetition.
type Outcome struct {
	RunID      uuid.UUID
	Repetition int
	Seed       int64
	Result     *record.Result // nil if Err is set
	Collector  *record.Collector
	Elapsed    time.Duration
	Err        error
}

// Sink receives each outcome as it finishes. Calls are serialized.
type Sink func(Outcome) error

// Run executes repetitions cfg.From..cfg.To-1 and returns their outcomes ordered by
// repetition. Cancelling ctx stops new repetitions from starting; running ones finish.
// A repetition that hits an invariant violation is reported through its Outcome.Err.
// The returned error joins configuration and sink errors.
func Run(ctx context.Context, topo *topology.Topology, occ []sim.Occupancy, cfg Config, sink Sink) ([]Outcome, error) {
	if cfg.To <= cfg.From {
		return nil, fmt.Errorf("ensemble: empty repetition range %d-%d", cfg.From, cfg.To)
	}
	if err := cfg.Sim.Validate(); err != nil {
		return nil, err
	}
	key, err := NewSimulationKey(cfg.Seed)
	if err != nil {
		return nil, err
	}
	par := cfg.Parallelism
	if par <= 0 {
		par = runtime.NumCPU()
	}
	logrus.Infof("ensemble: repetitions %d-%d, %d in parallel, key %d", cfg.From, cfg.To-1, par, key)

	rngs := NewPartitionedRNG(key)
	results := make(chan Outcome)
	go func() {
		var wg sync.WaitGroup
		sem := make(chan struct{}, par)
	launch:
		for rep := cfg.From; rep < cfg.To; rep++ {
			select {
			case <-ctx.Done():
				break launch
			case sem <- struct{}{}:
			}
			name := SubsystemRepetition(rep)
			seed, rng := rngs.Seed(name), rngs.ForSubsystem(name)
			wg.Add(1)
			go func(rep int) {
				defer wg.Done()
				defer func() { <-sem }()
				results <- runOne(topo, occ, cfg, rep, seed, rng)
			}(rep)
		}
		wg.Wait()
		close(results)
	}()

	var outs []Outcome
	var errs []error
	for out := range results {
		if out.Err != nil {
			logrus.Errorf("ensemble: repetition %d failed after %s: %v", out.Repetition, out.Elapsed, out.Err)
		} else {
			logrus.Infof("ensemble: repetition %d done in %s, best %.3f eV", out.Repetition, out.Elapsed.Round(time.Millisecond), bestEnergy(out.Result))
		}
		if sink != nil {
			if err := sink(out); err != nil {
				errs = append(errs, fmt.Errorf("repetition %d: %w", out.Repetition, err))
			}
		}
		outs = append(outs, out)
	}
	sort.Slice(outs, func(i, j int) bool { return outs[i].Repetition < outs[j].Repetition })
	if err := ctx.Err(); err != nil && len(outs) < cfg.To-cfg.From {
		errs = append(errs, err)
	}
	return outs, errors.Join(errs...)
}

func runOne(topo *topology.Topology, occ []sim.Occupancy, cfg Config, rep int, seed int64, rng *rand.Rand) (out Outcome) {
	out = Outcome{RunID: uuid.New(), Repetition: rep, Seed: seed}
	start := time.Now()
	defer func() {
		out.Elapsed = time.Since(start)
		if r := recover(); r != nil {
			v, ok := r.(*sim.InvariantViolation)
			if !ok {
				panic(r)
			}
			out.Result = nil
			out.Err = fmt.Errorf("run aborted: %w", v)
		}
	}()

	simCfg := cfg.Sim
	simCfg.Label = fmt.Sprintf("rep %d", rep)
	out.Collector = record.NewCollector(cfg.TraceStride)
	s, err := sim.NewSimulator(topo, occ, simCfg, rng, out.Collector)
	if err != nil {
		out.Err = err
		return out
	}
	out.Result = s.Run()
	return out
}

func bestEnergy(r *record.Result) float64 {
	if r.Best != nil {
		return record.Milli(r.Best.Energy)
	}
	return record.Milli(r.FinalEnergy)
}

// Summary aggregates the successful repetitions of an ensemble.
type Summary struct {
	Runs           int
	Failed         int
	BestEnergy     float64 // eV, lowest over all repetitions
	BestRepetition int
	BestRunID      uuid.UUID
	MeanBest       float64
	StdDevBest     float64
	MeanFinal      float64
	MeanAcceptance float64
}

// Summarize computes cross-repetition statistics.
// Safe for empty input (returns zero-value fields).
func Summarize(outs []Outcome) *Summary {
	s := &Summary{}
	var bests, finals, acc []float64
	for _, o := range outs {
		if o.Err != nil || o.Result == nil {
			s.Failed++
			continue
		}
		s.Runs++
		b := bestEnergy(o.Result)
		if len(bests) == 0 || b < s.BestEnergy {
			s.BestEnergy, s.BestRepetition, s.BestRunID = b, o.Repetition, o.RunID
		}
		bests = append(bests, b)
		finals = append(finals, record.Milli(o.Result.FinalEnergy))
		acc = append(acc, record.Summarize(o.Result).AcceptanceRatio)
	}
	switch len(bests) {
	case 0:
		return s
	case 1:
		s.MeanBest = bests[0]
	default:
		s.MeanBest, s.StdDevBest = stat.MeanStdDev(bests, nil)
	}
	s.MeanFinal = stat.Mean(finals, nil)
	s.MeanAcceptance = stat.Mean(acc, nil)
	return s
}
