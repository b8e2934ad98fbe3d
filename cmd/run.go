package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/lattice-mc/lattice-mc/sim"
	"github.com/lattice-mc/lattice-mc/sim/ensemble"
	"github.com/lattice-mc/lattice-mc/sim/persist"
	"github.com/lattice-mc/lattice-mc/sim/structure"
	"github.com/lattice-mc/lattice-mc/sim/topology"
)

// loadTopology builds the lattice from --fcc or reads it from the grid folder.
func (c RunConfig) loadTopology() (*topology.Topology, error) {
	switch {
	case c.FCC != "" && c.GridFolder != "":
		return nil, fmt.Errorf("--fcc and --grid-folder are mutually exclusive")
	case c.FCC != "":
		nx, ny, nz, err := parseFCC(c.FCC)
		if err != nil {
			return nil, err
		}
		logrus.Infof("generating %dx%dx%d fcc lattice, a=%g", nx, ny, nz, c.LatticeConstant)
		return topology.NewFCC(nx, ny, nz, c.LatticeConstant)
	case c.GridFolder != "":
		return topology.Load(c.GridFolder)
	default:
		return nil, fmt.Errorf("no lattice: set --grid-folder, $%s or --fcc", envGridFolder)
	}
}

// startStructure returns the start occupancy and the element names.
func (c RunConfig) startStructure(topo *topology.Topology) ([]sim.Occupancy, persist.Species, error) {
	var species persist.Species
	var normal *[3]int
	if c.Support != "" {
		el, n, err := parseSupport(c.Support)
		if err != nil {
			return nil, species, err
		}
		species.Support, normal = el, n
	}

	switch {
	case c.StartCluster != "" && c.Atoms != "":
		return nil, species, fmt.Errorf("--start-cluster and --atoms are mutually exclusive")
	case c.StartCluster != "":
		f, err := os.Open(c.StartCluster)
		if err != nil {
			return nil, species, fmt.Errorf("reading start cluster: %w", err)
		}
		defer f.Close()
		atoms, _, err := structure.ReadXYZ(f)
		if err != nil {
			return nil, species, fmt.Errorf("parsing %s: %w", c.StartCluster, err)
		}
		if normal != nil {
			logrus.Warnf("support vector ignored for a start cluster; only the support element is used")
		}
		occ, metal, err := structure.FromAtoms(topo, atoms, species.Support)
		if err != nil {
			return nil, species, err
		}
		species.Metal = metal
		return occ, species, nil
	case c.Atoms != "":
		el, n, err := parseAtoms(c.Atoms)
		if err != nil {
			return nil, species, err
		}
		species.Metal = el
		occ, err := structure.Build(topo, n, normal)
		return occ, species, err
	default:
		return nil, species, fmt.Errorf("no start structure: set --start-cluster or --atoms")
	}
}

func countMetal(occ []sim.Occupancy) int {
	n := 0
	for _, o := range occ {
		if o == sim.Metal {
			n++
		}
	}
	return n
}

// runSimulations runs every configured repetition, writing each one's folder and index
// row as it finishes.
func runSimulations(ctx context.Context, c RunConfig) (*ensemble.Summary, error) {
	simCfg, err := c.simConfig()
	if err != nil {
		return nil, err
	}
	from, to, err := parseRepetition(c.Repetition)
	if err != nil {
		return nil, err
	}
	topo, err := c.loadTopology()
	if err != nil {
		return nil, err
	}
	occ, species, err := c.startStructure(topo)
	if err != nil {
		return nil, err
	}
	natoms := countMetal(occ)

	if err := os.MkdirAll(c.Folder, 0o755); err != nil {
		return nil, err
	}
	index, err := persist.OpenIndex(c.indexPath(persist.IndexFile))
	if err != nil {
		return nil, fmt.Errorf("opening run index: %w", err)
	}
	defer index.Close()

	label := fmt.Sprintf("%s %s", simCfg.Energy.Kind, species.Metal)
	anneal := simCfg.Anneal
	sink := func(out ensemble.Outcome) error {
		if out.Err != nil {
			return nil
		}
		dir := filepath.Join(c.Folder, persist.RunDirName(anneal.Temperature, anneal.StartTemperature, anneal.Iterations, natoms, out.Repetition))
		exp, err := persist.WriteRun(dir, persist.Run{
			RunID:      out.RunID,
			Repetition: out.Repetition,
			Seed:       out.Seed,
			Result:     out.Result,
			Snapshots:  out.Collector.Snapshots,
			Trace:      out.Collector.Trace,
			Topology:   topo,
			Start:      occ,
			Species:    species,
		})
		if err != nil {
			return err
		}
		logrus.Infof("repetition %d written to %s", out.Repetition, dir)
		return index.Record(ctx, persist.Entry{
			RunID:       exp.RunID,
			Dir:         dir,
			Label:       label,
			Temperature: anneal.Temperature,
			Iterations:  anneal.Iterations,
			Atoms:       natoms,
			Repetition:  out.Repetition,
			Seed:        out.Seed,
			Accepted:    exp.Accepted,
			StartEnergy: exp.Start.StartEnergy,
			FinalEnergy: exp.FinalEnergy,
			BestEnergy:  exp.BestEnergy(),
			Elapsed:     out.Elapsed,
		})
	}

	outs, err := ensemble.Run(ctx, topo, occ, ensemble.Config{
		Sim:         simCfg,
		From:        from,
		To:          to,
		Seed:        c.Seed,
		Parallelism: c.Parallelism,
		TraceStride: c.TraceStride,
	}, sink)
	summary := ensemble.Summarize(outs)
	if err != nil {
		return summary, err
	}
	if summary.Failed > 0 {
		return summary, fmt.Errorf("%d of %d repetitions failed", summary.Failed, len(outs))
	}
	return summary, nil
}

func printSummary(s *ensemble.Summary) {
	fmt.Println("=== Simulation Summary ===")
	fmt.Printf("Repetitions      : %d (%d failed)\n", s.Runs, s.Failed)
	if s.Runs == 0 {
		return
	}
	fmt.Printf("Lowest energy    : %.3f (repetition %d, run %s)\n", s.BestEnergy, s.BestRepetition, s.BestRunID)
	fmt.Printf("Mean lowest      : %.3f ± %.3f\n", s.MeanBest, s.StdDevBest)
	fmt.Printf("Mean final       : %.3f\n", s.MeanFinal)
	fmt.Printf("Mean acceptance  : %.4f\n", s.MeanAcceptance)
}
