package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/lattice-mc/lattice-mc/sim/persist"
	"github.com/lattice-mc/lattice-mc/sim/topology"
)

func bestIndexPath(folderSet bool) string {
	if bestIndex != "" {
		return bestIndex
	}
	folder := bestFolder
	if v := os.Getenv(envOutput); v != "" && !folderSet {
		folder = v
	}
	return filepath.Join(folder, persist.IndexFile)
}

// printBest writes the limit lowest-energy matching runs of the index at path to w.
func printBest(ctx context.Context, w io.Writer, path string, f persist.Filter, limit int) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("run index: %w", err)
	}
	index, err := persist.OpenIndex(path)
	if err != nil {
		return err
	}
	defer index.Close()

	var entries []persist.Entry
	if limit == 1 {
		e, err := index.Best(ctx, f)
		if err != nil {
			return err
		}
		entries = append(entries, e)
	} else {
		if entries, err = index.List(ctx, f, limit); err != nil {
			return err
		}
		if len(entries) == 0 {
			return persist.ErrNoRuns
		}
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "BEST\tFINAL\tLABEL\tATOMS\tT(K)\tITER\tREP\tELAPSED\tDIR")
	for _, e := range entries {
		fmt.Fprintf(tw, "%.3f\t%.3f\t%s\t%d\t%g\t%d\t%d\t%s\t%s\n",
			e.BestEnergy, e.FinalEnergy, e.Label, e.Atoms, e.Temperature, e.Iterations,
			e.Repetition, e.Elapsed.Round(time.Millisecond), e.Dir)
	}
	return tw.Flush()
}

// writeGrid generates an fcc lattice and saves it as a grid folder.
func writeGrid(fcc string, a float64, out string) error {
	if out == "" {
		return fmt.Errorf("no output folder: set --out")
	}
	nx, ny, nz, err := parseFCC(fcc)
	if err != nil {
		return err
	}
	topo, err := topology.NewFCC(nx, ny, nz, a)
	if err != nil {
		return err
	}
	return topology.Save(out, topo)
}
