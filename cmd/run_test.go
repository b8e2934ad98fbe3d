package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattice-mc/lattice-mc/sim"
	"github.com/lattice-mc/lattice-mc/sim/persist"
	"github.com/lattice-mc/lattice-mc/sim/structure"
	"github.com/lattice-mc/lattice-mc/sim/topology"
)

func smallRun(t *testing.T) RunConfig {
	t.Helper()
	c := defaultRunConfig()
	c.Iterations = "2000"
	c.FCC = "4,4,4"
	c.Atoms = "Pt,13"
	c.ELinearCN = `{"CN_energy":[-0.33,3.96]}`
	c.Sections = 10
	c.SampleEvery = 10
	c.Repetition = "0-2"
	c.Seed = 7
	c.Parallelism = 2
	c.Folder = t.TempDir()
	return c
}

func TestRunSimulations_WritesRunsAndIndex(t *testing.T) {
	// GIVEN two repetitions of 13 Pt atoms on a generated lattice
	c := smallRun(t)

	// WHEN the simulations run
	summary, err := runSimulations(context.Background(), c)
	require.NoError(t, err)

	// THEN both repetitions succeed and write their folders
	assert.Equal(t, 2, summary.Runs)
	assert.Equal(t, 0, summary.Failed)
	for rep := 0; rep < 2; rep++ {
		dir := filepath.Join(c.Folder, persist.RunDirName(300, nil, 2000, 13, rep))
		exp, err := persist.ReadExpFile(filepath.Join(dir, persist.ResultFile))
		require.NoError(t, err)
		assert.Equal(t, rep, exp.Repetition)
		assert.Equal(t, 13, exp.NumberAllAtoms)
		_, err = os.Stat(filepath.Join(dir, persist.LowestEnergyFile))
		assert.NoError(t, err)
	}

	// AND the index reports the lowest-energy run
	var buf bytes.Buffer
	require.NoError(t, printBest(context.Background(), &buf, c.indexPath(persist.IndexFile), persist.Filter{Label: "linear-cn Pt"}, 5))
	out := buf.String()
	assert.Contains(t, out, "BEST")
	assert.Contains(t, out, "linear-cn Pt")
	assert.Equal(t, 3, bytes.Count(buf.Bytes(), []byte("\n")))

	// AND a limit of one reports only the ensemble's best run
	buf.Reset()
	require.NoError(t, printBest(context.Background(), &buf, c.indexPath(persist.IndexFile), persist.Filter{Atoms: 13}, 1))
	assert.Equal(t, 2, bytes.Count(buf.Bytes(), []byte("\n")))
	assert.Contains(t, buf.String(), fmt.Sprintf("%.3f", summary.BestEnergy))

	err = printBest(context.Background(), &buf, c.indexPath(persist.IndexFile), persist.Filter{Atoms: 55}, 1)
	assert.ErrorIs(t, err, persist.ErrNoRuns)
}

func TestRunSimulations_ConfigErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *RunConfig)
	}{
		{"no lattice", func(c *RunConfig) { c.FCC = "" }},
		{"both lattices", func(c *RunConfig) { c.GridFolder = "grid" }},
		{"no start structure", func(c *RunConfig) { c.Atoms = "" }},
		{"both start structures", func(c *RunConfig) { c.StartCluster = "start.xyz" }},
		{"bad repetition", func(c *RunConfig) { c.Repetition = "2-1" }},
		{"too many atoms", func(c *RunConfig) { c.Atoms = "Pt,400" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := smallRun(t)
			tt.mutate(&c)
			_, err := runSimulations(context.Background(), c)
			assert.Error(t, err)
		})
	}
}

func TestStartStructure_FromXYZWithSupport(t *testing.T) {
	// GIVEN an xyz file of a supported cluster on the same lattice
	topo, err := topology.NewFCC(4, 4, 4, 3.92)
	require.NoError(t, err)
	normal := [3]int{1, 1, 1}
	occ, err := structure.Build(topo, 19, &normal)
	require.NoError(t, err)
	var metal []uint32
	for s, o := range occ {
		if o == sim.Metal {
			metal = append(metal, uint32(s))
		}
	}
	path := filepath.Join(t.TempDir(), "start.xyz")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, structure.WriteXYZ(f, structure.ToAtoms(topo, metal, occ, "Pt", "Al"), topo.Cell()))
	require.NoError(t, f.Close())

	// WHEN it is used as the start cluster
	c := defaultRunConfig()
	c.StartCluster = path
	c.Support = "Al"
	got, species, err := c.startStructure(topo)

	// THEN the occupancy and the element names are recovered
	require.NoError(t, err)
	assert.Equal(t, occ, got)
	assert.Equal(t, persist.Species{Metal: "Pt", Support: "Al"}, species)
}

func TestWriteGrid_LoadsBack(t *testing.T) {
	out := filepath.Join(t.TempDir(), "grid")
	require.NoError(t, writeGrid("3,3,3", 3.92, out))

	topo, err := topology.Load(out)
	require.NoError(t, err)
	assert.Equal(t, 4*27, topo.NumSites())
	assert.NotNil(t, topo.Positions())

	assert.Error(t, writeGrid("3,3,3", 3.92, ""))
	assert.Error(t, writeGrid("3,3", 3.92, out))
}

func TestPrintBest_MissingIndex(t *testing.T) {
	var buf bytes.Buffer
	err := printBest(context.Background(), &buf, filepath.Join(t.TempDir(), persist.IndexFile), persist.Filter{}, 1)
	assert.Error(t, err)
}
