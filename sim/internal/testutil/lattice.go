// Package testutil provides shared test infrastructure for the lattice simulator:
// small periodic lattices, compact site sets and tolerance assertions used across
// sim/ and its sub-packages.
package testutil

import (
	"math"
	"testing"

	"github.com/lattice-mc/lattice-mc/sim/topology"
)

// FCC returns a periodic n×n×n fcc topology with unit lattice constant.
func FCC(t testing.TB, n int) *topology.Topology {
	t.Helper()
	topo, err := topology.NewFCC(n, n, n, 1)
	if err != nil {
		t.Fatalf("building %d^3 fcc lattice: %v", n, err)
	}
	return topo
}

// Compact returns n sites grown breadth-first from seed, in visiting order.
func Compact(topo *topology.Topology, seed uint32, n int) []uint32 {
	out := make([]uint32, 0, n)
	seen := map[uint32]bool{seed: true}
	queue := []uint32{seed}
	for len(queue) > 0 && len(out) < n {
		s := queue[0]
		queue = queue[1:]
		out = append(out, s)
		for _, nb := range topo.Neighbors(s) {
			if !seen[nb] {
				seen[nb] = true
				queue = append(queue, nb)
			}
		}
	}
	return out
}

// Mask returns a per-site membership slice for sites.
func Mask(nsites int, sites []uint32) []bool {
	m := make([]bool, nsites)
	for _, s := range sites {
		m[s] = true
	}
	return m
}

// CountIn returns how many neighbors of s are in mask.
func CountIn(topo *topology.Topology, mask []bool, s uint32) int {
	c := 0
	for _, nb := range topo.Neighbors(s) {
		if mask[nb] {
			c++
		}
	}
	return c
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
