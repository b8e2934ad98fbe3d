package sim

import (
	"math/rand"
	"testing"

	"github.com/lattice-mc/lattice-mc/sim/internal/testutil"
	"github.com/lattice-mc/lattice-mc/sim/topology"
)

// occupancyOf returns an occupancy slice with the given metal and support sites.
func occupancyOf(topo *topology.Topology, metal, support []uint32) []Occupancy {
	occ := make([]Occupancy, topo.NumSites())
	for _, s := range metal {
		occ[s] = Metal
	}
	for _, s := range support {
		occ[s] = Support
	}
	return occ
}

// supportPlane returns every site whose first coordinate is zero on an fcc topology.
func supportPlane(topo *topology.Topology) []uint32 {
	var out []uint32
	for s, p := range topo.Positions() {
		if p[0] == 0 {
			out = append(out, uint32(s))
		}
	}
	return out
}

// clusterAbove grows n metal sites from the first non-support site adjacent to support.
func clusterAbove(topo *topology.Topology, support []uint32, n int) []uint32 {
	isSupport := testutil.Mask(topo.NumSites(), support)
	var seed uint32
	for s := 0; s < topo.NumSites(); s++ {
		if !isSupport[s] && testutil.CountIn(topo, isSupport, uint32(s)) > 0 {
			seed = uint32(s)
			break
		}
	}
	var out []uint32
	for _, s := range testutil.Compact(topo, seed, topo.NumSites()) {
		if !isSupport[s] {
			out = append(out, s)
		}
		if len(out) == n {
			break
		}
	}
	return out
}

func testTables(rng *rand.Rand, n int) (table, ads []float64) {
	table = make([]float64, n)
	ads = make([]float64, n)
	for i := range table {
		table[i] = -float64(i)*0.3 + rng.Float64()
		ads[i] = rng.Float64() - 0.5
	}
	return table, ads
}

// allModels returns one model of every kind with non-trivial support terms.
func allModels(t *testing.T) map[string]EnergyModel {
	t.Helper()
	rng := rand.New(rand.NewSource(7))
	lcn, err := NewLinearCN(-0.33, 3.96, -0.25)
	if err != nil {
		t.Fatal(err)
	}
	ct, ca := testTables(rng, MaxCN+1)
	tcn, err := NewTableCN(ct, ca, -0.1)
	if err != nil {
		t.Fatal(err)
	}
	lgcn, err := NewLinearGCN(-0.05, 1.2, 0.4)
	if err != nil {
		t.Fatal(err)
	}
	gt, ga := testTables(rng, MaxGCN+1)
	tgcn, err := NewTableGCN(gt, ga, -0.3)
	if err != nil {
		t.Fatal(err)
	}
	return map[string]EnergyModel{
		"linear-cn": lcn, "table-cn": tcn, "linear-gcn": lgcn, "table-gcn": tgcn,
	}
}

func testConfig(model EnergyModel, niter int64, temperature float64) SimulatorConfig {
	return SimulatorConfig{
		Anneal: AnnealConfig{Iterations: niter, Temperature: temperature},
		Energy: model,
		Record: RecordConfig{Sections: 10, SampleEvery: 1},
	}
}

// requirePanicsWithViolation asserts that f panics with an *InvariantViolation and returns it.
func requirePanicsWithViolation(t *testing.T, f func()) (v *InvariantViolation) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic, got none")
		}
		var ok bool
		if v, ok = r.(*InvariantViolation); !ok {
			t.Fatalf("expected *InvariantViolation, got %T: %v", r, r)
		}
	}()
	f()
	return nil
}
