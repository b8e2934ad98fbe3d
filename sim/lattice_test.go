package sim

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattice-mc/lattice-mc/sim/internal/testutil"
)

func TestNewLattice_RejectsBadInput(t *testing.T) {
	topo := testutil.FCC(t, 2)
	_, err := NewLattice(topo, make([]Occupancy, 3), false)
	assert.Error(t, err)

	occ := make([]Occupancy, topo.NumSites())
	occ[0] = Occupancy(9)
	_, err = NewLattice(topo, occ, false)
	assert.Error(t, err)

	_, err = NewLattice(nil, nil, false)
	assert.Error(t, err)
}

func TestNewLattice_CachesFromScratch(t *testing.T) {
	// GIVEN a support plane and a cluster resting on it
	topo := testutil.FCC(t, 4)
	support := supportPlane(topo)
	metal := clusterAbove(topo, support, 12)
	l, err := NewLattice(topo, occupancyOf(topo, metal, support), true)
	require.NoError(t, err)
	l.SetTracking(true)

	// THEN CN counts metal neighbors only, for every site
	isSupport := testutil.Mask(topo.NumSites(), support)
	isMetal := testutil.Mask(topo.NumSites(), metal)
	for s := 0; s < topo.NumSites(); s++ {
		assert.Equal(t, testutil.CountIn(topo, isMetal, uint32(s)), l.CN(uint32(s)))
		assert.Equal(t, testutil.CountIn(topo, isSupport, uint32(s)) > 0, l.SupportAdjacent(uint32(s)))
	}
	assert.Equal(t, 12, l.NumAtoms())
	assert.Equal(t, 12, l.Histogram().Total())
	assert.Positive(t, l.HistogramAtSupport().Total())
}

func TestLattice_RandomMoves_CachesMatchScratch(t *testing.T) {
	topo := testutil.FCC(t, 4)
	support := supportPlane(topo)
	metal := clusterAbove(topo, support, 20)
	l, err := NewLattice(topo, occupancyOf(topo, metal, support), true)
	require.NoError(t, err)
	l.SetTracking(true)
	rng := rand.New(rand.NewSource(3))

	for step := 0; step < 500; step++ {
		// WHEN a random atom hops into a random empty neighbor
		a := l.Atoms()[rng.Intn(l.NumAtoms())]
		nn := topo.Neighbors(a)
		b := nn[rng.Intn(len(nn))]
		if l.At(b) != Empty {
			continue
		}
		l.Apply(a, b, int64(step))

		// THEN every cache equals its recount
		for s := 0; s < topo.NumSites(); s++ {
			site := uint32(s)
			require.Equal(t, l.ScratchCN(site), l.CN(site), "CN of %d after step %d", s, step)
			require.Equal(t, int(l.scratchGCN(site)), l.GCN(site), "GCN of %d after step %d", s, step)
		}
		all, atSupport := l.ScratchHistograms()
		require.Equal(t, all, l.Histogram())
		require.Equal(t, atSupport, l.HistogramAtSupport())
		for i, s := range l.Atoms() {
			require.Equal(t, Metal, l.At(s))
			require.Equal(t, int32(i), l.atomPos[s])
		}
	}
}

func TestLattice_ApplyThenReverse_RestoresState(t *testing.T) {
	topo := testutil.FCC(t, 3)
	metal := testutil.Compact(topo, 0, 6)
	l, err := NewLattice(topo, occupancyOf(topo, metal, nil), true)
	require.NoError(t, err)
	l.SetTracking(true)

	before := l.Occupancy()
	cn := append([]uint8(nil), l.cn...)
	gcn := append([]uint16(nil), l.gcn...)
	hist := l.Histogram()

	var a, b uint32
	found := false
	for _, s := range l.Atoms() {
		for _, n := range topo.Neighbors(s) {
			if l.At(n) == Empty {
				a, b, found = s, n, true
				break
			}
		}
		if found {
			break
		}
	}
	require.True(t, found)

	l.Apply(a, b, 0)
	l.Apply(b, a, 1)

	assert.Equal(t, before, l.Occupancy())
	assert.Equal(t, cn, l.cn)
	assert.Equal(t, gcn, l.gcn)
	assert.Equal(t, hist, l.Histogram())
	assert.ElementsMatch(t, metal, l.Atoms())
}

func TestLattice_Apply_RejectsIllegalEndpoints(t *testing.T) {
	topo := testutil.FCC(t, 3)
	metal := testutil.Compact(topo, 0, 2)
	l, err := NewLattice(topo, occupancyOf(topo, metal, nil), false)
	require.NoError(t, err)

	// Metal into metal.
	v := requirePanicsWithViolation(t, func() { l.Apply(metal[0], metal[1], 7) })
	assert.Equal(t, int64(7), v.Iteration)
	assert.Equal(t, []uint32{metal[0], metal[1]}, v.Sites)

	// Empty source.
	var empty uint32
	for _, n := range topo.Neighbors(metal[0]) {
		if l.At(n) == Empty {
			empty = n
			break
		}
	}
	requirePanicsWithViolation(t, func() { l.Apply(empty, metal[0], 8) })
}

func TestLattice_SetTracking_RebuildsHistogram(t *testing.T) {
	topo := testutil.FCC(t, 3)
	metal := testutil.Compact(topo, 0, 5)
	l, err := NewLattice(topo, occupancyOf(topo, metal, nil), false)
	require.NoError(t, err)

	// GIVEN histogram tracking off while moves happen
	assert.False(t, l.Tracking())
	assert.Zero(t, l.Histogram().Total())
	for _, n := range topo.Neighbors(metal[4]) {
		if l.At(n) == Empty {
			l.Apply(metal[4], n, 0)
			break
		}
	}

	// WHEN tracking is turned on
	l.SetTracking(true)

	// THEN the histogram reflects the current state
	all, _ := l.ScratchHistograms()
	assert.Equal(t, all, l.Histogram())
	assert.Equal(t, 5, l.Histogram().Total())
}
