package topology

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFCC_NeighborsAreDistinctAndSymmetric(t *testing.T) {
	for _, n := range []int{2, 3, 4} {
		topo, err := NewFCC(n, n, n, 3.92)
		require.NoError(t, err)
		assert.Equal(t, n*n*n*4, topo.NumSites())
		for s := 0; s < topo.NumSites(); s++ {
			for _, o := range topo.Neighbors(uint32(s)) {
				assert.True(t, topo.Adjacent(o, uint32(s)), "n=%d: %d -> %d not symmetric", n, s, o)
			}
		}
	}
}

func TestNewFCC_RejectsTinyLattice(t *testing.T) {
	_, err := NewFCC(1, 3, 3, 1)
	assert.Error(t, err)
	_, err = NewFCC(3, 3, 3, 0)
	assert.Error(t, err)
}

func TestNewFCC_NeighborDistanceIsNearestNeighbor(t *testing.T) {
	// GIVEN a 3x3x3 fcc lattice with a=2 (nearest-neighbor distance sqrt(2))
	topo, err := NewFCC(3, 3, 3, 2)
	require.NoError(t, err)
	pos := topo.Positions()
	cell := topo.Cell()

	// THEN every neighbor sits at minimum-image distance sqrt(2)
	for s := 0; s < topo.NumSites(); s++ {
		for _, o := range topo.Neighbors(uint32(s)) {
			d2 := 0.0
			for d := 0; d < 3; d++ {
				dx := pos[s][d] - pos[o][d]
				for dx > cell[d]/2 {
					dx -= cell[d]
				}
				for dx < -cell[d]/2 {
					dx += cell[d]
				}
				d2 += dx * dx
			}
			assert.InDelta(t, 2.0, d2, 1e-9)
		}
	}
}

func TestSplit_PartitionsBothShells(t *testing.T) {
	topo, err := NewFCC(3, 3, 3, 1)
	require.NoError(t, err)

	for _, a := range []uint32{0, 17, 50} {
		for _, b := range topo.Neighbors(a) {
			sp, ok := topo.Split(a, b)
			require.True(t, ok)

			// BDD: fcc first shells of adjacent sites share exactly 4 sites
			assert.Len(t, sp.Shared, 4)
			assert.Len(t, sp.FromOnly, 7)
			assert.Len(t, sp.ToOnly, 7)

			for _, o := range sp.FromOnly {
				assert.True(t, topo.Adjacent(a, o))
				assert.False(t, topo.Adjacent(b, o))
				assert.NotEqual(t, b, o)
			}
			for _, o := range sp.ToOnly {
				assert.True(t, topo.Adjacent(b, o))
				assert.False(t, topo.Adjacent(a, o))
				assert.NotEqual(t, a, o)
			}
			for _, o := range sp.Shared {
				assert.True(t, topo.Adjacent(a, o) && topo.Adjacent(b, o))
			}

			// Reverse orientation swaps the exclusive parts.
			rev, ok := topo.Split(b, a)
			require.True(t, ok)
			assert.Equal(t, sp.FromOnly, rev.ToOnly)
			assert.Equal(t, sp.ToOnly, rev.FromOnly)
		}
	}
}

func TestSplit_NonAdjacentPairMissing(t *testing.T) {
	topo, err := NewFCC(3, 3, 3, 1)
	require.NoError(t, err)
	var far uint32
	for s := uint32(1); s < uint32(topo.NumSites()); s++ {
		if !topo.Adjacent(0, s) {
			far = s
			break
		}
	}
	_, ok := topo.Split(0, far)
	assert.False(t, ok)
}

func TestNew_RejectsBadTables(t *testing.T) {
	good, err := NewFCC(2, 2, 2, 1)
	require.NoError(t, err)
	base := make([][Degree]uint32, good.NumSites())
	for s := range base {
		base[s] = *good.Neighbors(uint32(s))
	}

	tests := []struct {
		name   string
		mutate func(nn [][Degree]uint32)
	}{
		{"self reference", func(nn [][Degree]uint32) { nn[0][0] = 0 }},
		{"out of range", func(nn [][Degree]uint32) { nn[0][0] = 10_000 }},
		{"duplicate", func(nn [][Degree]uint32) { nn[0][1] = nn[0][0] }},
		{"asymmetric", func(nn [][Degree]uint32) {
			for s := uint32(1); ; s++ {
				if !contains(&nn[0], s) {
					nn[0][0] = s
					return
				}
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nn := make([][Degree]uint32, len(base))
			copy(nn, base)
			tt.mutate(nn)
			_, err := New(nn)
			assert.Error(t, err)
		})
	}
}

func TestParseNeighbors(t *testing.T) {
	t.Run("rejects short line", func(t *testing.T) {
		_, err := ParseNeighbors(strings.NewReader("0 1 2 3\n"))
		assert.Error(t, err)
	})
	t.Run("rejects gap in site ids", func(t *testing.T) {
		line := "5 0 1 2 3 4 6 7 8 9 10 11 12\n"
		_, err := ParseNeighbors(strings.NewReader(line))
		assert.Error(t, err)
	})
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	// GIVEN a generated lattice written as a grid folder
	topo, err := NewFCC(3, 2, 2, 3.92)
	require.NoError(t, err)
	dir := t.TempDir()
	require.NoError(t, Save(dir, topo))

	// WHEN it is loaded back
	loaded, err := Load(dir)
	require.NoError(t, err)

	// THEN neighbors, positions and cell survive
	require.Equal(t, topo.NumSites(), loaded.NumSites())
	for s := 0; s < topo.NumSites(); s++ {
		assert.Equal(t, *topo.Neighbors(uint32(s)), *loaded.Neighbors(uint32(s)))
		for d := 0; d < 3; d++ {
			assert.InDelta(t, topo.Positions()[s][d], loaded.Positions()[s][d], 1e-6)
		}
	}
	c1, c2 := topo.Cell(), loaded.Cell()
	assert.InDeltaSlice(t, c1[:], c2[:], 1e-6)
}
