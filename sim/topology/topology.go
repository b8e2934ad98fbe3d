// Package topology provides the immutable lattice neighbor tables consumed by the
// simulation core. A Topology is built once and shared read-only between any number
// of concurrently running simulations.
package topology

import (
	"fmt"
)

// Degree is the size of every site's first coordination shell (close-packed lattice).
const Degree = 12

// Split partitions the neighbors affected by a move between two adjacent sites.
// FromOnly and ToOnly exclude the two moving sites themselves.
type Split struct {
	FromOnly []uint32 // N(from) \ (N(to) ∪ {to})
	ToOnly   []uint32 // N(to) \ (N(from) ∪ {from})
	Shared   []uint32 // N(from) ∩ N(to)
}

// Topology is the read-only neighbor table of a lattice plus the per-adjacent-pair
// no-intersect decomposition.
//
// Thread-safety: safe for concurrent reads after construction. Never mutated.
type Topology struct {
	neighbors [][Degree]uint32
	positions [][3]float64 // optional, nil if unknown
	cell      [3]float64

	// pairs holds the decomposition for (min, max) keyed by packPair.
	// Orientation is relative to min → max.
	pairs map[uint64]Split
}

// New validates a neighbor table and builds the no-intersect decomposition for every
// adjacent pair. Neighbor lists must be in range, free of self-references and
// duplicates, and symmetric.
func New(neighbors [][Degree]uint32) (*Topology, error) {
	n := len(neighbors)
	if n == 0 {
		return nil, fmt.Errorf("topology: empty neighbor table")
	}
	for s, nn := range neighbors {
		for i, o := range nn {
			if int(o) >= n {
				return nil, fmt.Errorf("topology: site %d neighbor %d out of range [0,%d)", s, o, n)
			}
			if int(o) == s {
				return nil, fmt.Errorf("topology: site %d lists itself as neighbor", s)
			}
			for _, p := range nn[:i] {
				if p == o {
					return nil, fmt.Errorf("topology: site %d lists neighbor %d twice", s, o)
				}
			}
			if !contains(&neighbors[o], uint32(s)) {
				return nil, fmt.Errorf("topology: adjacency not symmetric: %d -> %d", s, o)
			}
		}
	}

	t := &Topology{
		neighbors: neighbors,
		pairs:     make(map[uint64]Split, n*Degree/2),
	}
	for s := range neighbors {
		a := uint32(s)
		for _, b := range neighbors[s] {
			if b < a {
				continue
			}
			t.pairs[packPair(a, b)] = split(&neighbors[a], &neighbors[b], a, b)
		}
	}
	return t, nil
}

// WithPositions attaches Cartesian site positions and the periodic cell lengths.
// positions must have one entry per site.
func (t *Topology) WithPositions(positions [][3]float64, cell [3]float64) error {
	if len(positions) != len(t.neighbors) {
		return fmt.Errorf("topology: %d positions for %d sites", len(positions), len(t.neighbors))
	}
	t.positions = positions
	t.cell = cell
	return nil
}

// NumSites returns the number of lattice sites.
func (t *Topology) NumSites() int { return len(t.neighbors) }

// Neighbors returns the fixed-degree neighbor list of site s.
// The returned array must not be modified.
func (t *Topology) Neighbors(s uint32) *[Degree]uint32 { return &t.neighbors[s] }

// Adjacent reports whether a and b are first-shell neighbors.
func (t *Topology) Adjacent(a, b uint32) bool { return contains(&t.neighbors[a], b) }

// Positions returns the site coordinates, or nil if the topology has none.
func (t *Topology) Positions() [][3]float64 { return t.positions }

// Cell returns the periodic cell lengths (zero if unknown).
func (t *Topology) Cell() [3]float64 { return t.cell }

// Split returns the decomposition for a move from → to, oriented so that FromOnly
// belongs to from. ok is false if from and to are not an adjacent pair.
func (t *Topology) Split(from, to uint32) (sp Split, ok bool) {
	lo, hi := from, to
	if lo > hi {
		lo, hi = hi, lo
	}
	sp, ok = t.pairs[packPair(lo, hi)]
	if !ok {
		return Split{}, false
	}
	if from > to {
		sp.FromOnly, sp.ToOnly = sp.ToOnly, sp.FromOnly
	}
	return sp, true
}

func packPair(lo, hi uint32) uint64 { return uint64(lo) | uint64(hi)<<32 }

func split(na, nb *[Degree]uint32, a, b uint32) Split {
	var sp Split
	for _, o := range na {
		switch {
		case o == b:
		case contains(nb, o):
			sp.Shared = append(sp.Shared, o)
		default:
			sp.FromOnly = append(sp.FromOnly, o)
		}
	}
	for _, o := range nb {
		if o != a && !contains(na, o) {
			sp.ToOnly = append(sp.ToOnly, o)
		}
	}
	return sp
}

func contains(nn *[Degree]uint32, s uint32) bool {
	for _, o := range nn {
		if o == s {
			return true
		}
	}
	return false
}
