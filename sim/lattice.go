package sim

import (
	"fmt"

	"github.com/lattice-mc/lattice-mc/sim/record"
	"github.com/lattice-mc/lattice-mc/sim/topology"
)

// Occupancy is the state of a lattice site.
type Occupancy uint8

const (
	Empty Occupancy = iota
	Metal
	Support
)

func (o Occupancy) String() string {
	switch o {
	case Empty:
		return "empty"
	case Metal:
		return "metal"
	case Support:
		return "support"
	}
	return fmt.Sprintf("Occupancy(%d)", uint8(o))
}

// Lattice is the mutable occupancy of a topology together with the per-site
// coordination caches derived from it.
//
// CN is kept for every site, empty ones included. GCN is kept only when requested at
// construction. The CN histograms are kept only while tracking is on.
//
// Thread-safety: NOT thread-safe. Owned by one Simulator.
type Lattice struct {
	topo       *topology.Topology
	occ        []Occupancy
	cn         []uint8
	gcn        []uint16 // nil unless GCN is tracked
	supportAdj []bool

	tracking      bool
	hist          record.Histogram
	histAtSupport record.Histogram

	atoms   []uint32 // dense set of metal sites
	atomPos []int32  // position in atoms, -1 if not metal

	// Affected-set scratch for GCN updates. stamp[s] == epoch marks membership.
	stamp    []uint32
	epoch    uint32
	affected []uint32
}

// NewLattice builds the caches for occ on topo from scratch. occ is copied.
func NewLattice(topo *topology.Topology, occ []Occupancy, trackGCN bool) (*Lattice, error) {
	if topo == nil {
		return nil, fmt.Errorf("lattice: nil topology")
	}
	n := topo.NumSites()
	if len(occ) != n {
		return nil, fmt.Errorf("lattice: %d occupancy entries for %d sites", len(occ), n)
	}
	l := &Lattice{
		topo:       topo,
		occ:        make([]Occupancy, n),
		cn:         make([]uint8, n),
		supportAdj: make([]bool, n),
		atomPos:    make([]int32, n),
	}
	for s, o := range occ {
		if o > Support {
			return nil, fmt.Errorf("lattice: site %d has invalid occupancy %d", s, o)
		}
		l.occ[s] = o
		l.atomPos[s] = -1
		if o == Metal {
			l.atomPos[s] = int32(len(l.atoms))
			l.atoms = append(l.atoms, uint32(s))
		}
	}
	for s := range l.occ {
		for _, nb := range topo.Neighbors(uint32(s)) {
			switch l.occ[nb] {
			case Metal:
				l.cn[s]++
			case Support:
				l.supportAdj[s] = true
			}
		}
	}
	if trackGCN {
		l.gcn = make([]uint16, n)
		l.stamp = make([]uint32, n)
		for s := range l.gcn {
			l.gcn[s] = l.scratchGCN(uint32(s))
		}
	}
	return l, nil
}

// Topology returns the shared topology.
func (l *Lattice) Topology() *topology.Topology { return l.topo }

// NumSites returns the number of lattice sites.
func (l *Lattice) NumSites() int { return len(l.occ) }

// At returns the occupancy of s.
func (l *Lattice) At(s uint32) Occupancy { return l.occ[s] }

// CN returns the number of metal neighbors of s.
func (l *Lattice) CN(s uint32) int { return int(l.cn[s]) }

// GCN returns the sum of CN over the metal neighbors of s. Zero if GCN is not tracked.
func (l *Lattice) GCN(s uint32) int {
	if l.gcn == nil {
		return 0
	}
	return int(l.gcn[s])
}

// TracksGCN reports whether GCN is maintained.
func (l *Lattice) TracksGCN() bool { return l.gcn != nil }

// SupportAdjacent reports whether s has at least one support neighbor.
func (l *Lattice) SupportAdjacent(s uint32) bool { return l.supportAdj[s] }

// Atoms returns the metal sites. The slice must not be modified and is invalidated by Apply.
func (l *Lattice) Atoms() []uint32 { return l.atoms }

// NumAtoms returns the number of metal sites.
func (l *Lattice) NumAtoms() int { return len(l.atoms) }

// Tracking reports whether the CN histograms are maintained.
func (l *Lattice) Tracking() bool { return l.tracking }

// Histogram returns the CN histogram over metal sites. Meaningful only while tracking.
func (l *Lattice) Histogram() record.Histogram { return l.hist }

// HistogramAtSupport returns the CN histogram over support-adjacent metal sites.
func (l *Lattice) HistogramAtSupport() record.Histogram { return l.histAtSupport }

// SetTracking turns histogram maintenance on or off. Turning it on rebuilds both
// histograms from the current state.
func (l *Lattice) SetTracking(on bool) {
	if on && !l.tracking {
		l.hist, l.histAtSupport = l.ScratchHistograms()
	}
	l.tracking = on
}

// Apply moves the atom at from into the empty adjacent site to and updates every cache.
// iter is used only to label invariant violations.
func (l *Lattice) Apply(from, to uint32, iter int64) {
	if l.occ[from] != Metal || l.occ[to] != Empty {
		violate("move endpoints are metal and empty", iter,
			fmt.Sprintf("from is %s, to is %s", l.occ[from], l.occ[to]), from, to)
	}
	if !l.topo.Adjacent(from, to) {
		violate("move endpoints are adjacent", iter, "", from, to)
	}

	cnFrom := int(l.cn[from])
	l.occ[from] = Empty
	l.occ[to] = Metal

	for _, o := range l.topo.Neighbors(from) {
		if l.tracking && o != to && l.occ[o] == Metal {
			l.shiftBucket(o, -1, iter)
		}
		l.cn[o]--
	}
	for _, o := range l.topo.Neighbors(to) {
		if l.tracking && o != from && l.occ[o] == Metal {
			l.shiftBucket(o, +1, iter)
		}
		l.cn[o]++
	}
	if l.tracking {
		l.bucketOut(from, cnFrom, iter)
		l.bucketIn(to, int(l.cn[to]))
	}

	i := l.atomPos[from]
	l.atoms[i] = to
	l.atomPos[to] = i
	l.atomPos[from] = -1

	if l.gcn != nil {
		for _, s := range l.collectAffected(from, to) {
			l.gcn[s] = l.scratchGCN(s)
		}
	}
}

// shiftBucket moves a metal site whose CN is about to change by delta.
func (l *Lattice) shiftBucket(s uint32, delta int, iter int64) {
	cur := int(l.cn[s])
	l.bucketOut(s, cur, iter)
	l.bucketIn(s, cur+delta)
}

func (l *Lattice) bucketOut(s uint32, cn int, iter int64) {
	if cn < 0 || cn >= record.NumCN || l.hist[cn] == 0 {
		violate("histogram bucket non-negative", iter, fmt.Sprintf("cn %d", cn), s)
	}
	l.hist[cn]--
	if l.supportAdj[s] {
		if l.histAtSupport[cn] == 0 {
			violate("support histogram bucket non-negative", iter, fmt.Sprintf("cn %d", cn), s)
		}
		l.histAtSupport[cn]--
	}
}

func (l *Lattice) bucketIn(s uint32, cn int) {
	l.hist[cn]++
	if l.supportAdj[s] {
		l.histAtSupport[cn]++
	}
}

// collectAffected returns N(a) ∪ N(b) ∪ N(N(a) ∪ N(b)) without duplicates. The slice is
// scratch storage reused by the next call.
func (l *Lattice) collectAffected(a, b uint32) []uint32 {
	l.epoch++
	if l.epoch == 0 {
		clear(l.stamp)
		l.epoch = 1
	}
	l.affected = l.affected[:0]
	mark := func(s uint32) {
		if l.stamp[s] != l.epoch {
			l.stamp[s] = l.epoch
			l.affected = append(l.affected, s)
		}
	}
	for _, c := range [2]uint32{a, b} {
		for _, n := range l.topo.Neighbors(c) {
			mark(n)
		}
	}
	shell := len(l.affected)
	for i := 0; i < shell; i++ {
		for _, n := range l.topo.Neighbors(l.affected[i]) {
			mark(n)
		}
	}
	return l.affected
}

func (l *Lattice) scratchGCN(s uint32) uint16 {
	var g uint16
	for _, n := range l.topo.Neighbors(s) {
		if l.occ[n] == Metal {
			g += uint16(l.cn[n])
		}
	}
	return g
}

// ScratchCN recounts the metal neighbors of s from occupancy alone.
func (l *Lattice) ScratchCN(s uint32) int {
	c := 0
	for _, n := range l.topo.Neighbors(s) {
		if l.occ[n] == Metal {
			c++
		}
	}
	return c
}

// ScratchHistograms rebuilds both CN histograms from the CN cache.
func (l *Lattice) ScratchHistograms() (all, atSupport record.Histogram) {
	for _, s := range l.atoms {
		all[l.cn[s]]++
		if l.supportAdj[s] {
			atSupport[l.cn[s]]++
		}
	}
	return all, atSupport
}

// Occupancy returns a copy of the per-site occupancy.
func (l *Lattice) Occupancy() []Occupancy {
	out := make([]Occupancy, len(l.occ))
	copy(out, l.occ)
	return out
}
