// Package structure builds start configurations for a simulation: a compact cluster
// grown on the lattice, an optional support slab, or an existing .xyz structure
// mapped onto lattice sites.
package structure

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/lattice-mc/lattice-mc/sim"
	"github.com/lattice-mc/lattice-mc/sim/topology"
)

// planeTolerance is the largest |(x−p)·n| for a site to lie on a support plane.
const planeTolerance = 1e-7

// CenterSite returns the site nearest the centroid of all site positions.
func CenterSite(topo *topology.Topology) (uint32, error) {
	pos := topo.Positions()
	if pos == nil {
		return 0, fmt.Errorf("structure: topology has no site positions")
	}
	var c [3]float64
	for _, p := range pos {
		for d := range c {
			c[d] += p[d]
		}
	}
	for d := range c {
		c[d] /= float64(len(pos))
	}
	best, bestDist := uint32(0), math.Inf(1)
	for s, p := range pos {
		if dist := dist2(p, c); dist <= bestDist {
			best, bestDist = uint32(s), dist
		}
	}
	return best, nil
}

// AddSupport marks two lattice planes with normal (h,k,l) as support: the plane
// through center and the parallel plane through the last neighbor of center that is
// not on the first plane.
func AddSupport(topo *topology.Topology, occ []sim.Occupancy, center uint32, normal [3]int) (int, error) {
	pos := topo.Positions()
	if pos == nil {
		return 0, fmt.Errorf("structure: topology has no site positions")
	}
	if normal == [3]int{} {
		return 0, fmt.Errorf("structure: support normal must be non-zero")
	}
	n := 0
	markPlane := func(through [3]float64) {
		for s, p := range pos {
			dot := 0.0
			for d := 0; d < 3; d++ {
				dot += (p[d] - through[d]) * float64(normal[d])
			}
			if math.Abs(dot) < planeTolerance && occ[s] != sim.Support {
				occ[s] = sim.Support
				n++
			}
		}
	}
	markPlane(pos[center])

	second, ok := uint32(0), false
	for _, nb := range topo.Neighbors(center) {
		if occ[nb] == sim.Empty {
			second, ok = nb, true
		}
	}
	if !ok {
		return 0, fmt.Errorf("structure: every neighbor of center site %d lies on the support plane", center)
	}
	markPlane(pos[second])
	return n, nil
}

// GrowCluster occupies n empty sites breadth-first from seed, or from the first empty
// neighbor of seed when seed itself is not empty.
func GrowCluster(topo *topology.Topology, occ []sim.Occupancy, seed uint32, n int) error {
	if n <= 0 {
		return fmt.Errorf("structure: atom count must be positive, got %d", n)
	}
	if occ[seed] != sim.Empty {
		found := false
		for _, nb := range topo.Neighbors(seed) {
			if occ[nb] == sim.Empty {
				seed, found = nb, true
				break
			}
		}
		if !found {
			return fmt.Errorf("structure: no empty site next to seed %d", seed)
		}
	}

	seen := make([]bool, len(occ))
	seen[seed] = true
	queue := []uint32{seed}
	placed := 0
	for len(queue) > 0 && placed < n {
		s := queue[0]
		queue = queue[1:]
		occ[s] = sim.Metal
		placed++
		for _, nb := range topo.Neighbors(s) {
			if !seen[nb] && occ[nb] == sim.Empty {
				seen[nb] = true
				queue = append(queue, nb)
			}
		}
	}
	if placed < n {
		return fmt.Errorf("structure: only %d of %d atoms fit next to seed %d", placed, n, seed)
	}
	return nil
}

// Build returns the occupancy of a cluster of atoms grown from the lattice center,
// resting on a support slab when normal is non-nil.
func Build(topo *topology.Topology, atoms int, normal *[3]int) ([]sim.Occupancy, error) {
	if atoms >= topo.NumSites() {
		return nil, fmt.Errorf("structure: %d atoms do not fit on %d sites", atoms, topo.NumSites())
	}
	center, err := CenterSite(topo)
	if err != nil {
		return nil, err
	}
	occ := make([]sim.Occupancy, topo.NumSites())
	if normal != nil {
		n, err := AddSupport(topo, occ, center, *normal)
		if err != nil {
			return nil, err
		}
		logrus.Infof("support slab (%d,%d,%d): %d sites", normal[0], normal[1], normal[2], n)
	}
	if err := GrowCluster(topo, occ, center, atoms); err != nil {
		return nil, err
	}
	logrus.Debugf("grew %d atoms from center site %d", atoms, center)
	return occ, nil
}

func dist2(a, b [3]float64) float64 {
	dx, dy, dz := a[0]-b[0], a[1]-b[1], a[2]-b[2]
	return dx*dx + dy*dy + dz*dz
}
