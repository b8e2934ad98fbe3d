package sim

import "fmt"

// Verify recomputes every cache from occupancy alone and compares: CN, GCN, the
// histograms (while tracking), the running total energy and the move set. It is
// O(nsites) and meant for tests and debugging, never for the step loop.
func (s *Simulator) Verify() error {
	l := s.lattice
	topo := l.Topology()
	for i := 0; i < l.NumSites(); i++ {
		site := uint32(i)
		if got, want := l.CN(site), l.ScratchCN(site); got != want {
			return fmt.Errorf("site %d: CN %d, recount %d", site, got, want)
		}
		if l.TracksGCN() {
			if got, want := l.GCN(site), int(l.scratchGCN(site)); got != want {
				return fmt.Errorf("site %d: GCN %d, recount %d", site, got, want)
			}
		}
	}
	if l.Tracking() {
		all, atSupport := l.ScratchHistograms()
		if all != l.Histogram() {
			return fmt.Errorf("histogram %v, recount %v", l.Histogram(), all)
		}
		if atSupport != l.HistogramAtSupport() {
			return fmt.Errorf("support histogram %v, recount %v", l.HistogramAtSupport(), atSupport)
		}
	}
	if want := s.energy.Total(l); s.total != want {
		return fmt.Errorf("running energy %d, scratch %d", s.total, want)
	}

	legal := 0
	for _, a := range l.Atoms() {
		for _, t := range topo.Neighbors(a) {
			isLegal := l.At(t) == Empty && l.CN(t) > 1
			if isLegal {
				legal++
			}
			if isLegal != s.moves.Contains(a, t) {
				return fmt.Errorf("move (%d,%d): legal=%v, in set=%v", a, t, isLegal, !isLegal)
			}
		}
	}
	if legal != s.moves.Len() {
		return fmt.Errorf("move set holds %d moves, %d legal", s.moves.Len(), legal)
	}
	return nil
}
