// sim/simulator.go
package sim

import (
	"fmt"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/lattice-mc/lattice-mc/sim/record"
	"github.com/lattice-mc/lattice-mc/sim/topology"
)

// progressMarks is the number of progress log lines per run.
const progressMarks = 100

// Simulator owns one annealing run: the lattice, its legal moves, the running total
// energy and the random stream.
//
// Thread-safety: NOT thread-safe. Concurrent simulators may share only the Topology.
type Simulator struct {
	cfg     SimulatorConfig
	lattice *Lattice
	moves   *MoveSet
	energy  EnergyModel
	anneal  *Annealer
	rng     *rand.Rand
	rec     Recorder

	iter      int64
	niter     int64
	total     int64 // milli-units, adjusted only by accepted ΔE
	start     int64
	startHist record.Histogram
	accepted  int64
	recording bool

	sections *sectionStats
	best     *record.Best

	levels     map[record.Histogram]int // histogram -> position in levelOrder
	levelOrder []record.UniqueLevel

	heat          []uint32
	snapEvery     int64
	snapIndex     int
	progressEvery int64
}

// NewSimulator validates cfg, builds the lattice caches for occ from scratch, sums the
// initial energy and fills the move set. Any configuration problem is returned before a
// single step runs. rec may be nil.
func NewSimulator(topo *topology.Topology, occ []Occupancy, cfg SimulatorConfig, rng *rand.Rand, rec Recorder) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("simulator: nil random source")
	}
	if rec == nil {
		rec = NopRecorder{}
	}
	cfg.Anneal = cfg.Anneal.WithDefaults()
	cfg.Record = cfg.Record.WithDefaults()

	l, err := NewLattice(topo, occ, cfg.Energy.Kind.UsesGCN())
	if err != nil {
		return nil, err
	}
	if l.NumAtoms() == 0 {
		return nil, fmt.Errorf("simulator: no metal atoms on the lattice")
	}
	anneal, err := NewAnnealer(cfg.Anneal)
	if err != nil {
		return nil, err
	}

	s := &Simulator{
		cfg:      cfg,
		lattice:  l,
		moves:    NewMoveSet(l.NumAtoms() * topology.Degree / 2),
		energy:   cfg.Energy,
		anneal:   anneal,
		rng:      rng,
		rec:      rec,
		niter:    cfg.Anneal.Iterations,
		sections: newSectionStats(cfg.Anneal.Iterations, cfg.Record.Sections, cfg.Record.SampleEvery),
	}
	for _, a := range l.Atoms() {
		for _, n := range topo.Neighbors(a) {
			s.reevaluate(a, n)
		}
	}
	if s.moves.Len() == 0 {
		return nil, fmt.Errorf("simulator: initial configuration has no legal moves")
	}
	if cfg.Record.RecordEntireRun {
		l.SetTracking(true)
	}
	if cfg.Record.UniqueLevels > 0 {
		s.levels = make(map[record.Histogram]int)
	}
	if cfg.Record.HeatMap {
		s.heat = make([]uint32, l.NumSites())
	}
	if cfg.Record.Snapshots || cfg.Record.HeatMap {
		s.snapEvery = max(1, s.niter/int64(cfg.Record.NumSnapshots))
	}
	s.progressEvery = max(1, s.niter/progressMarks)
	if s.niter < int64(cfg.Record.Sections) {
		logrus.Warnf("%s: %d iterations is fewer than %d sections; sections hold one iteration each",
			s.label(), s.niter, cfg.Record.Sections)
	}

	s.total = s.energy.Total(l)
	s.start = s.total
	s.startHist, _ = l.ScratchHistograms()
	logrus.Infof("%s: %d atoms on %d sites, %d legal moves, start energy %.3f eV, model %s",
		s.label(), l.NumAtoms(), l.NumSites(), s.moves.Len(), record.Milli(s.total), s.energy.Kind)
	return s, nil
}

func (s *Simulator) label() string {
	if s.cfg.Label == "" {
		return "sim"
	}
	return s.cfg.Label
}

// Run executes every remaining iteration and returns the result.
func (s *Simulator) Run() *record.Result {
	for s.iter < s.niter {
		s.Step()
	}
	return s.Finalize()
}

// Step executes one iteration: sample, ΔE, Metropolis test, apply, bookkeeping.
func (s *Simulator) Step() {
	iter := s.iter
	if !s.recording && s.anneal.Recording(iter) {
		s.beginRecording()
	}
	if s.moves.Len() == 0 {
		violate("move set non-empty at sampling", iter, "")
	}

	m := s.moves.Sample(s.rng)
	dE := s.energy.Diff(s.lattice, m.From, m.To)
	if s.anneal.Accept(dE, iter, s.rng) {
		s.apply(m, dE)
	}

	if s.recording {
		s.countLevel()
	}
	temperature := s.anneal.Temperature(iter)
	if sec, ok := s.sections.observe(iter, s.total, s.lattice, temperature); ok {
		s.rec.RecordSection(sec)
	}
	if s.snapEvery > 0 && iter%s.snapEvery == s.snapEvery-1 && s.snapIndex < s.cfg.Record.NumSnapshots {
		s.snapshot()
	}
	if iter%s.progressEvery == 0 {
		logrus.Infof("%s: %3d%% iteration %d T=%.1fK E=%.3f eV accepted=%d",
			s.label(), iter*100/s.niter, iter, temperature, record.Milli(s.total), s.accepted)
	}
	s.iter++
}

func (s *Simulator) apply(m Move, dE int64) {
	s.lattice.Apply(m.From, m.To, s.iter)
	s.refreshMoves(m.From, m.To)
	s.total += dE
	s.accepted++
	if s.heat != nil {
		s.heat[m.From]++
		s.heat[m.To]++
	}
	s.rec.RecordMove(record.MoveEvent{
		Iteration: s.iter,
		Energy:    s.total,
		From:      m.From,
		To:        m.To,
		FromIndex: s.energy.index(s.lattice, m.From),
		ToIndex:   s.energy.index(s.lattice, m.To),
	})
	if s.recording && s.total < s.best.Energy {
		s.recordBest()
	}
}

// reevaluate adds (x, t) if it is legal in the current state and removes it otherwise.
func (s *Simulator) reevaluate(x, t uint32) {
	l := s.lattice
	if l.At(x) == Metal && l.At(t) == Empty && l.CN(t) > 1 {
		s.moves.Add(x, t)
	} else {
		s.moves.Remove(x, t)
	}
}

// refreshMoves brings the move set in line with the state after a → b. Legality of
// (x, t) depends on occ[x], occ[t] and CN[t]; occupancy changed at a and b, CN fell by
// one on N(a)\N(b) and rose by one on N(b)\N(a).
func (s *Simulator) refreshMoves(a, b uint32) {
	topo := s.lattice.Topology()
	for _, y := range topo.Neighbors(a) {
		s.reevaluate(a, y)
		s.reevaluate(y, a)
	}
	for _, y := range topo.Neighbors(b) {
		s.reevaluate(b, y)
		s.reevaluate(y, b)
	}
	sp, ok := topo.Split(a, b)
	if !ok {
		violate("decomposition exists for adjacent pair", s.iter, "", a, b)
	}
	// Targets that crossed the CN > 1 threshold.
	for _, t := range sp.FromOnly {
		if s.lattice.At(t) == Empty && s.lattice.CN(t) == 1 {
			for _, x := range topo.Neighbors(t) {
				s.moves.Remove(x, t)
			}
		}
	}
	for _, t := range sp.ToOnly {
		if s.lattice.At(t) == Empty && s.lattice.CN(t) == 2 {
			for _, x := range topo.Neighbors(t) {
				s.reevaluate(x, t)
			}
		}
	}
}

func (s *Simulator) beginRecording() {
	s.recording = true
	if !s.lattice.Tracking() {
		s.lattice.SetTracking(true)
	}
	logrus.Debugf("%s: recording from iteration %d", s.label(), s.iter)
	s.recordBest()
}

func (s *Simulator) recordBest() {
	atoms := make([]uint32, s.lattice.NumAtoms())
	copy(atoms, s.lattice.Atoms())
	b := record.Best{
		Iteration:          s.iter,
		Energy:             s.total,
		Atoms:              atoms,
		Histogram:          s.lattice.Histogram(),
		HistogramAtSupport: s.lattice.HistogramAtSupport(),
	}
	for _, t := range s.moves.Targets(nil) {
		if cn := s.lattice.CN(t); cn > 3 {
			b.EmptyCN[cn]++
		}
	}
	s.best = &b
	s.rec.RecordBest(b)
}

func (s *Simulator) countLevel() {
	if s.levels == nil {
		return
	}
	h := s.lattice.Histogram()
	if i, ok := s.levels[h]; ok {
		s.levelOrder[i].Count++
		return
	}
	if len(s.levelOrder) >= s.cfg.Record.UniqueLevels {
		return
	}
	s.levels[h] = len(s.levelOrder)
	s.levelOrder = append(s.levelOrder, record.UniqueLevel{Histogram: h, Energy: s.total, Count: 1})
}

func (s *Simulator) snapshot() {
	snap := record.Snapshot{Index: s.snapIndex, Iteration: s.iter}
	if s.cfg.Record.Snapshots {
		snap.Occupied = make([]uint32, s.lattice.NumAtoms())
		copy(snap.Occupied, s.lattice.Atoms())
	}
	if s.heat != nil {
		snap.HeatMap = make([]uint32, len(s.heat))
		copy(snap.HeatMap, s.heat)
	}
	s.snapIndex++
	s.rec.RecordSnapshot(snap)
}

// Finalize assembles the result of the iterations run so far.
func (s *Simulator) Finalize() *record.Result {
	hist, _ := s.lattice.ScratchHistograms()
	res := &record.Result{
		Iterations:     s.iter,
		Accepted:       s.accepted,
		StartEnergy:    s.start,
		FinalEnergy:    s.total,
		Best:           s.best,
		StartHistogram: s.startHist,
		FinalHistogram: hist,
		Sections:       s.sections.done,
		UniqueLevels:   s.levelOrder,
	}
	if s.heat != nil {
		res.HeatMap = make([]uint32, len(s.heat))
		copy(res.HeatMap, s.heat)
	}
	logrus.Infof("%s: done, %d/%d accepted, final energy %.3f eV", s.label(), s.accepted, s.iter, record.Milli(s.total))
	return res
}

// Lattice returns the simulated lattice. Callers must not mutate it.
func (s *Simulator) Lattice() *Lattice { return s.lattice }

// Moves returns the current move set. Callers must not mutate it.
func (s *Simulator) Moves() *MoveSet { return s.moves }

// Energy returns the running total energy in milli-units.
func (s *Simulator) Energy() int64 { return s.total }

// Iteration returns the number of iterations executed.
func (s *Simulator) Iteration() int64 { return s.iter }

// Annealer returns the temperature controller.
func (s *Simulator) Annealer() *Annealer { return s.anneal }

// EnergyModel returns the energy model.
func (s *Simulator) EnergyModel() EnergyModel { return s.energy }
