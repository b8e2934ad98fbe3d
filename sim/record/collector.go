package record

// EnergyPoint is one entry of the accepted-move energy trace.
type EnergyPoint struct {
	Iteration int64
	Energy    int64
}

// Collector keeps everything a simulation reports in memory. It satisfies the
// simulator's recorder interface.
//
// Thread-safety: NOT thread-safe. One Collector per simulation.
type Collector struct {
	// Stride keeps every Stride-th accepted move in Trace; 0 disables the trace.
	Stride int64

	Accepted    int64
	LastMove    MoveEvent
	Trace       []EnergyPoint
	Sections    []Section
	Best        *Best
	BestUpdates int
	Snapshots   []Snapshot
}

// NewCollector creates a Collector keeping every stride-th accepted move energy.
func NewCollector(stride int64) *Collector {
	return &Collector{Stride: stride}
}

// RecordMove counts the move and samples it into the trace.
func (c *Collector) RecordMove(ev MoveEvent) {
	c.Accepted++
	c.LastMove = ev
	if c.Stride > 0 && c.Accepted%c.Stride == 0 {
		c.Trace = append(c.Trace, EnergyPoint{Iteration: ev.Iteration, Energy: ev.Energy})
	}
}

// RecordSection appends a section.
func (c *Collector) RecordSection(s Section) {
	c.Sections = append(c.Sections, s)
}

// RecordBest replaces the stored best configuration.
func (c *Collector) RecordBest(b Best) {
	c.Best = &b
	c.BestUpdates++
}

// RecordSnapshot appends a snapshot.
func (c *Collector) RecordSnapshot(s Snapshot) {
	c.Snapshots = append(c.Snapshots, s)
}
