// Package record provides the data types a simulation hands to its recorder and the
// final per-run result. This package has no dependencies on sim/ and stores pure data.
package record

// NumCN is the size of a coordination-number histogram (CN 0..12).
const NumCN = 13

// Histogram counts metal sites by coordination number.
type Histogram [NumCN]int

// Total returns the number of sites counted.
func (h Histogram) Total() int {
	n := 0
	for _, c := range h {
		n += c
	}
	return n
}

// MoveEvent is emitted for every accepted move. FromIndex and ToIndex are the
// post-move CN (or GCN, for GCN-indexed energy models) of the two moved sites.
type MoveEvent struct {
	Iteration int64
	Energy    int64 // total energy after the move, milli-units
	From, To  uint32
	FromIndex int
	ToIndex   int
}

// Section holds averages over the samples taken inside one section of the run.
type Section struct {
	Index          int
	FirstIteration int64
	LastIteration  int64
	Samples        int
	Temperature    float64 // at the section's last iteration
	MeanEnergy     float64 // eV
	MeanHistogram  [NumCN]float64
}

// Best is the lowest-energy configuration seen during the recording phase.
type Best struct {
	Iteration          int64
	Energy             int64 // milli-units
	Atoms              []uint32
	Histogram          Histogram
	HistogramAtSupport Histogram
	EmptyCN            Histogram // distinct empty move targets by CN (CN > 3 only)
}

// Snapshot is a periodic raw copy of the occupied sites and, when enabled, of the
// per-site accepted-move visit counter.
type Snapshot struct {
	Index     int
	Iteration int64
	Occupied  []uint32
	HeatMap   []uint32 // nil unless heat-map recording is on
}

// UniqueLevel is a distinct CN histogram visited during the recording phase, with the
// energy at first visit.
type UniqueLevel struct {
	Histogram Histogram
	Energy    int64
	Count     int64
}

// Result is what a finished simulation returns.
type Result struct {
	Iterations     int64
	Accepted       int64
	StartEnergy    int64 // milli-units
	FinalEnergy    int64
	Best           *Best // nil if the recording phase saw no state
	StartHistogram Histogram
	FinalHistogram Histogram
	Sections       []Section
	UniqueLevels   []UniqueLevel
	HeatMap        []uint32 // nil unless heat-map recording is on
}

// Milli converts a fixed-point milli-unit energy to eV.
func Milli(e int64) float64 { return float64(e) / 1000 }
