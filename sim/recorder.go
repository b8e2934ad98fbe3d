package sim

import "github.com/lattice-mc/lattice-mc/sim/record"

// Recorder receives what a simulation observes. Best and Snapshot payloads are fresh
// copies and may be retained.
type Recorder interface {
	RecordMove(record.MoveEvent)
	RecordSection(record.Section)
	RecordBest(record.Best)
	RecordSnapshot(record.Snapshot)
}

// NopRecorder discards everything.
type NopRecorder struct{}

func (NopRecorder) RecordMove(record.MoveEvent)    {}
func (NopRecorder) RecordSection(record.Section)   {}
func (NopRecorder) RecordBest(record.Best)         {}
func (NopRecorder) RecordSnapshot(record.Snapshot) {}
