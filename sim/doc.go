// Package sim provides the lattice simulated-annealing Monte Carlo engine.
//
// # Reading Guide
//
// Start with these three files to understand the simulation kernel:
//   - lattice.go: occupancy, the CN/GCN caches and the incremental update on a move
//   - energy.go: the coordination-based energy models and their move-local ΔE
//   - simulator.go: the step loop, move-set maintenance and recording
//
// # Architecture
//
// The sim package owns the per-run mutable state; everything shared or I/O-bound lives
// in sub-packages:
//   - sim/topology/: immutable neighbor tables, FCC generator, grid-folder loader
//   - sim/record/: payload types handed to a Recorder, in-memory Collector, summaries
//   - sim/structure/: start structures (grown clusters, support slabs, XYZ files)
//   - sim/ensemble/: independent repetitions in parallel with partitioned seeds
//   - sim/persist/: result files and the SQLite run index
//
// One Simulator is strictly sequential and owns its Lattice, MoveSet and *rand.Rand.
// Any number of simulators may share one *topology.Topology.
//
// # Energies
//
// Energies are int64 fixed point in milli-eV so that the running total never drifts
// from a scratch sum. Impossible states panic with *InvariantViolation.
package sim
