// Package persist writes finished runs to disk: one folder per repetition holding the
// JSON result, the lowest-energy structure and zstd-compressed CSV snapshots, plus a
// SQLite index over all runs.
package persist

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/lattice-mc/lattice-mc/sim"
	"github.com/lattice-mc/lattice-mc/sim/record"
	"github.com/lattice-mc/lattice-mc/sim/structure"
	"github.com/lattice-mc/lattice-mc/sim/topology"
)

// File names inside a run folder.
const (
	ResultFile       = "exp_file.json"
	LowestEnergyFile = "lowest_energy.xyz"
	HeatMapFile      = "heat_map.csv.zst"
	SnapshotFile     = "snap_shot_sections.csv.zst"
	TraceFile        = "energy_trace.csv.zst"
)

// RunDirName returns "<T>K_<niter>I_<atoms>A_<rep>", prefixed with "<start>-" when a
// start temperature is set.
func RunDirName(temperature float64, start *float64, niter int64, atoms, rep int) string {
	name := fmt.Sprintf("%sK_%dI_%dA_%d", formatFloat(temperature), niter, atoms, rep)
	if start != nil {
		name = formatFloat(*start) + "-" + name
	}
	return name
}

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

// StartRecord describes the configuration before the first step.
type StartRecord struct {
	StartEnergy float64     `json:"start_energy"`
	StartCN     map[int]int `json:"start_cn"`
}

// LowestEnergy describes the best configuration of the recording phase.
type LowestEnergy struct {
	Energy       float64     `json:"energy"`
	CNTotal      map[int]int `json:"cn_total"`
	EmptyCN      map[int]int `json:"empty_cn"`
	CNAtSupport  map[int]int `json:"cn_dict_at_supp"`
	Iteration    int64       `json:"iiter"`
	OccupiedSite []uint32    `json:"-"`
}

// Level is a visited CN histogram.
type Level struct {
	CN     map[int]int `json:"cn"`
	Energy float64     `json:"energy"`
	Count  int64       `json:"count"`
}

// ExpFile is the JSON result of one repetition.
type ExpFile struct {
	RunID          string            `json:"run_id"`
	Repetition     int               `json:"repetition"`
	Seed           int64             `json:"seed"`
	Start          StartRecord       `json:"start"`
	LowestEnergy   *LowestEnergy     `json:"lowest_energy_struct"`
	NumberAllAtoms int               `json:"number_all_atoms"`
	Iterations     int64             `json:"iterations"`
	Accepted       int64             `json:"accepted"`
	FinalEnergy    float64           `json:"final_energy"`
	EnergySections []float64         `json:"energy_section_list"`
	CNSections     []map[int]float64 `json:"cn_dict_sections"`
	UniqueLevels   []Level           `json:"unique_levels,omitempty"`
}

// BestEnergy returns the lowest recorded energy, or the final energy if none was recorded.
func (e *ExpFile) BestEnergy() float64 {
	if e.LowestEnergy != nil {
		return e.LowestEnergy.Energy
	}
	return e.FinalEnergy
}

func histMap(h record.Histogram) map[int]int {
	m := make(map[int]int, len(h))
	for cn, c := range h {
		m[cn] = c
	}
	return m
}

// NewExpFile converts a result into its JSON form.
func NewExpFile(runID uuid.UUID, rep int, seed int64, r *record.Result) *ExpFile {
	e := &ExpFile{
		RunID:       runID.String(),
		Repetition:  rep,
		Seed:        seed,
		Start:       StartRecord{StartEnergy: record.Milli(r.StartEnergy), StartCN: histMap(r.StartHistogram)},
		Iterations:  r.Iterations,
		Accepted:    r.Accepted,
		FinalEnergy: record.Milli(r.FinalEnergy),
	}
	e.NumberAllAtoms = r.FinalHistogram.Total()
	if b := r.Best; b != nil {
		e.LowestEnergy = &LowestEnergy{
			Energy:       record.Milli(b.Energy),
			CNTotal:      histMap(b.Histogram),
			EmptyCN:      make(map[int]int),
			CNAtSupport:  histMap(b.HistogramAtSupport),
			Iteration:    b.Iteration,
			OccupiedSite: b.Atoms,
		}
		for cn, c := range b.EmptyCN {
			if c > 0 {
				e.LowestEnergy.EmptyCN[cn] = c
			}
		}
	}
	for _, sec := range r.Sections {
		e.EnergySections = append(e.EnergySections, sec.MeanEnergy)
		m := make(map[int]float64, record.NumCN)
		for cn, v := range sec.MeanHistogram {
			m[cn] = v
		}
		e.CNSections = append(e.CNSections, m)
	}
	for _, lvl := range r.UniqueLevels {
		e.UniqueLevels = append(e.UniqueLevels, Level{CN: histMap(lvl.Histogram), Energy: record.Milli(lvl.Energy), Count: lvl.Count})
	}
	return e
}

// WriteExpFile writes e as indented JSON to dir/exp_file.json.
func WriteExpFile(dir string, e *ExpFile) error {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, ResultFile), data, 0o644)
}

// ReadExpFile reads a JSON result.
func ReadExpFile(path string) (*ExpFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var e ExpFile
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &e, nil
}

// Species names the two atom kinds for structure output.
type Species struct {
	Metal   string
	Support string
}

// Run is everything written for one repetition.
type Run struct {
	RunID      uuid.UUID
	Repetition int
	Seed       int64
	Result     *record.Result
	Snapshots  []record.Snapshot
	Trace      []record.EnergyPoint // "iteration,energy" rows, energy in eV
	Topology   *topology.Topology
	Start      []sim.Occupancy // start occupancy; support sites are taken from it
	Species    Species
}

// WriteRun creates dir and writes every file of r into it. It returns the JSON result.
func WriteRun(dir string, r Run) (*ExpFile, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	e := NewExpFile(r.RunID, r.Repetition, r.Seed, r.Result)
	if err := WriteExpFile(dir, e); err != nil {
		return nil, fmt.Errorf("writing result: %w", err)
	}
	if r.Result.Best != nil && r.Topology.Positions() != nil {
		if err := writeLowestEnergy(dir, r); err != nil {
			return nil, fmt.Errorf("writing lowest energy structure: %w", err)
		}
	}
	heat := make([][]uint32, 0, len(r.Snapshots))
	occ := make([][]uint32, 0, len(r.Snapshots))
	for _, s := range r.Snapshots {
		if s.HeatMap != nil {
			heat = append(heat, s.HeatMap)
		}
		if s.Occupied != nil {
			occ = append(occ, s.Occupied)
		}
	}
	if len(heat) > 0 {
		if err := WriteCSVZst(filepath.Join(dir, HeatMapFile), heat, identityRow); err != nil {
			return nil, fmt.Errorf("writing heat map: %w", err)
		}
	}
	if len(occ) > 0 {
		row := occupancyRow(r.Start)
		if err := WriteCSVZst(filepath.Join(dir, SnapshotFile), occ, row); err != nil {
			return nil, fmt.Errorf("writing snapshots: %w", err)
		}
	}
	if len(r.Trace) > 0 {
		if err := WriteCSVZst(filepath.Join(dir, TraceFile), r.Trace, traceRow); err != nil {
			return nil, fmt.Errorf("writing energy trace: %w", err)
		}
	}
	return e, nil
}

func writeLowestEnergy(dir string, r Run) error {
	f, err := os.Create(filepath.Join(dir, LowestEnergyFile))
	if err != nil {
		return err
	}
	atoms := structure.ToAtoms(r.Topology, r.Result.Best.Atoms, r.Start, r.Species.Metal, r.Species.Support)
	if err := structure.WriteXYZ(f, atoms, r.Topology.Cell()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func traceRow(p record.EnergyPoint, dst []string) []string {
	return append(dst, strconv.FormatInt(p.Iteration, 10), strconv.FormatFloat(record.Milli(p.Energy), 'f', 3, 64))
}

func identityRow(values []uint32, dst []string) []string {
	for _, v := range values {
		dst = append(dst, strconv.FormatUint(uint64(v), 10))
	}
	return dst
}

// occupancyRow expands a list of occupied sites into a per-site 0/1/2 row, with support
// sites taken from start.
func occupancyRow(start []sim.Occupancy) func([]uint32, []string) []string {
	base := make([]sim.Occupancy, len(start))
	for s, o := range start {
		if o == sim.Support {
			base[s] = sim.Support
		}
	}
	occ := make([]sim.Occupancy, len(start))
	return func(occupied []uint32, dst []string) []string {
		copy(occ, base)
		for _, s := range occupied {
			occ[s] = sim.Metal
		}
		for _, o := range occ {
			dst = append(dst, strconv.Itoa(int(o)))
		}
		return dst
	}
}

// WriteCSVZst writes one CSV record per row, zstd-compressed. format appends the fields
// of a row to dst.
func WriteCSVZst[T any](path string, rows []T, format func(row T, dst []string) []string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)
	w := csv.NewWriter(bw)
	var rec []string
	for _, row := range rows {
		rec = format(row, rec[:0])
		if err := w.Write(rec); err != nil {
			enc.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		enc.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return f.Close()
}

// ReadCSVZst reads a file written by WriteCSVZst.
func ReadCSVZst(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	r := csv.NewReader(bufio.NewReaderSize(dec, 256*1024))
	r.FieldsPerRecord = -1
	var out [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
}
