package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/lattice-mc/lattice-mc/sim"
)

// Environment variables providing defaults below a YAML file and explicit flags.
const (
	envGridFolder = "LATTICE_MC_GRID_FOLDER"
	envOutput     = "LATTICE_MC_OUTPUT"
)

// RunConfig holds every option of the run command. YAML keys mirror the flag names.
// All fields must be listed to satisfy KnownFields(true) strict parsing.
type RunConfig struct {
	Iterations         string  `yaml:"iterations"`
	Temperature        float64 `yaml:"temperature"`
	BeginTemperature   float64 `yaml:"begin_temperature"` // 0 = unset
	HeatingTemperature float64 `yaml:"heating_temperature"`
	Cutoff             string  `yaml:"cutoff"`
	Schedule           string  `yaml:"schedule"`

	SupportE   float64 `yaml:"support_e"`
	ELinearCN  string  `yaml:"e_l_cn"`
	ECN        string  `yaml:"e_cn"`
	ELinearGCN string  `yaml:"e_l_gcn"`
	EGCN       string  `yaml:"e_gcn"`

	GridFolder      string  `yaml:"grid_folder"`
	FCC             string  `yaml:"fcc"`
	LatticeConstant float64 `yaml:"lattice_constant"`
	Atoms           string  `yaml:"atoms"`
	Support         string  `yaml:"support"`
	StartCluster    string  `yaml:"start_cluster"`

	WriteSnapshots  bool  `yaml:"write_snapshots"`
	HeatMap         bool  `yaml:"heat_map"`
	Sections        int   `yaml:"sections"`
	SampleEvery     int64 `yaml:"sample_every"`
	UniqueLevels    int   `yaml:"unique_levels"`
	RecordEntireRun bool  `yaml:"record_entire_run"`
	TraceStride     int64 `yaml:"trace_stride"`

	Repetition  string `yaml:"repetition"`
	Seed        int64  `yaml:"seed"`
	Parallelism int    `yaml:"parallelism"`
	Folder      string `yaml:"folder"`
	Index       string `yaml:"index"`
}

func defaultRunConfig() RunConfig {
	return RunConfig{
		Temperature:     300,
		Cutoff:          "1/2",
		Schedule:        string(sim.ScheduleRamp),
		LatticeConstant: 3.92,
		Sections:        sim.DefaultSections,
		SampleEvery:     sim.DefaultSampleEvery,
		Repetition:      "0-1",
		Folder:          "./sim/",
	}
}

// bindRunFlags registers one flag per RunConfig field on fs, using c's current values as
// defaults.
func bindRunFlags(fs *pflag.FlagSet, c *RunConfig) {
	fs.StringVarP(&c.Iterations, "iterations", "i", c.Iterations, "Number of iterations, e.g. 1000000 or 1e6")
	fs.Float64VarP(&c.Temperature, "temperature", "t", c.Temperature, "Temperature (K) at which annealing stops")
	fs.Float64VarP(&c.BeginTemperature, "begin-temperature", "b", c.BeginTemperature, "Temperature (K) at which annealing starts (0 = heating temperature)")
	fs.Float64Var(&c.HeatingTemperature, "heating-temperature", c.HeatingTemperature, "Heating temperature (K) (0 = 5000)")
	fs.StringVarP(&c.Cutoff, "cutoff", "o", c.Cutoff, "Fraction num/den of the run after which the temperature stays constant")
	fs.StringVar(&c.Schedule, "schedule", c.Schedule, "Annealing schedule (ramp, two-stage)")

	fs.Float64Var(&c.SupportE, "support-e", c.SupportE, "Energy added to sites adjacent to the support")
	fs.StringVar(&c.ELinearCN, "e-l-cn", c.ELinearCN, "Linear CN energy: JSON {\"CN_energy\":[slope,intercept]} or .json path")
	fs.StringVar(&c.ECN, "e-cn", c.ECN, "Tabulated CN energy: JSON {\"CN_energy\":[13 values],\"ads_e_CO\":[...]} or .json path")
	fs.StringVar(&c.ELinearGCN, "e-l-gcn", c.ELinearGCN, "Linear GCN energy: JSON {\"CN_energy\":[slope,intercept]} or .json path")
	fs.StringVar(&c.EGCN, "e-gcn", c.EGCN, "Tabulated GCN energy: JSON {\"CN_energy\":[145 values]} or .json path")

	fs.StringVarP(&c.GridFolder, "grid-folder", "g", c.GridFolder, "Folder with nearest_neighbor and atom_sites files (default $"+envGridFolder+")")
	fs.StringVar(&c.FCC, "fcc", c.FCC, "Generate a periodic fcc lattice of nx,ny,nz cubic cells instead of loading a grid folder")
	fs.Float64Var(&c.LatticeConstant, "lattice-constant", c.LatticeConstant, "Lattice constant for --fcc")
	fs.StringVarP(&c.Atoms, "atoms", "a", c.Atoms, "Metal element and atom count, e.g. Pt,4000")
	fs.StringVarP(&c.Support, "support", "s", c.Support, "Support element and optional normal vector, e.g. Al,1,1,1")
	fs.StringVar(&c.StartCluster, "start-cluster", c.StartCluster, "Start structure .xyz file")

	fs.BoolVarP(&c.WriteSnapshots, "write-snapshots", "w", c.WriteSnapshots, "Write occupancy snapshots during the run")
	fs.BoolVar(&c.HeatMap, "heat-map", c.HeatMap, "Write a per-site heat map of accepted moves")
	fs.IntVar(&c.Sections, "sections", c.Sections, "Number of averaged sections in the result")
	fs.Int64Var(&c.SampleEvery, "sample-every", c.SampleEvery, "Iterations between section samples")
	fs.IntVar(&c.UniqueLevels, "unique-levels", c.UniqueLevels, "Distinct CN histograms to count after the cutoff (0 = off)")
	fs.BoolVar(&c.RecordEntireRun, "record-entire-run", c.RecordEntireRun, "Track the CN histogram from the first iteration")
	fs.Int64Var(&c.TraceStride, "trace-stride", c.TraceStride, "Write the energy of every n-th accepted move (0 = off)")

	fs.StringVarP(&c.Repetition, "repetition", "r", c.Repetition, "Repetitions from-to (to exclusive)")
	fs.Int64Var(&c.Seed, "seed", c.Seed, "Master seed (0 = from OS entropy)")
	fs.IntVar(&c.Parallelism, "parallelism", c.Parallelism, "Repetitions run concurrently (0 = number of CPUs)")
	fs.StringVarP(&c.Folder, "folder", "f", c.Folder, "Output folder (default $"+envOutput+" or ./sim/)")
	fs.StringVar(&c.Index, "index", c.Index, "SQLite run index (default <folder>/"+"runs.sqlite)")
}

// decodeRunConfig decodes YAML from r onto c with strict field checking.
func decodeRunConfig(r io.Reader, c *RunConfig) error {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// resolveRunConfig layers defaults, environment, the YAML file at path and the flags
// explicitly set on cmd, in increasing precedence.
func resolveRunConfig(cmd *cobra.Command, path string) (RunConfig, error) {
	cfg := defaultRunConfig()
	if v := os.Getenv(envGridFolder); v != "" {
		cfg.GridFolder = v
	}
	if v := os.Getenv(envOutput); v != "" {
		cfg.Folder = v
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading run config: %w", err)
		}
		if err := decodeRunConfig(bytes.NewReader(data), &cfg); err != nil {
			return cfg, fmt.Errorf("parsing run config %s: %w", path, err)
		}
	}

	overrides := pflag.NewFlagSet("overrides", pflag.ContinueOnError)
	bindRunFlags(overrides, &cfg)
	var err error
	cmd.Flags().Visit(func(f *pflag.Flag) {
		if err != nil || overrides.Lookup(f.Name) == nil {
			return
		}
		err = overrides.Set(f.Name, f.Value.String())
	})
	if cfg.FCC != "" && !cmd.Flags().Changed("grid-folder") {
		cfg.GridFolder = ""
	}
	return cfg, err
}

// indexPath returns the configured index or the default inside the output folder.
func (c RunConfig) indexPath(file string) string {
	if c.Index != "" {
		return c.Index
	}
	return filepath.Join(c.Folder, file)
}

// simConfig converts the options into a validated simulator configuration.
func (c RunConfig) simConfig() (sim.SimulatorConfig, error) {
	niter, err := parseIterations(c.Iterations)
	if err != nil {
		return sim.SimulatorConfig{}, err
	}
	num, den, err := parseCutoff(c.Cutoff)
	if err != nil {
		return sim.SimulatorConfig{}, err
	}
	if !sim.IsValidScheduleMode(c.Schedule) {
		return sim.SimulatorConfig{}, fmt.Errorf("unknown schedule %q", c.Schedule)
	}
	model, err := c.energyModel()
	if err != nil {
		return sim.SimulatorConfig{}, err
	}
	anneal := sim.AnnealConfig{
		Iterations:         niter,
		CutoffNum:          num,
		CutoffDen:          den,
		Temperature:        c.Temperature,
		HeatingTemperature: c.HeatingTemperature,
		Mode:               sim.ScheduleMode(c.Schedule),
	}
	if c.BeginTemperature != 0 {
		start := c.BeginTemperature
		anneal.StartTemperature = &start
	}
	cfg := sim.SimulatorConfig{
		Anneal: anneal,
		Energy: model,
		Record: sim.RecordConfig{
			Sections:        c.Sections,
			SampleEvery:     c.SampleEvery,
			UniqueLevels:    c.UniqueLevels,
			RecordEntireRun: c.RecordEntireRun,
			HeatMap:         c.HeatMap,
			Snapshots:       c.WriteSnapshots || c.HeatMap,
		},
	}
	if err := cfg.Validate(); err != nil {
		return sim.SimulatorConfig{}, err
	}
	return cfg, nil
}
