package sim

import "fmt"

const (
	DefaultSections     = 10000
	DefaultSampleEvery  = 1000
	DefaultNumSnapshots = 200
)

// RecordConfig groups what the simulator reports besides the final state.
type RecordConfig struct {
	Sections        int   // section count (0 = DefaultSections)
	SampleEvery     int64 // iterations between section samples (0 = DefaultSampleEvery)
	UniqueLevels    int   // distinct CN histograms to count after the cutoff (0 = off)
	RecordEntireRun bool  // track the histogram from iteration 0 instead of from the cutoff
	HeatMap         bool  // count both endpoints of every accepted move per site
	Snapshots       bool  // emit raw occupancy snapshots
	NumSnapshots    int   // snapshots per run (0 = DefaultNumSnapshots)
}

// WithDefaults returns a copy with zero-valued counts filled in.
func (c RecordConfig) WithDefaults() RecordConfig {
	if c.Sections == 0 {
		c.Sections = DefaultSections
	}
	if c.SampleEvery == 0 {
		c.SampleEvery = DefaultSampleEvery
	}
	if c.NumSnapshots == 0 {
		c.NumSnapshots = DefaultNumSnapshots
	}
	return c
}

// Validate checks the counts after defaults are applied.
func (c RecordConfig) Validate() error {
	c = c.WithDefaults()
	if c.Sections < 0 {
		return fmt.Errorf("sections must be positive, got %d", c.Sections)
	}
	if c.SampleEvery < 0 {
		return fmt.Errorf("sample interval must be positive, got %d", c.SampleEvery)
	}
	if c.UniqueLevels < 0 {
		return fmt.Errorf("unique level limit must be non-negative, got %d", c.UniqueLevels)
	}
	if c.NumSnapshots < 0 {
		return fmt.Errorf("snapshot count must be positive, got %d", c.NumSnapshots)
	}
	return nil
}

// SimulatorConfig groups everything NewSimulator needs besides the lattice and the RNG.
type SimulatorConfig struct {
	Anneal AnnealConfig
	Energy EnergyModel
	Record RecordConfig
	Label  string // prefix for progress log lines (e.g. "rep 3")
}

// Validate checks every group.
func (c SimulatorConfig) Validate() error {
	if err := c.Anneal.Validate(); err != nil {
		return fmt.Errorf("anneal: %w", err)
	}
	if err := c.Energy.Validate(); err != nil {
		return fmt.Errorf("energy: %w", err)
	}
	if err := c.Record.Validate(); err != nil {
		return fmt.Errorf("record: %w", err)
	}
	return nil
}
