package sim

import (
	"fmt"
	"math"
	"math/rand"
)

// KB is the Boltzmann constant in eV/K.
const KB = 8.6173324e-5

// DefaultHeatingTemperature is the ramp start when no start temperature is given.
const DefaultHeatingTemperature = 5000.0

// ScheduleMode selects the temperature schedule.
type ScheduleMode string

const (
	// ScheduleRamp falls linearly to the target until the cutoff and holds it afterwards.
	ScheduleRamp ScheduleMode = "ramp"
	// ScheduleTwoStage falls from the heating temperature to the start temperature until
	// the cutoff, then from the start temperature to the target over the rest of the run.
	ScheduleTwoStage ScheduleMode = "two-stage"
)

// validScheduleModes maps accepted schedule names.
var validScheduleModes = map[ScheduleMode]bool{
	ScheduleRamp:     true,
	ScheduleTwoStage: true,
	"":               true, // empty defaults to ramp
}

// IsValidScheduleMode returns true if the given name is a recognized schedule.
func IsValidScheduleMode(name string) bool {
	return validScheduleModes[ScheduleMode(name)]
}

// AnnealConfig groups the temperature schedule parameters.
type AnnealConfig struct {
	Iterations         int64
	CutoffNum          int64 // recording starts at Iterations·CutoffNum/CutoffDen
	CutoffDen          int64 // 0 means the default cutoff 1/2
	StartTemperature   *float64
	Temperature        float64 // target, K
	HeatingTemperature float64 // 0 means DefaultHeatingTemperature
	Mode               ScheduleMode
}

// WithDefaults returns a copy with zero-valued optional fields filled in.
func (c AnnealConfig) WithDefaults() AnnealConfig {
	if c.CutoffDen == 0 {
		c.CutoffNum, c.CutoffDen = 1, 2
	}
	if c.HeatingTemperature == 0 {
		c.HeatingTemperature = DefaultHeatingTemperature
	}
	if c.Mode == "" {
		c.Mode = ScheduleRamp
	}
	return c
}

// Validate checks the schedule after defaults are applied.
func (c AnnealConfig) Validate() error {
	c = c.WithDefaults()
	if c.Iterations <= 0 {
		return fmt.Errorf("iterations must be positive, got %d", c.Iterations)
	}
	if c.CutoffDen < 0 || c.CutoffNum < 0 || c.CutoffNum > c.CutoffDen {
		return fmt.Errorf("cutoff %d/%d must lie in [0,1]", c.CutoffNum, c.CutoffDen)
	}
	if c.Iterations > math.MaxInt64/c.CutoffDen {
		return fmt.Errorf("iterations %d too large for cutoff denominator %d", c.Iterations, c.CutoffDen)
	}
	if !validTemperature(c.Temperature) {
		return fmt.Errorf("temperature must be finite and non-negative, got %v", c.Temperature)
	}
	if !validTemperature(c.HeatingTemperature) {
		return fmt.Errorf("heating temperature must be finite and non-negative, got %v", c.HeatingTemperature)
	}
	if c.StartTemperature != nil && !validTemperature(*c.StartTemperature) {
		return fmt.Errorf("start temperature must be finite and non-negative, got %v", *c.StartTemperature)
	}
	if !validScheduleModes[c.Mode] {
		return fmt.Errorf("unknown schedule %q", c.Mode)
	}
	if c.Mode == ScheduleTwoStage && c.StartTemperature == nil {
		return fmt.Errorf("schedule %q needs a start temperature", c.Mode)
	}
	return nil
}

func validTemperature(t float64) bool {
	return !math.IsNaN(t) && !math.IsInf(t, 0) && t >= 0
}

// Annealer evaluates the temperature schedule and the Metropolis criterion.
type Annealer struct {
	cfg AnnealConfig
}

// NewAnnealer validates cfg and applies its defaults.
func NewAnnealer(cfg AnnealConfig) (*Annealer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Annealer{cfg: cfg.WithDefaults()}, nil
}

// Config returns the effective configuration.
func (a *Annealer) Config() AnnealConfig { return a.cfg }

// cutoffPoint is Iterations·CutoffNum/CutoffDen as a real number.
func (a *Annealer) cutoffPoint() float64 {
	return float64(a.cfg.Iterations) * float64(a.cfg.CutoffNum) / float64(a.cfg.CutoffDen)
}

// Temperature returns the temperature at iteration iter.
func (a *Annealer) Temperature(iter int64) float64 {
	c := a.cfg
	cut := a.cutoffPoint()
	it := float64(iter)

	switch c.Mode {
	case ScheduleTwoStage:
		start := *c.StartTemperature
		if it <= cut && cut > 0 {
			return c.HeatingTemperature - it/cut*(c.HeatingTemperature-start)
		}
		rest := float64(c.Iterations) - cut
		if rest <= 0 {
			return c.Temperature
		}
		frac := math.Min((it-cut)/rest, 1)
		return start - frac*(start-c.Temperature)
	default:
		from := c.HeatingTemperature
		if c.StartTemperature != nil {
			from = *c.StartTemperature
		}
		if it <= cut && cut > 0 {
			return from - it/cut*(from-c.Temperature)
		}
		return c.Temperature
	}
}

// Recording reports whether iter is at or past the cutoff, using exact integer arithmetic.
func (a *Annealer) Recording(iter int64) bool {
	return iter*a.cfg.CutoffDen >= a.cfg.Iterations*a.cfg.CutoffNum
}

// Accept applies the Metropolis criterion to an energy change in milli-units.
// Downhill and neutral moves always pass and consume no random number.
func (a *Annealer) Accept(dE int64, iter int64, rng *rand.Rand) bool {
	if dE <= 0 {
		return true
	}
	t := a.Temperature(iter)
	if t <= 0 {
		return false
	}
	return rng.Float64() < math.Exp(-(float64(dE)/1000)/(KB*t))
}
