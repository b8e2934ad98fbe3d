package record

import (
	"gonum.org/v1/gonum/stat"
)

// Summary aggregates statistics from a Result.
type Summary struct {
	Iterations       int64
	AcceptanceRatio  float64
	StartEnergy      float64 // eV
	FinalEnergy      float64
	BestEnergy       float64 // equals FinalEnergy if no best was recorded
	MeanSection      float64 // mean of section mean energies
	StdDevSection    float64
	MeanHistogram    [NumCN]float64 // over all sections
	UniqueLevels     int
	MostVisitedLevel *UniqueLevel
}

// Summarize computes aggregate statistics from a Result.
// Safe for nil or empty results (returns zero-value fields).
func Summarize(r *Result) *Summary {
	s := &Summary{}
	if r == nil {
		return s
	}
	s.Iterations = r.Iterations
	if r.Iterations > 0 {
		s.AcceptanceRatio = float64(r.Accepted) / float64(r.Iterations)
	}
	s.StartEnergy = Milli(r.StartEnergy)
	s.FinalEnergy = Milli(r.FinalEnergy)
	s.BestEnergy = s.FinalEnergy
	if r.Best != nil {
		s.BestEnergy = Milli(r.Best.Energy)
	}

	var energies, weights []float64
	for _, sec := range r.Sections {
		if sec.Samples == 0 {
			continue
		}
		energies = append(energies, sec.MeanEnergy)
		weights = append(weights, float64(sec.Samples))
	}
	switch len(energies) {
	case 0:
	case 1:
		s.MeanSection = energies[0]
	default:
		s.MeanSection, s.StdDevSection = stat.MeanStdDev(energies, weights)
	}
	if len(energies) > 0 {
		col := make([]float64, 0, len(energies))
		for cn := range s.MeanHistogram {
			col = col[:0]
			for _, sec := range r.Sections {
				if sec.Samples > 0 {
					col = append(col, sec.MeanHistogram[cn])
				}
			}
			s.MeanHistogram[cn] = stat.Mean(col, weights)
		}
	}

	s.UniqueLevels = len(r.UniqueLevels)
	for i := range r.UniqueLevels {
		if s.MostVisitedLevel == nil || r.UniqueLevels[i].Count > s.MostVisitedLevel.Count {
			s.MostVisitedLevel = &r.UniqueLevels[i]
		}
	}
	return s
}
