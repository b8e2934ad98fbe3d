package sim

import "github.com/lattice-mc/lattice-mc/sim/record"

// sectionStats accumulates samples and emits one record.Section per section.
// Section i covers iterations [i·size, (i+1)·size), the last one running to the end.
type sectionStats struct {
	size        int64
	count       int
	sampleEvery int64
	niter       int64

	cur         int
	first       int64
	samples     int
	energySum   int64
	histSamples int
	histSum     [record.NumCN]int64

	done []record.Section
}

func newSectionStats(niter int64, sections int, sampleEvery int64) *sectionStats {
	size := niter / int64(sections)
	if size < 1 {
		size = 1
	}
	return &sectionStats{size: size, count: sections, sampleEvery: sampleEvery, niter: niter}
}

func (st *sectionStats) index(iter int64) int {
	i := iter / st.size
	if i >= int64(st.count) {
		return st.count - 1
	}
	return int(i)
}

// observe is called once per iteration after the step. It samples the lattice when due
// and returns a finished section when iter closes one.
func (st *sectionStats) observe(iter int64, energy int64, l *Lattice, temperature float64) (record.Section, bool) {
	if iter%st.sampleEvery == 0 {
		st.samples++
		st.energySum += energy
		if l.Tracking() {
			st.histSamples++
			for cn, c := range l.Histogram() {
				st.histSum[cn] += int64(c)
			}
		}
	}
	last := iter == st.niter-1 || st.index(iter+1) != st.cur
	if !last {
		return record.Section{}, false
	}
	sec := record.Section{
		Index:          st.cur,
		FirstIteration: st.first,
		LastIteration:  iter,
		Samples:        st.samples,
		Temperature:    temperature,
	}
	if st.samples > 0 {
		sec.MeanEnergy = record.Milli(st.energySum) / float64(st.samples)
	}
	if st.histSamples > 0 {
		for cn, sum := range st.histSum {
			sec.MeanHistogram[cn] = float64(sum) / float64(st.histSamples)
		}
	}
	st.done = append(st.done, sec)

	st.cur = st.index(iter + 1)
	st.first = iter + 1
	st.samples, st.energySum, st.histSamples = 0, 0, 0
	st.histSum = [record.NumCN]int64{}
	return sec, true
}
