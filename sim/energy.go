package sim

import (
	"fmt"
	"math"
)

// EnergyKind selects the per-atom energy function.
type EnergyKind int

const (
	LinearCN EnergyKind = iota
	TableCN
	LinearGCN
	TableGCN
)

const (
	// MaxCN is the largest coordination number on a degree-12 lattice.
	MaxCN = 12
	// MaxGCN is the largest generalized coordination number (12 neighbors of CN 12).
	MaxGCN = MaxCN * MaxCN
)

var energyKindNames = map[EnergyKind]string{
	LinearCN:  "linear-cn",
	TableCN:   "table-cn",
	LinearGCN: "linear-gcn",
	TableGCN:  "table-gcn",
}

func (k EnergyKind) String() string {
	if name, ok := energyKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("EnergyKind(%d)", int(k))
}

// UsesGCN reports whether the model is indexed by GCN rather than CN.
func (k EnergyKind) UsesGCN() bool { return k == LinearGCN || k == TableGCN }

// ToMilli converts an energy in eV to the fixed-point milli-unit representation.
func ToMilli(e float64) int64 { return int64(math.Round(e * 1000)) }

// EnergyModel is the per-atom energy as a function of CN or GCN and of support adjacency.
// All values are milli-units. Only the fields relevant to Kind are read.
type EnergyModel struct {
	Kind      EnergyKind
	Slope     int64
	Intercept int64
	Table     []int64 // MaxCN+1 or MaxGCN+1 entries
	Adsorbate []int64 // optional, same length as Table; added on support-adjacent sites
	Support   int64   // added on support-adjacent sites
}

// NewLinearCN creates E = slope·cn + intercept (+ support).
func NewLinearCN(slope, intercept, support float64) (EnergyModel, error) {
	return newLinear(LinearCN, slope, intercept, support)
}

// NewLinearGCN creates E = slope·gcn + intercept (+ support).
func NewLinearGCN(slope, intercept, support float64) (EnergyModel, error) {
	return newLinear(LinearGCN, slope, intercept, support)
}

// NewTableCN creates E = table[cn] (+ adsorbate[cn]) (+ support). table needs 13 entries;
// adsorbate is nil or 13 entries.
func NewTableCN(table, adsorbate []float64, support float64) (EnergyModel, error) {
	return newTable(TableCN, table, adsorbate, support)
}

// NewTableGCN creates E = table[gcn] (+ adsorbate[gcn]) (+ support). table needs 145
// entries; adsorbate is nil or 145 entries.
func NewTableGCN(table, adsorbate []float64, support float64) (EnergyModel, error) {
	return newTable(TableGCN, table, adsorbate, support)
}

func newLinear(kind EnergyKind, slope, intercept, support float64) (EnergyModel, error) {
	for _, v := range []float64{slope, intercept, support} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return EnergyModel{}, fmt.Errorf("%s: coefficient %v is not finite", kind, v)
		}
	}
	return EnergyModel{Kind: kind, Slope: ToMilli(slope), Intercept: ToMilli(intercept), Support: ToMilli(support)}, nil
}

func newTable(kind EnergyKind, table, adsorbate []float64, support float64) (EnergyModel, error) {
	m := EnergyModel{Kind: kind, Support: ToMilli(support)}
	var err error
	if m.Table, err = toMilliTable(table); err != nil {
		return EnergyModel{}, fmt.Errorf("%s table: %w", kind, err)
	}
	if adsorbate != nil {
		if m.Adsorbate, err = toMilliTable(adsorbate); err != nil {
			return EnergyModel{}, fmt.Errorf("%s adsorbate table: %w", kind, err)
		}
	}
	if math.IsNaN(support) || math.IsInf(support, 0) {
		return EnergyModel{}, fmt.Errorf("%s: support energy %v is not finite", kind, support)
	}
	if err := m.Validate(); err != nil {
		return EnergyModel{}, err
	}
	return m, nil
}

func toMilliTable(vals []float64) ([]int64, error) {
	out := make([]int64, len(vals))
	for i, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("entry %d (%v) is not finite", i, v)
		}
		out[i] = ToMilli(v)
	}
	return out, nil
}

// Domain returns the number of valid indices: 13 for CN kinds, 145 for GCN kinds.
func (m EnergyModel) Domain() int {
	if m.Kind.UsesGCN() {
		return MaxGCN + 1
	}
	return MaxCN + 1
}

// Validate checks Kind and table lengths.
func (m EnergyModel) Validate() error {
	if _, ok := energyKindNames[m.Kind]; !ok {
		return fmt.Errorf("unknown energy model kind %d", int(m.Kind))
	}
	if m.Kind == TableCN || m.Kind == TableGCN {
		if len(m.Table) != m.Domain() {
			return fmt.Errorf("%s: table needs %d entries, got %d", m.Kind, m.Domain(), len(m.Table))
		}
		if m.Adsorbate != nil && len(m.Adsorbate) != m.Domain() {
			return fmt.Errorf("%s: adsorbate table needs %d entries, got %d", m.Kind, m.Domain(), len(m.Adsorbate))
		}
	}
	return nil
}

// EnergyOf returns the energy of one metal atom with CN or GCN x. An x outside the
// model's domain panics.
func (m EnergyModel) EnergyOf(x int, supportAdjacent bool) int64 {
	if x < 0 || x >= m.Domain() {
		violate("energy index inside table domain", -1, fmt.Sprintf("%s index %d", m.Kind, x))
	}
	return m.energy(x, supportAdjacent)
}

// siteEnergy is EnergyOf for the atom at site, which is named in the violation.
func (m EnergyModel) siteEnergy(x int, supportAdjacent bool, site uint32) int64 {
	if x < 0 || x >= m.Domain() {
		violate("energy index inside table domain", -1, fmt.Sprintf("%s index %d", m.Kind, x), site)
	}
	return m.energy(x, supportAdjacent)
}

func (m EnergyModel) energy(x int, supportAdjacent bool) int64 {
	var e int64
	switch m.Kind {
	case LinearCN, LinearGCN:
		e = m.Slope*int64(x) + m.Intercept
	case TableCN, TableGCN:
		e = m.Table[x]
		if supportAdjacent && m.Adsorbate != nil {
			e += m.Adsorbate[x]
		}
	}
	if supportAdjacent {
		e += m.Support
	}
	return e
}

func (m EnergyModel) index(l *Lattice, s uint32) int {
	if m.Kind.UsesGCN() {
		return l.GCN(s)
	}
	return l.CN(s)
}

// Total sums EnergyOf over all metal atoms from the current caches.
func (m EnergyModel) Total(l *Lattice) int64 {
	var e int64
	for _, s := range l.Atoms() {
		e += m.siteEnergy(m.index(l, s), l.SupportAdjacent(s), s)
	}
	return e
}

// Diff returns the energy change of moving the atom at from into the empty site to,
// without modifying l.
func (m EnergyModel) Diff(l *Lattice, from, to uint32) int64 {
	sFrom, sTo := l.SupportAdjacent(from), l.SupportAdjacent(to)
	switch m.Kind {
	case LinearCN:
		d := 2 * m.Slope * int64(l.CN(to)-1-l.CN(from))
		if sTo != sFrom {
			if sTo {
				d += m.Support
			} else {
				d -= m.Support
			}
		}
		return d
	case TableCN:
		sp, ok := l.Topology().Split(from, to)
		if !ok {
			violate("decomposition exists for adjacent pair", -1, "", from, to)
		}
		var d int64
		for _, o := range sp.FromOnly {
			if l.At(o) == Metal {
				cn, sa := l.CN(o), l.SupportAdjacent(o)
				d += m.siteEnergy(cn-1, sa, o) - m.siteEnergy(cn, sa, o)
			}
		}
		for _, o := range sp.ToOnly {
			if l.At(o) == Metal {
				cn, sa := l.CN(o), l.SupportAdjacent(o)
				d += m.siteEnergy(cn+1, sa, o) - m.siteEnergy(cn, sa, o)
			}
		}
		return d + m.siteEnergy(l.CN(to)-1, sTo, to) - m.siteEnergy(l.CN(from), sFrom, from)
	default:
		return m.diffGCN(l, from, to)
	}
}

// diffGCN evaluates GCN before and after the move for every site whose GCN can change.
// After the move from is empty, to is metal, neighbors of from lose one CN and
// neighbors of to gain one.
func (m EnergyModel) diffGCN(l *Lattice, from, to uint32) int64 {
	topo := l.Topology()
	occAfter := func(s uint32) Occupancy {
		switch s {
		case from:
			return Empty
		case to:
			return Metal
		}
		return l.At(s)
	}
	cnAfter := func(s uint32) int {
		c := l.CN(s)
		if topo.Adjacent(s, from) {
			c--
		}
		if topo.Adjacent(s, to) {
			c++
		}
		return c
	}

	var d int64
	for _, s := range l.collectAffected(from, to) {
		sa := l.SupportAdjacent(s)
		if l.At(s) == Metal {
			d -= m.siteEnergy(l.GCN(s), sa, s)
		}
		if occAfter(s) == Metal {
			g := 0
			for _, n := range topo.Neighbors(s) {
				if occAfter(n) == Metal {
					g += cnAfter(n)
				}
			}
			d += m.siteEnergy(g, sa, s)
		}
	}
	return d
}
