package structure

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/lattice-mc/lattice-mc/sim"
	"github.com/lattice-mc/lattice-mc/sim/topology"
)

// MatchDistance2 is the largest squared distance (Å²) between an atom and the lattice
// site it is assigned to.
const MatchDistance2 = 0.15

// Atom is one entry of an .xyz frame.
type Atom struct {
	Element string
	Pos     [3]float64
}

// ReadXYZ reads the first frame of an .xyz stream: an atom count, a comment line, then
// "element x y z" per atom. Extra columns are ignored.
func ReadXYZ(r io.Reader) (atoms []Atom, comment string, err error) {
	sc := bufio.NewScanner(r)
	if !sc.Scan() {
		return nil, "", fmt.Errorf("xyz: missing atom count: %w", scanErr(sc))
	}
	n, err := strconv.Atoi(strings.TrimSpace(sc.Text()))
	if err != nil || n < 0 {
		return nil, "", fmt.Errorf("xyz: bad atom count %q", sc.Text())
	}
	if !sc.Scan() {
		return nil, "", fmt.Errorf("xyz: missing comment line: %w", scanErr(sc))
	}
	comment = sc.Text()
	atoms = make([]Atom, 0, n)
	for len(atoms) < n {
		if !sc.Scan() {
			return nil, "", fmt.Errorf("xyz: expected %d atoms, got %d: %w", n, len(atoms), scanErr(sc))
		}
		fields := strings.Fields(sc.Text())
		if len(fields) < 4 {
			return nil, "", fmt.Errorf("xyz: atom %d: want element and 3 coordinates", len(atoms))
		}
		var a Atom
		a.Element = fields[0]
		for d := 0; d < 3; d++ {
			if a.Pos[d], err = strconv.ParseFloat(fields[d+1], 64); err != nil {
				return nil, "", fmt.Errorf("xyz: atom %d: %w", len(atoms), err)
			}
		}
		atoms = append(atoms, a)
	}
	return atoms, comment, nil
}

func scanErr(sc *bufio.Scanner) error {
	if err := sc.Err(); err != nil {
		return err
	}
	return io.ErrUnexpectedEOF
}

// WriteXYZ writes one extended-xyz frame. A non-zero cell is written as the Lattice
// property of the comment line.
func WriteXYZ(w io.Writer, atoms []Atom, cell [3]float64) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d\n", len(atoms))
	if cell != [3]float64{} {
		fmt.Fprintf(bw, "Lattice=\"%g 0 0 0 %g 0 0 0 %g\" Properties=species:S:1:pos:R:3\n", cell[0], cell[1], cell[2])
	} else {
		bw.WriteString("Properties=species:S:1:pos:R:3\n")
	}
	for _, a := range atoms {
		fmt.Fprintf(bw, "%s %.6f %.6f %.6f\n", a.Element, a.Pos[0], a.Pos[1], a.Pos[2])
	}
	return bw.Flush()
}

// FromAtoms maps atoms onto lattice sites. Atoms named supportElement become support
// sites; all others must share a single element name, which is returned.
func FromAtoms(topo *topology.Topology, atoms []Atom, supportElement string) ([]sim.Occupancy, string, error) {
	pos := topo.Positions()
	if pos == nil {
		return nil, "", fmt.Errorf("structure: topology has no site positions")
	}
	occ := make([]sim.Occupancy, topo.NumSites())
	metal := ""
	for i, a := range atoms {
		want := sim.Metal
		if supportElement != "" && a.Element == supportElement {
			want = sim.Support
		} else if metal == "" {
			metal = a.Element
		} else if metal != a.Element {
			return nil, "", fmt.Errorf("structure: atom %d is %s, but the metal is %s; only one metal is supported", i, a.Element, metal)
		}
		matched := false
		for s, p := range pos {
			if dist2(a.Pos, p) < MatchDistance2 {
				if occ[s] != sim.Empty {
					return nil, "", fmt.Errorf("structure: atom %d lands on occupied site %d", i, s)
				}
				occ[s] = want
				matched = true
				break
			}
		}
		if !matched {
			return nil, "", fmt.Errorf("structure: atom %d (%s at %v) matches no lattice site", i, a.Element, a.Pos)
		}
	}
	return occ, metal, nil
}

// ToAtoms lists the metal sites followed by every support site of occ as atoms.
// topo must carry site positions.
func ToAtoms(topo *topology.Topology, metal []uint32, occ []sim.Occupancy, metalElement, supportElement string) []Atom {
	pos := topo.Positions()
	out := make([]Atom, 0, len(metal))
	for _, s := range metal {
		out = append(out, Atom{Element: metalElement, Pos: pos[s]})
	}
	for s, o := range occ {
		if o == sim.Support {
			out = append(out, Atom{Element: supportElement, Pos: pos[s]})
		}
	}
	return out
}
