package topology

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// Grid folder file names.
const (
	NeighborFile = "nearest_neighbor"
	SitesFile    = "atom_sites"
	CellFile     = "unit_cell"
)

// Load reads a grid folder. nearest_neighbor is required: one line per site,
// "site n1 ... n12". atom_sites ("x y z" per line, in site order) and unit_cell
// ("a b c") are optional.
func Load(dir string) (*Topology, error) {
	f, err := os.Open(filepath.Join(dir, NeighborFile))
	if err != nil {
		return nil, fmt.Errorf("reading neighbor table: %w", err)
	}
	defer f.Close()
	logrus.Infof("reading neighbor table from %s", f.Name())

	neighbors, err := ParseNeighbors(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", f.Name(), err)
	}
	t, err := New(neighbors)
	if err != nil {
		return nil, err
	}

	positions, err := readPositions(filepath.Join(dir, SitesFile))
	switch {
	case errors.Is(err, os.ErrNotExist):
		logrus.Warnf("no %s in %s; structure output will be unavailable", SitesFile, dir)
		return t, nil
	case err != nil:
		return nil, err
	}
	var cell [3]float64
	if c, err := readCell(filepath.Join(dir, CellFile)); err == nil {
		cell = c
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if err := t.WithPositions(positions, cell); err != nil {
		return nil, err
	}
	return t, nil
}

// ParseNeighbors reads "site n1 ... n12" lines. Every site in [0, nsites) must appear
// exactly once; blank lines are skipped.
func ParseNeighbors(r io.Reader) ([][Degree]uint32, error) {
	rows := make(map[uint32][Degree]uint32)
	maxSite := -1
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != Degree+1 {
			return nil, fmt.Errorf("line %d: want %d fields, got %d", line, Degree+1, len(fields))
		}
		var vals [Degree + 1]uint32
		for i, fld := range fields {
			v, err := strconv.ParseUint(fld, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			vals[i] = uint32(v)
		}
		site := vals[0]
		if _, dup := rows[site]; dup {
			return nil, fmt.Errorf("line %d: site %d listed twice", line, site)
		}
		var nn [Degree]uint32
		copy(nn[:], vals[1:])
		rows[site] = nn
		maxSite = max(maxSite, int(site))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(rows) != maxSite+1 {
		return nil, fmt.Errorf("%d rows but highest site is %d", len(rows), maxSite)
	}
	out := make([][Degree]uint32, len(rows))
	for s, nn := range rows {
		out[s] = nn
	}
	return out, nil
}

func readPositions(path string) ([][3]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out [][3]float64
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 3 {
			return nil, fmt.Errorf("%s line %d: want 3 coordinates", path, line)
		}
		p, err := parseVec(fields[:3])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		out = append(out, p)
	}
	return out, sc.Err()
}

func readCell(path string) ([3]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return [3]float64{}, err
	}
	fields := strings.Fields(string(data))
	if len(fields) < 3 {
		return [3]float64{}, fmt.Errorf("%s: want 3 cell lengths", path)
	}
	return parseVec(fields[:3])
}

func parseVec(fields []string) ([3]float64, error) {
	var v [3]float64
	for i := range v {
		x, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return v, err
		}
		v[i] = x
	}
	return v, nil
}

// Save writes t as a grid folder readable by Load.
func Save(dir string, t *Topology) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := writeLines(filepath.Join(dir, NeighborFile), t.NumSites(), func(w *bufio.Writer, s int) {
		w.WriteString(strconv.Itoa(s))
		for _, o := range t.neighbors[s] {
			w.WriteByte(' ')
			w.WriteString(strconv.FormatUint(uint64(o), 10))
		}
	}); err != nil {
		return err
	}
	if t.positions == nil {
		return nil
	}
	if err := writeLines(filepath.Join(dir, SitesFile), t.NumSites(), func(w *bufio.Writer, s int) {
		p := t.positions[s]
		fmt.Fprintf(w, "%.8f %.8f %.8f", p[0], p[1], p[2])
	}); err != nil {
		return err
	}
	return writeLines(filepath.Join(dir, CellFile), 1, func(w *bufio.Writer, _ int) {
		fmt.Fprintf(w, "%.8f %.8f %.8f", t.cell[0], t.cell[1], t.cell[2])
	})
}

func writeLines(path string, n int, line func(w *bufio.Writer, i int)) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	for i := 0; i < n; i++ {
		line(w, i)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
