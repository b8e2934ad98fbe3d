package topology

import "fmt"

// fcc basis in half-lattice-constant units.
var fccBasis = [4][3]int{{0, 0, 0}, {0, 1, 1}, {1, 0, 1}, {1, 1, 0}}

// fccNeighborOffsets are the twelve (±1,±1,0) permutations in half units.
var fccNeighborOffsets = [Degree][3]int{
	{1, 1, 0}, {1, -1, 0}, {-1, 1, 0}, {-1, -1, 0},
	{1, 0, 1}, {1, 0, -1}, {-1, 0, 1}, {-1, 0, -1},
	{0, 1, 1}, {0, 1, -1}, {0, -1, 1}, {0, -1, -1},
}

// NewFCC builds a periodic face-centered-cubic lattice of nx×ny×nz conventional cells
// (four sites each) with lattice constant a. Each dimension needs at least two cells
// so that the twelve neighbors of a site are distinct.
//
// Site index = ((i*ny + j)*nz + k)*4 + basis.
func NewFCC(nx, ny, nz int, a float64) (*Topology, error) {
	if nx < 2 || ny < 2 || nz < 2 {
		return nil, fmt.Errorf("fcc: need at least 2 cells per dimension, got %dx%dx%d", nx, ny, nz)
	}
	if a <= 0 {
		return nil, fmt.Errorf("fcc: lattice constant must be positive, got %f", a)
	}
	dims := [3]int{nx, ny, nz}
	ext := [3]int{2 * nx, 2 * ny, 2 * nz}
	nsites := nx * ny * nz * 4

	index := func(h [3]int) uint32 {
		var c, b [3]int
		for d := 0; d < 3; d++ {
			v := ((h[d] % ext[d]) + ext[d]) % ext[d]
			c[d], b[d] = v/2, v%2
		}
		basis := 0
		for i, fb := range fccBasis {
			if fb == b {
				basis = i
				break
			}
		}
		return uint32(((c[0]*dims[1]+c[1])*dims[2]+c[2])*4 + basis)
	}

	neighbors := make([][Degree]uint32, nsites)
	positions := make([][3]float64, nsites)
	for i := 0; i < nx; i++ {
		for j := 0; j < ny; j++ {
			for k := 0; k < nz; k++ {
				for b, fb := range fccBasis {
					h := [3]int{2*i + fb[0], 2*j + fb[1], 2*k + fb[2]}
					s := index(h)
					if int(s) != ((i*ny+j)*nz+k)*4+b {
						return nil, fmt.Errorf("fcc: index mismatch at cell (%d,%d,%d) basis %d", i, j, k, b)
					}
					for n, off := range fccNeighborOffsets {
						neighbors[s][n] = index([3]int{h[0] + off[0], h[1] + off[1], h[2] + off[2]})
					}
					positions[s] = [3]float64{float64(h[0]) * a / 2, float64(h[1]) * a / 2, float64(h[2]) * a / 2}
				}
			}
		}
	}

	t, err := New(neighbors)
	if err != nil {
		return nil, fmt.Errorf("fcc: %w", err)
	}
	if err := t.WithPositions(positions, [3]float64{float64(nx) * a, float64(ny) * a, float64(nz) * a}); err != nil {
		return nil, err
	}
	return t, nil
}
