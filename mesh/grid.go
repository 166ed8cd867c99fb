// Package mesh is a uniform Cartesian cell-centred grid with the explicit
// calculus operators (gradient, divergence, time derivative) the closure
// diagnostics use and the face connectivity implicit assembly needs.
package mesh

import (
	"fmt"

	"github.com/notargets/mpturb/types"
)

type Grid struct {
	N   [3]int     // Cells per axis
	H   [3]float64 // Cell size per axis
	BCs [6]types.BCFLAG
}

func NewGrid(nx, ny, nz int, lx, ly, lz float64) (g *Grid, err error) {
	g = &Grid{N: [3]int{nx, ny, nz}}
	L := [3]float64{lx, ly, lz}
	for a := 0; a < 3; a++ {
		if g.N[a] < 1 {
			return nil, fmt.Errorf("grid axis %d: need at least one cell, have %d", a, g.N[a])
		}
		if L[a] <= 0 {
			return nil, fmt.Errorf("grid axis %d: length must be positive, have %g", a, L[a])
		}
		g.H[a] = L[a] / float64(g.N[a])
	}
	return
}

func (g *Grid) NCells() int { return g.N[0] * g.N[1] * g.N[2] }

func (g *Grid) Volume() float64 { return g.H[0] * g.H[1] * g.H[2] }

// Index is x-fastest
func (g *Grid) Index(i, j, k int) int { return i + g.N[0]*(j+g.N[1]*k) }

func (g *Grid) IJK(cell int) (ijk [3]int) {
	ijk[0] = cell % g.N[0]
	ijk[1] = (cell / g.N[0]) % g.N[1]
	ijk[2] = cell / (g.N[0] * g.N[1])
	return
}

func (g *Grid) Centre(cell int) (x [3]float64) {
	ijk := g.IJK(cell)
	for a := 0; a < 3; a++ {
		x[a] = (float64(ijk[a]) + 0.5) * g.H[a]
	}
	return
}

// Resolved reports whether the axis has more than one cell; derivatives
// along unresolved axes are zero.
func (g *Grid) Resolved(axis int) bool { return g.N[axis] > 1 }

func (g *Grid) stride(axis int) int {
	switch axis {
	case 0:
		return 1
	case 1:
		return g.N[0]
	}
	return g.N[0] * g.N[1]
}

// SetBC sets the boundary treatment of one domain face
func (g *Grid) SetBC(face types.Face, bc types.BCFLAG) { g.BCs[face] = bc }

func ghost(bc types.BCFLAG, f0, f1 float64) float64 {
	switch bc {
	case types.BC_Extrapolated:
		return 2*f0 - f1
	case types.BC_Wall:
		return -f0
	}
	return f0
}

// ddx is the central difference of f along axis at cell, using ghost values
// at the domain faces.
func (g *Grid) ddx(f func(cell int) float64, cell, axis int) float64 {
	if !g.Resolved(axis) {
		return 0
	}
	var (
		n      = g.N[axis]
		i      = g.IJK(cell)[axis]
		s      = g.stride(axis)
		fm, fp float64
	)
	switch i {
	case 0:
		fp = f(cell + s)
		fm = ghost(g.BCs[2*axis], f(cell), fp)
	case n - 1:
		fm = f(cell - s)
		fp = ghost(g.BCs[2*axis+1], f(cell), fm)
	default:
		fm, fp = f(cell-s), f(cell+s)
	}
	return (fp - fm) / (2 * g.H[axis])
}

// Connection is an internal face between two cells
type Connection struct {
	Owner, Neighbour int
	Axis             int
}

// Connections lists the internal faces, owner always the lower index
func (g *Grid) Connections() (conns []Connection) {
	for c := 0; c < g.NCells(); c++ {
		ijk := g.IJK(c)
		for a := 0; a < 3; a++ {
			if ijk[a] < g.N[a]-1 {
				conns = append(conns, Connection{Owner: c, Neighbour: c + g.stride(a), Axis: a})
			}
		}
	}
	return
}

// BoundaryCells returns the cells adjacent to a domain face. Faces normal
// to an unresolved axis have none.
func (g *Grid) BoundaryCells(face types.Face) (cells []int) {
	axis := int(face) / 2
	if !g.Resolved(axis) {
		return
	}
	at := 0
	if int(face)%2 == 1 {
		at = g.N[axis] - 1
	}
	for c := 0; c < g.NCells(); c++ {
		if g.IJK(c)[axis] == at {
			cells = append(cells, c)
		}
	}
	return
}
