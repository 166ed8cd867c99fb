package kepsilon

import (
	"errors"
	"fmt"
	"math"

	"github.com/james-bowman/sparse"
	"github.com/james-bowman/sparse/blas"
)

// ErrNotConverged is wrapped when the sweep limit is reached above tolerance.
// x then holds the last iterate.
var ErrNotConverged = errors.New("not converged")

// System is A x = B assembled cell by cell into a DOK matrix and solved
// from its CSR form.
type System struct {
	M    *sparse.DOK
	B    []float64
	name string
}

func NewSystem(name string, n int) *System {
	return &System{
		M:    sparse.NewDOK(n, n),
		B:    make([]float64, n),
		name: name,
	}
}

// Add accumulates v into A[i][j]
func (s *System) Add(i, j int, v float64) {
	if v == 0 {
		return
	}
	s.M.Set(i, j, s.M.At(i, j)+v)
}

// SolveGaussSeidel iterates x in place until the largest update relative to
// the largest |x| is below tol, or maxIter sweeps.
func (s *System) SolveGaussSeidel(x []float64, maxIter int, tol float64) (iters int, residual float64, err error) {
	var (
		A    *blas.SparseMatrix = s.M.ToCSR().RawMatrix()
		diag                    = make([]float64, A.I)
	)
	if len(x) != A.I || len(s.B) != A.I {
		return 0, 0, fmt.Errorf("%s: system of %d rows, solution %d, source %d", s.name, A.I, len(x), len(s.B))
	}
	for i := 0; i < A.I; i++ {
		for jj := A.Indptr[i]; jj < A.Indptr[i+1]; jj++ {
			if A.Ind[jj] == i {
				diag[i] = A.Data[jj]
			}
		}
		if diag[i] == 0 {
			return 0, 0, fmt.Errorf("%s: zero diagonal in row %d", s.name, i)
		}
	}
	for iters = 1; iters <= maxIter; iters++ {
		var maxDx, maxX float64
		for i := 0; i < A.I; i++ {
			sum := s.B[i]
			for jj := A.Indptr[i]; jj < A.Indptr[i+1]; jj++ {
				if j := A.Ind[jj]; j != i {
					sum -= A.Data[jj] * x[j]
				}
			}
			xi := sum / diag[i]
			maxDx = math.Max(maxDx, math.Abs(xi-x[i]))
			maxX = math.Max(maxX, math.Abs(xi))
			x[i] = xi
		}
		if maxX > 0 {
			residual = maxDx / maxX
		} else {
			residual = maxDx
		}
		if math.IsNaN(residual) {
			return iters, residual, fmt.Errorf("%s: diverged after %d sweeps", s.name, iters)
		}
		if residual < tol {
			return
		}
	}
	return maxIter, residual, fmt.Errorf("%s: residual %g after %d sweeps: %w", s.name, residual, maxIter, ErrNotConverged)
}
