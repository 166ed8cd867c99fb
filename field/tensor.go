package field

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func cellMatrix(data []float64, cell int) *mat.Dense {
	return mat.NewDense(3, 3, data[9*cell:9*cell+9])
}

// TwoSymm returns T + T^T
func TwoSymm(name string, t *Tensor) (r *Tensor) {
	r = NewTensor(name, t.Len(), t.Dims)
	forEach(t.Len(), func(kMin, kMax int) {
		for i := kMin; i < kMax; i++ {
			A := cellMatrix(t.Data, i)
			cellMatrix(r.Data, i).Add(A, A.T())
		}
	})
	return
}

// Dev returns the deviatoric part T - tr(T)/3 I
func Dev(name string, t *Tensor) (r *Tensor) {
	r = NewTensor(name, t.Len(), t.Dims)
	forEach(t.Len(), func(kMin, kMax int) {
		for i := kMin; i < kMax; i++ {
			A := cellMatrix(t.Data, i)
			R := cellMatrix(r.Data, i)
			R.Copy(A)
			third := mat.Trace(A) / 3
			for d := 0; d < 3; d++ {
				R.Set(d, d, R.At(d, d)-third)
			}
		}
	})
	return
}

// DoubleDot returns a && b, the sum over i,j of a_ij b_ij
func DoubleDot(name string, a, b *Tensor) (r *Scalar, err error) {
	if a.Len() != b.Len() {
		return nil, fmt.Errorf("field size mismatch: %s has %d cells, %s has %d",
			a.Name, a.Len(), b.Name, b.Len())
	}
	r = NewScalar(name, a.Len(), 0, MulDims(a.Dims, b.Dims))
	forEach(a.Len(), func(kMin, kMax int) {
		for i := kMin; i < kMax; i++ {
			r.Data[i] = floats.Dot(a.Data[9*i:9*i+9], b.Data[9*i:9*i+9])
		}
	})
	return
}

// ScaleTensor returns s*T per cell
func ScaleTensor(name string, s *Scalar, t *Tensor) (r *Tensor, err error) {
	if s.Len() != t.Len() {
		return nil, fmt.Errorf("field size mismatch: %s has %d cells, %s has %d",
			s.Name, s.Len(), t.Name, t.Len())
	}
	r = NewTensor(name, t.Len(), MulDims(s.Dims, t.Dims))
	forEach(t.Len(), func(kMin, kMax int) {
		for i := kMin; i < kMax; i++ {
			floats.ScaleTo(r.Data[9*i:9*i+9], s.Data[i], t.Data[9*i:9*i+9])
		}
	})
	return
}
