package field

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

func sameSize(a *Scalar, b ...*Scalar) error {
	for _, bb := range b {
		if len(bb.Data) != len(a.Data) {
			return fmt.Errorf("field size mismatch: %s has %d cells, %s has %d",
				a.Name, len(a.Data), bb.Name, len(bb.Data))
		}
	}
	return nil
}

// Mul returns the cellwise product of all arguments
func Mul(name string, a *Scalar, b ...*Scalar) (r *Scalar, err error) {
	if err = sameSize(a, b...); err != nil {
		return
	}
	d := a.Dims
	r = a.Copy(name)
	for _, bb := range b {
		d = MulDims(d, bb.Dims)
		bd := bb.Data
		forEach(r.Len(), func(kMin, kMax int) {
			floats.Mul(r.Data[kMin:kMax], bd[kMin:kMax])
		})
	}
	r.Dims = d
	return
}

func Div(name string, a, b *Scalar) (r *Scalar, err error) {
	if err = sameSize(a, b); err != nil {
		return
	}
	r = NewScalar(name, a.Len(), 0, DivDims(a.Dims, b.Dims))
	forEach(r.Len(), func(kMin, kMax int) {
		floats.DivTo(r.Data[kMin:kMax], a.Data[kMin:kMax], b.Data[kMin:kMax])
	})
	return
}

func Add(name string, a, b *Scalar) (r *Scalar, err error) {
	if err = sameSize(a, b); err != nil {
		return
	}
	if err = CheckDims(b.Name, b.Dims, a.Dims); err != nil {
		return nil, fmt.Errorf("adding %s and %s: %w", a.Name, b.Name, err)
	}
	r = NewScalar(name, a.Len(), 0, a.Dims)
	forEach(r.Len(), func(kMin, kMax int) {
		floats.AddTo(r.Data[kMin:kMax], a.Data[kMin:kMax], b.Data[kMin:kMax])
	})
	return
}

func Sub(name string, a, b *Scalar) (r *Scalar, err error) {
	if err = sameSize(a, b); err != nil {
		return
	}
	if err = CheckDims(b.Name, b.Dims, a.Dims); err != nil {
		return nil, fmt.Errorf("subtracting %s from %s: %w", b.Name, a.Name, err)
	}
	r = NewScalar(name, a.Len(), 0, a.Dims)
	forEach(r.Len(), func(kMin, kMax int) {
		floats.SubTo(r.Data[kMin:kMax], a.Data[kMin:kMax], b.Data[kMin:kMax])
	})
	return
}

// Scale returns c*a; c is dimensionless
func Scale(name string, c float64, a *Scalar) (r *Scalar) {
	r = NewScalar(name, a.Len(), 0, a.Dims)
	forEach(r.Len(), func(kMin, kMax int) {
		floats.ScaleTo(r.Data[kMin:kMax], c, a.Data[kMin:kMax])
	})
	return
}

// AddConst returns a + c where c carries the dimensions of a
func AddConst(name string, a *Scalar, c float64) (r *Scalar) {
	r = a.Copy(name)
	forEach(r.Len(), func(kMin, kMax int) {
		floats.AddConst(c, r.Data[kMin:kMax])
	})
	return
}

// MaxFloor returns max(a, floor) and the number of cells that were raised
// to the floor. NaN values are replaced by the floor.
func MaxFloor(name string, a *Scalar, floor float64) (r *Scalar, clamped int) {
	r = a.Copy(name)
	for i, val := range r.Data {
		if val < floor || math.IsNaN(val) {
			r.Data[i] = floor
			clamped++
		}
	}
	return
}

func Sqrt(name string, a *Scalar) (r *Scalar, err error) {
	dims, err := RootDims(a.Dims)
	if err != nil {
		return nil, fmt.Errorf("sqrt(%s): %w", a.Name, err)
	}
	r = NewScalar(name, a.Len(), 0, dims)
	forEach(r.Len(), func(kMin, kMax int) {
		for i := kMin; i < kMax; i++ {
			r.Data[i] = math.Sqrt(a.Data[i])
		}
	})
	return
}

// MagSqr returns |v|^2 per cell
func MagSqr(name string, v *Vector) (r *Scalar) {
	r = NewScalar(name, v.Len(), 0, MulDims(v.Dims, v.Dims))
	forEach(r.Len(), func(kMin, kMax int) {
		for i := kMin; i < kMax; i++ {
			c := v.Data[3*i : 3*i+3]
			r.Data[i] = floats.Dot(c, c)
		}
	})
	return
}

// ScaleVector returns s*v per cell
func ScaleVector(name string, s *Scalar, v *Vector) (r *Vector, err error) {
	if s.Len() != v.Len() {
		return nil, fmt.Errorf("field size mismatch: %s has %d cells, %s has %d",
			s.Name, s.Len(), v.Name, v.Len())
	}
	r = &Vector{
		Header: Header{Name: name, Dims: MulDims(s.Dims, v.Dims)},
		Data:   make([]float64, len(v.Data)),
	}
	forEach(s.Len(), func(kMin, kMax int) {
		for i := kMin; i < kMax; i++ {
			floats.ScaleTo(r.Data[3*i:3*i+3], s.Data[i], v.Data[3*i:3*i+3])
		}
	})
	return
}

// SubVector returns a - b
func SubVector(name string, a, b *Vector) (r *Vector, err error) {
	if a.Len() != b.Len() {
		return nil, fmt.Errorf("field size mismatch: %s has %d cells, %s has %d",
			a.Name, a.Len(), b.Name, b.Len())
	}
	if err = CheckDims(b.Name, b.Dims, a.Dims); err != nil {
		return nil, fmt.Errorf("subtracting %s from %s: %w", b.Name, a.Name, err)
	}
	r = &Vector{
		Header: Header{Name: name, Dims: a.Dims},
		Data:   make([]float64, len(a.Data)),
	}
	floats.SubTo(r.Data, a.Data, b.Data)
	return
}
