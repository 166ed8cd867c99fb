// Package field holds cell-centred scalar, vector and tensor fields carrying
// SI dimensions, the elementwise algebra the closure needs, and the named
// registry through which models find each other's fields.
package field

import (
	"fmt"

	"github.com/ctessum/unit"
	"github.com/notargets/mpturb/utils"
)

// Field is the persistence view of any cell field
type Field interface {
	FieldHeader() Header
	Components() int
	Values() []float64
}

type Header struct {
	Name string
	Dims unit.Dimensions
}

func (h Header) FieldHeader() Header { return h }

type Scalar struct {
	Header
	Data []float64
	old  []float64
}

func NewScalar(name string, nCells int, value float64, dims unit.Dimensions) (s *Scalar) {
	s = &Scalar{
		Header: Header{Name: name, Dims: dims},
		Data:   utils.ConstArray(nCells, value),
	}
	return
}

// NewScalarFrom wraps data without copying
func NewScalarFrom(name string, data []float64, dims unit.Dimensions) *Scalar {
	return &Scalar{Header: Header{Name: name, Dims: dims}, Data: data}
}

func (s *Scalar) Len() int            { return len(s.Data) }
func (s *Scalar) Components() int     { return 1 }
func (s *Scalar) Values() []float64   { return s.Data }
func (s *Scalar) At(cell int) float64 { return s.Data[cell] }

func (s *Scalar) Copy(name string) (c *Scalar) {
	c = NewScalar(name, len(s.Data), 0, s.Dims)
	copy(c.Data, s.Data)
	return
}

// Assign copies the values of o into s; both must share dimensions and size
func (s *Scalar) Assign(o *Scalar) (err error) {
	if err = CheckDims(o.Name, o.Dims, s.Dims); err != nil {
		return
	}
	if len(o.Data) != len(s.Data) {
		return fmt.Errorf("assigning %s to %s: size %d != %d", o.Name, s.Name, len(o.Data), len(s.Data))
	}
	copy(s.Data, o.Data)
	return
}

// StoreOldTime snapshots the current values as the previous time level
func (s *Scalar) StoreOldTime() {
	if len(s.old) != len(s.Data) {
		s.old = make([]float64, len(s.Data))
	}
	copy(s.old, s.Data)
}

// OldTime returns the previous time level, or the field itself if none was
// stored.
func (s *Scalar) OldTime() *Scalar {
	if s.old == nil {
		return s
	}
	return NewScalarFrom(s.Name+"_0", s.old, s.Dims)
}

func (s *Scalar) Min() (min float64) {
	if len(s.Data) == 0 {
		return
	}
	min = s.Data[0]
	for _, val := range s.Data {
		if val < min {
			min = val
		}
	}
	return
}

func (s *Scalar) Max() (max float64) {
	if len(s.Data) == 0 {
		return
	}
	max = s.Data[0]
	for _, val := range s.Data {
		if val > max {
			max = val
		}
	}
	return
}

// Vector stores three components per cell, cell-major
type Vector struct {
	Header
	Data []float64
}

func NewVector(name string, nCells int, value [3]float64, dims unit.Dimensions) (v *Vector) {
	v = &Vector{
		Header: Header{Name: name, Dims: dims},
		Data:   make([]float64, 3*nCells),
	}
	for i := 0; i < nCells; i++ {
		copy(v.Data[3*i:3*i+3], value[:])
	}
	return
}

func (v *Vector) Len() int          { return len(v.Data) / 3 }
func (v *Vector) Components() int   { return 3 }
func (v *Vector) Values() []float64 { return v.Data }

func (v *Vector) At(cell int) (r [3]float64) {
	copy(r[:], v.Data[3*cell:3*cell+3])
	return
}

func (v *Vector) Set(cell int, val [3]float64) {
	copy(v.Data[3*cell:3*cell+3], val[:])
}

// Tensor stores nine components per cell, row-major within the cell, so
// component (i,j) of cell c is Data[9*c+3*i+j].
type Tensor struct {
	Header
	Data []float64
}

func NewTensor(name string, nCells int, dims unit.Dimensions) *Tensor {
	return &Tensor{
		Header: Header{Name: name, Dims: dims},
		Data:   make([]float64, 9*nCells),
	}
}

func (t *Tensor) Len() int          { return len(t.Data) / 9 }
func (t *Tensor) Components() int   { return 9 }
func (t *Tensor) Values() []float64 { return t.Data }

func (t *Tensor) At(cell, i, j int) float64 { return t.Data[9*cell+3*i+j] }
