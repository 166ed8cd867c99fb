// Package source carries linearised source terms between a model that
// contributes them and the equation assembly that consumes them.
package source

import (
	"fmt"

	"github.com/ctessum/unit"
	"github.com/notargets/mpturb/field"
)

// Term is the per-cell linearisation S(x) = Sp*x + Su of a source in the
// transport equation for x. Sp is the implicit coefficient, negative for a
// sink, and Su the explicit part. Dims are the dimensions of S.
type Term struct {
	Name string
	Sp   []float64
	Su   []float64
	Dims unit.Dimensions
}

func NewTerm(name string, nCells int, dims unit.Dimensions) Term {
	return Term{
		Name: name,
		Sp:   make([]float64, nCells),
		Su:   make([]float64, nCells),
		Dims: dims,
	}
}

func (t Term) Len() int { return len(t.Su) }

// SinkCoefficient returns -Sp, the coefficient of the implicit sink
func (t Term) SinkCoefficient() (c []float64) {
	c = make([]float64, len(t.Sp))
	for i, sp := range t.Sp {
		c[i] = -sp
	}
	return
}

// Evaluate returns Sp*x + Su
func (t Term) Evaluate(name string, x *field.Scalar) (r *field.Scalar, err error) {
	if x.Len() != t.Len() {
		return nil, fmt.Errorf("source %s has %d cells, %s has %d", t.Name, t.Len(), x.Name, x.Len())
	}
	r = field.NewScalar(name, x.Len(), 0, t.Dims)
	for i := range r.Data {
		r.Data[i] = t.Sp[i]*x.Data[i] + t.Su[i]
	}
	return
}

// Check verifies S has the dimensions of the equation it is added to
func (t Term) Check(want unit.Dimensions) error {
	if t.Dims == nil || !t.Dims.Matches(want) {
		return fmt.Errorf("source %s has dimensions %s, equation needs %s",
			t.Name, t.Dims.String(), want.String())
	}
	return nil
}

// Coupling supplies the extra sources of a two-equation closure. It is
// called during equation assembly, after the coupling state for the current
// step has been refreshed.
type Coupling interface {
	KSource() (Term, error)
	EpsilonSource() (Term, error)
}
