package mesh

import (
	"fmt"
	"math"

	"github.com/notargets/mpturb/field"
	"github.com/notargets/mpturb/types"
)

func (g *Grid) checkSize(name string, n int) error {
	if n != g.NCells() {
		return fmt.Errorf("field %s has %d cells, grid has %d", name, n, g.NCells())
	}
	return nil
}

// Grad returns the cell gradient of s
func (g *Grid) Grad(s *field.Scalar) (r *field.Vector, err error) {
	if err = g.checkSize(s.Name, s.Len()); err != nil {
		return
	}
	r = field.NewVector("grad("+s.Name+")", g.NCells(), [3]float64{},
		field.DivDims(s.Dims, types.DimLength))
	f := func(c int) float64 { return s.Data[c] }
	for c := 0; c < g.NCells(); c++ {
		for a := 0; a < 3; a++ {
			r.Data[3*c+a] = g.ddx(f, c, a)
		}
	}
	return
}

// GradVector returns the gradient tensor T_ij = d v_j / d x_i
func (g *Grid) GradVector(v *field.Vector) (r *field.Tensor, err error) {
	if err = g.checkSize(v.Name, v.Len()); err != nil {
		return
	}
	r = field.NewTensor("grad("+v.Name+")", g.NCells(), field.DivDims(v.Dims, types.DimLength))
	for j := 0; j < 3; j++ {
		cmpt := j
		f := func(c int) float64 { return v.Data[3*c+cmpt] }
		for c := 0; c < g.NCells(); c++ {
			for i := 0; i < 3; i++ {
				r.Data[9*c+3*i+j] = g.ddx(f, c, i)
			}
		}
	}
	return
}

// Div returns the divergence of v
func (g *Grid) Div(v *field.Vector) (r *field.Scalar, err error) {
	if err = g.checkSize(v.Name, v.Len()); err != nil {
		return
	}
	r = field.NewScalar("div("+v.Name+")", g.NCells(), 0, field.DivDims(v.Dims, types.DimLength))
	for a := 0; a < 3; a++ {
		cmpt := a
		f := func(c int) float64 { return v.Data[3*c+cmpt] }
		for c := 0; c < g.NCells(); c++ {
			r.Data[c] += g.ddx(f, c, a)
		}
	}
	return
}

// DivFlux returns div(flux*s), the convection of s by a cell mass flux
func (g *Grid) DivFlux(flux *field.Vector, s *field.Scalar) (r *field.Scalar, err error) {
	var fs *field.Vector
	if fs, err = field.ScaleVector(flux.Name+"*"+s.Name, s, flux); err != nil {
		return
	}
	if r, err = g.Div(fs); err != nil {
		return
	}
	r.Name = "div(" + flux.Name + "," + s.Name + ")"
	return
}

// Ddt returns the Euler-implicit time derivative of the product of fs,
// (prod(f) - prod(f.OldTime())) / dt
func (g *Grid) Ddt(dt float64, fs ...*field.Scalar) (r *field.Scalar, err error) {
	if len(fs) == 0 {
		return nil, fmt.Errorf("ddt of nothing")
	}
	if dt <= 0 || math.IsNaN(dt) {
		return nil, fmt.Errorf("ddt: time step must be positive, have %g", dt)
	}
	var (
		now, old = fs[0], fs[0].OldTime()
		name     = fs[0].Name
	)
	for _, f := range fs[1:] {
		if now, err = field.Mul(now.Name+"*"+f.Name, now, f); err != nil {
			return
		}
		if old, err = field.Mul(old.Name+"*"+f.Name, old, f.OldTime()); err != nil {
			return
		}
		name += "," + f.Name
	}
	if err = g.checkSize(now.Name, now.Len()); err != nil {
		return
	}
	if r, err = field.Sub("ddt("+name+")", now, old); err != nil {
		return
	}
	r = field.Scale(r.Name, 1/dt, r)
	r.Dims = field.DivDims(r.Dims, types.DimTime)
	return
}

// CourantNumber returns the mean and maximum of dt*sum(|U_a|/h_a) over the
// resolved axes
func (g *Grid) CourantNumber(U *field.Vector, dt float64) (mean, max float64) {
	n := U.Len()
	for c := 0; c < n; c++ {
		var co float64
		for a := 0; a < 3; a++ {
			if g.Resolved(a) {
				co += math.Abs(U.Data[3*c+a]) / g.H[a]
			}
		}
		co *= dt
		mean += co
		if co > max {
			max = co
		}
	}
	if n > 0 {
		mean /= float64(n)
	}
	return
}
