// Package phase provides constant-property phases for the two-fluid model:
// the continuous gas, a dispersed particle phase with a granular
// temperature, and the drag law coupling the two.
package phase

import (
	"fmt"

	"github.com/notargets/mpturb/field"
	"github.com/notargets/mpturb/types"
)

// Properties of one phase, uniform over the domain at start
type Properties struct {
	Alpha    float64    `json:"alpha"`
	Diameter float64    `json:"d,omitempty"`
	Rho      float64    `json:"rho"`
	Nu       float64    `json:"nu,omitempty"`
	U        [3]float64 `json:"U"`
	Theta    float64    `json:"Theta,omitempty"`
}

// Phase is a constant-density phase moving with velocity U
type Phase struct {
	name  string
	alpha *field.Scalar
	d     *field.Scalar
	rho   *field.Scalar
	U     *field.Vector
}

func newPhase(name string, nCells int, p Properties) (ph *Phase, err error) {
	if p.Alpha < 0 || p.Alpha > 1 {
		return nil, fmt.Errorf("phase %s: phase fraction %g outside [0,1]", name, p.Alpha)
	}
	if p.Rho <= 0 {
		return nil, fmt.Errorf("phase %s: density must be positive, have %g", name, p.Rho)
	}
	ph = &Phase{
		name:  name,
		alpha: field.NewScalar(field.GroupName("alpha", name), nCells, p.Alpha, types.DimLess),
		d:     field.NewScalar(field.GroupName("d", name), nCells, p.Diameter, types.DimLength),
		rho:   field.NewScalar(field.GroupName("thermo:rho", name), nCells, p.Rho, types.DimDensity),
		U:     field.NewVector(field.GroupName("U", name), nCells, p.U, types.DimVelocity),
	}
	return
}

func (p *Phase) Name() string            { return p.name }
func (p *Phase) Alpha() *field.Scalar    { return p.alpha }
func (p *Phase) D() *field.Scalar        { return p.d }
func (p *Phase) Rho() *field.Scalar      { return p.rho }
func (p *Phase) Velocity() *field.Vector { return p.U }

// Register adds the phase and its fields to reg
func (p *Phase) Register(reg *field.Registry) {
	reg.AddPhase(p).AddScalar(p.d, p.rho).AddVector(p.U)
}

// Gas is the continuous phase. It carries the kinematic viscosity and the
// cell mass flux alpha*rho*U.
type Gas struct {
	*Phase
	Nu          *field.Scalar
	AlphaRhoPhi *field.Vector
}

func NewGas(name string, nCells int, p Properties) (g *Gas, err error) {
	if p.Nu <= 0 {
		return nil, fmt.Errorf("phase %s: viscosity must be positive, have %g", name, p.Nu)
	}
	ph, err := newPhase(name, nCells, p)
	if err != nil {
		return
	}
	g = &Gas{
		Phase: ph,
		Nu:    field.NewScalar(field.GroupName("nu", name), nCells, p.Nu, types.DimKinematicViscosity),
	}
	err = g.UpdateMassFlux()
	return
}

// UpdateMassFlux recomputes alphaRhoPhi from the current alpha, rho and U
func (g *Gas) UpdateMassFlux() (err error) {
	ar, err := field.Mul("alpha*rho", g.alpha, g.rho)
	if err != nil {
		return
	}
	flux, err := field.ScaleVector(field.GroupName("alphaRhoPhi", g.name), ar, g.U)
	if err != nil {
		return
	}
	if g.AlphaRhoPhi == nil {
		g.AlphaRhoPhi = flux
		return
	}
	copy(g.AlphaRhoPhi.Data, flux.Data)
	return
}

func (g *Gas) Register(reg *field.Registry) {
	g.Phase.Register(reg)
	reg.AddScalar(g.Nu).AddVector(g.AlphaRhoPhi)
}

// Particles is a dispersed phase of uniform spheres with a granular
// temperature Theta
type Particles struct {
	*Phase
	Theta *field.Scalar
}

func NewParticles(name string, nCells int, p Properties) (pp *Particles, err error) {
	if p.Diameter <= 0 {
		return nil, fmt.Errorf("phase %s: particle diameter must be positive, have %g", name, p.Diameter)
	}
	if p.Theta < 0 {
		return nil, fmt.Errorf("phase %s: granular temperature must not be negative, have %g", name, p.Theta)
	}
	ph, err := newPhase(name, nCells, p)
	if err != nil {
		return
	}
	pp = &Particles{
		Phase: ph,
		Theta: field.NewScalar(field.GroupName("Theta", name), nCells, p.Theta, types.DimVelocity2),
	}
	return
}

func (p *Particles) Register(reg *field.Registry) {
	p.Phase.Register(reg)
	reg.AddScalar(p.Theta)
}
