package phase

import (
	"math"

	"github.com/notargets/mpturb/field"
	"github.com/notargets/mpturb/types"
	"github.com/notargets/mpturb/utils"
)

// Drag is the Schiller-Naumann momentum exchange between the particles and
// the gas. Kd is per unit particle volume, so alpha_p*Kd is the exchange
// coefficient of the mixture; Ur is U_gas - U_particles.
type Drag struct {
	Pair      string
	Gas       *Gas
	Particles *Particles
	Kd        *field.Scalar
	Ur        *field.Vector
}

func NewDrag(pair string, gas *Gas, particles *Particles) (d *Drag, err error) {
	n := gas.alpha.Len()
	d = &Drag{
		Pair:      pair,
		Gas:       gas,
		Particles: particles,
		Kd:        field.NewScalar(field.GroupName("Kd", pair), n, 0, types.DimDrag),
		Ur:        field.NewVector(field.GroupName("Ur", pair), n, [3]float64{}, types.DimVelocity),
	}
	err = d.Update()
	return
}

// SchillerNaumann returns the drag correction to Stokes drag, Cd Re/24
func SchillerNaumann(Re float64) float64 {
	if Re < 1000 {
		return 1 + 0.15*math.Pow(Re, 0.687)
	}
	return 0.44 * Re / 24
}

// Update refreshes Ur and Kd = 18 rho_g nu_g / dp^2 * Cd Re/24 from the
// current phase velocities
func (d *Drag) Update() (err error) {
	ur, err := field.SubVector(d.Ur.Name, d.Gas.U, d.Particles.U)
	if err != nil {
		return
	}
	copy(d.Ur.Data, ur.Data)
	var (
		rho, nu = d.Gas.rho.Data, d.Gas.Nu.Data
		dp      = d.Particles.d.Data
	)
	for i := range d.Kd.Data {
		u := d.Ur.At(i)
		mag := math.Sqrt(u[0]*u[0] + u[1]*u[1] + u[2]*u[2])
		Re := mag * dp[i] / nu[i]
		d.Kd.Data[i] = 18 * rho[i] * nu[i] / utils.POW(dp[i], 2) * SchillerNaumann(Re)
	}
	return
}

func (d *Drag) Register(reg *field.Registry) {
	reg.AddScalar(d.Kd).AddVector(d.Ur)
}

// RelaxationTime is the particle response time rhoP / Kd
func (d *Drag) RelaxationTime(cell int) float64 {
	return d.Particles.rho.Data[cell] / d.Kd.Data[cell]
}
