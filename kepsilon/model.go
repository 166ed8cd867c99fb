// Package kepsilon is the standard two-equation k-epsilon closure for the
// gas phase of a dispersed two-phase flow, solved implicitly on a mesh.Grid.
// Extra sources, such as the interphase drag exchange, enter through a
// source.Coupling at every correction.
package kepsilon

import (
	"context"
	"errors"
	"fmt"

	"github.com/ctessum/unit"
	"github.com/notargets/mpturb/field"
	"github.com/notargets/mpturb/mesh"
	"github.com/notargets/mpturb/source"
	"github.com/notargets/mpturb/types"
	"github.com/notargets/mpturb/utils"
	"github.com/sirupsen/logrus"
)

type Coefficients struct {
	Cmu      float64 `json:"Cmu"`
	C1       float64 `json:"C1"`
	C2       float64 `json:"C2"`
	SigmaK   float64 `json:"sigmak"`
	SigmaEps float64 `json:"sigmaEps"`
}

func DefaultCoefficients() Coefficients {
	return Coefficients{Cmu: 0.09, C1: 1.44, C2: 1.92, SigmaK: 1.0, SigmaEps: 1.3}
}

// Gas is the continuous phase the closure is solved for. AlphaRhoPhi is the
// cell-centred mass flux alpha*rho*U.
type Gas struct {
	Alpha       *field.Scalar
	Rho         *field.Scalar
	U           *field.Vector
	AlphaRhoPhi *field.Vector
	Nu          *field.Scalar
}

type Clock interface {
	DeltaT() float64
}

type Model struct {
	Coefficients
	grid         *mesh.Grid
	gas          Gas
	clock        Clock
	k, eps, nut  *field.Scalar
	Dk           *field.Scalar // nut/sigmak + nu
	DEps         *field.Scalar // nut/sigmaEps + nu
	KMin, EpsMin float64
	MaxIter      int
	Tolerance    float64
	Log          logrus.FieldLogger
}

// New builds the closure for the named gas phase from initial k and
// epsilon, which it takes ownership of.
func New(grid *mesh.Grid, phaseName string, gas Gas, k, eps *field.Scalar, coeffs Coefficients, clock Clock) (m *Model, err error) {
	n := grid.NCells()
	for _, chk := range []struct {
		h    field.Header
		size int
		dims unit.Dimensions
	}{
		{gas.Alpha.FieldHeader(), gas.Alpha.Len(), types.DimLess},
		{gas.Rho.FieldHeader(), gas.Rho.Len(), types.DimDensity},
		{gas.U.FieldHeader(), gas.U.Len(), types.DimVelocity},
		{gas.AlphaRhoPhi.FieldHeader(), gas.AlphaRhoPhi.Len(), types.DimMassFlux},
		{gas.Nu.FieldHeader(), gas.Nu.Len(), types.DimKinematicViscosity},
		{k.FieldHeader(), k.Len(), types.DimVelocity2},
		{eps.FieldHeader(), eps.Len(), types.DimDissipation},
	} {
		if chk.size != n {
			return nil, fmt.Errorf("field %s has %d cells, grid has %d", chk.h.Name, chk.size, n)
		}
		if err = field.CheckDims(chk.h.Name, chk.h.Dims, chk.dims); err != nil {
			return nil, err
		}
	}
	if clock == nil {
		return nil, fmt.Errorf("kepsilon: no clock")
	}
	m = &Model{
		Coefficients: coeffs,
		grid:         grid,
		gas:          gas,
		clock:        clock,
		k:            k,
		eps:          eps,
		nut:          field.NewScalar(field.GroupName("nut", phaseName), n, 0, types.DimKinematicViscosity),
		Dk:           field.NewScalar(field.GroupName("Dk", phaseName), n, 0, types.DimKinematicViscosity),
		DEps:         field.NewScalar(field.GroupName("DEpsilon", phaseName), n, 0, types.DimKinematicViscosity),
		KMin:         utils.SMALL,
		EpsMin:       utils.SMALL,
		MaxIter:      500,
		Tolerance:    1.e-10,
		Log:          logrus.StandardLogger(),
	}
	m.bound()
	m.updateViscosity()
	return
}

func (m *Model) K() *field.Scalar       { return m.k }
func (m *Model) Epsilon() *field.Scalar { return m.eps }
func (m *Model) Nut() *field.Scalar     { return m.nut }
func (m *Model) Nu() *field.Scalar      { return m.gas.Nu }

// Production returns G = nut twoSymm(grad U) && grad U
func (m *Model) Production() (G *field.Scalar, err error) {
	gradU, err := m.grid.GradVector(m.gas.U)
	if err != nil {
		return
	}
	S2, err := field.DoubleDot("twoSymm(gradU)&&gradU", field.TwoSymm("twoSymm(gradU)", gradU), gradU)
	if err != nil {
		return
	}
	return field.Mul("G", m.nut, S2)
}

// Correct solves the epsilon and then the k equation once, implicitly in
// time, with the sources of coupling added. The k and epsilon of the start
// of the step are kept as their old-time level.
func (m *Model) Correct(ctx context.Context, coupling source.Coupling) (err error) {
	if err = ctx.Err(); err != nil {
		return
	}
	dt := m.clock.DeltaT()
	if !(dt > 0) {
		return fmt.Errorf("kepsilon: time step must be positive, have %g", dt)
	}
	var kSource, epsSource source.Term
	if coupling != nil {
		if epsSource, err = coupling.EpsilonSource(); err != nil {
			return fmt.Errorf("epsilon coupling source: %w", err)
		}
		if err = epsSource.Check(types.DimEpsilonSource); err != nil {
			return
		}
		if kSource, err = coupling.KSource(); err != nil {
			return fmt.Errorf("k coupling source: %w", err)
		}
		if err = kSource.Check(types.DimKSource); err != nil {
			return
		}
	}
	G, err := m.Production()
	if err != nil {
		return
	}
	m.k.StoreOldTime()
	m.eps.StoreOldTime()

	var (
		n       = m.grid.NCells()
		aRho    = make([]float64, n)
		epsByK  = make([]float64, n)
		epsNew  = make([]float64, n)
		kNew    = make([]float64, n)
		epsEqn  = m.assemble("epsilon", m.DEps, dt)
		kEqn    = m.assemble("k", m.Dk, dt)
		vol     = m.grid.Volume()
		ctxLog  = m.Log.WithField("model", "kEpsilon")
		floored int
	)
	for i := 0; i < n; i++ {
		aRho[i] = m.gas.Alpha.Data[i] * m.gas.Rho.Data[i]
		epsByK[i] = m.eps.Data[i] / m.k.Data[i]
	}
	for i := 0; i < n; i++ {
		// epsilon: C1 G eps/k production, C2 eps/k destruction
		epsEqn.B[i] += vol * (aRho[i]*m.eps.Data[i]/dt + m.C1*aRho[i]*G.Data[i]*epsByK[i])
		epsEqn.Add(i, i, vol*m.C2*aRho[i]*epsByK[i])
		// k: production G, destruction eps linearised in k
		kEqn.B[i] += vol * (aRho[i]*m.k.Data[i]/dt + aRho[i]*G.Data[i])
		kEqn.Add(i, i, vol*aRho[i]*epsByK[i])
	}
	if coupling != nil {
		addSource(epsEqn, epsSource, m.eps.Data, vol)
		addSource(kEqn, kSource, m.k.Data, vol)
	}

	copy(epsNew, m.eps.Data)
	itE, resE, err := m.solve(ctxLog, epsEqn, epsNew)
	if err != nil {
		return
	}
	copy(kNew, m.k.Data)
	itK, resK, err := m.solve(ctxLog, kEqn, kNew)
	if err != nil {
		return
	}
	if i := utils.NonFinite(epsNew); i >= 0 {
		return fmt.Errorf("kepsilon: epsilon not finite in cell %d", i)
	}
	if i := utils.NonFinite(kNew); i >= 0 {
		return fmt.Errorf("kepsilon: k not finite in cell %d", i)
	}
	copy(m.eps.Data, epsNew)
	copy(m.k.Data, kNew)
	floored = m.bound()
	m.updateViscosity()
	ctxLog.WithFields(logrus.Fields{
		"epsilonSweeps":   itE,
		"epsilonResidual": resE,
		"kSweeps":         itK,
		"kResidual":       resK,
		"bounded":         floored,
	}).Debug("solved")
	return
}

// solve runs the Gauss-Seidel sweeps. Running out of sweeps is logged and
// the last iterate kept; a zero diagonal or divergence is returned.
func (m *Model) solve(log logrus.FieldLogger, sys *System, x []float64) (iters int, residual float64, err error) {
	iters, residual, err = sys.SolveGaussSeidel(x, m.MaxIter, m.Tolerance)
	if errors.Is(err, ErrNotConverged) {
		log.WithFields(logrus.Fields{
			"equation": sys.name,
			"sweeps":   iters,
			"residual": residual,
		}).Warn("linear solve hit the sweep limit")
		err = nil
	}
	return
}

// assemble builds the time and upwind convection-diffusion operator of a
// transported alpha*rho*phi. Domain faces are adiabatic; mass crosses them
// with a zero-gradient phi unless they are walls.
func (m *Model) assemble(name string, D *field.Scalar, dt float64) (sys *System) {
	var (
		g   = m.grid
		n   = g.NCells()
		vol = g.Volume()
	)
	sys = NewSystem(name, n)
	for i := 0; i < n; i++ {
		sys.Add(i, i, vol*m.gas.Alpha.Data[i]*m.gas.Rho.Data[i]/dt)
	}
	for _, c := range g.Connections() {
		var (
			o, nb = c.Owner, c.Neighbour
			area  = vol / g.H[c.Axis]
			gamma = 0.5 * (m.gas.Alpha.Data[o]*m.gas.Rho.Data[o]*D.Data[o] +
				m.gas.Alpha.Data[nb]*m.gas.Rho.Data[nb]*D.Data[nb])
			diff = gamma * area / g.H[c.Axis]
			F    = 0.5 * (m.gas.AlphaRhoPhi.Data[3*o+c.Axis] + m.gas.AlphaRhoPhi.Data[3*nb+c.Axis]) * area
			Fout = max(F, 0)
			Fin  = max(-F, 0)
		)
		sys.Add(o, o, diff+Fout)
		sys.Add(o, nb, -(diff + Fin))
		sys.Add(nb, nb, diff+Fin)
		sys.Add(nb, o, -(diff + Fout))
	}
	for face := types.XMin; face <= types.ZMax; face++ {
		if g.BCs[face] == types.BC_Wall {
			continue
		}
		var (
			axis = int(face) / 2
			area = vol / g.H[axis]
			sign = float64(2*(int(face)%2) - 1)
		)
		for _, c := range g.BoundaryCells(face) {
			sys.Add(c, c, sign*m.gas.AlphaRhoPhi.Data[3*c+axis]*area)
		}
	}
	return
}

// addSource adds S = Sp x + Su; negative Sp is implicit, positive Sp is
// evaluated at the old x.
func addSource(sys *System, t source.Term, x []float64, vol float64) {
	for i := range t.Su {
		sys.B[i] += vol * t.Su[i]
		if sp := t.Sp[i]; sp < 0 {
			sys.Add(i, i, -vol*sp)
		} else {
			sys.B[i] += vol * sp * x[i]
		}
	}
}

func (m *Model) bound() (floored int) {
	for i := range m.k.Data {
		if !(m.k.Data[i] >= m.KMin) {
			m.k.Data[i] = m.KMin
			floored++
		}
		if !(m.eps.Data[i] >= m.EpsMin) {
			m.eps.Data[i] = m.EpsMin
			floored++
		}
	}
	return
}

func (m *Model) updateViscosity() {
	for i := range m.k.Data {
		k, eps, nu := m.k.Data[i], m.eps.Data[i], m.gas.Nu.Data[i]
		m.nut.Data[i] = m.Cmu * utils.POW(k, 2) / eps
		m.Dk.Data[i] = m.nut.Data[i]/m.SigmaK + nu
		m.DEps.Data[i] = m.nut.Data[i]/m.SigmaEps + nu
	}
}
