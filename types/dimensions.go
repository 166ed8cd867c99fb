package types

import "github.com/ctessum/unit"

// SI dimension sets shared by the fields of the gas-particle closure.
var (
	DimLess      = unit.Dimensions{}
	DimLength    = unit.Dimensions{unit.LengthDim: 1}
	DimTime      = unit.Dimensions{unit.TimeDim: 1}
	DimRate      = unit.Dimensions{unit.TimeDim: -1}
	DimVelocity  = unit.Dimensions{unit.LengthDim: 1, unit.TimeDim: -1}
	DimDensity   = unit.Dimensions{unit.MassDim: 1, unit.LengthDim: -3}
	DimVelocity2 = unit.Dimensions{unit.LengthDim: 2, unit.TimeDim: -2} // k, Kpg, Theta
	// DimDissipation is the dimension of epsilon
	DimDissipation        = unit.Dimensions{unit.LengthDim: 2, unit.TimeDim: -3}
	DimKinematicViscosity = unit.Dimensions{unit.LengthDim: 2, unit.TimeDim: -1}
	// DimDrag is the dimension of the momentum exchange coefficient Kd
	DimDrag     = unit.Dimensions{unit.MassDim: 1, unit.LengthDim: -3, unit.TimeDim: -1}
	DimMassFlux = unit.Dimensions{unit.MassDim: 1, unit.LengthDim: -2, unit.TimeDim: -1}
	// DimKSource is the dimension of a term in the alpha*rho*k equation
	DimKSource = unit.Dimensions{unit.MassDim: 1, unit.LengthDim: -1, unit.TimeDim: -3}
	// DimEpsilonSource is the dimension of a term in the alpha*rho*epsilon equation
	DimEpsilonSource = unit.Dimensions{unit.MassDim: 1, unit.LengthDim: -1, unit.TimeDim: -4}
)
