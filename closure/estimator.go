package closure

import (
	"fmt"
	"math"

	"github.com/notargets/mpturb/field"
	"github.com/notargets/mpturb/types"
)

const (
	EstimatorKoch      = "koch"
	EstimatorIsotropic = "isotropic"
)

// EstimatorInputs are the fields an estimate of Kpg may draw on. K is the
// gas turbulent kinetic energy of the previous step.
type EstimatorInputs struct {
	Kd    *field.Scalar
	Ur    *field.Vector
	Theta *field.Scalar
	Dp    *field.Scalar
	RhoP  *field.Scalar
	K     *field.Scalar
}

// VelocityCorrelationEstimator computes the gas-particle velocity
// correlation Kpg. Implementations are pure.
type VelocityCorrelationEstimator interface {
	Name() string
	Estimate(in EstimatorInputs) (*field.Scalar, error)
}

var estimators = map[string]func(cfg Config) VelocityCorrelationEstimator{
	EstimatorKoch: func(cfg Config) VelocityCorrelationEstimator {
		return &Koch{ThetaFloor: cfg.ThetaFloor}
	},
	EstimatorIsotropic: func(cfg Config) VelocityCorrelationEstimator {
		return &Isotropic{Csf: cfg.Csf, ThetaFloor: cfg.ThetaFloor, KFloor: cfg.KFloor}
	},
}

func NewEstimator(cfg Config) (VelocityCorrelationEstimator, error) {
	newEst, ok := estimators[cfg.Estimator]
	if !ok {
		return nil, &ConfigError{Key: "estimator", Reason: fmt.Sprintf("unknown estimator %q", cfg.Estimator)}
	}
	return newEst(cfg), nil
}

func checkResult(kpg *field.Scalar) (*field.Scalar, error) {
	if err := field.CheckDims(kpg.Name, kpg.Dims, types.DimVelocity2); err != nil {
		return nil, &ConfigError{Key: kpg.Name, Reason: "estimate has the wrong dimensions", Err: err}
	}
	return kpg, nil
}

// Koch is the kinetic theory relation
//
//	Kpg = Kd dp |Ur|^2 / rhoP / (4 sqrt(pi max(Theta, ThetaFloor)))
type Koch struct {
	ThetaFloor float64
}

func (e *Koch) Name() string { return EstimatorKoch }

func (e *Koch) Estimate(in EstimatorInputs) (kpg *field.Scalar, err error) {
	if in.Kd == nil || in.Ur == nil || in.Theta == nil || in.Dp == nil || in.RhoP == nil {
		return nil, fmt.Errorf("koch estimate: missing input")
	}
	var num *field.Scalar
	if num, err = field.Mul("Kd*dp*magSqr(Ur)", in.Kd, in.Dp, field.MagSqr("magSqr(Ur)", in.Ur)); err != nil {
		return
	}
	if num, err = field.Div(num.Name+"/rhoP", num, in.RhoP); err != nil {
		return
	}
	theta, _ := field.MaxFloor("max(Theta,floor)", in.Theta, e.ThetaFloor)
	den, err := field.Sqrt("sqrt(pi*Theta)", field.Scale("pi*Theta", math.Pi, theta))
	if err != nil {
		return
	}
	if kpg, err = field.Div("Kpg", num, field.Scale("4*sqrt(pi*Theta)", 4, den)); err != nil {
		return
	}
	return checkResult(kpg)
}

// Isotropic is the correlation of isotropic gas and particle fluctuations,
// Kpg = Csf sqrt(max(k, KFloor) max(Theta, ThetaFloor))
type Isotropic struct {
	Csf, ThetaFloor, KFloor float64
}

func (e *Isotropic) Name() string { return EstimatorIsotropic }

func (e *Isotropic) Estimate(in EstimatorInputs) (kpg *field.Scalar, err error) {
	if in.K == nil || in.Theta == nil {
		return nil, fmt.Errorf("isotropic estimate: missing input")
	}
	k, _ := field.MaxFloor("max(k,floor)", in.K, e.KFloor)
	theta, _ := field.MaxFloor("max(Theta,floor)", in.Theta, e.ThetaFloor)
	prod, err := field.Mul("k*Theta", k, theta)
	if err != nil {
		return
	}
	if kpg, err = field.Sqrt("Kpg", prod); err != nil {
		return
	}
	kpg = field.Scale("Kpg", e.Csf, kpg)
	return checkResult(kpg)
}
