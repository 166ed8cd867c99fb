// Package closure augments a two-equation k-epsilon turbulence closure with
// the drag-induced exchange of turbulent kinetic energy between a gas and a
// dispersed particle phase.
//
// Every correction step first re-estimates the gas-particle velocity
// correlation Kpg, then lets the base closure solve its k and epsilon
// equations with the drag sources built from it. In diagnostic mode the
// step ends by writing the gas turbulent kinetic energy budget and halting.
package closure

import (
	"context"
	"errors"
	"fmt"

	"github.com/ctessum/unit"
	"github.com/notargets/mpturb/field"
	"github.com/notargets/mpturb/source"
	"github.com/notargets/mpturb/types"
	"github.com/sirupsen/logrus"
)

// BaseClosure is the two-equation model being augmented. Correct solves
// the k and epsilon equations once, adding the sources from coupling.
type BaseClosure interface {
	Correct(ctx context.Context, coupling source.Coupling) error
	K() *field.Scalar
	Epsilon() *field.Scalar
	Nut() *field.Scalar
	Nu() *field.Scalar
}

// Calculus is the discretisation used by the budget
type Calculus interface {
	Ddt(dt float64, fs ...*field.Scalar) (*field.Scalar, error)
	DivFlux(flux *field.Vector, s *field.Scalar) (*field.Scalar, error)
	Grad(s *field.Scalar) (*field.Vector, error)
	GradVector(v *field.Vector) (*field.Tensor, error)
	Div(v *field.Vector) (*field.Scalar, error)
}

// Persister stores fields by time name. ReadScalar reports found=false,
// without error, when the field was never written.
type Persister interface {
	Write(timeName string, f field.Field, restart bool) error
	ReadScalar(timeName, name string, nCells int) (s *field.Scalar, found bool, err error)
}

type Clock interface {
	TimeName() string
	DeltaT() float64
}

type State uint8

const (
	Idle State = iota
	CorrelationRefresh
	BaseCorrect
	DiagnosticEmit
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case CorrelationRefresh:
		return "CorrelationRefresh"
	case BaseCorrect:
		return "BaseCorrect"
	case DiagnosticEmit:
		return "DiagnosticEmit"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

type Dependencies struct {
	Fields   field.Provider
	Base     BaseClosure
	Calculus Calculus
	Store    Persister
	Clock    Clock
	Log      logrus.FieldLogger
}

type Controller struct {
	cfg       Config
	fields    field.Provider
	base      BaseClosure
	store     Persister
	clock     Clock
	Log       logrus.FieldLogger
	estimator VelocityCorrelationEstimator
	drag      *DragSourceBuilder
	budget    *DiagnosticBudgetEmitter
	kpg       *field.Scalar
	state     State
	step      int
}

// New validates cfg, checks that every field the closure reads is
// registered and reads Kpg from the current time if it was stored there.
func New(cfg Config, deps Dependencies) (c *Controller, err error) {
	cfg = cfg.WithDefaults()
	if err = cfg.Validate(); err != nil {
		return
	}
	switch {
	case deps.Fields == nil:
		return nil, fmt.Errorf("closure: no field provider")
	case deps.Base == nil:
		return nil, fmt.Errorf("closure: no base closure")
	case deps.Store == nil:
		return nil, fmt.Errorf("closure: no field store")
	case deps.Clock == nil:
		return nil, fmt.Errorf("closure: no clock")
	case cfg.WriteFields && deps.Calculus == nil:
		return nil, fmt.Errorf("closure: writeFields needs a calculus")
	}
	if deps.Log == nil {
		deps.Log = logrus.StandardLogger()
	}
	c = &Controller{
		cfg:    cfg,
		fields: deps.Fields,
		base:   deps.Base,
		store:  deps.Store,
		clock:  deps.Clock,
		Log:    deps.Log.WithField("model", "gasParticleKEpsilon"),
	}
	if c.estimator, err = NewEstimator(cfg); err != nil {
		return nil, err
	}
	if _, err = c.inputs(); err != nil {
		return nil, err
	}
	if err = c.readKpg(); err != nil {
		return nil, err
	}
	c.drag = NewDragSourceBuilder(cfg, c.fields, c.base, c.kpg)
	c.budget = NewDiagnosticBudgetEmitter(cfg, c.fields, deps.Calculus, c.store, c.Log)
	if cfg.WriteFields {
		if _, err = c.budget.gas(); err != nil {
			return nil, err
		}
	}
	return
}

func (c *Controller) inputs() (in EstimatorInputs, err error) {
	phase, err := c.fields.Phase(c.cfg.AlphaParticle())
	if err != nil {
		return in, &ConfigError{Key: "particlePhase", Reason: "phase fraction lookup failed", Err: err}
	}
	in.Dp, in.RhoP = phase.D(), phase.Rho()
	if in.Kd, err = c.fields.Scalar(c.cfg.DragName()); err != nil {
		return in, &ConfigError{Key: "dragPair", Reason: "drag coefficient lookup failed", Err: err}
	}
	if in.Ur, err = c.fields.Vector(c.cfg.SlipName()); err != nil {
		return in, &ConfigError{Key: "dragPair", Reason: "relative velocity lookup failed", Err: err}
	}
	if in.Theta, err = c.fields.Scalar(c.cfg.ThetaName()); err != nil {
		return in, &ConfigError{Key: "particlePhase", Reason: "granular temperature lookup failed", Err: err}
	}
	for _, chk := range []struct {
		key string
		h   field.Header
		dim unit.Dimensions
	}{
		{"particlePhase", in.Dp.FieldHeader(), types.DimLength},
		{"particlePhase", in.RhoP.FieldHeader(), types.DimDensity},
		{"dragPair", in.Kd.FieldHeader(), types.DimDrag},
		{"dragPair", in.Ur.FieldHeader(), types.DimVelocity},
		{"particlePhase", in.Theta.FieldHeader(), types.DimVelocity2},
	} {
		if err = field.CheckDims(chk.h.Name, chk.h.Dims, chk.dim); err != nil {
			return in, &ConfigError{Key: chk.key, Reason: "wrong dimensions", Err: err}
		}
	}
	in.K = c.base.K()
	return
}

func (c *Controller) readKpg() (err error) {
	var (
		name     = c.cfg.KpgName()
		timeName = c.clock.TimeName()
		nCells   = c.base.K().Len()
		found    bool
	)
	if c.kpg, found, err = c.store.ReadScalar(timeName, name, nCells); err != nil {
		return fmt.Errorf("reading %s at time %s: %w", name, timeName, err)
	}
	if !found {
		c.kpg = field.NewScalar(name, nCells, 0, types.DimVelocity2)
		c.Log.WithField("time", timeName).Debugf("%s not found, starting from zero", name)
		return
	}
	if err = field.CheckDims(name, c.kpg.Dims, types.DimVelocity2); err != nil {
		return &ConfigError{Key: name, Reason: "stored field has the wrong dimensions", Err: err}
	}
	c.kpg.Name = name
	c.Log.WithField("time", timeName).Infof("read %s", name)
	return
}

func (c *Controller) Config() Config { return c.cfg }
func (c *Controller) State() State   { return c.state }
func (c *Controller) Step() int      { return c.step }

// Kpg returns the owned velocity correlation field; its values change in
// place at every refresh.
func (c *Controller) Kpg() *field.Scalar { return c.kpg }

// Coupling is the source provider handed to the base closure
func (c *Controller) Coupling() source.Coupling { return c.drag }

// CorrectKpg re-estimates Kpg from the current registry state. Repeating it
// without a state change gives the same values.
func (c *Controller) CorrectKpg() (err error) {
	in, err := c.inputs()
	if err != nil {
		return
	}
	est, err := c.estimator.Estimate(in)
	if err != nil {
		return fmt.Errorf("%s estimate of %s: %w", c.estimator.Name(), c.kpg.Name, err)
	}
	est.Name = c.kpg.Name
	if err = c.kpg.Assign(est); err != nil {
		return
	}
	floored := countBelow(in.Theta.Data, c.cfg.ThetaFloor)
	if c.cfg.Estimator == EstimatorIsotropic {
		floored += countBelow(in.K.Data, c.cfg.KFloor)
	}
	c.Log.WithFields(logrus.Fields{
		"estimator": c.estimator.Name(),
		"min":       c.kpg.Min(),
		"max":       c.kpg.Max(),
		"floored":   floored,
	}).Debug("refreshed Kpg")
	return
}

func countBelow(data []float64, floor float64) (n int) {
	for _, val := range data {
		if !(val >= floor) {
			n++
		}
	}
	return
}

// Correct runs one correction step: refresh Kpg, correct the base closure
// with the drag sources and, in diagnostic mode, write the budget and
// return a *HaltError wrapping ErrDiagnosticHalt. After a halt every call
// returns ErrTerminated.
func (c *Controller) Correct(ctx context.Context) (err error) {
	if c.state == DiagnosticEmit {
		return ErrTerminated
	}
	if err = ctx.Err(); err != nil {
		return
	}
	defer func() {
		if c.state != DiagnosticEmit {
			c.state = Idle
		}
	}()
	c.state = CorrelationRefresh
	if err = c.CorrectKpg(); err != nil {
		return
	}
	c.state = BaseCorrect
	if err = c.base.Correct(ctx, c.drag); err != nil {
		return fmt.Errorf("base closure correction: %w", err)
	}
	c.step++
	c.Log.WithFields(logrus.Fields{
		"time": c.clock.TimeName(),
		"step": c.step,
		"kMax": c.base.K().Max(),
	}).Debug("corrected")
	if !c.cfg.WriteFields {
		return
	}
	c.state = DiagnosticEmit
	if err = c.emit(); !errors.Is(err, ErrDiagnosticHalt) {
		c.state = Idle
	}
	return
}

func (c *Controller) emit() error {
	kSource, err := c.drag.KSource()
	if err != nil {
		return err
	}
	timeName := c.clock.TimeName()
	written, err := c.budget.Emit(timeName, c.base, kSource, c.clock.DeltaT())
	if err != nil {
		return err
	}
	c.Log.WithFields(logrus.Fields{
		"time":   timeName,
		"fields": written,
	}).Info("wrote turbulence budget")
	return &HaltError{Time: timeName, Fields: written}
}

// Write persists Kpg at timeName for restart
func (c *Controller) Write(timeName string) error {
	return c.store.Write(timeName, c.kpg, true)
}
