package closure

import (
	"fmt"

	"github.com/notargets/mpturb/field"
	"github.com/notargets/mpturb/source"
	"github.com/sirupsen/logrus"
)

// BudgetFieldNames are the terms of the gas turbulent kinetic energy budget,
// in the order they are written.
var BudgetFieldNames = []string{
	"ddt", "div", "production", "dissipation", "transport", "dragSource", "nuRatio",
}

// DiagnosticBudgetEmitter evaluates the gas-phase turbulent kinetic energy
// budget from the corrected state and persists it, not for restart.
type DiagnosticBudgetEmitter struct {
	cfg    Config
	fields field.Provider
	calc   Calculus
	store  Persister
	Log    logrus.FieldLogger
}

func NewDiagnosticBudgetEmitter(cfg Config, fields field.Provider, calc Calculus, store Persister,
	log logrus.FieldLogger) *DiagnosticBudgetEmitter {
	return &DiagnosticBudgetEmitter{cfg: cfg, fields: fields, calc: calc, store: store, Log: log}
}

type gasFields struct {
	alpha, rho, Dk *field.Scalar
	alphaRhoPhi, U *field.Vector
}

func (b *DiagnosticBudgetEmitter) gas() (g gasFields, err error) {
	gp := b.cfg.GasPhase
	scalars := []struct {
		name string
		dst  **field.Scalar
	}{
		{field.GroupName("alpha", gp), &g.alpha},
		{field.GroupName("thermo:rho", gp), &g.rho},
		{field.GroupName("Dk", gp), &g.Dk},
	}
	for _, s := range scalars {
		if *s.dst, err = b.fields.Scalar(s.name); err != nil {
			return g, &ConfigError{Key: "writeFields", Reason: "gas field lookup failed", Err: err}
		}
	}
	vectors := []struct {
		name string
		dst  **field.Vector
	}{
		{field.GroupName("alphaRhoPhi", gp), &g.alphaRhoPhi},
		{field.GroupName("U", gp), &g.U},
	}
	for _, v := range vectors {
		if *v.dst, err = b.fields.Vector(v.name); err != nil {
			return g, &ConfigError{Key: "writeFields", Reason: "gas field lookup failed", Err: err}
		}
	}
	return
}

// Compute evaluates the budget terms in BudgetFieldNames order
func (b *DiagnosticBudgetEmitter) Compute(base BaseClosure, kSource source.Term, dt float64) (terms []*field.Scalar, err error) {
	g, err := b.gas()
	if err != nil {
		return
	}
	var (
		k, eps, nut, nu = base.K(), base.Epsilon(), base.Nut(), base.Nu()
		t               = make(map[string]*field.Scalar, len(BudgetFieldNames))
	)
	if t["ddt"], err = b.calc.Ddt(dt, g.alpha, g.rho, k); err != nil {
		return nil, fmt.Errorf("ddt: %w", err)
	}
	if t["div"], err = b.calc.DivFlux(g.alphaRhoPhi, k); err != nil {
		return nil, fmt.Errorf("div: %w", err)
	}
	if t["production"], err = b.production(g, nut); err != nil {
		return nil, fmt.Errorf("production: %w", err)
	}
	if t["dissipation"], err = field.Mul("dissipation", g.alpha, eps); err != nil {
		return nil, fmt.Errorf("dissipation: %w", err)
	}
	if t["transport"], err = b.transport(g, k); err != nil {
		return nil, fmt.Errorf("transport: %w", err)
	}
	if t["dragSource"], err = kSource.Evaluate("dragSource", k); err != nil {
		return nil, fmt.Errorf("dragSource: %w", err)
	}
	if t["nuRatio"], err = field.Div("nuRatio", nut, nu); err != nil {
		return nil, fmt.Errorf("nuRatio: %w", err)
	}
	for _, name := range BudgetFieldNames {
		t[name].Name = name
		terms = append(terms, t[name])
	}
	return
}

// production is (rho nut dev(twoSymm(grad U))) && grad(alpha U)
func (b *DiagnosticBudgetEmitter) production(g gasFields, nut *field.Scalar) (p *field.Scalar, err error) {
	gradU, err := b.calc.GradVector(g.U)
	if err != nil {
		return
	}
	rhoNut, err := field.Mul("rho*nut", g.rho, nut)
	if err != nil {
		return
	}
	R, err := field.ScaleTensor("R", rhoNut, field.Dev("dev(twoSymm(gradU))", field.TwoSymm("twoSymm(gradU)", gradU)))
	if err != nil {
		return
	}
	alphaU, err := field.ScaleVector("alpha*U", g.alpha, g.U)
	if err != nil {
		return
	}
	gradAlphaU, err := b.calc.GradVector(alphaU)
	if err != nil {
		return
	}
	return field.DoubleDot("production", R, gradAlphaU)
}

// transport is div((alpha rho Dk) grad k)
func (b *DiagnosticBudgetEmitter) transport(g gasFields, k *field.Scalar) (tr *field.Scalar, err error) {
	gamma, err := field.Mul("alpha*rho*Dk", g.alpha, g.rho, g.Dk)
	if err != nil {
		return
	}
	gradK, err := b.calc.Grad(k)
	if err != nil {
		return
	}
	flux, err := field.ScaleVector("gamma*grad(k)", gamma, gradK)
	if err != nil {
		return
	}
	return b.calc.Div(flux)
}

// Emit computes the budget and writes every term at timeName with the
// restart tag off. It returns the names written.
func (b *DiagnosticBudgetEmitter) Emit(timeName string, base BaseClosure, kSource source.Term, dt float64) (written []string, err error) {
	terms, err := b.Compute(base, kSource, dt)
	if err != nil {
		return
	}
	for _, f := range terms {
		if err = b.store.Write(timeName, f, false); err != nil {
			return written, fmt.Errorf("writing %s: %w", f.Name, err)
		}
		written = append(written, f.Name)
		b.Log.WithFields(logrus.Fields{
			"time":  timeName,
			"field": f.Name,
			"min":   f.Min(),
			"max":   f.Max(),
		}).Debug("budget term")
	}
	return
}
