package closure

import (
	"fmt"

	"github.com/notargets/mpturb/field"
	"github.com/notargets/mpturb/source"
	"github.com/notargets/mpturb/types"
)

// DragSourceBuilder linearises the drag-induced exchange of turbulent
// kinetic energy between the phases for the k and epsilon equations. It reads
// Kpg through the pointer owned by the controller, so sources built after a
// refresh see the refreshed values.
type DragSourceBuilder struct {
	cfg    Config
	fields field.Provider
	base   BaseClosure
	kpg    *field.Scalar
}

func NewDragSourceBuilder(cfg Config, fields field.Provider, base BaseClosure, kpg *field.Scalar) *DragSourceBuilder {
	return &DragSourceBuilder{cfg: cfg, fields: fields, base: base, kpg: kpg}
}

// alphaKd returns alpha*Kd of the particle phase
func (d *DragSourceBuilder) alphaKd() (aKd *field.Scalar, err error) {
	phase, err := d.fields.Phase(d.cfg.AlphaParticle())
	if err != nil {
		return nil, &ConfigError{Key: "particlePhase", Reason: "phase fraction lookup failed", Err: err}
	}
	Kd, err := d.fields.Scalar(d.cfg.DragName())
	if err != nil {
		return nil, &ConfigError{Key: "dragPair", Reason: "drag coefficient lookup failed", Err: err}
	}
	if err = field.CheckDims(Kd.Name, Kd.Dims, types.DimDrag); err != nil {
		return nil, &ConfigError{Key: "dragPair", Reason: "drag coefficient", Err: err}
	}
	if aKd, err = field.Mul("alpha*Kd", phase.Alpha(), Kd); err != nil {
		return nil, err
	}
	if aKd.Len() != d.kpg.Len() {
		return nil, fmt.Errorf("%s has %d cells, %s has %d", aKd.Name, aKd.Len(), d.kpg.Name, d.kpg.Len())
	}
	return
}

// KSource returns S_k = Sp*k + Su with
//
//	Sp = -2 alpha Kd
//	Su = alpha Kd Kpg
func (d *DragSourceBuilder) KSource() (t source.Term, err error) {
	aKd, err := d.alphaKd()
	if err != nil {
		return
	}
	t = source.NewTerm("kSource."+d.cfg.DragPair, aKd.Len(), field.MulDims(aKd.Dims, d.kpg.Dims))
	for i, val := range aKd.Data {
		t.Sp[i] = -2 * val
		t.Su[i] = val * d.kpg.Data[i]
	}
	if err = t.Check(types.DimKSource); err != nil {
		return t, &ConfigError{Key: d.kpg.Name, Reason: "k source", Err: err}
	}
	return
}

// EpsilonSource returns S_eps = Sp*epsilon with
//
//	Sp = CEpsilon3 alpha Kd (Kpg / max(k, KFloor) - 2)
//
// Sp is positive where Kpg exceeds 2k.
func (d *DragSourceBuilder) EpsilonSource() (t source.Term, err error) {
	aKd, err := d.alphaKd()
	if err != nil {
		return
	}
	k, eps := d.base.K(), d.base.Epsilon()
	if k.Len() != aKd.Len() {
		return t, fmt.Errorf("%s has %d cells, %s has %d", k.Name, k.Len(), aKd.Name, aKd.Len())
	}
	t = source.NewTerm("epsilonSource."+d.cfg.DragPair, aKd.Len(), field.MulDims(aKd.Dims, eps.Dims))
	for i, val := range aKd.Data {
		kk := k.Data[i]
		if !(kk >= d.cfg.KFloor) {
			kk = d.cfg.KFloor
		}
		t.Sp[i] = d.cfg.CEpsilon3 * val * (d.kpg.Data[i]/kk - 2)
	}
	if err = t.Check(types.DimEpsilonSource); err != nil {
		return t, &ConfigError{Key: eps.Name, Reason: "epsilon source", Err: err}
	}
	return
}
