package closure

import (
	"fmt"
	"math"
	"sort"
)

const (
	DefaultGasPhase   = "gas"
	DefaultDragPair   = "particlesInGas"
	DefaultCEpsilon3  = 1.2
	DefaultCsf        = 1.0
	DefaultThetaFloor = 1.e-15
	DefaultKFloor     = 1.e-15
)

// Config is the coefficient dictionary of the gas-particle closure. Zero
// values select the defaults; the controller keeps its own copy.
type Config struct {
	ParticlePhase string  `json:"particlePhase"`
	GasPhase      string  `json:"gasPhase,omitempty"`
	DragPair      string  `json:"dragPair,omitempty"`
	WriteFields   bool    `json:"writeFields"`
	CEpsilon3     float64 `json:"CEpsilon3,omitempty"`
	Estimator     string  `json:"estimator,omitempty"`
	Csf           float64 `json:"Csf,omitempty"`
	ThetaFloor    float64 `json:"ThetaFloor,omitempty"`
	KFloor        float64 `json:"KFloor,omitempty"`
}

func (c Config) WithDefaults() Config {
	if c.GasPhase == "" {
		c.GasPhase = DefaultGasPhase
	}
	if c.DragPair == "" {
		c.DragPair = DefaultDragPair
	}
	if c.CEpsilon3 == 0 {
		c.CEpsilon3 = DefaultCEpsilon3
	}
	if c.Estimator == "" {
		c.Estimator = EstimatorKoch
	}
	if c.Csf == 0 {
		c.Csf = DefaultCsf
	}
	if c.ThetaFloor == 0 {
		c.ThetaFloor = DefaultThetaFloor
	}
	if c.KFloor == 0 {
		c.KFloor = DefaultKFloor
	}
	return c
}

// Validate checks a defaulted configuration
func (c Config) Validate() error {
	if c.ParticlePhase == "" {
		return &ConfigError{Key: "particlePhase", Reason: "required"}
	}
	if c.ParticlePhase == c.GasPhase {
		return &ConfigError{Key: "particlePhase", Reason: fmt.Sprintf("must differ from the gas phase %q", c.GasPhase)}
	}
	for _, p := range []struct {
		key string
		val float64
	}{
		{"CEpsilon3", c.CEpsilon3},
		{"Csf", c.Csf},
		{"ThetaFloor", c.ThetaFloor},
		{"KFloor", c.KFloor},
	} {
		if p.val <= 0 || math.IsNaN(p.val) || math.IsInf(p.val, 0) {
			return &ConfigError{Key: p.key, Reason: fmt.Sprintf("must be positive and finite, have %g", p.val)}
		}
	}
	if _, ok := estimators[c.Estimator]; !ok {
		return &ConfigError{Key: "estimator", Reason: fmt.Sprintf("unknown estimator %q, have %v", c.Estimator, EstimatorNames())}
	}
	return nil
}

// Field names the closure reads and owns
func (c Config) AlphaParticle() string { return "alpha." + c.ParticlePhase }
func (c Config) DragName() string      { return "Kd." + c.DragPair }
func (c Config) SlipName() string      { return "Ur." + c.DragPair }
func (c Config) ThetaName() string     { return "Theta." + c.ParticlePhase }
func (c Config) KpgName() string       { return "Kpg." + c.GasPhase }

func EstimatorNames() (names []string) {
	for name := range estimators {
		names = append(names, name)
	}
	sort.Strings(names)
	return
}
