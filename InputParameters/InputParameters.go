package InputParameters

import (
	"fmt"
	"sort"

	"github.com/ghodss/yaml"
	"github.com/notargets/mpturb/closure"
	"github.com/notargets/mpturb/kepsilon"
	"github.com/notargets/mpturb/phase"
	"github.com/notargets/mpturb/types"
)

type GridParameters struct {
	N   [3]int            `json:"cells"` // Cells per axis
	L   [3]float64        `json:"L"`     // Domain extent per axis
	BCs map[string]string `json:"BCs"`   // Domain face (x-, x+, ...) to BC label
}

type TimeControl struct {
	StartTime      float64 `json:"startTime"`
	EndTime        float64 `json:"endTime"`
	DeltaT         float64 `json:"deltaT"`
	WriteInterval  float64 `json:"writeInterval"`
	AdjustTimeStep bool    `json:"adjustTimeStep"`
	MaxCo          float64 `json:"maxCo"`
	MaxDeltaT      float64 `json:"maxDeltaT"`
}

type TurbulenceParameters struct {
	closure.Config
	Coefficients kepsilon.Coefficients `json:"coefficients"`
	K            float64               `json:"k"`       // Initial turbulent kinetic energy
	Epsilon      float64               `json:"epsilon"` // Initial dissipation rate
}

// CaseParameters are read from the YAML case file
type CaseParameters struct {
	Title      string               `json:"Title"`
	Grid       GridParameters       `json:"Grid"`
	Time       TimeControl          `json:"Time"`
	Gas        phase.Properties     `json:"Gas"`
	Particles  phase.Properties     `json:"Particles"`
	Turbulence TurbulenceParameters `json:"Turbulence"`
}

const ExampleFile = `
########################################
Title: "Particle laden channel"
Grid:
  cells: [32, 8, 1]
  L: [0.32, 0.08, 0.01]
  BCs:
    y-: wall
    y+: wall
Time:
  startTime: 0
  endTime: 0.05
  deltaT: 1.e-4
  writeInterval: 0.01
  adjustTimeStep: true
  maxCo: 0.5
  maxDeltaT: 1.e-3
Gas:
  alpha: 0.99
  rho: 1.2
  nu: 1.5e-5
  U: [10, 0, 0]
Particles:
  alpha: 0.01
  d: 1.e-4
  rho: 2500
  U: [8, 0, 0]
  Theta: 0.01
Turbulence:
  particlePhase: particles
  writeFields: false
  CEpsilon3: 1.2
  estimator: koch # Can be "isotropic"
  k: 0.375
  epsilon: 14.855
########################################
`

func (cp *CaseParameters) Parse(data []byte) (err error) {
	cp.Turbulence.Coefficients = kepsilon.DefaultCoefficients()
	if err = yaml.Unmarshal(data, cp); err != nil {
		return
	}
	cp.Turbulence.Config = cp.Turbulence.Config.WithDefaults()
	if cp.Time.MaxCo == 0 {
		cp.Time.MaxCo = 1
	}
	if cp.Time.MaxDeltaT == 0 {
		cp.Time.MaxDeltaT = cp.Time.DeltaT
	}
	if cp.Time.WriteInterval == 0 {
		cp.Time.WriteInterval = cp.Time.EndTime - cp.Time.StartTime
	}
	return cp.Validate()
}

func (cp *CaseParameters) Validate() (err error) {
	for a := 0; a < 3; a++ {
		if cp.Grid.N[a] < 1 || cp.Grid.L[a] <= 0 {
			return fmt.Errorf("grid axis %d: need cells >= 1 and L > 0, have cells = %d, L = %g", a, cp.Grid.N[a], cp.Grid.L[a])
		}
	}
	for face, label := range cp.Grid.BCs {
		if _, err = types.NewFace(face); err != nil {
			return
		}
		if _, err = types.NewBCFLAG(label); err != nil {
			return
		}
	}
	tc := cp.Time
	if !(tc.DeltaT > 0) || !(tc.EndTime > tc.StartTime) || !(tc.WriteInterval > 0) || !(tc.MaxCo > 0) {
		return fmt.Errorf("time control needs deltaT > 0, endTime > startTime, writeInterval > 0 and maxCo > 0")
	}
	if !(cp.Turbulence.K > 0) || !(cp.Turbulence.Epsilon > 0) {
		return fmt.Errorf("initial k and epsilon must be positive, have %g and %g", cp.Turbulence.K, cp.Turbulence.Epsilon)
	}
	return cp.Turbulence.Config.Validate()
}

func (cp *CaseParameters) Print() {
	tc, tb := cp.Time, cp.Turbulence
	fmt.Printf("\"%s\"\t\t= Title\n", cp.Title)
	fmt.Printf("%v x %v\t= Grid\n", cp.Grid.N, cp.Grid.L)
	fmt.Printf("[%g, %g]\t\t= Time Span\n", tc.StartTime, tc.EndTime)
	fmt.Printf("%8.5g\t\t= DeltaT\n", tc.DeltaT)
	fmt.Printf("%8.5g\t\t= Write Interval\n", tc.WriteInterval)
	if tc.AdjustTimeStep {
		fmt.Printf("%8.5f\t\t= Max Courant Number\n", tc.MaxCo)
	}
	fmt.Printf("[%s]\t\t= Particle Phase\n", tb.ParticlePhase)
	fmt.Printf("[%s]\t\t\t= Kpg Estimator\n", tb.Estimator)
	fmt.Printf("%8.5f\t\t= CEpsilon3\n", tb.CEpsilon3)
	fmt.Printf("%v\t\t\t= Write Budget Fields\n", tb.WriteFields)
	keys := make([]string, len(cp.Grid.BCs))
	i := 0
	for k := range cp.Grid.BCs {
		keys[i] = k
		i++
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Printf("BCs[%s] = %v\n", key, cp.Grid.BCs[key])
	}
}
