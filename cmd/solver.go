/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/ctessum/unit"
	"github.com/notargets/mpturb/InputParameters"
	"github.com/notargets/mpturb/closure"
	"github.com/notargets/mpturb/field"
	"github.com/notargets/mpturb/fieldio"
	"github.com/notargets/mpturb/kepsilon"
	"github.com/notargets/mpturb/mesh"
	"github.com/notargets/mpturb/phase"
	"github.com/notargets/mpturb/types"
	"github.com/notargets/mpturb/utils"
	"github.com/sirupsen/logrus"
)

// RunTime is the solver clock. Time names are the time formatted with six
// significant digits.
type RunTime struct {
	Time      float64
	Index     int
	Control   InputParameters.TimeControl
	deltaT    float64
	nextWrite float64
}

func NewRunTime(startTime float64, tc InputParameters.TimeControl) *RunTime {
	return &RunTime{
		Time:      startTime,
		deltaT:    tc.DeltaT,
		Control:   tc,
		nextWrite: startTime + tc.WriteInterval,
	}
}

func TimeName(t float64) string { return strconv.FormatFloat(t, 'g', 6, 64) }

func (rt *RunTime) TimeName() string { return TimeName(rt.Time) }

func (rt *RunTime) DeltaT() float64 { return rt.deltaT }

func (rt *RunTime) SetDeltaT(dt float64) { rt.deltaT = dt }

func (rt *RunTime) Running() bool {
	return rt.Time < rt.Control.EndTime-0.5*rt.deltaT
}

// Advance steps the clock, shortening the last step to land on endTime
func (rt *RunTime) Advance() {
	if rem := rt.Control.EndTime - rt.Time; rt.deltaT > rem {
		rt.deltaT = rem
	}
	rt.Time += rt.deltaT
	rt.Index++
}

// AdjustDeltaT limits the time step to the maximum Courant number, growing
// it by at most 20% per step
func (rt *RunTime) AdjustDeltaT(coMax float64) {
	if !rt.Control.AdjustTimeStep {
		return
	}
	maxDeltaTFact := rt.Control.MaxCo / (coMax + utils.SMALL)
	deltaTFact := math.Min(math.Min(maxDeltaTFact, 1+0.1*maxDeltaTFact), 1.2)
	rt.deltaT = math.Min(deltaTFact*rt.deltaT, rt.Control.MaxDeltaT)
}

// WriteTime reports whether the current time is on a write interval
func (rt *RunTime) WriteTime() (write bool) {
	eps := 1.e-6 * rt.deltaT
	if rt.Time >= rt.nextWrite-eps || !rt.Running() {
		write = true
		for rt.nextWrite <= rt.Time+eps {
			rt.nextWrite += rt.Control.WriteInterval
		}
	}
	return
}

// Case is a fully assembled gas-particle run
type Case struct {
	Params     *InputParameters.CaseParameters
	Grid       *mesh.Grid
	Gas        *phase.Gas
	Particles  *phase.Particles
	Drag       *phase.Drag
	Registry   *field.Registry
	Base       *kepsilon.Model
	Controller *closure.Controller
	Store      *fieldio.Store
	Clock      *RunTime
	Log        logrus.FieldLogger
}

// NewCase builds the grid, phases and turbulence models of a case. With
// restart set, it starts from the latest time written under the store root.
func NewCase(cp *InputParameters.CaseParameters, store *fieldio.Store, restart bool, log logrus.FieldLogger) (c *Case, err error) {
	c = &Case{
		Params:   cp,
		Store:    store,
		Registry: field.NewRegistry(),
		Log:      log,
	}
	if c.Grid, err = mesh.NewGrid(cp.Grid.N[0], cp.Grid.N[1], cp.Grid.N[2], cp.Grid.L[0], cp.Grid.L[1], cp.Grid.L[2]); err != nil {
		return
	}
	for faceName, label := range cp.Grid.BCs {
		var (
			face types.Face
			bc   types.BCFLAG
		)
		if face, err = types.NewFace(faceName); err != nil {
			return
		}
		if bc, err = types.NewBCFLAG(label); err != nil {
			return
		}
		c.Grid.SetBC(face, bc)
	}
	var (
		tb     = cp.Turbulence
		n      = c.Grid.NCells()
		start  = cp.Time.StartTime
		k, eps *field.Scalar
	)
	if restart {
		var (
			latest string
			found  bool
		)
		if latest, found, err = store.LatestTime(); err != nil {
			return
		}
		if found {
			if start, err = strconv.ParseFloat(latest, 64); err != nil {
				return
			}
			log.WithField("time", latest).Info("restarting")
		}
	}
	c.Clock = NewRunTime(start, cp.Time)
	if c.Gas, err = phase.NewGas(tb.GasPhase, n, cp.Gas); err != nil {
		return
	}
	if c.Particles, err = phase.NewParticles(tb.ParticlePhase, n, cp.Particles); err != nil {
		return
	}
	if c.Drag, err = phase.NewDrag(tb.DragPair, c.Gas, c.Particles); err != nil {
		return
	}
	if k, err = c.initial(field.GroupName("k", tb.GasPhase), tb.K, types.DimVelocity2); err != nil {
		return
	}
	if eps, err = c.initial(field.GroupName("epsilon", tb.GasPhase), tb.Epsilon, types.DimDissipation); err != nil {
		return
	}
	gas := kepsilon.Gas{
		Alpha:       c.Gas.Alpha(),
		Rho:         c.Gas.Rho(),
		U:           c.Gas.Velocity(),
		AlphaRhoPhi: c.Gas.AlphaRhoPhi,
		Nu:          c.Gas.Nu,
	}
	if c.Base, err = kepsilon.New(c.Grid, tb.GasPhase, gas, k, eps, tb.Coefficients, c.Clock); err != nil {
		return
	}
	c.Base.Log = log
	c.Gas.Register(c.Registry)
	c.Particles.Register(c.Registry)
	c.Drag.Register(c.Registry)
	c.Registry.AddScalar(k, eps, c.Base.Nut(), c.Base.Dk)
	c.Controller, err = closure.New(tb.Config, closure.Dependencies{
		Fields:   c.Registry,
		Base:     c.Base,
		Calculus: c.Grid,
		Store:    store,
		Clock:    c.Clock,
		Log:      log,
	})
	return
}

// initial reads a restart field at the clock's time, or sets it uniform
func (c *Case) initial(name string, value float64, dims unit.Dimensions) (s *field.Scalar, err error) {
	var (
		timeName = c.Clock.TimeName()
		found    bool
	)
	if s, found, err = c.Store.ReadScalar(timeName, name, c.Grid.NCells()); err != nil || found {
		if found {
			c.Log.WithField("time", timeName).Infof("read %s", name)
			err = field.CheckDims(name, s.Dims, dims)
		}
		return
	}
	return field.NewScalar(name, c.Grid.NCells(), value, dims), nil
}

// Run advances the case to its end time. A diagnostic halt is returned as
// the error after the fields of that step have been written.
func (c *Case) Run(ctx context.Context) (err error) {
	var (
		rt    = c.Clock
		start = time.Now()
	)
	for rt.Running() {
		if err = ctx.Err(); err != nil {
			return
		}
		coMean, coMax := c.Grid.CourantNumber(c.Gas.Velocity(), rt.deltaT)
		rt.AdjustDeltaT(coMax)
		rt.Advance()
		c.Log.WithFields(logrus.Fields{
			"time":   rt.TimeName(),
			"deltaT": rt.deltaT,
			"coMean": coMean,
			"coMax":  coMax,
		}).Info("step")
		if err = c.Drag.Update(); err != nil {
			return
		}
		if err = c.Gas.UpdateMassFlux(); err != nil {
			return
		}
		if err = c.Controller.Correct(ctx); err != nil {
			if errors.Is(err, closure.ErrDiagnosticHalt) {
				if werr := c.Write(); werr != nil {
					return werr
				}
			}
			return
		}
		if rt.WriteTime() {
			if err = c.Write(); err != nil {
				return
			}
		}
		c.Log.WithFields(logrus.Fields{
			"kMax":   c.Base.K().Max(),
			"KpgMax": c.Controller.Kpg().Max(),
			"memory": utils.GetMemUsage(),
		}).Infof("ExecutionTime = %.3f s", time.Since(start).Seconds())
	}
	return
}

// Write persists the restart state and the gas velocity at the current time
func (c *Case) Write() (err error) {
	timeName := c.Clock.TimeName()
	for _, f := range []struct {
		f       field.Field
		restart bool
	}{
		{c.Base.K(), true},
		{c.Base.Epsilon(), true},
		{c.Base.Nut(), false},
		{c.Gas.Velocity(), false},
		{c.Drag.Kd, false},
	} {
		if err = c.Store.Write(timeName, f.f, f.restart); err != nil {
			return
		}
	}
	if err = c.Controller.Write(timeName); err != nil {
		return
	}
	c.Log.WithField("time", timeName).Info("wrote fields")
	return
}

func (c *Case) String() string {
	return fmt.Sprintf("%d cells, t = %s, %s", c.Grid.NCells(), c.Clock.TimeName(), c.Controller.State())
}
