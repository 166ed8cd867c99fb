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
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/notargets/mpturb/InputParameters"
	"github.com/notargets/mpturb/field"
	"github.com/notargets/mpturb/fieldio"
	"github.com/pkg/profile"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type RunOptions struct {
	ICFile     string
	OutputDir  string
	Restart    bool
	Budget     bool
	Parallel   int
	Profile    string
	ShowParams bool
}

// RunCmd advances a case to its end time
var RunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a gas-particle case to its end time",
	Long: `
Reads a YAML case file, builds the grid, phases and turbulence models, and
advances them to endTime, writing NetCDF fields under <output>/<time>/.

mpturb run -I case.yaml -o results`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := runOptions(cmd)
		if err != nil {
			return err
		}
		return Run(cmd.Context(), opts)
	},
}

// BudgetCmd runs one step of a case and writes the turbulent kinetic energy
// budget of the gas phase, then stops with exit status 3
var BudgetCmd = &cobra.Command{
	Use:   "budget",
	Short: "Write the gas turbulent kinetic energy budget of one step and stop",
	Long: `
Runs a case with writeFields forced on. After the first correction the terms
ddt, div, production, dissipation, transport, dragSource and nuRatio are
written to the step's time directory and the run halts with exit status 3.

mpturb budget -I case.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := runOptions(cmd)
		if err != nil {
			return err
		}
		opts.Budget = true
		return Run(cmd.Context(), opts)
	},
}

func init() {
	for _, c := range []*cobra.Command{RunCmd, BudgetCmd} {
		rootCmd.AddCommand(c)
		c.Flags().StringP("inputConditionsFile", "I", "", "YAML case file, see the example printed when it is missing")
		c.Flags().BoolP("restart", "r", false, "start from the latest time directory in the output directory")
		c.Flags().BoolP("showParameters", "v", false, "print the case parameters before running")
	}
}

func runOptions(cmd *cobra.Command) (opts *RunOptions, err error) {
	opts = &RunOptions{
		OutputDir: viper.GetString("output"),
		Parallel:  viper.GetInt("parallel"),
		Profile:   viper.GetString("profile"),
	}
	if opts.ICFile, err = cmd.Flags().GetString("inputConditionsFile"); err != nil {
		return
	}
	opts.Restart, _ = cmd.Flags().GetBool("restart")
	opts.ShowParams, _ = cmd.Flags().GetBool("showParameters")
	return
}

func processInput(opts *RunOptions) (cp *InputParameters.CaseParameters, err error) {
	if len(opts.ICFile) == 0 {
		fmt.Printf("Example File:%s\n", InputParameters.ExampleFile)
		return nil, fmt.Errorf("must supply a case file (-I, --inputConditionsFile) in YAML format")
	}
	var data []byte
	if data, err = os.ReadFile(opts.ICFile); err != nil {
		return
	}
	cp = &InputParameters.CaseParameters{}
	if err = cp.Parse(data); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", opts.ICFile, err)
	}
	return
}

// Run executes a case with the given options
func Run(ctx context.Context, opts *RunOptions) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cp, err := processInput(opts)
	if err != nil {
		return
	}
	if opts.Budget {
		cp.Turbulence.WriteFields = true
	}
	if opts.ShowParams {
		cp.Print()
	}
	if opts.Parallel > 0 {
		field.ParallelDegree = opts.Parallel
	}
	if err = os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return
	}
	if p := startProfile(opts.Profile, opts.OutputDir); p != nil {
		defer p.Stop()
	}
	log := logrus.StandardLogger().WithField("case", filepath.Base(opts.ICFile))
	store := fieldio.NewStore(opts.OutputDir)
	store.Log = log
	c, err := NewCase(cp, store, opts.Restart, log)
	if err != nil {
		return
	}
	defer func() {
		log.WithField("state", c.String()).Info("end")
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	return c.Run(ctx)
}

type stopper interface{ Stop() }

func startProfile(kind, dir string) stopper {
	switch kind {
	case "cpu":
		return profile.Start(profile.CPUProfile, profile.ProfilePath(dir), profile.NoShutdownHook)
	case "mem":
		return profile.Start(profile.MemProfile, profile.ProfilePath(dir), profile.NoShutdownHook)
	case "":
		return nil
	}
	logrus.Warnf("unknown profile %q, want cpu or mem", kind)
	return nil
}
