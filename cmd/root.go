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
	"errors"
	"fmt"
	"os"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/notargets/mpturb/closure"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tebeka/atexit"
)

// Process exit codes
const (
	ExitOK             = 0
	ExitError          = 1
	ExitDiagnosticHalt = 3
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mpturb",
	Short: "Gas-particle k-epsilon turbulence with drag-induced energy exchange",
	Long: `
Solves the gas phase k-epsilon equations of a dispersed gas-particle flow,
with the turbulent kinetic energy exchanged through interphase drag modelled
from the gas-particle velocity correlation Kpg.

mpturb run -I case.yaml
mpturb budget -I case.yaml`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. It is called once by main.main() and never returns.
func Execute() {
	atexit.Exit(ExitCode(rootCmd.Execute()))
}

// ExitCode maps a command result to the process exit status
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, closure.ErrDiagnosticHalt):
		logrus.WithError(err).Info("stopped after writing the turbulence budget")
		return ExitDiagnosticHalt
	}
	logrus.WithError(err).Error("run failed")
	return ExitError
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.mpturb.yaml)")
	rootCmd.PersistentFlags().StringP("output", "o", ".", "directory holding the time directories")
	rootCmd.PersistentFlags().String("logLevel", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().IntP("parallel", "p", 1, "number of partitions for field kernels")
	rootCmd.PersistentFlags().String("profile", "", "write a cpu or mem profile to the output directory")
	for _, name := range []string{"output", "logLevel", "parallel", "profile"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			panic(err)
		}
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			atexit.Exit(ExitError)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".mpturb")
	}
	viper.SetEnvPrefix("mpturb")
	viper.AutomaticEnv() // read in environment variables that match

	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
		DisableSorting:  true,
	})
	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		logrus.Infof("using config file: %s", viper.ConfigFileUsed())
	}
	level, err := logrus.ParseLevel(viper.GetString("logLevel"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}
