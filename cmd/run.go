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
	"fmt"
	"os"
	"time"

	"github.com/pkg/profile"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gophys/goburgers/input"
	"github.com/gophys/goburgers/model"
	"github.com/gophys/goburgers/output"
)

type RunOptions struct {
	Mode         string
	NamelistFile string
	OutFile      string
	Graph        bool
	Delay        time.Duration
	Profile      bool
}

// RunCmd represents the run command
var RunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a DNS or LES case of the 1D stochastic Burgers equation",
	Long:  `Run a DNS or LES case of the 1D stochastic Burgers equation`,
	Run: func(cmd *cobra.Command, args []string) {
		var (
			err error
		)
		ro := &RunOptions{}
		if ro.Mode, err = cmd.Flags().GetString("mode"); err != nil {
			panic(err)
		}
		if ro.NamelistFile, err = cmd.Flags().GetString("inputFile"); err != nil {
			panic(err)
		}
		ro.OutFile, _ = cmd.Flags().GetString("outputFile")
		ro.Graph, _ = cmd.Flags().GetBool("graph")
		dr, _ := cmd.Flags().GetInt("delay")
		ro.Delay = time.Duration(dr) * time.Millisecond
		ro.Profile, _ = cmd.Flags().GetBool("profile")
		nl := processNamelist(ro)
		Run(ro, nl)
	},
}

func processNamelist(ro *RunOptions) (nl *input.Namelist) {
	var (
		err error
	)
	if len(ro.NamelistFile) == 0 {
		err = fmt.Errorf("must supply a namelist file (-i, --inputFile) in YAML format")
		fmt.Printf("error: %s\n", err.Error())
		exampleFile := `
########################################
time:
  duration: 1.0
  cfl: 0.4
  max_step: 0.01
grid:
  length: 6.283185307179586
  dns:
    points: 8192
  les:
    points: 512
physics:
  viscosity: 1.0e-5
  subgrid_model: 0
  noise:
    exponent: -0.75
    amplitude: 1.0e-6
  hyperviscosity:
    enabled: false
output:
  interval_save: 0.1
  interval_print: 0.02
fftw:
  planning: measure
  threads: 1
logging:
  level: info
########################################
`
		fmt.Printf("Example File:%s\n", exampleFile)
		os.Exit(1)
	}
	var data []byte
	if data, err = os.ReadFile(ro.NamelistFile); err != nil {
		fmt.Printf("error: unable to read %s: %s\n", ro.NamelistFile, err.Error())
		os.Exit(1)
	}
	nl = &input.Namelist{}
	if err = nl.Parse(data); err != nil {
		fmt.Printf("error: %s\n", err.Error())
		os.Exit(1)
	}
	if err = nl.Validate(); err != nil {
		fmt.Printf("error: %s\n", err.Error())
		os.Exit(1)
	}
	return
}

func init() {
	rootCmd.AddCommand(RunCmd)
	RunCmd.Flags().StringP("mode", "m", "dns", "simulation mode: dns or les")
	RunCmd.Flags().StringP("inputFile", "i", "", "YAML namelist file with time/grid/physics/output/fftw sections")
	RunCmd.Flags().StringP("outputFile", "o", "", "output file (default goburgers_<mode>.gob)")
	RunCmd.Flags().BoolP("graph", "g", false, "display a graph of u(x) while computing solution")
	RunCmd.Flags().IntP("delay", "d", 0, "milliseconds of delay for plotting")
	RunCmd.Flags().Bool("profile", false, "write a CPU profile for the run")
}

func Run(ro *RunOptions, nl *input.Namelist) {
	if ro.Profile {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	}
	log := newLogger(nl)

	mode, err := model.ParseMode(ro.Mode)
	if err != nil {
		log.Error(err)
		os.Exit(1)
	}

	outFile := ro.OutFile
	if outFile == "" {
		outFile = nl.Output.File
	}
	if outFile == "" {
		outFile = fmt.Sprintf("goburgers_%s.gob", mode)
	}

	log.Info("##############################################################")
	log.Info("#                                                            #")
	log.Info("#                   Welcome to goburgers                     #")
	log.Info("#      A fun tool to study turbulence using DNS and LES      #")
	log.Info("#                                                            #")
	log.Info("##############################################################")

	sim, err := model.NewSimulation(mode, nl, log)
	if err != nil {
		log.Error(err)
		os.Exit(1)
	}

	sink, err := output.NewWriter(outFile, sim.Header())
	if err != nil {
		log.Errorf("unable to open output file %s: %s", outFile, err)
		os.Exit(1)
	}
	log.Infof("Saving output to %s", outFile)

	start := time.Now()
	if err = sim.Run(sink, ro.Graph, ro.Delay); err != nil {
		log.Error(err)
		os.Exit(1)
	}
	if err = sink.Close(); err != nil {
		log.Errorf("closing output: %s", err)
		os.Exit(1)
	}
	log.Infof("Done! Completed in %0.2f seconds", time.Since(start).Seconds())
	log.Info("##############################################################")
}

func newLogger(nl *input.Namelist) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	level, err := logrus.ParseLevel(nl.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	if nl.Logging.File != "" {
		if f, ferr := os.OpenFile(nl.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); ferr == nil {
			log.SetOutput(f)
		} else {
			log.Warnf("unable to open log file %s, logging to stderr: %s", nl.Logging.File, ferr)
		}
	}
	return log
}
