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

	perf "github.com/hodgesds/perf-utils"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/notargets/goice/InputParameters"
	"github.com/notargets/goice/fieldio"
	"github.com/notargets/goice/grid"
	"github.com/notargets/goice/model_problems/IceSheet"
	"github.com/notargets/goice/rheology"
	"github.com/notargets/goice/types"
)

type ModelIce struct {
	ICFile     string // YAML run description
	InputFile  string // NetCDF bootstrap or restart
	OutputFile string
	Profile    bool
	Perf       bool
}

const exampleFile = `
########################################
Title: "Slab"
CFL: 0.5
FinalTime: 100 # years
MaxTimeStep: 1
StressBalance: sia # or "prescribed" with Velocity: [u, v] in m/a
Grid: {Mx: 21, My: 11, Lx: 50000, Ly: 25000, Lz: 2000, Mz: 21, Px: 2, Py: 2}
Bootstrap: # used without an input file
  thk: "1000"
  topg: "-0.001 * x"
  ice_surface_temp: "253.15"
  climatic_mass_balance: "0.1 / year"
########################################
`

// RunCmd represents the run command
var RunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the ice sheet model from a YAML run description",
	Long: `
Builds the grid, flow law, stress balance and boundary policies from the run
description, bootstraps from a NetCDF file or from expressions, runs to the
final time and writes the final state.

goice run -I params.yaml -i input.nc -o output.nc`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mi := &ModelIce{}
		mi.ICFile, _ = cmd.Flags().GetString("inputConditionsFile")
		mi.InputFile, _ = cmd.Flags().GetString("input")
		mi.OutputFile, _ = cmd.Flags().GetString("output")
		mi.Profile, _ = cmd.Flags().GetBool("profile")
		mi.Perf, _ = cmd.Flags().GetBool("perf")
		ip, err := processInput(mi)
		if err != nil {
			return err
		}
		return RunIce(mi, ip, viper.GetViper())
	},
}

func init() {
	rootCmd.AddCommand(RunCmd)
	RunCmd.Flags().StringP("inputConditionsFile", "I", "", "YAML run description, see the example printed when missing")
	RunCmd.Flags().StringP("input", "i", "", "NetCDF file with thk, topg and optional boundary inputs")
	RunCmd.Flags().StringP("output", "o", "", "NetCDF file for the final state")
	RunCmd.Flags().Bool("profile", false, "write a CPU profile of the run to the current directory")
	RunCmd.Flags().Bool("perf", false, "count CPU instructions of the run with perf events")
}

func processInput(mi *ModelIce) (ip *InputParameters.InputParametersIce, err error) {
	if len(mi.ICFile) == 0 {
		fmt.Printf("Example File:%s\n", exampleFile)
		return nil, fmt.Errorf("must supply an input parameters file (-I, --inputConditionsFile)")
	}
	var data []byte
	if data, err = os.ReadFile(mi.ICFile); err != nil {
		return
	}
	ip = &InputParameters.InputParametersIce{}
	if err = ip.Parse(data); err != nil {
		return nil, fmt.Errorf("%s: %w", mi.ICFile, err)
	}
	return
}

func RunIce(mi *ModelIce, ip *InputParameters.InputParametersIce, v *viper.Viper) (err error) {
	if verbose {
		ip.Print()
	}
	var (
		m  *IceSheet.IceSheet
		in *fieldio.MemoryStore
	)
	if m, in, err = buildModel(mi, ip, v); err != nil {
		return
	}
	if mi.Profile {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	}
	if err = runModel(m, mi.Perf); err != nil {
		return
	}
	if mi.OutputFile == "" {
		return
	}
	out := fieldio.NewMemoryStoreForGrid(m.G)
	for _, name := range in.AttributeNames() {
		val, _ := in.Attribute(name)
		out.SetAttribute(name, val)
	}
	if err = m.WriteToStore(out); err != nil {
		return
	}
	logger.Info("writing output", zap.String("file", mi.OutputFile))
	return writeStore(mi.OutputFile, out)
}

// runModel runs m, under an instruction counter when requested and available
func runModel(m *IceSheet.IceSheet, count bool) (err error) {
	if !count {
		return m.Run()
	}
	var (
		ran    bool
		runErr error
		pv     *perf.ProfileValue
	)
	pv, err = perf.CPUInstructions(func() error {
		ran = true
		runErr = m.Run()
		return runErr
	})
	switch {
	case runErr != nil:
		return runErr
	case err != nil && !ran:
		logger.Warn("perf events unavailable, running without the counter", zap.Error(err))
		return m.Run()
	case err != nil:
		logger.Warn("reading perf events", zap.Error(err))
		return nil
	}
	fmt.Fprintf(m.Out, "CPU instructions on the driving thread = %d\n", pv.Value)
	return
}

func buildModel(mi *ModelIce, ip *InputParameters.InputParametersIce, v *viper.Viper) (m *IceSheet.IceSheet,
	in *fieldio.MemoryStore, err error) {
	var (
		g   *grid.Grid
		law rheology.FlowLaw
	)
	c, err := calibration(v, ip.Constants)
	if err != nil {
		return
	}
	if mi.InputFile != "" {
		if in, err = readStore(mi.InputFile); err != nil {
			return
		}
		if g, err = gridFromStore(in, ip.Grid.Px, ip.Grid.Py); err != nil {
			return
		}
	} else {
		if len(ip.Bootstrap) == 0 {
			err = types.NewConfigurationError("Bootstrap", "need an input file (-i) or bootstrap expressions")
			return
		}
		if g, err = grid.NewGrid(grid.Params{
			Mx: ip.Grid.Mx, My: ip.Grid.My,
			Lx: ip.Grid.Lx, Ly: ip.Grid.Ly,
			Zlevels: ip.Levels(),
			Px:      ip.Grid.Px, Py: ip.Grid.Py,
		}); err != nil {
			return
		}
		if in, err = bootstrapStore(g.X, g.Y, g.Zlevels, ip.Bootstrap); err != nil {
			return
		}
	}
	if law, err = rheology.NewFlowLaw(ip.FlowLaw, c, ip.FlowLawExpression); err != nil {
		return
	}
	params := IceSheet.Params{
		FinalTime:     ip.FinalTime * IceSheet.SecondsPerYear,
		MaxIterations: ip.MaxIterations,
		CFL:           ip.CFL,
		MaxTimeStep:   ip.MaxTimeStep * IceSheet.SecondsPerYear,
		ColdIceMode:   ip.ColdIceMode,
		PrintEvery:    ip.PrintEvery,
	}
	if m, err = IceSheet.NewIceSheet(g, c, law, params, verbose); err != nil {
		return
	}
	m.SetLogger(logger)
	switch ip.StressBalance {
	case "sia":
		m.Stress = IceSheet.NewShallowIce(g)
	default:
		p := IceSheet.NewPrescribed(g)
		ua, va := ip.PrescribedVelocity()
		p.SetUniform(ua/IceSheet.SecondsPerYear, va/IceSheet.SecondsPerYear)
		m.Stress = p
	}
	if err = m.InitFromStore(in); err != nil {
		return
	}
	if ip.Regional {
		mask := g.NewField2D("no_model_mask", grid.Attributes{
			LongName: "mask: zeros (modeling domain) and ones (no-model buffer near grid edges)",
			Kind:     types.Field_State,
		})
		if err = in.Get(mask.Name, mask); err != nil {
			return
		}
		var r *IceSheet.Regional
		if r, err = IceSheet.NewRegional(mask, ip.ClosedBoundary); err != nil {
			return
		}
		if err = m.SetRegional(r); err != nil {
			return
		}
		// A restart keeps the snapshot of the first bootstrap
		if err = m.RestoreSnapshot(in); err != nil {
			return
		}
	}
	logger.Info("model built",
		zap.String("grid", g.Print()),
		zap.String("flow_law", law.Name()),
		zap.String("stress_balance", m.Stress.Name()),
		zap.String("flux_policy", m.Flux.Name()))
	return
}
