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
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notargets/goice/thermo"
)

type Conversion struct {
	Depth        float64
	Enthalpy     float64
	Temperature  float64
	Omega        float64
	FromEnthalpy bool
}

// ConvertCmd represents the convert command
var ConvertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert between enthalpy and temperature, water fraction at a depth",
	Long: `
Prints the pressure melting temperature and the solid and liquid enthalpy at
the given depth below the ice surface, then the requested conversion.

goice convert --depth 1000 --enthalpy 7.8e5
goice convert --depth 1000 --temperature 260 --omega 0`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		cv := &Conversion{}
		cv.Depth, _ = cmd.Flags().GetFloat64("depth")
		cv.Enthalpy, _ = cmd.Flags().GetFloat64("enthalpy")
		cv.Temperature, _ = cmd.Flags().GetFloat64("temperature")
		cv.Omega, _ = cmd.Flags().GetFloat64("omega")
		cv.FromEnthalpy = cmd.Flags().Changed("enthalpy")
		if !cv.FromEnthalpy && !cmd.Flags().Changed("temperature") {
			return fmt.Errorf("need --enthalpy or --temperature")
		}
		return Convert(cmd.OutOrStdout(), cv, viper.GetViper())
	},
}

func init() {
	rootCmd.AddCommand(ConvertCmd)
	ConvertCmd.Flags().Float64P("depth", "d", 0, "depth below the ice surface, m")
	ConvertCmd.Flags().Float64P("enthalpy", "E", 0, "enthalpy, J kg-1")
	ConvertCmd.Flags().Float64P("temperature", "T", 0, "absolute temperature, K")
	ConvertCmd.Flags().Float64("omega", 0, "liquid water fraction")
}

func Convert(w io.Writer, cv *Conversion, v *viper.Viper) (err error) {
	c, err := calibration(v, nil)
	if err != nil {
		return
	}
	var ec *thermo.EnthalpyConverter
	if ec, err = thermo.NewEnthalpyConverter(c); err != nil {
		return
	}
	p := ec.PressureFromDepth(cv.Depth)
	Tm, Hl, Hs := ec.PhaseBounds(p)
	fmt.Fprintf(w, "%14.6e\t= Pressure (Pa)\n", p)
	fmt.Fprintf(w, "%14.6f\t= Melting Temperature (K)\n", Tm)
	fmt.Fprintf(w, "%14.6f\t= Solid Enthalpy (J kg-1)\n", Hs)
	fmt.Fprintf(w, "%14.6f\t= Liquid Enthalpy (J kg-1)\n", Hl)
	if cv.FromEnthalpy {
		var T, omega float64
		if T, err = ec.AbsoluteTemperature(cv.Enthalpy, p); err != nil {
			return
		}
		if omega, err = ec.WaterFraction(cv.Enthalpy, p); err != nil {
			return
		}
		fmt.Fprintf(w, "%14.6f\t= Temperature (K)\n", T)
		fmt.Fprintf(w, "%14.6f\t= Water Fraction\n", omega)
		return
	}
	var H float64
	if H, err = ec.Enthalpy(cv.Temperature, cv.Omega, p); err != nil {
		return
	}
	fmt.Fprintf(w, "%14.6f\t= Enthalpy (J kg-1)\n", H)
	return
}
