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
	"math"
	"os"

	"github.com/Knetic/govaluate"

	"github.com/notargets/goice/fieldio"
	"github.com/notargets/goice/grid"
	"github.com/notargets/goice/model_problems/IceSheet"
	"github.com/notargets/goice/types"
	"github.com/notargets/goice/utils"
)

// Fields stored per level when bootstrapped from expressions
var columnFields = map[string]bool{"temp": true, "enthalpy": true}

type pointParameters struct {
	x, y, z float64
}

func (pp pointParameters) Get(name string) (interface{}, error) {
	switch name {
	case "x":
		return pp.x, nil
	case "y":
		return pp.y, nil
	case "z":
		return pp.z, nil
	case "year":
		return IceSheet.SecondsPerYear, nil
	}
	return nil, fmt.Errorf("unknown variable %q, expressions may use x, y, z and year", name)
}

func oneArg(name string, fn func(float64) float64) govaluate.ExpressionFunction {
	return func(args ...interface{}) (interface{}, error) {
		x, err := utils.FloatArgs(name, 1, args)
		if err != nil {
			return nil, err
		}
		return fn(x[0]), nil
	}
}

var bootstrapFunctions = map[string]govaluate.ExpressionFunction{
	"exp":  oneArg("exp", math.Exp),
	"sqrt": oneArg("sqrt", math.Sqrt),
	"abs":  oneArg("abs", math.Abs),
	"max": func(args ...interface{}) (interface{}, error) {
		x, err := utils.FloatArgs("max", 2, args)
		if err != nil {
			return nil, err
		}
		return math.Max(x[0], x[1]), nil
	},
}

/*
bootstrapStore evaluates each expression on the cell centers of a store
sized by X, Y and Zlevels. Column fields are evaluated per level, the rest at
z = 0. Values are in SI units; "year" converts annual rates.
*/
func bootstrapStore(X, Y, Zlevels []float64, exprs map[string]string) (s *fieldio.MemoryStore, err error) {
	s = fieldio.NewMemoryStore(len(X), len(Y), X, Y, Zlevels)
	for name, text := range exprs {
		var expr *govaluate.EvaluableExpression
		if expr, err = govaluate.NewEvaluableExpressionWithFunctions(text, bootstrapFunctions); err != nil {
			return nil, types.NewConfigurationError("Bootstrap."+name, "%v", err)
		}
		Mz := 1
		if columnFields[name] {
			Mz = len(Zlevels)
		}
		v := &fieldio.Variable{Name: name, Mz: Mz, Data: make([]float64, len(X)*len(Y)*Mz)}
		for j, y := range Y {
			for i, x := range X {
				for k := 0; k < Mz; k++ {
					var res interface{}
					if res, err = expr.Eval(pointParameters{x: x, y: y, z: Zlevels[k]}); err != nil {
						return nil, types.NewConfigurationError("Bootstrap."+name, "%v", err)
					}
					val, ok := res.(float64)
					if !ok {
						return nil, types.NewConfigurationError("Bootstrap."+name,
							"expression %q returned %T, not a number", text, res)
					}
					v.Data[(j*len(X)+i)*Mz+k] = val
				}
			}
		}
		if err = s.PutVariable(v); err != nil {
			return
		}
	}
	return
}

// readStore loads a NetCDF input file
func readStore(path string) (s *fieldio.MemoryStore, err error) {
	var f *os.File
	if f, err = os.Open(path); err != nil {
		return
	}
	defer f.Close()
	return fieldio.ReadNetCDF(f)
}

// writeStore persists s, replacing any existing file
func writeStore(path string, s *fieldio.MemoryStore) (err error) {
	var f *os.File
	if f, err = os.Create(path); err != nil {
		return
	}
	if err = fieldio.WriteNetCDF(f, s); err != nil {
		f.Close()
		return
	}
	return f.Close()
}

// gridFromStore sizes a grid to the coordinates of s, centered on the origin
func gridFromStore(s *fieldio.MemoryStore, Px, Py int) (g *grid.Grid, err error) {
	if s.Mx < 2 || s.My < 2 {
		return nil, types.NewConfigurationError("x", "input has a %dx%d grid", s.Mx, s.My)
	}
	return grid.NewGrid(grid.Params{
		Mx: s.Mx, My: s.My,
		Lx:      0.5 * (s.X[s.Mx-1] - s.X[0]),
		Ly:      0.5 * (s.Y[s.My-1] - s.Y[0]),
		Zlevels: s.Zlevels,
		Px:      Px, Py: Py,
	})
}
