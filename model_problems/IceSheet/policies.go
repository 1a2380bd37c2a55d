package IceSheet

import (
	"math"

	"github.com/notargets/goice/grid"
	"github.com/notargets/goice/thermo"
	"github.com/notargets/goice/types"
)

/*
FluxPolicy decides which cells are modeled and how faces touching cells held
by external data are treated. Faces are addressed canonically by the cell on
their west or south side and the direction East or North.
*/
type FluxPolicy interface {
	Name() string
	Held(rank, i, j int) bool
	// Thickness and Surface return what the steppers read at (i,j)
	Thickness(rank, i, j int, live grid.View) float64
	Surface(rank, i, j int, live grid.View) float64
	// ResolveFace returns the flux used for face (i,j,d), given the one computed from live fields
	ResolveFace(rank, i, j int, d types.Direction, computed float64) float64
}

// EnthalpyPolicy supplies the boundary values of the enthalpy stepper
type EnthalpyPolicy interface {
	Name() string
	SurfaceEnthalpy(ec *thermo.EnthalpyConverter, Ts, p float64) (float64, error)
	// BasalHeatFlux is the heat entering a cold base from below, W m-2
	BasalHeatFlux(G float64) float64
	// HeldColumn returns the column and basal melt rate to copy instead of stepping
	HeldColumn(rank, i, j int) (col []float64, bmr float64, held bool)
}

// StandardFlux models every cell
type StandardFlux struct{}

func (StandardFlux) Name() string { return "standard" }
func (StandardFlux) Held(rank, i, j int) bool { return false }
func (StandardFlux) Thickness(rank, i, j int, live grid.View) float64 { return live.At(i, j) }
func (StandardFlux) Surface(rank, i, j int, live grid.View) float64 { return live.At(i, j) }
func (StandardFlux) ResolveFace(_, _, _ int, _ types.Direction, F float64) float64 { return F }

// DefaultEnthalpyBC is the Dirichlet surface, geothermal base condition
type DefaultEnthalpyBC struct{}

func (DefaultEnthalpyBC) Name() string { return "default" }

// SurfaceEnthalpy takes air temperatures above the melting point as melting
func (DefaultEnthalpyBC) SurfaceEnthalpy(ec *thermo.EnthalpyConverter, Ts, p float64) (float64, error) {
	return ec.Enthalpy(math.Min(Ts, ec.PressureMeltingTemperature(p)), 0, p)
}

func (DefaultEnthalpyBC) BasalHeatFlux(G float64) float64 { return G }

func (DefaultEnthalpyBC) HeldColumn(rank, i, j int) ([]float64, float64, bool) {
	return nil, 0, false
}
