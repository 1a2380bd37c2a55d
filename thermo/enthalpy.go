package thermo

import (
	"math"

	"github.com/notargets/goice/config"
	"github.com/notargets/goice/types"
)

// Tolerance on the melting bound when converting temperature to enthalpy
const MeltingTolerance = 1.e-6

/*
EnthalpyConverter maps between enthalpy and (temperature, water fraction) for
polythermal ice, following Aschwanden and Blatter (2009):

	T_m(p) = T_0 - beta p
	H_l(p) = c_w T_m(p)
	H_s(p) = H_l(p) - L

Cold ice has H < H_s, temperate ice has H_s <= H < H_l. Liquid water, H >= H_l,
is not a representable state.
*/
type EnthalpyConverter struct {
	c config.Constants
}

func NewEnthalpyConverter(c config.Constants) (ec *EnthalpyConverter, err error) {
	if err = c.Validate(); err != nil {
		return
	}
	ec = &EnthalpyConverter{c: c}
	return
}

func (ec *EnthalpyConverter) Constants() config.Constants { return ec.c }

func (ec *EnthalpyConverter) PressureFromDepth(depth float64) (p float64) {
	p = ec.c.SurfacePressure
	if depth > 0 {
		p += ec.c.IceDensity * ec.c.EarthGravity * depth
	}
	return
}

func (ec *EnthalpyConverter) PressureMeltingTemperature(p float64) float64 {
	return ec.c.WaterMeltingTemperature - ec.c.BetaCC*p
}

func (ec *EnthalpyConverter) LiquidEnthalpy(p float64) float64 {
	return ec.c.WaterSpecificHeat * ec.PressureMeltingTemperature(p)
}

func (ec *EnthalpyConverter) SolidEnthalpy(p float64) float64 {
	return ec.LiquidEnthalpy(p) - ec.c.LatentHeat
}

// PhaseBounds returns the pressure-melting triple at pressure p
func (ec *EnthalpyConverter) PhaseBounds(p float64) (Tm, Hl, Hs float64) {
	Tm = ec.PressureMeltingTemperature(p)
	Hl = ec.c.WaterSpecificHeat * Tm
	Hs = Hl - ec.c.LatentHeat
	return
}

func (ec *EnthalpyConverter) liquidError(op string, H, p, Hl float64) error {
	return types.NewPhysicalViolation(op, types.ErrLiquidWater,
		map[string]float64{"H": H, "p": p, "H_l": Hl})
}

func (ec *EnthalpyConverter) AbsoluteTemperature(H, p float64) (T float64, err error) {
	Tm, Hl, Hs := ec.PhaseBounds(p)
	switch {
	case H < Hs:
		T = Tm + (H-Hs)/ec.c.IceSpecificHeat
	case H < Hl:
		T = Tm
	default:
		err = ec.liquidError("AbsoluteTemperature", H, p, Hl)
	}
	return
}

func (ec *EnthalpyConverter) WaterFraction(H, p float64) (omega float64, err error) {
	_, Hl, Hs := ec.PhaseBounds(p)
	switch {
	case H <= Hs:
		omega = 0
	case H < Hl:
		omega = (H - Hs) / ec.c.LatentHeat
	default:
		err = ec.liquidError("WaterFraction", H, p, Hl)
	}
	return
}

// PressureAdjustedTemperature is the temperature measured from the local
// melting point and shifted to T_0, the argument expected by flow laws
func (ec *EnthalpyConverter) PressureAdjustedTemperature(H, p float64) (Tpa float64, err error) {
	var T float64
	if T, err = ec.AbsoluteTemperature(H, p); err != nil {
		return
	}
	Tpa = T - ec.PressureMeltingTemperature(p) + ec.c.WaterMeltingTemperature
	return
}

// Enthalpy converts absolute temperature and water fraction. T may exceed
// T_m(p) by up to T_0 - T_m(p), such values are taken to be at the melting
// point.
func (ec *EnthalpyConverter) Enthalpy(T, omega, p float64) (H float64, err error) {
	return ec.enthalpy("Enthalpy", T, omega, p, ec.c.WaterMeltingTemperature)
}

// EnthalpyHomologous is Enthalpy with the melting bound taken at T_m(p)
func (ec *EnthalpyConverter) EnthalpyHomologous(T, omega, p float64) (H float64, err error) {
	return ec.enthalpy("EnthalpyHomologous", T, omega, p, ec.PressureMeltingTemperature(p))
}

func (ec *EnthalpyConverter) enthalpy(op string, T, omega, p, bound float64) (H float64, err error) {
	values := func() map[string]float64 {
		return map[string]float64{"T": T, "omega": omega, "p": p}
	}
	if omega < 0 || omega > 1 || math.IsNaN(omega) {
		err = types.NewPhysicalViolation(op, types.ErrInvalidWaterFraction, values())
		return
	}
	if T > bound+MeltingTolerance || math.IsNaN(T) {
		err = types.NewPhysicalViolation(op, types.ErrSupercooledInput, values())
		return
	}
	var (
		Tm, _, Hs = ec.PhaseBounds(p)
		Tc        = math.Min(T, Tm)
		ci, cw    = ec.c.IceSpecificHeat, ec.c.WaterSpecificHeat
	)
	if omega > 0 && Tc < Tm-MeltingTolerance {
		// Cold ice cannot hold liquid water
		err = types.NewPhysicalViolation(op, types.ErrInvalidWaterFraction, values())
		return
	}
	H = Hs + ((1-omega)*ci+omega*cw)*(Tc-Tm) + omega*ec.c.LatentHeat
	return
}

func (ec *EnthalpyConverter) IsTemperate(H, p float64) bool {
	return H >= ec.SolidEnthalpy(p)
}

// ColdEnthalpy is the enthalpy of ice at temperature T with no water content
func (ec *EnthalpyConverter) ColdEnthalpy(T, p float64) (H float64, err error) {
	return ec.Enthalpy(T, 0, p)
}
