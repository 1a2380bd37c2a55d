package config

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ctessum/unit"

	"github.com/notargets/goice/types"
)

// Constants holds every calibration constant used by the thermodynamic core.
// It is a value type and is copied into each consumer.
type Constants struct {
	WaterMeltingTemperature    float64 // T_0, K
	BetaCC                     float64 // Clausius-Clapeyron constant, K Pa-1
	IceSpecificHeat            float64 // c_i, J kg-1 K-1
	WaterSpecificHeat          float64 // c_w, J kg-1 K-1
	LatentHeat                 float64 // L, J kg-1
	IceDensity                 float64 // kg m-3
	EarthGravity               float64 // m s-2
	SurfacePressure            float64 // Pa
	IceThermalConductivity     float64 // W m-1 K-1
	TemperateConductivityRatio float64
	GlenExponent               float64
	SchoofRegularization       float64 // s-2
	WaterFractionCoefficient   float64
	MaxWaterFraction           float64
	BulgeMax                   float64 // K
	SIAEnhancementFactor       float64
	// Paterson-Budd
	SoftnessColdFactor  float64 // Pa-3 s-1
	SoftnessWarmFactor  float64 // Pa-3 s-1
	ActivationColdQ     float64 // J mol-1
	ActivationWarmQ     float64 // J mol-1
	CriticalTemperature float64 // K
	IdealGasConstant    float64 // J mol-1 K-1
}

const secondsPerYear = 3.15569259747e7

// Default returns the calibration used by the reference ice model
func Default() (c Constants) {
	c = Constants{
		WaterMeltingTemperature:    273.15,
		BetaCC:                     7.9e-8,
		IceSpecificHeat:            2009,
		WaterSpecificHeat:          4170,
		LatentHeat:                 3.34e5,
		IceDensity:                 910,
		EarthGravity:               9.81,
		SurfacePressure:            0,
		IceThermalConductivity:     2.10,
		TemperateConductivityRatio: 0.1,
		GlenExponent:               3,
		WaterFractionCoefficient:   184,
		MaxWaterFraction:           0.01,
		BulgeMax:                   15,
		SIAEnhancementFactor:       1,
		SoftnessColdFactor:         3.61e-13,
		SoftnessWarmFactor:         1.73e3,
		ActivationColdQ:            6.0e4,
		ActivationWarmQ:            13.9e4,
		CriticalTemperature:        263.15,
		IdealGasConstant:           8.31441,
	}
	// (1 m/a)^2 / (1000 km)^2
	c.SchoofRegularization = math.Pow(1/secondsPerYear, 2) / math.Pow(1.e6, 2)
	return
}

type accessor struct {
	get func(c *Constants) *float64
	// positive means the value must be strictly greater than zero
	positive bool
}

var keyMap = map[string]accessor{
	"water_melting_temperature":          {func(c *Constants) *float64 { return &c.WaterMeltingTemperature }, true},
	"beta_CC":                            {func(c *Constants) *float64 { return &c.BetaCC }, false},
	"ice_specific_heat_capacity":         {func(c *Constants) *float64 { return &c.IceSpecificHeat }, true},
	"water_specific_heat_capacity":       {func(c *Constants) *float64 { return &c.WaterSpecificHeat }, true},
	"water_latent_heat_fusion":           {func(c *Constants) *float64 { return &c.LatentHeat }, true},
	"ice_density":                        {func(c *Constants) *float64 { return &c.IceDensity }, true},
	"earth_gravity":                      {func(c *Constants) *float64 { return &c.EarthGravity }, true},
	"surface_pressure":                   {func(c *Constants) *float64 { return &c.SurfacePressure }, false},
	"ice_thermal_conductivity":           {func(c *Constants) *float64 { return &c.IceThermalConductivity }, true},
	"temperate_ice_conductivity_ratio":   {func(c *Constants) *float64 { return &c.TemperateConductivityRatio }, true},
	"Glen_exponent":                      {func(c *Constants) *float64 { return &c.GlenExponent }, true},
	"Schoof_regularization":              {func(c *Constants) *float64 { return &c.SchoofRegularization }, true},
	"water_fraction_coefficient":         {func(c *Constants) *float64 { return &c.WaterFractionCoefficient }, false},
	"liquid_water_fraction_max":          {func(c *Constants) *float64 { return &c.MaxWaterFraction }, true},
	"enthalpy_cold_bulge_max":            {func(c *Constants) *float64 { return &c.BulgeMax }, true},
	"sia_enhancement_factor":             {func(c *Constants) *float64 { return &c.SIAEnhancementFactor }, true},
	"Paterson_Budd_A_cold":               {func(c *Constants) *float64 { return &c.SoftnessColdFactor }, true},
	"Paterson_Budd_A_warm":               {func(c *Constants) *float64 { return &c.SoftnessWarmFactor }, true},
	"Paterson_Budd_Q_cold":               {func(c *Constants) *float64 { return &c.ActivationColdQ }, true},
	"Paterson_Budd_Q_warm":               {func(c *Constants) *float64 { return &c.ActivationWarmQ }, true},
	"Paterson_Budd_critical_temperature": {func(c *Constants) *float64 { return &c.CriticalTemperature }, true},
	"ideal_gas_constant":                 {func(c *Constants) *float64 { return &c.IdealGasConstant }, true},
}

// Keys lists the recognized configuration names in sorted order
func Keys() (keys []string) {
	for k := range keyMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return
}

func lookupKey(name string) (acc accessor, err error) {
	var ok bool
	if acc, ok = keyMap[name]; ok {
		return
	}
	// Accept case variations from environment and config files
	for k, a := range keyMap {
		if strings.EqualFold(k, name) {
			return a, nil
		}
	}
	err = types.NewConfigurationError(name, "unknown calibration constant")
	return
}

// Lookup resolves a named constant
func (c Constants) Lookup(name string) (val float64, err error) {
	var acc accessor
	if acc, err = lookupKey(name); err != nil {
		return
	}
	val = *acc.get(&c)
	return
}

// Set overwrites a named constant on a copy of c
func (c Constants) Set(name string, val float64) (cc Constants, err error) {
	var acc accessor
	cc = c
	if acc, err = lookupKey(name); err != nil {
		return
	}
	*acc.get(&cc) = val
	return
}

// FromMap overlays named values on the defaults and validates the result
func FromMap(values map[string]float64) (c Constants, err error) {
	c = Default()
	for name, val := range values {
		if c, err = c.Set(name, val); err != nil {
			return
		}
	}
	err = c.Validate()
	return
}

// Validate checks that every required constant is present and physically
// meaningful, and that the enthalpy scale is dimensionally consistent.
func (c Constants) Validate() (err error) {
	for _, name := range Keys() {
		acc := keyMap[name]
		val := *acc.get(&c)
		switch {
		case math.IsNaN(val) || math.IsInf(val, 0):
			return types.NewConfigurationError(name, "value %v is not finite", val)
		case acc.positive && val <= 0:
			return types.NewConfigurationError(name, "value %v must be positive", val)
		case val < 0:
			return types.NewConfigurationError(name, "value %v must not be negative", val)
		}
	}
	if c.MaxWaterFraction >= 1 {
		return types.NewConfigurationError("liquid_water_fraction_max",
			"value %v must be below 1", c.MaxWaterFraction)
	}
	return c.checkDimensions()
}

var (
	joulesPerKg = unit.Dimensions{unit.LengthDim: 2, unit.TimeDim: -2}
	heatCap     = unit.Dimensions{unit.LengthDim: 2, unit.TimeDim: -2, unit.TemperatureDim: -1}
	kelvinPerPa = unit.Dimensions{unit.MassDim: -1, unit.LengthDim: 1, unit.TimeDim: 2, unit.TemperatureDim: 1}
)

// checkDimensions verifies c_w T_0 and L are both specific energies, and that
// the overburden pressure and beta p carry the expected units.
func (c Constants) checkDimensions() (err error) {
	var (
		T0   = unit.New(c.WaterMeltingTemperature, unit.Kelvin)
		cw   = unit.New(c.WaterSpecificHeat, heatCap)
		ci   = unit.New(c.IceSpecificHeat, heatCap)
		L    = unit.New(c.LatentHeat, joulesPerKg)
		beta = unit.New(c.BetaCC, kelvinPerPa)
		rho  = unit.New(c.IceDensity, unit.KilogramPerMeter3)
		g    = unit.New(c.EarthGravity, unit.MeterPerSecond2)
		dz   = unit.New(1, unit.Meter)
	)
	if err = unit.Mul(cw, T0).Check(L.Dimensions()); err != nil {
		return &types.ConfigurationError{Key: "water_specific_heat_capacity", Err: err}
	}
	if err = unit.Mul(ci, T0).Check(joulesPerKg); err != nil {
		return &types.ConfigurationError{Key: "ice_specific_heat_capacity", Err: err}
	}
	p := unit.Mul(rho, g, dz)
	if err = p.Check(unit.Pascal); err != nil {
		return &types.ConfigurationError{Key: "ice_density", Err: err}
	}
	if err = unit.Mul(beta, p).Check(unit.Kelvin); err != nil {
		return &types.ConfigurationError{Key: "beta_CC", Err: err}
	}
	return
}

func (c Constants) Print() (txt string) {
	for _, name := range Keys() {
		val, _ := c.Lookup(name)
		txt += fmt.Sprintf("%-36s = %g\n", name, val)
	}
	return
}
