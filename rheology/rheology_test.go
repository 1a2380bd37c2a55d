package rheology

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/goice/config"
	"github.com/notargets/goice/thermo"
	"github.com/notargets/goice/types"
)

func TestFlowLaws(t *testing.T) {
	c := config.Default()
	{ // Paterson-Budd
		pb := NewPatersonBudd(c)
		assert.Equal(t, 3., pb.Exponent())
		A := pb.Softness(253.15, 0)
		assert.InDelta(t, 3.61e-13*math.Exp(-6.0e4/(8.31441*253.15)), A, 1.e-30)
		A = pb.Softness(268.15, 0)
		assert.InDelta(t, 1.73e3*math.Exp(-13.9e4/(8.31441*268.15)), A, 1.e-30)
		assert.InDelta(t, math.Pow(A, -1./3.), pb.Hardness(268.15, 0), 1.e-6)
		prev := 0.
		for T := 223.15; T <= 273.15; T += 0.5 {
			A := pb.Softness(T, 0)
			assert.Greater(t, A, prev)
			prev = A
		}
	}
	{ // Water softening saturates
		gp := NewGPBLD(c)
		pb := NewPatersonBudd(c)
		A0 := pb.Softness(273.15, 0)
		assert.InDelta(t, A0*(1+184*0.005), gp.Softness(273.15, 0.005), 1.e-12*A0)
		assert.InDelta(t, A0*(1+184*0.01), gp.Softness(273.15, 0.05), 1.e-12*A0)
		assert.Equal(t, A0, gp.Softness(273.15, 0))
		assert.Less(t, gp.Hardness(273.15, 0.01), pb.Hardness(273.15, 0))
	}
	{ // Factory
		for name, want := range map[string]string{"pb": "Paterson-Budd", "GPBLD": "Glen-Paterson-Budd-Lliboutry-Duval"} {
			fl, err := NewFlowLaw(name, c, "")
			require.NoError(t, err)
			assert.Equal(t, want, fl.Name())
		}
		_, err := NewFlowLaw("cuffey", c, "")
		assert.True(t, types.IsConfigurationError(err))
	}
}

func TestExpressionFlowLaw(t *testing.T) {
	c := config.Default()
	{ // Matches Paterson-Budd cold branch
		fl, err := NewFlowLaw("expression", c,
			"Paterson_Budd_A_cold * exp(-Paterson_Budd_Q_cold / (ideal_gas_constant * T)) * (1 + 184*min(omega, 0.01))")
		require.NoError(t, err)
		pb := NewPatersonBudd(c)
		A := pb.Softness(250, 0)
		assert.InDelta(t, A, fl.Softness(250, 0), 1.e-12*A)
		assert.InDelta(t, A*2.84, fl.Softness(250, 0.02), 1.e-12*A)
		assert.InDelta(t, math.Pow(A, -1./3.), fl.Hardness(250, 0), 1.e-9*math.Pow(A, -1./3.))
		assert.Contains(t, fl.Name(), "exp(")
	}
	{ // Rejected expressions
		for _, expr := range []string{
			"T *",               // does not parse
			"300 - T",           // decreasing in T
			"Tpa",               // unknown variable
			"0 * T",             // not positive
			"exp(T, 2)",         // bad function arity
			"exp(T > 250)",      // not a number
			"pow(omega < 1, 2)", // not a number
		} {
			_, err := NewFlowLaw("expression", c, expr)
			assert.True(t, types.IsConfigurationError(err), expr)
		}
	}
}

func newAdapter(t *testing.T, c config.Constants) *Adapter {
	ec, err := thermo.NewEnthalpyConverter(c)
	require.NoError(t, err)
	return NewAdapter(ec, NewPatersonBudd(c))
}

func TestAdapter(t *testing.T) {
	{ // Unbound adapters fail without panicking
		var a *Adapter
		_, err := a.Flow(1.e5, 7.e5, 0, 1)
		assert.True(t, errors.Is(err, types.ErrUnconfigured))
		assert.True(t, types.IsDomainError(err))
		_, err = a.EffectiveViscosityColumn(100, 1, []float64{0, 100}, 0, 0, 0, 0, nil, nil)
		assert.True(t, errors.Is(err, types.ErrUnconfigured))
		_, err = NewAdapter(nil, NewPatersonBudd(config.Default())).AveragedSoftness(1, 1, []float64{0, 1}, nil)
		assert.True(t, errors.Is(err, types.ErrUnconfigured))
		_, err = (&Adapter{}).Softness(7.e5, 0)
		assert.True(t, errors.Is(err, types.ErrUnconfigured))
		assert.Nil(t, a.Law())
	}
	c := config.Default()
	a := newAdapter(t, c)
	ec, _ := thermo.NewEnthalpyConverter(c)
	assert.Equal(t, 1., a.SecondInvariant(1, 0, 0, 0))
	assert.Equal(t, 0.25, a.SecondInvariant(0, 1, 0, 0))
	{ // Flow
		p := ec.PressureFromDepth(500)
		H, err := ec.ColdEnthalpy(ec.PressureMeltingTemperature(p)-15, p)
		require.NoError(t, err)
		f, err := a.Flow(1.e5, H, p, 2)
		assert.NoError(t, err)
		A := a.Law().Softness(258.15, 0)
		assert.InDelta(t, 2*A*1.e10, f, 1.e-9*f)
		_, Hl, _ := ec.PhaseBounds(p)
		_, err = a.Flow(1.e5, Hl, p, 1)
		assert.True(t, errors.Is(err, types.ErrLiquidWater))
	}
}

func TestViscosityColumn(t *testing.T) {
	// Without pressure melting the hardness is uniform for a uniform column
	c := config.Default()
	c.BetaCC = 0
	var (
		a       = newAdapter(t, c)
		ec, _   = thermo.NewEnthalpyConverter(c)
		zlevels = []float64{0, 10, 30, 60, 100, 150}
		H       = 120.
		kBelowH = 4
		T       = []float64{250, 250, 250, 250, 250, 250}
		E       = make([]float64, len(T))
		n       = 3.
	)
	for k := range T {
		var err error
		E[k], err = ec.ColdEnthalpy(T[k], 0)
		require.NoError(t, err)
	}
	B := a.Law().Hardness(250, 0) * zlevels[kBelowH]
	alpha := a.SecondInvariant(1.e-10, 2.e-10, 0, 3.e-10)
	want := 0.5 * B * math.Pow(c.SchoofRegularization+alpha, (1-n)/(2*n))
	nuH, err := a.EffectiveViscosityColumn(H, kBelowH, zlevels, 1.e-10, 2.e-10, 0, 3.e-10, T, T)
	assert.NoError(t, err)
	assert.InDelta(t, want, nuH, 1.e-9*want)
	nuHE, err := a.EffectiveViscosityColumnEnthalpy(H, kBelowH, zlevels, 1.e-10, 2.e-10, 0, 3.e-10, E, E)
	assert.NoError(t, err)
	assert.InDelta(t, want, nuHE, 1.e-9*want)
	nuH, err = a.EffectiveViscosityColumn(H, 0, zlevels, 1, 0, 0, 0, T, T)
	assert.NoError(t, err)
	assert.Equal(t, 0., nuH)
	A, err := a.AveragedSoftness(H, kBelowH, zlevels, E)
	assert.NoError(t, err)
	assert.InDelta(t, a.Law().Softness(250, 0), A, 1.e-9*A)
	A, err = a.AveragedSoftness(0, 0, zlevels, E)
	assert.NoError(t, err)
	assert.Equal(t, 0., A)
}

func TestViscosityColumnPressure(t *testing.T) {
	// With pressure melting, deeper ice is closer to melting and softer
	var (
		c       = config.Default()
		a       = newAdapter(t, c)
		zlevels = []float64{0, 50, 100}
		T       = []float64{263, 263, 263}
	)
	nuH, err := a.EffectiveViscosityColumn(100, 2, zlevels, 1.e-10, 0, 0, 0, T, T)
	assert.NoError(t, err)
	c.BetaCC = 0
	b := newAdapter(t, c)
	nuH0, err := b.EffectiveViscosityColumn(100, 2, zlevels, 1.e-10, 0, 0, 0, T, T)
	assert.NoError(t, err)
	assert.Less(t, nuH, nuH0)
}

func TestTrapezoid(t *testing.T) {
	zlevels := []float64{0, 10, 30, 60, 100}
	linear := func(k int) (float64, error) { return zlevels[k], nil }
	B, err := trapezoid(3, zlevels, linear)
	require.NoError(t, err)
	assert.InDelta(t, 0.5*60*60, B, 1.e-10)
	B, err = trapezoid(0, zlevels, linear)
	require.NoError(t, err)
	assert.Zero(t, B)
	_, err = trapezoid(2, zlevels, func(k int) (float64, error) {
		return 0, types.ErrLiquidWater
	})
	assert.ErrorIs(t, err, types.ErrLiquidWater)
}
