package IceSheet

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/notargets/goice/config"
	"github.com/notargets/goice/types"
)

func TestParams(t *testing.T) {
	g := newTestGrid(t, 4, 4, 1, 1)
	for _, p := range []Params{
		{CFL: 0},
		{CFL: 1.5},
		{CFL: 0.5, FinalTime: -1},
		{CFL: 0.5, MaxTimeStep: -1},
	} {
		_, err := NewIceSheet(g, config.Default(), nil, p, false)
		assert.True(t, types.IsConfigurationError(err), "%+v", p)
	}
	{ // Invalid constants are rejected by the converter
		c := config.Default()
		c.IceDensity = -1
		_, err := NewIceSheet(g, c, nil, Params{CFL: 0.5}, false)
		assert.Error(t, err)
	}
	m, err := NewIceSheet(g, config.Default(), nil, Params{CFL: 1}, false)
	require.NoError(t, err)
	assert.Equal(t, math.MaxInt32, m.MaxIterations)
	assert.Equal(t, 100, m.PrintEvery)
	assert.Equal(t, "standard", m.Flux.Name())
	assert.Equal(t, "default", m.EnthalpyBC.Name())
	assert.Equal(t, "prescribed", m.Stress.Name())
	assert.Equal(t, "Glen-Paterson-Budd-Lliboutry-Duval", m.Rheology.Law().Name())
	assert.Equal(t, 1., m.Enhancement.AtGlobal(3, 3, 0))
	m.SetLogger(nil)
	assert.NotNil(t, m.Logger)
}

func TestMaxTimestep(t *testing.T) {
	g := newTestGrid(t, 5, 5, 1, 1)
	{ // Advective bound
		m := newTestModel(t, g, config.Default(), Params{})
		m.Stress.(*Prescribed).SetUniform(1, -0.5)
		assert.InDelta(t, 0.5*g.Dx, m.MaxTimestep(), 1.e-9)
		m.MaxTimeStep = 100
		assert.Equal(t, 100., m.MaxTimestep())
	}
	{ // Vertical diffusion bound without flow
		c := config.Default()
		m := newTestModel(t, g, c, Params{})
		D := c.IceThermalConductivity / (c.IceDensity * c.IceSpecificHeat)
		assert.InEpsilon(t, 0.5*100*100/D, m.MaxTimestep(), 1.e-12)
	}
	{ // Nothing bounds a cold ice run at rest
		m := newTestModel(t, g, config.Default(), Params{ColdIceMode: true})
		assert.True(t, math.IsInf(m.MaxTimestep(), 1))
	}
}

func TestRun(t *testing.T) {
	g := newTestGrid(t, 6, 5, 2, 1)
	{ // Stops exactly at the final time
		m := newTestModel(t, g, config.Default(), Params{FinalTime: 3.e6, MaxTimeStep: 1.e6, PrintEvery: 2})
		require.NoError(t, m.InitFromStore(bootstrap(t, g, func(i, j int) float64 { return 500 }, 250, 250)))
		var (
			core, logs = observer.New(zapcore.DebugLevel)
			out        bytes.Buffer
		)
		m.SetLogger(zap.New(core))
		m.Out = &out
		V0 := m.IceVolume()
		require.NoError(t, m.Run())
		assert.Equal(t, 3, m.Steps)
		assert.Equal(t, 3.e6, m.Time)
		assert.InDelta(t, V0, m.IceVolume(), 1.e-6)
		assert.Equal(t, 3, logs.FilterMessage("step").Len())
		assert.Equal(t, 1, logs.FilterMessage("run start").Len())
		done := logs.FilterMessage("run complete").All()
		require.Len(t, done, 1)
		assert.Equal(t, int64(3), done[0].ContextMap()["steps"])
		assert.Contains(t, out.String(), "Rate of execution")
		assert.Contains(t, out.String(), "Totals:")
		// Continuing a finished run does nothing
		require.NoError(t, m.Run())
		assert.Equal(t, 3, m.Steps)
	}
	{ // Iteration limit
		m := newTestModel(t, g, config.Default(), Params{FinalTime: 1.e7, MaxTimeStep: 1.e6, MaxIterations: 2})
		require.NoError(t, m.InitFromStore(bootstrap(t, g, func(i, j int) float64 { return 500 }, 250, 250)))
		require.NoError(t, m.Run())
		assert.Equal(t, 2, m.Steps)
		assert.Equal(t, 2.e6, m.Time)
	}
	{ // A fatal step stops the run and is logged
		m := newTestModel(t, g, config.Default(), Params{FinalTime: 1.e7, MaxTimeStep: 1.e6})
		require.NoError(t, m.InitFromStore(bootstrap(t, g, func(i, j int) float64 { return 500 }, 260, 250)))
		core, logs := observer.New(zapcore.InfoLevel)
		m.SetLogger(zap.New(core))
		m.Stress.Velocity().Sigma.Set(1.e3)
		err := m.Run()
		assert.True(t, types.IsPhysicalViolation(err))
		assert.Equal(t, 0, m.Steps)
		assert.Equal(t, 1, logs.FilterMessage("step failed").Len())
	}
}

func TestStepDiagnostics(t *testing.T) {
	var (
		a = StepDiagnostics{VertSacrCount: 1, BulgeCount: 2, LiquifiedVolume: 3, NonnegFlux: 4, BoundaryFlux: 5, MassBalance: 6}
		b = reduce([]StepDiagnostics{a, a, {}})
	)
	assert.Equal(t, StepDiagnostics{2, 4, 6, 8, 10, 12}, b)
	assert.Contains(t, b.Print(), "SIAcount 2")
	core, logs := observer.New(zapcore.DebugLevel)
	zap.New(core).Debug("diag", b.Field("d"))
	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()["d"].(map[string]interface{})
	assert.Equal(t, 4, fields["bulge_count"])
	assert.Equal(t, 12., fields["mass_balance"])
}
