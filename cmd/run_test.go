package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/notargets/goice/InputParameters"
	"github.com/notargets/goice/config"
	"github.com/notargets/goice/model_problems/IceSheet"
	"github.com/notargets/goice/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var regionalRun = `
Title: "Regional slab"
FinalTime: 1
MaxTimeStep: 0.25
PrintEvery: 1
Velocity: [10, 0]
Regional: true
Grid: {Mx: 9, My: 7, Lx: 4000, Ly: 3000, Lz: 1000, Mz: 11, Px: 2, Py: 2}
Bootstrap:
  thk: "500 + 0.01 * x"
  topg: "0"
  temp: "260"
  ice_surface_temp: "250"
  climatic_mass_balance: "0.1 / year"
  no_model_mask: "x < -2000 ? 1 : 0"
`

func TestBootstrapStore(t *testing.T) {
	var (
		X = []float64{-1000, 0, 1000}
		Y = []float64{-500, 500}
		Z = []float64{0, 100, 200}
	)
	s, err := bootstrapStore(X, Y, Z, map[string]string{
		"topg":                  "-0.001 * x + y",
		"temp":                  "263.15 - 0.01 * z",
		"climatic_mass_balance": "max(0.1, 0.2) / year",
	})
	require.NoError(t, err)
	topg, ok := s.Variable("topg")
	require.True(t, ok)
	assert.Equal(t, 1, topg.Mz)
	assert.InDelta(t, 1-500., topg.Data[0], 1.e-12)
	assert.InDelta(t, -1+500., topg.Data[5], 1.e-12)
	temp, _ := s.Variable("temp")
	assert.Equal(t, 3, temp.Mz)
	assert.InDelta(t, 261.15, temp.Data[2], 1.e-12)
	smb, _ := s.Variable("climatic_mass_balance")
	assert.InDelta(t, 0.2/IceSheet.SecondsPerYear, smb.Data[3], 1.e-20)
	for _, bad := range []string{"x +", "q * 2", "x > 0", "sqrt(x > 0)", "max(y < 0, 1)", "abs(1, 2)"} {
		_, err = bootstrapStore(X, Y, Z, map[string]string{"thk": bad})
		assert.True(t, types.IsConfigurationError(err), bad)
	}
}

func TestCalibration(t *testing.T) {
	v := viper.New()
	v.Set("constants.ice_density", 917.)
	c, err := calibration(v, map[string]float64{"ice_density": 900, "beta_CC": 0})
	require.NoError(t, err)
	assert.Equal(t, 917., c.IceDensity)
	assert.Zero(t, c.BetaCC)
	assert.Equal(t, config.Default().LatentHeat, c.LatentHeat)
	_, err = calibration(v, map[string]float64{"unobtainium": 1})
	assert.True(t, types.IsConfigurationError(err))
	_, err = calibration(v, map[string]float64{"beta_CC": -1})
	assert.Error(t, err)
}

func TestConvert(t *testing.T) {
	var (
		v   = viper.New()
		c   = config.Default()
		Hs  = c.WaterSpecificHeat*c.WaterMeltingTemperature - c.LatentHeat
		out bytes.Buffer
	)
	// One degree below melting at the surface
	require.NoError(t, Convert(&out, &Conversion{Enthalpy: Hs - c.IceSpecificHeat, FromEnthalpy: true}, v))
	assert.Contains(t, out.String(), "805035.500000\t= Solid Enthalpy")
	assert.Contains(t, out.String(), "272.150000\t= Temperature")
	assert.Contains(t, out.String(), "0.000000\t= Water Fraction")
	out.Reset()
	// Temperate
	require.NoError(t, Convert(&out, &Conversion{Enthalpy: Hs + 1000, FromEnthalpy: true}, v))
	assert.Contains(t, out.String(), "273.150000\t= Temperature")
	assert.Contains(t, out.String(), "0.002994\t= Water Fraction")
	out.Reset()
	require.NoError(t, Convert(&out, &Conversion{Temperature: 272.15}, v))
	assert.Contains(t, out.String(), "803026.500000\t= Enthalpy")
	// Liquid water is not a state
	assert.True(t, types.IsPhysicalViolation(Convert(&out, &Conversion{Enthalpy: Hs + 2*c.LatentHeat, FromEnthalpy: true}, v)))
}

func TestRunIce(t *testing.T) {
	var (
		dir     = t.TempDir()
		icFile  = filepath.Join(dir, "regional.yaml")
		first   = filepath.Join(dir, "first.nc")
		restart = filepath.Join(dir, "restart.nc")
		v       = viper.New()
	)
	require.NoError(t, os.WriteFile(icFile, []byte(regionalRun), 0644))
	{ // The run description is required
		_, err := processInput(&ModelIce{})
		assert.Error(t, err)
	}
	mi := &ModelIce{ICFile: icFile, OutputFile: first}
	ip, err := processInput(mi)
	require.NoError(t, err)
	require.NoError(t, RunIce(mi, ip, v))
	s, err := readStore(first)
	require.NoError(t, err)
	for _, name := range []string{"thk", "enthalpy", "temp", "usurf", "no_model_mask", "thk_stored", "flux_east"} {
		assert.True(t, s.Has(name), name)
	}
	cal, ok := s.Attribute(IceSheet.CalendarAttribute)
	assert.True(t, ok)
	assert.NotEmpty(t, cal)
	var (
		thk, _    = s.Variable("thk")
		stored, _ = s.Variable("thk_stored")
		mask, _   = s.Variable("no_model_mask")
	)
	for n := range thk.Data {
		if mask.Data[n] > 0.5 {
			assert.Equal(t, stored.Data[n], thk.Data[n])
		}
	}
	{ // Restart from the output, the held cells keep the first snapshot
		mi := &ModelIce{ICFile: icFile, InputFile: first, OutputFile: restart}
		require.NoError(t, RunIce(mi, ip, v))
		r, err := readStore(restart)
		require.NoError(t, err)
		rthk, _ := r.Variable("thk")
		rstored, _ := r.Variable("thk_stored")
		assert.Equal(t, stored.Data, rstored.Data)
		for n := range rthk.Data {
			if mask.Data[n] > 0.5 {
				assert.Equal(t, stored.Data[n], rthk.Data[n])
			}
		}
		assert.NotEqual(t, thk.Data, rthk.Data)
	}
	{ // Neither an input file nor expressions
		ip := &InputParameters.InputParametersIce{}
		require.NoError(t, ip.Parse([]byte("FinalTime: 1\nGrid: {Mx: 5, My: 5, Lx: 1000, Ly: 1000, Lz: 100, Mz: 3}\n")))
		err := RunIce(&ModelIce{}, ip, v)
		assert.True(t, types.IsConfigurationError(err))
	}
}

func TestRunModelCounted(t *testing.T) {
	ip := &InputParameters.InputParametersIce{}
	require.NoError(t, ip.Parse([]byte(regionalRun)))
	ip.Regional = false
	m, _, err := buildModel(&ModelIce{}, ip, viper.New())
	require.NoError(t, err)
	m.Out = &bytes.Buffer{}
	// Counted when perf events are available, plain otherwise
	require.NoError(t, runModel(m, true))
	assert.Equal(t, 4, m.Steps)
}
