package fieldio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/goice/grid"
	"github.com/notargets/goice/types"
)

func testGrid(t *testing.T) *grid.Grid {
	g, err := grid.NewGrid(grid.Params{
		Mx: 6, My: 5, Lx: 5000, Ly: 4000,
		Zlevels: []float64{0, 100, 250},
		Px:      2, Py: 2,
	})
	require.NoError(t, err)
	return g
}

func fillGlobal(f *grid.Field, offset float64) {
	g := f.Grid()
	global := make([]float64, g.Mx*g.My*f.Mz)
	for n := range global {
		global[n] = offset + float64(n)
	}
	_ = f.Scatter(global)
}

func TestMemoryStore(t *testing.T) {
	g := testGrid(t)
	s := NewMemoryStoreForGrid(g)
	thk := g.NewField2D("thk", grid.Attributes{Units: "m", LongName: "land ice thickness", Kind: types.Field_State})
	enth := g.NewField3D("enthalpy", grid.Attributes{Units: "J kg-1", Kind: types.Field_State})
	fillGlobal(thk, 10)
	fillGlobal(enth, 5.e5)
	require.NoError(t, s.Put(thk))
	require.NoError(t, s.Put(enth))
	assert.True(t, s.Has("thk"))
	assert.False(t, s.Has("topg"))
	assert.Equal(t, []string{"enthalpy", "thk"}, s.Names())
	{ // Round trip through the store
		other := g.NewField2D("thk_copy", grid.Attributes{})
		require.NoError(t, s.Get("thk", other))
		assert.Equal(t, thk.Gather(), other.Gather())
	}
	{ // Missing and mismatched fields are configuration errors
		f := g.NewField2D("topg", grid.Attributes{})
		err := s.Get("topg", f)
		assert.True(t, types.IsConfigurationError(err))
		assert.Contains(t, err.Error(), "topg")
		assert.True(t, types.IsConfigurationError(s.Get("enthalpy", f)))
	}
	{ // Fields from a differently sized grid are rejected
		small, err := grid.NewGrid(grid.Params{Mx: 3, My: 3, Lx: 1, Ly: 1, Zlevels: []float64{0, 1}, Px: 1, Py: 1})
		require.NoError(t, err)
		assert.Error(t, s.Put(small.NewField2D("thk", grid.Attributes{})))
		assert.Error(t, s.PutVariable(&Variable{Name: "bad", Mz: 1, Data: []float64{1}}))
	}
	s.SetAttribute("calendar", "365_day")
	val, ok := s.Attribute("calendar")
	assert.True(t, ok)
	assert.Equal(t, "365_day", val)
}

func TestNetCDF(t *testing.T) {
	g := testGrid(t)
	s := NewMemoryStoreForGrid(g)
	thk := g.NewField2D("thk", grid.Attributes{Units: "m", LongName: "land ice thickness",
		StandardName: "land_ice_thickness", Kind: types.Field_State})
	enth := g.NewField3D("enthalpy", grid.Attributes{Units: "J kg-1", Kind: types.Field_State})
	usurf := g.NewField2D("usurf", grid.Attributes{Units: "m", Kind: types.Field_Diagnostic})
	for n, f := range []*grid.Field{thk, enth, usurf} {
		fillGlobal(f, float64(n)*1000)
		require.NoError(t, s.Put(f))
	}
	s.SetAttribute("calendar", "365_day")
	s.SetAttribute("reference_time", "seconds since 1-1-1")

	path := filepath.Join(t.TempDir(), "state.nc")
	fw, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, WriteNetCDF(fw, s))
	require.NoError(t, fw.Close())

	fr, err := os.Open(path)
	require.NoError(t, err)
	defer fr.Close()
	r, err := ReadNetCDF(fr)
	require.NoError(t, err)
	assert.Equal(t, g.Mx, r.Mx)
	assert.Equal(t, g.My, r.My)
	assert.Equal(t, g.Zlevels, r.Zlevels)
	assert.InDeltaSlice(t, g.X, r.X, 1.e-9)
	assert.Equal(t, []string{"enthalpy", "thk", "usurf"}, r.Names())
	for _, f := range []*grid.Field{thk, enth, usurf} {
		v, ok := r.Variable(f.Name)
		require.True(t, ok)
		assert.Equal(t, f.Mz, v.Mz)
		assert.Equal(t, f.Gather(), v.Data)
		assert.Equal(t, f.Units, v.Units)
		assert.Equal(t, f.Kind, v.Kind)
	}
	v, _ := r.Variable("thk")
	assert.Equal(t, "land_ice_thickness", v.StandardName)
	cal, ok := r.Attribute("calendar")
	assert.True(t, ok)
	assert.Equal(t, "365_day", cal)
	{ // Reading back into a field
		f := g.NewField3D("enthalpy", grid.Attributes{})
		require.NoError(t, r.Get("enthalpy", f))
		assert.Equal(t, enth.Gather(), f.Gather())
	}
}

func TestNetCDFFillsEveryVariable(t *testing.T) {
	var (
		g    = testGrid(t)
		path = filepath.Join(t.TempDir(), "filled.nc")
	)
	write := func(offset float64) {
		s := NewMemoryStoreForGrid(g)
		for _, f := range []*grid.Field{
			g.NewField2D("topg", grid.Attributes{Units: "m", Kind: types.Field_State}),
			g.NewField3D("temp", grid.Attributes{Units: "K", Kind: types.Field_State}),
		} {
			fillGlobal(f, offset)
			require.NoError(t, s.Put(f))
		}
		fw, err := os.Create(path)
		require.NoError(t, err)
		require.NoError(t, WriteNetCDF(fw, s))
		require.NoError(t, fw.Close())
	}
	// A rewrite replaces the previous file
	write(1)
	write(7)
	fr, err := os.Open(path)
	require.NoError(t, err)
	defer fr.Close()
	r, err := ReadNetCDF(fr)
	require.NoError(t, err)
	for name, size := range map[string]int{"topg": g.Mx * g.My, "temp": g.Mx * g.My * len(g.Zlevels)} {
		v, ok := r.Variable(name)
		require.True(t, ok, name)
		require.Len(t, v.Data, size)
		// The last value is the one that fills the variable
		assert.Equal(t, 7., v.Data[0], name)
		assert.Equal(t, 7.+float64(size-1), v.Data[size-1], name)
	}
	assert.Equal(t, g.Y, r.Y)
	assert.Equal(t, g.Zlevels, r.Zlevels)
}
