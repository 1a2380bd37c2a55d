package IceSheet

import (
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/notargets/goice/config"
	"github.com/notargets/goice/fieldio"
	"github.com/notargets/goice/grid"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// constantLaw has a temperature independent softness
type constantLaw struct {
	A, n float64
}

func (cl constantLaw) Name() string { return "constant" }
func (cl constantLaw) Exponent() float64 { return cl.n }
func (cl constantLaw) Softness(Tpa, omega float64) float64 { return cl.A }
func (cl constantLaw) Hardness(Tpa, omega float64) float64 {
	return math.Pow(cl.A, -1/cl.n)
}

// uniform levels every 100 m up to 1000 m
func testLevels() (z []float64) {
	for k := 0; k <= 10; k++ {
		z = append(z, 100*float64(k))
	}
	return
}

func newTestGrid(t *testing.T, Mx, My, Px, Py int) *grid.Grid {
	g, err := grid.NewGrid(grid.Params{
		Mx: Mx, My: My,
		Lx: 500 * float64(Mx-1), Ly: 500 * float64(My-1), // 1 km cells
		Zlevels: testLevels(),
		Px:      Px, Py: Py,
	})
	require.NoError(t, err)
	return g
}

func newTestModel(t *testing.T, g *grid.Grid, c config.Constants, p Params) *IceSheet {
	if p.CFL == 0 {
		p.CFL = 0.5
	}
	m, err := NewIceSheet(g, c, constantLaw{A: 1.e-24, n: 3}, p, false)
	require.NoError(t, err)
	m.Out = io.Discard
	return m
}

// setGlobal fills f from fn(i, j, k) over the whole domain
func setGlobal(t *testing.T, f *grid.Field, fn func(i, j, k int) float64) {
	g := f.Grid()
	global := make([]float64, g.Mx*g.My*f.Mz)
	for j := 0; j < g.My; j++ {
		for i := 0; i < g.Mx; i++ {
			for k := 0; k < f.Mz; k++ {
				global[(j*g.Mx+i)*f.Mz+k] = fn(i, j, k)
			}
		}
	}
	require.NoError(t, f.Scatter(global))
}

// bootstrap builds an input store with thickness from thk, flat bed and a
// uniform ice temperature
func bootstrap(t *testing.T, g *grid.Grid, thk func(i, j int) float64, temp, Ts float64) *fieldio.MemoryStore {
	var (
		s  = fieldio.NewMemoryStoreForGrid(g)
		m  = newTestModel(t, g, config.Default(), Params{})
		tf = m.Temp
	)
	setGlobal(t, m.Thk, func(i, j, k int) float64 { return thk(i, j) })
	m.Topg.Set(0)
	m.Ts.Set(Ts)
	tf.Set(temp)
	for _, f := range []*grid.Field{m.Thk, m.Topg, m.Ts, tf} {
		require.NoError(t, s.Put(f))
	}
	return s
}

func betaZero() config.Constants {
	c := config.Default()
	c.BetaCC = 0
	return c
}
