package IceSheet

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/integrate"

	"github.com/notargets/goice/grid"
	"github.com/notargets/goice/types"
	"github.com/notargets/goice/utils"
)

// Velocities are exchanged after every update, ghosts included
type Velocities struct {
	U, V, W    *grid.Field // m s-1
	Ubar, Vbar *grid.Field // depth averaged, m s-1
	Sigma      *grid.Field // strain heating, W m-3
}

func newVelocities(g *grid.Grid) (vel Velocities) {
	attrs := func(units, long string) grid.Attributes {
		return grid.Attributes{Units: units, LongName: long, Kind: types.Field_Diagnostic}
	}
	vel.U = g.NewField3D("uvel", attrs("m s-1", "horizontal velocity of ice in the X direction"))
	vel.V = g.NewField3D("vvel", attrs("m s-1", "horizontal velocity of ice in the Y direction"))
	vel.W = g.NewField3D("wvel", attrs("m s-1", "vertical velocity of ice"))
	vel.Ubar = g.NewField2D("ubar", attrs("m s-1", "vertical mean of horizontal ice velocity in the X direction"))
	vel.Vbar = g.NewField2D("vbar", attrs("m s-1", "vertical mean of horizontal ice velocity in the Y direction"))
	vel.Sigma = g.NewField3D("strain_heating", attrs("W m-3", "rate of strain heating in ice"))
	return
}

func (vel Velocities) Fields() []*grid.Field {
	return []*grid.Field{vel.U, vel.V, vel.W, vel.Ubar, vel.Vbar, vel.Sigma}
}

// StressBalance supplies velocities for the current geometry. Update is
// called before mass continuity and again before the enthalpy step.
type StressBalance interface {
	Name() string
	Update(m *IceSheet) error
	Velocity() Velocities
}

// diffusive stress balances bound the explicit mass continuity step
type diffusive interface {
	MaxDiffusivity() float64
}

// Prescribed velocities are set by the caller and held fixed
type Prescribed struct {
	vel Velocities
}

func NewPrescribed(g *grid.Grid) *Prescribed {
	return &Prescribed{vel: newVelocities(g)}
}

func (p *Prescribed) Name() string { return "prescribed" }

func (p *Prescribed) Update(m *IceSheet) error {
	return m.G.Exchange(p.vel.Fields()...)
}

func (p *Prescribed) Velocity() Velocities { return p.vel }

// SetUniform sets a depth independent horizontal velocity everywhere
func (p *Prescribed) SetUniform(u, v float64) {
	p.vel.U.Set(u)
	p.vel.Ubar.Set(u)
	p.vel.V.Set(v)
	p.vel.Vbar.Set(v)
	p.vel.W.Set(0)
	p.vel.Sigma.Set(0)
}

/*
ShallowIce is the non-sliding shallow ice approximation:

	u(z) = -2 (rho g)^n |grad s|^(n-1) grad s  Int_0^z E A(z') (H - z')^n dz'
	Sigma(z) = 2 E A (rho g)^(n+1) |grad s|^(n+1) (H - z)^(n+1)

with the softness A per level from the rheology adapter, E the enhancement
field times the configured enhancement factor, and w = 0.
*/
type ShallowIce struct {
	vel    Velocities
	mu     sync.Mutex
	maxDif float64
}

func NewShallowIce(g *grid.Grid) *ShallowIce {
	return &ShallowIce{vel: newVelocities(g)}
}

func (s *ShallowIce) Name() string { return "sia" }

func (s *ShallowIce) Velocity() Velocities { return s.vel }

// MaxDiffusivity of the last update, m2 s-1
func (s *ShallowIce) MaxDiffusivity() float64 { return s.maxDif }

func (s *ShallowIce) Update(m *IceSheet) (err error) {
	s.maxDif = 0
	if err = m.G.ForEachTile(func(rank int) error {
		return s.updateTile(m, rank)
	}); err != nil {
		return
	}
	return m.G.Exchange(s.vel.Fields()...)
}

func (s *ShallowIce) updateTile(m *IceSheet, rank int) (err error) {
	var (
		g       = m.G
		z       = g.Zlevels
		c       = m.EC.Constants()
		n       = m.Rheology.Law().Exponent()
		rhog    = c.IceDensity * c.EarthGravity
		tl      = g.Tiles[rank]
		thk     = m.Thk.View(rank)
		usurf   = m.Usurf.View(rank)
		enth    = m.Enth.View(rank)
		ts      = m.Ts.View(rank)
		enh     = m.Enhancement.View(rank)
		u, v, w = s.vel.U.View(rank), s.vel.V.View(rank), s.vel.W.View(rank)
		ub, vb  = s.vel.Ubar.View(rank), s.vel.Vbar.View(rank)
		sigma   = s.vel.Sigma.View(rank)
		f       = make([]float64, g.Mz)
		maxDif  float64
	)
	surface := func(i, j int) float64 { return m.Flux.Surface(rank, i, j, usurf) }
	for j := tl.Ys; j < tl.Ys+tl.Ym; j++ {
		for i := tl.Xs; i < tl.Xs+tl.Xm; i++ {
			var (
				ucol, vcol, wcol = u.Column(i, j), v.Column(i, j), w.Column(i, j)
				scol             = sigma.Column(i, j)
				H                = m.Flux.Thickness(rank, i, j, thk)
			)
			for k := range ucol {
				ucol[k], vcol[k], wcol[k], scol[k] = 0, 0, 0, 0
			}
			ub.Set(i, j, 0)
			vb.Set(i, j, 0)
			if H <= 0 {
				continue
			}
			var (
				sx    = (surface(i+1, j) - surface(i-1, j)) / (2 * g.Dx)
				sy    = (surface(i, j+1) - surface(i, j-1)) / (2 * g.Dy)
				slope = math.Hypot(sx, sy)
				E     = enh.At(i, j) * c.SIAEnhancementFactor
				ks    = g.KBelowHeight(H)
				col   = enth.Column(i, j)
				Ek    float64
			)
			if slope == 0 {
				continue
			}
			// Softness weighted stress integrand per level
			for k := 0; k <= ks; k++ {
				p := m.EC.PressureFromDepth(H - z[k])
				switch {
				case col[k] > 0:
					Ek = col[k]
				case k == 0:
					// Levels not yet stepped take the surface condition
					if Ek, err = m.EnthalpyBC.SurfaceEnthalpy(m.EC, ts.At(i, j), p); err != nil {
						return locate(err, i, j, k, m.Steps)
					}
				}
				var A float64
				if A, err = m.Rheology.Softness(Ek, p); err != nil {
					return locate(err, i, j, k, m.Steps)
				}
				depth := H - z[k]
				f[k] = E * A * utils.PowFloat(depth, n)
				scol[k] = 2 * E * A * utils.PowFloat(rhog*slope*depth, n+1)
			}
			C := 2 * utils.PowFloat(rhog*slope, n-1) * rhog
			var integral float64
			for k := 1; k <= ks; k++ {
				integral += integrate.Trapezoidal(z[k-1:k+1], f[k-1:k+1])
				ucol[k] = -C * sx * integral
				vcol[k] = -C * sy * integral
			}
			// Levels above the ice carry the surface velocity
			for k := ks + 1; k < g.Mz; k++ {
				ucol[k], vcol[k] = ucol[ks], vcol[ks]
			}
			ubar, vbar := columnMean(ucol, z, ks, H), columnMean(vcol, z, ks, H)
			ub.Set(i, j, ubar)
			vb.Set(i, j, vbar)
			// Equivalent nonlinear diffusivity, |q| = D |grad s|
			maxDif = math.Max(maxDif, math.Hypot(ubar, vbar)*H/slope)
		}
	}
	s.mu.Lock()
	s.maxDif = math.Max(s.maxDif, maxDif)
	s.mu.Unlock()
	return
}

// columnMean is the trapezoid mean over the ice column, constant above the
// highest level in ice
func columnMean(col, z []float64, ks int, H float64) (mean float64) {
	if ks > 0 {
		mean = integrate.Trapezoidal(z[:ks+1], col[:ks+1])
	}
	mean += col[ks] * (H - z[ks])
	return mean / H
}
