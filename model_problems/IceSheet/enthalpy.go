package IceSheet

import (
	"errors"
	"math"

	"github.com/notargets/goice/grid"
	"github.com/notargets/goice/types"
)

// columnContext is one tile's working set for the enthalpy sweep
type columnContext struct {
	rank                int
	thk, ts, ghf, bmelt grid.View
	enth, enthNew       grid.View
	u, v, w, sigma      grid.View
	E, p                []float64 // level values with sentinels replaced, pressure
	diag                *StepDiagnostics
}

// locate attaches the cell, level and step to a physical violation
func locate(err error, i, j, k, step int) error {
	var pv *types.PhysicalViolation
	if errors.As(err, &pv) {
		c := pv.At(i, j, k)
		c.Step = step
		return c
	}
	return err
}

// neighborValue is the enthalpy of a neighbor column at level k, or the
// local value where that level is above the neighbor's ice surface
func (cc *columnContext) neighborValue(i, j, k int, z, local float64) float64 {
	if z > cc.thk.At(i, j) {
		return local
	}
	if val := cc.enth.AtK(i, j, k); val != 0 {
		return val
	}
	return local
}

/*
enthalpyStep is an explicit update of every ice column:

	H' = H + dt [ D d2H/dz2 - u dH/dx - v dH/dy - w dH/dz + Sigma/rho ]

Horizontal advection is upwind, vertical advection blends centered and upwind
differences. The surface level takes the boundary enthalpy, a cold base the
geothermal flux, and a temperate base is held at the solid enthalpy while the
excess energy melts ice. Results go to EnthNew and BmeltNew and are published
after the exchange.
*/
func (m *IceSheet) enthalpyStep(dt float64) (err error) {
	var (
		g     = m.G
		vel   = m.Stress.Velocity()
		parts = make([]StepDiagnostics, g.NumTiles())
	)
	if err = g.ForEachTile(func(rank int) (err error) {
		var (
			tl = g.Tiles[rank]
			cc = &columnContext{
				rank:    rank,
				thk:     m.Thk.View(rank),
				ts:      m.Ts.View(rank),
				ghf:     m.Ghf.View(rank),
				bmelt:   m.BmeltNew.View(rank),
				enth:    m.Enth.View(rank),
				enthNew: m.EnthNew.View(rank),
				u:       vel.U.View(rank),
				v:       vel.V.View(rank),
				w:       vel.W.View(rank),
				sigma:   vel.Sigma.View(rank),
				E:       make([]float64, g.Mz),
				p:       make([]float64, g.Mz),
				diag:    &parts[rank],
			}
		)
		for j := tl.Ys; j < tl.Ys+tl.Ym; j++ {
			for i := tl.Xs; i < tl.Xs+tl.Xm; i++ {
				if err = m.stepColumn(cc, i, j, dt); err != nil {
					return
				}
			}
		}
		return
	}); err != nil {
		return
	}
	if err = g.Exchange(m.EnthNew, m.BmeltNew); err != nil {
		return
	}
	for _, p := range []staged{{m.Enth, m.EnthNew}, {m.Bmelt, m.BmeltNew}} {
		if err = p.live.SwapData(p.next); err != nil {
			return
		}
	}
	m.Diagnostics.Add(reduce(parts))
	return
}

func (m *IceSheet) stepColumn(cc *columnContext, i, j int, dt float64) (err error) {
	var (
		g   = m.G
		z   = g.Zlevels
		c   = m.EC.Constants()
		out = cc.enthNew.Column(i, j)
		old = cc.enth.Column(i, j)
		H   = cc.thk.At(i, j)
		Ts  = cc.ts.At(i, j)
	)
	if col, bmr, held := m.EnthalpyBC.HeldColumn(cc.rank, i, j); held {
		copy(out, col)
		cc.bmelt.Set(i, j, bmr)
		return
	}
	for k := range out {
		out[k] = 0
	}
	cc.bmelt.Set(i, j, 0)
	if H <= 0 {
		return
	}
	ks := g.KBelowHeight(H)
	for k := 0; k <= ks; k++ {
		cc.p[k] = m.EC.PressureFromDepth(H - z[k])
		cc.E[k] = old[k]
		if cc.E[k] == 0 {
			if cc.E[k], err = m.EnthalpyBC.SurfaceEnthalpy(m.EC, Ts, cc.p[k]); err != nil {
				return locate(err, i, j, k, m.Steps)
			}
		}
	}
	if out[ks], err = m.EnthalpyBC.SurfaceEnthalpy(m.EC, Ts, cc.p[ks]); err != nil {
		return locate(err, i, j, ks, m.Steps)
	}
	if ks == 0 {
		return
	}
	var (
		D          = c.IceThermalConductivity / (c.IceDensity * c.IceSpecificHeat)
		G          = m.EnthalpyBC.BasalHeatFlux(cc.ghf.At(i, j))
		sacrificed bool
	)
	for k := 0; k < ks; k++ {
		var (
			E         = cc.E[k]
			p         = cc.p[k]
			_, Hl, Hs = m.EC.PhaseBounds(p)
			Dk        = D
			dzp       = z[k+1] - z[k]
			dzm       = dzp
		)
		var diff, dEdz float64
		if E >= Hs {
			Dk *= c.TemperateConductivityRatio
		}
		if k == 0 {
			if E >= Hs {
				// Temperate base: held at the solid enthalpy, the heat balance melts ice
				K := c.IceThermalConductivity / c.IceSpecificHeat
				if m.EC.IsTemperate(cc.E[1], cc.p[1]) {
					K *= c.TemperateConductivityRatio
				}
				q := K * (cc.E[1] - E) / dzp
				out[0] = Hs
				cc.bmelt.Set(i, j, math.Max(0, G+q)/(c.IceDensity*c.LatentHeat))
				continue
			}
			// Ghost level below the bed carries the geothermal gradient
			diff = 2*Dk*(cc.E[1]-E)/(dzp*dzp) + 2*G/(c.IceDensity*dzp)
		} else {
			dzm = z[k] - z[k-1]
			diff = Dk * 2 / (dzm + dzp) * ((cc.E[k+1]-E)/dzp - (E-cc.E[k-1])/dzm)
		}
		var (
			u, v  = cc.u.AtK(i, j, k), cc.v.AtK(i, j, k)
			w     = cc.w.AtK(i, j, k)
			dz    = 0.5 * (dzm + dzp)
			scale = 1.
		)
		var dEdx, dEdy float64
		switch {
		case u > 0:
			dEdx = (E - cc.neighborValue(i-1, j, k, z[k], E)) / g.Dx
		case u < 0:
			dEdx = (cc.neighborValue(i+1, j, k, z[k], E) - E) / g.Dx
		}
		switch {
		case v > 0:
			dEdy = (E - cc.neighborValue(i, j-1, k, z[k], E)) / g.Dy
		case v < 0:
			dEdy = (cc.neighborValue(i, j+1, k, z[k], E) - E) / g.Dy
		}
		if k > 0 && w != 0 {
			var (
				lambda   = math.Min(1, 2*Dk/(math.Abs(w)*dz))
				centered = (cc.E[k+1] - cc.E[k-1]) / (dzm + dzp)
				upwind   = (cc.E[k+1] - E) / dzp
			)
			if w > 0 {
				upwind = (E - cc.E[k-1]) / dzm
			}
			if lambda < 1 {
				sacrificed = true
			}
			dEdz = lambda*centered + (1-lambda)*upwind
		}
		courant := dt * (2*Dk/(dz*dz) + math.Abs(w)/dz + math.Abs(u)/g.Dx + math.Abs(v)/g.Dy)
		if courant > 1 {
			sacrificed = true
			scale = 1 / courant
		}
		tendency := diff - u*dEdx - v*dEdy - w*dEdz + cc.sigma.AtK(i, j, k)/c.IceDensity
		Enew := E + dt*scale*tendency
		if Enew >= Hl || math.IsNaN(Enew) {
			return locate(types.NewPhysicalViolation("EnthalpyStep", types.ErrLiquidWater,
				map[string]float64{"H": Enew, "p": p, "H_l": Hl}), i, j, k, m.Steps)
		}
		switch {
		case k == 0 && Enew > Hs:
			// A cold base warmed past the melting point melts the excess
			cc.bmelt.Set(i, j, (Enew-Hs)*dzp/(2*dt*c.LatentHeat))
			Enew = Hs
		case Enew > Hs+c.MaxWaterFraction*c.LatentHeat:
			drained := (Enew-Hs)/c.LatentHeat - c.MaxWaterFraction
			cc.diag.LiquifiedVolume += drained * dz * g.Dx * g.Dy
			Enew = Hs + c.MaxWaterFraction*c.LatentHeat
		}
		var Es float64
		if Es, err = m.EnthalpyBC.SurfaceEnthalpy(m.EC, Ts, p); err != nil {
			return locate(err, i, j, k, m.Steps)
		}
		if bound := Es - c.IceSpecificHeat*c.BulgeMax; Enew < bound {
			Enew = bound
			cc.diag.BulgeCount++
		}
		out[k] = Enew
	}
	if sacrificed {
		cc.diag.VertSacrCount++
	}
	return
}
