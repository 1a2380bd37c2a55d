package IceSheet

import (
	"github.com/notargets/goice/grid"
	"github.com/notargets/goice/types"
)

type fluxViews struct {
	rank            int
	thk, ubar, vbar grid.View
	limiter         grid.View
}

// faceFlux is the upwind flux per unit width through the canonical face
// (i,j,d), d East or North, with the upwind cell returned for limiting. A
// zero face velocity carries no flux.
func (m *IceSheet) faceFlux(fv *fluxViews, i, j int, d types.Direction) (F float64, ui, uj int) {
	var (
		di, dj = d.Offset()
		uf     float64
	)
	if d == types.East {
		uf = 0.5 * (fv.ubar.At(i, j) + fv.ubar.At(i+di, j+dj))
	} else {
		uf = 0.5 * (fv.vbar.At(i, j) + fv.vbar.At(i+di, j+dj))
	}
	switch {
	case uf > 0:
		ui, uj = i, j
	case uf < 0:
		ui, uj = i+di, j+dj
	default:
		return 0, i, j
	}
	F = uf * m.Flux.Thickness(fv.rank, ui, uj, fv.thk)
	return
}

// outwardFluxes returns the resolved flux leaving (i,j) through each face,
// indexed by direction. Every face is evaluated through its canonical owner,
// so the two cells sharing a face see the same value.
func (m *IceSheet) outwardFluxes(fv *fluxViews, i, j int, limited bool) (out types.StarStencil[float64]) {
	for _, d := range types.Directions {
		var (
			ci, cj = i, j
			cd     = d
			sign   = 1.
		)
		switch d {
		case types.West:
			ci, cd, sign = i-1, types.East, -1
		case types.South:
			cj, cd, sign = j-1, types.North, -1
		}
		F, ui, uj := m.faceFlux(fv, ci, cj, cd)
		if limited && F != 0 {
			F *= fv.limiter.At(ui, uj)
		}
		F = m.Flux.ResolveFace(fv.rank, ci, cj, cd, F)
		out.Put(d, sign*F)
	}
	return
}

/*
massContinuityStep advances thickness with upwind face fluxes. Each cell's
outgoing volume is limited to what it holds, the factor is exchanged, and
each face flux is scaled by the factor of its upwind cell. Transport therefore
never produces negative thickness; mass balance can, and is clipped into
NonnegFlux. Thickness and face fluxes are left exchanged in ThkNew, FluxENew
and FluxNNew for Step to publish.
*/
func (m *IceSheet) massContinuityStep(dt float64) (err error) {
	var (
		g      = m.G
		vel    = m.Stress.Velocity()
		dx, dy = g.Dx, g.Dy
		area   = dx * dy
		parts  = make([]StepDiagnostics, g.NumTiles())
		views  = func(rank int) *fluxViews {
			return &fluxViews{
				rank:    rank,
				thk:     m.Thk.View(rank),
				ubar:    vel.Ubar.View(rank),
				vbar:    vel.Vbar.View(rank),
				limiter: m.Limiter.View(rank),
			}
		}
	)
	// Limiter
	if err = g.ForEachTile(func(rank int) error {
		fv := views(rank)
		fv.limiter.Tile.ForOwned(func(i, j int) {
			r := 1.
			if !m.Flux.Held(rank, i, j) {
				var (
					out     = m.outwardFluxes(fv, i, j, false)
					outflow = dt * (max(out.East, 0)*dy + max(out.West, 0)*dy +
						max(out.North, 0)*dx + max(out.South, 0)*dx)
					avail = fv.thk.At(i, j) * area
				)
				if outflow > avail {
					r = avail / outflow
				}
			}
			fv.limiter.Set(i, j, r)
		})
		return nil
	}); err != nil {
		return
	}
	if err = g.Exchange(m.Limiter); err != nil {
		return
	}
	// Thickness update
	if err = g.ForEachTile(func(rank int) error {
		var (
			fv     = views(rank)
			thkNew = m.ThkNew.View(rank)
			smb    = m.SMB.View(rank)
			bmelt  = m.Bmelt.View(rank)
			fe, fn = m.FluxENew.View(rank), m.FluxNNew.View(rank)
			sd     = &parts[rank]
		)
		fv.thk.Tile.ForOwned(func(i, j int) {
			out := m.outwardFluxes(fv, i, j, true)
			fe.Set(i, j, out.East)
			fn.Set(i, j, out.North)
			if m.Flux.Held(rank, i, j) {
				thkNew.Set(i, j, m.Flux.Thickness(rank, i, j, fv.thk))
				return
			}
			var (
				div = (out.East+out.West)/dx + (out.North+out.South)/dy
				mb  = smb.At(i, j) - bmelt.At(i, j)
				H   = fv.thk.At(i, j) - dt*div + dt*mb
			)
			sd.MassBalance += dt * mb * area
			switch {
			case i == 0:
				sd.BoundaryFlux += dt * out.West * dy
			case i == g.Mx-1:
				sd.BoundaryFlux += dt * out.East * dy
			}
			switch {
			case j == 0:
				sd.BoundaryFlux += dt * out.South * dx
			case j == g.My-1:
				sd.BoundaryFlux += dt * out.North * dx
			}
			if H < 0 {
				sd.NonnegFlux += -H * area
				H = 0
			}
			thkNew.Set(i, j, H)
		})
		return nil
	}); err != nil {
		return
	}
	if err = g.Exchange(m.ThkNew, m.FluxENew, m.FluxNNew); err != nil {
		return
	}
	m.Diagnostics.Add(reduce(parts))
	return
}

// updateSurface sets usurf = topg + H over owned and ghost cells, both of
// which are current after the thickness exchange
func (m *IceSheet) updateSurface() {
	for rank, tl := range m.G.Tiles {
		thk, topg, usurf := m.Thk.View(rank), m.Topg.View(rank), m.Usurf.View(rank)
		tl.ForCovered(func(i, j int) {
			if m.Flux.Held(rank, i, j) {
				usurf.Set(i, j, m.Flux.Surface(rank, i, j, usurf))
				return
			}
			usurf.Set(i, j, topg.At(i, j)+thk.At(i, j))
		})
	}
}
