package IceSheet

import (
	"math"

	"github.com/notargets/goice/fieldio"
	"github.com/notargets/goice/grid"
)

// Defaults for optional inputs
const (
	DefaultGeothermalFlux  = 0.042 // W m-2
	DefaultSurfaceTemp     = 263.15
	CalendarAttribute      = "calendar"
	ReferenceTimeAttribute = "reference_time"
	defaultReferenceTime   = "seconds since 1-1-1"
	defaultCalendar        = "365.2524_day"
)

/*
InitFromStore bootstraps the model state. thk and topg are required. When
enthalpy is absent it is derived from temp as cold ice, and when both are
absent the column takes the surface temperature. Levels above the ice hold
the sentinel 0.
*/
func (m *IceSheet) InitFromStore(s fieldio.Store) (err error) {
	for _, f := range []*grid.Field{m.Thk, m.Topg} {
		if err = s.Get(f.Name, f); err != nil {
			return
		}
	}
	optional := []struct {
		f   *grid.Field
		def float64
	}{
		{m.SMB, 0},
		{m.Ts, DefaultSurfaceTemp},
		{m.Ghf, DefaultGeothermalFlux},
		{m.Enhancement, 1},
		{m.Bmelt, 0},
	}
	for _, o := range optional {
		if s.Has(o.f.Name) {
			if err = s.Get(o.f.Name, o.f); err != nil {
				return
			}
		} else {
			o.f.Set(o.def)
		}
	}
	switch {
	case s.Has(m.Enth.Name):
		if err = s.Get(m.Enth.Name, m.Enth); err != nil {
			return
		}
	case s.Has(m.Temp.Name):
		if err = s.Get(m.Temp.Name, m.Temp); err != nil {
			return
		}
		if err = m.EnthalpyFromTemperature(); err != nil {
			return
		}
	default:
		for rank := range m.G.Tiles {
			ts, temp := m.Ts.View(rank), m.Temp.View(rank)
			temp.Tile.ForCovered(func(i, j int) {
				col := temp.Column(i, j)
				for k := range col {
					col[k] = ts.At(i, j)
				}
			})
		}
		if err = m.EnthalpyFromTemperature(); err != nil {
			return
		}
	}
	m.updateSurface()
	return m.G.Exchange(m.stateFields()...)
}

// EnthalpyFromTemperature sets enthalpy from temp with no water content,
// taking temperatures above the pressure melting point as melting
func (m *IceSheet) EnthalpyFromTemperature() (err error) {
	z := m.G.Zlevels
	return m.G.ForEachTile(func(rank int) (err error) {
		var (
			tl   = m.G.Tiles[rank]
			thk  = m.Thk.View(rank)
			temp = m.Temp.View(rank)
			enth = m.Enth.View(rank)
		)
		for j := tl.Ys - grid.GhostWidth; j < tl.Ys+tl.Ym+grid.GhostWidth; j++ {
			for i := tl.Xs - grid.GhostWidth; i < tl.Xs+tl.Xm+grid.GhostWidth; i++ {
				H := thk.At(i, j)
				for k := range z {
					if H <= 0 || z[k] > H {
						enth.SetK(i, j, k, 0)
						continue
					}
					p := m.EC.PressureFromDepth(H - z[k])
					T := math.Min(temp.AtK(i, j, k), m.EC.PressureMeltingTemperature(p))
					var E float64
					if E, err = m.EC.ColdEnthalpy(T, p); err != nil {
						return locate(err, i, j, k, m.Steps)
					}
					enth.SetK(i, j, k, E)
				}
			}
		}
		return
	})
}

// TemperatureFromEnthalpy sets temp in the ice, the surface temperature above it
func (m *IceSheet) TemperatureFromEnthalpy() (err error) {
	z := m.G.Zlevels
	return m.G.ForEachTile(func(rank int) (err error) {
		var (
			tl   = m.G.Tiles[rank]
			thk  = m.Thk.View(rank)
			ts   = m.Ts.View(rank)
			temp = m.Temp.View(rank)
			enth = m.Enth.View(rank)
		)
		for j := tl.Ys; j < tl.Ys+tl.Ym; j++ {
			for i := tl.Xs; i < tl.Xs+tl.Xm; i++ {
				H := thk.At(i, j)
				for k := range z {
					E := enth.AtK(i, j, k)
					if H <= 0 || z[k] > H || E == 0 {
						temp.SetK(i, j, k, ts.At(i, j))
						continue
					}
					var T float64
					if T, err = m.EC.AbsoluteTemperature(E, m.EC.PressureFromDepth(H-z[k])); err != nil {
						return locate(err, i, j, k, m.Steps)
					}
					temp.SetK(i, j, k, T)
				}
			}
		}
		return
	})
}

// WriteToStore writes the model state. In cold ice mode enthalpy is derived
// from temperature first, otherwise temperature from enthalpy.
func (m *IceSheet) WriteToStore(s fieldio.Store) (err error) {
	if m.ColdIceMode {
		err = m.EnthalpyFromTemperature()
	} else {
		err = m.TemperatureFromEnthalpy()
	}
	if err != nil {
		return
	}
	fields := append(m.stateFields(), m.Temp, m.FluxE, m.FluxN)
	fields = append(fields, m.Stress.Velocity().Fields()...)
	if r, ok := m.Flux.(*Regional); ok {
		fields = append(fields, r.Mask)
		fields = append(fields, r.Snapshot()...)
	}
	for _, f := range fields {
		if err = s.Put(f); err != nil {
			return
		}
	}
	if _, ok := s.Attribute(CalendarAttribute); !ok {
		s.SetAttribute(CalendarAttribute, defaultCalendar)
	}
	if _, ok := s.Attribute(ReferenceTimeAttribute); !ok {
		s.SetAttribute(ReferenceTimeAttribute, defaultReferenceTime)
	}
	return
}

// RestoreSnapshot replaces the regional snapshot with the *_stored fields of
// s where present, so a restart holds the state of the first bootstrap
func (m *IceSheet) RestoreSnapshot(s fieldio.Store) (err error) {
	r, ok := m.Flux.(*Regional)
	if !ok {
		return
	}
	var restored []*grid.Field
	for _, f := range r.Snapshot() {
		if !s.Has(f.Name) {
			continue
		}
		if err = s.Get(f.Name, f); err != nil {
			return
		}
		restored = append(restored, f)
	}
	if len(restored) == 0 {
		return
	}
	if err = m.G.Exchange(restored...); err != nil {
		return
	}
	m.updateSurface()
	return
}
