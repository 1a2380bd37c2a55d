package IceSheet

import (
	"fmt"

	"github.com/notargets/goice/grid"
	"github.com/notargets/goice/types"
)

/*
Regional restricts the model to the cells of a no-model mask marked modeled.
Held cells read from a snapshot arena captured at bootstrap, indexed like the
live fields and never written afterwards. A face between two held cells is
excluded from the update and reports its snapshot flux. A mixed face reads the
held side from the snapshot, or carries no flux with ClosedBoundary.
*/
type Regional struct {
	DefaultEnthalpyBC
	Mask           *grid.Field
	ClosedBoundary bool
	// Snapshot arena
	Thk, Usurf, Bmr, Enth, FluxE, FluxN *grid.Field
}

func NewRegional(mask *grid.Field, closed bool) (r *Regional, err error) {
	if mask.Is3D() {
		err = types.NewConfigurationError("no_model_mask", "mask must be 2-D, field %q has %d levels",
			mask.Name, mask.Mz)
		return
	}
	if err = mask.Grid().Exchange(mask); err != nil {
		return
	}
	r = &Regional{Mask: mask, ClosedBoundary: closed}
	return
}

func (r *Regional) Name() string {
	if r.ClosedBoundary {
		return "regional (closed)"
	}
	return "regional"
}

// Capture copies the snapshot arena from the model. It is the only writer of
// the arena and is called once per bootstrap.
func (r *Regional) Capture(m *IceSheet) (err error) {
	if m.G != r.Mask.Grid() {
		return fmt.Errorf("Regional.Capture: mask and model are on different grids")
	}
	r.Thk = m.Thk.Clone("thk_stored")
	r.Usurf = m.Usurf.Clone("usurf_stored")
	r.Bmr = m.Bmelt.Clone("bmr_stored")
	r.Enth = m.Enth.Clone("enthalpy_stored")
	r.FluxE = m.FluxE.Clone("flux_east_stored")
	r.FluxN = m.FluxN.Clone("flux_north_stored")
	return m.G.Exchange(r.Snapshot()...)
}

func (r *Regional) Captured() bool { return r.Thk != nil }

// Snapshot lists the arena fields, empty before Capture
func (r *Regional) Snapshot() []*grid.Field {
	if !r.Captured() {
		return nil
	}
	return []*grid.Field{r.Thk, r.Usurf, r.Bmr, r.Enth, r.FluxE, r.FluxN}
}

func (r *Regional) Held(rank, i, j int) bool {
	return types.MaskFromValue(r.Mask.View(rank).At(i, j)) == types.Mask_Held
}

func (r *Regional) Thickness(rank, i, j int, live grid.View) float64 {
	if r.Held(rank, i, j) {
		return r.Thk.View(rank).At(i, j)
	}
	return live.At(i, j)
}

func (r *Regional) Surface(rank, i, j int, live grid.View) float64 {
	if r.Held(rank, i, j) {
		return r.Usurf.View(rank).At(i, j)
	}
	return live.At(i, j)
}

func (r *Regional) ResolveFace(rank, i, j int, d types.Direction, F float64) float64 {
	var (
		di, dj = d.Offset()
		here   = r.Held(rank, i, j)
		there  = r.Held(rank, i+di, j+dj)
	)
	switch {
	case here && there:
		if d == types.East {
			return r.FluxE.View(rank).At(i, j)
		}
		return r.FluxN.View(rank).At(i, j)
	case (here || there) && r.ClosedBoundary:
		return 0
	}
	return F
}

func (r *Regional) HeldColumn(rank, i, j int) (col []float64, bmr float64, held bool) {
	if !r.Held(rank, i, j) {
		return
	}
	return r.Enth.View(rank).Column(i, j), r.Bmr.View(rank).At(i, j), true
}

// HeldCount is the number of held cells in the domain
func (r *Regional) HeldCount() (n int) {
	g := r.Mask.Grid()
	for rank, tl := range g.Tiles {
		tl.ForOwned(func(i, j int) {
			if r.Held(rank, i, j) {
				n++
			}
		})
	}
	return
}
