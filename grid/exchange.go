package grid

import (
	"fmt"

	"github.com/notargets/goice/utils"
)

// haloMsg carries one owned column. Values aliases the sender's storage, which
// is read only for the duration of the exchange.
type haloMsg struct {
	From   int
	Field  int
	I, J   int
	Values []float64
}

/*
Exchange refreshes the ghost ring of every tile for each field. It is
collective and blocking:

	phase 1: every tile posts the owned columns its neighbors need and delivers
	phase 2: every tile receives into its ghosts, then copies the nearest
	         interior value into ghosts outside the physical domain

A tile that hears nothing from one of its neighbors fails the exchange.

Owned values must be finite, a NaN aborts the exchange for all tiles and the
ghost rings keep their previous values.
*/
func (g *Grid) Exchange(fields ...*Field) (err error) {
	for _, f := range fields {
		if f.g != g {
			return fmt.Errorf("Exchange: field %q belongs to another grid", f.Name)
		}
	}
	if err = g.ForEachTile(func(rank int) error {
		for _, f := range fields {
			v := f.View(rank)
			var bad error
			v.Tile.ForOwned(func(i, j int) {
				if bad != nil {
					return
				}
				if k := utils.FirstNan(v.Column(i, j)); k >= 0 {
					bad = fmt.Errorf("Exchange: field %q has NaN at owned cell (%d,%d,%d) of tile %d",
						f.Name, i, j, k, rank)
				}
			})
			if bad != nil {
				return bad
			}
		}
		return nil
	}); err != nil {
		return
	}
	// Phase 1
	if err = g.ForEachTile(func(rank int) error {
		for _, e := range g.sendPlan[rank] {
			for n, f := range fields {
				g.mailBox.PostMessage(rank, e.Target, haloMsg{
					From:   rank,
					Field:  n,
					I:      e.I,
					J:      e.J,
					Values: f.View(rank).Column(e.I, e.J),
				})
			}
		}
		return g.mailBox.DeliverMyMessages(rank)
	}); err != nil {
		g.drain()
		return
	}
	// Phase 2
	err = g.ForEachTile(func(rank int) error {
		heard := make([]bool, len(g.Tiles))
		g.mailBox.ReceiveMyMessages(rank)
		for _, msg := range g.mailBox.ReceiveMsgQs[rank].Cells() {
			heard[msg.From] = true
			copy(fields[msg.Field].View(rank).Column(msg.I, msg.J), msg.Values)
		}
		g.mailBox.ClearMyMessages(rank)
		for _, f := range fields {
			g.fillBoundaryGhosts(f.View(rank))
		}
		if len(fields) == 0 {
			return nil
		}
		for _, nbr := range g.neighbors[rank] {
			if !heard[nbr] {
				return fmt.Errorf("Exchange: tile %d received nothing from neighbor %d", rank, nbr)
			}
		}
		return nil
	})
	return
}

func (g *Grid) drain() {
	for rank := range g.Tiles {
		g.mailBox.ReceiveMyMessages(rank)
		g.mailBox.ClearMyMessages(rank)
	}
}

// fillBoundaryGhosts applies a zero gradient condition at the domain edge
func (g *Grid) fillBoundaryGhosts(v View) {
	t := v.Tile
	for j := t.Ys - GhostWidth; j < t.Ys+t.Ym+GhostWidth; j++ {
		for i := t.Xs - GhostWidth; i < t.Xs+t.Xm+GhostWidth; i++ {
			if g.InDomain(i, j) {
				continue
			}
			ic, jc := g.clampIndex(i, j)
			copy(v.Column(i, j), v.Column(ic, jc))
		}
	}
}
