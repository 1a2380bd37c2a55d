package grid

import (
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/notargets/goice/types"
	"github.com/notargets/goice/utils"
)

// GhostWidth is sufficient for the five point stencils of the steppers
const GhostWidth = 1

type Params struct {
	Mx, My  int       // horizontal cell counts
	Lx, Ly  float64   // half widths, domain is [-Lx,Lx] x [-Ly,Ly]
	Zlevels []float64 // vertical levels above the base, Zlevels[0] == 0
	Px, Py  int       // tile counts, one worker per tile
}

// Tile is the rectangle of cells owned by one worker, [Xs,Xs+Xm) x [Ys,Ys+Ym)
type Tile struct {
	Rank           int
	Xs, Xm, Ys, Ym int
	// Local storage spans the owned cells plus GhostWidth on every side
	Nx, Ny int
}

func (t *Tile) Owns(i, j int) bool {
	return i >= t.Xs && i < t.Xs+t.Xm && j >= t.Ys && j < t.Ys+t.Ym
}

// Covers reports whether (i,j) is owned or in the ghost ring
func (t *Tile) Covers(i, j int) bool {
	return i >= t.Xs-GhostWidth && i < t.Xs+t.Xm+GhostWidth &&
		j >= t.Ys-GhostWidth && j < t.Ys+t.Ym+GhostWidth
}

func (t *Tile) cell(i, j int) int {
	return (j-t.Ys+GhostWidth)*t.Nx + (i - t.Xs + GhostWidth)
}

// haloEntry is one owned column a neighbor needs in its ghost ring
type haloEntry struct {
	Target int
	I, J   int
}

type Grid struct {
	Mx, My, Mz     int
	Lx, Ly, Dx, Dy float64
	X, Y           []float64
	Zlevels        []float64
	TileMap        *utils.TileMap
	Tiles          []*Tile
	sendPlan       [][]haloEntry // per rank
	neighbors      [][]int       // per rank, the senders an exchange must hear from
	mailBox        *utils.MailBox[haloMsg]
}

func NewGrid(p Params) (g *Grid, err error) {
	switch {
	case p.Mx < 3 || p.My < 3:
		err = types.NewConfigurationError("grid", "need at least 3x3 cells, have %dx%d", p.Mx, p.My)
	case p.Lx <= 0 || p.Ly <= 0:
		err = types.NewConfigurationError("grid", "domain half widths must be positive, have %g, %g", p.Lx, p.Ly)
	case len(p.Zlevels) < 2:
		err = types.NewConfigurationError("grid", "need at least 2 vertical levels, have %d", len(p.Zlevels))
	case p.Zlevels[0] != 0:
		err = types.NewConfigurationError("grid", "lowest vertical level must be 0, have %g", p.Zlevels[0])
	case p.Px < 1 || p.Py < 1 || p.Px > p.Mx || p.Py > p.My:
		err = types.NewConfigurationError("grid", "invalid tile layout %dx%d for %dx%d cells",
			p.Px, p.Py, p.Mx, p.My)
	}
	if err != nil {
		return
	}
	for k := 1; k < len(p.Zlevels); k++ {
		if p.Zlevels[k] <= p.Zlevels[k-1] {
			err = types.NewConfigurationError("grid", "vertical levels must increase, level %d is %g",
				k, p.Zlevels[k])
			return
		}
	}
	g = &Grid{
		Mx: p.Mx, My: p.My, Mz: len(p.Zlevels),
		Lx: p.Lx, Ly: p.Ly,
		Dx:      2 * p.Lx / float64(p.Mx-1),
		Dy:      2 * p.Ly / float64(p.My-1),
		X:       make([]float64, p.Mx),
		Y:       make([]float64, p.My),
		Zlevels: append([]float64{}, p.Zlevels...),
		TileMap: utils.NewTileMap(p.Px, p.Py, p.Mx, p.My),
	}
	for i := range g.X {
		g.X[i] = -g.Lx + float64(i)*g.Dx
	}
	for j := range g.Y {
		g.Y[j] = -g.Ly + float64(j)*g.Dy
	}
	NP := g.TileMap.NumTiles()
	g.Tiles = make([]*Tile, NP)
	for rank := 0; rank < NP; rank++ {
		t := &Tile{Rank: rank}
		t.Xs, t.Xm, t.Ys, t.Ym = g.TileMap.GetTileRange(rank)
		t.Nx, t.Ny = t.Xm+2*GhostWidth, t.Ym+2*GhostWidth
		g.Tiles[rank] = t
	}
	g.buildSendPlan()
	g.mailBox = utils.NewMailBox[haloMsg](NP)
	return
}

// buildSendPlan inverts every tile's ghost ring into per owner send lists
func (g *Grid) buildSendPlan() {
	g.sendPlan = make([][]haloEntry, len(g.Tiles))
	for _, t := range g.Tiles {
		for j := t.Ys - GhostWidth; j < t.Ys+t.Ym+GhostWidth; j++ {
			for i := t.Xs - GhostWidth; i < t.Xs+t.Xm+GhostWidth; i++ {
				if t.Owns(i, j) || !g.InDomain(i, j) {
					continue
				}
				owner := g.TileMap.GetTile(i, j)
				g.sendPlan[owner] = append(g.sendPlan[owner], haloEntry{Target: t.Rank, I: i, J: j})
			}
		}
	}
	// Deterministic delivery order
	for _, plan := range g.sendPlan {
		sort.Slice(plan, func(a, b int) bool {
			if plan[a].Target != plan[b].Target {
				return plan[a].Target < plan[b].Target
			}
			if plan[a].J != plan[b].J {
				return plan[a].J < plan[b].J
			}
			return plan[a].I < plan[b].I
		})
	}
	g.neighbors = make([][]int, len(g.Tiles))
	for rank := range g.Tiles {
		g.neighbors[rank] = g.Neighbors(rank)
	}
}

func (g *Grid) NumTiles() int { return len(g.Tiles) }

func (g *Grid) InDomain(i, j int) bool {
	return i >= 0 && i < g.Mx && j >= 0 && j < g.My
}

// Neighbors returns the ranks sharing a ghost region with rank
func (g *Grid) Neighbors(rank int) (nbrs []int) {
	seen := make(map[int]bool)
	for _, t := range g.Tiles {
		for _, e := range g.sendPlan[t.Rank] {
			if t.Rank == rank && !seen[e.Target] {
				seen[e.Target] = true
			} else if e.Target == rank && !seen[t.Rank] {
				seen[t.Rank] = true
			}
		}
	}
	for r := range seen {
		nbrs = append(nbrs, r)
	}
	sort.Ints(nbrs)
	return
}

// ForEachTile runs fn once per tile, each on its own goroutine, and returns
// the first error
func (g *Grid) ForEachTile(fn func(rank int) error) error {
	var eg errgroup.Group
	for rank := range g.Tiles {
		rank := rank
		eg.Go(func() error { return fn(rank) })
	}
	return eg.Wait()
}

// KBelowHeight is the index of the highest level at or below z
func (g *Grid) KBelowHeight(z float64) (k int) {
	if z < 0 {
		return 0
	}
	k = sort.Search(g.Mz, func(k int) bool { return g.Zlevels[k] > z }) - 1
	return
}

func (g *Grid) Lz() float64 { return g.Zlevels[g.Mz-1] }

func (g *Grid) Print() (txt string) {
	txt = fmt.Sprintf("Grid %dx%dx%d, [%g,%g]x[%g,%g], dx=%g dy=%g, Lz=%g, %d tiles (%dx%d)",
		g.Mx, g.My, g.Mz, -g.Lx, g.Lx, -g.Ly, g.Ly, g.Dx, g.Dy, g.Lz(),
		g.NumTiles(), g.TileMap.Px, g.TileMap.Py)
	return
}
