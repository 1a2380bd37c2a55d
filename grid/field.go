package grid

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/notargets/goice/types"
)

// Attributes is the metadata persisted with a field
type Attributes struct {
	Units        string
	LongName     string
	StandardName string
	Kind         types.FieldKind
}

// Field is a 2-D (Mz == 1) or 3-D quantity on the grid. Each tile holds its
// owned columns plus the ghost ring, column major in k.
type Field struct {
	Name string
	Attributes
	Mz   int
	g    *Grid
	data [][]float64 // one per tile
}

func (g *Grid) NewField2D(name string, attrs Attributes) *Field {
	return g.newField(name, attrs, 1)
}

func (g *Grid) NewField3D(name string, attrs Attributes) *Field {
	return g.newField(name, attrs, g.Mz)
}

func (g *Grid) newField(name string, attrs Attributes, Mz int) (f *Field) {
	f = &Field{
		Name:       name,
		Attributes: attrs,
		Mz:         Mz,
		g:          g,
		data:       make([][]float64, len(g.Tiles)),
	}
	for rank, t := range g.Tiles {
		f.data[rank] = make([]float64, t.Nx*t.Ny*Mz)
	}
	return
}

func (f *Field) Grid() *Grid { return f.g }

func (f *Field) Is3D() bool { return f.Mz > 1 }

// View is a tile's window on a field, addressed with global indices
type View struct {
	Tile *Tile
	Mz   int
	data []float64
}

func (f *Field) View(rank int) View {
	return View{Tile: f.g.Tiles[rank], Mz: f.Mz, data: f.data[rank]}
}

func (v View) offset(i, j int) int {
	if !v.Tile.Covers(i, j) {
		panic(fmt.Errorf("index (%d,%d) outside tile %d owned [%d,%d)x[%d,%d) plus ghosts",
			i, j, v.Tile.Rank, v.Tile.Xs, v.Tile.Xs+v.Tile.Xm, v.Tile.Ys, v.Tile.Ys+v.Tile.Ym))
	}
	return v.Tile.cell(i, j) * v.Mz
}

func (v View) At(i, j int) float64 { return v.data[v.offset(i, j)] }

func (v View) Set(i, j int, val float64) { v.data[v.offset(i, j)] = val }

func (v View) AtK(i, j, k int) float64 { return v.data[v.offset(i, j)+k] }

func (v View) SetK(i, j, k int, val float64) { v.data[v.offset(i, j)+k] = val }

// Column aliases the storage of column (i,j)
func (v View) Column(i, j int) []float64 {
	o := v.offset(i, j)
	return v.data[o : o+v.Mz : o+v.Mz]
}

// Star gathers the values at (i,j) and its four neighbors at level k
func (v View) Star(i, j, k int) (s types.StarStencil[float64]) {
	s.IJ = v.AtK(i, j, k)
	for _, d := range types.Directions {
		di, dj := d.Offset()
		s.Put(d, v.AtK(i+di, j+dj, k))
	}
	return
}

// ForOwned calls fn for every owned (i,j) of the tile in row major order
func (t *Tile) ForOwned(fn func(i, j int)) {
	for j := t.Ys; j < t.Ys+t.Ym; j++ {
		for i := t.Xs; i < t.Xs+t.Xm; i++ {
			fn(i, j)
		}
	}
}

// ForCovered is ForOwned extended over the ghost ring
func (t *Tile) ForCovered(fn func(i, j int)) {
	for j := t.Ys - GhostWidth; j < t.Ys+t.Ym+GhostWidth; j++ {
		for i := t.Xs - GhostWidth; i < t.Xs+t.Xm+GhostWidth; i++ {
			fn(i, j)
		}
	}
}

func (f *Field) checkCompatible(op string, other *Field) error {
	if other.g != f.g || other.Mz != f.Mz {
		return fmt.Errorf("%s: field %q (Mz=%d) is not compatible with %q (Mz=%d)",
			op, other.Name, other.Mz, f.Name, f.Mz)
	}
	return nil
}

// Set assigns val everywhere, ghosts included
func (f *Field) Set(val float64) {
	for _, d := range f.data {
		for i := range d {
			d[i] = val
		}
	}
}

func (f *Field) CopyFrom(src *Field) (err error) {
	if err = f.checkCompatible("CopyFrom", src); err != nil {
		return
	}
	for rank := range f.data {
		copy(f.data[rank], src.data[rank])
	}
	return
}

// SwapData exchanges storage with other. It is the publish point of a double
// buffer: every read after it sees the new values.
func (f *Field) SwapData(other *Field) (err error) {
	if err = f.checkCompatible("SwapData", other); err != nil {
		return
	}
	f.data, other.data = other.data, f.data
	return
}

// Clone returns a deep copy under a new name
func (f *Field) Clone(name string) (c *Field) {
	c = f.g.newField(name, f.Attributes, f.Mz)
	_ = c.CopyFrom(f)
	return
}

// Sum over owned cells and all levels
func (f *Field) Sum() float64 {
	partial := make([]float64, len(f.data))
	for rank := range f.data {
		v := f.View(rank)
		v.Tile.ForOwned(func(i, j int) {
			partial[rank] += floats.Sum(v.Column(i, j))
		})
	}
	return floats.Sum(partial)
}

// MaxAbs over owned cells and all levels
func (f *Field) MaxAbs() (m float64) {
	for rank := range f.data {
		v := f.View(rank)
		v.Tile.ForOwned(func(i, j int) {
			for _, val := range v.Column(i, j) {
				m = math.Max(m, math.Abs(val))
			}
		})
	}
	return
}

// HasNaN checks owned and ghost storage
func (f *Field) HasNaN() bool {
	for _, d := range f.data {
		if floats.HasNaN(d) {
			return true
		}
	}
	return false
}

func (f *Field) globalIndex(i, j, k int) int {
	return (j*f.g.Mx+i)*f.Mz + k
}

// Gather assembles the owned values of every tile into a global array indexed
// ((j*Mx)+i)*Mz + k
func (f *Field) Gather() (global []float64) {
	global = make([]float64, f.g.Mx*f.g.My*f.Mz)
	for rank := range f.data {
		v := f.View(rank)
		v.Tile.ForOwned(func(i, j int) {
			copy(global[f.globalIndex(i, j, 0):], v.Column(i, j))
		})
	}
	return
}

// Scatter distributes a global array to owned and ghost cells. Ghosts outside
// the domain receive the nearest boundary value, matching Exchange.
func (f *Field) Scatter(global []float64) (err error) {
	if len(global) != f.g.Mx*f.g.My*f.Mz {
		return fmt.Errorf("Scatter %q: have %d values, need %d", f.Name, len(global), f.g.Mx*f.g.My*f.Mz)
	}
	for rank, t := range f.g.Tiles {
		v := f.View(rank)
		for j := t.Ys - GhostWidth; j < t.Ys+t.Ym+GhostWidth; j++ {
			for i := t.Xs - GhostWidth; i < t.Xs+t.Xm+GhostWidth; i++ {
				ic, jc := f.g.clampIndex(i, j)
				ind := f.globalIndex(ic, jc, 0)
				copy(v.Column(i, j), global[ind:ind+f.Mz])
			}
		}
	}
	return
}

// AtGlobal reads from the owning tile
func (f *Field) AtGlobal(i, j, k int) float64 {
	rank := f.g.TileMap.GetTile(i, j)
	if rank < 0 {
		panic(fmt.Errorf("index (%d,%d) outside the %dx%d grid", i, j, f.g.Mx, f.g.My))
	}
	return f.View(rank).AtK(i, j, k)
}

func (g *Grid) clampIndex(i, j int) (ic, jc int) {
	ic = max(0, min(g.Mx-1, i))
	jc = max(0, min(g.My-1, j))
	return
}
