package grid

import (
	"fmt"
	"math"

	"github.com/notargets/goice/types"
	"github.com/notargets/goice/utils"
)

// Corner ordering of the enclosing cell: (I,J), (I+1,J), (I+1,J+1), (I,J+1)
var cornerOffsets = [4][2]int{{0, 0}, {1, 0}, {1, 1}, {0, 1}}

// CollectInterpolationWeights returns the four grid points enclosing (x,y)
// and their bilinear weights, which sum to one
func (g *Grid) CollectInterpolationWeights(x, y float64) (ij [4][2]int, w [4]float64, err error) {
	if !(x >= -g.Lx && x <= g.Lx && y >= -g.Ly && y <= g.Ly) {
		err = &types.DomainError{Op: "CollectInterpolationWeights", X: x, Y: y, Err: types.ErrOutOfDomain}
		return
	}
	var (
		I = min(int(math.Floor((x+g.Lx)/g.Dx)), g.Mx-2)
		J = min(int(math.Floor((y+g.Ly)/g.Dy)), g.My-2)
		a = (x - g.X[I]) / g.Dx
		b = (y - g.Y[J]) / g.Dy
	)
	a, b = utils.Clamp(a, 0, 1), utils.Clamp(b, 0, 1)
	w = [4]float64{(1 - a) * (1 - b), a * (1 - b), a * b, (1 - a) * b}
	for n, off := range cornerOffsets {
		ij[n] = [2]int{I + off[0], J + off[1]}
	}
	return
}

// InterpolationOperator maps a gathered 2-D field to the points (xs[n], ys[n])
func (g *Grid) InterpolationOperator(xs, ys []float64) (op utils.CSR, err error) {
	if len(xs) != len(ys) {
		err = fmt.Errorf("InterpolationOperator: have %d x and %d y coordinates", len(xs), len(ys))
		return
	}
	var (
		dok = utils.NewDOK(len(xs), g.Mx*g.My)
		ij  [4][2]int
		w   [4]float64
	)
	for n := range xs {
		if ij, w, err = g.CollectInterpolationWeights(xs[n], ys[n]); err != nil {
			return
		}
		for c := 0; c < 4; c++ {
			if w[c] != 0 {
				dok.Add(n, ij[c][1]*g.Mx+ij[c][0], w[c])
			}
		}
	}
	dok.SetReadOnly("interpolation")
	op = dok.ToCSR()
	return
}

// InterpolatePoints applies an operator from InterpolationOperator to level k
func (f *Field) InterpolatePoints(op utils.CSR, k int) (vals []float64, err error) {
	var (
		global = f.Gather()
		level  = make([]float64, f.g.Mx*f.g.My)
	)
	for n := range level {
		level[n] = global[n*f.Mz+k]
	}
	return op.Apply(level)
}

// InterpolateColumnPoint is bilinear in (x,y) and linear in z between levels.
// z is clamped to the vertical extent of the grid.
func (f *Field) InterpolateColumnPoint(x, y, z float64) (val float64, err error) {
	var (
		ij [4][2]int
		w  [4]float64
		g  = f.g
	)
	if ij, w, err = g.CollectInterpolationWeights(x, y); err != nil {
		return
	}
	var (
		k    = min(g.KBelowHeight(z), g.Mz-2)
		frac float64
	)
	if f.Mz == 1 {
		k = 0
	} else {
		frac = utils.Clamp((z-g.Zlevels[k])/(g.Zlevels[k+1]-g.Zlevels[k]), 0, 1)
	}
	for c := 0; c < 4; c++ {
		i, j := ij[c][0], ij[c][1]
		colVal := f.AtGlobal(i, j, k)
		if f.Mz > 1 {
			colVal += frac * (f.AtGlobal(i, j, k+1) - colVal)
		}
		val += w[c] * colVal
	}
	return
}
