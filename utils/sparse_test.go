package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSparse(t *testing.T) {
	{ // Accumulation and application
		A := NewDOK(2, 3)
		A.Add(0, 0, 0.5)
		A.Add(0, 0, 0.25)
		A.Add(0, 2, 0.25)
		A.Add(1, 1, 1)
		Acsr := A.ToCSR()
		nr, nc := Acsr.Dims()
		assert.Equal(t, 2, nr)
		assert.Equal(t, 3, nc)
		assert.Equal(t, 3, Acsr.NNZ())
		y, err := Acsr.Apply([]float64{4, 5, 8})
		assert.NoError(t, err)
		assert.InDeltaSlice(t, []float64{5, 5}, y, 1.e-14)
		assert.InDeltaSlice(t, []float64{1, 1}, Acsr.RowSums(), 1.e-14)
		_, err = Acsr.Apply([]float64{1})
		assert.Error(t, err)
	}
	{ // Read only
		A := NewDOK(2, 2)
		A.SetReadOnly("A")
		assert.Panics(t, func() { A.Add(0, 0, 1) })
	}
}

func TestMath(t *testing.T) {
	for p := -8; p <= 8; p++ {
		assert.InDelta(t, math.Pow(1.7, float64(p)), POW(1.7, p), 1.e-12)
	}
	assert.InDelta(t, math.Pow(2.5, 1./3.), PowFloat(2.5, 1./3.), 1.e-14)
	assert.Equal(t, 8., PowFloat(2, 3))
	assert.Equal(t, 1., Clamp(3, 0, 1))
	assert.Equal(t, 0., Clamp(-3, 0, 1))
	assert.True(t, IsNan(1, math.NaN()))
	assert.False(t, IsNan(1.))
	assert.False(t, IsNan())
	assert.Equal(t, 1, FirstNan([]float64{1, math.NaN()}))
	assert.Equal(t, -1, FirstNan([]float64{1, 2}))
	x, err := FloatArgs("pow", 2, []interface{}{2., 3.})
	assert.NoError(t, err)
	assert.Equal(t, []float64{2, 3}, x)
	_, err = FloatArgs("pow", 2, []interface{}{2.})
	assert.Error(t, err)
	_, err = FloatArgs("exp", 1, []interface{}{true})
	assert.ErrorContains(t, err, "bool")
}
