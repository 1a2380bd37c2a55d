package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypes(t *testing.T) {
	{ // Directions walk the star stencil and come back
		for _, d := range Directions {
			di, dj := d.Offset()
			odi, odj := d.Opposite().Offset()
			assert.Equal(t, 0, di+odi, d.Print())
			assert.Equal(t, 0, dj+odj, d.Print())
			assert.Equal(t, d, d.Opposite().Opposite())
		}
		var s StarStencil[float64]
		for n, d := range Directions {
			s.Put(d, float64(n+1))
		}
		assert.Equal(t, 1., s.East)
		assert.Equal(t, 2., s.North)
		assert.Equal(t, 3., s.Get(West))
		assert.Equal(t, 4., s.Get(South))
	}
	{ // Mask flags parse and round trip through field storage
		mf, err := NewMaskFlag("No_Model")
		require.NoError(t, err)
		assert.Equal(t, Mask_Held, mf)
		assert.Equal(t, Mask_Held, MaskFromValue(mf.Value()))
		assert.Equal(t, Mask_Modeled, MaskFromValue(Mask_Modeled.Value()))
		_, err = NewMaskFlag("ocean")
		assert.Error(t, err)
	}
	{
		assert.Equal(t, "model_state", Field_State.Intent())
		assert.Equal(t, Field_Internal, NewFieldKind("internal"))
		assert.Equal(t, Field_Diagnostic, NewFieldKind("unknown"))
	}
}

func TestErrors(t *testing.T) {
	pv := NewPhysicalViolation("enthalpy step", ErrLiquidWater,
		map[string]float64{"H": 1.2e6, "p": 0})
	located := pv.At(3, 4, 5)
	located.Step = 7
	err := fmt.Errorf("timestep: %w", located)
	assert.True(t, errors.Is(err, ErrLiquidWater))
	assert.True(t, IsPhysicalViolation(err))
	assert.False(t, IsConfigurationError(err))
	assert.Contains(t, err.Error(), "(i,j,k)=(3,4,5)")
	assert.Contains(t, err.Error(), "step 7")
	assert.Equal(t, -1, pv.I) // At copies

	ce := NewConfigurationError("ice_density", "must be positive, have %g", -1.)
	assert.True(t, IsConfigurationError(fmt.Errorf("setup: %w", ce)))
	assert.Contains(t, ce.Error(), "ice_density")

	de := &DomainError{Op: "interpolate", X: 1, Y: 2, Err: ErrOutOfDomain}
	assert.True(t, IsDomainError(de))
	assert.True(t, errors.Is(de, ErrOutOfDomain))
}
