package rheology

import (
	"math"

	"gonum.org/v1/gonum/integrate"

	"github.com/notargets/goice/config"
	"github.com/notargets/goice/thermo"
	"github.com/notargets/goice/types"
	"github.com/notargets/goice/utils"
)

// Adapter feeds converted thermodynamic state to a flow law. The zero value
// and a nil *Adapter are unbound, every call then fails with ErrUnconfigured.
type Adapter struct {
	ec         *thermo.EnthalpyConverter
	law        FlowLaw
	c          config.Constants
	betaCCGrad float64 // K m-1
}

func NewAdapter(ec *thermo.EnthalpyConverter, law FlowLaw) (a *Adapter) {
	a = &Adapter{ec: ec, law: law}
	if ec != nil {
		a.c = ec.Constants()
		a.betaCCGrad = a.c.BetaCC * a.c.IceDensity * a.c.EarthGravity
	}
	return
}

func (a *Adapter) check(op string) error {
	if a == nil || a.ec == nil || a.law == nil {
		return &types.DomainError{Op: op, Err: types.ErrUnconfigured}
	}
	return nil
}

func (a *Adapter) Law() FlowLaw {
	if a == nil {
		return nil
	}
	return a.law
}

// Flow is the strain rate factor E A(T_pa, omega) stress^(n-1)
func (a *Adapter) Flow(stress, H, p, enhancement float64) (f float64, err error) {
	if err = a.check("Flow"); err != nil {
		return
	}
	var (
		Tpa, omega float64
	)
	if Tpa, omega, err = a.state(H, p); err != nil {
		return
	}
	f = enhancement * a.law.Softness(Tpa, omega) * utils.PowFloat(stress, a.law.Exponent()-1)
	return
}

func (a *Adapter) state(H, p float64) (Tpa, omega float64, err error) {
	if Tpa, err = a.ec.PressureAdjustedTemperature(H, p); err != nil {
		return
	}
	omega, err = a.ec.WaterFraction(H, p)
	return
}

// SecondInvariant of the horizontal strain rate tensor, with the vertical
// shear terms neglected
func (a *Adapter) SecondInvariant(ux, uy, vx, vy float64) float64 {
	return 0.5 * (ux*ux + vy*vy + (ux+vy)*(ux+vy) + 0.5*(uy+vx)*(uy+vx))
}

func (a *Adapter) regularizedFactor(ux, uy, vx, vy float64) float64 {
	var (
		n     = a.law.Exponent()
		alpha = a.SecondInvariant(ux, uy, vx, vy)
	)
	return 0.5 * math.Pow(a.c.SchoofRegularization+alpha, (1-n)/(2*n))
}

// trapezoid integrates f(k) over zlevels[0..kBelowH]
func trapezoid(kBelowH int, zlevels []float64, f func(k int) (float64, error)) (B float64, err error) {
	if kBelowH <= 0 {
		return
	}
	vals := make([]float64, kBelowH+1)
	for k := range vals {
		if vals[k], err = f(k); err != nil {
			return
		}
	}
	B = integrate.Trapezoidal(zlevels[:kBelowH+1], vals)
	return
}

// EffectiveViscosityColumn returns the product of effective viscosity and
// thickness, nu H. T1 and T2 are absolute temperature columns on the two
// sides of a staggered point.
func (a *Adapter) EffectiveViscosityColumn(H float64, kBelowH int, zlevels []float64,
	ux, uy, vx, vy float64, T1, T2 []float64) (nuH float64, err error) {
	if err = a.check("EffectiveViscosityColumn"); err != nil {
		return
	}
	var B float64
	B, err = trapezoid(kBelowH, zlevels, func(k int) (float64, error) {
		Tpa := 0.5*(T1[k]+T2[k]) + a.betaCCGrad*(H-zlevels[k])
		return a.law.Hardness(Tpa, 0), nil
	})
	if err != nil {
		return
	}
	nuH = B * a.regularizedFactor(ux, uy, vx, vy)
	return
}

// EffectiveViscosityColumnEnthalpy is EffectiveViscosityColumn for enthalpy
// columns E1 and E2
func (a *Adapter) EffectiveViscosityColumnEnthalpy(H float64, kBelowH int, zlevels []float64,
	ux, uy, vx, vy float64, E1, E2 []float64) (nuH float64, err error) {
	if err = a.check("EffectiveViscosityColumnEnthalpy"); err != nil {
		return
	}
	var B float64
	B, err = trapezoid(kBelowH, zlevels, func(k int) (hard float64, err error) {
		var (
			p          = a.ec.PressureFromDepth(H - zlevels[k])
			Tpa, omega float64
		)
		if Tpa, omega, err = a.state(0.5*(E1[k]+E2[k]), p); err != nil {
			return
		}
		hard = a.law.Hardness(Tpa, omega)
		return
	})
	if err != nil {
		return
	}
	nuH = B * a.regularizedFactor(ux, uy, vx, vy)
	return
}

// AveragedSoftness is the vertical mean of the softness over the ice column
func (a *Adapter) AveragedSoftness(H float64, kBelowH int, zlevels []float64, E []float64) (A float64, err error) {
	if err = a.check("AveragedSoftness"); err != nil {
		return
	}
	if kBelowH <= 0 || H <= 0 {
		return
	}
	var sum float64
	sum, err = trapezoid(kBelowH, zlevels, func(k int) (soft float64, err error) {
		var Tpa, omega float64
		if Tpa, omega, err = a.state(E[k], a.ec.PressureFromDepth(H-zlevels[k])); err != nil {
			return
		}
		soft = a.law.Softness(Tpa, omega)
		return
	})
	if err != nil {
		return
	}
	A = sum / zlevels[kBelowH]
	return
}

// Softness at a single level, used for per-level SIA integrals
func (a *Adapter) Softness(H, p float64) (A float64, err error) {
	if err = a.check("Softness"); err != nil {
		return
	}
	var Tpa, omega float64
	if Tpa, omega, err = a.state(H, p); err != nil {
		return
	}
	A = a.law.Softness(Tpa, omega)
	return
}
