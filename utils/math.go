package utils

import (
	"fmt"
	"math"
)

func POW(x float64, pp int) (y float64) {
	var (
		p       = pp
		flipped bool
	)
	if pp > 8 || pp < -8 {
		goto MATHPOW
	}

	if p < 0 {
		p = -pp
		flipped = true
	}
	switch p {
	case 0:
		y = 1
	case 1:
		y = x
	case 2:
		y = x * x
	case 3:
		y = x * x * x
	case 4:
		y = x * x
		y = y * y
	case 5:
		y = x * x
		y = y * y * x
	case 6:
		y = x * x
		y = y * y * y
	case 7:
		y = x * x
		y = y * y * y * x
	case 8:
		y = x * x
		y = y * y * y * y
	}
	if flipped {
		y = 1. / y
	}
	return

MATHPOW:
	y = math.Pow(x, float64(p))
	return
}

// PowFloat uses the integer fast path when the exponent is integral
func PowFloat(x, p float64) float64 {
	if p == math.Trunc(p) && math.Abs(p) <= 8 {
		return POW(x, int(p))
	}
	return math.Pow(x, p)
}

func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// FloatArgs checks the count and type of the arguments passed to an
// expression function
func FloatArgs(name string, want int, args []interface{}) (x []float64, err error) {
	if len(args) != want {
		return nil, fmt.Errorf("got %d arguments for function '%s', but needs %d", len(args), name, want)
	}
	x = make([]float64, want)
	for i, a := range args {
		var ok bool
		if x[i], ok = a.(float64); !ok {
			return nil, fmt.Errorf("argument %d of function '%s' is %T, not a number", i+1, name, a)
		}
	}
	return
}
