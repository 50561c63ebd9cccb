package segment

import (
	"errors"
	"math"
)

// invPhi is the inverse golden ratio used by the section searches.
var invPhi = (math.Sqrt(5) - 1) / 2

// goldenMax locates the argument maximizing f over [lo, hi] by golden
// section search, to within tol on the argument.
func goldenMax(f func(float64) float64, lo, hi, tol float64, maxIter int) (float64, error) {
	if hi < lo {
		lo, hi = hi, lo
	}
	a, b := lo, hi
	c := b - invPhi*(b-a)
	d := a + invPhi*(b-a)
	fc, fd := f(c), f(d)
	for i := 0; i < maxIter; i++ {
		if b-a <= tol {
			return (a + b) / 2, nil
		}
		if fc > fd {
			b, d, fd = d, c, fc
			c = b - invPhi*(b-a)
			fc = f(c)
		} else {
			a, c, fc = c, d, fd
			d = a + invPhi*(b-a)
			fd = f(d)
		}
	}
	return 0, errors.New("golden section search did not converge")
}

// goldenMin locates the argument minimizing f over [lo, hi].
func goldenMin(f func(float64) float64, lo, hi, tol float64, maxIter int) (float64, error) {
	return goldenMax(func(x float64) float64 { return -f(x) }, lo, hi, tol, maxIter)
}
