// Package polar implements the aerodynamic drag polar: the CL -> CD
// association the segment engine queries at every step.
package polar

import (
	"fmt"
	"math"

	"github.com/aerotools/missim/internal/simerr"
)

// VectorProvider supplies vector-valued external variables, used when a
// polar is declared through two external names sharing a common prefix
// with suffixes ":CL" and ":CD".
type VectorProvider interface {
	Vector(name string) ([]float64, bool)
}

// MapVectorProvider is a VectorProvider backed by a map.
type MapVectorProvider map[string][]float64

func (m MapVectorProvider) Vector(name string) ([]float64, bool) {
	v, ok := m[name]
	return v, ok
}

// Polar associates lift coefficients to drag coefficients by linear
// interpolation over its definition vectors.
type Polar struct {
	cl []float64
	cd []float64
}

// New builds a polar from explicit CL/CD vectors. Vectors must be the same
// length, at least two points, with strictly increasing CL.
func New(cl, cd []float64) (*Polar, error) {
	if len(cl) != len(cd) {
		return nil, simerr.Configf("polar",
			"CL and CD vectors have mismatched lengths (%d vs %d)", len(cl), len(cd))
	}
	if len(cl) < 2 {
		return nil, simerr.Configf("polar", "polar needs at least two points, got %d", len(cl))
	}
	for i := 1; i < len(cl); i++ {
		if cl[i] <= cl[i-1] {
			return nil, simerr.Configf("polar",
				"CL vector is not strictly increasing at index %d (%g after %g)", i, cl[i], cl[i-1])
		}
	}
	p := &Polar{
		cl: append([]float64(nil), cl...),
		cd: append([]float64(nil), cd...),
	}
	return p, nil
}

// FromProvider builds a polar from the external variables "<prefix>:CL"
// and "<prefix>:CD".
func FromProvider(prefix string, vp VectorProvider) (*Polar, error) {
	clName := prefix + ":CL"
	cdName := prefix + ":CD"
	cl, ok := vp.Vector(clName)
	if !ok {
		return nil, simerr.Configf("polar", "external vector %q is not available", clName)
	}
	cd, ok := vp.Vector(cdName)
	if !ok {
		return nil, simerr.Configf("polar", "external vector %q is not available", cdName)
	}
	return New(cl, cd)
}

// DragCoefficient returns CD for the given CL, linearly interpolated.
// CL values outside the definition range extrapolate from the nearest
// interval.
func (p *Polar) DragCoefficient(cl float64) float64 {
	i := 1
	for i < len(p.cl)-1 && p.cl[i] < cl {
		i++
	}
	x0, x1 := p.cl[i-1], p.cl[i]
	y0, y1 := p.cd[i-1], p.cd[i]
	return y0 + (cl-x0)*(y1-y0)/(x1-x0)
}

// OptimalCL returns the CL maximizing lift-to-drag ratio over the polar's
// definition range, located by scanning the interpolated curve.
func (p *Polar) OptimalCL() float64 {
	bestCL, bestRatio := p.cl[0], -math.MaxFloat64
	n := 200
	lo, hi := p.cl[0], p.cl[len(p.cl)-1]
	for i := 0; i <= n; i++ {
		cl := lo + float64(i)*(hi-lo)/float64(n)
		cd := p.DragCoefficient(cl)
		if cd <= 0 {
			continue
		}
		if r := cl / cd; r > bestRatio {
			bestRatio = r
			bestCL = cl
		}
	}
	return bestCL
}

// MaxLiftDrag returns the maximum lift-to-drag ratio of the polar.
func (p *Polar) MaxLiftDrag() float64 {
	cl := p.OptimalCL()
	return cl / p.DragCoefficient(cl)
}

func (p *Polar) String() string {
	return fmt.Sprintf("polar[%d points, CL %.3g..%.3g]", len(p.cl), p.cl[0], p.cl[len(p.cl)-1])
}
