package polar

import (
	"math"
	"testing"
)

// parabolic builds a sampled CD = cd0 + k*CL^2 polar over [0, maxCL].
func parabolic(cd0, k, maxCL float64, n int) ([]float64, []float64) {
	cl := make([]float64, n+1)
	cd := make([]float64, n+1)
	for i := 0; i <= n; i++ {
		c := float64(i) * maxCL / float64(n)
		cl[i] = c
		cd[i] = cd0 + k*c*c
	}
	return cl, cd
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name string
		cl   []float64
		cd   []float64
	}{
		{"mismatched lengths", []float64{0, 0.5, 1}, []float64{0.02, 0.03}},
		{"too few points", []float64{0.5}, []float64{0.03}},
		{"non increasing CL", []float64{0, 0.5, 0.5}, []float64{0.02, 0.03, 0.04}},
		{"decreasing CL", []float64{0, 0.6, 0.4}, []float64{0.02, 0.03, 0.04}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cl, tt.cd); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestDragCoefficientInterpolates(t *testing.T) {
	p, err := New([]float64{0, 1}, []float64{0.02, 0.08})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := p.DragCoefficient(0.5); math.Abs(got-0.05) > 1e-12 {
		t.Errorf("DragCoefficient(0.5) = %v, want 0.05", got)
	}
	// Endpoints are exact.
	if got := p.DragCoefficient(0); got != 0.02 {
		t.Errorf("DragCoefficient(0) = %v, want 0.02", got)
	}
	// Out-of-range CL extrapolates from the nearest interval.
	if got := p.DragCoefficient(1.5); math.Abs(got-0.11) > 1e-12 {
		t.Errorf("DragCoefficient(1.5) = %v, want 0.11", got)
	}
}

func TestOptimalCL(t *testing.T) {
	// For CD = cd0 + k*CL^2, L/D peaks at CL = sqrt(cd0/k).
	cd0, k := 0.02, 0.05
	cl, cd := parabolic(cd0, k, 1.2, 60)
	p, err := New(cl, cd)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	want := math.Sqrt(cd0 / k)
	if got := p.OptimalCL(); math.Abs(got-want) > 0.02 {
		t.Errorf("OptimalCL = %v, want ~%v", got, want)
	}
	wantRatio := want / (cd0 + k*want*want)
	if got := p.MaxLiftDrag(); math.Abs(got-wantRatio) > 0.1 {
		t.Errorf("MaxLiftDrag = %v, want ~%v", got, wantRatio)
	}
}

func TestFromProvider(t *testing.T) {
	vp := MapVectorProvider{
		"data:aero:polar:CL": {0, 0.5, 1.0},
		"data:aero:polar:CD": {0.02, 0.03, 0.07},
	}
	p, err := FromProvider("data:aero:polar", vp)
	if err != nil {
		t.Fatalf("FromProvider: %v", err)
	}
	if got := p.DragCoefficient(0.5); got != 0.03 {
		t.Errorf("DragCoefficient(0.5) = %v, want 0.03", got)
	}
}

func TestFromProviderMissingVector(t *testing.T) {
	vp := MapVectorProvider{"data:aero:polar:CL": {0, 1}}
	if _, err := FromProvider("data:aero:polar", vp); err == nil {
		t.Fatal("expected error for missing CD vector")
	}
	if _, err := FromProvider("data:other", vp); err == nil {
		t.Fatal("expected error for missing CL vector")
	}
}
