package measure

import (
	"math"
	"testing"
)

func TestToSI(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		unit  string
		want  float64
		dim   Dimension
	}{
		{"metres pass through", 1500, "m", 1500, Length},
		{"feet to metres", 100, "ft", 30.48, Length},
		{"nautical miles", 1, "NM", 1852, Length},
		{"nmi alias", 2, "nmi", 3704, Length},
		{"knots", 250, "kn", 128.611, Speed},
		{"kt alias", 250, "kt", 128.611, Speed},
		{"feet per minute", 600, "ft/min", 3.048, Speed},
		{"tonnes", 2, "t", 2000, Mass},
		{"pounds", 1000, "lb", 453.59237, Mass},
		{"hours", 1.5, "h", 5400, Duration},
		{"minutes", 3, "min", 180, Duration},
		{"square feet", 1, "ft**2", 0.09290304, Area},
		{"kg per hour", 3600, "kg/h", 1, MassFlow},
		{"no unit is SI", 42, "", 42, Dimensionless},
		{"dash is dimensionless", 0.95, "-", 0.95, Dimensionless},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, dim, err := ToSI(tt.value, tt.unit)
			if err != nil {
				t.Fatalf("ToSI(%v, %q): %v", tt.value, tt.unit, err)
			}
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("ToSI(%v, %q) = %v, want %v", tt.value, tt.unit, got, tt.want)
			}
			if dim != tt.dim {
				t.Errorf("ToSI(%v, %q) dimension = %v, want %v", tt.value, tt.unit, dim, tt.dim)
			}
		})
	}
}

func TestToSIUnknownUnit(t *testing.T) {
	if _, _, err := ToSI(1, "furlong"); err == nil {
		t.Fatal("expected error for unknown unit")
	}
}

func TestCompatible(t *testing.T) {
	tests := []struct {
		unit string
		dim  Dimension
		want bool
	}{
		{"ft", Length, true},
		{"ft", Speed, false},
		{"kn", Speed, true},
		{"kn", Length, false},
		{"kg", Mass, true},
		{"s", Duration, true},
		{"", Length, true},  // no unit is accepted anywhere
		{"", Speed, true},
		{"-", Mass, true},
		{"furlong", Length, false},
	}
	for _, tt := range tests {
		if got := Compatible(tt.unit, tt.dim); got != tt.want {
			t.Errorf("Compatible(%q, %v) = %v, want %v", tt.unit, tt.dim, got, tt.want)
		}
	}
}

func TestDimensionOf(t *testing.T) {
	dim, err := DimensionOf("NM")
	if err != nil {
		t.Fatalf("DimensionOf: %v", err)
	}
	if dim != Length {
		t.Errorf("DimensionOf(NM) = %v, want Length", dim)
	}
	if _, err := DimensionOf("parsec"); err == nil {
		t.Fatal("expected error for unknown unit")
	}
}
