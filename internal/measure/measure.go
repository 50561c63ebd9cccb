// Package measure normalizes declared physical values to the SI basis used
// by the whole computation core. Declarations may carry units such as "ft",
// "NM" or "kn"; everything downstream of resolution works in metres,
// seconds, kilograms and derived SI units only.
package measure

import (
	"fmt"
	"math"
)

// Dimension identifies the physical dimension of a parameter, used to
// reject declarations whose unit cannot be converted to the parameter's
// canonical SI unit.
type Dimension int

const (
	Dimensionless Dimension = iota
	Length
	Speed
	Mass
	Duration
	Area
	MassFlow
)

func (d Dimension) String() string {
	switch d {
	case Dimensionless:
		return "dimensionless"
	case Length:
		return "length"
	case Speed:
		return "speed"
	case Mass:
		return "mass"
	case Duration:
		return "duration"
	case Area:
		return "area"
	case MassFlow:
		return "mass flow"
	default:
		return "unknown"
	}
}

// unitDef maps a unit symbol to its dimension and the factor that converts
// a value in that unit to SI.
type unitDef struct {
	dim    Dimension
	factor float64
}

// Conversion factors follow the standard aviation definitions (1 kn =
// 0.514444 m/s, 1 NM = 1852 m, 1 ft = 0.3048 m).
var units = map[string]unitDef{
	"":       {Dimensionless, 1},
	"-":      {Dimensionless, 1},
	"m":      {Length, 1},
	"km":     {Length, 1000},
	"ft":     {Length, 0.3048},
	"NM":     {Length, 1852},
	"nmi":    {Length, 1852},
	"m/s":    {Speed, 1},
	"km/h":   {Speed, 1000.0 / 3600.0},
	"kn":     {Speed, 0.514444},
	"kt":     {Speed, 0.514444},
	"ft/min": {Speed, 0.3048 / 60.0},
	"ft/s":   {Speed, 0.3048},
	"kg":     {Mass, 1},
	"t":      {Mass, 1000},
	"lb":     {Mass, 0.45359237},
	"s":      {Duration, 1},
	"min":    {Duration, 60},
	"h":      {Duration, 3600},
	"m**2":   {Area, 1},
	"m2":     {Area, 1},
	"ft**2":  {Area, 0.3048 * 0.3048},
	"kg/s":   {MassFlow, 1},
	"kg/h":   {MassFlow, 1.0 / 3600.0},
}

// ToSI converts value from the given unit to SI and reports the unit's
// dimension. An unknown unit is an error.
func ToSI(value float64, unit string) (float64, Dimension, error) {
	def, ok := units[unit]
	if !ok {
		return math.NaN(), Dimensionless, fmt.Errorf("unknown unit %q", unit)
	}
	return value * def.factor, def.dim, nil
}

// DimensionOf returns the dimension of a unit symbol.
func DimensionOf(unit string) (Dimension, error) {
	def, ok := units[unit]
	if !ok {
		return Dimensionless, fmt.Errorf("unknown unit %q", unit)
	}
	return def.dim, nil
}

// Compatible reports whether a declared unit can feed a parameter of the
// given dimension. A dimensionless declaration (no unit) is accepted for
// any parameter: it is taken as already being in the canonical SI unit.
func Compatible(unit string, dim Dimension) bool {
	def, ok := units[unit]
	if !ok {
		return false
	}
	if def.dim == Dimensionless {
		return true
	}
	return def.dim == dim
}
