// Package atmos implements the International Standard Atmosphere model and
// the airspeed interconversions (Mach, true airspeed, equivalent airspeed)
// the segment engine re-derives at every integration step.
//
// All inputs and outputs are SI: metres, seconds, kelvin, pascals, kg/m3.
package atmos

import "math"

// Constants
const (
	R           = 287.058 // Specific gas constant for dry air (J/(kg·K))
	Gamma       = 1.4     // Adiabatic index (heat capacity ratio)
	G           = 9.80665 // Gravity (m/s^2)
	T0          = 288.15  // Standard Sea Level Temperature (K)
	P0          = 101325  // Standard Sea Level Pressure (Pa)
	Rho0        = 1.225   // Standard Sea Level Density (kg/m^3)
	LapseRate   = 0.0065  // Temperature Lapse Rate (K/m) in Troposphere
	ZeroCelsius = 273.15  // 0°C in Kelvin

	// ISA Layer Boundaries
	TropopauseAltM    = 11000.0 // 11 km
	StratosphereTempK = 216.65  // Constant temperature in Stratosphere
	TropopausePress   = 22632.1 // Pressure at Tropopause (Pa)
)

// Temperature returns the ISA static temperature (K) at altitude (m).
func Temperature(altM float64) float64 {
	if altM < 0 {
		altM = 0
	}
	if altM <= TropopauseAltM {
		return T0 - LapseRate*altM
	}
	return StratosphereTempK
}

// Pressure returns the ISA static pressure (Pa) at altitude (m), supporting
// Troposphere and Stratosphere layers (valid to ~20 km).
func Pressure(altM float64) float64 {
	if altM < 0 {
		altM = 0
	}
	if altM <= TropopauseAltM {
		// P = P0 * (1 - L*h/T0)^(g/RL)
		exponent := G / (R * LapseRate)
		base := 1 - (LapseRate * altM / T0)
		return P0 * math.Pow(base, exponent)
	}
	// P = P_trop * exp( -g*(h - h_trop) / (R * T_strat) )
	relAlt := altM - TropopauseAltM
	exponent := -(G * relAlt) / (R * StratosphereTempK)
	return TropopausePress * math.Exp(exponent)
}

// Density returns the ISA air density (kg/m^3) at altitude (m).
func Density(altM float64) float64 {
	return Pressure(altM) / (R * Temperature(altM))
}

// SoundSpeed returns the speed of sound (m/s) at altitude (m).
func SoundSpeed(altM float64) float64 {
	return math.Sqrt(Gamma * R * Temperature(altM))
}

// MachFromTAS returns the Mach number for a true airspeed (m/s) at
// altitude (m).
func MachFromTAS(tas, altM float64) float64 {
	a := SoundSpeed(altM)
	if a == 0 {
		return 0
	}
	return tas / a
}

// TASFromMach returns the true airspeed (m/s) for a Mach number at
// altitude (m).
func TASFromMach(mach, altM float64) float64 {
	return mach * SoundSpeed(altM)
}

// EASFromTAS returns the equivalent airspeed (m/s) for a true airspeed
// (m/s) at altitude (m). EAS = TAS * sqrt(rho/rho0).
func EASFromTAS(tas, altM float64) float64 {
	return tas * math.Sqrt(Density(altM)/Rho0)
}

// TASFromEAS returns the true airspeed (m/s) for an equivalent airspeed
// (m/s) at altitude (m).
func TASFromEAS(eas, altM float64) float64 {
	return eas / math.Sqrt(Density(altM)/Rho0)
}

// DynamicPressure returns 0.5*rho*V^2 (Pa) for a true airspeed (m/s) at
// altitude (m).
func DynamicPressure(tas, altM float64) float64 {
	return 0.5 * Density(altM) * tas * tas
}
