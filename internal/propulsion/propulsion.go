// Package propulsion defines the propulsion collaborator contract and a
// reference turbofan implementation. The segment engine only ever talks to
// the Model interface; real engine decks plug in behind it.
package propulsion

import (
	"math"

	"github.com/aerotools/missim/internal/atmos"
	"github.com/aerotools/missim/internal/flight"
	"github.com/aerotools/missim/internal/simerr"
)

// Model computes thrust and fuel flow for a flight condition. Thrust must
// scale linearly with thrustRate so that regulated-thrust segments can
// derive the rate balancing a required thrust from a single evaluation at
// full rate.
type Model interface {
	// ThrustAndFuelFlow returns thrust (N) and fuel flow (kg/s) at the
	// given point for an engine setting and thrust rate in [0, 1].
	ThrustAndFuelFlow(pt flight.Point, engineSetting string, thrustRate float64) (thrust, fuelFlow float64, err error)
}

// Engine settings understood by the reference model. A model is free to
// ignore the setting; the reference turbofan uses it as an SFC proxy.
const (
	SettingTakeoff = "takeoff"
	SettingClimb   = "climb"
	SettingCruise  = "cruise"
	SettingIdle    = "idle"
)

// sfcFactor maps an engine setting to a multiplier on the model's cruise
// specific fuel consumption.
var sfcFactor = map[string]float64{
	SettingTakeoff: 1.10,
	SettingClimb:   1.05,
	SettingCruise:  1.00,
	SettingIdle:    1.60,
	"":             1.00,
}

// Turbofan is a rubber-engine model: sea-level static thrust lapsed with
// density ratio and Mach, and thrust-proportional fuel flow.
type Turbofan struct {
	MaxThrust float64 // sea-level static thrust, all engines (N)
	CruiseSFC float64 // thrust specific fuel consumption (kg/N/s)
}

// ThrustAndFuelFlow implements Model.
func (t *Turbofan) ThrustAndFuelFlow(pt flight.Point, engineSetting string, thrustRate float64) (float64, float64, error) {
	factor, ok := sfcFactor[engineSetting]
	if !ok {
		return 0, 0, simerr.Configf("propulsion", "unknown engine setting %q", engineSetting)
	}
	if thrustRate < 0 {
		thrustRate = 0
	}
	if thrustRate > 1 {
		thrustRate = 1
	}

	// Altitude lapse: available thrust falls with the density ratio.
	// The Mach term reflects ram drag on the fan.
	sigma := atmos.Density(pt.Altitude) / atmos.Rho0
	lapse := math.Pow(sigma, 0.75) * (1 - 0.25*pt.Mach)
	if lapse < 0.05 {
		lapse = 0.05
	}

	thrust := t.MaxThrust * lapse * thrustRate
	fuelFlow := t.CruiseSFC * factor * thrust
	return thrust, fuelFlow, nil
}

// ValidSetting reports whether the engine setting is known to the
// reference model. Used by segment constructors to fail eagerly.
func ValidSetting(setting string) bool {
	_, ok := sfcFactor[setting]
	return ok
}

// SettingValidator is implemented by models that restrict engine settings
// to a known set. Segment constructors use it to reject unknown settings
// before any simulation step.
type SettingValidator interface {
	KnownSetting(setting string) bool
}

// KnownSetting implements SettingValidator.
func (t *Turbofan) KnownSetting(setting string) bool {
	return ValidSetting(setting)
}
