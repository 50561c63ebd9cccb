// Package flight defines the flight point state vector exchanged between
// all mission components, the trajectories built from it, and the target
// specifications that terminate segment simulations.
package flight

import (
	"fmt"

	"github.com/aerotools/missim/internal/atmos"
)

// Param names a physical quantity of a flight point. These are the keys
// used by target declarations and by the variable naming hierarchy.
type Param string

const (
	Altitude           Param = "altitude"
	TrueAirspeed       Param = "true_airspeed"
	EquivalentAirspeed Param = "equivalent_airspeed"
	Mach               Param = "mach"
	Mass               Param = "mass"
	Time               Param = "time"
	GroundDistance     Param = "ground_distance"
	ThrustRate         Param = "thrust_rate"
)

// SpeedParams are the mutually consistent speed representations. Exactly
// one of them drives a point at any instant; the others are derived from
// it through the ISA relations at the current altitude.
var SpeedParams = []Param{Mach, TrueAirspeed, EquivalentAirspeed}

// Point is a snapshot of aircraft state at one simulated instant. All
// values are SI. A Point is immutable once appended to a trajectory; new
// points are created by copy-and-modify from their predecessor.
type Point struct {
	Time           float64 // s
	Altitude       float64 // m
	GroundDistance float64 // m
	Mass           float64 // kg

	TrueAirspeed       float64 // m/s
	EquivalentAirspeed float64 // m/s
	Mach               float64

	ThrustRate    float64 // fraction of max thrust, 0..1
	Thrust        float64 // N
	Drag          float64 // N
	CL            float64
	CD            float64
	SlopeAngle    float64 // rad
	Acceleration  float64 // m/s^2
	EngineSetting string

	// Bookkeeping
	SegmentName string
	PhaseName   string
}

// Value returns the named quantity of the point.
func (p Point) Value(param Param) (float64, error) {
	switch param {
	case Altitude:
		return p.Altitude, nil
	case TrueAirspeed:
		return p.TrueAirspeed, nil
	case EquivalentAirspeed:
		return p.EquivalentAirspeed, nil
	case Mach:
		return p.Mach, nil
	case Mass:
		return p.Mass, nil
	case Time:
		return p.Time, nil
	case GroundDistance:
		return p.GroundDistance, nil
	case ThrustRate:
		return p.ThrustRate, nil
	default:
		return 0, fmt.Errorf("unknown flight point parameter %q", param)
	}
}

// SetValue sets the named quantity on the point.
func (p *Point) SetValue(param Param, v float64) error {
	switch param {
	case Altitude:
		p.Altitude = v
	case TrueAirspeed:
		p.TrueAirspeed = v
	case EquivalentAirspeed:
		p.EquivalentAirspeed = v
	case Mach:
		p.Mach = v
	case Mass:
		p.Mass = v
	case Time:
		p.Time = v
	case GroundDistance:
		p.GroundDistance = v
	case ThrustRate:
		p.ThrustRate = v
	default:
		return fmt.Errorf("unknown flight point parameter %q", param)
	}
	return nil
}

// SetSpeed installs value as the driving speed representation and derives
// the two others from it at the point's current altitude. It must be
// re-applied whenever altitude or the driving speed changes.
func (p *Point) SetSpeed(driver Param, value float64) error {
	switch driver {
	case Mach:
		p.Mach = value
		p.TrueAirspeed = atmos.TASFromMach(value, p.Altitude)
	case TrueAirspeed:
		p.TrueAirspeed = value
	case EquivalentAirspeed:
		p.TrueAirspeed = atmos.TASFromEAS(value, p.Altitude)
	default:
		return fmt.Errorf("%q is not a speed parameter", driver)
	}
	p.Mach = atmos.MachFromTAS(p.TrueAirspeed, p.Altitude)
	p.EquivalentAirspeed = atmos.EASFromTAS(p.TrueAirspeed, p.Altitude)
	return nil
}

// IsSpeedParam reports whether param is one of the speed representations.
func IsSpeedParam(param Param) bool {
	for _, s := range SpeedParams {
		if s == param {
			return true
		}
	}
	return false
}
