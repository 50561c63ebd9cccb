// Package segment implements the mission simulation engine proper: one
// maneuver family with variants per segment kind, each advancing a flight
// point through a stepping loop until its target specification is
// satisfied, landing exactly on target by interpolation between the last
// two computed steps.
package segment

import (
	"math"

	"github.com/aerotools/missim/internal/atmos"
	"github.com/aerotools/missim/internal/flight"
	"github.com/aerotools/missim/internal/polar"
	"github.com/aerotools/missim/internal/propulsion"
	"github.com/aerotools/missim/internal/simerr"
)

// Segment is one atomic maneuver simulation. Compute produces a monotonic
// trajectory beginning at start (inclusive) and ending exactly at the
// resolved target.
type Segment interface {
	Name() string
	Compute(start flight.Point) (flight.Trajectory, error)
}

// Kind tags the segment variants understood by the factory.
const (
	KindSpeedChange    = "speed_change"
	KindAltitudeChange = "altitude_change"
	KindCruise         = "cruise"
	KindOptimalCruise  = "optimal_cruise"
	KindHolding        = "holding"
	KindTaxi           = "taxi"
	KindTransition     = "transition"
)

// Tuning groups the internal numeric knobs of the stepping loops. The
// observable contract is only endpoint exactness; these control cost.
type Tuning struct {
	TimeStep      float64 // s, time-stepped segments
	TaxiTimeStep  float64 // s, taxi runs much coarser
	Tolerance     float64 // relative target-exactness tolerance
	MaxIterations int     // per stepping loop; exceeding it is a failure
	MaxAltitude   float64 // m, upper bracket for altitude searches
}

// DefaultTuning returns the tuning used when the configuration does not
// override it.
func DefaultTuning() Tuning {
	return Tuning{
		TimeStep:      2.0,
		TaxiTimeStep:  60.0,
		Tolerance:     1e-7,
		MaxIterations: 200000,
		MaxAltitude:   13716, // 45,000 ft
	}
}

// Config carries everything a segment variant needs beyond its start
// point. Scalar fields arrive already resolved to SI by the variable
// resolver.
type Config struct {
	Name          string
	PhaseName     string
	Target        *flight.Target
	Polar         *polar.Polar
	Propulsion    propulsion.Model
	EngineSetting string
	ThrustRate    float64
	ReferenceArea float64 // m^2
	Tuning        Tuning

	// Segment-specific knobs.
	TrueAirspeed     float64 // taxi: imposed speed
	MassRatio        float64 // transition: end mass = start mass * ratio
	ReserveMassRatio float64 // transition: post-segment reserve ratio
	OptimalAltitude  bool    // altitude_change / cruise: optimal flight level
	MaximizeOverTime bool
}

// base carries the shared state and helpers of the stepping variants.
type base struct {
	Config
}

func (b *base) Name() string { return b.Config.Name }

func (b *base) tuning() Tuning {
	t := b.Tuning
	d := DefaultTuning()
	if t.TimeStep <= 0 {
		t.TimeStep = d.TimeStep
	}
	if t.TaxiTimeStep <= 0 {
		t.TaxiTimeStep = d.TaxiTimeStep
	}
	if t.Tolerance <= 0 {
		t.Tolerance = d.Tolerance
	}
	if t.MaxIterations <= 0 {
		t.MaxIterations = d.MaxIterations
	}
	if t.MaxAltitude <= 0 {
		t.MaxAltitude = d.MaxAltitude
	}
	return t
}

// validateCommon performs the eager checks shared by all variants.
func (b *base) validateCommon(needsPolar, needsPropulsion bool) error {
	if needsPolar && b.Polar == nil {
		return simerr.Configf(b.Config.Name, "segment requires a polar")
	}
	if needsPropulsion && b.Propulsion == nil {
		return simerr.Configf(b.Config.Name, "segment requires a propulsion model")
	}
	if b.Propulsion != nil {
		if v, ok := b.Propulsion.(propulsion.SettingValidator); ok {
			if !v.KnownSetting(b.EngineSetting) {
				return simerr.Configf(b.Config.Name, "unknown engine setting %q", b.EngineSetting)
			}
		}
	}
	if needsPolar && b.ReferenceArea <= 0 {
		return simerr.Configf(b.Config.Name, "reference area must be positive, got %g", b.ReferenceArea)
	}
	return nil
}

// aero fills CL, CD and Drag on the point from current mass, speed and
// altitude, assuming lift balances weight along the slope.
func (b *base) aero(pt *flight.Point) {
	q := atmos.DynamicPressure(pt.TrueAirspeed, pt.Altitude)
	if q <= 0 || b.Polar == nil {
		pt.CL, pt.CD, pt.Drag = 0, 0, 0
		return
	}
	pt.CL = pt.Mass * atmos.G * math.Cos(pt.SlopeAngle) / (q * b.ReferenceArea)
	pt.CD = b.Polar.DragCoefficient(pt.CL)
	pt.Drag = q * b.ReferenceArea * pt.CD
}

// TargetDistance returns the segment's declared relative ground_distance
// target, if any. Routes use it to size their remainder-absorbing part.
func (b *base) TargetDistance() (float64, bool) {
	if b.Target == nil {
		return 0, false
	}
	if e, ok := b.Target.Get(flight.GroundDistance); ok && e.Mode == flight.Relative {
		return e.Value, true
	}
	return 0, false
}

// stamp applies the segment and phase bookkeeping names to a point.
func (b *base) stamp(pt *flight.Point) {
	pt.SegmentName = b.Config.Name
	pt.PhaseName = b.PhaseName
}

// liftDragAt evaluates the lift-to-drag ratio at a candidate altitude for
// the given mass, holding the point's driving speed law. Used by the
// optimal-altitude searches; it never mutates shared state.
func (b *base) liftDragAt(pt flight.Point, speedDriver flight.Param, altM float64) float64 {
	cand := pt
	cand.Altitude = altM
	driverVal, err := pt.Value(speedDriver)
	if err != nil {
		return 0
	}
	if err := cand.SetSpeed(speedDriver, driverVal); err != nil {
		return 0
	}
	q := atmos.DynamicPressure(cand.TrueAirspeed, cand.Altitude)
	if q <= 0 {
		return 0
	}
	cl := cand.Mass * atmos.G / (q * b.ReferenceArea)
	cd := b.Polar.DragCoefficient(cl)
	if cd <= 0 {
		return 0
	}
	return cl / cd
}

// optimalAltitude returns the altitude in [lo, hi] maximizing lift-to-drag
// ratio for the point's current mass and speed law.
func (b *base) optimalAltitude(pt flight.Point, speedDriver flight.Param, lo, hi float64) (float64, error) {
	alt, err := goldenMax(func(h float64) float64 {
		return b.liftDragAt(pt, speedDriver, h)
	}, lo, hi, 0.1, 200)
	if err != nil {
		return 0, simerr.Divergef(b.Config.Name, "optimal altitude search: %v", err)
	}
	return alt, nil
}

// speedDriver picks the speed representation driving this segment: a
// target-declared speed first, then a frozen one, then true airspeed.
func speedDriver(target *flight.Target) flight.Param {
	if target != nil {
		for _, s := range flight.SpeedParams {
			if e, ok := target.Get(s); ok && e.Mode != flight.Constant {
				return s
			}
		}
		if s, ok := target.ConstrainedSpeed(); ok {
			return s
		}
	}
	return flight.TrueAirspeed
}

// New constructs a segment variant from its kind tag. The returned
// segment has already passed all eager configuration checks.
func New(kind string, cfg Config) (Segment, error) {
	switch kind {
	case KindSpeedChange:
		return newSpeedChange(cfg)
	case KindAltitudeChange:
		return newAltitudeChange(cfg)
	case KindCruise:
		return newCruise(cfg)
	case KindOptimalCruise:
		return newOptimalCruise(cfg)
	case KindHolding:
		return newHolding(cfg)
	case KindTaxi:
		return newTaxi(cfg)
	case KindTransition:
		return newTransition(cfg)
	default:
		return nil, simerr.Configf(cfg.Name, "unknown segment kind %q", kind)
	}
}
