package segment

import (
	"math"

	"github.com/aerotools/missim/internal/atmos"
	"github.com/aerotools/missim/internal/flight"
	"github.com/aerotools/missim/internal/simerr"
)

// maxSlope caps the quasi-steady climb angle to keep the small-angle
// integration well behaved.
const maxSlope = 0.26 // rad, ~15 degrees

// altitudeChange climbs or descends at constant thrust rate, holding one
// speed representation constant. It terminates on a target altitude, on a
// declared speed crossing (e.g. climb at constant EAS until a target Mach
// is reached), or on the optimal altitude maximizing lift-to-drag at the
// current mass, re-solved at every mass-updated step.
type altitudeChange struct {
	base
	held        flight.Param // speed representation held constant
	speedTarget flight.Param // terminating speed parameter, "" if none
	hasAltitude bool
}

func newAltitudeChange(cfg Config) (Segment, error) {
	s := &altitudeChange{base: base{Config: cfg}}
	if err := s.validateCommon(true, true); err != nil {
		return nil, err
	}
	if cfg.Target == nil {
		cfg.Target = flight.NewTarget()
		s.Target = cfg.Target
	}

	if held, ok := cfg.Target.ConstrainedSpeed(); ok {
		s.held = held
	} else {
		// With no speed pinned, the segment holds equivalent airspeed, the
		// usual law for climb profiles.
		s.held = flight.EquivalentAirspeed
	}

	for _, p := range flight.SpeedParams {
		if e, ok := cfg.Target.Get(p); ok && e.Mode != flight.Constant {
			if s.speedTarget != "" {
				return nil, simerr.Configf(cfg.Name,
					"altitude_change accepts at most one target speed parameter")
			}
			if p == s.held {
				return nil, simerr.Configf(cfg.Name,
					"%s cannot be both held constant and targeted", p)
			}
			s.speedTarget = p
		}
	}

	if e, ok := cfg.Target.Get(flight.Altitude); ok {
		if e.Mode == flight.Constant {
			return nil, simerr.Configf(cfg.Name,
				"altitude_change cannot hold altitude constant")
		}
		s.hasAltitude = true
	}
	if !s.hasAltitude && s.speedTarget == "" && !cfg.OptimalAltitude {
		return nil, simerr.Configf(cfg.Name,
			"altitude_change target leaves no terminating parameter")
	}
	return s, nil
}

// targetAltitude returns the altitude the segment is currently steering
// to: the declared target, or the optimal altitude for the point's mass.
func (s *altitudeChange) targetAltitude(pt, start flight.Point, tun Tuning) (float64, bool, error) {
	if s.OptimalAltitude {
		alt, err := s.optimalAltitude(pt, s.held, 0, tun.MaxAltitude)
		if err != nil {
			return 0, false, err
		}
		return alt, true, nil
	}
	if s.hasAltitude {
		eff, err := s.Target.Effective(flight.Altitude, start)
		if err != nil {
			return 0, false, err
		}
		return eff, true, nil
	}
	return 0, false, nil
}

func (s *altitudeChange) Compute(start flight.Point) (flight.Trajectory, error) {
	tun := s.tuning()

	pt := start
	s.stamp(&pt)
	pt.ThrustRate = s.ThrustRate
	pt.EngineSetting = s.EngineSetting
	heldVal, err := start.Value(s.held)
	if err != nil {
		return nil, err
	}
	if err := pt.SetSpeed(s.held, heldVal); err != nil {
		return nil, err
	}

	// Direction of the altitude change.
	dir := 0.0
	if effAlt, ok, err := s.targetAltitude(pt, start, tun); err != nil {
		return nil, err
	} else if ok {
		if math.Abs(effAlt-pt.Altitude) <= tun.Tolerance*math.Max(math.Abs(effAlt), 1) {
			s.aero(&pt)
			return flight.Trajectory{pt}, nil
		}
		dir = math.Copysign(1, effAlt-pt.Altitude)
	} else {
		// Speed-crossing termination only: at constant EAS, Mach and TAS
		// both grow with altitude, so the remaining sign gives direction.
		rem, err := s.Target.Remaining(pt, start, s.speedTarget)
		if err != nil {
			return nil, err
		}
		dir = math.Copysign(1, rem)
	}

	traj := flight.Trajectory{}
	for i := 0; i < tun.MaxIterations; i++ {
		thrust, fuelFlow, err := s.Propulsion.ThrustAndFuelFlow(pt, s.EngineSetting, s.ThrustRate)
		if err != nil {
			return nil, err
		}
		pt.Thrust = thrust
		s.aero(&pt)

		gamma := (thrust - pt.Drag) / (pt.Mass * atmos.G)
		gamma = math.Max(-maxSlope, math.Min(maxSlope, gamma))
		if dir > 0 && gamma <= 0 {
			return nil, simerr.Unreachablef(s.Config.Name,
				"insufficient thrust to climb (slope %.5f rad at %.0f m)", gamma, pt.Altitude)
		}
		if dir < 0 && gamma >= 0 {
			return nil, simerr.Unreachablef(s.Config.Name,
				"excess thrust prevents descent (slope %.5f rad at %.0f m)", gamma, pt.Altitude)
		}
		pt.SlopeAngle = gamma
		traj = append(traj, pt)

		next := pt
		dt := tun.TimeStep
		next.Time += dt
		next.Altitude += pt.TrueAirspeed * math.Sin(gamma) * dt
		next.GroundDistance += pt.TrueAirspeed * math.Cos(gamma) * dt
		next.Mass -= fuelFlow * dt
		if next.Mass <= 0 {
			return nil, simerr.Unreachablef(s.Config.Name, "fuel exhausted before target altitude")
		}
		if err := next.SetSpeed(s.held, heldVal); err != nil {
			return nil, err
		}
		next.Thrust = thrust
		s.aero(&next)

		// Altitude termination (declared or optimal-for-current-mass).
		if effAlt, ok, err := s.targetAltitude(next, start, tun); err != nil {
			return nil, err
		} else if ok {
			remPrev := effAlt - pt.Altitude
			remNext := effAlt - next.Altitude
			if remNext == 0 || remPrev*remNext < 0 ||
				math.Abs(remNext) <= tun.Tolerance*math.Max(math.Abs(effAlt), 1) {
				end, err := flight.Interpolate(pt, next, flight.Altitude, effAlt)
				if err != nil {
					return nil, err
				}
				if err := end.SetSpeed(s.held, heldVal); err != nil {
					return nil, err
				}
				end.SlopeAngle = 0
				s.aero(&end)
				return append(traj, end), nil
			}
		}

		// Declared speed crossing.
		if s.speedTarget != "" {
			effSpeed, err := s.Target.Effective(s.speedTarget, start)
			if err != nil {
				return nil, err
			}
			remPrev, _ := s.Target.Remaining(pt, start, s.speedTarget)
			remNext, _ := s.Target.Remaining(next, start, s.speedTarget)
			if remNext == 0 || remPrev*remNext < 0 ||
				math.Abs(remNext) <= tun.Tolerance*math.Max(math.Abs(effSpeed), 1) {
				end, err := flight.Interpolate(pt, next, s.speedTarget, effSpeed)
				if err != nil {
					return nil, err
				}
				if err := end.SetSpeed(s.speedTarget, effSpeed); err != nil {
					return nil, err
				}
				end.SlopeAngle = 0
				s.aero(&end)
				return append(traj, end), nil
			}
		}
		pt = next
	}
	return nil, simerr.Unreachablef(s.Config.Name,
		"maximum step count (%d) exceeded before target altitude", tun.MaxIterations)
}
