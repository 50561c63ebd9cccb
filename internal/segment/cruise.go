package segment

import (
	"math"

	"github.com/aerotools/missim/internal/flight"
	"github.com/aerotools/missim/internal/simerr"
)

// cruise flies at constant altitude and speed, thrust regulated to balance
// drag, until the target ground distance is covered. When configured for
// the optimal flight level, it first runs an altitude-change sub-segment
// to the cruise altitude minimizing fuel over the full remaining distance,
// found by a 1-D search over candidate altitudes.
type cruise struct {
	base
	held flight.Param
}

func newCruise(cfg Config) (Segment, error) {
	s := &cruise{base: base{Config: cfg}}
	if err := s.validateCommon(true, true); err != nil {
		return nil, err
	}
	if cfg.Target == nil || !cfg.Target.Has(flight.GroundDistance) ||
		cfg.Target.IsConstant(flight.GroundDistance) {
		return nil, simerr.Configf(cfg.Name, "cruise requires a ground_distance target")
	}
	if held, ok := cfg.Target.ConstrainedSpeed(); ok {
		s.held = held
	} else {
		// Cruise holds Mach unless the target pins another representation.
		s.held = flight.Mach
	}
	return s, nil
}

func (s *cruise) Compute(start flight.Point) (flight.Trajectory, error) {
	tun := s.tuning()
	distEff, err := s.Target.Effective(flight.GroundDistance, start)
	if err != nil {
		return nil, err
	}

	if !s.OptimalAltitude {
		return s.cruiseTo(start, distEff, tun)
	}

	// Optimal flight level: pick the cruise altitude minimizing fuel from
	// here to the distance target, then climb there and cruise. Each
	// candidate evaluation is an independent computation from copies of
	// the start point.
	fuelTo := func(alt float64) float64 {
		end, err := s.flyVia(start, alt, distEff, tun)
		if err != nil {
			return math.Inf(1)
		}
		return start.Mass - end.Mass
	}
	bestAlt, err := goldenMin(fuelTo, start.Altitude, tun.MaxAltitude, 1.0, 200)
	if err != nil {
		return nil, simerr.Divergef(s.Config.Name, "cruise altitude search: %v", err)
	}
	if math.IsInf(fuelTo(bestAlt), 1) {
		return nil, simerr.Unreachablef(s.Config.Name,
			"no reachable cruise altitude covers the distance target")
	}

	traj, err := s.climbTo(start, bestAlt)
	if err != nil {
		return nil, err
	}
	rest, err := s.cruiseTo(traj.Last(), distEff, tun)
	if err != nil {
		return nil, err
	}
	return traj.Concat(rest), nil
}

// flyVia evaluates one optimal-flight-level candidate: climb to alt, then
// cruise to the distance target, returning only the final point.
func (s *cruise) flyVia(start flight.Point, alt, distEff float64, tun Tuning) (flight.Point, error) {
	traj, err := s.climbTo(start, alt)
	if err != nil {
		return flight.Point{}, err
	}
	rest, err := s.cruiseTo(traj.Last(), distEff, tun)
	if err != nil {
		return flight.Point{}, err
	}
	return rest.Last(), nil
}

// climbTo runs the altitude-change sub-segment to the cruise altitude,
// holding the cruise speed law.
func (s *cruise) climbTo(start flight.Point, alt float64) (flight.Trajectory, error) {
	if math.Abs(alt-start.Altitude) < 0.5 {
		pt := start
		s.stamp(&pt)
		return flight.Trajectory{pt}, nil
	}
	target := flight.NewTarget().
		Set(flight.Altitude, alt, flight.Absolute).
		SetConstant(s.held)
	cfg := s.Config
	cfg.Target = target
	cfg.OptimalAltitude = false
	sub, err := newAltitudeChange(cfg)
	if err != nil {
		return nil, err
	}
	return sub.Compute(start)
}

// cruiseTo steps at constant altitude and speed until ground distance
// reaches distEff.
func (s *cruise) cruiseTo(start flight.Point, distEff float64, tun Tuning) (flight.Trajectory, error) {
	pt := start
	s.stamp(&pt)
	pt.SlopeAngle = 0
	pt.EngineSetting = s.EngineSetting
	heldVal, err := start.Value(s.held)
	if err != nil {
		return nil, err
	}
	if err := pt.SetSpeed(s.held, heldVal); err != nil {
		return nil, err
	}
	if math.Abs(distEff-pt.GroundDistance) <= tun.Tolerance*math.Max(math.Abs(distEff), 1) {
		if err := s.regulate(&pt); err != nil {
			return nil, err
		}
		return flight.Trajectory{pt}, nil
	}

	traj := flight.Trajectory{}
	for i := 0; i < tun.MaxIterations; i++ {
		if err := s.regulate(&pt); err != nil {
			return nil, err
		}
		traj = append(traj, pt)

		fuelFlow, err := s.fuelFlowAt(pt)
		if err != nil {
			return nil, err
		}
		next := pt
		dt := tun.TimeStep
		next.Time += dt
		next.GroundDistance += pt.TrueAirspeed * dt
		next.Mass -= fuelFlow * dt
		if next.Mass <= 0 {
			return nil, simerr.Unreachablef(s.Config.Name, "fuel exhausted before distance target")
		}
		if err := next.SetSpeed(s.held, heldVal); err != nil {
			return nil, err
		}
		if err := s.regulate(&next); err != nil {
			return nil, err
		}

		remPrev := distEff - pt.GroundDistance
		remNext := distEff - next.GroundDistance
		if remNext == 0 || remPrev*remNext < 0 ||
			math.Abs(remNext) <= tun.Tolerance*math.Max(math.Abs(distEff), 1) {
			end, err := flight.Interpolate(pt, next, flight.GroundDistance, distEff)
			if err != nil {
				return nil, err
			}
			return append(traj, end), nil
		}
		pt = next
	}
	return nil, simerr.Unreachablef(s.Config.Name,
		"maximum step count (%d) exceeded before distance target", tun.MaxIterations)
}

// regulate balances thrust against drag at the point, filling the
// aerodynamic and propulsive state. Thrust scales linearly with rate, so
// a single full-rate evaluation gives the required rate.
func (s *cruise) regulate(pt *flight.Point) error {
	s.aero(pt)
	maxThrust, _, err := s.Propulsion.ThrustAndFuelFlow(*pt, s.EngineSetting, 1.0)
	if err != nil {
		return err
	}
	if maxThrust < pt.Drag {
		return simerr.Unreachablef(s.Config.Name,
			"insufficient thrust to balance drag (%.0f N available, %.0f N required)",
			maxThrust, pt.Drag)
	}
	pt.ThrustRate = pt.Drag / maxThrust
	pt.Thrust = pt.Drag
	return nil
}

// fuelFlowAt returns the fuel flow at the point's regulated thrust rate.
func (s *cruise) fuelFlowAt(pt flight.Point) (float64, error) {
	_, fuelFlow, err := s.Propulsion.ThrustAndFuelFlow(pt, s.EngineSetting, pt.ThrustRate)
	return fuelFlow, err
}

// optimalCruise flies the distance target while continuously tracking the
// altitude that maximizes lift-to-drag for the current (decreasing) mass.
type optimalCruise struct {
	cruise
}

func newOptimalCruise(cfg Config) (Segment, error) {
	inner, err := newCruise(cfg)
	if err != nil {
		return nil, err
	}
	return &optimalCruise{cruise: *inner.(*cruise)}, nil
}

func (s *optimalCruise) Compute(start flight.Point) (flight.Trajectory, error) {
	tun := s.tuning()
	distEff, err := s.Target.Effective(flight.GroundDistance, start)
	if err != nil {
		return nil, err
	}

	pt := start
	s.stamp(&pt)
	pt.SlopeAngle = 0
	pt.EngineSetting = s.EngineSetting
	heldVal, err := start.Value(s.held)
	if err != nil {
		return nil, err
	}
	if math.Abs(distEff-pt.GroundDistance) <= tun.Tolerance*math.Max(math.Abs(distEff), 1) {
		if err := pt.SetSpeed(s.held, heldVal); err != nil {
			return nil, err
		}
		if err := s.regulate(&pt); err != nil {
			return nil, err
		}
		return flight.Trajectory{pt}, nil
	}

	traj := flight.Trajectory{}
	for i := 0; i < tun.MaxIterations; i++ {
		alt, err := s.optimalAltitude(pt, s.held, 0, tun.MaxAltitude)
		if err != nil {
			return nil, err
		}
		pt.Altitude = alt
		if err := pt.SetSpeed(s.held, heldVal); err != nil {
			return nil, err
		}
		if err := s.regulate(&pt); err != nil {
			return nil, err
		}
		traj = append(traj, pt)

		fuelFlow, err := s.fuelFlowAt(pt)
		if err != nil {
			return nil, err
		}
		next := pt
		dt := tun.TimeStep
		next.Time += dt
		next.GroundDistance += pt.TrueAirspeed * dt
		next.Mass -= fuelFlow * dt
		if next.Mass <= 0 {
			return nil, simerr.Unreachablef(s.Config.Name, "fuel exhausted before distance target")
		}

		remPrev := distEff - pt.GroundDistance
		remNext := distEff - next.GroundDistance
		if remNext == 0 || remPrev*remNext < 0 ||
			math.Abs(remNext) <= tun.Tolerance*math.Max(math.Abs(distEff), 1) {
			end, err := flight.Interpolate(pt, next, flight.GroundDistance, distEff)
			if err != nil {
				return nil, err
			}
			return append(traj, end), nil
		}
		pt = next
	}
	return nil, simerr.Unreachablef(s.Config.Name,
		"maximum step count (%d) exceeded before distance target", tun.MaxIterations)
}
