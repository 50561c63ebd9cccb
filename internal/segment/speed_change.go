package segment

import (
	"math"

	"github.com/aerotools/missim/internal/flight"
	"github.com/aerotools/missim/internal/simerr"
)

// speedChange accelerates or decelerates at constant altitude and constant
// thrust rate until the declared target speed is reached.
type speedChange struct {
	base
	driver flight.Param
}

func newSpeedChange(cfg Config) (Segment, error) {
	s := &speedChange{base: base{Config: cfg}}
	if err := s.validateCommon(true, true); err != nil {
		return nil, err
	}
	if cfg.Target == nil {
		return nil, simerr.Configf(cfg.Name, "speed_change requires a target")
	}

	var declared []flight.Param
	for _, p := range flight.SpeedParams {
		if e, ok := cfg.Target.Get(p); ok {
			if e.Mode == flight.Constant {
				return nil, simerr.Configf(cfg.Name,
					"speed_change cannot hold %s constant while changing speed", p)
			}
			declared = append(declared, p)
		}
	}
	if len(declared) != 1 {
		return nil, simerr.Configf(cfg.Name,
			"speed_change needs exactly one target speed parameter, got %d", len(declared))
	}
	if cfg.Target.Has(flight.Altitude) && !cfg.Target.IsConstant(flight.Altitude) {
		return nil, simerr.Configf(cfg.Name,
			"speed_change holds altitude; it cannot also target altitude")
	}
	s.driver = declared[0]
	return s, nil
}

func (s *speedChange) Compute(start flight.Point) (flight.Trajectory, error) {
	tun := s.tuning()

	pt := start
	s.stamp(&pt)
	pt.SlopeAngle = 0
	if err := pt.SetSpeed(flight.TrueAirspeed, pt.TrueAirspeed); err != nil {
		return nil, err
	}
	pt.ThrustRate = s.ThrustRate
	pt.EngineSetting = s.EngineSetting

	eff, err := s.Target.Effective(s.driver, start)
	if err != nil {
		return nil, err
	}
	startVal, _ := start.Value(s.driver)
	if math.Abs(eff-startVal) <= tun.Tolerance*math.Max(math.Abs(eff), 1) {
		s.aero(&pt)
		return flight.Trajectory{pt}, nil
	}
	dir := 1.0
	if eff < startVal {
		dir = -1.0
	}

	traj := flight.Trajectory{}
	for i := 0; i < tun.MaxIterations; i++ {
		thrust, fuelFlow, err := s.Propulsion.ThrustAndFuelFlow(pt, s.EngineSetting, s.ThrustRate)
		if err != nil {
			return nil, err
		}
		pt.Thrust = thrust
		s.aero(&pt)
		pt.Acceleration = (thrust - pt.Drag) / pt.Mass

		if pt.Acceleration*dir <= 0 {
			return nil, simerr.Unreachablef(s.Config.Name,
				"thrust/drag imbalance stops progress toward the target speed (accel %.4f m/s2)",
				pt.Acceleration)
		}

		traj = append(traj, pt)

		next := pt
		dt := tun.TimeStep
		next.Time += dt
		next.GroundDistance += pt.TrueAirspeed * dt
		next.Mass -= fuelFlow * dt
		if next.Mass <= 0 {
			return nil, simerr.Unreachablef(s.Config.Name, "fuel exhausted before target speed")
		}
		if err := next.SetSpeed(flight.TrueAirspeed, pt.TrueAirspeed+pt.Acceleration*dt); err != nil {
			return nil, err
		}
		next.Thrust = thrust
		s.aero(&next)

		remPrev, _ := s.Target.Remaining(pt, start, s.driver)
		remNext, _ := s.Target.Remaining(next, start, s.driver)
		if remNext == 0 || remPrev*remNext < 0 ||
			math.Abs(remNext) <= tun.Tolerance*math.Max(math.Abs(eff), 1) {
			end, err := flight.Interpolate(pt, next, s.driver, eff)
			if err != nil {
				return nil, err
			}
			if err := end.SetSpeed(s.driver, eff); err != nil {
				return nil, err
			}
			s.aero(&end)
			return append(traj, end), nil
		}
		pt = next
	}
	return nil, simerr.Unreachablef(s.Config.Name,
		"maximum step count (%d) exceeded before target speed", tun.MaxIterations)
}
