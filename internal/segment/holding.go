package segment

import (
	"math"

	"github.com/aerotools/missim/internal/flight"
	"github.com/aerotools/missim/internal/simerr"
)

// holding flies at constant altitude and speed with regulated thrust for a
// target elapsed time.
type holding struct {
	base
	held flight.Param
}

func newHolding(cfg Config) (Segment, error) {
	s := &holding{base: base{Config: cfg}}
	if err := s.validateCommon(true, true); err != nil {
		return nil, err
	}
	if cfg.Target == nil || !cfg.Target.Has(flight.Time) || cfg.Target.IsConstant(flight.Time) {
		return nil, simerr.Configf(cfg.Name, "holding requires a time target")
	}
	if held, ok := cfg.Target.ConstrainedSpeed(); ok {
		s.held = held
	} else {
		s.held = flight.TrueAirspeed
	}
	return s, nil
}

func (s *holding) Compute(start flight.Point) (flight.Trajectory, error) {
	tun := s.tuning()
	timeEff, err := s.Target.Effective(flight.Time, start)
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
	if err := pt.SetSpeed(s.held, heldVal); err != nil {
		return nil, err
	}
	if math.Abs(timeEff-pt.Time) <= tun.Tolerance*math.Max(math.Abs(timeEff), 1) {
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

		_, fuelFlow, err := s.Propulsion.ThrustAndFuelFlow(pt, s.EngineSetting, pt.ThrustRate)
		if err != nil {
			return nil, err
		}
		next := pt
		dt := tun.TimeStep
		next.Time += dt
		next.GroundDistance += pt.TrueAirspeed * dt
		next.Mass -= fuelFlow * dt
		if next.Mass <= 0 {
			return nil, simerr.Unreachablef(s.Config.Name, "fuel exhausted before holding time elapsed")
		}

		remPrev := timeEff - pt.Time
		remNext := timeEff - next.Time
		if remNext == 0 || remPrev*remNext < 0 ||
			math.Abs(remNext) <= tun.Tolerance*math.Max(math.Abs(timeEff), 1) {
			end, err := flight.Interpolate(pt, next, flight.Time, timeEff)
			if err != nil {
				return nil, err
			}
			return append(traj, end), nil
		}
		pt = next
	}
	return nil, simerr.Unreachablef(s.Config.Name,
		"maximum step count (%d) exceeded before holding time", tun.MaxIterations)
}

// regulate balances thrust against drag, as in cruise.
func (s *holding) regulate(pt *flight.Point) error {
	s.aero(pt)
	maxThrust, _, err := s.Propulsion.ThrustAndFuelFlow(*pt, s.EngineSetting, 1.0)
	if err != nil {
		return err
	}
	if maxThrust < pt.Drag {
		return simerr.Unreachablef(s.Config.Name,
			"insufficient thrust to balance drag in holding")
	}
	pt.ThrustRate = pt.Drag / maxThrust
	pt.Thrust = pt.Drag
	return nil
}
