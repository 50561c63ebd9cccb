package segment

import (
	"math"

	"github.com/aerotools/missim/internal/flight"
	"github.com/aerotools/missim/internal/simerr"
)

// taxi runs at constant thrust rate and imposed speed for a target elapsed
// time. The imposed true airspeed is used for distance computation and is
// visible to the propulsion model.
type taxi struct {
	base
}

func newTaxi(cfg Config) (Segment, error) {
	s := &taxi{base: base{Config: cfg}}
	if err := s.validateCommon(false, true); err != nil {
		return nil, err
	}
	if cfg.Target == nil || !cfg.Target.Has(flight.Time) || cfg.Target.IsConstant(flight.Time) {
		return nil, simerr.Configf(cfg.Name, "taxi requires a time target")
	}
	return s, nil
}

func (s *taxi) Compute(start flight.Point) (flight.Trajectory, error) {
	tun := s.tuning()
	timeEff, err := s.Target.Effective(flight.Time, start)
	if err != nil {
		return nil, err
	}

	pt := start
	s.stamp(&pt)
	pt.SlopeAngle = 0
	pt.ThrustRate = s.ThrustRate
	pt.EngineSetting = s.EngineSetting
	if err := pt.SetSpeed(flight.TrueAirspeed, s.Config.TrueAirspeed); err != nil {
		return nil, err
	}
	if math.Abs(timeEff-pt.Time) <= tun.Tolerance*math.Max(math.Abs(timeEff), 1) {
		return flight.Trajectory{pt}, nil
	}

	traj := flight.Trajectory{}
	for i := 0; i < tun.MaxIterations; i++ {
		thrust, fuelFlow, err := s.Propulsion.ThrustAndFuelFlow(pt, s.EngineSetting, s.ThrustRate)
		if err != nil {
			return nil, err
		}
		pt.Thrust = thrust
		traj = append(traj, pt)

		next := pt
		dt := tun.TaxiTimeStep
		next.Time += dt
		next.GroundDistance += pt.TrueAirspeed * dt
		next.Mass -= fuelFlow * dt
		if next.Mass <= 0 {
			return nil, simerr.Unreachablef(s.Config.Name, "fuel exhausted during taxi")
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
		"maximum step count (%d) exceeded during taxi", tun.MaxIterations)
}
