package segment

import (
	"github.com/aerotools/missim/internal/flight"
	"github.com/aerotools/missim/internal/simerr"
)

// transition sets the end point directly from its declared target fields
// in one algebraic step, with no integration. A mass_ratio may replace a
// mass target, and a reserve_mass_ratio appends one synthetic point whose
// reserve is computed on the post-reserve mass:
//
//	reserve = ratio * (end_mass_before_reserve - reserve)
//
// so the ratio applies to the mass remaining after the reserve is removed.
type transition struct {
	base
	speed flight.Param // declared speed parameter, "" if none
}

func newTransition(cfg Config) (Segment, error) {
	s := &transition{base: base{Config: cfg}}
	if cfg.Target == nil && cfg.MassRatio <= 0 {
		return nil, simerr.Configf(cfg.Name, "transition requires a target or a mass_ratio")
	}
	if cfg.Target == nil {
		cfg.Target = flight.NewTarget()
		s.Target = cfg.Target
	}
	for _, p := range flight.SpeedParams {
		if e, ok := cfg.Target.Get(p); ok && e.Mode != flight.Constant {
			if s.speed != "" {
				return nil, simerr.Configf(cfg.Name,
					"transition accepts at most one declared speed parameter")
			}
			s.speed = p
		}
	}
	if cfg.MassRatio > 0 && cfg.Target.Has(flight.Mass) {
		return nil, simerr.Configf(cfg.Name,
			"transition cannot combine a mass target with mass_ratio")
	}
	return s, nil
}

func (s *transition) Compute(start flight.Point) (flight.Trajectory, error) {
	pt := start
	s.stamp(&pt)

	end := pt

	// Altitude first so speed interconversion happens at the end altitude.
	if s.Target.Has(flight.Altitude) {
		eff, err := s.Target.Effective(flight.Altitude, start)
		if err != nil {
			return nil, err
		}
		end.Altitude = eff
	}
	for _, p := range []flight.Param{flight.Time, flight.GroundDistance, flight.Mass, flight.ThrustRate} {
		if !s.Target.Has(p) {
			continue
		}
		eff, err := s.Target.Effective(p, start)
		if err != nil {
			return nil, err
		}
		if err := end.SetValue(p, eff); err != nil {
			return nil, err
		}
	}
	if s.MassRatio > 0 {
		end.Mass = start.Mass * s.MassRatio
	}

	if s.speed != "" {
		eff, err := s.Target.Effective(s.speed, start)
		if err != nil {
			return nil, err
		}
		if err := end.SetSpeed(s.speed, eff); err != nil {
			return nil, err
		}
	} else {
		// Keep true airspeed, re-derive Mach and EAS at the end altitude.
		if err := end.SetSpeed(flight.TrueAirspeed, end.TrueAirspeed); err != nil {
			return nil, err
		}
	}

	traj := flight.Trajectory{pt, end}

	if s.ReserveMassRatio > 0 {
		reserve := s.ReserveMassRatio * end.Mass / (1 + s.ReserveMassRatio)
		withReserve := end
		withReserve.Mass = end.Mass - reserve
		traj = append(traj, withReserve)
	}
	return traj, nil
}
