package flight

// Trajectory is an ordered, time-monotonic sequence of flight points. Each
// segment owns and returns its own sub-sequence; parents concatenate them
// into the aggregate mission trajectory.
type Trajectory []Point

// Last returns the trailing point. Callers must check Len first; segments
// always produce at least the start point.
func (t Trajectory) Last() Point {
	return t[len(t)-1]
}

// Len returns the number of points.
func (t Trajectory) Len() int { return len(t) }

// Concat appends other to t, dropping other's leading point when it
// duplicates t's trailing point (the shared segment boundary).
func (t Trajectory) Concat(other Trajectory) Trajectory {
	if len(other) == 0 {
		return t
	}
	if len(t) > 0 {
		last := t[len(t)-1]
		first := other[0]
		if last.Time == first.Time && last.GroundDistance == first.GroundDistance &&
			last.Altitude == first.Altitude && last.Mass == first.Mass {
			other = other[1:]
		}
	}
	return append(t, other...)
}

// Interpolate returns the point landing exactly on value for param,
// linearly interpolated between a and b. Every scalar field is
// interpolated; string fields are taken from b.
func Interpolate(a, b Point, param Param, value float64) (Point, error) {
	va, err := a.Value(param)
	if err != nil {
		return Point{}, err
	}
	vb, err := b.Value(param)
	if err != nil {
		return Point{}, err
	}
	var f float64
	if vb == va {
		f = 1
	} else {
		f = (value - va) / (vb - va)
	}
	lerp := func(x, y float64) float64 { return x + f*(y-x) }

	out := b
	out.Time = lerp(a.Time, b.Time)
	out.Altitude = lerp(a.Altitude, b.Altitude)
	out.GroundDistance = lerp(a.GroundDistance, b.GroundDistance)
	out.Mass = lerp(a.Mass, b.Mass)
	out.TrueAirspeed = lerp(a.TrueAirspeed, b.TrueAirspeed)
	out.EquivalentAirspeed = lerp(a.EquivalentAirspeed, b.EquivalentAirspeed)
	out.Mach = lerp(a.Mach, b.Mach)
	out.ThrustRate = lerp(a.ThrustRate, b.ThrustRate)
	out.Thrust = lerp(a.Thrust, b.Thrust)
	out.Drag = lerp(a.Drag, b.Drag)
	out.CL = lerp(a.CL, b.CL)
	out.CD = lerp(a.CD, b.CD)
	out.SlopeAngle = lerp(a.SlopeAngle, b.SlopeAngle)
	out.Acceleration = lerp(a.Acceleration, b.Acceleration)
	return out, nil
}
