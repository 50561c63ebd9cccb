// Package mission composes segments into phases, routes and missions.
// Each part consumes the trailing flight point of its predecessor as its
// start state and contributes its trajectory to the aggregate sequence,
// with duplicate boundary points dropped. A failed part aborts the rest of
// the composition; no partial trajectory is ever reported as a success.
package mission

import (
	"fmt"

	"github.com/aerotools/missim/internal/flight"
	"github.com/aerotools/missim/internal/segment"
	"github.com/aerotools/missim/internal/simerr"
	"github.com/aerotools/missim/pkg/logger"
)

// Part is one element of a flight composition.
type Part interface {
	Label() string
	Fly(start flight.Point) (flight.Trajectory, error)
}

// SegmentPart adapts a fully-targeted segment to the Part interface.
type SegmentPart struct {
	Seg segment.Segment
}

func (p *SegmentPart) Label() string { return p.Seg.Name() }

func (p *SegmentPart) Fly(start flight.Point) (flight.Trajectory, error) {
	return p.Seg.Compute(start)
}

// AbsorberPart is a distance-consuming segment whose ground_distance
// target is assigned by the enclosing route at fly time (it absorbs the
// route range remainder). Cfg carries everything except the distance.
type AbsorberPart struct {
	Kind string
	Cfg  segment.Config
}

func (p *AbsorberPart) Label() string { return p.Cfg.Name }

// Fly without an enclosing ranged route is a configuration error: the
// part has no distance target of its own.
func (p *AbsorberPart) Fly(start flight.Point) (flight.Trajectory, error) {
	return nil, simerr.Configf(p.Cfg.Name,
		"segment has no ground_distance target and no enclosing route range to absorb")
}

func (p *AbsorberPart) flyDistance(start flight.Point, dist float64) (flight.Trajectory, error) {
	cfg := p.Cfg
	target := flight.NewTarget()
	if cfg.Target != nil {
		for _, param := range cfg.Target.Params() {
			e, _ := cfg.Target.Get(param)
			target.Set(param, e.Value, e.Mode)
		}
	}
	target.Set(flight.GroundDistance, dist, flight.Relative)
	cfg.Target = target
	seg, err := segment.New(p.Kind, cfg)
	if err != nil {
		return nil, err
	}
	return seg.Compute(start)
}

// Phase is an ordered, reusable sequence of segments. Phases are pure
// templates: they carry no reference to the mission or route using them;
// naming context is applied top-down when their segments are built.
type Phase struct {
	Name  string
	Parts []Part
}

func (p *Phase) Label() string { return p.Name }

func (p *Phase) Fly(start flight.Point) (flight.Trajectory, error) {
	return flyParts(p.Parts, start, nil, 0, 0)
}

// Route is an ordered sequence of parts with an optional overall range
// target. When Range is positive, exactly one AbsorberPart receives the
// remainder: the route range minus the distance already consumed by flown
// parts and minus the declared relative distance targets of the parts
// still to fly. More than one absorber is rejected at build time by the
// loader.
type Route struct {
	Name  string
	Parts []Part
	Range float64 // m, 0 means no overall range target
}

func (r *Route) Label() string { return r.Name }

func (r *Route) Fly(start flight.Point) (flight.Trajectory, error) {
	return flyParts(r.Parts, start, &start, r.Range, 0)
}

// Mission is the top-level composition, binding the mission identifier
// used by the variable naming hierarchy.
type Mission struct {
	ID    string
	Parts []Part

	Log *logger.Logger
}

func (m *Mission) Label() string { return m.ID }

// Fly computes the whole mission from the given start point.
func (m *Mission) Fly(start flight.Point) (flight.Trajectory, error) {
	log := m.Log
	if log == nil {
		log = logger.Nop()
	}
	log.Info("Computing mission",
		logger.String("mission", m.ID),
		logger.Int("parts", len(m.Parts)),
		logger.Float64("start_mass_kg", start.Mass))

	traj, err := flyParts(m.Parts, start, nil, 0, 0)
	if err != nil {
		log.Error("Mission computation failed",
			logger.String("mission", m.ID),
			logger.Error(err))
		return nil, fmt.Errorf("mission %q: %w", m.ID, err)
	}

	end := traj.Last()
	log.Info("Mission computed",
		logger.String("mission", m.ID),
		logger.Int("points", traj.Len()),
		logger.Float64("duration_s", end.Time-start.Time),
		logger.Float64("distance_m", end.GroundDistance-start.GroundDistance),
		logger.Float64("fuel_kg", start.Mass-end.Mass))
	return traj, nil
}

// flyParts chains parts, concatenating their trajectories. When
// routeStart and rng describe an enclosing ranged route, the absorber
// receives the computed remainder wherever it sits, including inside a
// phase; reserved carries the declared distances of parts that follow
// the current nesting level.
func flyParts(parts []Part, start flight.Point, routeStart *flight.Point, rng, reserved float64) (flight.Trajectory, error) {
	cur := start
	var out flight.Trajectory
	for i, part := range parts {
		var (
			sub flight.Trajectory
			err error
		)
		switch p := part.(type) {
		case *AbsorberPart:
			if routeStart == nil || rng <= 0 {
				sub, err = p.Fly(cur)
				break
			}
			consumed := cur.GroundDistance - routeStart.GroundDistance
			remaining := rng - consumed - reserved - declaredDistance(parts[i+1:])
			if remaining <= 0 {
				return nil, simerr.Configf(p.Cfg.Name,
					"route range leaves no distance to absorb (%.0f m remaining)", remaining)
			}
			sub, err = p.flyDistance(cur, remaining)
		case *Phase:
			if routeStart != nil && rng > 0 {
				sub, err = flyParts(p.Parts, cur, routeStart, rng, reserved+declaredDistance(parts[i+1:]))
			} else {
				sub, err = p.Fly(cur)
			}
		default:
			sub, err = part.Fly(cur)
		}
		if err != nil {
			return nil, fmt.Errorf("part %q: %w", part.Label(), err)
		}
		if sub.Len() == 0 {
			return nil, fmt.Errorf("part %q produced an empty trajectory", part.Label())
		}
		out = out.Concat(sub)
		cur = out.Last()
	}
	if out.Len() == 0 {
		out = flight.Trajectory{start}
	}
	return out, nil
}

// declaredDistance sums the relative ground_distance targets declared by
// the remaining parts, descending into phases, so the absorber leaves
// room for them.
func declaredDistance(parts []Part) float64 {
	total := 0.0
	for _, part := range parts {
		switch p := part.(type) {
		case *SegmentPart:
			type targeted interface{ TargetDistance() (float64, bool) }
			if t, ok := p.Seg.(targeted); ok {
				if d, has := t.TargetDistance(); has {
					total += d
				}
			}
		case *Phase:
			total += declaredDistance(p.Parts)
		}
	}
	return total
}
