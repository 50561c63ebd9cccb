package loader

import (
	"fmt"
	"strings"

	"github.com/aerotools/missim/internal/flight"
	"github.com/aerotools/missim/internal/measure"
	"github.com/aerotools/missim/internal/mission"
	"github.com/aerotools/missim/internal/polar"
	"github.com/aerotools/missim/internal/propulsion"
	"github.com/aerotools/missim/internal/segment"
	"github.com/aerotools/missim/internal/simerr"
	"github.com/aerotools/missim/internal/vars"
)

// builder assembles mission parts for one BuildMission call. It carries
// the resolved collaborators so phase templates can be instantiated under
// any context without back references.
type builder struct {
	loader     *Loader
	provider   vars.Provider
	polar      *polar.Polar
	propulsion propulsion.Model
}

func (b *builder) buildPart(pd PartDef, ctx vars.Context, underRoute bool, fallback string) (mission.Part, error) {
	declared := 0
	if pd.Route != "" {
		declared++
	}
	if pd.Phase != "" {
		declared++
	}
	if pd.Segment != nil {
		declared++
	}
	if declared != 1 {
		return nil, simerr.Configf(ctx.Path(fallback),
			"a part must declare exactly one of route, phase or segment")
	}

	switch {
	case pd.Route != "":
		if underRoute {
			return nil, simerr.Configf(ctx.Path(pd.Route), "routes cannot be nested")
		}
		rd, ok := b.loader.routes[pd.Route]
		if !ok {
			return nil, simerr.Configf(ctx.Path(pd.Route), "route is not declared")
		}
		return b.buildRoute(rd, ctx)

	case pd.Phase != "":
		ph, ok := b.loader.phases[pd.Phase]
		if !ok {
			return nil, simerr.Configf(ctx.Path(pd.Phase), "phase is not declared")
		}
		return b.buildPhase(ph, ctx, underRoute)

	default:
		return b.buildSegmentPart(*pd.Segment, ctx, underRoute, fallback)
	}
}

func (b *builder) buildRoute(rd RouteDef, ctx vars.Context) (*mission.Route, error) {
	ctx.RouteID = rd.ID

	rng := 0.0
	if rd.Range != nil {
		v, err := b.resolveScalar(rd.Range, ctx, "range", measure.Length, 0)
		if err != nil {
			return nil, err
		}
		rng = v
	}

	parts := make([]mission.Part, 0, len(rd.Parts))
	absorbers := 0
	for i, pd := range rd.Parts {
		part, err := b.buildPart(pd, ctx, true, fmt.Sprintf("part_%d", i+1))
		if err != nil {
			return nil, err
		}
		absorbers += countAbsorbers(part)
		parts = append(parts, part)
	}
	if absorbers > 1 {
		return nil, simerr.Configf(ctx.Path("range"),
			"route has %d parts without a distance target; only one may absorb the route range", absorbers)
	}
	if absorbers == 1 && rng <= 0 {
		return nil, simerr.Configf(ctx.Path("range"),
			"route has a distance-absorbing part but no range")
	}
	return &mission.Route{Name: rd.ID, Parts: parts, Range: rng}, nil
}

func countAbsorbers(part mission.Part) int {
	switch p := part.(type) {
	case *mission.AbsorberPart:
		return 1
	case *mission.Phase:
		n := 0
		for _, sub := range p.Parts {
			n += countAbsorbers(sub)
		}
		return n
	default:
		return 0
	}
}

func (b *builder) buildPhase(ph PhaseDef, ctx vars.Context, underRoute bool) (*mission.Phase, error) {
	ctx.PhaseID = ph.ID
	parts := make([]mission.Part, 0, len(ph.Segments))
	for i, sd := range ph.Segments {
		part, err := b.buildSegmentPart(sd, ctx, underRoute, fmt.Sprintf("%s_%d", ph.ID, i+1))
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}
	return &mission.Phase{Name: ph.ID, Parts: parts}, nil
}

func (b *builder) buildSegmentPart(sd SegmentDef, ctx vars.Context, underRoute bool, fallback string) (mission.Part, error) {
	name := sd.Name
	if name == "" {
		name = fallback
	}

	target, optimalAlt, err := b.buildTarget(sd.Target, ctx)
	if err != nil {
		return nil, err
	}

	cfg := segment.Config{
		Name:            name,
		PhaseName:       ctx.PhaseID,
		Target:          target,
		Polar:           b.polar,
		Propulsion:      b.propulsion,
		EngineSetting:   sd.EngineSetting,
		Tuning:          b.loader.tuning,
		OptimalAltitude: optimalAlt,
	}
	if cfg.ThrustRate, err = b.resolveScalar(sd.ThrustRate, ctx, "thrust_rate", measure.Dimensionless, 1.0); err != nil {
		return nil, err
	}
	if cfg.ReferenceArea, err = b.resolveScalar(sd.ReferenceArea, ctx, "reference_area", measure.Area, 1.0); err != nil {
		return nil, err
	}
	if cfg.TrueAirspeed, err = b.resolveScalar(sd.TrueAirspeed, ctx, "true_airspeed", measure.Speed, 0); err != nil {
		return nil, err
	}
	if cfg.MassRatio, err = b.resolveScalar(sd.MassRatio, ctx, "mass_ratio", measure.Dimensionless, 0); err != nil {
		return nil, err
	}
	if cfg.ReserveMassRatio, err = b.resolveScalar(sd.ReserveMassRatio, ctx, "reserve_mass_ratio", measure.Dimensionless, 0); err != nil {
		return nil, err
	}

	// A distance-consuming segment without its own distance target absorbs
	// the enclosing route's range remainder.
	if underRoute && (sd.Type == segment.KindCruise || sd.Type == segment.KindOptimalCruise) &&
		(target == nil || !target.Has(flight.GroundDistance)) {
		return &mission.AbsorberPart{Kind: sd.Type, Cfg: cfg}, nil
	}

	seg, err := segment.New(sd.Type, cfg)
	if err != nil {
		return nil, err
	}
	return &mission.SegmentPart{Seg: seg}, nil
}

// buildTarget turns a raw target table into a Target, reporting whether
// the altitude entry asked for the optimal flight level.
func (b *builder) buildTarget(raw map[string]any, ctx vars.Context) (*flight.Target, bool, error) {
	if len(raw) == 0 {
		return nil, false, nil
	}
	t := flight.NewTarget()
	optimal := false
	for rawName, rawVal := range raw {
		if rawVal == nil {
			return nil, false, simerr.Configf(ctx.Path(rawName), "target entry has no value")
		}
		param, mode := flight.ParseParam(rawName)
		if s, ok := rawVal.(string); ok {
			trimmed := strings.TrimSpace(s)
			if trimmed == "constant" {
				t.SetConstant(param)
				continue
			}
			if param == flight.Altitude && trimmed == "optimal_flight_level" {
				optimal = true
				continue
			}
		}
		v, err := b.resolveScalar(rawVal, ctx, string(param), dimensionOf(param), 0)
		if err != nil {
			return nil, false, err
		}
		t.Set(param, v, mode)
	}
	return t, optimal, nil
}

// buildStart resolves the mission's declared start point. Altitude is
// applied before the speed so interconversion happens at the right
// altitude.
func (b *builder) buildStart(raw map[string]any, ctx vars.Context) (flight.Point, error) {
	var pt flight.Point
	if len(raw) == 0 {
		return pt, nil
	}

	if rawAlt, ok := raw["altitude"]; ok {
		v, err := b.resolveScalar(rawAlt, ctx, "altitude", measure.Length, 0)
		if err != nil {
			return pt, err
		}
		pt.Altitude = v
	}

	var speedDriver flight.Param
	var speedVal float64
	for name, rawVal := range raw {
		param := flight.Param(name)
		if param == flight.Altitude {
			continue
		}
		if flight.IsSpeedParam(param) {
			if speedDriver != "" {
				return pt, simerr.Configf(ctx.Path(name),
					"start point declares more than one speed representation")
			}
			v, err := b.resolveScalar(rawVal, ctx, name, dimensionOf(param), 0)
			if err != nil {
				return pt, err
			}
			speedDriver, speedVal = param, v
			continue
		}
		v, err := b.resolveScalar(rawVal, ctx, name, dimensionOf(param), 0)
		if err != nil {
			return pt, err
		}
		if err := pt.SetValue(param, v); err != nil {
			return pt, simerr.Configf(ctx.Path(name), "%v", err)
		}
	}
	if speedDriver != "" {
		if err := pt.SetSpeed(speedDriver, speedVal); err != nil {
			return pt, err
		}
	}
	return pt, nil
}

// resolveScalar resolves an optional raw declaration to SI, falling back
// to def when absent.
func (b *builder) resolveScalar(raw any, ctx vars.Context, param string, dim measure.Dimension, def float64) (float64, error) {
	if raw == nil {
		return def, nil
	}
	decl, err := parseDecl(raw)
	if err != nil {
		return 0, simerr.Configf(ctx.Path(param), "%v", err)
	}
	if decl.Kind == vars.KindText {
		return 0, simerr.Configf(ctx.Path(param),
			"unexpected string value %q for a numeric parameter", decl.Text)
	}
	return decl.Resolve(ctx, param, dim, b.provider)
}

// dimensionOf maps a flight point parameter to its physical dimension for
// declaration unit checking.
func dimensionOf(p flight.Param) measure.Dimension {
	switch p {
	case flight.Altitude, flight.GroundDistance:
		return measure.Length
	case flight.TrueAirspeed, flight.EquivalentAirspeed:
		return measure.Speed
	case flight.Mass:
		return measure.Mass
	case flight.Time:
		return measure.Duration
	default:
		return measure.Dimensionless
	}
}
