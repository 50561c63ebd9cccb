// Package loader reads declarative mission definition files (toml) and
// builds the typed mission tree the computation core consumes. It is the
// parsing boundary: the core never reads serialized forms itself, and
// every scalar that reaches a segment has already gone through the
// variable resolver.
package loader

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/aerotools/missim/internal/flight"
	"github.com/aerotools/missim/internal/mission"
	"github.com/aerotools/missim/internal/polar"
	"github.com/aerotools/missim/internal/propulsion"
	"github.com/aerotools/missim/internal/segment"
	"github.com/aerotools/missim/internal/simerr"
	"github.com/aerotools/missim/internal/vars"
	"github.com/aerotools/missim/pkg/logger"
)

// File is the decoded shape of a mission definition file.
type File struct {
	Polar      PolarDef       `toml:"polar"`
	Propulsion PropulsionDef  `toml:"propulsion"`
	Provider   map[string]any `toml:"provider"` // inline external variable values
	Phases     []PhaseDef     `toml:"phase"`
	Routes     []RouteDef     `toml:"route"`
	Missions   []MissionDef   `toml:"mission"`
}

// PolarDef declares the drag polar, either as explicit vectors or through
// an external-variable prefix resolved as "<prefix>:CL" / "<prefix>:CD".
type PolarDef struct {
	CL     []float64 `toml:"CL"`
	CD     []float64 `toml:"CD"`
	Prefix string    `toml:"prefix"`
}

// PropulsionDef declares the reference turbofan parameters.
type PropulsionDef struct {
	MaxThrustN float64 `toml:"max_thrust_n"`
	CruiseSFC  float64 `toml:"cruise_sfc"`
}

// SegmentDef declares one segment. Scalar fields are raw declarations:
// numbers, "value unit" strings, named references, "~" contextuals or
// "constant".
type SegmentDef struct {
	Type             string         `toml:"type"`
	Name             string         `toml:"name"`
	EngineSetting    string         `toml:"engine_setting"`
	ThrustRate       any            `toml:"thrust_rate"`
	ReferenceArea    any            `toml:"reference_area"`
	TrueAirspeed     any            `toml:"true_airspeed"`
	MassRatio        any            `toml:"mass_ratio"`
	ReserveMassRatio any            `toml:"reserve_mass_ratio"`
	Target           map[string]any `toml:"target"`
}

// PartDef is one element of a mission or route: a phase reference, a
// route reference (missions only), or an inline segment.
type PartDef struct {
	Phase   string      `toml:"phase"`
	Route   string      `toml:"route"`
	Segment *SegmentDef `toml:"segment"`
}

// PhaseDef is a reusable phase template. It holds no mission or route
// identity; context is applied where the phase is used.
type PhaseDef struct {
	ID       string       `toml:"id"`
	Segments []SegmentDef `toml:"segment"`
}

// RouteDef is an ordered sequence of parts with an optional overall range.
type RouteDef struct {
	ID    string    `toml:"id"`
	Range any       `toml:"range"`
	Parts []PartDef `toml:"part"`
}

// MissionDef is the top-level flight declaration.
type MissionDef struct {
	ID    string         `toml:"id"`
	Start map[string]any `toml:"start"`
	Parts []PartDef      `toml:"part"`
}

// Loader holds a decoded definition file and builds missions from it.
type Loader struct {
	file   File
	phases map[string]PhaseDef
	routes map[string]RouteDef
	log    *logger.Logger
	tuning segment.Tuning
}

// Load decodes a mission definition file.
func Load(path string, tuning segment.Tuning, log *logger.Logger) (*Loader, error) {
	var f File
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("failed to decode mission definition %s: %w", path, err)
	}
	return New(f, tuning, log)
}

// New builds a Loader from an already-decoded File.
func New(f File, tuning segment.Tuning, log *logger.Logger) (*Loader, error) {
	if log == nil {
		log = logger.Nop()
	}
	l := &Loader{
		file:   f,
		phases: make(map[string]PhaseDef),
		routes: make(map[string]RouteDef),
		log:    log.Named("loader"),
		tuning: tuning,
	}
	for _, p := range f.Phases {
		if p.ID == "" {
			return nil, simerr.Configf("phase", "phase without id")
		}
		if _, dup := l.phases[p.ID]; dup {
			return nil, simerr.Configf(p.ID, "duplicate phase id")
		}
		l.phases[p.ID] = p
	}
	for _, r := range f.Routes {
		if r.ID == "" {
			return nil, simerr.Configf("route", "route without id")
		}
		if _, dup := l.routes[r.ID]; dup {
			return nil, simerr.Configf(r.ID, "duplicate route id")
		}
		l.routes[r.ID] = r
	}
	return l, nil
}

// MissionIDs lists the missions declared in the file.
func (l *Loader) MissionIDs() []string {
	ids := make([]string, 0, len(l.file.Missions))
	for _, m := range l.file.Missions {
		ids = append(ids, m.ID)
	}
	return ids
}

// BuildMission constructs the mission with the given id. Values from
// overrides shadow the file's inline provider values.
func (l *Loader) BuildMission(id string, overrides vars.Provider) (*mission.Mission, flight.Point, error) {
	var def *MissionDef
	for i := range l.file.Missions {
		if l.file.Missions[i].ID == id {
			def = &l.file.Missions[i]
			break
		}
	}
	if def == nil {
		return nil, flight.Point{}, simerr.Configf(id, "mission is not declared")
	}

	provider := l.provider(overrides)
	pol, err := l.buildPolar()
	if err != nil {
		return nil, flight.Point{}, err
	}
	prop := &propulsion.Turbofan{
		MaxThrust: l.file.Propulsion.MaxThrustN,
		CruiseSFC: l.file.Propulsion.CruiseSFC,
	}

	b := &builder{
		loader:     l,
		provider:   provider,
		polar:      pol,
		propulsion: prop,
	}

	parts := make([]mission.Part, 0, len(def.Parts))
	for i, pd := range def.Parts {
		ctx := vars.Context{MissionID: id}
		part, err := b.buildPart(pd, ctx, false, fmt.Sprintf("part_%d", i+1))
		if err != nil {
			return nil, flight.Point{}, err
		}
		parts = append(parts, part)
	}

	start, err := b.buildStart(def.Start, vars.Context{MissionID: id})
	if err != nil {
		return nil, flight.Point{}, err
	}

	m := &mission.Mission{ID: id, Parts: parts, Log: l.log}
	return m, start, nil
}

// provider merges the file's inline scalar values with overrides.
func (l *Loader) provider(overrides vars.Provider) vars.Provider {
	inline := vars.MapProvider{}
	for name, raw := range l.file.Provider {
		if v, ok := toFloat(raw); ok {
			inline[name] = v
		}
	}
	return layered{top: overrides, bottom: inline}
}

type layered struct {
	top    vars.Provider
	bottom vars.Provider
}

func (p layered) Value(name string) (float64, bool) {
	if p.top != nil {
		if v, ok := p.top.Value(name); ok {
			return v, true
		}
	}
	return p.bottom.Value(name)
}

// vectors exposes the file provider's vector entries for polar lookup.
func (l *Loader) vectors() polar.MapVectorProvider {
	out := polar.MapVectorProvider{}
	for name, raw := range l.file.Provider {
		items, ok := raw.([]any)
		if !ok {
			continue
		}
		vec := make([]float64, 0, len(items))
		good := true
		for _, it := range items {
			v, ok := toFloat(it)
			if !ok {
				good = false
				break
			}
			vec = append(vec, v)
		}
		if good {
			out[name] = vec
		}
	}
	return out
}

func (l *Loader) buildPolar() (*polar.Polar, error) {
	if l.file.Polar.Prefix != "" {
		return polar.FromProvider(l.file.Polar.Prefix, l.vectors())
	}
	if len(l.file.Polar.CL) > 0 {
		return polar.New(l.file.Polar.CL, l.file.Polar.CD)
	}
	return nil, nil
}

// toFloat accepts the numeric types toml decoding can produce.
func toFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

// parseDecl turns a raw toml scalar into a declaration. "10000 ft" style
// strings are split into value and unit here; inline tables carry an
// explicit value with an optional unit and default; everything else goes
// to the variable declaration parser unchanged.
func parseDecl(raw any) (vars.Declaration, error) {
	if table, ok := raw.(map[string]any); ok {
		return parseDeclTable(table)
	}
	s, ok := raw.(string)
	if !ok {
		return vars.Parse(raw, "", nil)
	}
	s = strings.TrimSpace(s)
	if fields := strings.Fields(s); len(fields) == 2 {
		if v, err := strconv.ParseFloat(fields[0], 64); err == nil {
			return vars.Lit(v, fields[1]), nil
		}
	}
	return vars.Parse(s, "", nil)
}

// parseDeclTable handles the { value = ..., unit = ..., default = ... }
// declaration form. It is the surface that attaches a fallback value to a
// named external reference: the default is used when the provider has no
// entry for the name. The default is stored unsigned; a leading "-" on the
// reference negates whichever value is substituted.
func parseDeclTable(table map[string]any) (vars.Declaration, error) {
	for key := range table {
		switch key {
		case "value", "unit", "default":
		default:
			return vars.Declaration{}, fmt.Errorf("unknown declaration key %q", key)
		}
	}
	rawVal, ok := table["value"]
	if !ok {
		return vars.Declaration{}, fmt.Errorf("declaration table has no value")
	}
	unit, _ := table["unit"].(string)
	var def *float64
	if rawDef, ok := table["default"]; ok {
		v, good := toFloat(rawDef)
		if !good {
			return vars.Declaration{}, fmt.Errorf("declaration default must be a number")
		}
		def = &v
	}
	if s, ok := rawVal.(string); ok {
		return vars.Parse(strings.TrimSpace(s), unit, def)
	}
	return vars.Parse(rawVal, unit, def)
}
