// Package vars implements the declaration model and the hierarchical
// variable resolution used by every numeric field of a mission definition.
//
// A declared parameter is one of:
//   - a literal value, optionally with a unit ("1500 ft" style inputs are
//     split by the loader before they reach this package);
//   - a reference to a named external variable, optionally negated by a
//     leading "-" and optionally carrying an unsigned default;
//   - a contextual variable ("~" or "~suffix") whose fully qualified
//     external name is derived from the enclosing mission/route/phase
//     identity at the point of use;
//   - the "constant" marker, meaning "freeze at segment start value".
//
// Resolution is pure: the same declaration resolved in the same context
// against the same provider always yields the same value.
package vars

import (
	"fmt"
	"strings"

	"github.com/aerotools/missim/internal/measure"
	"github.com/aerotools/missim/internal/simerr"
)

// Context is the mission/route/phase identity chain a contextual variable
// is qualified against. Phases are pure templates: they never hold a
// Context themselves, it is always passed top-down at use time.
type Context struct {
	MissionID string
	RouteID   string // empty when the declaring construct is not under a route
	PhaseID   string // empty when the declaring construct is not under a phase
}

// Qualify builds the fully qualified external variable name for a suffix:
// "data:mission:<mission>:[<route>:][<phase>:]<suffix>". Route and phase
// parts appear only when present in the context, so the same phase used
// under two different missions yields two distinct names.
func (c Context) Qualify(suffix string) string {
	var b strings.Builder
	b.WriteString("data:mission:")
	b.WriteString(c.MissionID)
	b.WriteString(":")
	if c.RouteID != "" {
		b.WriteString(c.RouteID)
		b.WriteString(":")
	}
	if c.PhaseID != "" {
		b.WriteString(c.PhaseID)
		b.WriteString(":")
	}
	b.WriteString(suffix)
	return b.String()
}

// Path renders the context as a human-readable declaration path for error
// reporting.
func (c Context) Path(param string) string {
	parts := make([]string, 0, 4)
	if c.MissionID != "" {
		parts = append(parts, c.MissionID)
	}
	if c.RouteID != "" {
		parts = append(parts, c.RouteID)
	}
	if c.PhaseID != "" {
		parts = append(parts, c.PhaseID)
	}
	parts = append(parts, param)
	return strings.Join(parts, ":")
}

// Kind discriminates the declaration variants.
type Kind int

const (
	KindLiteral Kind = iota
	KindText         // string enumeration, e.g. engine setting names
	KindNamed        // named external variable
	KindContextual
	KindConstant
)

// Declaration is the closed tagged variant a raw mission-definition scalar
// is parsed into exactly once, at configuration-load time.
type Declaration struct {
	Kind Kind

	Value float64 // KindLiteral
	Text  string  // KindText

	Name    string // KindNamed: unsigned external variable name
	Negated bool   // KindNamed: leading "-" on the declared value

	Suffix string // KindContextual: explicit suffix, empty for bare "~"

	Unit       string  // declared unit, empty means canonical SI
	Default    float64 // KindNamed: unsigned default for the external variable
	HasDefault bool
}

// Lit builds a literal declaration.
func Lit(value float64, unit string) Declaration {
	return Declaration{Kind: KindLiteral, Value: value, Unit: unit}
}

// Text builds a string-enumeration declaration.
func Text(s string) Declaration {
	return Declaration{Kind: KindText, Text: s}
}

// Parse turns a raw declared scalar into a Declaration. Strings are
// classified once here; no string sniffing happens at simulation time.
//
//   - "constant"        -> constant marker
//   - "~" / "~suffix"   -> contextual
//   - contains ":"      -> named external; a leading "-" negates the
//     substituted value (the stored default stays unsigned)
//   - anything else     -> text enumeration
func Parse(raw any, unit string, def *float64) (Declaration, error) {
	switch v := raw.(type) {
	case float64:
		return Declaration{Kind: KindLiteral, Value: v, Unit: unit}, nil
	case int:
		return Declaration{Kind: KindLiteral, Value: float64(v), Unit: unit}, nil
	case int64:
		return Declaration{Kind: KindLiteral, Value: float64(v), Unit: unit}, nil
	case string:
		return parseString(v, unit, def)
	default:
		return Declaration{}, fmt.Errorf("unsupported declaration type %T", raw)
	}
}

func parseString(s, unit string, def *float64) (Declaration, error) {
	switch {
	case s == "constant":
		return Declaration{Kind: KindConstant}, nil
	case s == "~":
		return Declaration{Kind: KindContextual, Unit: unit}, nil
	case strings.HasPrefix(s, "~"):
		return Declaration{Kind: KindContextual, Suffix: s[1:], Unit: unit}, nil
	case strings.Contains(s, ":"):
		d := Declaration{Kind: KindNamed, Unit: unit}
		name := s
		if strings.HasPrefix(name, "-") {
			d.Negated = true
			name = name[1:]
		}
		d.Name = name
		if def != nil {
			// The default is stored unsigned; the sign is applied after
			// substitution, never baked into the default itself.
			d.Default = *def
			d.HasDefault = true
		}
		return d, nil
	default:
		return Declaration{Kind: KindText, Text: s}, nil
	}
}

// Provider supplies numeric values for external variable names. The host
// optimization environment implements this; MapProvider is the plain
// in-process implementation.
type Provider interface {
	Value(name string) (float64, bool)
}

// MapProvider is a Provider backed by a map.
type MapProvider map[string]float64

func (m MapProvider) Value(name string) (float64, bool) {
	v, ok := m[name]
	return v, ok
}

// ExternalName returns the fully qualified external variable name a
// declaration refers to in the given context for the given parameter, or
// ok=false for declarations with no external reference.
func (d Declaration) ExternalName(ctx Context, param string) (string, bool) {
	switch d.Kind {
	case KindNamed:
		return d.Name, true
	case KindContextual:
		suffix := d.Suffix
		if suffix == "" {
			suffix = param
		}
		return ctx.Qualify(suffix), true
	default:
		return "", false
	}
}

// Resolve produces the concrete SI value of a declaration for the given
// parameter dimension. Dimension mismatches fail here, at resolution time,
// never during stepping.
func (d Declaration) Resolve(ctx Context, param string, dim measure.Dimension, p Provider) (float64, error) {
	if d.Unit != "" && !measure.Compatible(d.Unit, dim) {
		return 0, simerr.Configf(ctx.Path(param),
			"unit %q is not compatible with %s", d.Unit, dim)
	}

	switch d.Kind {
	case KindLiteral:
		si, _, err := measure.ToSI(d.Value, d.Unit)
		if err != nil {
			return 0, simerr.Configf(ctx.Path(param), "%v", err)
		}
		return si, nil

	case KindNamed, KindContextual:
		name, _ := d.ExternalName(ctx, param)
		raw, ok := 0.0, false
		if p != nil {
			raw, ok = p.Value(name)
		}
		if !ok {
			if !d.HasDefault {
				return 0, simerr.Configf(ctx.Path(param),
					"external variable %q has no value and no default", name)
			}
			raw = d.Default
		}
		si, _, err := measure.ToSI(raw, d.Unit)
		if err != nil {
			return 0, simerr.Configf(ctx.Path(param), "%v", err)
		}
		if d.Negated {
			si = -si
		}
		return si, nil

	case KindConstant:
		return 0, simerr.Configf(ctx.Path(param),
			"the constant marker has no standalone value; it freezes the segment start value")

	case KindText:
		return 0, simerr.Configf(ctx.Path(param),
			"string value %q cannot resolve to a number", d.Text)

	default:
		return 0, simerr.Configf(ctx.Path(param), "unknown declaration kind %d", d.Kind)
	}
}
