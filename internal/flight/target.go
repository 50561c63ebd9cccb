package flight

import (
	"math"
	"sort"
	"strings"

	"github.com/aerotools/missim/internal/simerr"
)

// Mode is how a declared target value is interpreted against the segment
// start point.
type Mode int

const (
	// Absolute: reach target.value.
	Absolute Mode = iota
	// Relative: reach start.value + target.value.
	Relative
	// Constant: freeze at the start value, enforced at every step.
	Constant
)

func (m Mode) String() string {
	switch m {
	case Absolute:
		return "absolute"
	case Relative:
		return "relative"
	case Constant:
		return "constant"
	default:
		return "unknown"
	}
}

// Entry is one declared target parameter.
type Entry struct {
	Value float64
	Mode  Mode
}

// Target is the stopping condition of a segment: a set of declared
// parameters, AND-combined. ground_distance and time are always relative
// regardless of how they were declared; every other parameter defaults to
// absolute unless declared with a "delta_" prefix or the "constant"
// literal.
type Target struct {
	entries map[Param]Entry
}

// alwaysRelative are the parameters that use the relative rule even
// without a delta_ prefix.
var alwaysRelative = map[Param]bool{
	GroundDistance: true,
	Time:           true,
}

// NewTarget builds an empty target. Use Set / SetConstant to declare
// parameters.
func NewTarget() *Target {
	return &Target{entries: make(map[Param]Entry)}
}

// ParseParam splits a raw declared parameter name into the underlying
// parameter and its mode: a "delta_" prefix declares a relative target.
func ParseParam(raw string) (Param, Mode) {
	if name, ok := strings.CutPrefix(raw, "delta_"); ok {
		return Param(name), Relative
	}
	p := Param(raw)
	if alwaysRelative[p] {
		return p, Relative
	}
	return p, Absolute
}

// Set declares a target parameter. The always-relative rule for
// ground_distance and time is applied here, whatever mode the caller
// passes.
func (t *Target) Set(param Param, value float64, mode Mode) *Target {
	if alwaysRelative[param] && mode != Constant {
		mode = Relative
	}
	t.entries[param] = Entry{Value: value, Mode: mode}
	return t
}

// SetConstant freezes a parameter at its segment start value.
func (t *Target) SetConstant(param Param) *Target {
	t.entries[param] = Entry{Mode: Constant}
	return t
}

// Get returns the declared entry for a parameter.
func (t *Target) Get(param Param) (Entry, bool) {
	e, ok := t.entries[param]
	return e, ok
}

// Has reports whether the parameter is declared at all.
func (t *Target) Has(param Param) bool {
	_, ok := t.entries[param]
	return ok
}

// IsConstant reports whether the parameter is frozen at its start value.
func (t *Target) IsConstant(param Param) bool {
	e, ok := t.entries[param]
	return ok && e.Mode == Constant
}

// Params returns the declared parameters in stable order.
func (t *Target) Params() []Param {
	out := make([]Param, 0, len(t.entries))
	for p := range t.entries {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Effective returns the absolute value the parameter must reach, given
// the segment start point.
func (t *Target) Effective(param Param, start Point) (float64, error) {
	e, ok := t.entries[param]
	if !ok {
		return 0, simerr.Configf(string(param), "parameter is not declared in target")
	}
	startVal, err := start.Value(param)
	if err != nil {
		return 0, err
	}
	switch e.Mode {
	case Absolute:
		return e.Value, nil
	case Relative:
		// Mass deltas follow the loss convention: a positive delta_mass is
		// mass consumed, so a negative delta is a mass gain.
		if param == Mass {
			return startVal - e.Value, nil
		}
		return startVal + e.Value, nil
	case Constant:
		return startVal, nil
	default:
		return 0, simerr.Configf(string(param), "unknown target mode %d", e.Mode)
	}
}

// Remaining returns the signed delta from current to the effective target
// value of the parameter.
func (t *Target) Remaining(current, start Point, param Param) (float64, error) {
	eff, err := t.Effective(param, start)
	if err != nil {
		return 0, err
	}
	cur, err := current.Value(param)
	if err != nil {
		return 0, err
	}
	return eff - cur, nil
}

// IsReached reports whether every declared, non-frozen parameter is within
// tol of its effective value. tol is interpreted as a relative tolerance
// against the effective value, with an absolute floor for values near
// zero.
func (t *Target) IsReached(current, start Point, tol float64) (bool, error) {
	for p, e := range t.entries {
		if e.Mode == Constant {
			continue
		}
		rem, err := t.Remaining(current, start, p)
		if err != nil {
			return false, err
		}
		eff, _ := t.Effective(p, start)
		scale := math.Max(math.Abs(eff), 1.0)
		if math.Abs(rem) > tol*scale {
			return false, nil
		}
	}
	return true, nil
}

// DegreesOfFreedom counts declared non-frozen parameters, used by segment
// constructors to reject ambiguous targets before simulation starts.
func (t *Target) DegreesOfFreedom() int {
	n := 0
	for _, e := range t.entries {
		if e.Mode != Constant {
			n++
		}
	}
	return n
}

// ConstrainedSpeed returns the speed parameter frozen by a Constant entry,
// if any.
func (t *Target) ConstrainedSpeed() (Param, bool) {
	for _, s := range SpeedParams {
		if t.IsConstant(s) {
			return s, true
		}
	}
	return "", false
}
