// Package simerr defines the error taxonomy shared by the mission
// computation core. Configuration problems are detected eagerly, before
// any simulation step; physical infeasibility and numeric failures are
// raised from inside the stepping loops.
package simerr

import "fmt"

// ConfigurationError reports a bad or ambiguous declaration (unknown
// engine setting, invalid polar, over- or under-constrained target,
// unit/dimension mismatch). It is never retried.
type ConfigurationError struct {
	Path   string // declaration path, e.g. "mission_1:route_A:phase_a:thrust_rate"
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("configuration error: %s", e.Reason)
	}
	return fmt.Sprintf("configuration error at %s: %s", e.Path, e.Reason)
}

// Configf builds a ConfigurationError with a formatted reason.
func Configf(path, format string, args ...any) error {
	return &ConfigurationError{Path: path, Reason: fmt.Sprintf(format, args...)}
}

// TargetUnreachableError reports physical infeasibility discovered during
// stepping: thrust/drag imbalance preventing progress, fuel exhaustion
// before the target, or an exceeded iteration budget.
type TargetUnreachableError struct {
	Segment string
	Reason  string
}

func (e *TargetUnreachableError) Error() string {
	return fmt.Sprintf("target unreachable in segment %q: %s", e.Segment, e.Reason)
}

// Unreachablef builds a TargetUnreachableError with a formatted reason.
func Unreachablef(segment, format string, args ...any) error {
	return &TargetUnreachableError{Segment: segment, Reason: fmt.Sprintf(format, args...)}
}

// NumericDivergenceError reports a root search (optimal altitude, cruise
// level selection) that failed to converge within its bounds.
type NumericDivergenceError struct {
	Segment string
	Reason  string
}

func (e *NumericDivergenceError) Error() string {
	return fmt.Sprintf("numeric divergence in segment %q: %s", e.Segment, e.Reason)
}

// Divergef builds a NumericDivergenceError with a formatted reason.
func Divergef(segment, format string, args ...any) error {
	return &NumericDivergenceError{Segment: segment, Reason: fmt.Sprintf(format, args...)}
}
