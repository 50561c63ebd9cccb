package segment

import (
	"math"
	"testing"

	"github.com/aerotools/missim/internal/flight"
	"github.com/aerotools/missim/internal/polar"
	"github.com/aerotools/missim/internal/propulsion"
)

// testPolar builds a sampled parabolic polar CD = 0.02 + 0.05*CL^2, a
// plausible single-aisle shape.
func testPolar(t *testing.T) *polar.Polar {
	t.Helper()
	const cd0, k = 0.02, 0.05
	n := 30
	cl := make([]float64, n+1)
	cd := make([]float64, n+1)
	for i := 0; i <= n; i++ {
		c := float64(i) * 1.5 / float64(n)
		cl[i] = c
		cd[i] = cd0 + k*c*c
	}
	p, err := polar.New(cl, cd)
	if err != nil {
		t.Fatalf("polar.New: %v", err)
	}
	return p
}

func testEngine() propulsion.Model {
	return &propulsion.Turbofan{MaxThrust: 200000, CruiseSFC: 1.7e-5}
}

// testConfig returns a config with the shared aircraft model filled in.
func testConfig(t *testing.T, name string) Config {
	t.Helper()
	return Config{
		Name:          name,
		PhaseName:     "test_phase",
		Polar:         testPolar(t),
		Propulsion:    testEngine(),
		ReferenceArea: 120,
	}
}

// startPoint builds a consistent start state at the given altitude, with
// all three speed representations derived from the driver.
func startPoint(t *testing.T, altM, mass float64, driver flight.Param, speed float64) flight.Point {
	t.Helper()
	pt := flight.Point{Altitude: altM, Mass: mass}
	if err := pt.SetSpeed(driver, speed); err != nil {
		t.Fatalf("SetSpeed(%v, %v): %v", driver, speed, err)
	}
	return pt
}

func TestNewUnknownKind(t *testing.T) {
	if _, err := New("loop_the_loop", testConfig(t, "seg")); err == nil {
		t.Fatal("expected error for unknown segment kind")
	}
}

func TestTuningFillsDefaults(t *testing.T) {
	b := base{Config: Config{Tuning: Tuning{TimeStep: 0.5}}}
	got := b.tuning()
	want := DefaultTuning()
	if got.TimeStep != 0.5 {
		t.Errorf("TimeStep = %v, want explicit 0.5", got.TimeStep)
	}
	if got.TaxiTimeStep != want.TaxiTimeStep {
		t.Errorf("TaxiTimeStep = %v, want default %v", got.TaxiTimeStep, want.TaxiTimeStep)
	}
	if got.Tolerance != want.Tolerance {
		t.Errorf("Tolerance = %v, want default %v", got.Tolerance, want.Tolerance)
	}
	if got.MaxIterations != want.MaxIterations {
		t.Errorf("MaxIterations = %v, want default %v", got.MaxIterations, want.MaxIterations)
	}
	if got.MaxAltitude != want.MaxAltitude {
		t.Errorf("MaxAltitude = %v, want default %v", got.MaxAltitude, want.MaxAltitude)
	}
}

func TestTargetDistance(t *testing.T) {
	b := base{Config: Config{
		Target: flight.NewTarget().Set(flight.GroundDistance, 250000, flight.Relative),
	}}
	d, ok := b.TargetDistance()
	if !ok || d != 250000 {
		t.Errorf("TargetDistance = %v, %v; want 250000, true", d, ok)
	}

	none := base{}
	if _, ok := none.TargetDistance(); ok {
		t.Error("nil target must report no distance")
	}

	timed := base{Config: Config{
		Target: flight.NewTarget().Set(flight.Time, 600, flight.Relative),
	}}
	if _, ok := timed.TargetDistance(); ok {
		t.Error("time-only target must report no distance")
	}
}

func TestValidateCommonRejectsUnknownSetting(t *testing.T) {
	cfg := testConfig(t, "seg")
	cfg.EngineSetting = "warp"
	cfg.Target = flight.NewTarget().Set(flight.TrueAirspeed, 120, flight.Absolute)
	if _, err := New(KindSpeedChange, cfg); err == nil {
		t.Fatal("expected error for unknown engine setting")
	}
}

// assertMonotonic checks the trajectory invariants common to all stepping
// variants: time never decreases, mass never increases.
func assertMonotonic(t *testing.T, traj flight.Trajectory) {
	t.Helper()
	for i := 1; i < traj.Len(); i++ {
		if traj[i].Time < traj[i-1].Time {
			t.Fatalf("time decreases at step %d: %v -> %v", i, traj[i-1].Time, traj[i].Time)
		}
		if traj[i].Mass > traj[i-1].Mass+1e-9 {
			t.Fatalf("mass increases at step %d: %v -> %v", i, traj[i-1].Mass, traj[i].Mass)
		}
	}
}

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}
