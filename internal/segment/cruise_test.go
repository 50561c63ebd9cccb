package segment

import (
	"errors"
	"testing"

	"github.com/aerotools/missim/internal/flight"
	"github.com/aerotools/missim/internal/propulsion"
	"github.com/aerotools/missim/internal/simerr"
)

func TestCruiseCoversDistanceExactly(t *testing.T) {
	cfg := testConfig(t, "cruise")
	cfg.EngineSetting = propulsion.SettingCruise
	cfg.Target = flight.NewTarget().Set(flight.GroundDistance, 100000, flight.Relative)

	seg, err := New(KindCruise, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	start := startPoint(t, 9000, 60000, flight.Mach, 0.78)
	traj, err := seg.Compute(start)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	end := traj.Last()
	if end.GroundDistance != 100000 {
		t.Errorf("end distance = %v, want exactly 100000", end.GroundDistance)
	}
	if end.Altitude != 9000 {
		t.Errorf("altitude drifted to %v during cruise", end.Altitude)
	}
	if end.Mass >= start.Mass {
		t.Errorf("no fuel burned: end mass %v", end.Mass)
	}
	// Thrust is regulated to balance drag, never saturated.
	for i, pt := range traj[:traj.Len()-1] {
		if pt.ThrustRate <= 0 || pt.ThrustRate >= 1 {
			t.Fatalf("thrust rate %v at step %d, want regulated in (0,1)", pt.ThrustRate, i)
		}
		if !almostEqual(pt.Mach, 0.78, 1e-9) {
			t.Fatalf("held Mach drifted to %v at step %d", pt.Mach, i)
		}
	}
	assertMonotonic(t, traj)
}

func TestCruiseDistanceOffsetsFromStart(t *testing.T) {
	cfg := testConfig(t, "cruise")
	cfg.EngineSetting = propulsion.SettingCruise
	cfg.Target = flight.NewTarget().Set(flight.GroundDistance, 50000, flight.Relative)

	seg, err := New(KindCruise, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	start := startPoint(t, 9000, 60000, flight.Mach, 0.78)
	start.GroundDistance = 200000
	traj, err := seg.Compute(start)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if got := traj.Last().GroundDistance; got != 250000 {
		t.Errorf("end distance = %v, want 250000 (distance is always relative)", got)
	}
}

func TestCruiseZeroDistanceTarget(t *testing.T) {
	cfg := testConfig(t, "cruise")
	cfg.EngineSetting = propulsion.SettingCruise
	cfg.Target = flight.NewTarget().Set(flight.GroundDistance, 0, flight.Relative)

	seg, err := New(KindCruise, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	start := startPoint(t, 9000, 60000, flight.Mach, 0.78)
	start.GroundDistance = 200000
	traj, err := seg.Compute(start)
	if err != nil {
		t.Fatalf("Compute with a zero distance target: %v", err)
	}
	if traj.Len() != 1 {
		t.Fatalf("trajectory has %d points, want the single start point", traj.Len())
	}
	end := traj.Last()
	if end.GroundDistance != 200000 || end.Mass != start.Mass {
		t.Errorf("zero-distance cruise must not step: end %+v", end)
	}
}

func TestCruiseInsufficientThrust(t *testing.T) {
	cfg := testConfig(t, "cruise")
	cfg.EngineSetting = propulsion.SettingCruise
	cfg.Propulsion = &propulsion.Turbofan{MaxThrust: 30000, CruiseSFC: 1.7e-5}
	cfg.Target = flight.NewTarget().Set(flight.GroundDistance, 100000, flight.Relative)

	seg, err := New(KindCruise, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = seg.Compute(startPoint(t, 9000, 60000, flight.Mach, 0.78))
	var unreachable *simerr.TargetUnreachableError
	if !errors.As(err, &unreachable) {
		t.Fatalf("error = %v, want TargetUnreachableError", err)
	}
}

func TestCruiseOptimalFlightLevelClimbsFirst(t *testing.T) {
	cfg := testConfig(t, "cruise_ofl")
	cfg.EngineSetting = propulsion.SettingCruise
	cfg.OptimalAltitude = true
	cfg.Target = flight.NewTarget().Set(flight.GroundDistance, 300000, flight.Relative)
	cfg.Tuning.TimeStep = 5 // coarsen the candidate evaluations

	seg, err := New(KindCruise, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	start := startPoint(t, 6000, 60000, flight.Mach, 0.78)
	traj, err := seg.Compute(start)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	end := traj.Last()
	if end.GroundDistance != 300000 {
		t.Errorf("end distance = %v, want exactly 300000", end.GroundDistance)
	}
	if end.Altitude <= start.Altitude {
		t.Errorf("optimal flight level %v not above start altitude %v", end.Altitude, start.Altitude)
	}
}

func TestCruiseConfigErrors(t *testing.T) {
	tests := []struct {
		name   string
		target *flight.Target
	}{
		{"nil target", nil},
		{"no distance", flight.NewTarget().Set(flight.Time, 600, flight.Relative)},
		{"constant distance", flight.NewTarget().SetConstant(flight.GroundDistance)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t, "bad")
			cfg.Target = tt.target
			_, err := New(KindCruise, cfg)
			var confErr *simerr.ConfigurationError
			if !errors.As(err, &confErr) {
				t.Fatalf("error = %v, want ConfigurationError", err)
			}
		})
	}
}

func TestOptimalCruiseTracksAltitudeUp(t *testing.T) {
	cfg := testConfig(t, "opt_cruise")
	cfg.EngineSetting = propulsion.SettingCruise
	cfg.Target = flight.NewTarget().Set(flight.GroundDistance, 150000, flight.Relative)

	seg, err := New(KindOptimalCruise, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	start := startPoint(t, 9000, 60000, flight.Mach, 0.78)
	traj, err := seg.Compute(start)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	end := traj.Last()
	if end.GroundDistance != 150000 {
		t.Errorf("end distance = %v, want exactly 150000", end.GroundDistance)
	}
	// As mass burns off, the best lift-to-drag altitude keeps rising.
	if end.Altitude < traj[0].Altitude {
		t.Errorf("optimal altitude fell from %v to %v despite mass loss",
			traj[0].Altitude, end.Altitude)
	}
	assertMonotonic(t, traj)
}
