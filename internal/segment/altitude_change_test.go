package segment

import (
	"errors"
	"testing"

	"github.com/aerotools/missim/internal/flight"
	"github.com/aerotools/missim/internal/propulsion"
	"github.com/aerotools/missim/internal/simerr"
)

func TestAltitudeChangeClimbsExactly(t *testing.T) {
	cfg := testConfig(t, "climb")
	cfg.EngineSetting = propulsion.SettingClimb
	cfg.ThrustRate = 1.0
	cfg.Target = flight.NewTarget().
		Set(flight.Altitude, 3000, flight.Absolute).
		SetConstant(flight.EquivalentAirspeed)

	seg, err := New(KindAltitudeChange, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	start := startPoint(t, 0, 60000, flight.EquivalentAirspeed, 140)
	traj, err := seg.Compute(start)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	end := traj.Last()
	if end.Altitude != 3000 {
		t.Errorf("end altitude = %v, want exactly 3000", end.Altitude)
	}
	if !almostEqual(end.EquivalentAirspeed, 140, 1e-6) {
		t.Errorf("held EAS drifted to %v", end.EquivalentAirspeed)
	}
	if end.TrueAirspeed <= 140 {
		t.Errorf("TAS at 3000 m = %v, must exceed the held EAS", end.TrueAirspeed)
	}
	for i := 1; i < traj.Len(); i++ {
		if traj[i].Altitude < traj[i-1].Altitude {
			t.Fatalf("altitude decreases at step %d during climb", i)
		}
		if traj[i-1].SlopeAngle > maxSlope+1e-12 {
			t.Fatalf("slope %v exceeds cap at step %d", traj[i-1].SlopeAngle, i-1)
		}
	}
	assertMonotonic(t, traj)
}

func TestAltitudeChangeDescends(t *testing.T) {
	cfg := testConfig(t, "descent")
	cfg.EngineSetting = propulsion.SettingIdle
	cfg.ThrustRate = 0
	cfg.Target = flight.NewTarget().
		Set(flight.Altitude, 1000, flight.Absolute).
		SetConstant(flight.EquivalentAirspeed)

	seg, err := New(KindAltitudeChange, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	traj, err := seg.Compute(startPoint(t, 3000, 58000, flight.EquivalentAirspeed, 150))
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	end := traj.Last()
	if end.Altitude != 1000 {
		t.Errorf("end altitude = %v, want exactly 1000", end.Altitude)
	}
	for i := 1; i < traj.Len()-1; i++ {
		if traj[i].Altitude > traj[i-1].Altitude {
			t.Fatalf("altitude increases at step %d during descent", i)
		}
	}
}

func TestAltitudeChangeInsufficientThrust(t *testing.T) {
	cfg := testConfig(t, "climb")
	cfg.EngineSetting = propulsion.SettingClimb
	cfg.ThrustRate = 0 // no thrust, no climb
	cfg.Target = flight.NewTarget().
		Set(flight.Altitude, 5000, flight.Absolute).
		SetConstant(flight.EquivalentAirspeed)

	seg, err := New(KindAltitudeChange, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = seg.Compute(startPoint(t, 0, 60000, flight.EquivalentAirspeed, 140))
	var unreachable *simerr.TargetUnreachableError
	if !errors.As(err, &unreachable) {
		t.Fatalf("error = %v, want TargetUnreachableError", err)
	}
}

func TestAltitudeChangeExcessThrustPreventsDescent(t *testing.T) {
	cfg := testConfig(t, "descent")
	cfg.EngineSetting = propulsion.SettingClimb
	cfg.ThrustRate = 1.0
	cfg.Target = flight.NewTarget().
		Set(flight.Altitude, 500, flight.Absolute).
		SetConstant(flight.EquivalentAirspeed)

	seg, err := New(KindAltitudeChange, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = seg.Compute(startPoint(t, 3000, 60000, flight.EquivalentAirspeed, 150))
	var unreachable *simerr.TargetUnreachableError
	if !errors.As(err, &unreachable) {
		t.Fatalf("error = %v, want TargetUnreachableError", err)
	}
}

func TestAltitudeChangeClimbsToMachCrossing(t *testing.T) {
	// Climbing at constant EAS, Mach grows with altitude; the segment
	// terminates when the declared Mach is crossed.
	cfg := testConfig(t, "accel_climb")
	cfg.EngineSetting = propulsion.SettingClimb
	cfg.ThrustRate = 1.0
	cfg.Target = flight.NewTarget().Set(flight.Mach, 0.5, flight.Absolute)

	seg, err := New(KindAltitudeChange, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	start := startPoint(t, 0, 60000, flight.EquivalentAirspeed, 150)
	traj, err := seg.Compute(start)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	end := traj.Last()
	if end.Mach != 0.5 {
		t.Errorf("end Mach = %v, want exactly 0.5", end.Mach)
	}
	if end.Altitude < 1500 || end.Altitude > 3000 {
		t.Errorf("Mach 0.5 crossing at %v m, expected between 1500 and 3000", end.Altitude)
	}
}

func TestAltitudeChangeAlreadyAtTarget(t *testing.T) {
	cfg := testConfig(t, "level")
	cfg.EngineSetting = propulsion.SettingClimb
	cfg.ThrustRate = 1.0
	cfg.Target = flight.NewTarget().
		Set(flight.Altitude, 3000, flight.Absolute).
		SetConstant(flight.EquivalentAirspeed)

	seg, err := New(KindAltitudeChange, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	traj, err := seg.Compute(startPoint(t, 3000, 60000, flight.EquivalentAirspeed, 150))
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if traj.Len() != 1 {
		t.Errorf("trajectory has %d points, want 1 when already at target", traj.Len())
	}
}

func TestAltitudeChangeConfigErrors(t *testing.T) {
	tests := []struct {
		name   string
		target *flight.Target
	}{
		{"no terminating parameter", flight.NewTarget().SetConstant(flight.Mach)},
		{"constant altitude", flight.NewTarget().SetConstant(flight.Altitude)},
		{"two target speeds", flight.NewTarget().
			Set(flight.Mach, 0.5, flight.Absolute).
			Set(flight.TrueAirspeed, 180, flight.Absolute)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t, "bad")
			cfg.Target = tt.target
			_, err := New(KindAltitudeChange, cfg)
			var confErr *simerr.ConfigurationError
			if !errors.As(err, &confErr) {
				t.Fatalf("error = %v, want ConfigurationError", err)
			}
		})
	}
}
