package mission

import (
	"errors"
	"strings"
	"testing"

	"github.com/aerotools/missim/internal/flight"
	"github.com/aerotools/missim/internal/polar"
	"github.com/aerotools/missim/internal/propulsion"
	"github.com/aerotools/missim/internal/segment"
	"github.com/aerotools/missim/internal/simerr"
)

// fakePart advances time by a fixed amount, optionally failing.
type fakePart struct {
	name string
	dt   float64
	dist float64
	err  error
}

func (p *fakePart) Label() string { return p.name }

func (p *fakePart) Fly(start flight.Point) (flight.Trajectory, error) {
	if p.err != nil {
		return nil, p.err
	}
	end := start
	end.Time += p.dt
	end.GroundDistance += p.dist
	return flight.Trajectory{start, end}, nil
}

func TestPhaseChainsPartsAndDropsBoundaries(t *testing.T) {
	ph := &Phase{Name: "climb_phase", Parts: []Part{
		&fakePart{name: "a", dt: 10, dist: 1000},
		&fakePart{name: "b", dt: 20, dist: 2000},
		&fakePart{name: "c", dt: 5, dist: 500},
	}}
	traj, err := ph.Fly(flight.Point{Mass: 70000})
	if err != nil {
		t.Fatalf("Fly: %v", err)
	}
	// Each part produces 2 points; shared boundaries collapse.
	if traj.Len() != 4 {
		t.Fatalf("trajectory has %d points, want 4", traj.Len())
	}
	end := traj.Last()
	if end.Time != 35 {
		t.Errorf("end time = %v, want 35", end.Time)
	}
	if end.GroundDistance != 3500 {
		t.Errorf("end distance = %v, want 3500", end.GroundDistance)
	}
}

func TestPhaseAbortsOnFailedPart(t *testing.T) {
	wantErr := errors.New("engine trouble")
	ph := &Phase{Name: "p", Parts: []Part{
		&fakePart{name: "ok", dt: 10},
		&fakePart{name: "broken", err: wantErr},
		&fakePart{name: "never_flown", dt: 10},
	}}
	_, err := ph.Fly(flight.Point{})
	if err == nil {
		t.Fatal("expected failure from broken part")
	}
	if !errors.Is(err, wantErr) {
		t.Errorf("error chain lost the cause: %v", err)
	}
	if !strings.Contains(err.Error(), `part "broken"`) {
		t.Errorf("error %q does not name the failed part", err)
	}
}

func TestMissionWrapsErrorWithID(t *testing.T) {
	m := &Mission{ID: "sizing_mission", Parts: []Part{
		&fakePart{name: "bad", err: errors.New("boom")},
	}}
	_, err := m.Fly(flight.Point{})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), `mission "sizing_mission"`) {
		t.Errorf("error %q does not name the mission", err)
	}
}

func TestMissionFliesNestedComposition(t *testing.T) {
	m := &Mission{ID: "m", Parts: []Part{
		&Phase{Name: "departure", Parts: []Part{&fakePart{name: "a", dt: 10, dist: 100}}},
		&Route{Name: "enroute", Parts: []Part{&fakePart{name: "b", dt: 20, dist: 200}}},
	}}
	traj, err := m.Fly(flight.Point{Mass: 60000})
	if err != nil {
		t.Fatalf("Fly: %v", err)
	}
	end := traj.Last()
	if end.Time != 30 || end.GroundDistance != 300 {
		t.Errorf("end time/distance = %v/%v, want 30/300", end.Time, end.GroundDistance)
	}
}

// cruiseConfig builds a real cruise segment configuration for the route
// absorber tests.
func cruiseConfig(t *testing.T, name string) segment.Config {
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
	return segment.Config{
		Name:          name,
		Polar:         p,
		Propulsion:    &propulsion.Turbofan{MaxThrust: 200000, CruiseSFC: 1.7e-5},
		EngineSetting: propulsion.SettingCruise,
		ReferenceArea: 120,
	}
}

func cruisePoint(t *testing.T) flight.Point {
	t.Helper()
	pt := flight.Point{Altitude: 9000, Mass: 60000}
	if err := pt.SetSpeed(flight.Mach, 0.78); err != nil {
		t.Fatalf("SetSpeed: %v", err)
	}
	return pt
}

func TestRouteAbsorberReceivesRangeRemainder(t *testing.T) {
	// A 100 km route with a declared 30 km cruise after the absorber: the
	// absorber flies the remaining 70 km.
	declaredCfg := cruiseConfig(t, "final_leg")
	declaredCfg.Target = flight.NewTarget().Set(flight.GroundDistance, 30000, flight.Relative)
	declared, err := segment.New(segment.KindCruise, declaredCfg)
	if err != nil {
		t.Fatalf("segment.New: %v", err)
	}

	r := &Route{
		Name:  "enroute",
		Range: 100000,
		Parts: []Part{
			&AbsorberPart{Kind: segment.KindCruise, Cfg: cruiseConfig(t, "main_leg")},
			&SegmentPart{Seg: declared},
		},
	}
	traj, err := r.Fly(cruisePoint(t))
	if err != nil {
		t.Fatalf("Fly: %v", err)
	}
	if got := traj.Last().GroundDistance; got != 100000 {
		t.Errorf("route end distance = %v, want exactly 100000", got)
	}
	// The absorber hands over at the remainder boundary.
	var handover float64
	for _, pt := range traj {
		if pt.SegmentName == "main_leg" {
			handover = pt.GroundDistance
		}
	}
	if handover != 70000 {
		t.Errorf("absorber stopped at %v, want 70000 (range minus declared legs)", handover)
	}
}

func TestRouteAbsorberInsidePhase(t *testing.T) {
	// The absorber sits inside a phase and a declared 30 km leg follows
	// the phase; the nested absorber still receives the 70 km remainder.
	declaredCfg := cruiseConfig(t, "final_leg")
	declaredCfg.Target = flight.NewTarget().Set(flight.GroundDistance, 30000, flight.Relative)
	declared, err := segment.New(segment.KindCruise, declaredCfg)
	if err != nil {
		t.Fatalf("segment.New: %v", err)
	}

	r := &Route{
		Name:  "enroute",
		Range: 100000,
		Parts: []Part{
			&Phase{Name: "cruise_phase", Parts: []Part{
				&AbsorberPart{Kind: segment.KindCruise, Cfg: cruiseConfig(t, "main_leg")},
			}},
			&SegmentPart{Seg: declared},
		},
	}
	traj, err := r.Fly(cruisePoint(t))
	if err != nil {
		t.Fatalf("Fly: %v", err)
	}
	if got := traj.Last().GroundDistance; got != 100000 {
		t.Errorf("route end distance = %v, want exactly 100000", got)
	}
	var handover float64
	for _, pt := range traj {
		if pt.SegmentName == "main_leg" {
			handover = pt.GroundDistance
		}
	}
	if handover != 70000 {
		t.Errorf("phase-nested absorber stopped at %v, want 70000", handover)
	}
}

func TestRouteRangeExhaustedBeforeAbsorber(t *testing.T) {
	declaredCfg := cruiseConfig(t, "long_leg")
	declaredCfg.Target = flight.NewTarget().Set(flight.GroundDistance, 120000, flight.Relative)
	declared, err := segment.New(segment.KindCruise, declaredCfg)
	if err != nil {
		t.Fatalf("segment.New: %v", err)
	}

	r := &Route{
		Name:  "enroute",
		Range: 100000,
		Parts: []Part{
			&AbsorberPart{Kind: segment.KindCruise, Cfg: cruiseConfig(t, "main_leg")},
			&SegmentPart{Seg: declared},
		},
	}
	_, err = r.Fly(cruisePoint(t))
	var confErr *simerr.ConfigurationError
	if !errors.As(err, &confErr) {
		t.Fatalf("error = %v, want ConfigurationError when nothing remains to absorb", err)
	}
}

func TestAbsorberOutsideRangedRoute(t *testing.T) {
	a := &AbsorberPart{Kind: segment.KindCruise, Cfg: cruiseConfig(t, "orphan")}
	_, err := a.Fly(cruisePoint(t))
	var confErr *simerr.ConfigurationError
	if !errors.As(err, &confErr) {
		t.Fatalf("error = %v, want ConfigurationError", err)
	}
}
