package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}

	c.ObserveRun("sizing", "completed", 120*time.Millisecond, 500)
	c.ObserveRun("sizing", "completed", 80*time.Millisecond, 300)
	c.ObserveRun("sizing", "failed", 5*time.Millisecond, 0)

	if got := testutil.ToFloat64(c.RunsTotal.WithLabelValues("sizing", "completed")); got != 2 {
		t.Errorf("completed runs = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.RunsTotal.WithLabelValues("sizing", "failed")); got != 1 {
		t.Errorf("failed runs = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.PointsPersisted); got != 800 {
		t.Errorf("points persisted = %v, want 800", got)
	}
}

func TestActiveRunsGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}

	c.RunStarted()
	c.RunStarted()
	if got := testutil.ToFloat64(c.ActiveRuns); got != 2 {
		t.Errorf("active runs = %v, want 2", got)
	}
	c.RunFinished()
	if got := testutil.ToFloat64(c.ActiveRuns); got != 1 {
		t.Errorf("active runs = %v, want 1", got)
	}
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	c.ObserveRun("m", "completed", time.Second, 10)
	c.RunStarted()
	c.RunFinished()
}

func TestReregistrationReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	second, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector (again): %v", err)
	}

	first.ObserveRun("m", "completed", time.Second, 0)
	second.ObserveRun("m", "completed", time.Second, 0)
	if got := testutil.ToFloat64(first.RunsTotal.WithLabelValues("m", "completed")); got != 2 {
		t.Errorf("runs = %v, want 2 shared across collectors", got)
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	c.ObserveRun("sizing", "completed", 50*time.Millisecond, 42)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		"mission_runs_total",
		"mission_run_duration_seconds",
		"mission_points_persisted_total",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output is missing %s", want)
		}
	}
}
