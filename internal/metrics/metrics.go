// Package metrics bundles the Prometheus collectors for the mission
// computation surface and exposes a ready-to-use /metrics handler.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the Prometheus metrics of the mission engine.
type Collector struct {
	gatherer prometheus.Gatherer

	RunsTotal    *prometheus.CounterVec
	RunDurations *prometheus.HistogramVec

	PointsPersisted prometheus.Counter
	ActiveRuns      prometheus.Gauge
}

// NewCollector registers the mission metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mission_runs_total",
		Help: "Total number of mission computations, labeled by mission id and outcome.",
	}, []string{"mission", "status"})
	runs, err := registerCounterVec(reg, runs, "mission_runs_total")
	if err != nil {
		return nil, err
	}

	durations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mission_run_duration_seconds",
		Help:    "Wall-clock duration of mission computations in seconds.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"mission"})
	durations, err = registerHistogramVec(reg, durations, "mission_run_duration_seconds")
	if err != nil {
		return nil, err
	}

	points, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mission_points_persisted_total",
		Help: "Total number of trajectory points written to storage.",
	}), "mission_points_persisted_total")
	if err != nil {
		return nil, err
	}

	active, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mission_active_runs",
		Help: "Number of mission computations currently in flight.",
	}), "mission_active_runs")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:        gatherer,
		RunsTotal:       runs,
		RunDurations:    durations,
		PointsPersisted: points,
		ActiveRuns:      active,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// ObserveRun records a finished computation. The collector tolerates being
// nil so callers never have to guard their instrumentation.
func (c *Collector) ObserveRun(missionID, status string, elapsed time.Duration, points int) {
	if c == nil {
		return
	}
	if c.RunsTotal != nil {
		c.RunsTotal.WithLabelValues(missionID, status).Inc()
	}
	if c.RunDurations != nil {
		c.RunDurations.WithLabelValues(missionID).Observe(elapsed.Seconds())
	}
	if c.PointsPersisted != nil && points > 0 {
		c.PointsPersisted.Add(float64(points))
	}
}

// RunStarted and RunFinished drive the in-flight gauge.
func (c *Collector) RunStarted() {
	if c != nil && c.ActiveRuns != nil {
		c.ActiveRuns.Inc()
	}
}

func (c *Collector) RunFinished() {
	if c != nil && c.ActiveRuns != nil {
		c.ActiveRuns.Dec()
	}
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
