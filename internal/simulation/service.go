// Package simulation orchestrates mission computations: it builds a
// mission from the loaded definitions, flies it, persists the run and
// streams progress to WebSocket clients.
package simulation

import (
	"context"
	"sync"
	"time"

	"github.com/aerotools/missim/internal/flight"
	"github.com/aerotools/missim/internal/loader"
	"github.com/aerotools/missim/internal/metrics"
	"github.com/aerotools/missim/internal/storage/sqlite"
	"github.com/aerotools/missim/internal/vars"
	"github.com/aerotools/missim/internal/websocket"
	"github.com/aerotools/missim/pkg/logger"
)

// Stream at most this many flight_point messages per run; dense
// trajectories are decimated, endpoints always go out.
const maxStreamedPoints = 500

// Service manages mission computations
type Service struct {
	loader   *loader.Loader
	storage  *sqlite.RunStorage
	wsServer *websocket.Server
	metrics  *metrics.Collector
	mutex    sync.Mutex
	logger   *logger.Logger
}

// NewService creates a new simulation service
func NewService(ldr *loader.Loader, storage *sqlite.RunStorage, wsServer *websocket.Server, collector *metrics.Collector, log *logger.Logger) *Service {
	return &Service{
		loader:   ldr,
		storage:  storage,
		wsServer: wsServer,
		metrics:  collector,
		logger:   log.Named("simulation"),
	}
}

// MissionIDs lists the missions available for computation.
func (s *Service) MissionIDs() []string {
	return s.loader.MissionIDs()
}

// Compute builds and flies the given mission, persisting the run. The
// overrides shadow the definition file's inline variable values. Runs are
// serialized; the engine itself is single-threaded per mission.
func (s *Service) Compute(ctx context.Context, missionID string, overrides map[string]float64) (*sqlite.Run, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.metrics.RunStarted()
	defer s.metrics.RunFinished()

	started := time.Now()

	runID, err := s.storage.CreateRun(missionID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Starting mission computation",
		logger.String("mission", missionID),
		logger.String("run_id", runID),
		logger.Int("overrides", len(overrides)))

	s.wsServer.Broadcast(&websocket.Message{
		Type: websocket.MessageTypeMissionStarted,
		Data: map[string]any{
			"run_id":  runID,
			"mission": missionID,
		},
	})

	var provider vars.Provider
	if len(overrides) > 0 {
		provider = vars.MapProvider(overrides)
	}

	traj, err := s.fly(ctx, missionID, provider)
	if err != nil {
		s.failRun(runID, missionID, started, err)
		return nil, err
	}

	s.streamTrajectory(runID, traj)

	if err := s.storage.CompleteRun(runID, traj); err != nil {
		s.failRun(runID, missionID, started, err)
		return nil, err
	}

	s.metrics.ObserveRun(missionID, sqlite.StatusCompleted, time.Since(started), traj.Len())

	end := traj.Last()
	s.wsServer.Broadcast(&websocket.Message{
		Type: websocket.MessageTypeMissionCompleted,
		Data: map[string]any{
			"run_id":     runID,
			"mission":    missionID,
			"points":     traj.Len(),
			"duration_s": end.Time - traj[0].Time,
			"distance_m": end.GroundDistance - traj[0].GroundDistance,
			"fuel_kg":    traj[0].Mass - end.Mass,
		},
	})

	run, err := s.storage.GetRun(runID)
	if err != nil {
		return nil, err
	}
	return run, nil
}

// fly builds the mission and computes it, honoring context cancellation
// between the build and the computation.
func (s *Service) fly(ctx context.Context, missionID string, provider vars.Provider) (flight.Trajectory, error) {
	m, start, err := s.loader.BuildMission(missionID, provider)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.Fly(start)
}

func (s *Service) failRun(runID, missionID string, started time.Time, runErr error) {
	s.logger.Error("Mission computation failed",
		logger.String("mission", missionID),
		logger.String("run_id", runID),
		logger.Error(runErr))

	if err := s.storage.FailRun(runID, runErr); err != nil {
		s.logger.Error("Failed to record run failure",
			logger.String("run_id", runID),
			logger.Error(err))
	}
	s.metrics.ObserveRun(missionID, sqlite.StatusFailed, time.Since(started), 0)

	s.wsServer.Broadcast(&websocket.Message{
		Type: websocket.MessageTypeMissionFailed,
		Data: map[string]any{
			"run_id":  runID,
			"mission": missionID,
			"error":   runErr.Error(),
		},
	})
}

// streamTrajectory broadcasts the computed points, decimated to keep the
// stream bounded for long missions.
func (s *Service) streamTrajectory(runID string, traj flight.Trajectory) {
	stride := 1
	if traj.Len() > maxStreamedPoints {
		stride = traj.Len() / maxStreamedPoints
	}
	for i, pt := range traj {
		if i%stride != 0 && i != traj.Len()-1 {
			continue
		}
		s.wsServer.Broadcast(&websocket.Message{
			Type: websocket.MessageTypeFlightPoint,
			Data: map[string]any{
				"run_id":            runID,
				"seq":               i,
				"time_s":            pt.Time,
				"altitude_m":        pt.Altitude,
				"ground_distance_m": pt.GroundDistance,
				"mass_kg":           pt.Mass,
				"true_airspeed_ms":  pt.TrueAirspeed,
				"mach":              pt.Mach,
				"segment":           pt.SegmentName,
				"phase":             pt.PhaseName,
			},
		})
	}
}

// GetRun returns a persisted run summary.
func (s *Service) GetRun(id string) (*sqlite.Run, error) {
	return s.storage.GetRun(id)
}

// GetRunPoints returns the persisted trajectory of a run.
func (s *Service) GetRunPoints(id string) (flight.Trajectory, error) {
	return s.storage.GetRunPoints(id)
}

// ListRuns returns recent runs, newest first.
func (s *Service) ListRuns(limit int) ([]*sqlite.Run, error) {
	return s.storage.ListRuns(limit)
}
