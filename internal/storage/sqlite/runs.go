// Package sqlite persists mission computation runs and their trajectories.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/aerotools/missim/internal/flight"
	"github.com/aerotools/missim/pkg/logger"
)

// Run represents one mission computation, successful or not.
type Run struct {
	ID          string     `json:"id"`
	MissionID   string     `json:"mission_id"`
	Status      string     `json:"status"` // "completed" or "failed"
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	DurationS   float64    `json:"duration_s"`
	DistanceM   float64    `json:"distance_m"`
	FuelKg      float64    `json:"fuel_kg"`
	Points      int        `json:"points"`
}

// Run status values.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// RunStorage is a SQLite-based storage for mission runs
type RunStorage struct {
	db             *sql.DB
	logger         *logger.Logger
	maxPointsInAPI int
}

// NewRunStorage creates a new SQLite-based run storage
func NewRunStorage(dbPath string, maxPointsInAPI int, log *logger.Logger) (*RunStorage, error) {
	storageLogger := log.Named("sqlite")

	storageLogger.Info("Initializing SQLite storage",
		logger.String("path", dbPath))

	// Open the database
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool limits
	db.SetMaxOpenConns(1) // SQLite only supports one writer at a time
	db.SetMaxIdleConns(1)

	// Set pragmas for better performance and concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA cache_size=10000"); err != nil {
		return nil, fmt.Errorf("failed to set cache size: %w", err)
	}

	// Create tables if they don't exist
	if err := initDatabase(db, storageLogger); err != nil {
		db.Close()
		return nil, err
	}

	storage := &RunStorage{
		db:             db,
		logger:         storageLogger,
		maxPointsInAPI: maxPointsInAPI,
	}

	return storage, nil
}

// Close closes the database connection
func (s *RunStorage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// GetDB returns the database connection
func (s *RunStorage) GetDB() *sql.DB {
	return s.db
}

// initDatabase initializes the database schema
func initDatabase(db *sql.DB, log *logger.Logger) error {
	log.Info("Initializing database schema")

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			mission_id TEXT NOT NULL,
			status TEXT NOT NULL,
			error TEXT,
			created_at TIMESTAMP NOT NULL,
			completed_at TIMESTAMP,
			duration_s REAL DEFAULT 0,
			distance_m REAL DEFAULT 0,
			fuel_kg REAL DEFAULT 0,
			points INTEGER DEFAULT 0
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create runs table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS flight_points (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			time_s REAL,
			altitude_m REAL,
			ground_distance_m REAL,
			mass_kg REAL,
			true_airspeed_ms REAL,
			equivalent_airspeed_ms REAL,
			mach REAL,
			thrust_rate REAL,
			thrust_n REAL,
			drag_n REAL,
			cl REAL,
			cd REAL,
			slope_rad REAL,
			engine_setting TEXT,
			segment_name TEXT,
			phase_name TEXT,
			FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE,
			UNIQUE(run_id, seq)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create flight_points table: %w", err)
	}

	// Create indexes for efficient querying
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_flight_points_run_seq ON flight_points(run_id, seq)`)
	if err != nil {
		return fmt.Errorf("failed to create index on flight_points.run_seq: %w", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_runs_mission_created ON runs(mission_id, created_at DESC)`)
	if err != nil {
		return fmt.Errorf("failed to create index on runs.mission_created: %w", err)
	}

	log.Info("Database schema initialized successfully")
	return nil
}

// CreateRun inserts a new run in pending state and returns its id.
func (s *RunStorage) CreateRun(missionID string) (string, error) {
	id := fmt.Sprintf("run-%d", time.Now().UnixNano())
	createdAt := time.Now().UTC().Format(time.RFC3339)

	_, err := s.db.Exec(`
		INSERT INTO runs (id, mission_id, status, created_at)
		VALUES (?, ?, 'pending', ?)
	`, id, missionID, createdAt)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}
	return id, nil
}

// CompleteRun marks a run as completed, stores its summary and persists the
// trajectory in a single transaction.
func (s *RunStorage) CompleteRun(id string, traj flight.Trajectory) error {
	if traj.Len() == 0 {
		return fmt.Errorf("cannot complete run %s with an empty trajectory", id)
	}
	start := time.Now()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO flight_points (
			run_id, seq, time_s, altitude_m, ground_distance_m, mass_kg,
			true_airspeed_ms, equivalent_airspeed_ms, mach, thrust_rate,
			thrust_n, drag_n, cl, cd, slope_rad,
			engine_setting, segment_name, phase_name
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare flight_points insert: %w", err)
	}
	defer stmt.Close()

	for i, pt := range traj {
		if _, err := stmt.Exec(
			id, i, pt.Time, pt.Altitude, pt.GroundDistance, pt.Mass,
			pt.TrueAirspeed, pt.EquivalentAirspeed, pt.Mach, pt.ThrustRate,
			pt.Thrust, pt.Drag, pt.CL, pt.CD, pt.SlopeAngle,
			pt.EngineSetting, pt.SegmentName, pt.PhaseName,
		); err != nil {
			return fmt.Errorf("failed to insert flight point %d: %w", i, err)
		}
	}

	first := traj[0]
	last := traj.Last()
	completedAt := time.Now().UTC().Format(time.RFC3339)
	_, err = tx.Exec(`
		UPDATE runs
		SET status = ?, completed_at = ?, duration_s = ?, distance_m = ?, fuel_kg = ?, points = ?
		WHERE id = ?
	`, StatusCompleted, completedAt,
		last.Time-first.Time, last.GroundDistance-first.GroundDistance,
		first.Mass-last.Mass, traj.Len(), id)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}

	s.logger.Debug("Run persisted",
		logger.String("run_id", id),
		logger.Int("points", traj.Len()),
		logger.Duration("duration", time.Since(start)))
	return nil
}

// FailRun marks a run as failed with the given error message.
func (s *RunStorage) FailRun(id string, runErr error) error {
	completedAt := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(`
		UPDATE runs SET status = ?, error = ?, completed_at = ? WHERE id = ?
	`, StatusFailed, runErr.Error(), completedAt, id)
	if err != nil {
		return fmt.Errorf("failed to mark run failed: %w", err)
	}
	return nil
}

// GetRun returns a run summary by id.
func (s *RunStorage) GetRun(id string) (*Run, error) {
	row := s.db.QueryRow(`
		SELECT id, mission_id, status, COALESCE(error, ''), created_at,
		COALESCE(completed_at, ''), duration_s, distance_m, fuel_kg, points
		FROM runs WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *RunStorage) ListRuns(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(`
		SELECT id, mission_id, status, COALESCE(error, ''), created_at,
		COALESCE(completed_at, ''), duration_s, distance_m, fuel_kg, points
		FROM runs ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []*Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run rows: %w", err)
	}
	return runs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var createdAt, completedAt string

	if err := row.Scan(
		&run.ID, &run.MissionID, &run.Status, &run.Error, &createdAt,
		&completedAt, &run.DurationS, &run.DistanceM, &run.FuelKg, &run.Points,
	); err != nil {
		return nil, err
	}

	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at timestamp: %w", err)
	}
	run.CreatedAt = t

	if completedAt != "" {
		ct, err := time.Parse(time.RFC3339, completedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse completed_at timestamp: %w", err)
		}
		run.CompletedAt = &ct
	}
	return &run, nil
}

// GetRunPoints returns the trajectory stored for a run, capped at the
// configured API limit.
func (s *RunStorage) GetRunPoints(id string) (flight.Trajectory, error) {
	rows, err := s.db.Query(`
		SELECT time_s, altitude_m, ground_distance_m, mass_kg,
		true_airspeed_ms, equivalent_airspeed_ms, mach, thrust_rate,
		thrust_n, drag_n, cl, cd, slope_rad,
		COALESCE(engine_setting, ''), COALESCE(segment_name, ''), COALESCE(phase_name, '')
		FROM flight_points WHERE run_id = ? ORDER BY seq LIMIT ?
	`, id, s.maxPointsInAPI)
	if err != nil {
		return nil, fmt.Errorf("failed to query flight points: %w", err)
	}
	defer rows.Close()

	traj := flight.Trajectory{}
	for rows.Next() {
		var pt flight.Point
		if err := rows.Scan(
			&pt.Time, &pt.Altitude, &pt.GroundDistance, &pt.Mass,
			&pt.TrueAirspeed, &pt.EquivalentAirspeed, &pt.Mach, &pt.ThrustRate,
			&pt.Thrust, &pt.Drag, &pt.CL, &pt.CD, &pt.SlopeAngle,
			&pt.EngineSetting, &pt.SegmentName, &pt.PhaseName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan flight point row: %w", err)
		}
		traj = append(traj, pt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating flight point rows: %w", err)
	}
	return traj, nil
}

// PruneRuns deletes runs older than the retention window. A zero or
// negative retention keeps everything.
func (s *RunStorage) PruneRuns(retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays).Format(time.RFC3339)
	res, err := s.db.Exec(`DELETE FROM runs WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		s.logger.Info("Pruned old runs", logger.Int64("deleted", n))
	}
	return n, nil
}
