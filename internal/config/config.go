// Package config loads the application configuration from a toml file
// and validates it before anything else starts.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/aerotools/missim/internal/segment"
)

// Config represents the main application configuration structure
// containing all configuration sections
type Config struct {
	Server     ServerConfig     `toml:"server"`     // HTTP server settings
	Logging    LoggingConfig    `toml:"logging"`    // Application logging settings
	Storage    StorageConfig    `toml:"storage"`    // Data persistence settings
	Missions   MissionsConfig   `toml:"missions"`   // Mission definition file settings
	Simulation SimulationConfig `toml:"simulation"` // Numeric tuning of the stepping loops
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port               int      `toml:"port"`                  // Primary HTTP port for the server
	Host               string   `toml:"host"`                  // Host address to bind to (e.g., 127.0.0.1 for localhost only, 0.0.0.0 for all interfaces)
	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`  // List of origins allowed for CORS requests (use ["*"] for all origins)
	ReadTimeoutSecs    int      `toml:"read_timeout_seconds"`  // Maximum duration for reading the entire request (0 = no timeout)
	WriteTimeoutSecs   int      `toml:"write_timeout_seconds"` // Maximum duration for writing the response (0 = no timeout, recommended for streaming)
	IdleTimeoutSecs    int      `toml:"idle_timeout_seconds"`  // Maximum duration to wait for the next request when keep-alives are enabled
}

// LoggingConfig contains application logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`  // Log level: "debug", "info", "warn", or "error"
	Format string `toml:"format"` // Log format: "json" (structured) or "console" (human-readable)
}

// StorageConfig contains data persistence configuration
type StorageConfig struct {
	Type            string `toml:"type"`               // Storage backend type (currently only "sqlite" is supported)
	SQLiteBasePath  string `toml:"sqlite_base_path"`   // Base path for SQLite database files (actual filename will be generated as missim-YYYY-MM-DD.db)
	MaxPointsInAPI  int    `toml:"max_points_in_api"`  // Maximum number of trajectory points to return in a run response
	PersistRunsDays int    `toml:"persist_runs_days"`  // Days of run history to keep, 0 keeps everything
}

// MissionsConfig contains mission definition file settings
type MissionsConfig struct {
	DefinitionPath string `toml:"definition_path"` // Path to the toml mission definition file
}

// SimulationConfig contains numeric tuning for the segment stepping loops.
// Zero values fall back to the engine defaults.
type SimulationConfig struct {
	TimeStepSecs     float64 `toml:"time_step_seconds"`      // Integration time step for airborne segments
	TaxiTimeStepSecs float64 `toml:"taxi_time_step_seconds"` // Integration time step for taxi segments
	Tolerance        float64 `toml:"tolerance"`              // Relative target-exactness tolerance
	MaxIterations    int     `toml:"max_iterations"`         // Iteration cap per stepping loop
	MaxAltitudeFt    float64 `toml:"max_altitude_ft"`        // Upper bracket for optimal altitude searches
}

// Load loads the configuration from the specified file path
func Load(path string) (*Config, error) {
	var config Config

	// Check if the file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	// Read the config file
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	return &config, nil
}

// LoadWithFallback loads the configuration by checking multiple locations in order of preference
func LoadWithFallback(preferredPath string) (*Config, error) {
	// List of paths to check in order of preference
	searchPaths := []string{
		preferredPath,         // User-specified path (if provided)
		"configs/config.toml", // configs/ folder
		"config.toml",         // Root directory
	}

	// Remove duplicates while preserving order
	uniquePaths := make([]string, 0, len(searchPaths))
	seen := make(map[string]bool)
	for _, path := range searchPaths {
		if path != "" && !seen[path] {
			uniquePaths = append(uniquePaths, path)
			seen[path] = true
		}
	}

	var lastErr error
	for _, path := range uniquePaths {
		if _, err := os.Stat(path); err == nil {
			// File exists, try to load it
			config, err := Load(path)
			if err != nil {
				lastErr = fmt.Errorf("failed to load config from %s: %w", path, err)
				continue
			}
			return config, nil
		}
		lastErr = fmt.Errorf("config file not found: %s", path)
	}

	return nil, fmt.Errorf("config file not found in any of the expected locations: %v. Last error: %w", uniquePaths, lastErr)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}

	// Validate logging config
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level: %s", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("invalid logging format: %s", c.Logging.Format)
	}

	// Validate storage config
	if c.Storage.Type == "" {
		c.Storage.Type = "sqlite"
	}
	if c.Storage.Type != "sqlite" {
		return fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}
	if c.Storage.SQLiteBasePath == "" {
		c.Storage.SQLiteBasePath = "data"
	}
	if c.Storage.MaxPointsInAPI <= 0 {
		c.Storage.MaxPointsInAPI = 10000
	}

	// Validate missions config
	if c.Missions.DefinitionPath == "" {
		return fmt.Errorf("missions definition_path is required")
	}

	// Validate simulation tuning
	if c.Simulation.TimeStepSecs < 0 {
		return fmt.Errorf("invalid time_step_seconds: %g", c.Simulation.TimeStepSecs)
	}
	if c.Simulation.Tolerance < 0 {
		return fmt.Errorf("invalid tolerance: %g", c.Simulation.Tolerance)
	}
	if c.Simulation.MaxIterations < 0 {
		return fmt.Errorf("invalid max_iterations: %d", c.Simulation.MaxIterations)
	}

	return nil
}

// Tuning converts the simulation section into the engine's tuning knobs.
// Zero fields stay zero so the engine applies its own defaults.
func (c *Config) Tuning() segment.Tuning {
	t := segment.Tuning{
		TimeStep:      c.Simulation.TimeStepSecs,
		TaxiTimeStep:  c.Simulation.TaxiTimeStepSecs,
		Tolerance:     c.Simulation.Tolerance,
		MaxIterations: c.Simulation.MaxIterations,
	}
	if c.Simulation.MaxAltitudeFt > 0 {
		t.MaxAltitude = c.Simulation.MaxAltitudeFt * 0.3048
	}
	return t
}
