package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/aerotools/missim/internal/api"
	"github.com/aerotools/missim/internal/config"
	"github.com/aerotools/missim/internal/loader"
	"github.com/aerotools/missim/internal/metrics"
	"github.com/aerotools/missim/internal/simulation"
	"github.com/aerotools/missim/internal/storage/sqlite"
	"github.com/aerotools/missim/internal/websocket"
	"github.com/aerotools/missim/pkg/logger"
)

var (
	// Version is injected at build time
	Version = "dev"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file (optional - will search in configs/ and root directory)")
	flag.Parse()

	// Load configuration with fallback logic
	cfg, err := config.LoadWithFallback(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Create logger
	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting missim server",
		logger.String("version", Version),
		logger.String("config_path", *configPath),
	)

	// Generate today's database filename
	today := time.Now().Format("2006-01-02")
	dbFilename := fmt.Sprintf("missim-%s.db", today)
	dbPath := filepath.Join(cfg.Storage.SQLiteBasePath, dbFilename)

	// Ensure the directory exists
	dbDir := cfg.Storage.SQLiteBasePath
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		log.Error("Failed to create database directory", logger.Error(err), logger.String("path", dbDir))
		os.Exit(1)
	}

	log.Info("Using daily database", logger.String("path", dbPath))

	// Create SQLite run storage
	runStorage, err := sqlite.NewRunStorage(
		dbPath,
		cfg.Storage.MaxPointsInAPI,
		log,
	)
	if err != nil {
		log.Error("Failed to create SQLite storage", logger.Error(err))
		os.Exit(1)
	}
	defer runStorage.Close()

	// Prune old runs per retention config
	if _, err := runStorage.PruneRuns(cfg.Storage.PersistRunsDays); err != nil {
		log.Error("Failed to prune old runs", logger.Error(err))
	}

	// Load mission definitions
	missionLoader, err := loader.Load(cfg.Missions.DefinitionPath, cfg.Tuning(), log)
	if err != nil {
		log.Error("Failed to load mission definitions",
			logger.Error(err),
			logger.String("path", cfg.Missions.DefinitionPath))
		os.Exit(1)
	}
	log.Info("Mission definitions loaded",
		logger.String("path", cfg.Missions.DefinitionPath),
		logger.Int("missions", len(missionLoader.MissionIDs())))

	// Create WebSocket server
	wsServer := websocket.NewServer(log)

	// Start WebSocket server
	go wsServer.Run()

	// Create metrics collector
	collector, err := metrics.NewCollector(nil)
	if err != nil {
		log.Error("Failed to register metrics", logger.Error(err))
		os.Exit(1)
	}

	// Create simulation service
	simulationService := simulation.NewService(missionLoader, runStorage, wsServer, collector, log)

	// Create API router
	router := api.NewRouter(simulationService, cfg, log, wsServer, collector)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router.Routes(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSecs) * time.Second,
	}

	go func() {
		log.Info("Starting HTTP server", logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error on startup", logger.String("addr", server.Addr), logger.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("Shutting down server...")

	if err := server.Close(); err != nil {
		log.Error("Error closing HTTP server", logger.Error(err))
	}

	log.Info("Server shutdown complete")
}
