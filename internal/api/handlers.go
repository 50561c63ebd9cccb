// Package api exposes the mission engine over HTTP: mission listing and
// computation, run retrieval and the WebSocket streaming endpoint.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aerotools/missim/internal/config"
	"github.com/aerotools/missim/internal/simerr"
	"github.com/aerotools/missim/internal/simulation"
	"github.com/aerotools/missim/internal/websocket"
	"github.com/aerotools/missim/pkg/logger"
)

// Handler contains the API handlers
type Handler struct {
	simulationService *simulation.Service
	config            *config.Config
	logger            *logger.Logger
	wsServer          *websocket.Server
}

// NewHandler creates a new API handler
func NewHandler(simulationService *simulation.Service, config *config.Config, logger *logger.Logger, wsServer *websocket.Server) *Handler {
	return &Handler{
		simulationService: simulationService,
		config:            config,
		logger:            logger.Named("api-handler"),
		wsServer:          wsServer,
	}
}

// GetMissions returns the mission ids available for computation
func (h *Handler) GetMissions(w http.ResponseWriter, r *http.Request) {
	ids := h.simulationService.MissionIDs()
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"missions": ids,
		"count":    len(ids),
	})
}

// computeRequest is the optional body of a compute call.
type computeRequest struct {
	Overrides map[string]float64 `json:"overrides"`
}

// ComputeMission computes the given mission and returns the persisted run
func (h *Handler) ComputeMission(w http.ResponseWriter, r *http.Request) {
	missionID := chi.URLParam(r, "id")
	start := time.Now()

	var req computeRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}

	run, err := h.simulationService.Compute(r.Context(), missionID, req.Overrides)
	if err != nil {
		h.logger.Error("Mission computation failed",
			logger.String("mission", missionID),
			logger.Error(err))
		WriteError(w, statusForError(err), err.Error())
		return
	}

	h.logger.Info("Mission computed",
		logger.String("mission", missionID),
		logger.String("run_id", run.ID),
		logger.Duration("duration", time.Since(start)))

	WriteJSON(w, http.StatusOK, run)
}

// GetRuns returns recent runs, newest first
func (h *Handler) GetRuns(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}

	runs, err := h.simulationService.ListRuns(limit)
	if err != nil {
		h.logger.Error("Failed to list runs", logger.Error(err))
		WriteError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// GetRun returns one run summary with its trajectory
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := h.simulationService.GetRun(id)
	if err != nil {
		h.logger.Error("Failed to get run", logger.String("run_id", id), logger.Error(err))
		WriteError(w, http.StatusInternalServerError, "failed to get run")
		return
	}
	if run == nil {
		WriteError(w, http.StatusNotFound, "run not found")
		return
	}

	points, err := h.simulationService.GetRunPoints(id)
	if err != nil {
		h.logger.Error("Failed to get run points", logger.String("run_id", id), logger.Error(err))
		WriteError(w, http.StatusInternalServerError, "failed to get run points")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"run":    run,
		"points": points,
	})
}

// GetHealth returns the health status of the API
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "ok",
		"mission_count": len(h.simulationService.MissionIDs()),
	})
}

// HandleWebSocket upgrades the connection and hands it to the streaming hub
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	h.wsServer.HandleConnection(w, r)
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// WriteError writes a JSON error response
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]interface{}{"error": message})
}

// statusForError maps engine error types to HTTP status codes: bad
// definitions are the client's fault, unreachable targets and numeric
// failures are unprocessable, everything else is a server error.
func statusForError(err error) int {
	var cfgErr *simerr.ConfigurationError
	if errors.As(err, &cfgErr) {
		return http.StatusBadRequest
	}
	var unreachable *simerr.TargetUnreachableError
	if errors.As(err, &unreachable) {
		return http.StatusUnprocessableEntity
	}
	var diverged *simerr.NumericDivergenceError
	if errors.As(err, &diverged) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
