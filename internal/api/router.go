package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/aerotools/missim/internal/config"
	"github.com/aerotools/missim/internal/metrics"
	"github.com/aerotools/missim/internal/simulation"
	"github.com/aerotools/missim/internal/websocket"
	"github.com/aerotools/missim/pkg/logger"
)

// Router assembles the HTTP surface of the server
type Router struct {
	handler   *Handler
	collector *metrics.Collector
	config    *config.Config
	logger    *logger.Logger
}

// NewRouter creates a new API router
func NewRouter(simulationService *simulation.Service, cfg *config.Config, log *logger.Logger, wsServer *websocket.Server, collector *metrics.Collector) *Router {
	return &Router{
		handler:   NewHandler(simulationService, cfg, log, wsServer),
		collector: collector,
		config:    cfg,
		logger:    log.Named("api-router"),
	}
}

// Routes returns the configured chi router
func (r *Router) Routes() http.Handler {
	mux := chi.NewRouter()

	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(middleware.Recoverer)
	mux.Use(r.cors)

	mux.Route("/api/v1", func(api chi.Router) {
		api.Get("/health", r.handler.GetHealth)
		api.Get("/missions", r.handler.GetMissions)
		api.Post("/missions/{id}/compute", r.handler.ComputeMission)
		api.Get("/runs", r.handler.GetRuns)
		api.Get("/runs/{id}", r.handler.GetRun)
		api.Get("/ws", r.handler.HandleWebSocket)
	})

	mux.Handle("/metrics", r.collector.Handler())

	return mux
}

// cors applies the configured allowed origins. An empty list or "*" allows
// everything.
func (r *Router) cors(next http.Handler) http.Handler {
	allowed := r.config.Server.CORSAllowedOrigins
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		origin := req.Header.Get("Origin")
		if origin != "" && originAllowed(origin, allowed) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if req.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, req)
	})
}

func originAllowed(origin string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}
