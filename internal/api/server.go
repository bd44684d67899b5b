package api

import (
	"net/http"
	"time"

	"github.com/JJublanc/virtual-ai-coach/internal/catalog"
	"github.com/JJublanc/virtual-ai-coach/internal/config"
	"github.com/JJublanc/virtual-ai-coach/internal/encoder"
	"github.com/JJublanc/virtual-ai-coach/internal/httputil"
	"github.com/JJublanc/virtual-ai-coach/internal/jobs"
	"github.com/JJublanc/virtual-ai-coach/internal/registry"
	"github.com/JJublanc/virtual-ai-coach/internal/version"
)

type Server struct {
	config   *config.Config
	catalog  *catalog.Catalog
	manager  *encoder.Manager
	registry *registry.Registry
	jobQueue *jobs.Queue
	wsHub    *WSHub
	router   *http.ServeMux
	started  time.Time
}

func NewServer(cfg *config.Config, cat *catalog.Catalog, manager *encoder.Manager, reg *registry.Registry, jobQueue *jobs.Queue) *Server {
	s := &Server{
		config:   cfg,
		catalog:  cat,
		manager:  manager,
		registry: reg,
		jobQueue: jobQueue,
		wsHub:    NewWSHub(),
		router:   http.NewServeMux(),
		started:  time.Now(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("GET /health", s.handleHealth)

	s.router.HandleFunc("GET /api/v1/exercises", s.handleListExercises)
	s.router.HandleFunc("GET /api/v1/exercises/{name}", s.handleGetExercise)

	s.router.HandleFunc("POST /api/v1/workouts/video", s.handleGenerateVideo)
	s.router.HandleFunc("POST /api/v1/workouts/jobs", s.handleCreateJob)
	s.router.HandleFunc("GET /api/v1/workouts/jobs/{id}", s.handleGetJob)
	s.router.HandleFunc("GET /api/v1/workouts/jobs/{id}/stream", s.handleStreamJob)

	s.router.HandleFunc("GET /api/v1/ws", s.handleWebSocket)
}

// Notifier exposes the websocket hub for job workers.
func (s *Server) Notifier() jobs.EventNotifier {
	return s.wsHub
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"version": version.Load().Version,
		"uptime":  time.Since(s.started).Round(time.Second).String(),
		"jobs":    s.registry.Count(),
	})
}
