package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	temporalclient "go.temporal.io/sdk/client"

	"github.com/orchardhq/orchard/internal/api/handler"
	mw "github.com/orchardhq/orchard/internal/api/middleware"
	"github.com/orchardhq/orchard/internal/config"
	"github.com/orchardhq/orchard/internal/core"
	"github.com/orchardhq/orchard/internal/runtime"
)

type Server struct {
	router         chi.Router
	logger         zerolog.Logger
	services       *core.Services
	corePool       *pgxpool.Pool
	temporalClient temporalclient.Client
	cfg            *config.Config
}

func NewServer(logger zerolog.Logger, coreDB *pgxpool.Pool, temporalClient temporalclient.Client, rt runtime.Runtime, cfg *config.Config) *Server {
	services := core.NewServices(coreDB, temporalClient, rt, cfg.InstanceBasePort)

	s := &Server{
		router:         chi.NewRouter(),
		logger:         logger,
		services:       services,
		corePool:       coreDB,
		temporalClient: temporalClient,
		cfg:            cfg,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(mw.Metrics)
}

func (s *Server) setupRoutes() {
	// Prometheus metrics endpoint
	s.router.Handle("/metrics", promhttp.Handler())

	// Health check endpoints
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/readyz", s.handleReadyz)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.Auth(s.corePool))

		// Tenants
		tenant := handler.NewTenant(s.services.Tenant)
		r.Get("/tenants", tenant.List)
		r.Post("/tenants", tenant.Create)
		r.Get("/tenants/{id}", tenant.Get)
		r.Put("/tenants/{id}", tenant.Update)
		r.Delete("/tenants/{id}", tenant.Delete)

		// Instances
		instance := handler.NewInstance(s.services.Instance)
		r.Get("/tenants/{tenantID}/instances", instance.ListByTenant)
		r.Post("/tenants/{tenantID}/instances", instance.Create)
		r.Get("/instances/{id}", instance.Get)
		r.Post("/instances/{id}/start", instance.Start)
		r.Post("/instances/{id}/stop", instance.Stop)
		r.Post("/instances/{id}/restart", instance.Restart)
		r.Delete("/instances/{id}", instance.Delete)
		r.Get("/instances/{id}/stats", instance.Stats)
		r.Post("/instances/{id}/reconcile", instance.Reconcile)

		// Backups
		backup := handler.NewBackup(s.services.Backup)
		r.Get("/backups", backup.List)
		r.Post("/backups", backup.Create)
		r.Get("/tenants/{tenantID}/backups", backup.ListByTenant)
		r.Post("/tenants/{tenantID}/backups", backup.Create)
		r.Get("/backups/{id}", backup.Get)
		r.Post("/backups/{id}/restore", backup.Restore)
		r.Delete("/backups/{id}", backup.Delete)
		r.Post("/backups/cleanup", backup.Cleanup)

		// Cross-resource search
		search := handler.NewSearch(s.services.Search)
		r.Get("/search", search.Search)
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if err := s.corePool.Ping(ctx); err != nil {
		checks["core_db"] = err.Error()
		healthy = false
	} else {
		checks["core_db"] = "ok"
	}

	if _, err := s.temporalClient.CheckHealth(ctx, &temporalclient.CheckHealthRequest{}); err != nil {
		checks["temporal"] = err.Error()
		healthy = false
	} else {
		checks["temporal"] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	if healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(checks)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
