package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/codescope-io/codescope/internal/catalog"
	"github.com/codescope-io/codescope/internal/orchestration"
	"github.com/codescope-io/codescope/internal/registry"
	"github.com/codescope-io/codescope/pkg/models"
	"github.com/codescope-io/codescope/pkg/utils"
)

// Server exposes the scan engine, service registry and check catalog over
// HTTP with the platform's {success, message, data} envelope.
type Server struct {
	cfg      models.APIConfig
	engine   *orchestration.Engine
	catalog  *catalog.Catalog
	registry *registry.Registry
	metrics  *utils.Metrics
	logger   *logrus.Logger
	version  string

	httpServer *http.Server
}

func NewServer(
	cfg models.APIConfig,
	engine *orchestration.Engine,
	cat *catalog.Catalog,
	reg *registry.Registry,
	metrics *utils.Metrics,
	logger *logrus.Logger,
	version string,
) *Server {
	if logger == nil {
		logger = logrus.New()
	}
	s := &Server{
		cfg:      cfg,
		engine:   engine,
		catalog:  cat,
		registry: reg,
		metrics:  metrics,
		logger:   logger,
		version:  version,
	}
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)

	mux.HandleFunc("POST /api/scans", s.handleStartScan)
	mux.HandleFunc("GET /api/scans", s.handleListScans)
	mux.HandleFunc("GET /api/scans/{id}", s.handleGetScan)
	mux.HandleFunc("GET /api/scans/{id}/progress", s.handleGetProgress)
	mux.HandleFunc("GET /api/scans/{id}/tasks", s.handleListTasks)
	mux.HandleFunc("GET /api/scans/{id}/issues", s.handleListIssues)
	mux.HandleFunc("POST /api/scans/{id}/cancel", s.handleCancelScan)

	mux.HandleFunc("GET /api/dependencies", s.handleListDependencies)
	mux.HandleFunc("GET /api/dependencies/{id}/vulnerabilities", s.handleListVulnerabilities)

	mux.HandleFunc("GET /api/services", s.handleListServices)
	mux.HandleFunc("GET /api/services/{id}/scans/latest", s.handleLatestScan)

	mux.HandleFunc("GET /api/checks", s.handleCatalogTree)
	mux.HandleFunc("POST /api/checks/groups", s.handleCreateGroup)
	mux.HandleFunc("DELETE /api/checks/groups/{id}", s.handleDeleteGroup)
	mux.HandleFunc("POST /api/checks/groups/{id}/items", s.handleCreateItem)
	mux.HandleFunc("PUT /api/checks/items/{id}/prompt", s.handleUpdatePrompt)
	mux.HandleFunc("DELETE /api/checks/items/{id}", s.handleDeleteItem)

	if s.cfg.EnableMetrics && s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	return s.logRequests(mux)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start).String(),
			"remote":   r.RemoteAddr,
		}).Debug("Request handled")
	})
}

// ListenAndServe blocks until the server stops.
func (s *Server) ListenAndServe() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("API server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
