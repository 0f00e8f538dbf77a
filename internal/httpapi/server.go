// Package httpapi exposes the orchestration layer over HTTP.
//
// The surface is small: one unified orchestration endpoint, one endpoint
// per-specialist addressing, the capability router, the tool catalog,
// and the usual health and metrics endpoints.
package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/anomalyhq/corpusd/internal/config"
	"github.com/anomalyhq/corpusd/internal/orchestrator"
	"github.com/anomalyhq/corpusd/internal/store"
)

// Server is the HTTP front of the daemon.
type Server struct {
	cfg    config.ServerConfig
	echo   *echo.Echo
	stores *store.Service
	orch   *orchestrator.Orchestrator
	router *orchestrator.Router
	logger *zap.Logger
}

// NewServer wires the HTTP surface over the orchestration core.
func NewServer(cfg config.ServerConfig, stores *store.Service, orch *orchestrator.Orchestrator, router *orchestrator.Router, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.ReadTimeout.Duration()
	e.Server.WriteTimeout = cfg.WriteTimeout.Duration()
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	s := &Server{
		cfg:    cfg,
		echo:   e,
		stores: stores,
		orch:   orch,
		router: router,
		logger: logger,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/v1")
	v1.GET("/tools", s.handleTools)
	v1.POST("/orchestrate", s.handleOrchestrate)
	v1.POST("/route", s.handleRoute)
	v1.POST("/specialists/:name", s.handleSpecialist)
}

// Echo returns the underlying router, for tests and extensions.
func (s *Server) Echo() *echo.Echo { return s.echo }

// Start runs the server until the context is cancelled, then shuts down
// gracefully within the configured timeout. Returns
// http.ErrServerClosed on clean shutdown.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.echo.Start(s.cfg.Addr()); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server start: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			s.cfg.ShutdownTimeout.Duration(),
		)
		defer cancel()

		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return http.ErrServerClosed
	}
}
