// Package api provides the read-only HTTP API of the shaper. It exposes
// endpoints for health checks, datapath statistics, per-port bucket state
// and the active rule set. There are no mutation endpoints: the
// configuration file is the single source of policy.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/bitswing/bitswing/pkg/dataplane"
	"github.com/bitswing/bitswing/pkg/limits"
)

// Server is the HTTP API server. It uses the Gin framework and reads
// through the data plane and the limits manager.
type Server struct {
	config     *Config
	dataPlane  dataplane.Interface
	limits     limits.Provider
	httpServer *http.Server
	router     *gin.Engine
}

// NewServer creates and initializes an API server instance: Gin router,
// middleware and routes.
func NewServer(cfg *Config, dp dataplane.Interface, lm limits.Provider) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	if cfg.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	server := &Server{
		config:    cfg,
		dataPlane: dp,
		limits:    lm,
		router:    gin.New(),
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server, nil
}

// Start starts the HTTP server in a background goroutine and returns
// immediately.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	log.Infof("Starting API server on %s", addr)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("API server failed: %v", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server, waiting for in-flight
// requests up to 30 seconds.
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	log.Info("Shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Errorf("API server forced to shutdown: %v", err)
		return err
	}

	log.Info("API server stopped gracefully")
	return nil
}

// GetRouter returns the underlying Gin router. Primarily useful for
// injecting test requests without starting the full HTTP server.
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}
