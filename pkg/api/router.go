package api

import (
	"github.com/bitswing/bitswing/pkg/api/handlers"
)

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	healthHandler := handlers.NewHealthHandler(s.dataPlane, s.limits)
	statsHandler := handlers.NewStatsHandler(s.dataPlane, s.limits)
	rulesHandler := handlers.NewRulesHandler(s.limits)

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/health", healthHandler.GetHealth)
		v1.GET("/status", healthHandler.GetStatus)

		stats := v1.Group("/stats")
		{
			stats.GET("", statsHandler.GetDatapathStats)
			stats.GET("/ports", statsHandler.GetPortStats)
		}

		v1.GET("/rules", rulesHandler.ListRules)
	}
}
