package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bitswing/bitswing/pkg/api/models"
	"github.com/bitswing/bitswing/pkg/dataplane"
	"github.com/bitswing/bitswing/pkg/limits"
)

var startTime = time.Now()

// HealthHandler handles health check requests
type HealthHandler struct {
	dataPlane dataplane.Interface
	limits    limits.Provider
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(dp dataplane.Interface, lm limits.Provider) *HealthHandler {
	return &HealthHandler{
		dataPlane: dp,
		limits:    lm,
	}
}

// GetHealth handles GET /api/v1/health
func (h *HealthHandler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{
		Status:  "ok",
		Message: "API server is healthy",
	})
}

// GetStatus handles GET /api/v1/status
// Detailed status endpoint with datapath information
func (h *HealthHandler) GetStatus(c *gin.Context) {
	stats := h.dataPlane.GetStatistics()
	rules := h.limits.Rules()

	dataPlaneStatus := models.DataPlaneStatus{
		Status:  "running",
		Message: "Shaper is enforcing",
	}
	if stats.TotalPackets == 0 {
		dataPlaneStatus.Status = "idle"
		dataPlaneStatus.Message = "Shaper is idle (no packets processed)"
	}

	c.JSON(http.StatusOK, models.StatusResponse{
		Status:     "ok",
		Interface:  h.dataPlane.InterfaceName(),
		XDPMode:    h.dataPlane.Mode(),
		DataPlane:  dataPlaneStatus,
		Statistics: datapathStats(stats),
		RuleCount:  len(rules),
		Uptime:     int64(time.Since(startTime).Seconds()),
	})
}
