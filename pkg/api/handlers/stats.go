package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bitswing/bitswing/pkg/api/models"
	"github.com/bitswing/bitswing/pkg/dataplane"
	"github.com/bitswing/bitswing/pkg/limits"
)

// StatsHandler handles statistics requests
type StatsHandler struct {
	dataPlane dataplane.Interface
	limits    limits.Provider
}

// NewStatsHandler creates a new statistics handler
func NewStatsHandler(dp dataplane.Interface, lm limits.Provider) *StatsHandler {
	return &StatsHandler{
		dataPlane: dp,
		limits:    lm,
	}
}

// GetDatapathStats handles GET /api/v1/stats
func (h *StatsHandler) GetDatapathStats(c *gin.Context) {
	c.JSON(http.StatusOK, datapathStats(h.dataPlane.GetStatistics()))
}

// GetPortStats handles GET /api/v1/stats/ports
// Runtime bucket state for every configured port, read from the kernel map.
func (h *StatsHandler) GetPortStats(c *gin.Context) {
	stats, err := h.limits.Stats()
	if err != nil {
		c.JSON(http.StatusInternalServerError,
			models.NewErrorResponse(http.StatusInternalServerError, "map_read_failed", err.Error()))
		return
	}

	ports := make([]models.PortStatsResponse, 0, len(stats))
	for _, s := range stats {
		ports = append(ports, models.PortStatsResponse{
			Port:         s.Port,
			RateBps:      limits.FormatBps(s.Bps),
			BurstBytes:   s.Burst,
			TokenBytes:   s.TokenBytes,
			PassedBytes:  s.PassedBytes,
			DroppedBytes: s.DroppedBytes,
		})
	}

	c.JSON(http.StatusOK, models.PortStatsListResponse{Ports: ports, Count: len(ports)})
}

func datapathStats(stats dataplane.Statistics) *models.DatapathStatsResponse {
	var dropRate float64
	if stats.TotalPackets > 0 {
		dropRate = float64(stats.DroppedPackets) / float64(stats.TotalPackets) * 100
	}

	return &models.DatapathStatsResponse{
		TotalPackets:      stats.TotalPackets,
		PassedPackets:     stats.PassedPackets,
		DroppedPackets:    stats.DroppedPackets,
		NonIPPackets:      stats.NonIPPackets,
		ParseAnomalies:    stats.ParseAnomalies,
		ExtHeaderPackets:  stats.ExtHeaderPackets,
		DefaultBucketHits: stats.DefaultBucketHits,
		MapMisses:         stats.MapMisses,
		DropRate:          dropRate,
	}
}
