package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitswing/bitswing/pkg/api/models"
	"github.com/bitswing/bitswing/pkg/dataplane"
	"github.com/bitswing/bitswing/pkg/limits"
	"github.com/bitswing/bitswing/pkg/shaper"
)

func TestGetDatapathStats(t *testing.T) {
	dp := &fakeDataPlane{stats: dataplane.Statistics{
		TotalPackets:   1000,
		PassedPackets:  750,
		DroppedPackets: 250,
		NonIPPackets:   5,
	}}
	h := NewStatsHandler(dp, &fakeLimits{})

	w := serve(http.MethodGet, "/api/v1/stats", func(r *gin.Engine) {
		r.GET("/api/v1/stats", h.GetDatapathStats)
	})

	require.Equal(t, http.StatusOK, w.Code)
	var resp models.DatapathStatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, uint64(1000), resp.TotalPackets)
	assert.Equal(t, uint64(250), resp.DroppedPackets)
	assert.InDelta(t, 25.0, resp.DropRate, 0.001)
}

func TestGetPortStats(t *testing.T) {
	lm := &fakeLimits{stats: []limits.PortStats{
		{Port: 0, Bps: shaper.RateUnlimited, TokenBytes: 0},
		{Port: 80, Bps: 500_000, Burst: 500_000, TokenBytes: 123, PassedBytes: 900, DroppedBytes: 100},
	}}
	h := NewStatsHandler(&fakeDataPlane{}, lm)

	w := serve(http.MethodGet, "/api/v1/stats/ports", func(r *gin.Engine) {
		r.GET("/api/v1/stats/ports", h.GetPortStats)
	})

	require.Equal(t, http.StatusOK, w.Code)
	var resp models.PortStatsListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Count)
	assert.Equal(t, "unlimited", resp.Ports[0].RateBps)
	assert.Equal(t, "500000 B/s", resp.Ports[1].RateBps)
	assert.Equal(t, uint64(123), resp.Ports[1].TokenBytes)
}

func TestGetPortStatsMapError(t *testing.T) {
	h := NewStatsHandler(&fakeDataPlane{}, &fakeLimits{statsErr: errMapGone})

	w := serve(http.MethodGet, "/api/v1/stats/ports", func(r *gin.Engine) {
		r.GET("/api/v1/stats/ports", h.GetPortStats)
	})

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "map_read_failed", resp.Error)
}
