package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bitswing/bitswing/pkg/api/models"
	"github.com/bitswing/bitswing/pkg/limits"
	"github.com/bitswing/bitswing/pkg/shaper"
)

// RulesHandler serves the active rule set
type RulesHandler struct {
	limits limits.Provider
}

// NewRulesHandler creates a new rules handler
func NewRulesHandler(lm limits.Provider) *RulesHandler {
	return &RulesHandler{limits: lm}
}

// ListRules handles GET /api/v1/rules
func (h *RulesHandler) ListRules(c *gin.Context) {
	active := h.limits.Rules()

	rules := make([]models.RuleResponse, 0, len(active))
	for _, r := range active {
		rules = append(rules, models.RuleResponse{
			Port:       r.Port,
			RateBps:    limits.FormatBps(r.Bps),
			BurstBytes: r.Burst,
			Default:    r.Port == shaper.DefaultKey,
		})
	}

	c.JSON(http.StatusOK, models.RuleListResponse{Rules: rules, Count: len(rules)})
}
