package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/grcplane/grcplane-core/internal/models"
	"github.com/grcplane/grcplane-core/internal/services"
	"github.com/grcplane/grcplane-core/pkg/logger"
)

type AlertRuleHandler struct {
	engine *services.RuleEngine
	logger logger.Logger
}

func NewAlertRuleHandler(engine *services.RuleEngine, logger logger.Logger) *AlertRuleHandler {
	return &AlertRuleHandler{
		engine: engine,
		logger: logger,
	}
}

// POST /api/v1/alert-rules
func (h *AlertRuleHandler) CreateRule(c *gin.Context) {
	var req models.CreateAlertRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_BODY"})
		return
	}

	rule, err := h.engine.CreateRule(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, rule)
}

// GET /api/v1/alert-rules?is_active=true
func (h *AlertRuleHandler) ListRules(c *gin.Context) {
	var isActive *bool
	if raw := c.Query("is_active"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "is_active must be a boolean", Code: "INVALID_QUERY"})
			return
		}
		isActive = &parsed
	}

	rules, err := h.engine.ListRules(c.Request.Context(), isActive)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"rules": rules, "total": len(rules)})
}

// GET /api/v1/alert-rules/:id
func (h *AlertRuleHandler) GetRule(c *gin.Context) {
	rule, err := h.engine.GetRule(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, rule)
}

// PUT /api/v1/alert-rules/:id
func (h *AlertRuleHandler) UpdateRule(c *gin.Context) {
	var req models.CreateAlertRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_BODY"})
		return
	}

	rule, err := h.engine.UpdateRule(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, rule)
}

// DELETE /api/v1/alert-rules/:id
func (h *AlertRuleHandler) DeleteRule(c *gin.Context) {
	if err := h.engine.DeleteRule(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// POST /api/v1/rules/evaluate - Evaluate all active rules against one entity
func (h *AlertRuleHandler) EvaluateEntity(c *gin.Context) {
	var req models.EvaluateEntityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_BODY"})
		return
	}

	alerts, err := h.engine.EvaluateEntity(c.Request.Context(), req.EntityType, req.EntityID, req.EntityData)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"alerts": alerts, "total": len(alerts)})
}

// POST /api/v1/rules/evaluate-batch - Evaluate a batch of entities
func (h *AlertRuleHandler) EvaluateBatch(c *gin.Context) {
	var req models.EvaluateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_BODY"})
		return
	}

	result := h.engine.EvaluateBatch(c.Request.Context(), req.EntityType, req.Entities)
	c.JSON(http.StatusOK, result)
}

// POST /api/v1/rules/auto-resolve - Resolve active alerts for an entity whose
// triggering condition has cleared
func (h *AlertRuleHandler) AutoResolve(c *gin.Context) {
	var req models.AutoResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_BODY"})
		return
	}

	resolved, err := h.engine.AutoResolveAlerts(c.Request.Context(), req.EntityID, req.EntityType)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"resolved": resolved})
}
