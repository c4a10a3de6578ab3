package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/grcplane/grcplane-core/internal/models"
	"github.com/grcplane/grcplane-core/internal/services"
	"github.com/grcplane/grcplane-core/pkg/logger"
)

type AlertHandler struct {
	alertService *services.AlertService
	logger       logger.Logger
}

func NewAlertHandler(alertService *services.AlertService, logger logger.Logger) *AlertHandler {
	return &AlertHandler{
		alertService: alertService,
		logger:       logger,
	}
}

// POST /api/v1/alerts - Create a new alert
func (h *AlertHandler) CreateAlert(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req models.CreateAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_BODY"})
		return
	}

	alert, err := h.alertService.CreateAlert(c.Request.Context(), &req, actor)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, alert)
}

// GET /api/v1/alerts - List alerts with optional filters
func (h *AlertHandler) ListAlerts(c *gin.Context) {
	var q models.AlertQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_QUERY"})
		return
	}

	resp, err := h.alertService.ListAlerts(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GET /api/v1/alerts/:id
func (h *AlertHandler) GetAlert(c *gin.Context) {
	alert, err := h.alertService.GetAlert(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, alert)
}

// PUT /api/v1/alerts/:id/acknowledge
func (h *AlertHandler) AcknowledgeAlert(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	alert, err := h.alertService.AcknowledgeAlert(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, alert)
}

// PUT /api/v1/alerts/:id/resolve
func (h *AlertHandler) ResolveAlert(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	// Resolution notes are optional; an empty body is accepted.
	var req models.ResolveAlertRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_BODY"})
			return
		}
	}

	alert, err := h.alertService.ResolveAlert(c.Request.Context(), c.Param("id"), actor, req.ResolutionNotes)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, alert)
}

// PUT /api/v1/alerts/:id/dismiss
func (h *AlertHandler) DismissAlert(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	alert, err := h.alertService.DismissAlert(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, alert)
}
