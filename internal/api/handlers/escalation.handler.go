package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/grcplane/grcplane-core/internal/models"
	"github.com/grcplane/grcplane-core/internal/services"
	"github.com/grcplane/grcplane-core/pkg/logger"
)

type EscalationHandler struct {
	escalations *services.EscalationService
	logger      logger.Logger
}

func NewEscalationHandler(escalations *services.EscalationService, logger logger.Logger) *EscalationHandler {
	return &EscalationHandler{
		escalations: escalations,
		logger:      logger,
	}
}

// POST /api/v1/escalations - Create an escalation chain for an alert
func (h *EscalationHandler) CreateChain(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req models.CreateEscalationChainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_BODY"})
		return
	}

	chain, err := h.escalations.CreateChain(c.Request.Context(), &req, actor)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, chain)
}

// POST /api/v1/escalations/:id/escalate - Manually advance a chain one level
func (h *EscalationHandler) Escalate(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	chain, err := h.escalations.Escalate(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, chain)
}

// POST /api/v1/escalations/:id/resolve
func (h *EscalationHandler) Resolve(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req models.ResolveEscalationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_BODY"})
		return
	}

	chain, err := h.escalations.Resolve(c.Request.Context(), c.Param("id"), req.ResolutionNotes, actor)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, chain)
}

// POST /api/v1/escalations/:id/cancel
func (h *EscalationHandler) Cancel(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	chain, err := h.escalations.Cancel(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, chain)
}

// GET /api/v1/escalations/:id
func (h *EscalationHandler) GetChain(c *gin.Context) {
	chain, err := h.escalations.GetChain(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, chain)
}

// GET /api/v1/escalations/alert/:alertId - All chains for an alert
func (h *EscalationHandler) GetAlertChains(c *gin.Context) {
	chains, err := h.escalations.GetAlertChains(c.Request.Context(), c.Param("alertId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"chains": chains, "total": len(chains)})
}

// GET /api/v1/escalations/active?severity=critical
func (h *EscalationHandler) GetActiveChains(c *gin.Context) {
	var (
		chains []*models.EscalationChain
		err    error
	)

	if severity := c.Query("severity"); severity != "" {
		chains, err = h.escalations.GetActiveChainsBySeverity(c.Request.Context(), models.AlertSeverity(severity))
	} else {
		chains, err = h.escalations.GetActiveChains(c.Request.Context())
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"chains": chains, "total": len(chains)})
}

// GET /api/v1/escalations/statistics
func (h *EscalationHandler) Statistics(c *gin.Context) {
	stats, err := h.escalations.Statistics(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
