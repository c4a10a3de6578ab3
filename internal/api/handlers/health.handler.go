package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/grcplane/grcplane-core/internal/storage/mysql"
	"github.com/grcplane/grcplane-core/pkg/cache"
	"github.com/grcplane/grcplane-core/pkg/logger"
)

const serviceVersion = "v1.0.0"

type HealthHandler struct {
	db     *mysql.Client
	cache  cache.Valkey
	logger logger.Logger
}

func NewHealthHandler(db *mysql.Client, c cache.Valkey, logger logger.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		cache:  c,
		logger: logger,
	}
}

// GET /health - Quick liveness check
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "grcplane-core",
		"version":   serviceVersion,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// GET /ready - Readiness check probing MySQL and the cache
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]interface{})
	ready := true

	if h.db != nil {
		if err := h.db.DB.PingContext(ctx); err != nil {
			checks["mysql"] = gin.H{"status": "unhealthy", "error": err.Error()}
			ready = false
		} else {
			checks["mysql"] = gin.H{"status": "healthy"}
		}
	}

	if h.cache != nil {
		// A cache outage degrades performance but does not block serving.
		probeKey := fmt.Sprintf("ready:%d", time.Now().UnixNano())
		if err := h.cache.Set(ctx, probeKey, "1", time.Second); err != nil {
			checks["valkey"] = gin.H{"status": "degraded", "error": err.Error()}
		} else {
			checks["valkey"] = gin.H{"status": "healthy"}
		}
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !ready {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, gin.H{
		"status":    status,
		"service":   "grcplane-core",
		"version":   serviceVersion,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}
