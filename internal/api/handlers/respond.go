package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/grcplane/grcplane-core/internal/api/middleware"
	"github.com/grcplane/grcplane-core/internal/models"
)

// ErrorResponse is the standardized error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// respondError maps service errors to HTTP status codes via errors.Is.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "NOT_FOUND"})
	case errors.Is(err, models.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_ARGUMENT"})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "INTERNAL"})
	}
}

// requireActor returns the acting user id, or writes a 400 and reports false
// when the X-User-ID header was absent.
func requireActor(c *gin.Context) (string, bool) {
	actor := c.GetString(middleware.ActorKey)
	if actor == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "X-User-ID header is required",
			Code:  "MISSING_ACTOR",
		})
		return "", false
	}
	return actor, true
}
