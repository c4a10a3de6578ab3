package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/grcplane/grcplane-core/pkg/logger"
)

// RequestLogger logs every HTTP request with structured fields. The log level
// follows the response status: 4xx warns, 5xx errors.
func RequestLogger(log logger.Logger) gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		fields := []interface{}{
			"method", param.Method,
			"path", param.Path,
			"status", param.StatusCode,
			"latency", param.Latency,
			"client_ip", param.ClientIP,
			"user_agent", param.Request.UserAgent(),
			"actor", param.Request.Header.Get("X-User-ID"),
			"request_id", param.Request.Header.Get("X-Request-ID"),
		}

		if param.ErrorMessage != "" {
			fields = append(fields, "error", param.ErrorMessage)
		}

		switch {
		case param.StatusCode >= 500:
			log.Error("HTTP Request", fields...)
		case param.StatusCode >= 400:
			log.Warn("HTTP Request", fields...)
		default:
			log.Info("HTTP Request", fields...)
		}

		return ""
	})
}
