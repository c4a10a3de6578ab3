package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/grcplane/grcplane-core/internal/metrics"
)

// MetricsMiddleware records request count and latency per route for
// Prometheus scraping.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		statusCode := strconv.Itoa(c.Writer.Status())

		metrics.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			statusCode,
		).Inc()

		metrics.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}
