// Package monitoring wires Prometheus exposition into the gin router and
// provides small recording helpers for components that should not import
// prometheus directly (the cache layer in particular, which must stay free
// of an internal/metrics import cycle).
package monitoring

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/grcplane/grcplane-core/internal/metrics"
)

// SetupPrometheusMetrics mounts the /metrics endpoint.
func SetupPrometheusMetrics(router *gin.Engine) {
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// RecordCacheOperation records the result of a single cache operation.
func RecordCacheOperation(operation, result string) {
	metrics.CacheRequestsTotal.WithLabelValues(operation, result).Inc()
}
